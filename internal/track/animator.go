// Package track animates satellite ground tracks on the overlay surface.
//
// An Animator owns at most one session at a time. Each scheduler tick clears
// the overlay, prints the simulated clock and, until the series is exhausted,
// draws one marker per satellite at the current frame before advancing the
// frame index by the configured stride.
package track

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/signalsfoundry/groundtrack/core"
	"github.com/signalsfoundry/groundtrack/internal/logging"
	"github.com/signalsfoundry/groundtrack/internal/palette"
	"github.com/signalsfoundry/groundtrack/internal/render"
	"github.com/signalsfoundry/groundtrack/model"
	"github.com/signalsfoundry/groundtrack/timectrl"
)

var (
	// ErrInvalidTrackData is returned by Start when the tracks cannot be
	// animated: none given, one without positions, or unequal lengths.
	ErrInvalidTrackData = errors.New("invalid track data")
	// ErrAnimationRunning is returned by Start while a session is running.
	ErrAnimationRunning = errors.New("animation already running")
)

// State is the animator lifecycle.
type State int

const (
	Idle State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = Idle
	case "running":
		*s = Running
	case "finished":
		*s = Finished
	default:
		return fmt.Errorf("unknown animation state %q", string(b))
	}
	return nil
}

// Session is one animation run.
type Session struct {
	ID          uuid.UUID
	FrameIndex  int
	FrameStride int
	StartedAt   time.Time
	Tracks      []model.SatelliteTrack
	Length      int

	// Ticks counts scheduler ticks processed, the final one included.
	Ticks int
	// SimulatedTime is the clock printed by the latest tick.
	SimulatedTime time.Time
	// Completed is set when the series ran out; Cancelled when the run was
	// torn down before that.
	Completed bool
	Cancelled bool
}

// Progress is a read-only view of the animator for status endpoints.
type Progress struct {
	State         State     `json:"state"`
	SessionID     string    `json:"session_id,omitempty"`
	FrameIndex    int       `json:"frame_index"`
	FrameStride   int       `json:"frame_stride,omitempty"`
	Length        int       `json:"length"`
	Tracks        int       `json:"tracks"`
	Ticks         int       `json:"ticks"`
	StartedAt     time.Time `json:"started_at,omitempty"`
	SimulatedTime time.Time `json:"simulated_time,omitempty"`
	Cancelled     bool      `json:"cancelled,omitempty"`
}

// Metrics receives animation events. *observability.AnimationCollector
// implements it.
type Metrics interface {
	ObserveTick()
	ObserveMarker(drawn bool)
	ObserveSession(outcome string, tracks int)
}

// FinishFunc runs after a session ends, naturally or by Cancel. It runs on
// the scheduler goroutine without the animator lock held.
type FinishFunc func(s Session)

// Animator drives sessions on an overlay surface.
type Animator struct {
	mu sync.Mutex

	surface   render.Surface
	proj      *core.Projection
	colors    *palette.Assigner
	scheduler timectrl.Scheduler
	clock     timectrl.Clock
	cfg       Config
	header    color.Color
	log       logging.Logger
	metrics   Metrics

	state    State
	session  *Session
	handle   timectrl.Handle
	onFinish []FinishFunc
}

// Option customises an Animator.
type Option func(*Animator)

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(a *Animator) { a.cfg = cfg }
}

// WithLogger attaches a logger.
func WithLogger(l logging.Logger) Option {
	return func(a *Animator) {
		if l != nil {
			a.log = l
		}
	}
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(a *Animator) { a.metrics = m }
}

// WithClock overrides the clock used for elapsed time; by default the
// scheduler is used when it is also a Clock, else the system clock.
func WithClock(c timectrl.Clock) Option {
	return func(a *Animator) { a.clock = c }
}

// NewAnimator creates an idle animator drawing on surface.
func NewAnimator(surface render.Surface, proj *core.Projection, colors *palette.Assigner, scheduler timectrl.Scheduler, opts ...Option) *Animator {
	a := &Animator{
		surface:   surface,
		proj:      proj,
		colors:    colors,
		scheduler: scheduler,
		cfg:       DefaultConfig(),
		log:       logging.Noop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.cfg = a.cfg.withDefaults()
	a.header = render.MustHex(a.cfg.HeaderColor)
	if a.colors == nil {
		a.colors = palette.NewAssigner()
	}
	if a.clock == nil {
		if c, ok := scheduler.(timectrl.Clock); ok {
			a.clock = c
		} else {
			a.clock = timectrl.SystemClock{}
		}
	}
	return a
}

// OnFinish registers fn to run whenever a session ends.
func (a *Animator) OnFinish(fn FinishFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onFinish = append(a.onFinish, fn)
}

// Validate checks that tracks can be animated together and returns their
// common length.
func Validate(tracks []model.SatelliteTrack) (int, error) {
	if len(tracks) == 0 {
		return 0, fmt.Errorf("%w: no tracks", ErrInvalidTrackData)
	}
	length := -1
	for _, t := range tracks {
		if len(t.Positions) == 0 {
			return 0, fmt.Errorf("%w: satellite %d (%s) has no position data", ErrInvalidTrackData, t.Info.ID, t.Info.Name)
		}
		if length >= 0 && len(t.Positions) != length {
			return 0, fmt.Errorf("%w: satellite %d (%s) has %d positions, want %d",
				ErrInvalidTrackData, t.Info.ID, t.Info.Name, len(t.Positions), length)
		}
		length = len(t.Positions)
	}
	return length, nil
}

// Start begins a session over tracks and returns a copy of it. The scheduler
// is not touched when Start fails.
func (a *Animator) Start(ctx context.Context, tracks []model.SatelliteTrack) (*Session, error) {
	log := logging.FromContext(ctx, a.log)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == Running {
		a.observeSession("rejected", 0)
		return nil, fmt.Errorf("%w: session %s", ErrAnimationRunning, a.session.ID)
	}
	length, err := Validate(tracks)
	if err != nil {
		a.observeSession("invalid", 0)
		log.Warn(ctx, "rejecting track data", logging.Err(err))
		return nil, err
	}

	s := &Session{
		ID:          uuid.New(),
		FrameStride: a.cfg.FrameStride,
		StartedAt:   a.clock.Now(),
		Tracks:      append([]model.SatelliteTrack(nil), tracks...),
		Length:      length,
	}
	a.session = s
	a.state = Running
	a.handle = a.scheduler.Every(a.cfg.TickInterval, func() { a.tick(s) })
	a.observeSession("started", len(tracks))

	log.Info(ctx, "animation started",
		logging.SessionID(s.ID.String()),
		logging.Int("tracks", len(tracks)),
		logging.Int("length", length),
		logging.Int("stride", s.FrameStride),
	)

	cp := *s
	return &cp, nil
}

// Cancel stops a running session before its next tick. Finish callbacks
// still run with Cancelled set. It reports whether a session was running.
func (a *Animator) Cancel() bool {
	a.mu.Lock()
	if a.state != Running {
		a.mu.Unlock()
		return false
	}
	a.handle.Stop()
	a.state = Finished
	a.session.Cancelled = true
	done := *a.session
	callbacks := append([]FinishFunc(nil), a.onFinish...)
	a.observeSession("cancelled", 0)
	a.mu.Unlock()

	a.log.Info(context.Background(), "animation cancelled",
		logging.SessionID(done.ID.String()),
		logging.Int("frame_index", done.FrameIndex),
	)
	for _, fn := range callbacks {
		fn(done)
	}
	return true
}

// Running reports whether a session is in progress.
func (a *Animator) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == Running
}

// Snapshot returns the current state and session progress.
func (a *Animator) Snapshot() Progress {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := Progress{State: a.state}
	if s := a.session; s != nil {
		p.SessionID = s.ID.String()
		p.FrameIndex = s.FrameIndex
		p.FrameStride = s.FrameStride
		p.Length = s.Length
		p.Tracks = len(s.Tracks)
		p.Ticks = s.Ticks
		p.StartedAt = s.StartedAt
		p.SimulatedTime = s.SimulatedTime
		p.Cancelled = s.Cancelled
	}
	return p
}

// tick processes one frame of s. Ticks from a stopped handle that were
// already waiting on the lock find a different or finished session and return.
func (a *Animator) tick(s *Session) {
	a.mu.Lock()
	if a.state != Running || a.session != s {
		a.mu.Unlock()
		return
	}

	var elapsed time.Duration
	if s.FrameIndex != 0 {
		elapsed = a.clock.Now().Sub(s.StartedAt)
	}
	s.SimulatedTime = s.StartedAt.Add(time.Duration(a.cfg.Speedup * float64(elapsed)))
	s.Ticks++
	if a.metrics != nil {
		a.metrics.ObserveTick()
	}

	exhausted := s.FrameIndex >= s.Length
	render.Atomically(a.surface, func() {
		a.surface.Clear()
		a.drawHeader(s.SimulatedTime)
		if !exhausted {
			for _, t := range s.Tracks {
				a.drawSatellite(t.Info, t.Positions[s.FrameIndex])
			}
		}
	})

	if !exhausted {
		s.FrameIndex += s.FrameStride
		a.mu.Unlock()
		return
	}

	a.handle.Stop()
	a.state = Finished
	s.Completed = true
	done := *s
	callbacks := append([]FinishFunc(nil), a.onFinish...)
	a.observeSession("finished", 0)
	a.mu.Unlock()

	a.log.Info(context.Background(), "animation finished",
		logging.SessionID(done.ID.String()),
		logging.Int("ticks", done.Ticks),
	)
	for _, fn := range callbacks {
		fn(done)
	}
}

func (a *Animator) drawHeader(t time.Time) {
	if a.cfg.Location != nil {
		t = t.In(a.cfg.Location)
	}
	a.surface.SetFont(render.Font{Size: a.cfg.HeaderFont, Bold: true})
	a.surface.SetFillColor(a.header)
	a.surface.FillText(t.Format(a.cfg.TimeLayout), a.cfg.HeaderX, a.cfg.HeaderY, render.AlignCenter)
}

// drawSatellite plots one sample. Missing coordinates and points the
// projection cannot map are skipped.
func (a *Animator) drawSatellite(info model.SatelliteInfo, sample model.PositionSample) {
	pt, ok := sample.Coordinates()
	if !ok {
		a.observeMarker(false)
		return
	}
	px, ok := a.proj.Project(pt)
	if !ok {
		a.observeMarker(false)
		return
	}

	key := palette.IdentityKey(info.Name)
	a.surface.SetFillColor(a.colors.ColorFor(key))
	a.surface.BeginPath()
	a.surface.Arc(px.X, px.Y, a.cfg.MarkerRadius, 0, 2*math.Pi)
	a.surface.Fill()

	a.surface.SetFont(render.Font{Size: a.cfg.LabelFont, Bold: true})
	a.surface.FillText(key, px.X, px.Y+a.cfg.LabelOffset, render.AlignCenter)
	a.observeMarker(true)
}

func (a *Animator) observeMarker(drawn bool) {
	if a.metrics != nil {
		a.metrics.ObserveMarker(drawn)
	}
}

func (a *Animator) observeSession(outcome string, tracks int) {
	if a.metrics != nil {
		a.metrics.ObserveSession(outcome, tracks)
	}
}
