// Package session turns satellite selections into animations: it fetches
// every selected satellite's positions, then hands the joined result to the
// track animator, tracking the loading state and hint shown to the user.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/groundtrack/internal/logging"
	"github.com/signalsfoundry/groundtrack/internal/positions"
	"github.com/signalsfoundry/groundtrack/internal/track"
	"github.com/signalsfoundry/groundtrack/model"
)

// BusyHint is shown when a selection arrives while an animation is running.
const BusyHint = "Please wait for the current satellite animation to finish before selecting new ones!"

var (
	// ErrEmptySelection is returned for a selection with no satellites.
	ErrEmptySelection = errors.New("empty selection")
	// ErrInvalidSelection is returned when the observer settings are unusable.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrConcurrentSession is returned when positions arrived while another
	// animation was still running. The new satellites are dropped.
	ErrConcurrentSession = errors.New("animation in progress")
	// ErrClosed is returned by Select after Close.
	ErrClosed = errors.New("controller closed")
)

// Selection is what the user picked: satellites and where they watch from.
type Selection struct {
	Satellites []model.SatelliteInfo `json:"satellites"`
	Observer   model.Observer        `json:"observer"`
}

// UIState is everything the host UI renders besides the two surfaces.
type UIState struct {
	State     model.LoadingState `json:"state"`
	Loading   bool               `json:"loading"`
	Hint      string             `json:"hint"`
	Animation track.Progress     `json:"animation"`
}

// StateObserver mirrors the loading state, e.g. into a gauge.
type StateObserver interface {
	SetLoadingState(model.LoadingState)
}

// Controller coordinates fetches and the animator.
type Controller struct {
	source      positions.Source
	anim        *track.Animator
	apiKey      string
	maxDuration int
	log         logging.Logger
	gauge       StateObserver

	mu      sync.Mutex
	loading int
	hint    string
	closed  bool
	nextSub int
	subs    map[int]func(UIState)
}

// Option customises a Controller.
type Option func(*Controller)

// WithAPIKey sets the key sent with every position query.
func WithAPIKey(key string) Option {
	return func(c *Controller) { c.apiKey = key }
}

// WithMaxDuration caps the observer window, in minutes, a selection may ask
// for. Non-positive values keep model.DefaultMaxDurationMinutes.
func WithMaxDuration(minutes int) Option {
	return func(c *Controller) {
		if minutes > 0 {
			c.maxDuration = minutes
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithStateObserver reports every loading state change to o.
func WithStateObserver(o StateObserver) Option {
	return func(c *Controller) { c.gauge = o }
}

// NewController wires source and anim together. The controller owns anim's
// lifecycle from here on; Close cancels it.
func NewController(source positions.Source, anim *track.Animator, opts ...Option) *Controller {
	c := &Controller{
		source:      source,
		anim:        anim,
		maxDuration: model.DefaultMaxDurationMinutes,
		log:         logging.Noop(),
		subs:        make(map[int]func(UIState)),
	}
	for _, opt := range opts {
		opt(c)
	}
	anim.OnFinish(c.animationFinished)
	return c
}

// Select fetches positions for every satellite in sel and starts an
// animation over them. The fetch is all-or-nothing. Errors wrap
// ErrEmptySelection, ErrInvalidSelection, model.ErrDataFetch,
// track.ErrInvalidTrackData or ErrConcurrentSession.
func (c *Controller) Select(ctx context.Context, sel Selection) (*track.Session, error) {
	if len(sel.Satellites) == 0 {
		return nil, ErrEmptySelection
	}
	if err := sel.Observer.ValidateWithin(c.maxDuration); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
	}

	ids := make([]int, len(sel.Satellites))
	for i, s := range sel.Satellites {
		ids[i] = s.ID
	}
	ctx, span := otel.Tracer("groundtrack/session").Start(ctx, "session.Select")
	defer span.End()
	span.SetAttributes(
		attribute.IntSlice("satellite.ids", ids),
		attribute.Int("observer.duration_minutes", sel.Observer.DurationMinutes),
	)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.loading++
	c.mu.Unlock()
	c.publish()

	sess, err := c.startAfterFetch(ctx, sel, ids)
	if err != nil {
		span.RecordError(err)
		if !errors.Is(err, ErrConcurrentSession) {
			span.SetStatus(codes.Error, err.Error())
		}
	} else {
		span.SetAttributes(attribute.String("session.id", sess.ID.String()))
	}
	c.publish()
	return sess, err
}

func (c *Controller) startAfterFetch(ctx context.Context, sel Selection, ids []int) (*track.Session, error) {
	log := logging.FromContext(ctx, c.log)
	tracks, err := c.fetchAll(ctx, sel)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading--

	if err != nil {
		log.Error(ctx, "fetch satellite positions failed", logging.Err(err))
		return nil, err
	}
	if c.closed {
		return nil, ErrClosed
	}

	sess, err := c.anim.Start(ctx, tracks)
	switch {
	case errors.Is(err, track.ErrAnimationRunning):
		c.hint = BusyHint
		log.Info(ctx, "selection dropped while an animation is running", logging.Satellites(ids))
		return nil, fmt.Errorf("%w: %w", ErrConcurrentSession, err)
	case err != nil:
		log.Error(ctx, "cannot animate satellite positions", logging.Err(err))
		return nil, err
	}
	return sess, nil
}

// fetchAll runs one query per satellite concurrently; the first failure
// cancels the rest.
func (c *Controller) fetchAll(ctx context.Context, sel Selection) ([]model.SatelliteTrack, error) {
	tracks := make([]model.SatelliteTrack, len(sel.Satellites))
	g, gctx := errgroup.WithContext(ctx)
	for i, sat := range sel.Satellites {
		q := positions.QueryFor(sat.ID, sel.Observer, c.apiKey)
		g.Go(func() error {
			t, err := c.source.Positions(gctx, q)
			if err != nil {
				return err
			}
			tracks[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if !errors.Is(err, model.ErrDataFetch) {
			err = fmt.Errorf("%w: %v", model.ErrDataFetch, err)
		}
		return nil, err
	}
	return tracks, nil
}

// State returns the current UI state.
func (c *Controller) State() UIState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Subscribe registers fn to receive every state change. Callbacks run
// synchronously on the goroutine that caused the change.
func (c *Controller) Subscribe(fn func(UIState)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Close cancels a running animation and rejects further selections.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.anim.Cancel()
}

func (c *Controller) animationFinished(s track.Session) {
	c.mu.Lock()
	c.hint = ""
	c.mu.Unlock()

	c.log.Info(context.Background(), "tracking session ended",
		logging.SessionID(s.ID.String()),
		logging.Bool("cancelled", s.Cancelled),
	)
	c.publish()
}

func (c *Controller) stateLocked() UIState {
	progress := c.anim.Snapshot()
	st := model.Idle
	switch {
	case c.loading > 0:
		st = model.Loading
	case progress.State == track.Running:
		st = model.Drawing
	}
	return UIState{
		State:     st,
		Loading:   st == model.Loading,
		Hint:      c.hint,
		Animation: progress,
	}
}

// publish sends the current state to the gauge and subscribers outside the
// lock.
func (c *Controller) publish() {
	c.mu.Lock()
	st := c.stateLocked()
	subs := make([]func(UIState), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	if c.gauge != nil {
		c.gauge.SetLoadingState(st.State)
	}
	for _, fn := range subs {
		fn(st)
	}
}
