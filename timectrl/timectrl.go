package timectrl

import (
	"sync"
	"time"
)

// Clock reports the current time. Animation code depends on this rather than
// on time.Now so tests and accelerated runs can control elapsed time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Handle controls a repeating task started by a Scheduler.
type Handle interface {
	// Stop cancels the task. No further runs start after Stop returns. It is
	// safe to call from inside the task itself and more than once.
	Stop()
	// Done is closed once the task will never run again.
	Done() <-chan struct{}
}

// Scheduler starts cancellable repeating tasks.
type Scheduler interface {
	// Every runs fn once per period until the returned handle is stopped.
	// The first run happens one period after the call.
	Every(period time.Duration, fn func()) Handle
}

// Mode describes how the TimeController advances time.
type Mode int

const (
	// RealTime runs tasks on a wall-clock ticker.
	RealTime Mode = iota
	// Accelerated runs tasks back to back and advances Now by one period per
	// run, so a long animation completes as fast as it can be drawn.
	Accelerated
)

func (m Mode) String() string {
	if m == Accelerated {
		return "accelerated"
	}
	return "realtime"
}

// TimeController is the production Scheduler and Clock. In RealTime mode Now
// is the wall clock; in Accelerated mode Now starts at the configured start
// time and only moves when a task runs.
type TimeController struct {
	mu   sync.RWMutex
	Mode Mode

	// currentTime is only used in Accelerated mode.
	currentTime time.Time
}

// NewTimeController constructs a controller.
func NewTimeController(start time.Time, mode Mode) *TimeController {
	return &TimeController{
		Mode:        mode,
		currentTime: start,
	}
}

// Now returns the time as observed by scheduled tasks.
func (tc *TimeController) Now() time.Time {
	if tc.Mode == RealTime {
		return time.Now()
	}
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// Every starts fn on its own goroutine. See Scheduler.
func (tc *TimeController) Every(period time.Duration, fn func()) Handle {
	t := newTask()
	go func() {
		defer close(t.done)

		if tc.Mode == Accelerated {
			for {
				if t.stopped() {
					return
				}
				tc.mu.Lock()
				tc.currentTime = tc.currentTime.Add(period)
				tc.mu.Unlock()
				fn()
			}
		}

		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				// A stop may race with a pending tick; honour the stop.
				if t.stopped() {
					return
				}
				fn()
			}
		}
	}()
	return t
}

type task struct {
	once sync.Once
	stop chan struct{}
	done chan struct{}
}

func newTask() *task {
	return &task{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (t *task) Stop() {
	t.once.Do(func() { close(t.stop) })
}

func (t *task) Done() <-chan struct{} { return t.done }

func (t *task) stopped() bool {
	select {
	case <-t.stop:
		return true
	default:
		return false
	}
}
