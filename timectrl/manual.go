package timectrl

import (
	"sync"
	"time"
)

// ManualScheduler is a test-only Scheduler whose tasks run only when Fire is
// called. It lets tests step an animation tick by tick deterministically.
type ManualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	period time.Duration
	fn     func()

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

// NewManualScheduler creates an empty manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Every registers fn; it runs on each Fire until stopped.
func (s *ManualScheduler) Every(period time.Duration, fn func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &manualTask{period: period, fn: fn, done: make(chan struct{})}
	s.tasks = append(s.tasks, t)
	return t
}

// Fire runs every active task once, in registration order, and returns how
// many ran. Tasks run outside the scheduler lock so they may stop themselves.
func (s *ManualScheduler) Fire() int {
	s.mu.Lock()
	active := make([]*manualTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !t.isStopped() {
			active = append(active, t)
		}
	}
	s.mu.Unlock()

	ran := 0
	for _, t := range active {
		if t.isStopped() {
			continue
		}
		t.fn()
		ran++
	}
	return ran
}

// Active returns the number of registered tasks that have not been stopped.
func (s *ManualScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.tasks {
		if !t.isStopped() {
			n++
		}
	}
	return n
}

// Started returns the total number of tasks ever registered.
func (s *ManualScheduler) Started() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (t *manualTask) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	close(t.done)
}

func (t *manualTask) Done() <-chan struct{} { return t.done }

func (t *manualTask) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// ManualClock is a Clock that only moves when told to.
type ManualClock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewManualClock returns a clock fixed at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the clock's current time.
func (c *ManualClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}
