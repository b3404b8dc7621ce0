// Package clock abstracts time so the business-hours gate and the
// engine's pacing pauses can be tested deterministically. Production
// code takes a Clock and defaults to the system clock when given nil;
// tests inject a Mock and move it with Set or Advance.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock is the time surface the engine consumes.
type Clock interface {
	// Now returns the current local time.
	Now() time.Time
	// NowUTC returns the current time in UTC.
	NowUTC() time.Time
	// Since returns the elapsed time since t.
	Since(t time.Time) time.Duration
	// Until returns the duration until t.
	Until(t time.Time) time.Duration
	// After returns a channel that delivers the time once d has elapsed.
	After(d time.Duration) <-chan time.Time
	// NewTicker returns a ticker firing every d.
	NewTicker(d time.Duration) Ticker
	// NewTimer returns a timer firing once after d.
	NewTimer(d time.Duration) Timer
}

// Ticker mirrors time.Ticker behind an interface.
type Ticker interface {
	C() <-chan time.Time
	Stop()
	Reset(d time.Duration)
}

// Timer mirrors time.Timer behind an interface.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
	Reset(d time.Duration) bool
}

// New returns the system clock.
func New() Clock {
	return sysClock{}
}

type sysClock struct{}

func (sysClock) Now() time.Time { return time.Now() }
func (sysClock) NowUTC() time.Time { return time.Now().UTC() }
func (sysClock) Since(t time.Time) time.Duration { return time.Since(t) }
func (sysClock) Until(t time.Time) time.Duration { return time.Until(t) }
func (sysClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (sysClock) NewTicker(d time.Duration) Ticker {
	return sysTicker{time.NewTicker(d)}
}

func (sysClock) NewTimer(d time.Duration) Timer {
	return sysTimer{time.NewTimer(d)}
}

type sysTicker struct{ t *time.Ticker }

func (t sysTicker) C() <-chan time.Time { return t.t.C }
func (t sysTicker) Stop() { t.t.Stop() }
func (t sysTicker) Reset(d time.Duration) { t.t.Reset(d) }

type sysTimer struct{ t *time.Timer }

func (t sysTimer) C() <-chan time.Time { return t.t.C }
func (t sysTimer) Stop() bool { return t.t.Stop() }
func (t sysTimer) Reset(d time.Duration) bool { return t.t.Reset(d) }

// Mock is a manually driven Clock. Timers and After channels fire when
// Set or Advance moves the clock past their deadline; nothing fires on
// its own.
type Mock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*waiter
}

type waiter struct {
	deadline time.Time
	period   time.Duration // zero for one-shot
	ch       chan time.Time
	stopped  bool
}

// NewMock creates a Mock frozen at t.
func NewMock(t time.Time) *Mock {
	return &Mock{now: t}
}

func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Mock) NowUTC() time.Time { return m.Now().UTC() }

func (m *Mock) Since(t time.Time) time.Duration { return m.Now().Sub(t) }

func (m *Mock) Until(t time.Time) time.Duration { return t.Sub(m.Now()) }

// After registers a one-shot channel firing once the clock reaches
// now+d. A non-positive d fires immediately.
func (m *Mock) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.addWaiter(d, 0)
	return w.ch
}

func (m *Mock) NewTicker(d time.Duration) Ticker {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &mockTicker{m: m, w: m.addWaiter(d, d)}
}

func (m *Mock) NewTimer(d time.Duration) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &mockTimer{m: m, w: m.addWaiter(d, 0)}
}

// Set jumps the clock to t and fires everything due on the way.
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
	m.fire()
}

// Advance moves the clock forward by d and fires everything due.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	m.fire()
}

// addWaiter registers a waiter due at now+d, firing it at once when d
// is non-positive. Callers hold m.mu.
func (m *Mock) addWaiter(d, period time.Duration) *waiter {
	w := &waiter{deadline: m.now.Add(d), period: period, ch: make(chan time.Time, 1)}
	m.waiters = append(m.waiters, w)
	m.fire()
	return w
}

// fire delivers to every waiter whose deadline has passed. One-shot
// waiters are marked stopped but stay registered so Reset can re-arm
// them. Callers hold m.mu.
func (m *Mock) fire() {
	sort.SliceStable(m.waiters, func(i, j int) bool {
		return m.waiters[i].deadline.Before(m.waiters[j].deadline)
	})
	for _, w := range m.waiters {
		if w.stopped {
			continue
		}
		for !w.deadline.After(m.now) {
			select {
			case w.ch <- w.deadline:
			default:
			}
			if w.period <= 0 {
				w.stopped = true
				break
			}
			w.deadline = w.deadline.Add(w.period)
		}
	}
}

// rearm re-activates a waiter with a fresh deadline, reporting whether
// it was still pending.
func (m *Mock) rearm(w *waiter, d time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := !w.stopped
	w.stopped = false
	w.deadline = m.now.Add(d)
	m.fire()
	return active
}

// halt deactivates a waiter, reporting whether it was still pending.
func (m *Mock) halt(w *waiter) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := !w.stopped
	w.stopped = true
	return active
}

type mockTimer struct {
	m *Mock
	w *waiter
}

func (t *mockTimer) C() <-chan time.Time { return t.w.ch }
func (t *mockTimer) Stop() bool { return t.m.halt(t.w) }
func (t *mockTimer) Reset(d time.Duration) bool { return t.m.rearm(t.w, d) }

type mockTicker struct {
	m *Mock
	w *waiter
}

func (t *mockTicker) C() <-chan time.Time { return t.w.ch }
func (t *mockTicker) Stop() { t.m.halt(t.w) }
func (t *mockTicker) Reset(d time.Duration) { t.m.rearm(t.w, d) }
