// Package scheduler runs the controller's periodic drivers.
//
// Ticker is the production implementation. Manual lets tests fire
// registrations by hand.
package scheduler

import (
	"context"
	"slices"
	"sync"
	"time"
)

// CancelFunc stops a registration. It is safe to call more than once.
type CancelFunc func()

// Scheduler registers functions to run periodically.
type Scheduler interface {
	// Every runs fn every interval until the returned CancelFunc is called.
	// The first run happens one interval after registration.
	Every(interval time.Duration, fn func(ctx context.Context)) CancelFunc
}

// Ticker runs each registration on its own goroutine driven by a
// time.Ticker. All registrations stop when the parent context is done.
type Ticker struct {
	ctx context.Context
	wg  sync.WaitGroup
}

// NewTicker creates a Ticker whose registrations end with ctx.
func NewTicker(ctx context.Context) *Ticker {
	return &Ticker{ctx: ctx}
}

// Every implements Scheduler. A callback still running when the
// registration is cancelled sees its context cancelled.
func (t *Ticker) Every(interval time.Duration, fn func(ctx context.Context)) CancelFunc {
	ctx, cancel := context.WithCancel(t.ctx)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()

	return CancelFunc(cancel)
}

// Wait blocks until every registration goroutine has returned.
func (t *Ticker) Wait() {
	t.wg.Wait()
}

// Manual is a Scheduler driven by explicit Tick calls.
type Manual struct {
	mu     sync.Mutex
	nextID int
	regs   map[int]manualRegistration
}

type manualRegistration struct {
	interval time.Duration
	fn       func(ctx context.Context)
}

// NewManual creates an empty Manual scheduler.
func NewManual() *Manual {
	return &Manual{regs: make(map[int]manualRegistration)}
}

// Every implements Scheduler.
func (m *Manual) Every(interval time.Duration, fn func(ctx context.Context)) CancelFunc {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.regs[id] = manualRegistration{interval: interval, fn: fn}
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.regs, id)
		m.mu.Unlock()
	}
}

// Tick runs every live registration with the given interval once, in
// registration order. It returns the number of callbacks run.
func (m *Manual) Tick(ctx context.Context, interval time.Duration) int {
	m.mu.Lock()
	ids := make([]int, 0, len(m.regs))
	for id, r := range m.regs {
		if r.interval == interval {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()

	slices.Sort(ids)

	n := 0
	for _, id := range ids {
		m.mu.Lock()
		r, ok := m.regs[id]
		m.mu.Unlock()
		if !ok {
			continue
		}
		r.fn(ctx)
		n++
	}
	return n
}

// Registered returns the number of live registrations for interval.
func (m *Manual) Registered(interval time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.regs {
		if r.interval == interval {
			n++
		}
	}
	return n
}
