package pipeline

import (
	"sync"
	"sync/atomic"
	"time"
)

// Governor bounds a run with a single-shot deadline and guarantees that
// exactly one of the competing completion paths delivers a result.
type Governor struct {
	done atomic.Bool

	mu    sync.Mutex
	timer *time.Timer
}

// Arm starts the deadline timer. onTimeout runs on its own goroutine when
// d elapses; it should go through Complete like every other path. A
// non-positive d leaves the run unbounded.
func (g *Governor) Arm(d time.Duration, onTimeout func()) {
	if d <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		g.timer.Stop()
	}
	g.timer = time.AfterFunc(d, onTimeout)
}

// Disarm stops the timer. It reports whether the timer was stopped before
// firing.
func (g *Governor) Disarm() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer == nil {
		return false
	}
	return g.timer.Stop()
}

// Complete runs fn if no other caller has completed the run yet and
// reports whether it did.
func (g *Governor) Complete(fn func()) bool {
	if !g.done.CompareAndSwap(false, true) {
		return false
	}
	fn()
	return true
}
