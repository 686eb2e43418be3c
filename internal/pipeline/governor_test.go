package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tubesb/internal/diag"
)

func TestGovernorCompleteOnce(t *testing.T) {
	var g Governor
	var runs atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Complete(func() { runs.Add(1) })
		}()
	}
	wg.Wait()

	if runs.Load() != 1 {
		t.Errorf("completion ran %d times, want 1", runs.Load())
	}
	if g.Complete(func() { runs.Add(1) }) {
		t.Error("Complete ran again after completion")
	}
}

func TestGovernorTimerRace(t *testing.T) {
	for i := 0; i < 200; i++ {
		var g Governor
		var runs atomic.Int32
		fired := make(chan struct{})

		g.Arm(time.Microsecond, func() {
			g.Complete(func() { runs.Add(1) })
			close(fired)
		})
		g.Complete(func() { runs.Add(1) })
		if g.Disarm() {
			close(fired)
		}
		<-fired

		if runs.Load() != 1 {
			t.Fatalf("iteration %d: %d deliveries", i, runs.Load())
		}
	}
}

func TestGovernorDisarm(t *testing.T) {
	var g Governor
	if g.Disarm() {
		t.Error("Disarm() on unarmed governor = true")
	}

	var fired atomic.Bool
	g.Arm(50*time.Millisecond, func() { fired.Store(true) })
	if !g.Disarm() {
		t.Error("Disarm() before deadline = false")
	}
	time.Sleep(100 * time.Millisecond)
	if fired.Load() {
		t.Error("timer fired after Disarm")
	}
}

func TestGovernorUnbounded(t *testing.T) {
	var g Governor
	g.Arm(0, func() { t.Error("timer fired for zero duration") })
	if g.Disarm() {
		t.Error("Disarm() = true with no timer armed")
	}
}

func TestProbeResolutions(t *testing.T) {
	tests := []struct {
		name   string
		fake   *fakeSession
		cancel bool
		want   int
	}{
		{name: "labels", fake: &fakeSession{labels: []string{"720p", "480p"}}, want: 2},
		{name: "evaluate error", fake: &fakeSession{probeErr: errors.New("no menu")}, want: 0},
		{name: "empty menu", fake: &fakeSession{}, want: 0},
		{name: "cancelled", fake: &fakeSession{labels: []string{"720p"}}, cancel: true, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancel {
				cancel()
			}
			got := probeResolutions(ctx, tt.fake, 5*time.Millisecond, "probe()", diag.New(nil))
			if len(got) != tt.want {
				t.Errorf("got %v, want %d labels", got, tt.want)
			}
		})
	}
}

func TestStateTerminal(t *testing.T) {
	for _, s := range []State{Starting, PageLoading, ManifestWait, ResolutionProbing, Extracting} {
		if s.Terminal() {
			t.Errorf("%s.Terminal() = true", s)
		}
	}
	for _, s := range []State{Completed, TimedOut, Failed} {
		if !s.Terminal() {
			t.Errorf("%s.Terminal() = false", s)
		}
	}

	r := newRun("test")
	r.setState(Extracting)
	r.setState(Completed)
	if r.setState(Failed) {
		t.Error("transition out of a terminal state")
	}
	if r.State() != Completed {
		t.Errorf("state = %s, want Completed", r.State())
	}
}
