package interview

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// chanTicker is a ticker the test fires by hand.
type chanTicker struct {
	c       chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (t *chanTicker) C() <-chan time.Time { return t.c }

func (t *chanTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *chanTicker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type tickerFactory struct {
	mu      sync.Mutex
	tickers []*chanTicker
}

func (f *tickerFactory) New(time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &chanTicker{c: make(chan time.Time)}
	f.tickers = append(f.tickers, t)
	return t
}

func (f *tickerFactory) Last() *chanTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickers[len(f.tickers)-1]
}

func (f *tickerFactory) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickers)
}

func TestClockStartRejectsNonPositive(t *testing.T) {
	c := NewClock(nil)
	for _, total := range []int{0, -5} {
		if err := c.Start(total); !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("Start(%d) error = %v, want ErrInvalidDuration", total, err)
		}
	}
}

func TestClockTickHasNoFloor(t *testing.T) {
	c := newManualClock()
	if err := c.Start(3); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop()

	for i := 0; i < 5; i++ {
		c.tick()
	}
	got := c.State()
	want := ClockState{TotalSeconds: 3, RemainingSeconds: -2}
	if got != want {
		t.Fatalf("State() = %+v, want %+v", got, want)
	}
}

func TestClockScenarioAOverrun(t *testing.T) {
	c := newManualClock()
	_ = c.Start(300)
	defer c.Stop()

	for i := 0; i < 330; i++ {
		c.tick()
	}
	st := c.State()
	if st.RemainingSeconds != -30 {
		t.Fatalf("remaining = %d, want -30", st.RemainingSeconds)
	}
	if st.Overrun() {
		t.Fatalf("Overrun() = true at -30")
	}
}

func TestClockPauseHasNoDrift(t *testing.T) {
	c := newManualClock()
	_ = c.Start(120)
	defer c.Stop()

	c.tick()
	c.Pause()
	if !c.State().Paused {
		t.Fatalf("Paused = false after Pause")
	}
	for i := 0; i < 10; i++ {
		c.tick()
	}
	if got := c.State().RemainingSeconds; got != 119 {
		t.Fatalf("remaining while paused = %d, want 119", got)
	}
	c.Resume()
	c.tick()
	if got := c.State().RemainingSeconds; got != 118 {
		t.Fatalf("remaining after resume = %d, want 118", got)
	}
}

func TestClockTickerDrivesCountdown(t *testing.T) {
	f := &tickerFactory{}
	c := NewClock(f.New)
	ticks := make(chan ClockState, 4)
	c.OnTick(func(s ClockState) { ticks <- s })

	_ = c.Start(10)
	defer c.Stop()
	f.Last().c <- time.Now()

	select {
	case s := <-ticks:
		if s.RemainingSeconds != 9 {
			t.Fatalf("tick remaining = %d, want 9", s.RemainingSeconds)
		}
	case <-time.After(time.Second):
		t.Fatalf("no tick observed")
	}
}

func TestClockRestartCancelsPreviousTicker(t *testing.T) {
	f := &tickerFactory{}
	c := NewClock(f.New)
	_ = c.Start(10)
	first := f.Last()

	_ = c.Start(20)
	defer c.Stop()
	if f.Len() != 2 {
		t.Fatalf("tickers = %d, want 2", f.Len())
	}
	waitUntil(t, "first ticker stopped", first.Stopped)

	// the old goroutine is gone; nobody receives on its channel
	select {
	case first.c <- time.Now():
		t.Fatalf("superseded ticker still consumed a tick")
	case <-time.After(20 * time.Millisecond):
	}
	if got := c.State().RemainingSeconds; got != 20 {
		t.Fatalf("remaining = %d, want 20", got)
	}
}

func TestClockPauseReleasesTicker(t *testing.T) {
	f := &tickerFactory{}
	c := NewClock(f.New)
	_ = c.Start(10)
	first := f.Last()

	c.Pause()
	waitUntil(t, "ticker released on pause", first.Stopped)
	c.Resume()
	if f.Len() != 2 {
		t.Fatalf("tickers = %d, want 2 after resume", f.Len())
	}
	c.Reset()
	if got := c.State(); got != (ClockState{}) {
		t.Fatalf("State() after Reset = %+v, want zero", got)
	}
	if c.Running() {
		t.Fatalf("Running() = true after Reset")
	}
	c.tick()
	if got := c.State().RemainingSeconds; got != 0 {
		t.Fatalf("tick after Reset changed remaining to %d", got)
	}
}

func TestClockNearEnd(t *testing.T) {
	tests := []struct {
		total, remaining int
		want             bool
	}{
		{600, 61, false},
		{600, 60, true},
		{600, 0, true},
		{600, -30, true},
		{0, 0, false},
	}
	for _, tt := range tests {
		s := ClockState{TotalSeconds: tt.total, RemainingSeconds: tt.remaining}
		if got := s.NearEnd(); got != tt.want {
			t.Fatalf("NearEnd(%d/%d) = %v, want %v", tt.remaining, tt.total, got, tt.want)
		}
	}
}
