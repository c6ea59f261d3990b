package interview

import (
	"sync"
	"time"
)

// Ticker is the time source driving the countdown.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

func NewRealTicker(d time.Duration) Ticker { return realTicker{t: time.NewTicker(d)} }

// Clock counts down in whole seconds. Remaining time may go negative to
// express overrun. At most one ticker goroutine runs at a time and it is
// only alive while the clock is counting and not paused.
type Clock struct {
	newTicker func(time.Duration) Ticker

	mu        sync.Mutex
	total     int
	remaining int
	paused    bool
	running   bool
	stop      chan struct{}
	onTick    func(ClockState)
}

// NewClock returns a stopped clock. A nil newTicker uses time.Ticker.
func NewClock(newTicker func(time.Duration) Ticker) *Clock {
	if newTicker == nil {
		newTicker = NewRealTicker
	}
	return &Clock{newTicker: newTicker}
}

// OnTick registers an observer called after every decrement, outside the
// clock lock.
func (c *Clock) OnTick(fn func(ClockState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTick = fn
}

// Start begins a fresh countdown, cancelling any previous one.
func (c *Clock) Start(totalSeconds int) error {
	if totalSeconds <= 0 {
		return ErrInvalidDuration
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTickerLocked()
	c.total = totalSeconds
	c.remaining = totalSeconds
	c.paused = false
	c.running = true
	c.startTickerLocked()
	return nil
}

// Pause freezes the remaining time. The ticker is released so no partial
// second is carried across the pause.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || c.paused {
		return
	}
	c.paused = true
	c.stopTickerLocked()
}

func (c *Clock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || !c.paused {
		return
	}
	c.paused = false
	c.startTickerLocked()
}

// Stop halts counting and keeps the last state readable.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	c.stopTickerLocked()
}

// Reset stops counting and zeroes the state.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTickerLocked()
	c.running = false
	c.paused = false
	c.total = 0
	c.remaining = 0
}

func (c *Clock) State() ClockState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// tick decrements the remaining time by one second, with no floor.
func (c *Clock) tick() { c.advance(nil) }

// advance ticks unless owner is set and no longer the live ticker.
func (c *Clock) advance(owner chan struct{}) {
	c.mu.Lock()
	if !c.running || c.paused || (owner != nil && c.stop != owner) {
		c.mu.Unlock()
		return
	}
	c.remaining--
	st := c.stateLocked()
	fn := c.onTick
	c.mu.Unlock()

	if fn != nil {
		fn(st)
	}
}

func (c *Clock) stateLocked() ClockState {
	return ClockState{TotalSeconds: c.total, RemainingSeconds: c.remaining, Paused: c.paused}
}

func (c *Clock) startTickerLocked() {
	stop := make(chan struct{})
	c.stop = stop
	t := c.newTicker(time.Second)
	go c.run(t, stop)
}

func (c *Clock) stopTickerLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

func (c *Clock) run(t Ticker, stop chan struct{}) {
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C():
			// a superseded goroutine may still win this select once
			c.advance(stop)
		}
	}
}
