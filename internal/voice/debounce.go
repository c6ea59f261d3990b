package voice

import (
	"strings"
	"sync"
	"time"
)

// finalDebouncer joins recognized segments into one final once no new
// segment arrived for the configured silence gap.
type finalDebouncer struct {
	gap  time.Duration
	emit func(string)

	mu      sync.Mutex
	parts   []string
	timer   *time.Timer
	gen     uint64
	stopped bool
}

func newFinalDebouncer(gap time.Duration, emit func(string)) *finalDebouncer {
	if gap <= 0 {
		gap = DefaultFinalSilence
	}
	return &finalDebouncer{gap: gap, emit: emit}
}

func (d *finalDebouncer) Add(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.parts = append(d.parts, text)
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.gap, func() { d.flush(gen) })
}

func (d *finalDebouncer) flush(gen uint64) {
	d.mu.Lock()
	// a newer segment re-armed the timer; that timer owns the flush
	if d.stopped || gen != d.gen || len(d.parts) == 0 {
		d.mu.Unlock()
		return
	}
	text := strings.Join(d.parts, " ")
	d.parts = nil
	d.timer = nil
	d.mu.Unlock()

	d.emit(text)
}

// Stop drops buffered speech; nothing is emitted afterwards.
func (d *finalDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.parts = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *finalDebouncer) Pending() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return strings.Join(d.parts, " ")
}
