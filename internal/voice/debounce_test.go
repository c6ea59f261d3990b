package voice

import (
	"testing"
	"time"
)

func TestDebouncerJoinsSegments(t *testing.T) {
	out := make(chan string, 4)
	d := newFinalDebouncer(40*time.Millisecond, func(s string) { out <- s })

	d.Add("  hello ")
	d.Add("")
	d.Add("world")
	if got := d.Pending(); got != "hello world" {
		t.Fatalf("Pending() = %q, want %q", got, "hello world")
	}

	select {
	case got := <-out:
		if got != "hello world" {
			t.Fatalf("emit(%q), want %q", got, "hello world")
		}
	case <-time.After(time.Second):
		t.Fatalf("no emit")
	}
	if got := d.Pending(); got != "" {
		t.Fatalf("Pending() after flush = %q, want empty", got)
	}
}

func TestDebouncerRearmsOnEachSegment(t *testing.T) {
	out := make(chan string, 4)
	d := newFinalDebouncer(60*time.Millisecond, func(s string) { out <- s })

	d.Add("one")
	time.Sleep(30 * time.Millisecond)
	d.Add("two")
	time.Sleep(30 * time.Millisecond)
	d.Add("three")

	select {
	case got := <-out:
		if got != "one two three" {
			t.Fatalf("emit(%q), want %q", got, "one two three")
		}
	case <-time.After(time.Second):
		t.Fatalf("no emit")
	}
	select {
	case got := <-out:
		t.Fatalf("unexpected second emit %q", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncerStopDropsPending(t *testing.T) {
	out := make(chan string, 4)
	d := newFinalDebouncer(20*time.Millisecond, func(s string) { out <- s })

	d.Add("unfinished")
	d.Stop()
	d.Add("ignored")

	select {
	case got := <-out:
		t.Fatalf("emit(%q) after Stop", got)
	case <-time.After(80 * time.Millisecond):
	}
	if got := d.Pending(); got != "" {
		t.Fatalf("Pending() = %q, want empty", got)
	}
}

func TestDebouncerDefaultGap(t *testing.T) {
	d := newFinalDebouncer(0, func(string) {})
	if d.gap != DefaultFinalSilence {
		t.Fatalf("gap = %v, want %v", d.gap, DefaultFinalSilence)
	}
}
