package voice

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MockSynthesizer returns the text itself as audio. Used for local runs
// without cloud credentials and in tests.
type MockSynthesizer struct {
	Delay time.Duration
	Err   error

	mu    sync.Mutex
	texts []string
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, text string) (Audio, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return Audio{}, ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	if m.Err != nil {
		return Audio{}, m.Err
	}
	return Audio{Data: []byte(text), Format: "text"}, nil
}

func (m *MockSynthesizer) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.texts))
	copy(out, m.texts)
	return out
}

// MockPlayer hands out playbacks that the caller finishes explicitly,
// or after Duration when set.
type MockPlayer struct {
	// AutoStart signals playback start as soon as Play is called.
	AutoStart bool
	Duration  time.Duration
	Err       error

	mu        sync.Mutex
	playbacks []*MockPlayback
	notify    chan *MockPlayback
}

func NewMockPlayer() *MockPlayer {
	return &MockPlayer{AutoStart: true, notify: make(chan *MockPlayback, 32)}
}

func (p *MockPlayer) Play(_ context.Context, audio Audio) (Playback, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	pb := &MockPlayback{
		Audio:   audio,
		started: make(chan struct{}),
		done:    make(chan struct{}),
		level:   0.5,
	}
	p.mu.Lock()
	p.playbacks = append(p.playbacks, pb)
	p.mu.Unlock()

	if p.AutoStart {
		pb.Start()
	}
	if p.Duration > 0 {
		time.AfterFunc(p.Duration, pb.Finish)
	}
	if p.notify != nil {
		select {
		case p.notify <- pb:
		default:
		}
	}
	return pb, nil
}

// Next waits for the next Play call.
func (p *MockPlayer) Next(timeout time.Duration) (*MockPlayback, bool) {
	select {
	case pb := <-p.notify:
		return pb, true
	case <-time.After(timeout):
		return nil, false
	}
}

func (p *MockPlayer) Playbacks() []*MockPlayback {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*MockPlayback, len(p.playbacks))
	copy(out, p.playbacks)
	return out
}

type MockPlayback struct {
	Audio Audio

	mu        sync.Mutex
	started   chan struct{}
	done      chan struct{}
	isStarted bool
	isDone    bool
	paused    bool
	stopped   bool
	err       error
	level     float64
}

func (pb *MockPlayback) Started() <-chan struct{} { return pb.started }
func (pb *MockPlayback) Done() <-chan struct{}    { return pb.done }

func (pb *MockPlayback) Err() error {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.err
}

func (pb *MockPlayback) Start() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.isStarted || pb.isDone {
		return
	}
	pb.isStarted = true
	close(pb.started)
}

func (pb *MockPlayback) Finish() { pb.end(nil, false) }

func (pb *MockPlayback) Fail(err error) {
	if err == nil {
		err = errors.New("playback failed")
	}
	pb.end(err, false)
}

func (pb *MockPlayback) Stop() { pb.end(ErrSpeechStopped, true) }

func (pb *MockPlayback) end(err error, stopped bool) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.isDone {
		return
	}
	pb.isDone = true
	pb.err = err
	pb.stopped = stopped
	close(pb.done)
}

func (pb *MockPlayback) Pause() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.paused = true
}

func (pb *MockPlayback) Resume() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.paused = false
}

func (pb *MockPlayback) Paused() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.paused
}

func (pb *MockPlayback) Stopped() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.stopped
}

func (pb *MockPlayback) Level() float64 {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.level
}

func (pb *MockPlayback) SetLevel(v float64) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.level = v
}

// MockRecognizer opens streams whose events are injected by the caller.
type MockRecognizer struct {
	Err  error
	// Hold, when set, blocks Start until it is closed.
	Hold chan struct{}

	mu      sync.Mutex
	streams []*MockStream
	notify  chan *MockStream
}

func NewMockRecognizer() *MockRecognizer {
	return &MockRecognizer{notify: make(chan *MockStream, 32)}
}

func (r *MockRecognizer) Start(ctx context.Context) (RecognitionStream, error) {
	if r.Hold != nil {
		select {
		case <-r.Hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.Err != nil {
		return nil, r.Err
	}
	s := &MockStream{events: make(chan RecognitionEvent, 64)}
	r.mu.Lock()
	r.streams = append(r.streams, s)
	r.mu.Unlock()
	if r.notify != nil {
		select {
		case r.notify <- s:
		default:
		}
	}
	return s, nil
}

func (r *MockRecognizer) Next(timeout time.Duration) (*MockStream, bool) {
	select {
	case s := <-r.notify:
		return s, true
	case <-time.After(timeout):
		return nil, false
	}
}

func (r *MockRecognizer) Streams() []*MockStream {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*MockStream, len(r.streams))
	copy(out, r.streams)
	return out
}

type MockStream struct {
	mu     sync.Mutex
	events chan RecognitionEvent
	closed bool
	audio  int
}

func (s *MockStream) SendAudio(_ context.Context, chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("stream closed")
	}
	s.audio += len(chunk)
	return nil
}

func (s *MockStream) Events() <-chan RecognitionEvent { return s.events }

func (s *MockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.events)
	return nil
}

// Emit injects an event; it is dropped once the stream is closed.
func (s *MockStream) Emit(ev RecognitionEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.events <- ev
	return true
}

func (s *MockStream) Interim(text string) bool {
	return s.Emit(RecognitionEvent{Type: RecognitionInterim, Text: text})
}

func (s *MockStream) Recognized(text string) bool {
	return s.Emit(RecognitionEvent{Type: RecognitionRecognized, Text: text})
}

func (s *MockStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *MockStream) AudioBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audio
}
