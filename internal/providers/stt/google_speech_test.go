package stt

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/dmalikzadeh/ai-interview/internal/observability"
	"github.com/dmalikzadeh/ai-interview/internal/voice"
)

// fakeRecognizeClient scripts Recv responses; unimplemented grpc methods
// fall through to the nil embedded interface.
type fakeRecognizeClient struct {
	speechpb.Speech_StreamingRecognizeClient

	recv chan *speechpb.StreamingRecognizeResponse
	errs chan error

	mu         sync.Mutex
	sent       []*speechpb.StreamingRecognizeRequest
	closedSend bool
}

func newFakeRecognizeClient() *fakeRecognizeClient {
	return &fakeRecognizeClient{
		recv: make(chan *speechpb.StreamingRecognizeResponse, 8),
		errs: make(chan error, 1),
	}
}

func (f *fakeRecognizeClient) Send(req *speechpb.StreamingRecognizeRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	return nil
}

func (f *fakeRecognizeClient) Recv() (*speechpb.StreamingRecognizeResponse, error) {
	select {
	case r := <-f.recv:
		return r, nil
	case err := <-f.errs:
		return nil, err
	}
}

func (f *fakeRecognizeClient) CloseSend() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closedSend = true
	return nil
}

func result(text string, final bool) *speechpb.StreamingRecognizeResponse {
	return &speechpb.StreamingRecognizeResponse{
		Results: []*speechpb.StreamingRecognitionResult{{
			IsFinal:      final,
			Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: text}},
		}},
	}
}

func startFake(f *fakeRecognizeClient) *googleStream {
	s := &googleStream{
		stream:  f,
		cancel:  func() {},
		events:  make(chan voice.RecognitionEvent, 32),
		metrics: observability.DefaultMetrics,
	}
	go s.receive()
	return s
}

func nextEvent(t *testing.T, s *googleStream) (voice.RecognitionEvent, bool) {
	t.Helper()
	select {
	case ev, ok := <-s.Events():
		return ev, ok
	case <-time.After(time.Second):
		t.Fatalf("no recognition event")
		return voice.RecognitionEvent{}, false
	}
}

func TestGoogleStreamMapsResults(t *testing.T) {
	f := newFakeRecognizeClient()
	s := startFake(f)

	f.recv <- result("I have", false)
	f.recv <- result("I have five years of Go.", true)
	f.recv <- &speechpb.StreamingRecognizeResponse{Results: []*speechpb.StreamingRecognitionResult{{IsFinal: true}}}
	f.errs <- io.EOF

	ev, _ := nextEvent(t, s)
	if ev.Type != voice.RecognitionInterim || ev.Text != "I have" {
		t.Fatalf("first event = %+v, want interim", ev)
	}
	ev, _ = nextEvent(t, s)
	if ev.Type != voice.RecognitionRecognized || ev.Text != "I have five years of Go." {
		t.Fatalf("second event = %+v, want recognized", ev)
	}
	if _, ok := nextEvent(t, s); ok {
		t.Fatalf("events channel still open after EOF")
	}
}

func TestGoogleStreamRecvErrorFails(t *testing.T) {
	f := newFakeRecognizeClient()
	s := startFake(f)

	boom := errors.New("deadline exceeded")
	f.errs <- boom

	ev, _ := nextEvent(t, s)
	if ev.Type != voice.RecognitionFailed || !errors.Is(ev.Err, boom) {
		t.Fatalf("event = %+v, want failure wrapping %v", ev, boom)
	}
}

func TestGoogleStreamCloseSuppressesError(t *testing.T) {
	f := newFakeRecognizeClient()
	s := startFake(f)

	if err := s.SendAudio(context.Background(), []byte{1, 2}); err != nil {
		t.Fatalf("SendAudio() error = %v", err)
	}
	_ = s.Close()
	_ = s.Close()
	f.errs <- context.Canceled

	if ev, ok := nextEvent(t, s); ok {
		t.Fatalf("event after Close = %+v, want channel closed", ev)
	}
	if err := s.SendAudio(context.Background(), []byte{3}); err != nil {
		t.Fatalf("SendAudio() after Close error = %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closedSend {
		t.Fatalf("CloseSend not called")
	}
	if len(f.sent) != 1 {
		t.Fatalf("sent = %d requests, want 1", len(f.sent))
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := map[string]string{
		"":      "en-US",
		"en":    "en-US",
		" id ":  "id-ID",
		"uk":    "en-GB",
		"fr-FR": "fr-FR",
	}
	for in, want := range tests {
		if got := NormalizeLanguage(in); got != want {
			t.Fatalf("NormalizeLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestForLanguageKeepsOriginal(t *testing.T) {
	g := &GoogleSpeech{Language: "en-US", SampleRateHz: 16000}
	id := g.ForLanguage("id")
	if id.Language != "id-ID" || id.SampleRateHz != 16000 {
		t.Fatalf("ForLanguage = %+v", id)
	}
	if g.Language != "en-US" {
		t.Fatalf("original language changed to %q", g.Language)
	}
}
