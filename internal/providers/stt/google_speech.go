package stt

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/dmalikzadeh/ai-interview/internal/observability"
	"github.com/dmalikzadeh/ai-interview/internal/voice"
)

// GoogleSpeech opens one streaming recognition session per Listen.
// Requires GOOGLE_APPLICATION_CREDENTIALS.
type GoogleSpeech struct {
	c *speech.Client

	Encoding     speechpb.RecognitionConfig_AudioEncoding
	SampleRateHz int32
	Language     string

	metrics *observability.Metrics
}

func NewGoogleSpeech(ctx context.Context, language string, sampleRateHz int32) (*GoogleSpeech, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	if sampleRateHz <= 0 {
		sampleRateHz = DefaultSampleRateHz
	}
	return &GoogleSpeech{
		c:            c,
		Encoding:     speechpb.RecognitionConfig_LINEAR16,
		SampleRateHz: sampleRateHz,
		Language:     NormalizeLanguage(language),
		metrics:      observability.DefaultMetrics,
	}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

// ForLanguage returns a recognizer for another language sharing the client.
func (g *GoogleSpeech) ForLanguage(language string) *GoogleSpeech {
	cp := *g
	cp.Language = NormalizeLanguage(language)
	return &cp
}

func (g *GoogleSpeech) streamingConfig() *speechpb.StreamingRecognizeRequest {
	return &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:                   g.Encoding,
					SampleRateHertz:            g.SampleRateHz,
					LanguageCode:               g.Language,
					EnableAutomaticPunctuation: true,
				},
				InterimResults: true,
			},
		},
	}
}

// Start begins a streaming recognition session and sends the config first.
func (g *GoogleSpeech) Start(ctx context.Context) (voice.RecognitionStream, error) {
	sctx, cancel := context.WithCancel(ctx)
	stream, err := g.c.StreamingRecognize(sctx)
	if err != nil {
		cancel()
		g.metrics.RecordSTTError("google", "start")
		return nil, err
	}
	if err := stream.Send(g.streamingConfig()); err != nil {
		cancel()
		g.metrics.RecordSTTError("google", "config")
		return nil, err
	}

	s := &googleStream{
		stream:  stream,
		cancel:  cancel,
		events:  make(chan voice.RecognitionEvent, 32),
		metrics: g.metrics,
	}
	go s.receive()
	return s, nil
}

type googleStream struct {
	stream  speechpb.Speech_StreamingRecognizeClient
	cancel  context.CancelFunc
	events  chan voice.RecognitionEvent
	metrics *observability.Metrics

	sendMu sync.Mutex
	closed atomic.Bool
	once   sync.Once
}

func (s *googleStream) Events() <-chan voice.RecognitionEvent { return s.events }

// SendAudio sends raw audio bytes; audio after Close is dropped.
func (s *googleStream) SendAudio(_ context.Context, chunk []byte) error {
	if s.closed.Load() {
		return nil
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	s.metrics.RecordAudioReceived(len(chunk))
	return s.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: chunk,
		},
	})
}

// Close ends the session and releases the microphone stream.
func (s *googleStream) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		s.sendMu.Lock()
		err = s.stream.CloseSend()
		s.sendMu.Unlock()
		s.cancel()
	})
	return err
}

func (s *googleStream) receive() {
	defer close(s.events)
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			if !s.closed.Load() {
				s.metrics.RecordSTTError("google", "recv")
				s.events <- voice.RecognitionEvent{Type: voice.RecognitionFailed, Text: "stream error", Err: err}
			}
			return
		}
		if st := resp.GetError(); st != nil && st.GetCode() != 0 {
			s.metrics.RecordSTTError("google", "status")
			s.events <- voice.RecognitionEvent{Type: voice.RecognitionFailed, Text: st.GetMessage()}
			return
		}

		for _, r := range resp.Results {
			if len(r.Alternatives) == 0 {
				continue
			}
			alt := r.Alternatives[0]
			if r.IsFinal {
				s.metrics.RecordFinalTranscript()
				s.events <- voice.RecognitionEvent{Type: voice.RecognitionRecognized, Text: alt.Transcript}
			} else {
				s.metrics.RecordPartialTranscript()
				s.events <- voice.RecognitionEvent{Type: voice.RecognitionInterim, Text: alt.Transcript}
			}
		}
	}
}
