// Package voice owns the audio I/O of a live interview: one outbound speech
// playback and one inbound recognition stream, never both at once.
package voice

import "context"

// Audio is synthesized speech ready for playback.
type Audio struct {
	Data   []byte
	Format string // mp3|linear16|text
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Audio, error)
}

// Playback is one utterance on the output device.
// Started is closed when audio actually begins; Done is closed on natural end,
// failure or Stop.
type Playback interface {
	Started() <-chan struct{}
	Done() <-chan struct{}
	Err() error
	Pause()
	Resume()
	Stop()
	Level() float64
}

type Player interface {
	Play(ctx context.Context, audio Audio) (Playback, error)
}

type RecognitionEventType string

const (
	RecognitionInterim    RecognitionEventType = "interim"
	RecognitionRecognized RecognitionEventType = "recognized"
	RecognitionFailed     RecognitionEventType = "error"
)

// RecognitionEvent: interim text replaces the previous interim, recognized
// text is appended to the utterance being built.
type RecognitionEvent struct {
	Type RecognitionEventType
	Text string
	Err  error
}

type RecognitionStream interface {
	SendAudio(ctx context.Context, chunk []byte) error
	Events() <-chan RecognitionEvent
	Close() error
}

type Recognizer interface {
	Start(ctx context.Context) (RecognitionStream, error)
}
