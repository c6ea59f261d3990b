package voice

import (
	"errors"
	"fmt"
)

var (
	ErrSpeechStopped  = errors.New("speech stopped")
	ErrListenCanceled = errors.New("listen canceled")
	ErrEmptyText      = errors.New("text is empty")
)

// SynthesisError means speech could not start or failed mid-stream.
type SynthesisError struct {
	Op  string
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis %s: %v", e.Op, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// RecognitionError means the microphone or the recognition stream failed.
type RecognitionError struct {
	Reason string
	Err    error
}

func (e *RecognitionError) Error() string {
	if e.Err == nil {
		return "recognition: " + e.Reason
	}
	return fmt.Sprintf("recognition: %s: %v", e.Reason, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }
