package tts

import (
	"context"
	"errors"
	"testing"

	"github.com/dmalikzadeh/ai-interview/internal/voice"
)

func TestSynthesizeRejectsBlankText(t *testing.T) {
	g := &GoogleTTS{}
	for _, text := range []string{"", "  \t"} {
		if _, err := g.Synthesize(context.Background(), text); !errors.Is(err, voice.ErrEmptyText) {
			t.Fatalf("Synthesize(%q) error = %v, want ErrEmptyText", text, err)
		}
	}
}
