package tts

import (
	"context"
	"strings"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/dmalikzadeh/ai-interview/internal/observability"
	"github.com/dmalikzadeh/ai-interview/internal/voice"
)

const (
	DefaultLanguage = "en-US"
	DefaultVoice    = "en-US-Neural2-F"
)

// GoogleTTS synthesizes MP3 speech. Requires GOOGLE_APPLICATION_CREDENTIALS.
type GoogleTTS struct {
	c *texttospeech.Client

	Language     string
	Voice        string
	SpeakingRate float64

	metrics *observability.Metrics
}

func NewGoogleTTS(ctx context.Context, language, voiceName string) (*GoogleTTS, error) {
	c, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	if language == "" {
		language = DefaultLanguage
	}
	if voiceName == "" {
		voiceName = DefaultVoice
	}
	return &GoogleTTS{
		c:            c,
		Language:     language,
		Voice:        voiceName,
		SpeakingRate: 1.0,
		metrics:      observability.DefaultMetrics,
	}, nil
}

func (g *GoogleTTS) Close() error { return g.c.Close() }

func (g *GoogleTTS) Synthesize(ctx context.Context, text string) (voice.Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return voice.Audio{}, voice.ErrEmptyText
	}

	start := time.Now()
	resp, err := g.c.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: g.Language,
			Name:         g.Voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  g.SpeakingRate,
		},
	})
	g.metrics.RecordSynthesis(err, time.Since(start).Seconds())
	if err != nil {
		return voice.Audio{}, err
	}
	return voice.Audio{Data: resp.GetAudioContent(), Format: "mp3"}, nil
}
