package services

import (
	"context"
	"strings"
	"time"

	"github.com/dmalikzadeh/ai-interview/internal/cache"
	"github.com/dmalikzadeh/ai-interview/internal/models"
	"github.com/dmalikzadeh/ai-interview/internal/observability"
	"github.com/dmalikzadeh/ai-interview/internal/providers/llm"
	"github.com/dmalikzadeh/ai-interview/internal/utils"
	"github.com/sirupsen/logrus"
)

const (
	mimePDF  = "application/pdf"
	mimeText = "text/plain"

	// descriptionSummaryThreshold is the length above which a job
	// description is condensed before it reaches the interviewer prompt.
	descriptionSummaryThreshold = 200
)

// DocumentSummarizer condenses the intake documents. Results are cached by
// content fingerprint.
type DocumentSummarizer interface {
	SummarizeCV(ctx context.Context, data []byte, mimeType string) (string, error)
	SummarizeDescription(ctx context.Context, description string) string
}

type documentSummarizer struct {
	llm     llm.Provider
	cache   cache.Cache
	metrics *observability.Metrics
	log     *logrus.Entry
}

func NewDocumentSummarizer(provider llm.Provider, c cache.Cache, l *logrus.Logger) DocumentSummarizer {
	if l == nil {
		l = logrus.New()
	}
	return &documentSummarizer{
		llm:     provider,
		cache:   c,
		metrics: observability.DefaultMetrics,
		log:     l.WithField("component", "summarizer"),
	}
}

func (s *documentSummarizer) SummarizeCV(ctx context.Context, data []byte, mimeType string) (string, error) {
	const op = "DocumentSummarizer.SummarizeCV"

	if len(data) == 0 {
		return "", utils.E(utils.CodeInvalidArgument, op, "cv file is empty", nil)
	}
	if s.llm == nil {
		s.metrics.RecordAIRequest(models.AIKindCVSummary, models.AIOutcomeFallback, 0)
		return fallbackCVSummary, nil
	}

	key := cache.CVSummaryKey(cache.Fingerprint(data))
	if out, ok := s.cached(ctx, key); ok {
		return out, nil
	}

	req := llm.CompletionRequest{System: cvSummaryPrompt, Temperature: 0.3, MaxTokens: 220}
	switch mimeType {
	case mimePDF:
		req.Attachments = []llm.Attachment{{MIMEType: mimePDF, Data: data}}
		req.Messages = []llm.Message{{Role: llm.RoleUser, Text: "Summarize this CV."}}
	default:
		req.Messages = []llm.Message{{Role: llm.RoleUser, Text: "Summarize this CV:\n\n" + string(data)}}
	}

	start := time.Now()
	out, err := llm.Complete(ctx, s.llm, req)
	if err != nil {
		s.metrics.RecordAIRequest(models.AIKindCVSummary, models.AIOutcomeFailed, time.Since(start).Seconds())
		return "", utils.E(utils.CodeUpstream, op, "cv summarization failed", err)
	}
	s.metrics.RecordAIRequest(models.AIKindCVSummary, models.AIOutcomeOK, time.Since(start).Seconds())

	s.store(ctx, key, out)
	return out, nil
}

// SummarizeDescription returns descriptions that are short or already
// condensed unchanged. On failure the original text is kept.
func (s *documentSummarizer) SummarizeDescription(ctx context.Context, description string) string {
	description = strings.TrimSpace(description)
	if len(description) <= descriptionSummaryThreshold || strings.Contains(description, summaryMarker) {
		return description
	}
	if s.llm == nil {
		return description
	}

	key := cache.DescriptionKey(description)
	if out, ok := s.cached(ctx, key); ok {
		return out
	}

	start := time.Now()
	out, err := llm.Complete(ctx, s.llm, llm.CompletionRequest{
		System:      descriptionSummaryPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Text: description}},
		Temperature: 0.2,
		MaxTokens:   200,
	})
	if err != nil {
		s.metrics.RecordAIRequest(models.AIKindDescriptionSummary, models.AIOutcomeFailed, time.Since(start).Seconds())
		s.log.WithError(err).Warn("description summarization failed, keeping original")
		return description
	}
	s.metrics.RecordAIRequest(models.AIKindDescriptionSummary, models.AIOutcomeOK, time.Since(start).Seconds())

	out = summaryMarker + " " + out
	s.store(ctx, key, out)
	return out
}

func (s *documentSummarizer) cached(ctx context.Context, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	var out string
	hit, err := s.cache.GetJSON(ctx, key, &out)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("summary cache read failed")
		return "", false
	}
	return out, hit && out != ""
}

func (s *documentSummarizer) store(ctx context.Context, key, val string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, key, val, cache.SummaryTTL); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("summary cache write failed")
	}
}
