package services

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/dmalikzadeh/ai-interview/internal/interview"
	"github.com/dmalikzadeh/ai-interview/internal/models"
	"github.com/dmalikzadeh/ai-interview/internal/observability"
	"github.com/dmalikzadeh/ai-interview/internal/providers/llm"
	"github.com/dmalikzadeh/ai-interview/internal/utils"
	"github.com/sirupsen/logrus"
)

// Summary is the candidate-facing feedback produced once an interview ends.
type Summary struct {
	Intro        string   `json:"intro"`
	OverallScore float64  `json:"score"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	FinalNote    string   `json:"finalNote"`
}

type SummaryService interface {
	Summarize(ctx context.Context, sessionID string, cfg interview.SessionConfig, notes []interview.Note) (Summary, error)
}

type summaryService struct {
	llm     llm.Provider
	logs    TurnLogService
	metrics *observability.Metrics
	log     *logrus.Entry
}

func NewSummaryService(provider llm.Provider, logs TurnLogService, l *logrus.Logger) SummaryService {
	if l == nil {
		l = logrus.New()
	}
	return &summaryService{
		llm:     provider,
		logs:    logs,
		metrics: observability.DefaultMetrics,
		log:     l.WithField("component", "summary"),
	}
}

func (s *summaryService) Summarize(ctx context.Context, sessionID string, cfg interview.SessionConfig, notes []interview.Note) (Summary, error) {
	const op = "SummaryService.Summarize"

	entry := &models.AITurnLog{SessionID: sessionID, Kind: models.AIKindSummary, HistoryLen: len(notes)}
	if s.llm == nil {
		entry.Outcome = models.AIOutcomeFallback
		s.audit(ctx, entry, 0)
		return fallbackSummary(), nil
	}

	start := time.Now()
	raw, err := llm.Complete(ctx, s.llm, llm.CompletionRequest{
		System:      summaryPrompt(cfg, notes),
		Messages:    []llm.Message{{Role: llm.RoleUser, Text: "Write my interview feedback."}},
		Temperature: 0.6,
		MaxTokens:   350,
		JSON:        true,
	})
	elapsed := time.Since(start)
	if err != nil {
		entry.Outcome = models.AIOutcomeFailed
		entry.Error = err.Error()
		s.audit(ctx, entry, elapsed)
		return Summary{}, utils.E(utils.CodeUpstream, op, "summary generation failed", err)
	}

	entry.RawResponse = raw
	sum, err := parseSummary(raw)
	if err != nil {
		entry.Outcome = models.AIOutcomeMalformed
		entry.Error = err.Error()
		s.audit(ctx, entry, elapsed)
		return Summary{}, utils.E(utils.CodeUpstream, op, "summary response malformed", err)
	}

	entry.Outcome = models.AIOutcomeOK
	s.audit(ctx, entry, elapsed)
	return sum, nil
}

func (s *summaryService) audit(ctx context.Context, entry *models.AITurnLog, elapsed time.Duration) {
	entry.ProcessingTimeMS = elapsed.Milliseconds()
	s.metrics.RecordAIRequest(entry.Kind, entry.Outcome, elapsed.Seconds())
	if s.logs == nil {
		return
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.logs.Record(actx, entry); err != nil {
		s.log.WithError(err).WithField("session_id", entry.SessionID).Warn("summary log not recorded")
	}
}

func parseSummary(raw string) (Summary, error) {
	var sum Summary
	if err := json.Unmarshal([]byte(stripFence(raw)), &sum); err != nil {
		return Summary{}, err
	}
	sum.Intro = strings.TrimSpace(sum.Intro)
	sum.FinalNote = strings.TrimSpace(sum.FinalNote)
	sum.Strengths = compact(sum.Strengths)
	sum.Improvements = compact(sum.Improvements)
	sum.OverallScore = clampScore(sum.OverallScore)
	if sum.Intro == "" && sum.FinalNote == "" {
		return Summary{}, interview.ErrMalformedResponse
	}
	return sum, nil
}

// clampScore keeps the overall score in 0..10 with one decimal.
func clampScore(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return math.Round(v*10) / 10
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
