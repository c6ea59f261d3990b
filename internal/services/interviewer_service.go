package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
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

// InterviewerService produces interviewer turns. With no LLM configured it
// answers with canned text.
type InterviewerService interface {
	interview.Interviewer
	FirstMessage(ctx context.Context, sessionID string, cfg interview.SessionConfig) (string, error)
}

type interviewerService struct {
	llm     llm.Provider
	logs    TurnLogService
	metrics *observability.Metrics
	log     *logrus.Entry
}

func NewInterviewerService(provider llm.Provider, logs TurnLogService, l *logrus.Logger) InterviewerService {
	if l == nil {
		l = logrus.New()
	}
	return &interviewerService{
		llm:     provider,
		logs:    logs,
		metrics: observability.DefaultMetrics,
		log:     l.WithField("component", "interviewer"),
	}
}

func (s *interviewerService) NextTurn(ctx context.Context, req interview.TurnRequest) (interview.TurnResponse, error) {
	const op = "InterviewerService.NextTurn"

	entry := &models.AITurnLog{
		SessionID:        req.SessionID,
		Kind:             models.AIKindTurn,
		HistoryLen:       len(req.History),
		RemainingSeconds: req.RemainingSeconds,
		NearEnd:          req.NearEnd,
	}

	if req.ForcedEnd() {
		entry.Outcome = models.AIOutcomeForced
		s.audit(ctx, entry, 0)
		return interview.ForcedEndResponse(), nil
	}

	if s.llm == nil {
		entry.Outcome = models.AIOutcomeFallback
		s.audit(ctx, entry, 0)
		return interview.TurnResponse{Message: fallbackFollowUp(req.Config), Note: interview.NeutralNote()}, nil
	}

	start := time.Now()
	raw, err := llm.Complete(ctx, s.llm, llm.CompletionRequest{
		System:      interviewerPrompt(req),
		Messages:    historyMessages(req.History),
		Temperature: 0.7,
		JSON:        true,
	})
	elapsed := time.Since(start)
	if err != nil {
		entry.Outcome = models.AIOutcomeFailed
		entry.Error = err.Error()
		s.audit(ctx, entry, elapsed)
		return interview.TurnResponse{}, utils.E(utils.CodeUnavailable, op, "ai request failed", err)
	}

	entry.RawResponse = raw
	resp, perr := parseTurnResponse(raw)
	if perr != nil {
		s.log.WithError(perr).WithField("session_id", req.SessionID).Warn("ai response degraded to raw text")
		entry.Outcome = models.AIOutcomeMalformed
		entry.Error = perr.Error()
	} else {
		entry.Outcome = models.AIOutcomeOK
	}
	s.audit(ctx, entry, elapsed)
	return resp, nil
}

func (s *interviewerService) FirstMessage(ctx context.Context, sessionID string, cfg interview.SessionConfig) (string, error) {
	entry := &models.AITurnLog{SessionID: sessionID, Kind: models.AIKindFirstMessage}

	if s.llm == nil {
		entry.Outcome = models.AIOutcomeFallback
		s.audit(ctx, entry, 0)
		return fallbackFirstMessage(cfg), nil
	}

	start := time.Now()
	msg, err := llm.Complete(ctx, s.llm, llm.CompletionRequest{
		System:      firstMessagePrompt(cfg),
		Messages:    []llm.Message{{Role: llm.RoleUser, Text: "Begin the interview."}},
		Temperature: 0.7,
		MaxTokens:   150,
	})
	elapsed := time.Since(start)
	if err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Warn("first message generation failed, using greeting")
		entry.Outcome = models.AIOutcomeFailed
		entry.Error = err.Error()
		s.audit(ctx, entry, elapsed)
		return fallbackFirstMessage(cfg), nil
	}

	entry.Outcome = models.AIOutcomeOK
	entry.RawResponse = msg
	s.audit(ctx, entry, elapsed)
	return msg, nil
}

func (s *interviewerService) audit(ctx context.Context, entry *models.AITurnLog, elapsed time.Duration) {
	entry.ProcessingTimeMS = elapsed.Milliseconds()
	s.metrics.RecordAIRequest(entry.Kind, entry.Outcome, elapsed.Seconds())
	if s.logs == nil {
		return
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.logs.Record(actx, entry); err != nil {
		s.log.WithError(err).WithField("session_id", entry.SessionID).Warn("ai turn log not recorded")
	}
}

func historyMessages(turns []interview.Turn) []llm.Message {
	if len(turns) > interview.HistoryLimit {
		turns = turns[len(turns)-interview.HistoryLimit:]
	}
	out := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		role := llm.RoleUser
		if t.Role == interview.RoleInterviewer {
			role = llm.RoleModel
		}
		out = append(out, llm.Message{Role: role, Text: text})
	}
	return out
}

type turnPayload struct {
	Message string       `json:"message"`
	Note    *notePayload `json:"note"`
	Ended   bool         `json:"ended"`
}

// notePayload accepts fractional scores, which models emit now and then.
type notePayload struct {
	Strength  string  `json:"strength"`
	Criticism string  `json:"criticism"`
	Score     float64 `json:"score"`
}

// parseTurnResponse decodes the model's JSON. Output that is not a JSON
// object becomes the message itself with a neutral note.
func parseTurnResponse(raw string) (interview.TurnResponse, error) {
	var p turnPayload
	if err := json.Unmarshal([]byte(stripFence(raw)), &p); err != nil {
		return interview.TurnResponse{
			Message: strings.TrimSpace(raw),
			Note:    interview.NeutralNote(),
		}, fmt.Errorf("%w: %v", interview.ErrMalformedResponse, err)
	}

	note := interview.NeutralNote()
	if p.Note != nil {
		note = interview.Note{
			Strength:  p.Note.Strength,
			Criticism: p.Note.Criticism,
			Score:     int(math.Round(p.Note.Score)),
		}.Normalize()
	}
	resp := interview.TurnResponse{Message: strings.TrimSpace(p.Message), Note: note, Ended: p.Ended}
	if resp.Message == "" {
		return resp, errors.Join(interview.ErrMalformedResponse, errors.New("message is empty"))
	}
	return resp, nil
}
