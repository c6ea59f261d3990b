package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dmalikzadeh/ai-interview/internal/cache"
	"github.com/dmalikzadeh/ai-interview/internal/events"
	"github.com/dmalikzadeh/ai-interview/internal/models"
	"github.com/dmalikzadeh/ai-interview/internal/notify"
	"github.com/dmalikzadeh/ai-interview/internal/observability"
	pgrepo "github.com/dmalikzadeh/ai-interview/internal/repositories/postgres"
	"github.com/dmalikzadeh/ai-interview/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// ResultView is the state of a session's summary. Result is set once
// Status is done.
type ResultView struct {
	Status string                  `json:"status"`
	Result *models.InterviewResult `json:"result,omitempty"`
}

type ResultService interface {
	Get(ctx context.Context, userID, sessionID string) (*ResultView, error)
	// Retry re-queues a failed summary.
	Retry(ctx context.Context, userID, sessionID string) error
	// Generate produces and stores the summary of an ended session. It is
	// a no-op unless the summary is pending.
	Generate(ctx context.Context, sessionID, userID string) error
}

type resultService struct {
	sessions SessionService
	convos   ConversationService
	results  pgrepo.ResultRepository
	summary  SummaryService
	cache    cache.Cache
	notifier notify.Notifier
	queue    SummaryQueue
	events   EventPublisher
	metrics  *observability.Metrics
	log      *logrus.Entry
}

type ResultDeps struct {
	Sessions SessionService
	Convos   ConversationService
	Results  pgrepo.ResultRepository
	Summary  SummaryService
	Cache    cache.Cache
	Notifier notify.Notifier
	Queue    SummaryQueue
	Events   EventPublisher
}

func NewResultService(d ResultDeps, l *logrus.Logger) ResultService {
	if l == nil {
		l = logrus.New()
	}
	return &resultService{
		sessions: d.Sessions,
		convos:   d.Convos,
		results:  d.Results,
		summary:  d.Summary,
		cache:    d.Cache,
		notifier: d.Notifier,
		queue:    d.Queue,
		events:   d.Events,
		metrics:  observability.DefaultMetrics,
		log:      l.WithField("component", "results"),
	}
}

func (s *resultService) Get(ctx context.Context, userID, sessionID string) (*ResultView, error) {
	const op = "ResultService.Get"

	sess, err := s.sessions.GetOwned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	switch sess.Status {
	case models.SessionEnded:
	case models.SessionDiscarded:
		return nil, utils.E(utils.CodeNotFound, op, "session was discarded", nil)
	default:
		return nil, utils.E(utils.CodeConflict, op, "interview has not ended", nil)
	}

	switch sess.SummaryStatus {
	case models.SummaryDone:
		res, err := s.load(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return &ResultView{Status: models.SummaryDone, Result: res}, nil
	case models.SummaryFailed:
		return nil, utils.E(utils.CodeUpstream, op, "something went wrong", nil)
	case models.SummaryProcessing:
		return &ResultView{Status: models.SummaryProcessing}, nil
	default:
		return &ResultView{Status: models.SummaryPending}, nil
	}
}

func (s *resultService) load(ctx context.Context, sessionID string) (*models.InterviewResult, error) {
	const op = "ResultService.load"

	key := cache.ResultKey(sessionID)
	if s.cache != nil {
		var res models.InterviewResult
		if hit, err := s.cache.GetJSON(ctx, key, &res); err == nil && hit {
			return &res, nil
		}
	}

	res, err := s.results.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "result not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get result", err)
	}
	s.cacheResult(ctx, res)
	return res, nil
}

func (s *resultService) cacheResult(ctx context.Context, res *models.InterviewResult) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, cache.ResultKey(res.SessionID), res, cache.ResultTTL); err != nil {
		s.log.WithError(err).WithField("session_id", res.SessionID).Warn("result cache write failed")
	}
}

func (s *resultService) Retry(ctx context.Context, userID, sessionID string) error {
	const op = "ResultService.Retry"

	sess, err := s.sessions.GetOwned(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if sess.Status != models.SessionEnded {
		return utils.E(utils.CodeConflict, op, "interview has not ended", nil)
	}

	ok, err := s.sessions.SwapSummaryStatus(ctx, sessionID, []string{models.SummaryFailed}, models.SummaryPending)
	if err != nil {
		return err
	}
	if !ok {
		return utils.E(utils.CodeConflict, op, "summary is not in a failed state", nil)
	}

	if err := s.queue.Enqueue(ctx, sessionID, userID); err != nil {
		if _, serr := s.sessions.SwapSummaryStatus(ctx, sessionID, []string{models.SummaryPending}, models.SummaryFailed); serr != nil {
			s.log.WithError(serr).WithField("session_id", sessionID).Error("failed to restore summary status")
		}
		return utils.E(utils.CodeUnavailable, op, "failed to queue summary", err)
	}
	s.metrics.RecordSummaryJob("retried")
	return nil
}

func (s *resultService) Generate(ctx context.Context, sessionID, userID string) error {
	const op = "ResultService.Generate"

	log := s.log.WithField("session_id", sessionID)

	ok, err := s.sessions.SwapSummaryStatus(ctx, sessionID, []string{models.SummaryPending}, models.SummaryProcessing)
	if err != nil {
		return err
	}
	if !ok {
		log.Info("summary not pending, skipping")
		return nil
	}

	res, err := s.produce(ctx, sessionID, userID)
	if err != nil {
		s.settle(ctx, sessionID, userID, models.SummaryFailed)
		return utils.E(utils.CodeUpstream, op, "summary failed", err)
	}

	s.cacheResult(ctx, res)
	s.settle(ctx, sessionID, userID, models.SummaryDone)
	log.WithField("score", res.OverallScore).Info("summary stored")
	return nil
}

func (s *resultService) produce(ctx context.Context, sessionID, userID string) (*models.InterviewResult, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	notes, err := s.convos.Notes(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	sum, err := s.summary.Summarize(ctx, sessionID, sess.Interview, notes)
	if err != nil {
		return nil, err
	}

	rawNotes, err := json.Marshal(notes)
	if err != nil {
		return nil, err
	}
	res := &models.InterviewResult{
		SessionID:    sessionID,
		UserID:       userID,
		Intro:        sum.Intro,
		OverallScore: sum.OverallScore,
		Strengths:    sum.Strengths,
		Improvements: sum.Improvements,
		FinalNote:    sum.FinalNote,
		Notes:        datatypes.JSON(rawNotes),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.results.Upsert(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// settle moves processing to the final status and tells whoever listens.
func (s *resultService) settle(ctx context.Context, sessionID, userID, status string) {
	log := s.log.WithFields(logrus.Fields{"session_id": sessionID, "status": status})

	if _, err := s.sessions.SwapSummaryStatus(ctx, sessionID, []string{models.SummaryProcessing}, status); err != nil {
		log.WithError(err).Error("failed to settle summary status")
	}
	s.metrics.RecordSummaryJob(status)

	if s.notifier != nil {
		msg := notify.Message{Type: notify.TypeResultsReady, Status: status}
		if status == models.SummaryFailed {
			msg = notify.Message{Type: notify.TypeResultsFailed, Status: status, Message: "something went wrong"}
		}
		if err := s.notifier.Publish(ctx, sessionID, msg); err != nil {
			log.WithError(err).Warn("status notification not published")
		}
	}
	if s.events != nil {
		_ = s.events.PublishSession(ctx, events.SessionEvent{
			Type:      events.TypeSummary,
			SessionID: sessionID,
			UserID:    userID,
			Status:    status,
			At:        time.Now().UTC(),
		})
	}
}
