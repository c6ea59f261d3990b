package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmalikzadeh/ai-interview/internal/models"
	mongorepo "github.com/dmalikzadeh/ai-interview/internal/repositories/mongo"
	"github.com/dmalikzadeh/ai-interview/internal/utils"
)

type SessionService interface {
	Create(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, sessionID string) (*models.Session, error)
	// GetOwned is Get plus an ownership check against userID.
	GetOwned(ctx context.Context, userID, sessionID string) (*models.Session, error)
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.Session, error)
	MarkLive(ctx context.Context, sessionID string) error
	End(ctx context.Context, sessionID, reason string, turns int) (*models.Session, error)
	SetStatus(ctx context.Context, sessionID, status string) error
	SwapSummaryStatus(ctx context.Context, sessionID string, from []string, to string) (bool, error)
}

type sessionService struct {
	sessions mongorepo.SessionRepository
	now      func() time.Time
}

func NewSessionService(sessions mongorepo.SessionRepository) SessionService {
	return &sessionService{sessions: sessions, now: func() time.Time { return time.Now().UTC() }}
}

func (s *sessionService) Create(ctx context.Context, ss *models.Session) error {
	const op = "SessionService.Create"

	if ss == nil || ss.SessionID == "" || ss.UserID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session_id and user_id are required", nil)
	}
	if ss.Status == "" {
		ss.Status = models.SessionPrepared
	}
	if ss.CreatedAt.IsZero() {
		ss.CreatedAt = s.now()
	}
	if err := s.sessions.Create(ctx, ss); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to create session", err)
	}
	return nil
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	const op = "SessionService.Get"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	out, err := s.sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get session", err)
	}
	return out, nil
}

func (s *sessionService) GetOwned(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	const op = "SessionService.GetOwned"

	ss, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if ss.UserID != userID {
		return nil, utils.E(utils.CodeForbidden, op, "session belongs to another user", nil)
	}
	return ss, nil
}

func (s *sessionService) ListByUser(ctx context.Context, userID string, limit int64) ([]models.Session, error) {
	const op = "SessionService.ListByUser"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	out, err := s.sessions.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list sessions", err)
	}
	return out, nil
}

func (s *sessionService) MarkLive(ctx context.Context, sessionID string) error {
	const op = "SessionService.MarkLive"

	if err := s.sessions.MarkLive(ctx, sessionID, s.now()); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeConflict, op, "session is not ready to go live", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to mark session live", err)
	}
	return nil
}

// End records the end of a live session and queues its summary.
func (s *sessionService) End(ctx context.Context, sessionID, reason string, turns int) (*models.Session, error) {
	const op = "SessionService.End"

	ss, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	from := ss.CreatedAt
	if ss.StartedAt != nil {
		from = *ss.StartedAt
	}
	dur := int64(now.Sub(from).Seconds())
	if dur < 0 {
		dur = 0
	}

	end := mongorepo.SessionEnd{
		EndedAt:         now,
		DurationSeconds: dur,
		Reason:          reason,
		TurnCount:       turns,
		SummaryStatus:   models.SummaryPending,
	}
	if err := s.sessions.End(ctx, sessionID, end); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to end session", err)
	}

	ss.Status = models.SessionEnded
	ss.EndedAt = &now
	ss.DurationSeconds = dur
	ss.EndReason = reason
	ss.TurnCount = turns
	ss.SummaryStatus = models.SummaryPending
	return ss, nil
}

func (s *sessionService) SetStatus(ctx context.Context, sessionID, status string) error {
	const op = "SessionService.SetStatus"

	if sessionID == "" || status == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session_id and status are required", nil)
	}
	if err := s.sessions.SetStatus(ctx, sessionID, status); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to set status", err)
	}
	return nil
}

func (s *sessionService) SwapSummaryStatus(ctx context.Context, sessionID string, from []string, to string) (bool, error) {
	const op = "SessionService.SwapSummaryStatus"

	ok, err := s.sessions.SwapSummaryStatus(ctx, sessionID, from, to)
	if err != nil {
		return false, utils.E(utils.CodeInternal, op, "failed to update summary status", err)
	}
	return ok, nil
}
