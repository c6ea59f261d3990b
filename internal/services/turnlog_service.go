package services

import (
	"context"
	"time"

	"github.com/dmalikzadeh/ai-interview/internal/models"
	mongorepo "github.com/dmalikzadeh/ai-interview/internal/repositories/mongo"
	"github.com/dmalikzadeh/ai-interview/internal/utils"
)

// TurnLogService keeps a short-lived audit trail of AI calls per session.
type TurnLogService interface {
	Record(ctx context.Context, l *models.AITurnLog) error
	ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.AITurnLog, error)
}

type turnLogService struct {
	logs mongorepo.TurnLogRepository
	ttl  time.Duration
}

func NewTurnLogService(logs mongorepo.TurnLogRepository, ttl time.Duration) TurnLogService {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &turnLogService{logs: logs, ttl: ttl}
}

func (s *turnLogService) Record(ctx context.Context, l *models.AITurnLog) error {
	const op = "TurnLogService.Record"

	if l == nil || l.Kind == "" || l.Outcome == "" {
		return utils.E(utils.CodeInvalidArgument, op, "kind and outcome are required", nil)
	}

	now := time.Now().UTC()
	if l.Timestamp.IsZero() {
		l.Timestamp = now
	}
	l.ExpiresAt = l.Timestamp.Add(s.ttl)

	if err := s.logs.Insert(ctx, l); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to insert ai turn log", err)
	}
	return nil
}

func (s *turnLogService) ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.AITurnLog, error) {
	const op = "TurnLogService.ListBySession"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	out, err := s.logs.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list ai turn logs", err)
	}
	return out, nil
}
