package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/dmalikzadeh/ai-interview/internal/interview"
	"github.com/dmalikzadeh/ai-interview/internal/models"
	"github.com/dmalikzadeh/ai-interview/internal/providers/embedding"
	pgrepo "github.com/dmalikzadeh/ai-interview/internal/repositories/postgres"
	"github.com/dmalikzadeh/ai-interview/internal/utils"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// ConversationService persists interview turns. Candidate answers are
// embedded when an embedder is configured so they can be searched later.
type ConversationService interface {
	Append(ctx context.Context, userID, sessionID string, seq int, t interview.Turn) (*models.ConversationLog, error)
	ListBySession(ctx context.Context, userID, sessionID string, limit int) ([]models.ConversationLog, error)
	Notes(ctx context.Context, userID, sessionID string) ([]interview.Note, error)
	SearchSimilar(ctx context.Context, userID, query string, limit int) ([]models.ConversationLog, error)
}

type conversationService struct {
	convos   pgrepo.ConversationRepo
	embedder embedding.Embedder
	log      *logrus.Entry
}

func NewConversationService(convos pgrepo.ConversationRepo, embedder embedding.Embedder, l *logrus.Logger) ConversationService {
	if l == nil {
		l = logrus.New()
	}
	return &conversationService{convos: convos, embedder: embedder, log: l.WithField("component", "conversation")}
}

func (s *conversationService) Append(ctx context.Context, userID, sessionID string, seq int, t interview.Turn) (*models.ConversationLog, error) {
	const op = "ConversationService.Append"

	if userID == "" || sessionID == "" || strings.TrimSpace(t.Text) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id, session_id, and text are required", nil)
	}

	at := t.At
	if at.IsZero() {
		at = time.Now()
	}
	row := &models.ConversationLog{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		Seq:       seq,
		Role:      string(t.Role),
		Content:   t.Text,
		Closing:   t.Closing,
		Timestamp: at.UTC(),
	}
	if t.Note != nil {
		b, err := json.Marshal(t.Note)
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to encode note", err)
		}
		row.Note = datatypes.JSON(b)
	}

	if err := s.convos.Insert(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to insert conversation log", err)
	}

	if t.Role == interview.RoleCandidate && s.embedder != nil {
		s.embed(ctx, row)
	}
	return row, nil
}

// embed is best effort; a failure leaves the row without a vector.
func (s *conversationService) embed(ctx context.Context, row *models.ConversationLog) {
	vec, err := s.embedder.Embed(ctx, row.Content)
	if err == nil {
		err = s.convos.SetEmbedding(ctx, row.ID, pgvector.NewVector(vec))
	}
	if err != nil {
		s.log.WithError(err).WithField("session_id", row.SessionID).Warn("turn embedding skipped")
		return
	}
	v := pgvector.NewVector(vec)
	row.Embedding = &v
}

func (s *conversationService) ListBySession(ctx context.Context, userID, sessionID string, limit int) ([]models.ConversationLog, error) {
	const op = "ConversationService.ListBySession"

	if userID == "" || sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and session_id are required", nil)
	}

	rows, err := s.convos.ListBySession(ctx, userID, sessionID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list conversations", err)
	}
	return rows, nil
}

// Notes returns the interviewer notes of a session in turn order.
func (s *conversationService) Notes(ctx context.Context, userID, sessionID string) ([]interview.Note, error) {
	const op = "ConversationService.Notes"

	rows, err := s.ListBySession(ctx, userID, sessionID, 0)
	if err != nil {
		return nil, err
	}

	var notes []interview.Note
	for _, r := range rows {
		if r.Role != string(interview.RoleInterviewer) || len(r.Note) == 0 {
			continue
		}
		var n interview.Note
		if err := json.Unmarshal(r.Note, &n); err != nil {
			return nil, utils.E(utils.CodeInternal, op, "stored note is unreadable", err)
		}
		notes = append(notes, n.Normalize())
	}
	return notes, nil
}

func (s *conversationService) SearchSimilar(ctx context.Context, userID, query string, limit int) ([]models.ConversationLog, error) {
	const op = "ConversationService.SearchSimilar"

	query = strings.TrimSpace(query)
	if userID == "" || query == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and query are required", nil)
	}
	if s.embedder == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "semantic search is disabled", nil)
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, utils.E(utils.CodeUpstream, op, "failed to embed query", err)
	}
	rows, err := s.convos.Similar(ctx, userID, pgvector.NewVector(vec), limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to search conversations", err)
	}
	return rows, nil
}
