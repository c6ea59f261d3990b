package postgres

import (
	"context"

	"github.com/dmalikzadeh/ai-interview/internal/models"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationRepo interface {
	Insert(ctx context.Context, log *models.ConversationLog) error
	ListBySession(ctx context.Context, userID, sessionID string, limit int) ([]models.ConversationLog, error)
	SetEmbedding(ctx context.Context, id string, v pgvector.Vector) error
	// Similar returns the user's past candidate answers closest to v.
	Similar(ctx context.Context, userID string, v pgvector.Vector, limit int) ([]models.ConversationLog, error)
}

type conversationRepo struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepo{db: db}
}

func (r *conversationRepo) Insert(ctx context.Context, log *models.ConversationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *conversationRepo) ListBySession(ctx context.Context, userID, sessionID string, limit int) ([]models.ConversationLog, error) {
	if limit <= 0 {
		limit = 500
	}

	var rows []models.ConversationLog
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Order("seq ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *conversationRepo) SetEmbedding(ctx context.Context, id string, v pgvector.Vector) error {
	return r.db.WithContext(ctx).
		Model(&models.ConversationLog{}).
		Where("id = ?", id).
		Update("embedding", v).Error
}

func (r *conversationRepo) Similar(ctx context.Context, userID string, v pgvector.Vector, limit int) ([]models.ConversationLog, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []models.ConversationLog
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND role = ? AND embedding IS NOT NULL", userID, "candidate").
		Clauses(clause.OrderBy{
			Expression: clause.Expr{SQL: "embedding <=> ?", Vars: []interface{}{v}},
		}).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
