package postgres

import (
	"context"
	"errors"

	"github.com/dmalikzadeh/ai-interview/internal/models"
	"github.com/dmalikzadeh/ai-interview/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ResultRepository interface {
	Upsert(ctx context.Context, r *models.InterviewResult) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.InterviewResult, error)
}

type resultRepo struct {
	db *gorm.DB
}

func NewResultRepo(db *gorm.DB) ResultRepository {
	return &resultRepo{db: db}
}

func (r *resultRepo) Upsert(ctx context.Context, res *models.InterviewResult) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"intro", "overall_score", "strengths", "improvements", "final_note", "notes", "created_at"}),
		}).
		Create(res).Error
}

func (r *resultRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.InterviewResult, error) {
	var row models.InterviewResult
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}
