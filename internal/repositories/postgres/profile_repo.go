package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/dmalikzadeh/ai-interview/internal/models"
	"github.com/dmalikzadeh/ai-interview/internal/utils"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)
	Upsert(ctx context.Context, p *models.Profile) error
	// SetCVSummary stores the latest CV summary, creating the profile if needed.
	SetCVSummary(ctx context.Context, userID, summary string, embedding *pgvector.Vector) error
}

type profileRepo struct {
	db *gorm.DB
}

func NewProfileRepo(db *gorm.DB) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &p, err
}

func (r *profileRepo) Upsert(ctx context.Context, p *models.Profile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"full_name", "target_role", "skills", "preferences", "updated_at"}),
		}).
		Create(p).Error
}

func (r *profileRepo) SetCVSummary(ctx context.Context, userID, summary string, embedding *pgvector.Vector) error {
	cols := []string{"cv_summary", "updated_at"}
	if embedding != nil {
		cols = append(cols, "cv_embedding")
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns(cols),
		}).
		Create(&models.Profile{
			UserID:      userID,
			CVSummary:   summary,
			CVEmbedding: embedding,
			UpdatedAt:   time.Now().UTC(),
		}).Error
}
