package postgres

import (
	"context"
	"errors"

	"github.com/dmalikzadeh/ai-interview/internal/models"
	"github.com/dmalikzadeh/ai-interview/internal/utils"
	"gorm.io/gorm"
)

type CVFileRepository interface {
	Insert(ctx context.Context, f *models.CVFile) error
	LatestByUser(ctx context.Context, userID string) (*models.CVFile, error)
	// FindSummarized returns an earlier upload of the same bytes that already has a summary.
	FindSummarized(ctx context.Context, userID, sha256 string) (*models.CVFile, error)
}

type cvFileRepo struct {
	db *gorm.DB
}

func NewCVFileRepo(db *gorm.DB) CVFileRepository {
	return &cvFileRepo{db: db}
}

func (r *cvFileRepo) Insert(ctx context.Context, f *models.CVFile) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *cvFileRepo) LatestByUser(ctx context.Context, userID string) (*models.CVFile, error) {
	var row models.CVFile
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("upload_at DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *cvFileRepo) FindSummarized(ctx context.Context, userID, sha256 string) (*models.CVFile, error) {
	var row models.CVFile
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND sha256 = ? AND summary <> ''", userID, sha256).
		Order("upload_at DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}
