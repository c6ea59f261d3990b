package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmalikzadeh/ai-interview/internal/models"
	pgrepo "github.com/dmalikzadeh/ai-interview/internal/repositories/postgres"
	"github.com/dmalikzadeh/ai-interview/internal/utils"
)

type ProfileService interface {
	GetMe(ctx context.Context, userID string) (*models.Profile, error)
	Upsert(ctx context.Context, p *models.Profile) error
	// StoredCVSummary returns "" when the user has no profile or summary yet.
	StoredCVSummary(ctx context.Context, userID string) (string, error)
}

type profileService struct {
	profiles pgrepo.ProfileRepository
}

func NewProfileService(profiles pgrepo.ProfileRepository) ProfileService {
	return &profileService{profiles: profiles}
}

func (s *profileService) GetMe(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "ProfileService.GetMe"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}

	p, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "profile not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get profile", err)
	}
	return p, nil
}

func (s *profileService) Upsert(ctx context.Context, p *models.Profile) error {
	const op = "ProfileService.Upsert"

	if p == nil || p.UserID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "profile.user_id is required", nil)
	}
	p.FullName = strings.TrimSpace(p.FullName)
	p.TargetRole = strings.TrimSpace(p.TargetRole)
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	if err := s.profiles.Upsert(ctx, p); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to upsert profile", err)
	}
	return nil
}

func (s *profileService) StoredCVSummary(ctx context.Context, userID string) (string, error) {
	p, err := s.GetMe(ctx, userID)
	if err != nil {
		if utils.IsCode(err, utils.CodeNotFound) {
			return "", nil
		}
		return "", err
	}
	return p.CVSummary, nil
}
