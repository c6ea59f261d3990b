package services

import (
	"context"
	"strings"

	"github.com/dmalikzadeh/ai-interview/internal/interview"
	"github.com/dmalikzadeh/ai-interview/internal/models"
	"github.com/dmalikzadeh/ai-interview/internal/providers/stt"
	"github.com/dmalikzadeh/ai-interview/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PrepareInput is the intake form.
type PrepareInput struct {
	Name          string
	Role          string
	Company       string
	Description   string
	LengthMinutes int
	Language      string
	CV            *CVUpload
}

type PrepConfig struct {
	DefaultMinutes int
	MaxMinutes     int
}

// UserResetter drops the user's previous interview before a new one.
type UserResetter interface {
	ResetUser(ctx context.Context, userID string) error
}

type PrepService interface {
	Prepare(ctx context.Context, userID string, in PrepareInput) (*models.Session, error)
}

type prepService struct {
	sessions    SessionService
	profiles    ProfileService
	cvfiles     CVFileService
	summarizer  DocumentSummarizer
	interviewer InterviewerService
	resetter    UserResetter
	cfg         PrepConfig
	log         *logrus.Entry
}

func NewPrepService(
	sessions SessionService,
	profiles ProfileService,
	cvfiles CVFileService,
	summarizer DocumentSummarizer,
	interviewer InterviewerService,
	resetter UserResetter,
	cfg PrepConfig,
	l *logrus.Logger,
) PrepService {
	if cfg.DefaultMinutes <= 0 {
		cfg.DefaultMinutes = 10
	}
	if cfg.MaxMinutes <= 0 {
		cfg.MaxMinutes = 60
	}
	if l == nil {
		l = logrus.New()
	}
	return &prepService{
		sessions:    sessions,
		profiles:    profiles,
		cvfiles:     cvfiles,
		summarizer:  summarizer,
		interviewer: interviewer,
		resetter:    resetter,
		cfg:         cfg,
		log:         l.WithField("component", "prep"),
	}
}

func (s *prepService) Prepare(ctx context.Context, userID string, in PrepareInput) (*models.Session, error) {
	const op = "PrepService.Prepare"

	in.Name = strings.TrimSpace(in.Name)
	in.Role = strings.TrimSpace(in.Role)
	in.Company = strings.TrimSpace(in.Company)
	if userID == "" || in.Name == "" || in.Role == "" || in.Company == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "name, role, and company are required", nil)
	}
	if in.LengthMinutes == 0 {
		in.LengthMinutes = s.cfg.DefaultMinutes
	}
	if in.LengthMinutes < 1 || in.LengthMinutes > s.cfg.MaxMinutes {
		return nil, utils.E(utils.CodeInvalidArgument, op, "length must be between 1 and the allowed maximum minutes", nil)
	}

	if s.resetter != nil {
		if err := s.resetter.ResetUser(ctx, userID); err != nil {
			return nil, err
		}
	}

	cvSummary, err := s.cvSummary(ctx, userID, in.CV)
	if err != nil {
		return nil, err
	}

	cfg := interview.SessionConfig{
		CandidateName:      in.Name,
		Role:               in.Role,
		Company:            in.Company,
		CVSummary:          cvSummary,
		DescriptionSummary: s.summarizer.SummarizeDescription(ctx, in.Description),
		DurationSeconds:    in.LengthMinutes * 60,
	}

	sessionID := uuid.NewString()
	first, err := s.interviewer.FirstMessage(ctx, sessionID, cfg)
	if err != nil {
		return nil, err
	}

	sess := &models.Session{
		SessionID:    sessionID,
		UserID:       userID,
		Status:       models.SessionPrepared,
		Language:     stt.NormalizeLanguage(in.Language),
		Interview:    cfg,
		FirstMessage: first,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"user_id":    userID,
		"minutes":    in.LengthMinutes,
		"cv":         cvSummary != "",
	}).Info("interview prepared")
	return sess, nil
}

// cvSummary uses the uploaded file when present, else the summary kept on
// the candidate's profile.
func (s *prepService) cvSummary(ctx context.Context, userID string, cv *CVUpload) (string, error) {
	if cv != nil && len(cv.Data) > 0 {
		row, err := s.cvfiles.Upload(ctx, userID, *cv)
		if err != nil {
			return "", err
		}
		if row.Summary == "" {
			return fallbackCVSummary, nil
		}
		return row.Summary, nil
	}

	summary, err := s.profiles.StoredCVSummary(ctx, userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("stored cv summary unavailable")
		return "", nil
	}
	return summary, nil
}
