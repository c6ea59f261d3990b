package services

import (
	"bytes"
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/dmalikzadeh/ai-interview/internal/cache"
	"github.com/dmalikzadeh/ai-interview/internal/models"
	"github.com/dmalikzadeh/ai-interview/internal/providers/embedding"
	pgrepo "github.com/dmalikzadeh/ai-interview/internal/repositories/postgres"
	"github.com/dmalikzadeh/ai-interview/internal/storage"
	"github.com/dmalikzadeh/ai-interview/internal/utils"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"
)

// MaxCVBytes bounds uploaded CV files.
const MaxCVBytes = 5 << 20

// CVUpload is a CV file received with the intake form.
type CVUpload struct {
	FileName string
	MimeType string
	Data     []byte
}

// CVFileView is a stored CV with a temporary download link.
type CVFileView struct {
	models.CVFile
	URL string `json:"url,omitempty"`
}

type CVFileService interface {
	// Upload stores the file, summarizes it and saves the summary on the
	// candidate's profile. A file already summarized for the user is not
	// sent to the model again.
	Upload(ctx context.Context, userID string, in CVUpload) (*models.CVFile, error)
	Latest(ctx context.Context, userID string) (*CVFileView, error)
}

type cvFileService struct {
	repo       pgrepo.CVFileRepository
	profiles   pgrepo.ProfileRepository
	store      storage.ObjectStore
	summarizer DocumentSummarizer
	embedder   embedding.Embedder
	log        *logrus.Entry
}

func NewCVFileService(repo pgrepo.CVFileRepository, profiles pgrepo.ProfileRepository, store storage.ObjectStore, summarizer DocumentSummarizer, embedder embedding.Embedder, l *logrus.Logger) CVFileService {
	if l == nil {
		l = logrus.New()
	}
	return &cvFileService{
		repo:       repo,
		profiles:   profiles,
		store:      store,
		summarizer: summarizer,
		embedder:   embedder,
		log:        l.WithField("component", "cv_files"),
	}
}

func (s *cvFileService) Upload(ctx context.Context, userID string, in CVUpload) (*models.CVFile, error) {
	const op = "CVFileService.Upload"

	if userID == "" || len(in.Data) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and file are required", nil)
	}
	if len(in.Data) > MaxCVBytes {
		return nil, utils.E(utils.CodeInvalidArgument, op, "cv file is too large", nil)
	}
	mimeType := normalizeCVType(in.MimeType, in.FileName)
	if mimeType == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "cv must be a PDF or plain text file", nil)
	}

	sum := cache.Fingerprint(in.Data)
	summary, err := s.summary(ctx, userID, sum, in.Data, mimeType)
	if err != nil {
		return nil, err
	}

	row := &models.CVFile{
		ID:       uuid.NewString(),
		UserID:   userID,
		FileName: path.Base(in.FileName),
		SHA256:   sum,
		FileSize: len(in.Data),
		MimeType: mimeType,
		UploadAt: time.Now().UTC(),
	}
	// placeholder summaries are not reused once AI is back on
	if summary != fallbackCVSummary {
		row.Summary = summary
	}

	if s.store != nil {
		objectName := "cv/" + userID + "/" + row.ID + extensionFor(mimeType)
		storedPath, err := s.store.Upload(ctx, objectName, mimeType, bytes.NewReader(in.Data))
		if err != nil {
			return nil, utils.E(utils.CodeUnavailable, op, "failed to upload file", err)
		}
		row.FilePath = storedPath
	} else {
		s.log.WithField("user_id", userID).Warn("object storage not configured, cv file not kept")
	}

	if err := s.repo.Insert(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to persist cv file metadata", err)
	}

	if err := s.profiles.SetCVSummary(ctx, userID, summary, s.embed(ctx, summary)); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to store cv summary", err)
	}
	return row, nil
}

func (s *cvFileService) summary(ctx context.Context, userID, sha string, data []byte, mimeType string) (string, error) {
	const op = "CVFileService.summary"

	prev, err := s.repo.FindSummarized(ctx, userID, sha)
	switch {
	case err == nil:
		return prev.Summary, nil
	case !errors.Is(err, utils.ErrNotFound):
		return "", utils.E(utils.CodeInternal, op, "failed to look up cv file", err)
	}
	return s.summarizer.SummarizeCV(ctx, data, mimeType)
}

func (s *cvFileService) embed(ctx context.Context, summary string) *pgvector.Vector {
	if s.embedder == nil || summary == fallbackCVSummary {
		return nil
	}
	vec, err := s.embedder.Embed(ctx, summary)
	if err != nil {
		s.log.WithError(err).Warn("cv summary embedding skipped")
		return nil
	}
	v := pgvector.NewVector(vec)
	return &v
}

func (s *cvFileService) Latest(ctx context.Context, userID string) (*CVFileView, error) {
	const op = "CVFileService.Latest"

	row, err := s.repo.LatestByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "no cv uploaded", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get cv file", err)
	}

	view := &CVFileView{CVFile: *row}
	if s.store != nil && row.FilePath != "" {
		url, err := s.store.SignedGetURL(ctx, row.FilePath, 0)
		if err != nil {
			return nil, utils.E(utils.CodeUnavailable, op, "failed to sign download url", err)
		}
		view.URL = url
	}
	return view, nil
}

func normalizeCVType(mimeType, fileName string) string {
	mimeType = strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
	switch {
	case mimeType == mimePDF || strings.HasSuffix(strings.ToLower(fileName), ".pdf"):
		return mimePDF
	case mimeType == mimeText || strings.HasSuffix(strings.ToLower(fileName), ".txt"):
		return mimeText
	default:
		return ""
	}
}

func extensionFor(mimeType string) string {
	if mimeType == mimePDF {
		return ".pdf"
	}
	return ".txt"
}
