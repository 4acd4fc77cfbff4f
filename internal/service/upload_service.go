package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/browoko/assessment-api/internal/dto"
	"github.com/browoko/assessment-api/internal/observability"
	"github.com/browoko/assessment-api/internal/repository"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
)

// FileStorage abstracts upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// UploadService stores practical artifacts for draft submissions.
type UploadService interface {
	Upload(ctx context.Context, caller Identity, submissionID, blockID uuid.UUID, file *multipart.FileHeader) (dto.UploadResponse, error)
}

type uploadService struct {
	storage     FileStorage
	submissions repository.SubmissionRepository
	logger      zerolog.Logger
	maxSize     int64
	now         func() time.Time
}

// NewUploadService constructs an upload service.
func NewUploadService(storage FileStorage, subRepo repository.SubmissionRepository, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 50
	}
	return &uploadService{
		storage:     storage,
		submissions: subRepo,
		logger:      logger.With().Str("component", "upload_service").Logger(),
		maxSize:     int64(maxSizeMB) * 1024 * 1024,
		now:         time.Now,
	}
}

func (s *uploadService) Upload(ctx context.Context, caller Identity, submissionID, blockID uuid.UUID, file *multipart.FileHeader) (dto.UploadResponse, error) {
	if caller.IsZero() {
		return dto.UploadResponse{}, ErrUnauthorized
	}
	if file == nil {
		return dto.UploadResponse{}, fmt.Errorf("%w: file is required", ErrValidation)
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UploadResponse{}, ErrSubmissionNotFound
		}
		return dto.UploadResponse{}, err
	}
	if submission.UserID != caller.UserID && !caller.IsAdmin() {
		return dto.UploadResponse{}, fmt.Errorf("%w: submission belongs to another user", ErrForbidden)
	}
	if !submission.IsDraft() {
		return dto.UploadResponse{}, fmt.Errorf("%w: artifacts can only be attached to draft submissions", ErrValidation)
	}

	if file.Size > s.maxSize {
		observability.UploadsRejected().WithLabelValues("size").Inc()
		return dto.UploadResponse{}, ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		return dto.UploadResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return dto.UploadResponse{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		observability.UploadsRejected().WithLabelValues("size").Inc()
		return dto.UploadResponse{}, ErrUploadTooLarge
	}

	mime := mimetype.Detect(buf.Bytes())
	if !isAllowedArtifactType(mime.String()) {
		observability.UploadsRejected().WithLabelValues("type").Inc()
		return dto.UploadResponse{}, ErrUploadTypeNotAllowed
	}

	path := artifactPath(submissionID, blockID, s.now(), mime.Extension())
	url, err := s.storage.Upload(ctx, path, bytes.NewReader(buf.Bytes()))
	if err != nil {
		observability.UploadsRejected().WithLabelValues("storage").Inc()
		return dto.UploadResponse{}, fmt.Errorf("failed to store artifact: %w", err)
	}

	s.logger.Info().
		Str("submission_id", submissionID.String()).
		Str("block_id", blockID.String()).
		Str("path", path).
		Int("size_bytes", buf.Len()).
		Msg("practical artifact stored")

	return dto.UploadResponse{
		FileURL:  url,
		FileName: file.Filename,
		FileSize: int64(buf.Len()),
		FilePath: path,
	}, nil
}

// artifactPath groups artifacts by submission and keeps names collision-free
// across re-uploads of the same block.
func artifactPath(submissionID, blockID uuid.UUID, at time.Time, ext string) string {
	return fmt.Sprintf("%s/%s-%d%s", submissionID, blockID, at.UnixMilli(), ext)
}

func isAllowedArtifactType(mime string) bool {
	return strings.HasPrefix(mime, "image/") || strings.HasPrefix(mime, "video/")
}
