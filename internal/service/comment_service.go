package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/browoko/assessment-api/internal/dto"
	"github.com/browoko/assessment-api/internal/models"
	"github.com/browoko/assessment-api/internal/repository"
)

// CommentService manages reviewer annotations on practical artifacts.
// Comments are immutable: they are added, listed, and deleted, never edited.
type CommentService interface {
	Add(ctx context.Context, caller Identity, submissionID uuid.UUID, payload dto.CommentCreateRequest) (dto.CommentResponse, error)
	List(ctx context.Context, caller Identity, submissionID uuid.UUID, filter dto.CommentFilter) ([]dto.CommentResponse, error)
	Delete(ctx context.Context, caller Identity, id uuid.UUID) error
}

type commentService struct {
	comments    repository.CommentRepository
	submissions repository.SubmissionRepository
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewCommentService constructs a CommentService instance.
func NewCommentService(commentRepo repository.CommentRepository, subRepo repository.SubmissionRepository, validate *validator.Validate, logger zerolog.Logger) CommentService {
	return &commentService{
		comments:    commentRepo,
		submissions: subRepo,
		validator:   validate,
		logger:      logger.With().Str("component", "comment_service").Logger(),
	}
}

func (s *commentService) Add(ctx context.Context, caller Identity, submissionID uuid.UUID, payload dto.CommentCreateRequest) (dto.CommentResponse, error) {
	if caller.IsZero() {
		return dto.CommentResponse{}, ErrUnauthorized
	}
	if !caller.CanReview() {
		return dto.CommentResponse{}, fmt.Errorf("%w: review capability required", ErrForbidden)
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.CommentResponse{}, err
	}

	kind, posX, posY, ts, err := commentAnchor(payload.Type, payload.PositionX, payload.PositionY, payload.Timestamp)
	if err != nil {
		return dto.CommentResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CommentResponse{}, ErrSubmissionNotFound
		}
		return dto.CommentResponse{}, err
	}
	if submission.IsDraft() {
		return dto.CommentResponse{}, fmt.Errorf("%w: draft submissions cannot be annotated", ErrValidation)
	}

	comment := models.ReviewComment{
		SubmissionID: submission.ID,
		BlockID:      payload.BlockID,
		ReviewerID:   caller.UserID,
		Type:         kind,
		PositionX:    posX,
		PositionY:    posY,
		Timestamp:    ts,
		Text:         payload.Text,
	}
	if err := s.comments.Create(ctx, &comment); err != nil {
		return dto.CommentResponse{}, err
	}

	s.logger.Info().
		Str("comment_id", comment.ID.String()).
		Str("submission_id", submission.ID.String()).
		Str("type", string(kind)).
		Msg("review comment added")

	return dto.NewCommentResponse(comment), nil
}

func (s *commentService) List(ctx context.Context, caller Identity, submissionID uuid.UUID, filter dto.CommentFilter) ([]dto.CommentResponse, error) {
	if caller.IsZero() {
		return nil, ErrUnauthorized
	}
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	if submission.UserID != caller.UserID && !caller.IsAdmin() && !caller.CanReview() {
		return nil, fmt.Errorf("%w: submission belongs to another user", ErrForbidden)
	}

	comments, err := s.comments.ListBySubmission(ctx, submissionID, repository.CommentFilter{
		BlockID: filter.BlockID,
		Type:    filter.Type,
	})
	if err != nil {
		return nil, err
	}

	return dto.NewCommentResponseSlice(comments), nil
}

// Delete removes a comment. Only the comment's author may delete it; there is
// no admin override.
func (s *commentService) Delete(ctx context.Context, caller Identity, id uuid.UUID) error {
	if caller.IsZero() {
		return ErrUnauthorized
	}

	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return err
	}
	if comment.ReviewerID != caller.UserID {
		return fmt.Errorf("%w: comments can only be deleted by their author", ErrForbidden)
	}

	if err := s.comments.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return err
	}

	s.logger.Info().Str("comment_id", id.String()).Msg("review comment deleted")
	return nil
}
