package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/browoko/assessment-api/internal/dto"
	"github.com/browoko/assessment-api/internal/models"
	"github.com/browoko/assessment-api/internal/observability"
	"github.com/browoko/assessment-api/internal/repository"
	"github.com/browoko/assessment-api/internal/scoring"
)

// TestDefinitions provides read access to test definitions for services that
// grade against them.
type TestDefinitions interface {
	Definition(ctx context.Context, id uuid.UUID) (models.Test, []models.TestBlock, error)
}

// SubmissionService orchestrates the submission lifecycle: draft resolution,
// hand-in with automatic grading, and the human review decision.
type SubmissionService interface {
	List(ctx context.Context, caller Identity, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error)
	Get(ctx context.Context, caller Identity, id uuid.UUID) (dto.SubmissionDetailResponse, error)
	Create(ctx context.Context, caller Identity, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error)
	UpdateDraft(ctx context.Context, caller Identity, id uuid.UUID, payload dto.SubmissionUpdateRequest) (dto.SubmissionResponse, error)
	Submit(ctx context.Context, caller Identity, id uuid.UUID, payload dto.SubmitRequest) (dto.SubmissionResponse, error)
	Review(ctx context.Context, caller Identity, id uuid.UUID, payload dto.ReviewRequest) (dto.SubmissionResponse, error)
	Delete(ctx context.Context, caller Identity, id uuid.UUID) error
}

type submissionService struct {
	submissions repository.SubmissionRepository
	comments    repository.CommentRepository
	tests       TestDefinitions
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(subRepo repository.SubmissionRepository, commentRepo repository.CommentRepository, tests TestDefinitions, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: subRepo,
		comments:    commentRepo,
		tests:       tests,
		validator:   validate,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) List(ctx context.Context, caller Identity, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	if caller.IsZero() {
		return nil, ErrUnauthorized
	}
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	// Non-privileged callers only ever see their own submissions; reviewers
	// and admins may list across users.
	if !caller.IsAdmin() && !caller.CanReview() {
		userID := caller.UserID
		filter.UserID = &userID
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{
		Status: filter.Status,
		UserID: filter.UserID,
		TestID: filter.TestID,
	})
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) Get(ctx context.Context, caller Identity, id uuid.UUID) (dto.SubmissionDetailResponse, error) {
	submission, err := s.authorizedSubmission(ctx, caller, id, caller.CanReview())
	if err != nil {
		return dto.SubmissionDetailResponse{}, err
	}

	var blocks []models.TestBlock
	if _, defBlocks, err := s.tests.Definition(ctx, submission.TestID); err == nil {
		blocks = defBlocks
	} else if !errors.Is(err, ErrTestNotFound) {
		return dto.SubmissionDetailResponse{}, err
	}

	comments, err := s.comments.ListBySubmission(ctx, id, repository.CommentFilter{})
	if err != nil {
		return dto.SubmissionDetailResponse{}, err
	}

	return dto.SubmissionDetailResponse{
		SubmissionResponse: dto.NewSubmissionResponse(submission),
		Blocks:             dto.NewTestBlockResponseSlice(blocks),
		Comments:           dto.NewCommentResponseSlice(comments),
	}, nil
}

func (s *submissionService) Create(ctx context.Context, caller Identity, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	if caller.IsZero() {
		return dto.SubmissionResponse{}, ErrUnauthorized
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}
	if payload.UserID != caller.UserID {
		return dto.SubmissionResponse{}, fmt.Errorf("%w: submissions can only be started for yourself", ErrForbidden)
	}

	test, _, err := s.tests.Definition(ctx, payload.TestID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, created, err := s.submissions.ResolveOrCreateDraft(ctx, test, payload.UserID, payload.VideoID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAttemptLimitExceeded):
			return dto.SubmissionResponse{}, fmt.Errorf("%w: maximum number of attempts reached (%d)", ErrValidation, test.EffectiveMaxAttempts())
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return dto.SubmissionResponse{}, fmt.Errorf("%w: another draft for this test was created concurrently", ErrConflict)
		default:
			return dto.SubmissionResponse{}, err
		}
	}

	if created {
		s.logger.Info().
			Str("submission_id", submission.ID.String()).
			Str("test_id", test.ID.String()).
			Int("attempt", submission.AttemptNumber).
			Msg("draft submission created")
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) UpdateDraft(ctx context.Context, caller Identity, id uuid.UUID, payload dto.SubmissionUpdateRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.authorizedSubmission(ctx, caller, id, false)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if !submission.IsDraft() {
		return dto.SubmissionResponse{}, fmt.Errorf("%w: only draft submissions can be updated", ErrValidation)
	}

	if payload.AutoAnswers != nil {
		submission.AutoAnswers = payload.AutoAnswers
	}
	if payload.PracticalSubmissions != nil {
		submission.PracticalSubmissions = dto.ToPracticalSubmissions(payload.PracticalSubmissions)
	}
	if payload.VideoID != nil {
		submission.VideoID = payload.VideoID
	}

	if err := s.submissions.UpdateDraft(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, s.mapWriteError(err)
	}

	return s.reload(ctx, id)
}

func (s *submissionService) Submit(ctx context.Context, caller Identity, id uuid.UUID, payload dto.SubmitRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.authorizedSubmission(ctx, caller, id, false)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if !submission.IsDraft() {
		return dto.SubmissionResponse{}, fmt.Errorf("%w: only draft submissions can be handed in", ErrValidation)
	}

	test, blocks, err := s.tests.Definition(ctx, submission.TestID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	answers := payload.AutoAnswers
	if answers == nil {
		answers = map[string]any{}
	}
	auto := scoring.ComputeAutoScore(blocks, answers)

	submittedAt := s.now()
	submission.AutoAnswers = answers
	submission.PracticalSubmissions = dto.ToPracticalSubmissions(payload.PracticalSubmissions)
	submission.AutoScore = auto.Score
	submission.AutoMaxScore = auto.MaxScore
	submission.AutoPercentage = auto.Percentage
	submission.SubmittedAt = &submittedAt

	if scoring.HasPracticalBlocks(blocks) {
		submission.Status = models.StatusPendingReview
	} else {
		// No practical work to review: the practical component counts as
		// passed and the attempt resolves immediately.
		final := scoring.ComputeFinalScore(auto.Percentage, true, test.EffectivePassPercentage())
		submission.FinalScore = final.Score
		submission.FinalPercentage = final.Percentage
		submission.Passed = final.Passed
		if final.Passed {
			submission.Status = models.StatusApproved
		} else {
			submission.Status = models.StatusFailed
		}
	}

	if err := s.submissions.FinalizeSubmit(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, s.mapWriteError(err)
	}

	observability.SubmissionsSubmitted().WithLabelValues(string(submission.Status)).Inc()
	s.logger.Info().
		Str("submission_id", submission.ID.String()).
		Str("status", string(submission.Status)).
		Float64("auto_percentage", auto.Percentage).
		Msg("submission handed in")

	return s.reload(ctx, id)
}

func (s *submissionService) Review(ctx context.Context, caller Identity, id uuid.UUID, payload dto.ReviewRequest) (dto.SubmissionResponse, error) {
	if caller.IsZero() {
		return dto.SubmissionResponse{}, ErrUnauthorized
	}
	if !caller.CanReview() {
		return dto.SubmissionResponse{}, fmt.Errorf("%w: review capability required", ErrForbidden)
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}
	if payload.ReviewerID != caller.UserID {
		return dto.SubmissionResponse{}, fmt.Errorf("%w: reviewers can only record decisions as themselves", ErrForbidden)
	}

	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}
	if submission.Status != models.StatusPendingReview {
		return dto.SubmissionResponse{}, fmt.Errorf("%w: submission is not awaiting review", ErrValidation)
	}

	test, _, err := s.tests.Definition(ctx, submission.TestID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	comments := make([]models.ReviewComment, 0, len(payload.Comments))
	for _, c := range payload.Comments {
		kind, posX, posY, ts, err := commentAnchor(c.Type, c.PositionX, c.PositionY, c.Timestamp)
		if err != nil {
			return dto.SubmissionResponse{}, err
		}
		comments = append(comments, models.ReviewComment{
			SubmissionID: submission.ID,
			BlockID:      c.BlockID,
			ReviewerID:   caller.UserID,
			Type:         kind,
			PositionX:    posX,
			PositionY:    posY,
			Timestamp:    ts,
			Text:         c.Text,
		})
	}

	reviewerID := caller.UserID
	reviewedAt := s.now()
	decision := payload.Decision
	submission.ReviewerID = &reviewerID
	submission.ReviewedAt = &reviewedAt
	submission.ReviewDecision = &decision
	submission.ReviewReason = payload.Reason
	submission.ReviewStars = payload.Stars

	switch decision {
	case models.DecisionApprove:
		final := scoring.ComputeFinalScore(submission.AutoPercentage, true, test.EffectivePassPercentage())
		submission.FinalScore = final.Score
		submission.FinalPercentage = final.Percentage
		submission.Passed = final.Passed
		if final.Passed {
			submission.Status = models.StatusApproved
		} else {
			// Approving the practical work does not rescue a weak automatic
			// score; the combined percentage still decides the outcome.
			submission.Status = models.StatusFailed
		}
	case models.DecisionNeedsRevision:
		submission.Status = models.StatusNeedsRevision
	case models.DecisionFail:
		final := scoring.ComputeFinalScore(submission.AutoPercentage, false, test.EffectivePassPercentage())
		submission.FinalScore = final.Score
		submission.FinalPercentage = final.Percentage
		submission.Passed = final.Passed
		submission.Status = models.StatusFailed
	}

	if err := s.submissions.ApplyReview(ctx, &submission, comments); err != nil {
		return dto.SubmissionResponse{}, s.mapWriteError(err)
	}

	observability.ReviewDecisions().WithLabelValues(decision).Inc()
	s.logger.Info().
		Str("submission_id", submission.ID.String()).
		Str("reviewer_id", reviewerID.String()).
		Str("decision", decision).
		Str("status", string(submission.Status)).
		Msg("review decision recorded")

	return s.reload(ctx, id)
}

func (s *submissionService) Delete(ctx context.Context, caller Identity, id uuid.UUID) error {
	submission, err := s.authorizedSubmission(ctx, caller, id, false)
	if err != nil {
		return err
	}
	if !submission.IsDraft() {
		return fmt.Errorf("%w: only draft submissions can be deleted", ErrValidation)
	}

	if err := s.submissions.DeleteDraft(ctx, id); err != nil {
		return s.mapWriteError(err)
	}

	s.logger.Info().Str("submission_id", id.String()).Msg("draft submission deleted")
	return nil
}

// authorizedSubmission loads a submission and enforces access: the owner and
// admins always qualify, reviewers only when allowReviewers is set.
func (s *submissionService) authorizedSubmission(ctx context.Context, caller Identity, id uuid.UUID, allowReviewers bool) (models.TestSubmission, error) {
	if caller.IsZero() {
		return models.TestSubmission{}, ErrUnauthorized
	}

	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.TestSubmission{}, ErrSubmissionNotFound
		}
		return models.TestSubmission{}, err
	}

	if submission.UserID == caller.UserID || caller.IsAdmin() || (allowReviewers && caller.CanReview()) {
		return submission, nil
	}
	return models.TestSubmission{}, fmt.Errorf("%w: submission belongs to another user", ErrForbidden)
}

func (s *submissionService) reload(ctx context.Context, id uuid.UUID) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) mapWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrStaleStatus):
		return fmt.Errorf("%w: submission status changed concurrently", ErrConflict)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrSubmissionNotFound
	default:
		return err
	}
}
