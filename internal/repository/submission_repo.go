package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/browoko/assessment-api/internal/models"
)

var (
	// ErrAttemptLimitExceeded indicates a new draft would exceed the test's
	// attempt ceiling.
	ErrAttemptLimitExceeded = errors.New("attempt limit exceeded")
	// ErrStaleStatus indicates a conditional write matched the submission id
	// but not its expected status: a concurrent writer got there first.
	ErrStaleStatus = errors.New("submission status changed concurrently")
)

// SubmissionFilter narrows submission listings.
type SubmissionFilter struct {
	Status *models.SubmissionStatus
	UserID *uuid.UUID
	TestID *uuid.UUID
}

// SubmissionRepository defines data operations for test submissions. All
// read-then-write sequences (draft resolution, attempt numbering, status
// transitions) are atomic at this layer: serializable transactions plus
// status-conditioned updates, backed by a partial unique index on
// (test_id, user_id) for DRAFT rows.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.TestSubmission, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.TestSubmission, error)
	ResolveOrCreateDraft(ctx context.Context, test models.Test, userID uuid.UUID, videoID *uuid.UUID) (models.TestSubmission, bool, error)
	UpdateDraft(ctx context.Context, submission *models.TestSubmission) error
	FinalizeSubmit(ctx context.Context, submission *models.TestSubmission) error
	ApplyReview(ctx context.Context, submission *models.TestSubmission, comments []models.ReviewComment) error
	DeleteDraft(ctx context.Context, id uuid.UUID) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.TestSubmission, error) {
	query := r.db.WithContext(ctx).Model(&models.TestSubmission{}).Preload("Test")

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.TestID != nil {
		query = query.Where("test_id = ?", *filter.TestID)
	}

	var submissions []models.TestSubmission
	if err := query.Order("created_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uuid.UUID) (models.TestSubmission, error) {
	var submission models.TestSubmission
	if err := r.db.WithContext(ctx).Preload("Test").First(&submission, "id = ?", id).Error; err != nil {
		return models.TestSubmission{}, err
	}

	return submission, nil
}

// ResolveOrCreateDraft returns the learner's in-progress draft for the test
// unchanged if one exists; otherwise it allocates the next attempt number and
// inserts a zeroed draft. Runs serializable so two concurrent starts cannot
// allocate the same attempt number; the partial unique draft index catches
// the remaining duplicate-insert race as gorm.ErrDuplicatedKey.
func (r *submissionRepository) ResolveOrCreateDraft(ctx context.Context, test models.Test, userID uuid.UUID, videoID *uuid.UUID) (models.TestSubmission, bool, error) {
	var (
		submission models.TestSubmission
		created    bool
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("test_id = ? AND user_id = ? AND status = ?", test.ID, userID, models.StatusDraft).
			First(&submission).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var lastAttempt int
		if err := tx.Model(&models.TestSubmission{}).
			Where("test_id = ? AND user_id = ?", test.ID, userID).
			Select("COALESCE(MAX(attempt_number), 0)").
			Scan(&lastAttempt).Error; err != nil {
			return err
		}

		next := lastAttempt + 1
		if next > test.EffectiveMaxAttempts() {
			return ErrAttemptLimitExceeded
		}

		submission = models.TestSubmission{
			TestID:               test.ID,
			UserID:               userID,
			VideoID:              videoID,
			Status:               models.StatusDraft,
			AttemptNumber:        next,
			AutoAnswers:          map[string]any{},
			PracticalSubmissions: []models.PracticalSubmission{},
		}
		if err := tx.Create(&submission).Error; err != nil {
			return err
		}

		created = true
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return models.TestSubmission{}, false, err
	}

	return submission, created, nil
}

// UpdateDraft replaces the learner-editable fields while the submission is
// still a draft.
func (r *submissionRepository) UpdateDraft(ctx context.Context, submission *models.TestSubmission) error {
	result := r.db.WithContext(ctx).Model(&models.TestSubmission{}).
		Where("id = ? AND status = ?", submission.ID, models.StatusDraft).
		Updates(map[string]any{
			"auto_answers":          submission.AutoAnswers,
			"practical_submissions": submission.PracticalSubmissions,
			"video_id":              submission.VideoID,
			"updated_at":            time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.staleOrMissing(ctx, submission.ID)
	}

	return nil
}

// FinalizeSubmit moves a draft out of DRAFT, recording answers, artifacts,
// the auto score, and (for self-graded submissions) the final verdict.
func (r *submissionRepository) FinalizeSubmit(ctx context.Context, submission *models.TestSubmission) error {
	result := r.db.WithContext(ctx).Model(&models.TestSubmission{}).
		Where("id = ? AND status = ?", submission.ID, models.StatusDraft).
		Updates(map[string]any{
			"status":                submission.Status,
			"auto_answers":          submission.AutoAnswers,
			"practical_submissions": submission.PracticalSubmissions,
			"auto_score":            submission.AutoScore,
			"auto_max_score":        submission.AutoMaxScore,
			"auto_percentage":       submission.AutoPercentage,
			"final_score":           submission.FinalScore,
			"final_percentage":      submission.FinalPercentage,
			"passed":                submission.Passed,
			"submitted_at":          submission.SubmittedAt,
			"updated_at":            time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.staleOrMissing(ctx, submission.ID)
	}

	return nil
}

// ApplyReview records the reviewer's decision and inserts the attached
// comments in one transaction: the status change and all comments succeed or
// fail together.
func (r *submissionRepository) ApplyReview(ctx context.Context, submission *models.TestSubmission, comments []models.ReviewComment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.TestSubmission{}).
			Where("id = ? AND status = ?", submission.ID, models.StatusPendingReview).
			Updates(map[string]any{
				"status":                submission.Status,
				"practical_submissions": submission.PracticalSubmissions,
				"reviewer_id":           submission.ReviewerID,
				"reviewed_at":           submission.ReviewedAt,
				"review_decision":       submission.ReviewDecision,
				"review_reason":         submission.ReviewReason,
				"review_stars":          submission.ReviewStars,
				"final_score":           submission.FinalScore,
				"final_percentage":      submission.FinalPercentage,
				"passed":                submission.Passed,
				"updated_at":            time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return r.staleOrMissingTx(tx, submission.ID)
		}

		if len(comments) > 0 {
			if err := tx.Create(&comments).Error; err != nil {
				return err
			}
		}

		return nil
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

// DeleteDraft removes a submission only while it is still a draft.
func (r *submissionRepository) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.StatusDraft).
		Delete(&models.TestSubmission{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.staleOrMissing(ctx, id)
	}

	return nil
}

// staleOrMissing distinguishes "row gone" from "row present with a different
// status" after a zero-row conditional write.
func (r *submissionRepository) staleOrMissing(ctx context.Context, id uuid.UUID) error {
	return r.staleOrMissingTx(r.db.WithContext(ctx), id)
}

func (r *submissionRepository) staleOrMissingTx(tx *gorm.DB, id uuid.UUID) error {
	var count int64
	if err := tx.Model(&models.TestSubmission{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return ErrStaleStatus
}
