package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/browoko/assessment-api/internal/models"
)

// CommentFilter narrows comment listings within a submission.
type CommentFilter struct {
	BlockID *uuid.UUID
	Type    *models.CommentType
}

// CommentRepository defines data operations for review comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.ReviewComment) error
	GetByID(ctx context.Context, id uuid.UUID) (models.ReviewComment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListBySubmission(ctx context.Context, submissionID uuid.UUID, filter CommentFilter) ([]models.ReviewComment, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository instantiates the repository.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.ReviewComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepository) GetByID(ctx context.Context, id uuid.UUID) (models.ReviewComment, error) {
	var comment models.ReviewComment
	if err := r.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return models.ReviewComment{}, err
	}

	return comment, nil
}

func (r *commentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ReviewComment{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListBySubmission returns comments in creation order. Video comments
// filtered by type are ordered by their timestamp instead, so the timeline
// ordering is derived purely from stored anchors and never from insertion
// order.
func (r *commentRepository) ListBySubmission(ctx context.Context, submissionID uuid.UUID, filter CommentFilter) ([]models.ReviewComment, error) {
	query := r.db.WithContext(ctx).Where("submission_id = ?", submissionID)

	if filter.BlockID != nil {
		query = query.Where("block_id = ?", *filter.BlockID)
	}

	order := "created_at ASC"
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
		if *filter.Type == models.CommentVideo {
			order = "video_timestamp ASC"
		}
	}

	var comments []models.ReviewComment
	if err := query.Order(order).Find(&comments).Error; err != nil {
		return nil, err
	}

	return comments, nil
}
