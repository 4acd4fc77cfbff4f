package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/browoko/assessment-api/internal/models"
)

// CommentCreateRequest adds a single annotation to a practical artifact
// outside of a batched review decision.
type CommentCreateRequest struct {
	BlockID   uuid.UUID `json:"blockId" validate:"required"`
	Type      string    `json:"type" validate:"required,oneof=image video"`
	PositionX *float64  `json:"positionX"`
	PositionY *float64  `json:"positionY"`
	Timestamp *float64  `json:"timestamp" validate:"omitempty,gte=0"`
	Text      string    `json:"text" validate:"required,min=1,max=1000"`
}

// CommentFilter narrows comment listings.
type CommentFilter struct {
	BlockID *uuid.UUID
	Type    *models.CommentType `validate:"omitempty,oneof=image video"`
}

// CommentResponse is returned to API clients when viewing annotations.
type CommentResponse struct {
	ID           uuid.UUID          `json:"id"`
	SubmissionID uuid.UUID          `json:"submissionId"`
	BlockID      uuid.UUID          `json:"blockId"`
	ReviewerID   uuid.UUID          `json:"reviewerId"`
	Type         models.CommentType `json:"type"`
	PositionX    *float64           `json:"positionX,omitempty"`
	PositionY    *float64           `json:"positionY,omitempty"`
	Timestamp    *float64           `json:"timestamp,omitempty"`
	Text         string             `json:"text"`
	CreatedAt    time.Time          `json:"createdAt"`
}

// NewCommentResponse converts a ReviewComment model into a DTO.
func NewCommentResponse(model models.ReviewComment) CommentResponse {
	return CommentResponse{
		ID:           model.ID,
		SubmissionID: model.SubmissionID,
		BlockID:      model.BlockID,
		ReviewerID:   model.ReviewerID,
		Type:         model.Type,
		PositionX:    model.PositionX,
		PositionY:    model.PositionY,
		Timestamp:    model.Timestamp,
		Text:         model.Text,
		CreatedAt:    model.CreatedAt,
	}
}

// NewCommentResponseSlice converts comment models into DTOs.
func NewCommentResponseSlice(comments []models.ReviewComment) []CommentResponse {
	responses := make([]CommentResponse, 0, len(comments))
	for _, comment := range comments {
		responses = append(responses, NewCommentResponse(comment))
	}

	return responses
}
