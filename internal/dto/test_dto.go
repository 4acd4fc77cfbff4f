package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/browoko/assessment-api/internal/models"
)

// TestCreateRequest creates a new assessment definition.
type TestCreateRequest struct {
	Title            string     `json:"title" validate:"required,max=300"`
	Description      string     `json:"description" validate:"omitempty,max=2000"`
	PassPercentage   int        `json:"passPercentage" validate:"omitempty,gte=0,lte=100"`
	RewardCoins      int        `json:"rewardCoins" validate:"omitempty,gte=0"`
	MaxAttempts      int        `json:"maxAttempts" validate:"omitempty,gte=0"`
	TimeLimitMinutes *int       `json:"timeLimitMinutes" validate:"omitempty,gte=1"`
	OrganizationID   *uuid.UUID `json:"organizationId"`
}

// TestUpdateRequest patches an assessment definition.
type TestUpdateRequest struct {
	Title            *string `json:"title" validate:"omitempty,min=1,max=300"`
	Description      *string `json:"description" validate:"omitempty,max=2000"`
	PassPercentage   *int    `json:"passPercentage" validate:"omitempty,gte=0,lte=100"`
	RewardCoins      *int    `json:"rewardCoins" validate:"omitempty,gte=0"`
	MaxAttempts      *int    `json:"maxAttempts" validate:"omitempty,gte=0"`
	TimeLimitMinutes *int    `json:"timeLimitMinutes" validate:"omitempty,gte=1"`
	IsActive         *bool   `json:"isActive"`
}

// TestBlockCreateRequest adds one graded item to a test.
type TestBlockCreateRequest struct {
	Type             models.BlockType `json:"type" validate:"required,oneof=MULTIPLE_CHOICE MULTIPLE_SELECT TRUE_FALSE SHORT_TEXT LONG_TEXT FILL_BLANKS ORDERING MATCHING SLIDER FILE_UPLOAD VIDEO"`
	Title            string           `json:"title" validate:"required,max=500"`
	Description      string           `json:"description" validate:"omitempty,max=2000"`
	Content          json.RawMessage  `json:"content"`
	Points           int              `json:"points" validate:"omitempty,gte=0"`
	IsRequired       *bool            `json:"isRequired"`
	TimeLimitSeconds *int             `json:"timeLimitSeconds" validate:"omitempty,gte=1"`
	Position         int              `json:"position" validate:"omitempty,gte=0"`
}

// TestBlockUpdateRequest patches one graded item.
type TestBlockUpdateRequest struct {
	Title            *string         `json:"title" validate:"omitempty,min=1,max=500"`
	Description      *string         `json:"description" validate:"omitempty,max=2000"`
	Content          json.RawMessage `json:"content"`
	Points           *int            `json:"points" validate:"omitempty,gte=0"`
	IsRequired       *bool           `json:"isRequired"`
	TimeLimitSeconds *int            `json:"timeLimitSeconds" validate:"omitempty,gte=1"`
	Position         *int            `json:"position" validate:"omitempty,gte=0"`
}

// TestResponse is returned to API clients when viewing tests.
type TestResponse struct {
	ID               uuid.UUID  `json:"id"`
	OrganizationID   *uuid.UUID `json:"organizationId,omitempty"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	PassPercentage   int        `json:"passPercentage"`
	RewardCoins      int        `json:"rewardCoins"`
	MaxAttempts      int        `json:"maxAttempts"`
	TimeLimitMinutes *int       `json:"timeLimitMinutes,omitempty"`
	IsActive         bool       `json:"isActive"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// TestDetailResponse adds the ordered block set.
type TestDetailResponse struct {
	TestResponse
	Blocks []TestBlockResponse `json:"blocks"`
}

// TestBlockResponse serializes one graded item.
type TestBlockResponse struct {
	ID               uuid.UUID        `json:"id"`
	TestID           uuid.UUID        `json:"testId"`
	Type             models.BlockType `json:"type"`
	Title            string           `json:"title"`
	Description      string           `json:"description,omitempty"`
	Content          json.RawMessage  `json:"content"`
	Points           int              `json:"points"`
	IsRequired       bool             `json:"isRequired"`
	TimeLimitSeconds *int             `json:"timeLimitSeconds,omitempty"`
	Position         int              `json:"position"`
}

// NewTestResponse converts a Test model into a DTO.
func NewTestResponse(model models.Test) TestResponse {
	return TestResponse{
		ID:               model.ID,
		OrganizationID:   model.OrganizationID,
		Title:            model.Title,
		Description:      model.Description,
		PassPercentage:   model.PassPercentage,
		RewardCoins:      model.RewardCoins,
		MaxAttempts:      model.MaxAttempts,
		TimeLimitMinutes: model.TimeLimitMinutes,
		IsActive:         model.IsActive,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

// NewTestResponseSlice converts test models into DTOs.
func NewTestResponseSlice(tests []models.Test) []TestResponse {
	responses := make([]TestResponse, 0, len(tests))
	for _, test := range tests {
		responses = append(responses, NewTestResponse(test))
	}

	return responses
}

// NewTestBlockResponse converts a TestBlock model into a DTO.
func NewTestBlockResponse(model models.TestBlock) TestBlockResponse {
	return TestBlockResponse{
		ID:               model.ID,
		TestID:           model.TestID,
		Type:             model.Type,
		Title:            model.Title,
		Description:      model.Description,
		Content:          json.RawMessage(model.Content),
		Points:           model.Points,
		IsRequired:       model.IsRequired,
		TimeLimitSeconds: model.TimeLimitSeconds,
		Position:         model.Position,
	}
}

// NewTestBlockResponseSlice converts block models into DTOs.
func NewTestBlockResponseSlice(blocks []models.TestBlock) []TestBlockResponse {
	responses := make([]TestBlockResponse, 0, len(blocks))
	for _, block := range blocks {
		responses = append(responses, NewTestBlockResponse(block))
	}

	return responses
}
