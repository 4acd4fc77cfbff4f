package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/browoko/assessment-api/internal/models"
)

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	Status *models.SubmissionStatus `validate:"omitempty,oneof=DRAFT PENDING_REVIEW NEEDS_REVISION APPROVED FAILED"`
	UserID *uuid.UUID
	TestID *uuid.UUID
}

// SubmissionCreateRequest starts (or resumes) an attempt at a test.
type SubmissionCreateRequest struct {
	TestID  uuid.UUID  `json:"testId" validate:"required"`
	UserID  uuid.UUID  `json:"userId" validate:"required"`
	VideoID *uuid.UUID `json:"videoId"`
}

// PracticalSubmissionPayload is one uploaded artifact reference supplied by
// the learner while drafting or submitting.
type PracticalSubmissionPayload struct {
	BlockID         uuid.UUID `json:"blockId" validate:"required"`
	Type            string    `json:"type" validate:"required,oneof=file video"`
	FileURL         string    `json:"fileUrl" validate:"required,url"`
	FileName        string    `json:"fileName"`
	FileSize        int64     `json:"fileSize" validate:"omitempty,gte=0"`
	FilePath        string    `json:"filePath"`
	UserExplanation string    `json:"userExplanation" validate:"omitempty,max=2000"`
	ReviewStatus    string    `json:"reviewStatus" validate:"omitempty,oneof=pending approved rejected"`
}

// SubmissionUpdateRequest patches a draft. Status may only restate DRAFT;
// real transitions happen through submit and review.
type SubmissionUpdateRequest struct {
	AutoAnswers          map[string]any               `json:"autoAnswers"`
	PracticalSubmissions []PracticalSubmissionPayload `json:"practicalSubmissions" validate:"omitempty,dive"`
	Status               *models.SubmissionStatus     `json:"status" validate:"omitempty,oneof=DRAFT"`
	VideoID              *uuid.UUID                   `json:"videoId"`
}

// SubmitRequest hands in a draft for grading.
type SubmitRequest struct {
	AutoAnswers          map[string]any               `json:"autoAnswers"`
	PracticalSubmissions []PracticalSubmissionPayload `json:"practicalSubmissions" validate:"omitempty,dive"`
}

// ReviewCommentPayload is one annotation attached to a review decision.
type ReviewCommentPayload struct {
	BlockID   uuid.UUID `json:"blockId" validate:"required"`
	Type      string    `json:"type" validate:"required,oneof=image video"`
	PositionX *float64  `json:"positionX"`
	PositionY *float64  `json:"positionY"`
	Timestamp *float64  `json:"timestamp" validate:"omitempty,gte=0"`
	Text      string    `json:"text" validate:"required,min=1,max=1000"`
}

// ReviewRequest records a reviewer's decision on a pending submission.
type ReviewRequest struct {
	ReviewerID uuid.UUID              `json:"reviewerId" validate:"required"`
	Decision   string                 `json:"decision" validate:"required,oneof=approve needs_revision fail"`
	Reason     string                 `json:"reason" validate:"required,min=20,max=2000"`
	Stars      *int                   `json:"stars" validate:"omitempty,gte=1,lte=5"`
	Comments   []ReviewCommentPayload `json:"comments" validate:"omitempty,dive"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID                   uuid.UUID                    `json:"id"`
	TestID               uuid.UUID                    `json:"testId"`
	UserID               uuid.UUID                    `json:"userId"`
	VideoID              *uuid.UUID                   `json:"videoId,omitempty"`
	Status               models.SubmissionStatus      `json:"status"`
	AttemptNumber        int                          `json:"attemptNumber"`
	AutoAnswers          map[string]any               `json:"autoAnswers"`
	AutoScore            float64                      `json:"autoScore"`
	AutoMaxScore         float64                      `json:"autoMaxScore"`
	AutoPercentage       float64                      `json:"autoPercentage"`
	PracticalSubmissions []models.PracticalSubmission `json:"practicalSubmissions"`
	ReviewerID           *uuid.UUID                   `json:"reviewerId,omitempty"`
	ReviewedAt           *time.Time                   `json:"reviewedAt,omitempty"`
	ReviewDecision       *string                      `json:"reviewDecision,omitempty"`
	ReviewReason         string                       `json:"reviewReason,omitempty"`
	ReviewStars          *int                         `json:"reviewStars,omitempty"`
	FinalScore           int                          `json:"finalScore"`
	FinalPercentage      int                          `json:"finalPercentage"`
	Passed               bool                         `json:"passed"`
	SubmittedAt          *time.Time                   `json:"submittedAt,omitempty"`
	CreatedAt            time.Time                    `json:"createdAt"`
	UpdatedAt            time.Time                    `json:"updatedAt"`
	Test                 *TestLite                    `json:"test,omitempty"`
}

// TestLite summarizes a test in submission responses.
type TestLite struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	PassPercentage int       `json:"passPercentage"`
}

// SubmissionDetailResponse adds the test's block set and the review comments.
type SubmissionDetailResponse struct {
	SubmissionResponse
	Blocks   []TestBlockResponse `json:"blocks"`
	Comments []CommentResponse   `json:"comments"`
}

// UploadResponse describes a stored practical artifact.
type UploadResponse struct {
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	FilePath string `json:"filePath"`
}

// NewSubmissionResponse converts a TestSubmission model into a DTO.
func NewSubmissionResponse(model models.TestSubmission) SubmissionResponse {
	response := SubmissionResponse{
		ID:                   model.ID,
		TestID:               model.TestID,
		UserID:               model.UserID,
		VideoID:              model.VideoID,
		Status:               model.Status,
		AttemptNumber:        model.AttemptNumber,
		AutoAnswers:          model.AutoAnswers,
		AutoScore:            model.AutoScore,
		AutoMaxScore:         model.AutoMaxScore,
		AutoPercentage:       model.AutoPercentage,
		PracticalSubmissions: model.PracticalSubmissions,
		ReviewerID:           model.ReviewerID,
		ReviewedAt:           model.ReviewedAt,
		ReviewDecision:       model.ReviewDecision,
		ReviewReason:         model.ReviewReason,
		ReviewStars:          model.ReviewStars,
		FinalScore:           model.FinalScore,
		FinalPercentage:      model.FinalPercentage,
		Passed:               model.Passed,
		SubmittedAt:          model.SubmittedAt,
		CreatedAt:            model.CreatedAt,
		UpdatedAt:            model.UpdatedAt,
	}

	if response.AutoAnswers == nil {
		response.AutoAnswers = map[string]any{}
	}
	if response.PracticalSubmissions == nil {
		response.PracticalSubmissions = []models.PracticalSubmission{}
	}

	if model.Test.ID != uuid.Nil {
		response.Test = &TestLite{
			ID:             model.Test.ID,
			Title:          model.Test.Title,
			PassPercentage: model.Test.EffectivePassPercentage(),
		}
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(submissions []models.TestSubmission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}

// ToPracticalSubmissions converts payloads into the stored artifact form,
// defaulting each artifact's review status to pending.
func ToPracticalSubmissions(payloads []PracticalSubmissionPayload) []models.PracticalSubmission {
	artifacts := make([]models.PracticalSubmission, 0, len(payloads))
	for _, payload := range payloads {
		status := payload.ReviewStatus
		if status == "" {
			status = models.PracticalPending
		}
		artifacts = append(artifacts, models.PracticalSubmission{
			BlockID:         payload.BlockID,
			Type:            payload.Type,
			FileURL:         payload.FileURL,
			FileName:        payload.FileName,
			FileSize:        payload.FileSize,
			FilePath:        payload.FilePath,
			UserExplanation: payload.UserExplanation,
			ReviewStatus:    status,
		})
	}

	return artifacts
}
