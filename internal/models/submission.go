package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubmissionStatus is the lifecycle state of a test submission.
type SubmissionStatus string

const (
	// StatusDraft means the learner is still editing the submission.
	StatusDraft SubmissionStatus = "DRAFT"
	// StatusPendingReview means the submission awaits a human reviewer.
	StatusPendingReview SubmissionStatus = "PENDING_REVIEW"
	// StatusNeedsRevision means the reviewer sent the work back; the learner
	// must start a new attempt rather than edit this submission.
	StatusNeedsRevision SubmissionStatus = "NEEDS_REVISION"
	// StatusApproved is terminal: the learner passed.
	StatusApproved SubmissionStatus = "APPROVED"
	// StatusFailed is terminal: the learner failed this attempt.
	StatusFailed SubmissionStatus = "FAILED"
)

// IsTerminal reports whether the status permits no further transitions.
func (s SubmissionStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusFailed
}

// Review decisions a reviewer may record on a pending submission.
const (
	DecisionApprove       = "approve"
	DecisionNeedsRevision = "needs_revision"
	DecisionFail          = "fail"
)

// Review statuses of a single practical artifact.
const (
	PracticalPending  = "pending"
	PracticalApproved = "approved"
	PracticalRejected = "rejected"
)

// PracticalSubmission is one uploaded artifact tied to a practical block.
// Artifacts are stored as a JSON array on their parent submission.
type PracticalSubmission struct {
	BlockID         uuid.UUID `json:"blockId"`
	Type            string    `json:"type"`
	FileURL         string    `json:"fileUrl"`
	FileName        string    `json:"fileName,omitempty"`
	FileSize        int64     `json:"fileSize,omitempty"`
	FilePath        string    `json:"filePath,omitempty"`
	UserExplanation string    `json:"userExplanation,omitempty"`
	ReviewStatus    string    `json:"reviewStatus"`
}

// TestSubmission is one learner's attempt at a test.
type TestSubmission struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	TestID        uuid.UUID        `gorm:"type:uuid;not null;index:idx_submissions_test_user" json:"testId"`
	UserID        uuid.UUID        `gorm:"type:uuid;not null;index:idx_submissions_test_user" json:"userId"`
	VideoID       *uuid.UUID       `gorm:"type:uuid" json:"videoId"`
	Status        SubmissionStatus `gorm:"size:32;not null;default:DRAFT;index" json:"status"`
	AttemptNumber int              `gorm:"not null;default:1" json:"attemptNumber"`

	AutoAnswers    datatypes.JSONMap `json:"autoAnswers"`
	AutoScore      float64           `gorm:"not null;default:0" json:"autoScore"`
	AutoMaxScore   float64           `gorm:"not null;default:0" json:"autoMaxScore"`
	AutoPercentage float64           `gorm:"not null;default:0" json:"autoPercentage"`

	PracticalSubmissions datatypes.JSONSlice[PracticalSubmission] `json:"practicalSubmissions"`

	ReviewerID     *uuid.UUID `gorm:"type:uuid" json:"reviewerId"`
	ReviewedAt     *time.Time `json:"reviewedAt"`
	ReviewDecision *string    `gorm:"size:32" json:"reviewDecision"`
	ReviewReason   string     `gorm:"size:2000" json:"reviewReason"`
	ReviewStars    *int       `json:"reviewStars"`

	FinalScore      int  `gorm:"not null;default:0" json:"finalScore"`
	FinalPercentage int  `gorm:"not null;default:0" json:"finalPercentage"`
	Passed          bool `gorm:"not null;default:false" json:"passed"`

	SubmittedAt *time.Time `json:"submittedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	Test Test `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (s *TestSubmission) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// IsDraft reports whether the learner may still edit the submission.
func (s TestSubmission) IsDraft() bool {
	return s.Status == StatusDraft
}
