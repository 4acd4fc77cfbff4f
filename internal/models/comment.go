package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CommentType distinguishes the two anchor addressing schemes.
type CommentType string

const (
	// CommentImage anchors to a 2-D point on an image, in percent of width/height.
	CommentImage CommentType = "image"
	// CommentVideo anchors to a timestamp, in seconds into the video.
	CommentVideo CommentType = "video"
)

// ReviewComment is a reviewer annotation on exactly one practical artifact.
// Comments are immutable once created; editing is delete-and-recreate.
type ReviewComment struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	SubmissionID uuid.UUID   `gorm:"type:uuid;not null;index" json:"submissionId"`
	BlockID      uuid.UUID   `gorm:"type:uuid;not null;index" json:"blockId"`
	ReviewerID   uuid.UUID   `gorm:"type:uuid;not null" json:"reviewerId"`
	Type         CommentType `gorm:"size:16;not null" json:"type"`

	// Spatial anchor, set for image comments only.
	PositionX *float64 `json:"positionX"`
	PositionY *float64 `json:"positionY"`

	// Temporal anchor, set for video comments only.
	Timestamp *float64 `gorm:"column:video_timestamp" json:"timestamp"`

	Text      string    `gorm:"size:1000;not null" json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (c *ReviewComment) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
