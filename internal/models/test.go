package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Default values applied when a test leaves the corresponding field unset.
const (
	DefaultPassPercentage = 80
	DefaultMaxAttempts    = 3
	DefaultBlockPoints    = 10
)

// BlockType discriminates the content payload of a test block.
type BlockType string

const (
	BlockMultipleChoice BlockType = "MULTIPLE_CHOICE"
	BlockMultipleSelect BlockType = "MULTIPLE_SELECT"
	BlockTrueFalse      BlockType = "TRUE_FALSE"
	BlockShortText      BlockType = "SHORT_TEXT"
	BlockLongText       BlockType = "LONG_TEXT"
	BlockFillBlanks     BlockType = "FILL_BLANKS"
	BlockOrdering       BlockType = "ORDERING"
	BlockMatching       BlockType = "MATCHING"
	BlockSlider         BlockType = "SLIDER"
	BlockFileUpload     BlockType = "FILE_UPLOAD"
	BlockVideo          BlockType = "VIDEO"
)

// IsAutoGradable reports whether the block can be scored without a human reviewer.
func (t BlockType) IsAutoGradable() bool {
	switch t {
	case BlockMultipleChoice, BlockMultipleSelect, BlockTrueFalse, BlockShortText:
		return true
	default:
		return false
	}
}

// IsPractical reports whether the block requires an uploaded artifact.
func (t BlockType) IsPractical() bool {
	return t == BlockFileUpload || t == BlockVideo
}

// Test is a named assessment owned by an organization. Its definition is
// read-only from the submission workflow's perspective.
type Test struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID   *uuid.UUID `gorm:"type:uuid;index" json:"organizationId"`
	Title            string     `gorm:"size:300;not null" json:"title"`
	Description      string     `gorm:"size:2000" json:"description"`
	PassPercentage   int        `gorm:"not null;default:80" json:"passPercentage"`
	RewardCoins      int        `gorm:"not null;default:0" json:"rewardCoins"`
	MaxAttempts      int        `gorm:"not null;default:3" json:"maxAttempts"`
	TimeLimitMinutes *int       `json:"timeLimitMinutes"`
	IsActive         bool       `gorm:"not null;default:true" json:"isActive"`
	CreatedBy        *uuid.UUID `gorm:"type:uuid" json:"createdBy"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (t *Test) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// EffectivePassPercentage returns the configured threshold or the default.
func (t Test) EffectivePassPercentage() int {
	if t.PassPercentage <= 0 {
		return DefaultPassPercentage
	}
	return t.PassPercentage
}

// EffectiveMaxAttempts returns the configured attempt ceiling or the default.
func (t Test) EffectiveMaxAttempts() int {
	if t.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return t.MaxAttempts
}

// TestBlock is one graded item of a test. Content is a JSON payload whose
// shape depends on Type; submissions reference blocks by id and never copy
// them.
type TestBlock struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TestID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"testId"`
	Type             BlockType      `gorm:"size:32;not null" json:"type"`
	Title            string         `gorm:"size:500;not null" json:"title"`
	Description      string         `gorm:"size:2000" json:"description"`
	Content          datatypes.JSON `json:"content"`
	Points           int            `gorm:"not null;default:10" json:"points"`
	IsRequired       bool           `gorm:"not null;default:true" json:"isRequired"`
	TimeLimitSeconds *int           `json:"timeLimitSeconds"`
	Position         int            `gorm:"not null;default:0" json:"position"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	Test             Test           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (b *TestBlock) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// EffectivePoints returns the block's point value or the default.
func (b TestBlock) EffectivePoints() int {
	if b.Points <= 0 {
		return DefaultBlockPoints
	}
	return b.Points
}
