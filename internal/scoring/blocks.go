package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/browoko/assessment-api/internal/models"
)

// ErrUnknownBlockType indicates a block type outside the supported set.
var ErrUnknownBlockType = errors.New("unknown block type")

// Content is the decoded payload of a test block. The concrete type depends
// on the block type; ParseContent is the only constructor.
type Content interface {
	blockContent()
}

// AutoGradable is implemented by content kinds that can be scored by
// comparison alone. Grade never panics; a malformed answer is simply wrong.
type AutoGradable interface {
	Content
	Grade(answer any) bool
}

// MultipleChoiceContent holds a single correct option.
type MultipleChoiceContent struct {
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// MultipleSelectContent holds the full set of correct options. A learner must
// select all of them and nothing else.
type MultipleSelectContent struct {
	Options        []string `json:"options"`
	CorrectAnswers []string `json:"correctAnswer"`
}

// TrueFalseContent holds a boolean correct answer.
type TrueFalseContent struct {
	CorrectAnswer bool `json:"correctAnswer"`
}

// ShortTextContent holds the expected answer text.
type ShortTextContent struct {
	CorrectAnswer string `json:"correctAnswer"`
}

// LongTextContent describes a free-text block; graded by a human, if at all.
type LongTextContent struct {
	Placeholder string `json:"placeholder,omitempty"`
	MinLength   int    `json:"minLength,omitempty"`
}

// FillBlanksContent describes a cloze text.
type FillBlanksContent struct {
	Template string   `json:"template"`
	Blanks   []string `json:"blanks,omitempty"`
}

// OrderingContent describes items to be arranged.
type OrderingContent struct {
	Items []string `json:"items"`
}

// MatchingContent describes pairs to be matched.
type MatchingContent struct {
	Pairs []MatchingPair `json:"pairs"`
}

// MatchingPair is one left/right association of a matching block.
type MatchingPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// SliderContent describes a numeric scale.
type SliderContent struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step,omitempty"`
}

// FileUploadContent describes an artifact upload requirement.
type FileUploadContent struct {
	Instructions string   `json:"instructions,omitempty"`
	AcceptTypes  []string `json:"acceptTypes,omitempty"`
}

// VideoContent describes a video artifact requirement.
type VideoContent struct {
	Instructions   string `json:"instructions,omitempty"`
	MaxDurationSec int    `json:"maxDurationSec,omitempty"`
}

func (MultipleChoiceContent) blockContent() {}
func (MultipleSelectContent) blockContent() {}
func (TrueFalseContent) blockContent()      {}
func (ShortTextContent) blockContent()      {}
func (LongTextContent) blockContent()       {}
func (FillBlanksContent) blockContent()     {}
func (OrderingContent) blockContent()       {}
func (MatchingContent) blockContent()       {}
func (SliderContent) blockContent()         {}
func (FileUploadContent) blockContent()     {}
func (VideoContent) blockContent()          {}

// ParseContent decodes the raw JSON payload of a block into its typed form.
// The switch is exhaustive over models.BlockType so that adding a block type
// is a compile-visible change here.
func ParseContent(blockType models.BlockType, raw []byte) (Content, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	decode := func(dst Content) (Content, error) {
		if err := json.Unmarshal(raw, dst); err != nil {
			return nil, fmt.Errorf("decode %s content: %w", blockType, err)
		}
		return dst, nil
	}

	switch blockType {
	case models.BlockMultipleChoice:
		return decode(&MultipleChoiceContent{})
	case models.BlockMultipleSelect:
		return decode(&MultipleSelectContent{})
	case models.BlockTrueFalse:
		return decode(&TrueFalseContent{})
	case models.BlockShortText:
		return decode(&ShortTextContent{})
	case models.BlockLongText:
		return decode(&LongTextContent{})
	case models.BlockFillBlanks:
		return decode(&FillBlanksContent{})
	case models.BlockOrdering:
		return decode(&OrderingContent{})
	case models.BlockMatching:
		return decode(&MatchingContent{})
	case models.BlockSlider:
		return decode(&SliderContent{})
	case models.BlockFileUpload:
		return decode(&FileUploadContent{})
	case models.BlockVideo:
		return decode(&VideoContent{})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBlockType, blockType)
	}
}

// Grade checks exact value equality against the stored option.
func (c *MultipleChoiceContent) Grade(answer any) bool {
	if c.CorrectAnswer == "" {
		return false
	}
	value, ok := scalarString(answer)
	return ok && value == c.CorrectAnswer
}

// Grade checks set equality: same elements, order and repetition irrelevant.
// Both sides are reduced to sets before comparing so that repeating one
// correct option cannot stand in for a missing one.
func (c *MultipleSelectContent) Grade(answer any) bool {
	if len(c.CorrectAnswers) == 0 {
		return false
	}
	selected, ok := stringSlice(answer)
	if !ok {
		return false
	}

	want := make(map[string]struct{}, len(c.CorrectAnswers))
	for _, v := range c.CorrectAnswers {
		want[v] = struct{}{}
	}
	got := make(map[string]struct{}, len(selected))
	for _, v := range selected {
		got[v] = struct{}{}
	}
	if len(got) != len(want) {
		return false
	}
	for v := range got {
		if _, found := want[v]; !found {
			return false
		}
	}
	return true
}

// Grade checks boolean equality, accepting "true"/"false" strings as well.
func (c *TrueFalseContent) Grade(answer any) bool {
	switch v := answer.(type) {
	case bool:
		return v == c.CorrectAnswer
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && parsed == c.CorrectAnswer
	default:
		return false
	}
}

// Grade compares case-insensitively after trimming surrounding whitespace.
func (c *ShortTextContent) Grade(answer any) bool {
	if strings.TrimSpace(c.CorrectAnswer) == "" {
		return false
	}
	value, ok := scalarString(answer)
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(value), strings.TrimSpace(c.CorrectAnswer))
}

// scalarString coerces JSON scalars to their string form for comparison.
func scalarString(v any) (string, bool) {
	switch value := v.(type) {
	case string:
		return value, true
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(value), true
	default:
		return "", false
	}
}

func stringSlice(v any) ([]string, bool) {
	switch value := v.(type) {
	case []string:
		return value, true
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			s, ok := scalarString(item)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
