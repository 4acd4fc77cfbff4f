// Package scoring grades auto-answerable test blocks and combines the
// automatic and practical components into a final verdict. All functions are
// pure and total: every well-formed input yields a numeric result, including
// an empty block set.
package scoring

import (
	"math"

	"github.com/browoko/assessment-api/internal/models"
)

// Weights of the two scoring components. The practical component is binary
// for a whole submission; individual artifact review statuses do not feed
// into the final score.
const (
	autoWeight      = 0.6
	practicalWeight = 0.4
)

// AutoScore is the result of grading the auto-gradable blocks.
type AutoScore struct {
	Score      float64
	MaxScore   float64
	Percentage float64
}

// FinalScore is the combined verdict for a submission.
type FinalScore struct {
	Score      int
	Percentage int
	Passed     bool
}

// ComputeAutoScore grades the learner's answers against the auto-gradable
// blocks of a test. Every auto-gradable block contributes its points to
// MaxScore whether or not it was answered; a missing answer or missing
// correct-answer configuration scores zero for that block.
func ComputeAutoScore(blocks []models.TestBlock, answers map[string]any) AutoScore {
	var score, maxScore float64

	for _, block := range blocks {
		if !block.Type.IsAutoGradable() {
			continue
		}

		points := float64(block.EffectivePoints())
		maxScore += points

		answer, answered := answers[block.ID.String()]
		if !answered || answer == nil {
			continue
		}

		content, err := ParseContent(block.Type, block.Content)
		if err != nil {
			continue
		}
		gradable, ok := content.(AutoGradable)
		if !ok {
			continue
		}
		if gradable.Grade(answer) {
			score += points
		}
	}

	percentage := 0.0
	if maxScore > 0 {
		percentage = score / maxScore * 100
	}

	return AutoScore{Score: score, MaxScore: maxScore, Percentage: percentage}
}

// ComputeFinalScore combines the automatic percentage with the binary
// practical component (100 when every artifact was approved as a whole,
// otherwise 0) using the fixed 60/40 weighting. The pass comparison uses the
// unrounded percentage, so a value exactly at the threshold passes.
func ComputeFinalScore(autoPercentage float64, practicalPassed bool, passPercentage int) FinalScore {
	if passPercentage <= 0 {
		passPercentage = models.DefaultPassPercentage
	}

	practical := 0.0
	if practicalPassed {
		practical = 100
	}

	raw := autoPercentage*autoWeight + practical*practicalWeight
	rounded := roundHalfUp(raw)

	return FinalScore{
		Score:      rounded,
		Percentage: rounded,
		Passed:     raw >= float64(passPercentage),
	}
}

// HasPracticalBlocks reports whether any block requires an uploaded artifact.
func HasPracticalBlocks(blocks []models.TestBlock) bool {
	for _, block := range blocks {
		if block.Type.IsPractical() {
			return true
		}
	}
	return false
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
