package service

import (
	"fmt"

	"github.com/browoko/assessment-api/internal/models"
)

// commentAnchor validates and normalizes a comment's anchor: exactly one of
// the spatial pair (both coordinates, clamped to [0,100]) or the temporal
// offset. The two anchor kinds are never mixed on one comment.
func commentAnchor(kind string, posX, posY, timestamp *float64) (models.CommentType, *float64, *float64, *float64, error) {
	switch kind {
	case string(models.CommentImage):
		if posX == nil || posY == nil {
			return "", nil, nil, nil, fmt.Errorf("%w: image comments require both positionX and positionY", ErrValidation)
		}
		if timestamp != nil {
			return "", nil, nil, nil, fmt.Errorf("%w: image comments must not carry a timestamp", ErrValidation)
		}
		x := clampPercent(*posX)
		y := clampPercent(*posY)
		return models.CommentImage, &x, &y, nil, nil
	case string(models.CommentVideo):
		if timestamp == nil {
			return "", nil, nil, nil, fmt.Errorf("%w: video comments require a timestamp", ErrValidation)
		}
		if posX != nil || posY != nil {
			return "", nil, nil, nil, fmt.Errorf("%w: video comments must not carry a position", ErrValidation)
		}
		if *timestamp < 0 {
			return "", nil, nil, nil, fmt.Errorf("%w: timestamp must not be negative", ErrValidation)
		}
		ts := *timestamp
		return models.CommentVideo, nil, nil, &ts, nil
	default:
		return "", nil, nil, nil, fmt.Errorf("%w: unknown comment type %q", ErrValidation, kind)
	}
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
