package lpr

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/curbside-labs/lotwatch/internal/domain"
)

const (
	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024
	// minImageSize is the minimum image size for valid processing
	minImageSize = 100

	// minConfidence is the floor below which a text detection is ignored
	minConfidence = 70.0
)

// plate candidates are 4 to 8 characters with at least one digit once
// separators are stripped
var platePattern = regexp.MustCompile(`^[A-Z0-9]{4,8}$`)

// Reading is one recognized plate with the provider's confidence score.
type Reading struct {
	LicensePlate string  `json:"license_plate"`
	Confidence   float64 `json:"confidence"`
}

// Recognizer extracts a license plate from a camera frame.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (*Reading, error)
}

// validateImage checks if image data is valid for provider processing
func validateImage(image []byte) error {
	if len(image) == 0 {
		return domain.ErrInvalidImage
	}
	if len(image) < minImageSize {
		return domain.ErrInvalidImage.WithError(fmt.Errorf("image too small (%d bytes, minimum %d)", len(image), minImageSize))
	}
	if len(image) > maxImageSize {
		return domain.ErrInvalidImage.WithError(fmt.Errorf("image too large (%d bytes, maximum %d)", len(image), maxImageSize))
	}
	return nil
}

// plateCandidate normalizes a detected text line and reports whether it looks
// like a plate. Separators are stripped before matching so "ABC-123" and
// "ABC 123" both resolve to ABC123.
func plateCandidate(text string) (string, bool) {
	normalized := strings.ToUpper(text)
	normalized = strings.NewReplacer(" ", "", "-", "", ".", "").Replace(normalized)

	if !platePattern.MatchString(normalized) {
		return "", false
	}
	if !strings.ContainsAny(normalized, "0123456789") {
		return "", false
	}
	return normalized, true
}
