package lpr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/aws/smithy-go"

	"github.com/curbside-labs/lotwatch/internal/domain"
)

const (
	errCodeInvalidImageFormat = "InvalidImageFormatException"
	errCodeImageTooLarge      = "ImageTooLargeException"
	errCodeInvalidParameter   = "InvalidParameterException"
)

// textDetector is the slice of the Rekognition API the recognizer needs.
type textDetector interface {
	DetectText(ctx context.Context, input *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// RekognitionRecognizer reads plates with the AWS Rekognition DetectText API.
type RekognitionRecognizer struct {
	detector textDetector
	logger   *slog.Logger
}

// Ensure RekognitionRecognizer implements Recognizer at compile time
var _ Recognizer = (*RekognitionRecognizer)(nil)

// NewRekognitionRecognizer builds a recognizer against the given AWS region.
// It uses the AWS default credential chain to authenticate.
func NewRekognitionRecognizer(ctx context.Context, region string, logger *slog.Logger) (*RekognitionRecognizer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &RekognitionRecognizer{
		detector: rekognition.NewFromConfig(awsCfg),
		logger:   logger,
	}, nil
}

// Recognize runs DetectText over the image and returns the plate-shaped LINE
// detection with the highest confidence. WORD detections are skipped because
// vendors print plates as a single line and words split stacked state names
// into false candidates.
func (r *RekognitionRecognizer) Recognize(ctx context.Context, image []byte) (*Reading, error) {
	if err := validateImage(image); err != nil {
		return nil, err
	}

	input := &rekognition.DetectTextInput{
		Image: &types.Image{
			Bytes: image,
		},
		Filters: &types.DetectTextFilters{
			WordFilter: &types.DetectionFilter{
				MinConfidence: aws.Float32(minConfidence),
			},
		},
	}

	output, err := r.detector.DetectText(ctx, input)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case errCodeInvalidImageFormat, errCodeImageTooLarge, errCodeInvalidParameter:
				return nil, domain.ErrInvalidImage.WithError(err)
			}
		}
		return nil, fmt.Errorf("detect text: %w", err)
	}

	best := bestPlate(output.TextDetections)
	if best == nil {
		r.logger.Info("no plate candidate in image",
			"detections", len(output.TextDetections),
			"image_size", len(image),
		)
		return nil, domain.ErrNoPlateDetected
	}

	r.logger.Info("plate recognized",
		"license_plate", best.LicensePlate,
		"confidence", best.Confidence,
	)

	return best, nil
}

func bestPlate(detections []types.TextDetection) *Reading {
	var best *Reading
	for _, detection := range detections {
		if detection.Type != types.TextTypesLine {
			continue
		}
		if detection.DetectedText == nil || detection.Confidence == nil {
			continue
		}

		plate, ok := plateCandidate(*detection.DetectedText)
		if !ok {
			continue
		}

		confidence := float64(*detection.Confidence)
		if confidence < minConfidence {
			continue
		}

		if best == nil || confidence > best.Confidence {
			best = &Reading{LicensePlate: plate, Confidence: confidence}
		}
	}
	return best
}
