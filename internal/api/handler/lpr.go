package handler

import (
	"io"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/curbside-labs/lotwatch/internal/domain"
	"github.com/curbside-labs/lotwatch/internal/lpr"
)

const maxUploadSize = 5 * 1024 * 1024 // Rekognition limit

var validImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

type LPRHandler struct {
	recognizer lpr.Recognizer
	logger     *slog.Logger
}

func NewLPRHandler(recognizer lpr.Recognizer, logger *slog.Logger) *LPRHandler {
	return &LPRHandler{
		recognizer: recognizer,
		logger:     logger,
	}
}

// Recognize POST /v1/lpr/recognize - read a plate from an uploaded snapshot
func (h *LPRHandler) Recognize(c *fiber.Ctx) error {
	imageBytes, err := extractAndValidateImage(c)
	if err != nil {
		return err
	}

	reading, err := h.recognizer.Recognize(c.Context(), imageBytes)
	if err != nil {
		return err
	}

	return c.JSON(reading)
}

func extractAndValidateImage(c *fiber.Ctx) ([]byte, error) {
	// 1. Extract file
	file, err := c.FormFile("image")
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(err)
	}

	// 2. Validate size
	if file.Size > maxUploadSize {
		return nil, domain.ErrInvalidImage.WithError(nil)
	}

	if file.Size == 0 {
		return nil, domain.ErrInvalidImage.WithError(nil)
	}

	// 3. Validate Content-Type
	contentType := file.Header.Get("Content-Type")
	if !validImageTypes[contentType] {
		return nil, domain.ErrInvalidImage.WithError(nil)
	}

	// 4. Read image bytes
	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	imageBytes, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	return imageBytes, nil
}
