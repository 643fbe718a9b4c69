package handler

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/curbside-labs/lotwatch/internal/domain"
	"github.com/curbside-labs/lotwatch/internal/ingest"
)

// EventGateway ingests vendor deliveries.
type EventGateway interface {
	Ingest(ctx context.Context, event ingest.VendorEvent) (*ingest.Result, error)
}

// EventReader serves the recent-event audit listing.
type EventReader interface {
	ListRecent(ctx context.Context, limit int) ([]domain.IngestionEvent, error)
}

type EventsHandler struct {
	gateway EventGateway
	events  EventReader
	logger  *slog.Logger
}

func NewEventsHandler(gateway EventGateway, events EventReader, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		gateway: gateway,
		events:  events,
		logger:  logger,
	}
}

// Ingest POST /v1/events - vendor LPR webhook
func (h *EventsHandler) Ingest(c *fiber.Ctx) error {
	var event ingest.VendorEvent
	if err := c.BodyParser(&event); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	// Keep the raw delivery for the audit trail.
	event.RawPayload = append([]byte(nil), c.Body()...)

	result, err := h.gateway.Ingest(c.Context(), event)
	if err != nil {
		return err
	}

	status := fiber.StatusAccepted
	if result.Duplicate {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(result)
}

// List GET /v1/events - most recent deliveries
func (h *EventsHandler) List(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit"))

	events, err := h.events.ListRecent(c.Context(), limit)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"events": events})
}
