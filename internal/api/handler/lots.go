package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/curbside-labs/lotwatch/internal/domain"
	"github.com/curbside-labs/lotwatch/internal/pricing"
)

// LotRegistry is the facility registry behind the lot endpoints.
type LotRegistry interface {
	Create(ctx context.Context, lot *domain.ParkingLot) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ParkingLot, error)
	List(ctx context.Context) ([]domain.ParkingLot, error)
}

// RateResolver quotes the effective hourly rate for a lot.
type RateResolver interface {
	CurrentRate(ctx context.Context, lotID uuid.UUID, at time.Time) (*pricing.RateQuote, error)
}

type LotsHandler struct {
	lots   LotRegistry
	rates  RateResolver
	logger *slog.Logger
}

func NewLotsHandler(lots LotRegistry, rates RateResolver, logger *slog.Logger) *LotsHandler {
	return &LotsHandler{
		lots:   lots,
		rates:  rates,
		logger: logger,
	}
}

type CreateLotRequest struct {
	VendorLotID string `json:"vendor_lot_id"`
	Name        string `json:"name"`
	Capacity    int    `json:"capacity"`
}

type LotResponse struct {
	*domain.ParkingLot
	AvailableSpaces  int     `json:"available_spaces"`
	OccupancyPercent float64 `json:"occupancy_percent"`
}

func newLotResponse(lot *domain.ParkingLot) LotResponse {
	return LotResponse{
		ParkingLot:       lot,
		AvailableSpaces:  lot.AvailableSpaces(),
		OccupancyPercent: lot.OccupancyPercent(),
	}
}

// Create POST /v1/lots
func (h *LotsHandler) Create(c *fiber.Ctx) error {
	var req CreateLotRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}
	if req.VendorLotID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("vendor_lot_id is required"))
	}

	lot := &domain.ParkingLot{
		VendorLotID: req.VendorLotID,
		Name:        req.Name,
		Capacity:    req.Capacity,
	}
	if err := lot.Validate(); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	if err := h.lots.Create(c.Context(), lot); err != nil {
		return err
	}

	h.logger.Info("lot registered",
		"lot_id", lot.ID,
		"vendor_lot_id", lot.VendorLotID,
		"capacity", lot.Capacity,
	)

	return c.Status(fiber.StatusCreated).JSON(newLotResponse(lot))
}

// Get GET /v1/lots/:id
func (h *LotsHandler) Get(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	lot, err := h.lots.GetByID(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(newLotResponse(lot))
}

// List GET /v1/lots
func (h *LotsHandler) List(c *fiber.Ctx) error {
	lots, err := h.lots.List(c.Context())
	if err != nil {
		return err
	}

	responses := make([]LotResponse, 0, len(lots))
	for i := range lots {
		responses = append(responses, newLotResponse(&lots[i]))
	}

	return c.JSON(fiber.Map{"lots": responses})
}

// Rate GET /v1/lots/:id/rate?at= - effective hourly rate quote
func (h *LotsHandler) Rate(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	at := time.Now().UTC()
	if raw := c.Query("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return domain.ErrValidationFailed.WithError(errors.New("at must be an RFC 3339 timestamp"))
		}
		at = parsed
	}

	quote, err := h.rates.CurrentRate(c.Context(), id, at)
	if err != nil {
		return err
	}

	return c.JSON(quote)
}
