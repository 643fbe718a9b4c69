package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/curbside-labs/lotwatch/internal/authorize"
	"github.com/curbside-labs/lotwatch/internal/domain"
)

// AuthorizationEngine answers "may this plate park here right now".
type AuthorizationEngine interface {
	Authorize(ctx context.Context, plate string, lotID uuid.UUID) (*authorize.Decision, error)
}

// LotResolver maps vendor lot identifiers to registry entries.
type LotResolver interface {
	GetByVendorID(ctx context.Context, vendorLotID string) (*domain.ParkingLot, error)
}

type AuthorizeHandler struct {
	engine AuthorizationEngine
	lots   LotResolver
	logger *slog.Logger
}

func NewAuthorizeHandler(engine AuthorizationEngine, lots LotResolver, logger *slog.Logger) *AuthorizeHandler {
	return &AuthorizeHandler{
		engine: engine,
		lots:   lots,
		logger: logger,
	}
}

type AuthorizeRequest struct {
	LicensePlate string `json:"license_plate"`
	LotID        string `json:"lot_id,omitempty"`
	VendorLotID  string `json:"vendor_lot_id,omitempty"`
}

// Authorize POST /v1/authorize - authorization query for gate hardware and staff
func (h *AuthorizeHandler) Authorize(c *fiber.Ctx) error {
	var req AuthorizeRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	lotID, err := h.resolveLot(c.Context(), req)
	if err != nil {
		return err
	}

	decision, err := h.engine.Authorize(c.Context(), req.LicensePlate, lotID)
	if err != nil {
		return err
	}

	return c.JSON(decision)
}

func (h *AuthorizeHandler) resolveLot(ctx context.Context, req AuthorizeRequest) (uuid.UUID, error) {
	if req.LotID != "" {
		lotID, err := uuid.Parse(req.LotID)
		if err != nil {
			return uuid.Nil, domain.ErrValidationFailed.WithError(errors.New("lot_id must be a valid UUID"))
		}
		return lotID, nil
	}

	if req.VendorLotID != "" {
		lot, err := h.lots.GetByVendorID(ctx, req.VendorLotID)
		if err != nil {
			return uuid.Nil, err
		}
		return lot.ID, nil
	}

	return uuid.Nil, domain.ErrValidationFailed.WithError(errors.New("lot_id or vendor_lot_id is required"))
}
