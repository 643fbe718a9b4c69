package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/curbside-labs/lotwatch/internal/domain"
)

// PermitService manages standing parking authorizations.
type PermitService interface {
	Create(ctx context.Context, permit *domain.Permit) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Permit, error)
	ListByPlate(ctx context.Context, plate string) ([]domain.Permit, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*domain.Permit, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type PermitsHandler struct {
	service PermitService
	logger  *slog.Logger
}

func NewPermitsHandler(service PermitService, logger *slog.Logger) *PermitsHandler {
	return &PermitsHandler{
		service: service,
		logger:  logger,
	}
}

type CreatePermitRequest struct {
	Type         string     `json:"type"`
	LicensePlate string     `json:"license_plate"`
	GlobalAccess bool       `json:"global_access"`
	LotID        *uuid.UUID `json:"lot_id,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// Create POST /v1/permits
func (h *PermitsHandler) Create(c *fiber.Ctx) error {
	var req CreatePermitRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	permit := &domain.Permit{
		Type:         req.Type,
		LicensePlate: req.LicensePlate,
		GlobalAccess: req.GlobalAccess,
		LotID:        req.LotID,
		ExpiresAt:    req.ExpiresAt,
	}

	if err := h.service.Create(c.Context(), permit); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(permit)
}

// Get GET /v1/permits/:id
func (h *PermitsHandler) Get(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	permit, err := h.service.Get(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(permit)
}

// List GET /v1/permits?license_plate=
func (h *PermitsHandler) List(c *fiber.Ctx) error {
	permits, err := h.service.ListByPlate(c.Context(), c.Query("license_plate"))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"permits": permits})
}

// Deactivate POST /v1/permits/:id/deactivate
func (h *PermitsHandler) Deactivate(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	permit, err := h.service.Deactivate(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(permit)
}

// Delete DELETE /v1/permits/:id - hard delete, audit trail is lost
func (h *PermitsHandler) Delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func parseIDParam(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, domain.ErrValidationFailed.WithError(errors.New("id must be a valid UUID"))
	}
	return id, nil
}
