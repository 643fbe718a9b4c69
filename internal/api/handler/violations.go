package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/curbside-labs/lotwatch/internal/domain"
)

// ViolationService manages citations and their settlement.
type ViolationService interface {
	Issue(ctx context.Context, v *domain.Violation) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Violation, error)
	Settle(ctx context.Context, id uuid.UUID, paymentRef string) (*domain.Violation, error)
	Dismiss(ctx context.Context, id uuid.UUID) (*domain.Violation, error)
	List(ctx context.Context, plate, status string, lotID *uuid.UUID) ([]domain.Violation, error)
}

type ViolationsHandler struct {
	service ViolationService
	logger  *slog.Logger
}

func NewViolationsHandler(service ViolationService, logger *slog.Logger) *ViolationsHandler {
	return &ViolationsHandler{
		service: service,
		logger:  logger,
	}
}

type IssueViolationRequest struct {
	LicensePlate string    `json:"license_plate"`
	LotID        uuid.UUID `json:"lot_id"`
	Reason       string    `json:"reason"`
	Amount       float64   `json:"amount"`
}

type SettleViolationRequest struct {
	PaymentRef string `json:"payment_ref"`
}

// Issue POST /v1/violations - manual staff citation
func (h *ViolationsHandler) Issue(c *fiber.Ctx) error {
	var req IssueViolationRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	violation := &domain.Violation{
		LicensePlate: req.LicensePlate,
		LotID:        req.LotID,
		Reason:       req.Reason,
		Amount:       req.Amount,
		Source:       domain.ViolationSourceStaff,
	}

	if err := h.service.Issue(c.Context(), violation); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(violation)
}

// Get GET /v1/violations/:id
func (h *ViolationsHandler) Get(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	violation, err := h.service.Get(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(violation)
}

// List GET /v1/violations?license_plate=&status=&lot_id=
func (h *ViolationsHandler) List(c *fiber.Ctx) error {
	var lotID *uuid.UUID
	if raw := c.Query("lot_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return domain.ErrValidationFailed
		}
		lotID = &parsed
	}

	violations, err := h.service.List(c.Context(), c.Query("license_plate"), c.Query("status"), lotID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"violations": violations})
}

// Settle POST /v1/violations/:id/settle
func (h *ViolationsHandler) Settle(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var req SettleViolationRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	violation, err := h.service.Settle(c.Context(), id, req.PaymentRef)
	if err != nil {
		return err
	}

	return c.JSON(violation)
}

// Dismiss POST /v1/violations/:id/dismiss
func (h *ViolationsHandler) Dismiss(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	violation, err := h.service.Dismiss(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(violation)
}
