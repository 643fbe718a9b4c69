package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/curbside-labs/lotwatch/internal/domain"
)

// PaymentSettler confirms payment against an open or violation session.
type PaymentSettler interface {
	MarkPaid(ctx context.Context, sessionID uuid.UUID, paymentRef string, amount *float64) (*domain.ParkingSession, error)
	SettleByPlate(ctx context.Context, plate string, lotID uuid.UUID, paymentRef string, amount *float64) (*domain.ParkingSession, error)
}

type PaymentsHandler struct {
	sessions PaymentSettler
	logger   *slog.Logger
}

func NewPaymentsHandler(sessions PaymentSettler, logger *slog.Logger) *PaymentsHandler {
	return &PaymentsHandler{
		sessions: sessions,
		logger:   logger,
	}
}

type PaymentRequest struct {
	SessionID    *uuid.UUID `json:"session_id,omitempty"`
	LicensePlate string     `json:"license_plate,omitempty"`
	LotID        *uuid.UUID `json:"lot_id,omitempty"`
	PaymentRef   string     `json:"payment_ref"`
	Amount       *float64   `json:"amount,omitempty"`
}

// Confirm POST /v1/payments - payment terminal callback
//
// Terminals that know the session send session_id; kiosk flows that only
// know the plate send license_plate + lot_id and settle the active session.
func (h *PaymentsHandler) Confirm(c *fiber.Ctx) error {
	var req PaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	if req.Amount != nil && *req.Amount < 0 {
		return domain.ErrValidationFailed.WithError(errors.New("amount cannot be negative"))
	}

	var (
		settled *domain.ParkingSession
		err     error
	)

	switch {
	case req.SessionID != nil:
		settled, err = h.sessions.MarkPaid(c.Context(), *req.SessionID, req.PaymentRef, req.Amount)
	case req.LotID != nil:
		settled, err = h.sessions.SettleByPlate(c.Context(), req.LicensePlate, *req.LotID, req.PaymentRef, req.Amount)
	default:
		return domain.ErrValidationFailed.WithError(errors.New("session_id or license_plate with lot_id is required"))
	}

	if err != nil {
		return err
	}

	h.logger.Info("payment confirmed",
		"session_id", settled.ID,
		"payment_ref", req.PaymentRef,
	)

	return c.JSON(settled)
}
