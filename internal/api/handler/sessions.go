package handler

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/curbside-labs/lotwatch/internal/domain"
	"github.com/curbside-labs/lotwatch/internal/session"
)

// SessionManager drives the session lifecycle for the staff endpoints.
type SessionManager interface {
	Open(ctx context.Context, params session.OpenParams) (*domain.ParkingSession, error)
	Close(ctx context.Context, params session.CloseParams) (*session.CloseResult, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.ParkingSession, error)
	History(ctx context.Context, filter domain.SessionFilter) ([]domain.ParkingSession, error)
	ActiveCounts(ctx context.Context) ([]domain.LotActiveCount, error)
}

type SessionsHandler struct {
	manager SessionManager
	logger  *slog.Logger
}

func NewSessionsHandler(manager SessionManager, logger *slog.Logger) *SessionsHandler {
	return &SessionsHandler{
		manager: manager,
		logger:  logger,
	}
}

type OpenSessionRequest struct {
	LicensePlate string     `json:"license_plate"`
	LotID        uuid.UUID  `json:"lot_id"`
	EntryTime    *time.Time `json:"entry_time,omitempty"`
}

type CloseSessionRequest struct {
	LicensePlate string     `json:"license_plate"`
	LotID        uuid.UUID  `json:"lot_id"`
	ExitTime     *time.Time `json:"exit_time,omitempty"`
}

// Open POST /v1/sessions - staff-initiated session open
func (h *SessionsHandler) Open(c *fiber.Ctx) error {
	var req OpenSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}
	if req.LotID == uuid.Nil {
		return domain.ErrValidationFailed.WithError(errors.New("lot_id is required"))
	}

	params := session.OpenParams{
		LicensePlate: req.LicensePlate,
		LotID:        req.LotID,
	}
	if req.EntryTime != nil {
		params.EntryTime = *req.EntryTime
	}

	// Staff opens are not idempotent: a duplicate is an operator mistake and
	// is surfaced as a conflict.
	opened, err := h.manager.Open(c.Context(), params)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(opened)
}

// Close POST /v1/sessions/close - staff-initiated session close
func (h *SessionsHandler) Close(c *fiber.Ctx) error {
	var req CloseSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}
	if req.LotID == uuid.Nil {
		return domain.ErrValidationFailed.WithError(errors.New("lot_id is required"))
	}

	params := session.CloseParams{
		LicensePlate: req.LicensePlate,
		LotID:        req.LotID,
	}
	if req.ExitTime != nil {
		params.ExitTime = *req.ExitTime
	}

	result, err := h.manager.Close(c.Context(), params)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

// Get GET /v1/sessions/:id
func (h *SessionsHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return domain.ErrValidationFailed.WithError(errors.New("session id must be a valid UUID"))
	}

	found, err := h.manager.Get(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(found)
}

// List GET /v1/sessions - session history with filters
func (h *SessionsHandler) List(c *fiber.Ctx) error {
	filter := domain.SessionFilter{
		LicensePlate: c.Query("license_plate"),
		Status:       c.Query("status"),
	}

	if raw := c.Query("lot_id"); raw != "" {
		lotID, err := uuid.Parse(raw)
		if err != nil {
			return domain.ErrValidationFailed.WithError(errors.New("lot_id must be a valid UUID"))
		}
		filter.LotID = &lotID
	}

	var err error
	if filter.From, err = parseTimeQuery(c.Query("from")); err != nil {
		return err
	}
	if filter.To, err = parseTimeQuery(c.Query("to")); err != nil {
		return err
	}

	filter.Limit, _ = strconv.Atoi(c.Query("limit"))

	sessions, err := h.manager.History(c.Context(), filter)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"sessions": sessions})
}

// Active GET /v1/sessions/active - active session counts per lot
func (h *SessionsHandler) Active(c *fiber.Ctx) error {
	counts, err := h.manager.ActiveCounts(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"lots": counts})
}

func parseTimeQuery(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(errors.New("time filters must be RFC 3339 timestamps"))
	}
	return &t, nil
}
