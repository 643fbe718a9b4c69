package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/curbside-labs/lotwatch/internal/domain"
)

// PricingRuleStore manages the rate windows the resolver picks from.
type PricingRuleStore interface {
	Create(ctx context.Context, rule *domain.PricingRule) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PricingRule, error)
	ListByLot(ctx context.Context, lotID uuid.UUID) ([]domain.PricingRule, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*domain.PricingRule, error)
}

type PricingRulesHandler struct {
	rules  PricingRuleStore
	lots   LotRegistry
	logger *slog.Logger
}

func NewPricingRulesHandler(rules PricingRuleStore, lots LotRegistry, logger *slog.Logger) *PricingRulesHandler {
	return &PricingRulesHandler{
		rules:  rules,
		lots:   lots,
		logger: logger,
	}
}

type CreatePricingRuleRequest struct {
	LotID          uuid.UUID `json:"lot_id"`
	Name           string    `json:"name"`
	Weekdays       []int     `json:"weekdays"`
	StartMinute    int       `json:"start_minute"`
	EndMinute      int       `json:"end_minute"`
	BaseRate       float64   `json:"base_rate"`
	Priority       int       `json:"priority"`
	SurgeActive    bool      `json:"surge_active"`
	SurgeThreshold float64   `json:"surge_threshold"`
	SurgeRate      float64   `json:"surge_rate"`
	MaxRate        *float64  `json:"max_rate,omitempty"`
}

// Create POST /v1/pricing-rules
func (h *PricingRulesHandler) Create(c *fiber.Ctx) error {
	var req CreatePricingRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	rule := &domain.PricingRule{
		LotID:          req.LotID,
		Name:           req.Name,
		Weekdays:       req.Weekdays,
		StartMinute:    req.StartMinute,
		EndMinute:      req.EndMinute,
		BaseRate:       req.BaseRate,
		Priority:       req.Priority,
		SurgeActive:    req.SurgeActive,
		SurgeThreshold: req.SurgeThreshold,
		SurgeRate:      req.SurgeRate,
		MaxRate:        req.MaxRate,
		IsActive:       true,
	}
	if err := rule.Validate(); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	// Rules must belong to a registered lot.
	if _, err := h.lots.GetByID(c.Context(), rule.LotID); err != nil {
		return err
	}

	if err := h.rules.Create(c.Context(), rule); err != nil {
		return err
	}

	h.logger.Info("pricing rule created",
		"rule_id", rule.ID,
		"lot_id", rule.LotID,
		"base_rate", rule.BaseRate,
		"priority", rule.Priority,
	)

	return c.Status(fiber.StatusCreated).JSON(rule)
}

// Get GET /v1/pricing-rules/:id
func (h *PricingRulesHandler) Get(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	rule, err := h.rules.GetByID(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(rule)
}

// List GET /v1/pricing-rules?lot_id=
func (h *PricingRulesHandler) List(c *fiber.Ctx) error {
	raw := c.Query("lot_id")
	if raw == "" {
		return domain.ErrValidationFailed.WithError(errors.New("lot_id is required"))
	}
	lotID, err := uuid.Parse(raw)
	if err != nil {
		return domain.ErrValidationFailed.WithError(errors.New("lot_id must be a valid UUID"))
	}

	rules, err := h.rules.ListByLot(c.Context(), lotID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"rules": rules})
}

// Activate POST /v1/pricing-rules/:id/activate
func (h *PricingRulesHandler) Activate(c *fiber.Ctx) error {
	return h.setActive(c, true)
}

// Deactivate POST /v1/pricing-rules/:id/deactivate
func (h *PricingRulesHandler) Deactivate(c *fiber.Ctx) error {
	return h.setActive(c, false)
}

func (h *PricingRulesHandler) setActive(c *fiber.Ctx, active bool) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	rule, err := h.rules.SetActive(c.Context(), id, active)
	if err != nil {
		return err
	}

	return c.JSON(rule)
}
