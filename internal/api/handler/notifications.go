package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/curbside-labs/lotwatch/internal/domain"
	"github.com/curbside-labs/lotwatch/internal/notify"
)

// NotificationService exposes the notification feed and endpoint registry.
type NotificationService interface {
	ListRecent(ctx context.Context, limit int) ([]notify.Notification, error)
	CreateEndpoint(ctx context.Context, endpoint *notify.Endpoint) error
	ListEndpoints(ctx context.Context) ([]*notify.Endpoint, error)
	DeleteEndpoint(ctx context.Context, id uuid.UUID) error
}

type NotificationsHandler struct {
	service NotificationService
	logger  *slog.Logger
}

func NewNotificationsHandler(service NotificationService, logger *slog.Logger) *NotificationsHandler {
	return &NotificationsHandler{
		service: service,
		logger:  logger,
	}
}

type CreateEndpointRequest struct {
	Name    string   `json:"name"`
	URL     string   `json:"url"`
	Events  []string `json:"events"`
	Enabled bool     `json:"enabled"`
}

type CreateEndpointResponse struct {
	*notify.Endpoint
	// Secret is returned once at creation and never again.
	Secret string `json:"secret"`
}

// List GET /v1/notifications?limit=
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit"))

	notifications, err := h.service.ListRecent(c.Context(), limit)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"notifications": notifications})
}

// CreateEndpoint POST /v1/notification-endpoints
func (h *NotificationsHandler) CreateEndpoint(c *fiber.Ctx) error {
	var req CreateEndpointRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}
	if req.Name == "" || req.URL == "" {
		return domain.ErrValidationFailed.WithError(errors.New("name and url are required"))
	}
	if len(req.Events) == 0 {
		return domain.ErrValidationFailed.WithError(errors.New("at least one event type is required"))
	}

	secret, err := generateSecret()
	if err != nil {
		return err
	}

	endpoint := &notify.Endpoint{
		Name:    req.Name,
		URL:     req.URL,
		Secret:  secret,
		Events:  req.Events,
		Enabled: req.Enabled,
	}

	if err := h.service.CreateEndpoint(c.Context(), endpoint); err != nil {
		return err
	}

	h.logger.Info("notification endpoint registered",
		"endpoint_id", endpoint.ID,
		"url", endpoint.URL,
	)

	return c.Status(fiber.StatusCreated).JSON(CreateEndpointResponse{
		Endpoint: endpoint,
		Secret:   secret,
	})
}

// ListEndpoints GET /v1/notification-endpoints
func (h *NotificationsHandler) ListEndpoints(c *fiber.Ctx) error {
	endpoints, err := h.service.ListEndpoints(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"endpoints": endpoints})
}

// DeleteEndpoint DELETE /v1/notification-endpoints/:id
func (h *NotificationsHandler) DeleteEndpoint(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	if err := h.service.DeleteEndpoint(c.Context(), id); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
