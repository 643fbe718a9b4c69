package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/curbside-labs/lotwatch/internal/domain"
	"github.com/curbside-labs/lotwatch/internal/repository"
)

// Service persists notifications and pushes them to subscribed endpoints.
// Emit never fails the triggering operation: push failures are queued for the
// retry worker instead.
type Service struct {
	db     repository.PgxPool
	client *http.Client
	logger *slog.Logger
}

func NewService(db repository.PgxPool, logger *slog.Logger) *Service {
	return &Service{
		db: db,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Emit stores the notification and fans it out to every enabled endpoint
// subscribed to its type.
func (s *Service) Emit(ctx context.Context, n Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Urgency == "" {
		n.Urgency = UrgencyNormal
	}

	query := `
		INSERT INTO notifications (id, type, title, message, urgency, lot_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := s.db.QueryRow(ctx, query, n.ID, n.Type, n.Title, n.Message, n.Urgency, n.LotID).
		Scan(&n.CreatedAt)
	if err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	endpoints, err := s.endpointsByEvent(ctx, n.Type)
	if err != nil {
		return err
	}

	event := EventPayload{
		Type:         n.Type,
		Notification: n,
		Timestamp:    time.Now().UTC(),
	}

	for _, endpoint := range endpoints {
		if err := s.send(ctx, endpoint, event); err != nil {
			s.logger.Warn("notification push failed, queued for retry",
				"endpoint_id", endpoint.ID,
				"type", n.Type,
				"error", err,
			)
		}
	}

	return nil
}

// send pushes one event to one endpoint. Delivery failures are enqueued and
// reported as nil so a slow endpoint never blocks the rest of the fan-out.
func (s *Service) send(ctx context.Context, endpoint *Endpoint, event EventPayload) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	signature := Sign(endpoint.Secret, payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Lotwatch-Signature", signature)
	req.Header.Set("X-Lotwatch-Event", event.Type)
	req.Header.Set("User-Agent", "Lotwatch-Notify/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return s.enqueue(ctx, endpoint.ID, event.Type, payload, err.Error())
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return s.enqueue(ctx, endpoint.ID, event.Type, payload, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	return s.updateLastTriggered(ctx, endpoint.ID)
}

func (s *Service) enqueue(ctx context.Context, endpointID uuid.UUID, eventType string, payload []byte, errorMsg string) error {
	query := `
		INSERT INTO notification_queue (endpoint_id, event_type, payload, next_retry_at, last_error)
		VALUES ($1, $2, $3, NOW() + INTERVAL '1 second', $4)
	`

	_, err := s.db.Exec(ctx, query, endpointID, eventType, payload, errorMsg)
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}

	return nil
}

func (s *Service) updateLastTriggered(ctx context.Context, endpointID uuid.UUID) error {
	query := `UPDATE notification_endpoints SET last_triggered_at = NOW() WHERE id = $1`
	_, err := s.db.Exec(ctx, query, endpointID)
	return err
}

func (s *Service) endpointsByEvent(ctx context.Context, eventType string) ([]*Endpoint, error) {
	query := `
		SELECT id, name, url, secret, events, enabled, last_triggered_at, created_at, updated_at
		FROM notification_endpoints
		WHERE enabled = true AND events @> $1::jsonb
	`

	eventsJSON, _ := json.Marshal([]string{eventType})

	rows, err := s.db.Query(ctx, query, eventsJSON)
	if err != nil {
		return nil, fmt.Errorf("query endpoints by event: %w", err)
	}
	defer rows.Close()

	return collectEndpoints(rows)
}

// ListRecent returns the newest notifications for the dashboard feed.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, type, title, message, urgency, lot_id, created_at
		FROM notifications
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Message, &n.Urgency, &n.LotID, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

func (s *Service) CreateEndpoint(ctx context.Context, endpoint *Endpoint) error {
	eventsJSON, err := json.Marshal(endpoint.Events)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}

	query := `
		INSERT INTO notification_endpoints (name, url, secret, events, enabled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err = s.db.QueryRow(ctx, query,
		endpoint.Name, endpoint.URL, endpoint.Secret, eventsJSON, endpoint.Enabled,
	).Scan(&endpoint.ID, &endpoint.CreatedAt, &endpoint.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create endpoint: %w", err)
	}

	return nil
}

func (s *Service) ListEndpoints(ctx context.Context) ([]*Endpoint, error) {
	query := `
		SELECT id, name, url, secret, events, enabled, last_triggered_at, created_at, updated_at
		FROM notification_endpoints
		ORDER BY created_at DESC
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query endpoints: %w", err)
	}
	defer rows.Close()

	return collectEndpoints(rows)
}

func (s *Service) DeleteEndpoint(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM notification_endpoints WHERE id = $1`

	result, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete endpoint: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (s *Service) getEndpoint(ctx context.Context, id uuid.UUID) (*Endpoint, error) {
	query := `
		SELECT id, name, url, secret, events, enabled, last_triggered_at, created_at, updated_at
		FROM notification_endpoints
		WHERE id = $1
	`

	var endpoint Endpoint
	var eventsJSON []byte

	err := s.db.QueryRow(ctx, query, id).Scan(
		&endpoint.ID, &endpoint.Name, &endpoint.URL, &endpoint.Secret,
		&eventsJSON, &endpoint.Enabled, &endpoint.LastTriggeredAt,
		&endpoint.CreatedAt, &endpoint.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(eventsJSON, &endpoint.Events); err != nil {
		return nil, err
	}

	return &endpoint, nil
}

func collectEndpoints(rows pgx.Rows) ([]*Endpoint, error) {
	var endpoints []*Endpoint
	for rows.Next() {
		var e Endpoint
		var eventsJSON []byte

		err := rows.Scan(
			&e.ID, &e.Name, &e.URL, &e.Secret,
			&eventsJSON, &e.Enabled, &e.LastTriggeredAt,
			&e.CreatedAt, &e.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan endpoint: %w", err)
		}

		if err := json.Unmarshal(eventsJSON, &e.Events); err != nil {
			return nil, fmt.Errorf("unmarshal events: %w", err)
		}

		endpoints = append(endpoints, &e)
	}

	return endpoints, rows.Err()
}
