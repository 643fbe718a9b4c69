package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/curbside-labs/lotwatch/internal/domain"
)

const eventColumns = `id, event_type, license_plate, vendor_lot_id, lot_id, event_time,
		confidence, raw_payload, processed, created_at`

type EventRepository struct {
	pool PgxPool
}

func NewEventRepository(pool PgxPool) *EventRepository {
	return &EventRepository{pool: pool}
}

func scanEvent(row pgx.Row) (*domain.IngestionEvent, error) {
	var e domain.IngestionEvent
	err := row.Scan(
		&e.ID,
		&e.EventType,
		&e.LicensePlate,
		&e.VendorLotID,
		&e.LotID,
		&e.EventTime,
		&e.Confidence,
		&e.RawPayload,
		&e.Processed,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Insert records the delivery. A redelivery of the same (plate, vendor lot,
// type, time) tuple hits the unique index; the stored event is returned
// alongside ErrDuplicateEvent so the gateway can acknowledge without
// re-dispatching.
func (r *EventRepository) Insert(ctx context.Context, event *domain.IngestionEvent) error {
	query := `
		INSERT INTO ingestion_events (id, event_type, license_plate, vendor_lot_id, lot_id, event_time, confidence, raw_payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at
	`

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		event.ID,
		event.EventType,
		event.LicensePlate,
		event.VendorLotID,
		event.LotID,
		event.EventTime,
		event.Confidence,
		event.RawPayload,
	).Scan(&event.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			existing, lookupErr := r.findDelivery(ctx, event)
			if lookupErr != nil {
				return lookupErr
			}
			*event = *existing
			return domain.ErrDuplicateEvent
		}
		return fmt.Errorf("insert event: %w", err)
	}

	return nil
}

func (r *EventRepository) findDelivery(ctx context.Context, event *domain.IngestionEvent) (*domain.IngestionEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM ingestion_events
		WHERE license_plate = $1 AND vendor_lot_id = $2 AND event_type = $3 AND event_time = $4
	`

	existing, err := scanEvent(r.pool.QueryRow(ctx, query,
		event.LicensePlate,
		event.VendorLotID,
		event.EventType,
		event.EventTime,
	))
	if err != nil {
		return nil, fmt.Errorf("find duplicate event: %w", err)
	}

	return existing, nil
}

func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.IngestionEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM ingestion_events
		WHERE id = $1
	`

	event, err := scanEvent(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event by id: %w", err)
	}

	return event, nil
}

// MarkProcessed flags the event done and backfills the resolved lot, which is
// NULL for events recorded against an unknown vendor lot.
func (r *EventRepository) MarkProcessed(ctx context.Context, id uuid.UUID, lotID *uuid.UUID) error {
	query := `
		UPDATE ingestion_events
		SET processed = true, lot_id = COALESCE($2, lot_id)
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, lotID)
	if err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// ListRecent returns the newest deliveries for operator inspection.
func (r *EventRepository) ListRecent(ctx context.Context, limit int) ([]domain.IngestionEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT ` + eventColumns + `
		FROM ingestion_events
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.IngestionEvent
	for rows.Next() {
		var e domain.IngestionEvent
		err := rows.Scan(
			&e.ID,
			&e.EventType,
			&e.LicensePlate,
			&e.VendorLotID,
			&e.LotID,
			&e.EventTime,
			&e.Confidence,
			&e.RawPayload,
			&e.Processed,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}

	return events, rows.Err()
}
