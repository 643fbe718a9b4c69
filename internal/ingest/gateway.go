package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/curbside-labs/lotwatch/internal/domain"
	"github.com/curbside-labs/lotwatch/internal/repository"
	"github.com/curbside-labs/lotwatch/internal/session"
)

// VendorEvent is one delivery from the LPR vendor feed.
type VendorEvent struct {
	EventType    string    `json:"eventType"`
	LicensePlate string    `json:"licensePlate"`
	Timestamp    time.Time `json:"timestamp"`
	VendorLotID  string    `json:"vendorLotId"`
	Confidence   *float64  `json:"confidence,omitempty"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	RawPayload   []byte    `json:"-"`
}

// Result tells the vendor what happened to the delivery. Duplicate and
// unknown-lot deliveries are acknowledged, not errored, because the feed
// retries anything that does not return success.
type Result struct {
	Accepted  bool      `json:"accepted"`
	EventID   uuid.UUID `json:"event_id"`
	Duplicate bool      `json:"duplicate"`
	Reason    string    `json:"reason,omitempty"`
}

type SessionDriver interface {
	Open(ctx context.Context, params session.OpenParams) (*domain.ParkingSession, error)
	Close(ctx context.Context, params session.CloseParams) (*session.CloseResult, error)
}

// Gateway turns the noisy vendor feed into session transitions: canonicalize,
// resolve the lot, record the event for idempotency and audit, then dispatch.
type Gateway struct {
	events   repository.EventRepositoryInterface
	lots     repository.LotRepositoryInterface
	sessions SessionDriver
	logger   *slog.Logger
}

func NewGateway(
	events repository.EventRepositoryInterface,
	lots repository.LotRepositoryInterface,
	sessions SessionDriver,
	logger *slog.Logger,
) *Gateway {
	return &Gateway{events: events, lots: lots, sessions: sessions, logger: logger}
}

// Ingest processes one vendor delivery. The event row is written before
// dispatch, so a redelivery of the same (plate, lot, type, timestamp) tuple
// is answered from the stored row without re-driving the lifecycle. Events
// are marked processed even when the downstream transition is a business
// no-op; only infrastructure failures leave processed=false for inspection.
func (g *Gateway) Ingest(ctx context.Context, vendorEvent VendorEvent) (*Result, error) {
	if err := validate(&vendorEvent); err != nil {
		return nil, err
	}

	plate := domain.CanonicalPlate(vendorEvent.LicensePlate)

	event := &domain.IngestionEvent{
		EventType:    vendorEvent.EventType,
		LicensePlate: plate,
		VendorLotID:  vendorEvent.VendorLotID,
		EventTime:    vendorEvent.Timestamp.UTC(),
		Confidence:   vendorEvent.Confidence,
		RawPayload:   vendorEvent.RawPayload,
	}

	lot, err := g.lots.GetByVendorID(ctx, vendorEvent.VendorLotID)
	if err != nil && !errors.Is(err, domain.ErrLotNotFound) {
		return nil, err
	}

	if lot != nil {
		event.LotID = &lot.ID
	}

	if err := g.events.Insert(ctx, event); err != nil {
		if errors.Is(err, domain.ErrDuplicateEvent) {
			g.logger.Info("duplicate vendor delivery acknowledged",
				"event_id", event.ID,
				"license_plate", plate,
				"vendor_lot_id", vendorEvent.VendorLotID,
			)
			return &Result{
				Accepted:  event.LotID != nil,
				EventID:   event.ID,
				Duplicate: true,
			}, nil
		}
		return nil, err
	}

	if lot == nil {
		// Recorded for audit, but nothing to dispatch against.
		g.logger.Warn("event for unmapped vendor lot",
			"event_id", event.ID,
			"vendor_lot_id", vendorEvent.VendorLotID,
		)
		g.markProcessed(ctx, event.ID, nil)
		return &Result{
			Accepted: false,
			EventID:  event.ID,
			Reason:   domain.ErrUnknownLot.Message,
		}, nil
	}

	g.dispatch(ctx, event, lot)
	g.markProcessed(ctx, event.ID, &lot.ID)

	return &Result{Accepted: true, EventID: event.ID}, nil
}

// dispatch drives the lifecycle manager. Business-level misses (no active
// session on exit) are logged and swallowed; the vendor feed is noisy and a
// mismatch must not fail ingestion.
func (g *Gateway) dispatch(ctx context.Context, event *domain.IngestionEvent, lot *domain.ParkingLot) {
	switch event.EventType {
	case domain.EventEntry:
		_, err := g.sessions.Open(ctx, session.OpenParams{
			LicensePlate:  event.LicensePlate,
			LotID:         lot.ID,
			EntryTime:     event.EventTime,
			SourceEventID: &event.ID,
			Idempotent:    true,
		})
		if err != nil {
			g.logger.Error("entry dispatch failed",
				"event_id", event.ID,
				"license_plate", event.LicensePlate,
				"lot_id", lot.ID,
				"error", err,
			)
		}

	case domain.EventExit:
		_, err := g.sessions.Close(ctx, session.CloseParams{
			LicensePlate:  event.LicensePlate,
			LotID:         lot.ID,
			ExitTime:      event.EventTime,
			SourceEventID: &event.ID,
		})
		if errors.Is(err, domain.ErrNoActiveSession) {
			g.logger.Info("exit event with no matching entry",
				"event_id", event.ID,
				"license_plate", event.LicensePlate,
				"lot_id", lot.ID,
			)
		} else if err != nil {
			g.logger.Error("exit dispatch failed",
				"event_id", event.ID,
				"license_plate", event.LicensePlate,
				"lot_id", lot.ID,
				"error", err,
			)
		}

	case domain.EventAlert:
		// Recorded only. Reserved for vendor-side camera alerts.
		g.logger.Info("alert event recorded",
			"event_id", event.ID,
			"license_plate", event.LicensePlate,
			"lot_id", lot.ID,
		)
	}
}

func (g *Gateway) markProcessed(ctx context.Context, eventID uuid.UUID, lotID *uuid.UUID) {
	if err := g.events.MarkProcessed(ctx, eventID, lotID); err != nil {
		g.logger.Error("failed to mark event processed", "event_id", eventID, "error", err)
	}
}

func validate(e *VendorEvent) error {
	if !domain.IsValidEventType(e.EventType) {
		return domain.ErrValidationFailed.WithError(errors.New("eventType must be entry, exit or alert"))
	}
	if domain.CanonicalPlate(e.LicensePlate) == "" {
		return domain.ErrValidationFailed.WithError(errors.New("licensePlate is required"))
	}
	if e.VendorLotID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("vendorLotId is required"))
	}
	if e.Timestamp.IsZero() {
		return domain.ErrValidationFailed.WithError(errors.New("timestamp is required"))
	}
	return nil
}
