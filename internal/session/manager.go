package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/curbside-labs/lotwatch/internal/domain"
	"github.com/curbside-labs/lotwatch/internal/notify"
	"github.com/curbside-labs/lotwatch/internal/pricing"
	"github.com/curbside-labs/lotwatch/internal/repository"
)

type PermitAuthorizer interface {
	CoveringPermit(ctx context.Context, plate string, lotID uuid.UUID) (*domain.Permit, error)
}

type FareResolver interface {
	FareFor(ctx context.Context, lotID uuid.UUID, entryTime, exitTime time.Time) (float64, *pricing.RateQuote, error)
}

type Notifier interface {
	Emit(ctx context.Context, n notify.Notification) error
}

// OpenParams describes one entry. Idempotent marks vendor-driven entries,
// where a duplicate delivery answers with the existing session instead of an
// error; staff-initiated entries keep the explicit conflict.
type OpenParams struct {
	LicensePlate  string
	LotID         uuid.UUID
	EntryTime     time.Time
	SourceEventID *uuid.UUID
	Idempotent    bool
}

type CloseParams struct {
	LicensePlate  string
	LotID         uuid.UUID
	ExitTime      time.Time
	SourceEventID *uuid.UUID
}

// CloseResult reports the closed session and the violation issued when it
// closed unpaid.
type CloseResult struct {
	Session   *domain.ParkingSession `json:"session"`
	Violation *domain.Violation      `json:"violation,omitempty"`
}

// Manager drives the session state machine: none -> active -> completed or
// violation. All persistence is transactional in the repository; the manager
// layers authorization, fare computation and notifications on top.
type Manager struct {
	sessions  repository.SessionRepositoryInterface
	permits   PermitAuthorizer
	fares     FareResolver
	notifier  Notifier
	threshold float64
	logger    *slog.Logger
}

func NewManager(
	sessions repository.SessionRepositoryInterface,
	permits PermitAuthorizer,
	fares FareResolver,
	notifier Notifier,
	highOccupancyThreshold float64,
	logger *slog.Logger,
) *Manager {
	if highOccupancyThreshold <= 0 {
		highOccupancyThreshold = 90
	}
	return &Manager{
		sessions:  sessions,
		permits:   permits,
		fares:     fares,
		notifier:  notifier,
		threshold: highOccupancyThreshold,
		logger:    logger,
	}
}

// Open starts a session for an arriving vehicle. A covering permit marks the
// session paid up front, so the eventual exit completes instead of raising a
// violation.
func (m *Manager) Open(ctx context.Context, params OpenParams) (*domain.ParkingSession, error) {
	plate := domain.CanonicalPlate(params.LicensePlate)
	if plate == "" {
		return nil, domain.ErrValidationFailed.WithError(errors.New("license plate is required"))
	}

	entryTime := params.EntryTime
	if entryTime.IsZero() {
		entryTime = time.Now().UTC()
	}

	permit, err := m.permits.CoveringPermit(ctx, plate, params.LotID)
	if err != nil {
		return nil, err
	}

	paymentStatus := domain.PaymentUnpaid
	if permit != nil {
		paymentStatus = domain.PaymentPaid
	}

	session, lot, err := m.sessions.Open(ctx, repository.OpenSessionParams{
		LicensePlate:  plate,
		LotID:         params.LotID,
		EntryTime:     entryTime,
		PaymentStatus: paymentStatus,
		EntryEventID:  params.SourceEventID,
	})
	if errors.Is(err, domain.ErrDuplicateActiveSession) {
		if params.Idempotent {
			m.logger.Info("duplicate entry tolerated",
				"license_plate", plate,
				"lot_id", params.LotID,
				"session_id", session.ID,
			)
			return session, nil
		}
		return session, err
	}
	if err != nil {
		return nil, err
	}

	m.logger.Info("session opened",
		"session_id", session.ID,
		"license_plate", plate,
		"lot_id", params.LotID,
		"payment_status", paymentStatus,
	)

	m.checkHighOccupancy(lot)

	return session, nil
}

// Close ends the active session for the plate at the lot. The fare is
// resolved at exit time; an unpaid close flips the session to violation and
// the repository issues the citation in the same transaction.
func (m *Manager) Close(ctx context.Context, params CloseParams) (*CloseResult, error) {
	plate := domain.CanonicalPlate(params.LicensePlate)
	if plate == "" {
		return nil, domain.ErrValidationFailed.WithError(errors.New("license plate is required"))
	}

	exitTime := params.ExitTime
	if exitTime.IsZero() {
		exitTime = time.Now().UTC()
	}

	active, err := m.sessions.GetActive(ctx, plate, params.LotID)
	if err != nil {
		return nil, err
	}

	var amount *float64
	if active.Amount == nil {
		fare, _, err := m.fares.FareFor(ctx, params.LotID, active.EntryTime, exitTime)
		if err != nil {
			return nil, err
		}
		amount = &fare
	}

	result, err := m.sessions.Close(ctx, repository.CloseSessionParams{
		LicensePlate: plate,
		LotID:        params.LotID,
		ExitTime:     exitTime,
		Amount:       amount,
		ExitEventID:  params.SourceEventID,
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("session closed",
		"session_id", result.Session.ID,
		"license_plate", plate,
		"lot_id", params.LotID,
		"status", result.Session.Status,
	)

	if result.Violation != nil {
		m.notifyAsync(notify.Notification{
			Type:    notify.TypeUnpaidExit,
			Title:   "Unpaid exit",
			Message: fmt.Sprintf("Vehicle %s left %s without paying %.2f", plate, lotName(result.Lot), result.Violation.Amount),
			Urgency: notify.UrgencyHigh,
			LotID:   &result.Session.LotID,
		})
		m.notifyAsync(notify.Notification{
			Type:    notify.TypeViolationIssued,
			Title:   "Violation issued",
			Message: fmt.Sprintf("Violation of %.2f issued to %s: %s", result.Violation.Amount, plate, result.Violation.Reason),
			Urgency: notify.UrgencyNormal,
			LotID:   &result.Session.LotID,
		})
	}

	return &CloseResult{Session: result.Session, Violation: result.Violation}, nil
}

// MarkPaid records a payment against a session.
func (m *Manager) MarkPaid(ctx context.Context, sessionID uuid.UUID, paymentRef string, amount *float64) (*domain.ParkingSession, error) {
	if paymentRef == "" {
		return nil, domain.ErrValidationFailed.WithError(errors.New("payment reference is required"))
	}

	session, err := m.sessions.MarkPaid(ctx, sessionID, paymentRef, amount)
	if err != nil {
		return nil, err
	}

	m.logger.Info("session payment recorded",
		"session_id", session.ID,
		"payment_ref", paymentRef,
		"status", session.Status,
	)

	return session, nil
}

// SettleByPlate records a payment against the active session for the plate at
// the lot, for payment confirmations that arrive keyed by plate.
func (m *Manager) SettleByPlate(ctx context.Context, plate string, lotID uuid.UUID, paymentRef string, amount *float64) (*domain.ParkingSession, error) {
	plate = domain.CanonicalPlate(plate)
	active, err := m.sessions.GetActive(ctx, plate, lotID)
	if err != nil {
		return nil, err
	}
	return m.MarkPaid(ctx, active.ID, paymentRef, amount)
}

func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*domain.ParkingSession, error) {
	return m.sessions.GetByID(ctx, id)
}

// History returns session records for the dashboard read model.
func (m *Manager) History(ctx context.Context, filter domain.SessionFilter) ([]domain.ParkingSession, error) {
	if filter.LicensePlate != "" {
		filter.LicensePlate = domain.CanonicalPlate(filter.LicensePlate)
	}
	return m.sessions.List(ctx, filter)
}

// ActiveCounts reports active sessions per lot.
func (m *Manager) ActiveCounts(ctx context.Context) ([]domain.LotActiveCount, error) {
	return m.sessions.ActiveCounts(ctx)
}

// checkHighOccupancy emits a notification when the entry that just completed
// pushed the lot over the threshold. Only the crossing entry notifies, so a
// busy lot does not alert on every arrival.
func (m *Manager) checkHighOccupancy(lot *domain.ParkingLot) {
	if lot == nil || lot.Capacity <= 0 {
		return
	}

	current := lot.OccupancyPercent()
	previous := float64(lot.CurrentOccupancy-1) / float64(lot.Capacity) * 100

	if current >= m.threshold && previous < m.threshold {
		m.notifyAsync(notify.Notification{
			Type:    notify.TypeHighOccupancy,
			Title:   "High occupancy",
			Message: fmt.Sprintf("%s is at %.0f%% capacity (%d/%d)", lot.Name, current, lot.CurrentOccupancy, lot.Capacity),
			Urgency: notify.UrgencyHigh,
			LotID:   &lot.ID,
		})
	}
}

// notifyAsync pushes a notification without blocking or failing the calling
// transition.
func (m *Manager) notifyAsync(n notify.Notification) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := m.notifier.Emit(ctx, n); err != nil {
			m.logger.Warn("failed to emit notification", "type", n.Type, "error", err)
		}
	}()
}

func lotName(lot *domain.ParkingLot) string {
	if lot == nil {
		return "lot"
	}
	return lot.Name
}
