package authorize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/curbside-labs/lotwatch/internal/domain"
)

type PermitStore interface {
	FindActive(ctx context.Context, plate string, lotID uuid.UUID) (*domain.Permit, error)
	SweepExpiredForPlate(ctx context.Context, plate string) (int64, error)
}

type SessionGetter interface {
	GetActive(ctx context.Context, plate string, lotID uuid.UUID) (*domain.ParkingSession, error)
}

type ViolationLister interface {
	UnpaidByPlate(ctx context.Context, plate string) ([]domain.Violation, error)
}

type LotGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ParkingLot, error)
}

// Decision is the structured answer to "may this plate park here right now".
// It is always populated, even for denials.
type Decision struct {
	Authorized      bool               `json:"authorized"`
	Reason          string             `json:"reason"`
	RequiresPayment bool               `json:"requires_payment"`
	Lot             *domain.ParkingLot `json:"lot,omitempty"`
	Permit          *domain.Permit     `json:"permit,omitempty"`
	Violations      []domain.Violation `json:"violations,omitempty"`
	TotalOwed       float64            `json:"total_owed,omitempty"`
}

type Engine struct {
	permits    PermitStore
	sessions   SessionGetter
	violations ViolationLister
	lots       LotGetter
	logger     *slog.Logger
}

func NewEngine(permits PermitStore, sessions SessionGetter, violations ViolationLister, lots LotGetter, logger *slog.Logger) *Engine {
	return &Engine{
		permits:    permits,
		sessions:   sessions,
		violations: violations,
		lots:       lots,
		logger:     logger,
	}
}

// Authorize decides whether the plate may park at the lot. Checks run in a
// fixed precedence: a covering permit wins, then an already paid active
// session, then unpaid violations block, and anything else is denied pending
// payment. A permit therefore still admits a vehicle carrying unpaid tickets
// from elsewhere; that is deliberate policy, not an oversight.
func (e *Engine) Authorize(ctx context.Context, plate string, lotID uuid.UUID) (*Decision, error) {
	plate = domain.CanonicalPlate(plate)
	if plate == "" {
		return nil, domain.ErrValidationFailed.WithError(errors.New("license plate is required"))
	}

	lot, err := e.lots.GetByID(ctx, lotID)
	if err != nil {
		return nil, err
	}

	permit, err := e.CoveringPermit(ctx, plate, lotID)
	if err != nil {
		return nil, err
	}
	if permit != nil {
		return &Decision{
			Authorized: true,
			Reason:     fmt.Sprintf("active %s permit", permit.Type),
			Lot:        lot,
			Permit:     permit,
		}, nil
	}

	session, err := e.sessions.GetActive(ctx, plate, lotID)
	if err != nil && !errors.Is(err, domain.ErrNoActiveSession) {
		return nil, err
	}
	if session != nil && session.PaymentStatus == domain.PaymentPaid {
		return &Decision{
			Authorized: true,
			Reason:     "active session already paid",
			Lot:        lot,
		}, nil
	}

	unpaid, err := e.violations.UnpaidByPlate(ctx, plate)
	if err != nil {
		return nil, err
	}
	if len(unpaid) > 0 {
		var owed float64
		for _, v := range unpaid {
			owed += v.Amount
		}
		return &Decision{
			Authorized:      false,
			Reason:          fmt.Sprintf("%d unpaid violation(s) on record", len(unpaid)),
			RequiresPayment: true,
			Lot:             lot,
			Violations:      unpaid,
			TotalOwed:       math.Round(owed*100) / 100,
		}, nil
	}

	return &Decision{
		Authorized:      false,
		Reason:          "no valid permit or payment",
		RequiresPayment: true,
		Lot:             lot,
	}, nil
}

// CoveringPermit returns the active permit covering the plate at the lot, or
// nil. Expired permits for the plate are flipped inactive first, so expiry
// takes effect lazily at authorization time without a scheduler in the path.
func (e *Engine) CoveringPermit(ctx context.Context, plate string, lotID uuid.UUID) (*domain.Permit, error) {
	swept, err := e.permits.SweepExpiredForPlate(ctx, plate)
	if err != nil {
		// The lookup below excludes expired permits anyway.
		e.logger.Warn("failed to sweep expired permits", "license_plate", plate, "error", err)
	} else if swept > 0 {
		e.logger.Info("expired permits deactivated", "license_plate", plate, "count", swept)
	}

	return e.permits.FindActive(ctx, plate, lotID)
}
