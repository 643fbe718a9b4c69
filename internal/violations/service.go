package violations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/curbside-labs/lotwatch/internal/domain"
	"github.com/curbside-labs/lotwatch/internal/notify"
	"github.com/curbside-labs/lotwatch/internal/repository"
)

type Notifier interface {
	Emit(ctx context.Context, n notify.Notification) error
}

// Service owns violation issuance and settlement. System-issued violations
// (unpaid exits) are created inside the session close transaction; this
// service covers manual citations and the payment paths.
type Service struct {
	violations repository.ViolationRepositoryInterface
	lots       repository.LotRepositoryInterface
	notifier   Notifier
	logger     *slog.Logger
}

func NewService(
	violations repository.ViolationRepositoryInterface,
	lots repository.LotRepositoryInterface,
	notifier Notifier,
	logger *slog.Logger,
) *Service {
	return &Service{violations: violations, lots: lots, notifier: notifier, logger: logger}
}

// Issue records a citation against a plate. Source distinguishes staff
// citations from engine-issued ones.
func (s *Service) Issue(ctx context.Context, v *domain.Violation) error {
	v.LicensePlate = domain.CanonicalPlate(v.LicensePlate)
	if v.Source == "" {
		v.Source = domain.ViolationSourceStaff
	}

	if err := v.Validate(); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	if _, err := s.lots.GetByID(ctx, v.LotID); err != nil {
		return err
	}

	if err := s.violations.Create(ctx, v); err != nil {
		return err
	}

	s.logger.Info("violation issued",
		"violation_id", v.ID,
		"license_plate", v.LicensePlate,
		"lot_id", v.LotID,
		"amount", v.Amount,
		"source", v.Source,
	)

	s.notifyAsync(notify.Notification{
		Type:    notify.TypeViolationIssued,
		Title:   "Violation issued",
		Message: fmt.Sprintf("Violation of %.2f issued to %s: %s", v.Amount, v.LicensePlate, v.Reason),
		Urgency: notify.UrgencyNormal,
		LotID:   &v.LotID,
	})

	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Violation, error) {
	return s.violations.GetByID(ctx, id)
}

// Settle marks a violation paid.
func (s *Service) Settle(ctx context.Context, id uuid.UUID, paymentRef string) (*domain.Violation, error) {
	if paymentRef == "" {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("payment reference is required"))
	}

	v, err := s.violations.Settle(ctx, id, paymentRef)
	if err != nil {
		return nil, err
	}

	s.logger.Info("violation settled", "violation_id", id, "payment_ref", paymentRef)
	return v, nil
}

// Dismiss voids a violation without payment.
func (s *Service) Dismiss(ctx context.Context, id uuid.UUID) (*domain.Violation, error) {
	v, err := s.violations.Dismiss(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("violation dismissed", "violation_id", id)
	return v, nil
}

// Unpaid lists the violations still counting against a plate.
func (s *Service) Unpaid(ctx context.Context, plate string) ([]domain.Violation, error) {
	plate = domain.CanonicalPlate(plate)
	if plate == "" {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("license plate is required"))
	}
	return s.violations.UnpaidByPlate(ctx, plate)
}

func (s *Service) List(ctx context.Context, plate, status string, lotID *uuid.UUID) ([]domain.Violation, error) {
	if plate != "" {
		plate = domain.CanonicalPlate(plate)
	}
	return s.violations.List(ctx, plate, status, lotID)
}

func (s *Service) notifyAsync(n notify.Notification) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.notifier.Emit(ctx, n); err != nil {
			s.logger.Warn("failed to emit notification", "type", n.Type, "error", err)
		}
	}()
}
