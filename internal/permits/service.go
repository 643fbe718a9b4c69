package permits

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/curbside-labs/lotwatch/internal/domain"
	"github.com/curbside-labs/lotwatch/internal/repository"
)

// Service handles the staff-facing permit lifecycle. Authorization-time
// permit lookups live in the authorize package; this service owns creation
// and status transitions.
type Service struct {
	permits repository.PermitRepositoryInterface
	lots    repository.LotRepositoryInterface
	logger  *slog.Logger
}

func NewService(permits repository.PermitRepositoryInterface, lots repository.LotRepositoryInterface, logger *slog.Logger) *Service {
	return &Service{permits: permits, lots: lots, logger: logger}
}

// Create registers a permit. Lot-scoped permits must reference an existing
// lot; at most one active permit per (plate, type) may exist.
func (s *Service) Create(ctx context.Context, permit *domain.Permit) error {
	permit.LicensePlate = domain.CanonicalPlate(permit.LicensePlate)
	if permit.Status == "" {
		permit.Status = domain.PermitActive
	}

	if err := permit.Validate(); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	if permit.LotID != nil {
		if _, err := s.lots.GetByID(ctx, *permit.LotID); err != nil {
			return err
		}
	}

	if err := s.permits.Create(ctx, permit); err != nil {
		return err
	}

	s.logger.Info("permit created",
		"permit_id", permit.ID,
		"license_plate", permit.LicensePlate,
		"type", permit.Type,
		"global_access", permit.GlobalAccess,
	)

	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Permit, error) {
	return s.permits.GetByID(ctx, id)
}

func (s *Service) ListByPlate(ctx context.Context, plate string) ([]domain.Permit, error) {
	plate = domain.CanonicalPlate(plate)
	if plate == "" {
		return nil, domain.ErrValidationFailed.WithError(errors.New("license plate is required"))
	}
	return s.permits.ListByPlate(ctx, plate)
}

// Deactivate is the normal way to retire a permit.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*domain.Permit, error) {
	permit, err := s.permits.Deactivate(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("permit deactivated", "permit_id", id, "license_plate", permit.LicensePlate)
	return permit, nil
}

// Delete removes the permit record entirely. Administrative escape hatch.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.permits.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Warn("permit hard-deleted", "permit_id", id)
	return nil
}

// SweepExpired flips all expired active permits to inactive.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	return s.permits.SweepExpired(ctx)
}
