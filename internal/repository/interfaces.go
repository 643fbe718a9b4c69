package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/curbside-labs/lotwatch/internal/domain"
)

// LotRepositoryInterface defines operations for parking lot data access
type LotRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ParkingLot, error)
	GetByVendorID(ctx context.Context, vendorLotID string) (*domain.ParkingLot, error)
	List(ctx context.Context) ([]domain.ParkingLot, error)
	Create(ctx context.Context, lot *domain.ParkingLot) error
	AdjustOccupancy(ctx context.Context, id uuid.UUID, delta int) (*domain.ParkingLot, error)
}

// PricingRuleRepositoryInterface defines operations for pricing rule data access
type PricingRuleRepositoryInterface interface {
	Create(ctx context.Context, rule *domain.PricingRule) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PricingRule, error)
	ListActiveByLot(ctx context.Context, lotID uuid.UUID) ([]domain.PricingRule, error)
	ListByLot(ctx context.Context, lotID uuid.UUID) ([]domain.PricingRule, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*domain.PricingRule, error)
}

// PermitRepositoryInterface defines operations for permit data access
type PermitRepositoryInterface interface {
	Create(ctx context.Context, permit *domain.Permit) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Permit, error)
	FindActive(ctx context.Context, plate string, lotID uuid.UUID) (*domain.Permit, error)
	ListByPlate(ctx context.Context, plate string) ([]domain.Permit, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*domain.Permit, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SweepExpiredForPlate(ctx context.Context, plate string) (int64, error)
	SweepExpired(ctx context.Context) (int64, error)
}

// ViolationRepositoryInterface defines operations for violation data access
type ViolationRepositoryInterface interface {
	Create(ctx context.Context, v *domain.Violation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Violation, error)
	Settle(ctx context.Context, id uuid.UUID, paymentRef string) (*domain.Violation, error)
	Dismiss(ctx context.Context, id uuid.UUID) (*domain.Violation, error)
	UnpaidByPlate(ctx context.Context, plate string) ([]domain.Violation, error)
	List(ctx context.Context, plate, status string, lotID *uuid.UUID) ([]domain.Violation, error)
}

// SessionRepositoryInterface defines operations for parking session data access
type SessionRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ParkingSession, error)
	GetActive(ctx context.Context, plate string, lotID uuid.UUID) (*domain.ParkingSession, error)
	Open(ctx context.Context, params OpenSessionParams) (*domain.ParkingSession, *domain.ParkingLot, error)
	Close(ctx context.Context, params CloseSessionParams) (*CloseSessionResult, error)
	MarkPaid(ctx context.Context, id uuid.UUID, paymentRef string, amount *float64) (*domain.ParkingSession, error)
	List(ctx context.Context, filter domain.SessionFilter) ([]domain.ParkingSession, error)
	ActiveCounts(ctx context.Context) ([]domain.LotActiveCount, error)
}

// EventRepositoryInterface defines operations for ingestion event data access
type EventRepositoryInterface interface {
	Insert(ctx context.Context, event *domain.IngestionEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.IngestionEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, lotID *uuid.UUID) error
	ListRecent(ctx context.Context, limit int) ([]domain.IngestionEvent, error)
}
