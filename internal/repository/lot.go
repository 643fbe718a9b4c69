package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/curbside-labs/lotwatch/internal/domain"
)

const lotColumns = `id, vendor_lot_id, name, capacity, current_occupancy, created_at, updated_at`

type LotRepository struct {
	pool PgxPool
}

func NewLotRepository(pool PgxPool) *LotRepository {
	return &LotRepository{pool: pool}
}

func scanLot(row pgx.Row) (*domain.ParkingLot, error) {
	var lot domain.ParkingLot
	err := row.Scan(
		&lot.ID,
		&lot.VendorLotID,
		&lot.Name,
		&lot.Capacity,
		&lot.CurrentOccupancy,
		&lot.CreatedAt,
		&lot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *LotRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ParkingLot, error) {
	query := `
		SELECT ` + lotColumns + `
		FROM parking_lots
		WHERE id = $1
	`

	lot, err := scanLot(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrLotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lot by id: %w", err)
	}

	return lot, nil
}

func (r *LotRepository) GetByVendorID(ctx context.Context, vendorLotID string) (*domain.ParkingLot, error) {
	query := `
		SELECT ` + lotColumns + `
		FROM parking_lots
		WHERE vendor_lot_id = $1
	`

	lot, err := scanLot(r.pool.QueryRow(ctx, query, vendorLotID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrLotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lot by vendor id: %w", err)
	}

	return lot, nil
}

func (r *LotRepository) List(ctx context.Context) ([]domain.ParkingLot, error) {
	query := `
		SELECT ` + lotColumns + `
		FROM parking_lots
		ORDER BY name ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	defer rows.Close()

	var lots []domain.ParkingLot
	for rows.Next() {
		var lot domain.ParkingLot
		err := rows.Scan(
			&lot.ID,
			&lot.VendorLotID,
			&lot.Name,
			&lot.Capacity,
			&lot.CurrentOccupancy,
			&lot.CreatedAt,
			&lot.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		lots = append(lots, lot)
	}

	return lots, rows.Err()
}

func (r *LotRepository) Create(ctx context.Context, lot *domain.ParkingLot) error {
	query := `
		INSERT INTO parking_lots (id, vendor_lot_id, name, capacity, current_occupancy, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	if lot.ID == uuid.Nil {
		lot.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		lot.ID,
		lot.VendorLotID,
		lot.Name,
		lot.Capacity,
		lot.CurrentOccupancy,
	).Scan(&lot.CreatedAt, &lot.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return &domain.AppError{
				Code:       "LOT_ALREADY_EXISTS",
				Message:    "A lot with this vendor id already exists",
				StatusCode: 409,
			}
		}
		return fmt.Errorf("create lot: %w", err)
	}

	return nil
}

// AdjustOccupancy applies delta to the lot's occupancy counter as a single
// atomic, bounds-checked update. Callers never read-modify-write occupancy.
func (r *LotRepository) AdjustOccupancy(ctx context.Context, id uuid.UUID, delta int) (*domain.ParkingLot, error) {
	return adjustOccupancy(ctx, r.pool, id, delta)
}

// AdjustOccupancyTx is AdjustOccupancy inside a caller-owned transaction, so
// session transitions can couple the occupancy delta to the session write.
func (r *LotRepository) AdjustOccupancyTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int) (*domain.ParkingLot, error) {
	return adjustOccupancy(ctx, tx, id, delta)
}

func adjustOccupancy(ctx context.Context, q querier, id uuid.UUID, delta int) (*domain.ParkingLot, error) {
	query := `
		UPDATE parking_lots
		SET current_occupancy = current_occupancy + $2, updated_at = NOW()
		WHERE id = $1
		  AND current_occupancy + $2 >= 0
		  AND current_occupancy + $2 <= capacity
		RETURNING ` + lotColumns + `
	`

	lot, err := scanLot(q.QueryRow(ctx, query, id, delta))
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the lot is missing or the adjustment is out of bounds.
		var exists bool
		if lookupErr := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM parking_lots WHERE id = $1)`, id).Scan(&exists); lookupErr != nil {
			return nil, fmt.Errorf("adjust occupancy: %w", lookupErr)
		}
		if !exists {
			return nil, domain.ErrLotNotFound
		}
		return nil, domain.ErrInvalidAdjustment
	}
	if err != nil {
		return nil, fmt.Errorf("adjust occupancy: %w", err)
	}

	return lot, nil
}
