package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/curbside-labs/lotwatch/internal/domain"
)

const permitColumns = `id, type, license_plate, status, global_access, lot_id, expires_at, created_at, updated_at`

type PermitRepository struct {
	pool PgxPool
}

func NewPermitRepository(pool PgxPool) *PermitRepository {
	return &PermitRepository{pool: pool}
}

func scanPermit(row pgx.Row) (*domain.Permit, error) {
	var p domain.Permit
	err := row.Scan(
		&p.ID,
		&p.Type,
		&p.LicensePlate,
		&p.Status,
		&p.GlobalAccess,
		&p.LotID,
		&p.ExpiresAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PermitRepository) Create(ctx context.Context, permit *domain.Permit) error {
	query := `
		INSERT INTO permits (id, type, license_plate, status, global_access, lot_id, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	if permit.ID == uuid.Nil {
		permit.ID = uuid.New()
	}
	if permit.Status == "" {
		permit.Status = domain.PermitActive
	}

	err := r.pool.QueryRow(ctx, query,
		permit.ID,
		permit.Type,
		permit.LicensePlate,
		permit.Status,
		permit.GlobalAccess,
		permit.LotID,
		permit.ExpiresAt,
	).Scan(&permit.CreatedAt, &permit.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateActivePermit
		}
		return fmt.Errorf("create permit: %w", err)
	}

	return nil
}

func (r *PermitRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Permit, error) {
	query := `
		SELECT ` + permitColumns + `
		FROM permits
		WHERE id = $1
	`

	permit, err := scanPermit(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPermitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get permit by id: %w", err)
	}

	return permit, nil
}

// FindActive returns the best active, unexpired permit covering the plate at
// the lot, or nil when none exists. Global permits, permits scoped to the
// lot, and legacy permits with a NULL lot all match. Expired permits are
// excluded here; flipping them inactive is SweepExpiredForPlate's job.
func (r *PermitRepository) FindActive(ctx context.Context, plate string, lotID uuid.UUID) (*domain.Permit, error) {
	query := `
		SELECT ` + permitColumns + `
		FROM permits
		WHERE license_plate = $1
		  AND status = 'active'
		  AND (global_access = true OR lot_id = $2 OR lot_id IS NULL)
		  AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY global_access DESC, created_at ASC
		LIMIT 1
	`

	permit, err := scanPermit(r.pool.QueryRow(ctx, query, plate, lotID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active permit: %w", err)
	}

	return permit, nil
}

func (r *PermitRepository) ListByPlate(ctx context.Context, plate string) ([]domain.Permit, error) {
	query := `
		SELECT ` + permitColumns + `
		FROM permits
		WHERE license_plate = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, plate)
	if err != nil {
		return nil, fmt.Errorf("list permits: %w", err)
	}
	defer rows.Close()

	var permits []domain.Permit
	for rows.Next() {
		var p domain.Permit
		err := rows.Scan(
			&p.ID,
			&p.Type,
			&p.LicensePlate,
			&p.Status,
			&p.GlobalAccess,
			&p.LotID,
			&p.ExpiresAt,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan permit: %w", err)
		}
		permits = append(permits, p)
	}

	return permits, rows.Err()
}

// Deactivate flips a permit to inactive (soft delete).
func (r *PermitRepository) Deactivate(ctx context.Context, id uuid.UUID) (*domain.Permit, error) {
	query := `
		UPDATE permits
		SET status = 'inactive', updated_at = NOW()
		WHERE id = $1
		RETURNING ` + permitColumns + `
	`

	permit, err := scanPermit(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPermitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("deactivate permit: %w", err)
	}

	return permit, nil
}

// Delete removes a permit entirely. Administrative escape hatch only;
// normal flows deactivate.
func (r *PermitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM permits
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete permit: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrPermitNotFound
	}

	return nil
}

// SweepExpiredForPlate flips the plate's expired active permits to inactive.
func (r *PermitRepository) SweepExpiredForPlate(ctx context.Context, plate string) (int64, error) {
	query := `
		UPDATE permits
		SET status = 'inactive', updated_at = NOW()
		WHERE license_plate = $1
		  AND status = 'active'
		  AND expires_at IS NOT NULL
		  AND expires_at <= NOW()
	`

	tag, err := r.pool.Exec(ctx, query, plate)
	if err != nil {
		return 0, fmt.Errorf("sweep expired permits for plate: %w", err)
	}

	return tag.RowsAffected(), nil
}

// SweepExpired flips every expired active permit to inactive. Used by the
// periodic maintenance worker.
func (r *PermitRepository) SweepExpired(ctx context.Context) (int64, error) {
	query := `
		UPDATE permits
		SET status = 'inactive', updated_at = NOW()
		WHERE status = 'active'
		  AND expires_at IS NOT NULL
		  AND expires_at <= NOW()
	`

	tag, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("sweep expired permits: %w", err)
	}

	return tag.RowsAffected(), nil
}
