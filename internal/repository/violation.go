package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/curbside-labs/lotwatch/internal/domain"
)

const violationColumns = `id, license_plate, lot_id, reason, amount, status, source,
		paid_at, payment_ref, event_id, created_at, updated_at`

type ViolationRepository struct {
	pool PgxPool
}

func NewViolationRepository(pool PgxPool) *ViolationRepository {
	return &ViolationRepository{pool: pool}
}

func scanViolation(row pgx.Row) (*domain.Violation, error) {
	var v domain.Violation
	err := row.Scan(
		&v.ID,
		&v.LicensePlate,
		&v.LotID,
		&v.Reason,
		&v.Amount,
		&v.Status,
		&v.Source,
		&v.PaidAt,
		&v.PaymentRef,
		&v.EventID,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *ViolationRepository) Create(ctx context.Context, v *domain.Violation) error {
	return createViolation(ctx, r.pool, v)
}

func createViolation(ctx context.Context, q querier, v *domain.Violation) error {
	query := `
		INSERT INTO violations (id, license_plate, lot_id, reason, amount, status, source, event_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.Status == "" {
		v.Status = domain.ViolationIssued
	}
	if v.Source == "" {
		v.Source = domain.ViolationSourceSystem
	}

	err := q.QueryRow(ctx, query,
		v.ID,
		v.LicensePlate,
		v.LotID,
		v.Reason,
		v.Amount,
		v.Status,
		v.Source,
		v.EventID,
	).Scan(&v.CreatedAt, &v.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create violation: %w", err)
	}

	return nil
}

func (r *ViolationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Violation, error) {
	query := `
		SELECT ` + violationColumns + `
		FROM violations
		WHERE id = $1
	`

	v, err := scanViolation(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrViolationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get violation by id: %w", err)
	}

	return v, nil
}

// Settle marks the violation paid. Paid and dismissed are terminal, so a
// second settlement attempt reports AlreadySettled.
func (r *ViolationRepository) Settle(ctx context.Context, id uuid.UUID, paymentRef string) (*domain.Violation, error) {
	query := `
		UPDATE violations
		SET status = 'paid', paid_at = NOW(), payment_ref = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('issued', 'overdue')
		RETURNING ` + violationColumns + `
	`

	v, err := scanViolation(r.pool.QueryRow(ctx, query, id, paymentRef))
	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish a missing violation from one already settled.
		existing, lookupErr := r.GetByID(ctx, id)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if existing.Settled() {
			return nil, domain.ErrAlreadySettled
		}
		return nil, fmt.Errorf("settle violation %s: concurrent update", id)
	}
	if err != nil {
		return nil, fmt.Errorf("settle violation: %w", err)
	}

	return v, nil
}

// Dismiss voids the violation without payment.
func (r *ViolationRepository) Dismiss(ctx context.Context, id uuid.UUID) (*domain.Violation, error) {
	query := `
		UPDATE violations
		SET status = 'dismissed', updated_at = NOW()
		WHERE id = $1 AND status IN ('issued', 'overdue')
		RETURNING ` + violationColumns + `
	`

	v, err := scanViolation(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		existing, lookupErr := r.GetByID(ctx, id)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if existing.Settled() {
			return nil, domain.ErrAlreadySettled
		}
		return nil, fmt.Errorf("dismiss violation %s: concurrent update", id)
	}
	if err != nil {
		return nil, fmt.Errorf("dismiss violation: %w", err)
	}

	return v, nil
}

// UnpaidByPlate lists violations still counting against the plate, at any lot.
func (r *ViolationRepository) UnpaidByPlate(ctx context.Context, plate string) ([]domain.Violation, error) {
	query := `
		SELECT ` + violationColumns + `
		FROM violations
		WHERE license_plate = $1 AND status IN ('issued', 'overdue')
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, plate)
	if err != nil {
		return nil, fmt.Errorf("list unpaid violations: %w", err)
	}
	defer rows.Close()

	return collectViolations(rows)
}

func (r *ViolationRepository) List(ctx context.Context, plate, status string, lotID *uuid.UUID) ([]domain.Violation, error) {
	query := `
		SELECT ` + violationColumns + `
		FROM violations
		WHERE ($1 = '' OR license_plate = $1)
		  AND ($2 = '' OR status = $2)
		  AND ($3::uuid IS NULL OR lot_id = $3)
		ORDER BY created_at DESC
		LIMIT 500
	`

	rows, err := r.pool.Query(ctx, query, plate, status, lotID)
	if err != nil {
		return nil, fmt.Errorf("list violations: %w", err)
	}
	defer rows.Close()

	return collectViolations(rows)
}

func collectViolations(rows pgx.Rows) ([]domain.Violation, error) {
	var violations []domain.Violation
	for rows.Next() {
		var v domain.Violation
		err := rows.Scan(
			&v.ID,
			&v.LicensePlate,
			&v.LotID,
			&v.Reason,
			&v.Amount,
			&v.Status,
			&v.Source,
			&v.PaidAt,
			&v.PaymentRef,
			&v.EventID,
			&v.CreatedAt,
			&v.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan violation: %w", err)
		}
		violations = append(violations, v)
	}

	return violations, rows.Err()
}

// settleForPlateLot marks every unpaid violation for the plate at the lot as
// paid. Runs inside the markPaid transaction.
func settleForPlateLot(ctx context.Context, q querier, plate string, lotID uuid.UUID, paymentRef string) (int64, error) {
	query := `
		UPDATE violations
		SET status = 'paid', paid_at = NOW(), payment_ref = $3, updated_at = NOW()
		WHERE license_plate = $1 AND lot_id = $2 AND status IN ('issued', 'overdue')
	`

	tag, err := q.Exec(ctx, query, plate, lotID, paymentRef)
	if err != nil {
		return 0, fmt.Errorf("settle violations for plate: %w", err)
	}

	return tag.RowsAffected(), nil
}
