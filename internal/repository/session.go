package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/curbside-labs/lotwatch/internal/domain"
)

const sessionColumns = `id, license_plate, lot_id, entry_time, exit_time, status, payment_status,
		amount, payment_ref, entry_event_id, exit_event_id, created_at, updated_at`

type SessionRepository struct {
	pool PgxPool
}

func NewSessionRepository(pool PgxPool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// OpenSessionParams carries one entry transition.
type OpenSessionParams struct {
	LicensePlate  string
	LotID         uuid.UUID
	EntryTime     time.Time
	PaymentStatus string
	EntryEventID  *uuid.UUID
}

// CloseSessionParams carries one exit transition. Amount is the fare to
// record when the session does not already have one.
type CloseSessionParams struct {
	LicensePlate string
	LotID        uuid.UUID
	ExitTime     time.Time
	Amount       *float64
	ExitEventID  *uuid.UUID
}

// CloseSessionResult reports the closed session, the lot after the occupancy
// decrement, and the violation issued if the session closed unpaid.
type CloseSessionResult struct {
	Session   *domain.ParkingSession
	Lot       *domain.ParkingLot
	Violation *domain.Violation
}

func scanSession(row pgx.Row) (*domain.ParkingSession, error) {
	var s domain.ParkingSession
	err := row.Scan(
		&s.ID,
		&s.LicensePlate,
		&s.LotID,
		&s.EntryTime,
		&s.ExitTime,
		&s.Status,
		&s.PaymentStatus,
		&s.Amount,
		&s.PaymentRef,
		&s.EntryEventID,
		&s.ExitEventID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ParkingSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM parking_sessions
		WHERE id = $1
	`

	s, err := scanSession(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session by id: %w", err)
	}

	return s, nil
}

// GetActive returns the unique active session for the plate at the lot, or
// ErrNoActiveSession.
func (r *SessionRepository) GetActive(ctx context.Context, plate string, lotID uuid.UUID) (*domain.ParkingSession, error) {
	return getActiveSession(ctx, r.pool, plate, lotID)
}

func getActiveSession(ctx context.Context, q querier, plate string, lotID uuid.UUID) (*domain.ParkingSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM parking_sessions
		WHERE license_plate = $1 AND lot_id = $2 AND status = 'active'
	`

	s, err := scanSession(q.QueryRow(ctx, query, plate, lotID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNoActiveSession
	}
	if err != nil {
		return nil, fmt.Errorf("get active session: %w", err)
	}

	return s, nil
}

// Open creates the active session and increments lot occupancy as one
// transaction. The advisory lock serializes racing entry/exit events for the
// same (plate, lot); if an active session already exists the existing session
// is returned alongside ErrDuplicateActiveSession so the vendor path can
// answer idempotently.
func (r *SessionRepository) Open(ctx context.Context, params OpenSessionParams) (*domain.ParkingSession, *domain.ParkingLot, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin open session: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockPlateLot(ctx, tx, params.LicensePlate, params.LotID.String()); err != nil {
		return nil, nil, fmt.Errorf("lock plate+lot: %w", err)
	}

	existing, err := getActiveSession(ctx, tx, params.LicensePlate, params.LotID)
	if err != nil && !errors.Is(err, domain.ErrNoActiveSession) {
		return nil, nil, err
	}
	if existing != nil {
		return existing, nil, domain.ErrDuplicateActiveSession
	}

	insert := `
		INSERT INTO parking_sessions (id, license_plate, lot_id, entry_time, status, payment_status, entry_event_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'active', $5, $6, NOW(), NOW())
		RETURNING ` + sessionColumns + `
	`

	session, err := scanSession(tx.QueryRow(ctx, insert,
		uuid.New(),
		params.LicensePlate,
		params.LotID,
		params.EntryTime,
		params.PaymentStatus,
		params.EntryEventID,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, domain.ErrDuplicateActiveSession
		}
		return nil, nil, fmt.Errorf("insert session: %w", err)
	}

	lot, err := adjustOccupancy(ctx, tx, params.LotID, +1)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit open session: %w", err)
	}

	return session, lot, nil
}

// Close ends the active session, decrements occupancy and, when the session
// closes unpaid, issues the violation. Everything runs in one transaction so
// no partial transition survives a failure.
func (r *SessionRepository) Close(ctx context.Context, params CloseSessionParams) (*CloseSessionResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin close session: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockPlateLot(ctx, tx, params.LicensePlate, params.LotID.String()); err != nil {
		return nil, fmt.Errorf("lock plate+lot: %w", err)
	}

	active, err := getActiveSession(ctx, tx, params.LicensePlate, params.LotID)
	if err != nil {
		return nil, err
	}

	amount := active.Amount
	if amount == nil {
		amount = params.Amount
	}

	status := domain.SessionViolation
	if active.PaymentStatus == domain.PaymentPaid {
		status = domain.SessionCompleted
	}

	update := `
		UPDATE parking_sessions
		SET exit_time = $2, status = $3, amount = $4, exit_event_id = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + sessionColumns + `
	`

	session, err := scanSession(tx.QueryRow(ctx, update,
		active.ID,
		params.ExitTime,
		status,
		amount,
		params.ExitEventID,
	))
	if err != nil {
		return nil, fmt.Errorf("close session: %w", err)
	}

	var violation *domain.Violation
	if status == domain.SessionViolation {
		violation = &domain.Violation{
			LicensePlate: session.LicensePlate,
			LotID:        session.LotID,
			Reason:       "Unpaid parking",
			Source:       domain.ViolationSourceSystem,
			EventID:      params.ExitEventID,
		}
		if amount != nil {
			violation.Amount = *amount
		}
		if err := createViolation(ctx, tx, violation); err != nil {
			return nil, err
		}
	}

	lot, err := adjustOccupancy(ctx, tx, params.LotID, -1)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit close session: %w", err)
	}

	return &CloseSessionResult{Session: session, Lot: lot, Violation: violation}, nil
}

// MarkPaid records a payment against an active or violation session. A
// violation session flips to completed and its matching violations are
// settled in the same transaction.
func (r *SessionRepository) MarkPaid(ctx context.Context, id uuid.UUID, paymentRef string, amount *float64) (*domain.ParkingSession, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin mark paid: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := scanSession(tx.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM parking_sessions
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session for payment: %w", err)
	}

	// Same lock order as Open/Close: advisory lock first, then the row.
	if err := lockPlateLot(ctx, tx, current.LicensePlate, current.LotID.String()); err != nil {
		return nil, fmt.Errorf("lock plate+lot: %w", err)
	}

	current, err = scanSession(tx.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM parking_sessions
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		return nil, fmt.Errorf("get session for payment: %w", err)
	}

	if current.Status != domain.SessionActive && current.Status != domain.SessionViolation {
		return nil, domain.ErrSessionNotSettleable
	}

	newAmount := current.Amount
	if amount != nil {
		newAmount = amount
	}

	status := current.Status
	if status == domain.SessionViolation {
		status = domain.SessionCompleted
	}

	update := `
		UPDATE parking_sessions
		SET payment_status = 'paid', amount = $2, payment_ref = $3, status = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + sessionColumns + `
	`

	session, err := scanSession(tx.QueryRow(ctx, update, id, newAmount, paymentRef, status))
	if err != nil {
		return nil, fmt.Errorf("mark session paid: %w", err)
	}

	if current.Status == domain.SessionViolation {
		if _, err := settleForPlateLot(ctx, tx, session.LicensePlate, session.LotID, paymentRef); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit mark paid: %w", err)
	}

	return session, nil
}

// List returns session history for the read-model endpoints.
func (r *SessionRepository) List(ctx context.Context, filter domain.SessionFilter) ([]domain.ParkingSession, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT ` + sessionColumns + `
		FROM parking_sessions
		WHERE ($1::uuid IS NULL OR lot_id = $1)
		  AND ($2 = '' OR license_plate = $2)
		  AND ($3 = '' OR status = $3)
		  AND ($4::timestamptz IS NULL OR entry_time >= $4)
		  AND ($5::timestamptz IS NULL OR entry_time < $5)
		ORDER BY entry_time DESC
		LIMIT $6
	`

	rows, err := r.pool.Query(ctx, query,
		filter.LotID,
		filter.LicensePlate,
		filter.Status,
		filter.From,
		filter.To,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.ParkingSession
	for rows.Next() {
		var s domain.ParkingSession
		err := rows.Scan(
			&s.ID,
			&s.LicensePlate,
			&s.LotID,
			&s.EntryTime,
			&s.ExitTime,
			&s.Status,
			&s.PaymentStatus,
			&s.Amount,
			&s.PaymentRef,
			&s.EntryEventID,
			&s.ExitEventID,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// ActiveCounts returns the number of active sessions per lot.
func (r *SessionRepository) ActiveCounts(ctx context.Context) ([]domain.LotActiveCount, error) {
	query := `
		SELECT lot_id, COUNT(*)
		FROM parking_sessions
		WHERE status = 'active'
		GROUP BY lot_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count active sessions: %w", err)
	}
	defer rows.Close()

	var counts []domain.LotActiveCount
	for rows.Next() {
		var c domain.LotActiveCount
		if err := rows.Scan(&c.LotID, &c.ActiveSessions); err != nil {
			return nil, fmt.Errorf("scan active count: %w", err)
		}
		counts = append(counts, c)
	}

	return counts, rows.Err()
}
