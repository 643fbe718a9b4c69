package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curbside-labs/lotwatch/internal/domain"
)

var sessionColumnNames = []string{
	"id", "license_plate", "lot_id", "entry_time", "exit_time", "status", "payment_status",
	"amount", "payment_ref", "entry_event_id", "exit_event_id", "created_at", "updated_at",
}

var lotColumnNames = []string{
	"id", "vendor_lot_id", "name", "capacity", "current_occupancy", "created_at", "updated_at",
}

// LotRepository Tests

func TestLotRepository_GetByVendorID(t *testing.T) {
	lotID := uuid.New()
	now := time.Now()

	tests := []struct {
		name        string
		vendorLotID string
		mockSetup   func(mock pgxmock.PgxPoolIface)
		want        *domain.ParkingLot
		wantErr     error
	}{
		{
			name:        "successful retrieval",
			vendorLotID: "garage-north",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(lotColumnNames).
					AddRow(lotID, "garage-north", "North Garage", 120, 45, now, now)

				mock.ExpectQuery(`SELECT (.+) FROM parking_lots WHERE vendor_lot_id = \$1`).
					WithArgs("garage-north").
					WillReturnRows(rows)
			},
			want: &domain.ParkingLot{
				ID:               lotID,
				VendorLotID:      "garage-north",
				Name:             "North Garage",
				Capacity:         120,
				CurrentOccupancy: 45,
			},
			wantErr: nil,
		},
		{
			name:        "lot not found",
			vendorLotID: "garage-missing",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT (.+) FROM parking_lots WHERE vendor_lot_id = \$1`).
					WithArgs("garage-missing").
					WillReturnError(pgx.ErrNoRows)
			},
			want:    nil,
			wantErr: domain.ErrLotNotFound,
		},
		{
			name:        "database error",
			vendorLotID: "garage-error",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT (.+) FROM parking_lots WHERE vendor_lot_id = \$1`).
					WithArgs("garage-error").
					WillReturnError(errors.New("connection lost"))
			},
			want:    nil,
			wantErr: errors.New("get lot by vendor id: connection lost"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewLotRepository(mock)
			got, err := repo.GetByVendorID(context.Background(), tt.vendorLotID)

			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, domain.ErrLotNotFound) {
					assert.ErrorIs(t, err, domain.ErrLotNotFound)
				} else {
					assert.Contains(t, err.Error(), "get lot by vendor id")
				}
			} else {
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, tt.want.ID, got.ID)
				assert.Equal(t, tt.want.VendorLotID, got.VendorLotID)
				assert.Equal(t, tt.want.Capacity, got.Capacity)
				assert.Equal(t, tt.want.CurrentOccupancy, got.CurrentOccupancy)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestLotRepository_AdjustOccupancy(t *testing.T) {
	lotID := uuid.New()
	now := time.Now()

	tests := []struct {
		name          string
		delta         int
		mockSetup     func(mock pgxmock.PgxPoolIface)
		wantOccupancy int
		wantErr       error
	}{
		{
			name:  "increment within bounds",
			delta: 1,
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(lotColumnNames).
					AddRow(lotID, "garage-north", "North Garage", 120, 46, now, now)

				mock.ExpectQuery(`UPDATE parking_lots SET current_occupancy = current_occupancy \+ \$2`).
					WithArgs(lotID, 1).
					WillReturnRows(rows)
			},
			wantOccupancy: 46,
			wantErr:       nil,
		},
		{
			name:  "decrement below zero rejected",
			delta: -1,
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`UPDATE parking_lots SET current_occupancy = current_occupancy \+ \$2`).
					WithArgs(lotID, -1).
					WillReturnError(pgx.ErrNoRows)

				exists := pgxmock.NewRows([]string{"exists"}).AddRow(true)
				mock.ExpectQuery(`SELECT EXISTS`).
					WithArgs(lotID).
					WillReturnRows(exists)
			},
			wantErr: domain.ErrInvalidAdjustment,
		},
		{
			name:  "lot missing",
			delta: 1,
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`UPDATE parking_lots SET current_occupancy = current_occupancy \+ \$2`).
					WithArgs(lotID, 1).
					WillReturnError(pgx.ErrNoRows)

				exists := pgxmock.NewRows([]string{"exists"}).AddRow(false)
				mock.ExpectQuery(`SELECT EXISTS`).
					WithArgs(lotID).
					WillReturnRows(exists)
			},
			wantErr: domain.ErrLotNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewLotRepository(mock)
			got, err := repo.AdjustOccupancy(context.Background(), lotID, tt.delta)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, tt.wantOccupancy, got.CurrentOccupancy)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// PermitRepository Tests

func TestPermitRepository_FindActive(t *testing.T) {
	lotID := uuid.New()
	permitID := uuid.New()
	now := time.Now()

	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		want      *domain.Permit
		wantErr   error
	}{
		{
			name: "global permit matches any lot",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{
					"id", "type", "license_plate", "status", "global_access", "lot_id", "expires_at", "created_at", "updated_at",
				}).AddRow(permitID, domain.PermitVIP, "ABC123", domain.PermitActive, true, nil, nil, now, now)

				mock.ExpectQuery(`SELECT (.+) FROM permits WHERE license_plate = \$1`).
					WithArgs("ABC123", lotID).
					WillReturnRows(rows)
			},
			want: &domain.Permit{
				ID:           permitID,
				Type:         domain.PermitVIP,
				LicensePlate: "ABC123",
				Status:       domain.PermitActive,
				GlobalAccess: true,
			},
			wantErr: nil,
		},
		{
			name: "no covering permit returns nil without error",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT (.+) FROM permits WHERE license_plate = \$1`).
					WithArgs("ABC123", lotID).
					WillReturnError(pgx.ErrNoRows)
			},
			want:    nil,
			wantErr: nil,
		},
		{
			name: "database error",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT (.+) FROM permits WHERE license_plate = \$1`).
					WithArgs("ABC123", lotID).
					WillReturnError(errors.New("timeout"))
			},
			want:    nil,
			wantErr: errors.New("find active permit: timeout"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewPermitRepository(mock)
			got, err := repo.FindActive(context.Background(), "ABC123", lotID)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "find active permit")
			} else {
				require.NoError(t, err)
				if tt.want == nil {
					assert.Nil(t, got)
				} else {
					require.NotNil(t, got)
					assert.Equal(t, tt.want.ID, got.ID)
					assert.Equal(t, tt.want.Type, got.Type)
					assert.True(t, got.GlobalAccess)
				}
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPermitRepository_Create_Duplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO permits`).
		WithArgs(
			pgxmock.AnyArg(),
			domain.PermitMonthly,
			"ABC123",
			domain.PermitActive,
			false,
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
		).
		WillReturnError(errors.New("duplicate key value violates unique constraint (23505)"))

	repo := NewPermitRepository(mock)
	expires := time.Now().Add(30 * 24 * time.Hour)
	err = repo.Create(context.Background(), &domain.Permit{
		Type:         domain.PermitMonthly,
		LicensePlate: "ABC123",
		ExpiresAt:    &expires,
	})

	assert.ErrorIs(t, err, domain.ErrDuplicateActivePermit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ViolationRepository Tests

func TestViolationRepository_Settle(t *testing.T) {
	violationID := uuid.New()
	lotID := uuid.New()
	now := time.Now()

	violationColumnNames := []string{
		"id", "license_plate", "lot_id", "reason", "amount", "status", "source",
		"paid_at", "payment_ref", "event_id", "created_at", "updated_at",
	}

	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "successful settlement",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				ref := "pay_789"
				rows := pgxmock.NewRows(violationColumnNames).
					AddRow(violationID, "ABC123", lotID, "Unpaid parking", 15.0, domain.ViolationPaid,
						domain.ViolationSourceSystem, &now, &ref, nil, now, now)

				mock.ExpectQuery(`UPDATE violations SET status = 'paid'`).
					WithArgs(violationID, "pay_789").
					WillReturnRows(rows)
			},
			wantErr: nil,
		},
		{
			name: "already settled",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`UPDATE violations SET status = 'paid'`).
					WithArgs(violationID, "pay_789").
					WillReturnError(pgx.ErrNoRows)

				ref := "pay_111"
				rows := pgxmock.NewRows(violationColumnNames).
					AddRow(violationID, "ABC123", lotID, "Unpaid parking", 15.0, domain.ViolationPaid,
						domain.ViolationSourceSystem, &now, &ref, nil, now, now)

				mock.ExpectQuery(`SELECT (.+) FROM violations WHERE id = \$1`).
					WithArgs(violationID).
					WillReturnRows(rows)
			},
			wantErr: domain.ErrAlreadySettled,
		},
		{
			name: "violation not found",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`UPDATE violations SET status = 'paid'`).
					WithArgs(violationID, "pay_789").
					WillReturnError(pgx.ErrNoRows)

				mock.ExpectQuery(`SELECT (.+) FROM violations WHERE id = \$1`).
					WithArgs(violationID).
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: domain.ErrViolationNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewViolationRepository(mock)
			got, err := repo.Settle(context.Background(), violationID, "pay_789")

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, domain.ViolationPaid, got.Status)
				assert.NotNil(t, got.PaidAt)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// SessionRepository Tests

func TestSessionRepository_Open(t *testing.T) {
	lotID := uuid.New()
	sessionID := uuid.New()
	eventID := uuid.New()
	now := time.Now()

	t.Run("opens session and increments occupancy in one transaction", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
			WithArgs("ABC123:" + lotID.String()).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mock.ExpectQuery(`SELECT (.+) FROM parking_sessions WHERE license_plate = \$1 AND lot_id = \$2 AND status = 'active'`).
			WithArgs("ABC123", lotID).
			WillReturnError(pgx.ErrNoRows)

		inserted := pgxmock.NewRows(sessionColumnNames).
			AddRow(sessionID, "ABC123", lotID, now, nil, domain.SessionActive, domain.PaymentUnpaid,
				nil, nil, &eventID, nil, now, now)
		mock.ExpectQuery(`INSERT INTO parking_sessions`).
			WithArgs(pgxmock.AnyArg(), "ABC123", lotID, now, domain.PaymentUnpaid, &eventID).
			WillReturnRows(inserted)

		lotRows := pgxmock.NewRows(lotColumnNames).
			AddRow(lotID, "garage-north", "North Garage", 120, 46, now, now)
		mock.ExpectQuery(`UPDATE parking_lots SET current_occupancy = current_occupancy \+ \$2`).
			WithArgs(lotID, 1).
			WillReturnRows(lotRows)
		mock.ExpectCommit()

		repo := NewSessionRepository(mock)
		session, lot, err := repo.Open(context.Background(), OpenSessionParams{
			LicensePlate:  "ABC123",
			LotID:         lotID,
			EntryTime:     now,
			PaymentStatus: domain.PaymentUnpaid,
			EntryEventID:  &eventID,
		})

		require.NoError(t, err)
		require.NotNil(t, session)
		require.NotNil(t, lot)
		assert.Equal(t, sessionID, session.ID)
		assert.Equal(t, domain.SessionActive, session.Status)
		assert.Equal(t, 46, lot.CurrentOccupancy)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate entry returns existing session", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
			WithArgs("ABC123:" + lotID.String()).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))

		existing := pgxmock.NewRows(sessionColumnNames).
			AddRow(sessionID, "ABC123", lotID, now, nil, domain.SessionActive, domain.PaymentUnpaid,
				nil, nil, &eventID, nil, now, now)
		mock.ExpectQuery(`SELECT (.+) FROM parking_sessions WHERE license_plate = \$1 AND lot_id = \$2 AND status = 'active'`).
			WithArgs("ABC123", lotID).
			WillReturnRows(existing)
		mock.ExpectRollback()

		repo := NewSessionRepository(mock)
		session, lot, err := repo.Open(context.Background(), OpenSessionParams{
			LicensePlate:  "ABC123",
			LotID:         lotID,
			EntryTime:     now,
			PaymentStatus: domain.PaymentUnpaid,
		})

		assert.ErrorIs(t, err, domain.ErrDuplicateActiveSession)
		require.NotNil(t, session)
		assert.Equal(t, sessionID, session.ID)
		assert.Nil(t, lot)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("occupancy at capacity rolls everything back", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
			WithArgs("ABC123:" + lotID.String()).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mock.ExpectQuery(`SELECT (.+) FROM parking_sessions WHERE license_plate = \$1 AND lot_id = \$2 AND status = 'active'`).
			WithArgs("ABC123", lotID).
			WillReturnError(pgx.ErrNoRows)

		inserted := pgxmock.NewRows(sessionColumnNames).
			AddRow(sessionID, "ABC123", lotID, now, nil, domain.SessionActive, domain.PaymentUnpaid,
				nil, nil, nil, nil, now, now)
		mock.ExpectQuery(`INSERT INTO parking_sessions`).
			WithArgs(pgxmock.AnyArg(), "ABC123", lotID, now, domain.PaymentUnpaid, (*uuid.UUID)(nil)).
			WillReturnRows(inserted)

		mock.ExpectQuery(`UPDATE parking_lots SET current_occupancy = current_occupancy \+ \$2`).
			WithArgs(lotID, 1).
			WillReturnError(pgx.ErrNoRows)
		exists := pgxmock.NewRows([]string{"exists"}).AddRow(true)
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(lotID).
			WillReturnRows(exists)
		mock.ExpectRollback()

		repo := NewSessionRepository(mock)
		session, lot, err := repo.Open(context.Background(), OpenSessionParams{
			LicensePlate:  "ABC123",
			LotID:         lotID,
			EntryTime:     now,
			PaymentStatus: domain.PaymentUnpaid,
		})

		assert.ErrorIs(t, err, domain.ErrInvalidAdjustment)
		assert.Nil(t, session)
		assert.Nil(t, lot)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSessionRepository_Close(t *testing.T) {
	lotID := uuid.New()
	sessionID := uuid.New()
	exitEventID := uuid.New()
	entry := time.Now().Add(-2 * time.Hour)
	now := time.Now()
	fare := 10.0

	t.Run("paid session completes without violation", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
			WithArgs("ABC123:" + lotID.String()).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))

		active := pgxmock.NewRows(sessionColumnNames).
			AddRow(sessionID, "ABC123", lotID, entry, nil, domain.SessionActive, domain.PaymentPaid,
				nil, nil, nil, nil, entry, entry)
		mock.ExpectQuery(`SELECT (.+) FROM parking_sessions WHERE license_plate = \$1 AND lot_id = \$2 AND status = 'active'`).
			WithArgs("ABC123", lotID).
			WillReturnRows(active)

		closed := pgxmock.NewRows(sessionColumnNames).
			AddRow(sessionID, "ABC123", lotID, entry, &now, domain.SessionCompleted, domain.PaymentPaid,
				&fare, nil, nil, &exitEventID, entry, now)
		mock.ExpectQuery(`UPDATE parking_sessions SET exit_time = \$2`).
			WithArgs(sessionID, now, domain.SessionCompleted, &fare, &exitEventID).
			WillReturnRows(closed)

		lotRows := pgxmock.NewRows(lotColumnNames).
			AddRow(lotID, "garage-north", "North Garage", 120, 44, now, now)
		mock.ExpectQuery(`UPDATE parking_lots SET current_occupancy = current_occupancy \+ \$2`).
			WithArgs(lotID, -1).
			WillReturnRows(lotRows)
		mock.ExpectCommit()

		repo := NewSessionRepository(mock)
		result, err := repo.Close(context.Background(), CloseSessionParams{
			LicensePlate: "ABC123",
			LotID:        lotID,
			ExitTime:     now,
			Amount:       &fare,
			ExitEventID:  &exitEventID,
		})

		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, domain.SessionCompleted, result.Session.Status)
		assert.Nil(t, result.Violation)
		assert.Equal(t, 44, result.Lot.CurrentOccupancy)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unpaid session closes as violation and issues one", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
			WithArgs("ABC123:" + lotID.String()).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))

		active := pgxmock.NewRows(sessionColumnNames).
			AddRow(sessionID, "ABC123", lotID, entry, nil, domain.SessionActive, domain.PaymentUnpaid,
				nil, nil, nil, nil, entry, entry)
		mock.ExpectQuery(`SELECT (.+) FROM parking_sessions WHERE license_plate = \$1 AND lot_id = \$2 AND status = 'active'`).
			WithArgs("ABC123", lotID).
			WillReturnRows(active)

		closed := pgxmock.NewRows(sessionColumnNames).
			AddRow(sessionID, "ABC123", lotID, entry, &now, domain.SessionViolation, domain.PaymentUnpaid,
				&fare, nil, nil, &exitEventID, entry, now)
		mock.ExpectQuery(`UPDATE parking_sessions SET exit_time = \$2`).
			WithArgs(sessionID, now, domain.SessionViolation, &fare, &exitEventID).
			WillReturnRows(closed)

		violationRows := pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now)
		mock.ExpectQuery(`INSERT INTO violations`).
			WithArgs(pgxmock.AnyArg(), "ABC123", lotID, "Unpaid parking", fare,
				domain.ViolationIssued, domain.ViolationSourceSystem, &exitEventID).
			WillReturnRows(violationRows)

		lotRows := pgxmock.NewRows(lotColumnNames).
			AddRow(lotID, "garage-north", "North Garage", 120, 44, now, now)
		mock.ExpectQuery(`UPDATE parking_lots SET current_occupancy = current_occupancy \+ \$2`).
			WithArgs(lotID, -1).
			WillReturnRows(lotRows)
		mock.ExpectCommit()

		repo := NewSessionRepository(mock)
		result, err := repo.Close(context.Background(), CloseSessionParams{
			LicensePlate: "ABC123",
			LotID:        lotID,
			ExitTime:     now,
			Amount:       &fare,
			ExitEventID:  &exitEventID,
		})

		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, domain.SessionViolation, result.Session.Status)
		require.NotNil(t, result.Violation)
		assert.Equal(t, "Unpaid parking", result.Violation.Reason)
		assert.Equal(t, fare, result.Violation.Amount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no active session", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
			WithArgs("ABC123:" + lotID.String()).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mock.ExpectQuery(`SELECT (.+) FROM parking_sessions WHERE license_plate = \$1 AND lot_id = \$2 AND status = 'active'`).
			WithArgs("ABC123", lotID).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		repo := NewSessionRepository(mock)
		result, err := repo.Close(context.Background(), CloseSessionParams{
			LicensePlate: "ABC123",
			LotID:        lotID,
			ExitTime:     now,
		})

		assert.ErrorIs(t, err, domain.ErrNoActiveSession)
		assert.Nil(t, result)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSessionRepository_MarkPaid(t *testing.T) {
	lotID := uuid.New()
	sessionID := uuid.New()
	entry := time.Now().Add(-3 * time.Hour)
	now := time.Now()
	fare := 15.0
	ref := "pay_123"

	t.Run("violation session settles and completes", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()

		current := pgxmock.NewRows(sessionColumnNames).
			AddRow(sessionID, "ABC123", lotID, entry, &now, domain.SessionViolation, domain.PaymentUnpaid,
				&fare, nil, nil, nil, entry, now)
		mock.ExpectQuery(`SELECT (.+) FROM parking_sessions WHERE id = \$1`).
			WithArgs(sessionID).
			WillReturnRows(current)

		mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
			WithArgs("ABC123:" + lotID.String()).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))

		locked := pgxmock.NewRows(sessionColumnNames).
			AddRow(sessionID, "ABC123", lotID, entry, &now, domain.SessionViolation, domain.PaymentUnpaid,
				&fare, nil, nil, nil, entry, now)
		mock.ExpectQuery(`SELECT (.+) FROM parking_sessions WHERE id = \$1 FOR UPDATE`).
			WithArgs(sessionID).
			WillReturnRows(locked)

		paid := pgxmock.NewRows(sessionColumnNames).
			AddRow(sessionID, "ABC123", lotID, entry, &now, domain.SessionCompleted, domain.PaymentPaid,
				&fare, &ref, nil, nil, entry, now)
		mock.ExpectQuery(`UPDATE parking_sessions SET payment_status = 'paid'`).
			WithArgs(sessionID, &fare, ref, domain.SessionCompleted).
			WillReturnRows(paid)

		mock.ExpectExec(`UPDATE violations SET status = 'paid'`).
			WithArgs("ABC123", lotID, ref).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		repo := NewSessionRepository(mock)
		session, err := repo.MarkPaid(context.Background(), sessionID, ref, nil)

		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, domain.SessionCompleted, session.Status)
		assert.Equal(t, domain.PaymentPaid, session.PaymentStatus)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("completed session is not settleable", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()

		current := pgxmock.NewRows(sessionColumnNames).
			AddRow(sessionID, "ABC123", lotID, entry, &now, domain.SessionCompleted, domain.PaymentPaid,
				&fare, &ref, nil, nil, entry, now)
		mock.ExpectQuery(`SELECT (.+) FROM parking_sessions WHERE id = \$1`).
			WithArgs(sessionID).
			WillReturnRows(current)

		mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
			WithArgs("ABC123:" + lotID.String()).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))

		locked := pgxmock.NewRows(sessionColumnNames).
			AddRow(sessionID, "ABC123", lotID, entry, &now, domain.SessionCompleted, domain.PaymentPaid,
				&fare, &ref, nil, nil, entry, now)
		mock.ExpectQuery(`SELECT (.+) FROM parking_sessions WHERE id = \$1 FOR UPDATE`).
			WithArgs(sessionID).
			WillReturnRows(locked)
		mock.ExpectRollback()

		repo := NewSessionRepository(mock)
		session, err := repo.MarkPaid(context.Background(), sessionID, ref, nil)

		assert.ErrorIs(t, err, domain.ErrSessionNotSettleable)
		assert.Nil(t, session)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("session not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM parking_sessions WHERE id = \$1`).
			WithArgs(sessionID).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		repo := NewSessionRepository(mock)
		session, err := repo.MarkPaid(context.Background(), sessionID, ref, nil)

		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
		assert.Nil(t, session)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// EventRepository Tests

func TestEventRepository_Insert(t *testing.T) {
	eventID := uuid.New()
	existingID := uuid.New()
	eventTime := time.Now().Add(-time.Minute)
	now := time.Now()

	eventColumnNames := []string{
		"id", "event_type", "license_plate", "vendor_lot_id", "lot_id", "event_time",
		"confidence", "raw_payload", "processed", "created_at",
	}

	t.Run("first delivery inserts", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		rows := pgxmock.NewRows([]string{"created_at"}).AddRow(now)
		mock.ExpectQuery(`INSERT INTO ingestion_events`).
			WithArgs(eventID, domain.EventEntry, "ABC123", "garage-north", pgxmock.AnyArg(),
				eventTime, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnRows(rows)

		repo := NewEventRepository(mock)
		event := &domain.IngestionEvent{
			ID:           eventID,
			EventType:    domain.EventEntry,
			LicensePlate: "ABC123",
			VendorLotID:  "garage-north",
			EventTime:    eventTime,
		}
		err = repo.Insert(context.Background(), event)

		require.NoError(t, err)
		assert.Equal(t, eventID, event.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redelivery reports duplicate with stored event", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`INSERT INTO ingestion_events`).
			WithArgs(pgxmock.AnyArg(), domain.EventEntry, "ABC123", "garage-north", pgxmock.AnyArg(),
				eventTime, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(errors.New("duplicate key value violates unique constraint (23505)"))

		stored := pgxmock.NewRows(eventColumnNames).
			AddRow(existingID, domain.EventEntry, "ABC123", "garage-north", nil, eventTime,
				nil, []byte(`{}`), true, now)
		mock.ExpectQuery(`SELECT (.+) FROM ingestion_events WHERE license_plate = \$1`).
			WithArgs("ABC123", "garage-north", domain.EventEntry, eventTime).
			WillReturnRows(stored)

		repo := NewEventRepository(mock)
		event := &domain.IngestionEvent{
			EventType:    domain.EventEntry,
			LicensePlate: "ABC123",
			VendorLotID:  "garage-north",
			EventTime:    eventTime,
		}
		err = repo.Insert(context.Background(), event)

		assert.ErrorIs(t, err, domain.ErrDuplicateEvent)
		assert.Equal(t, existingID, event.ID)
		assert.True(t, event.Processed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// Helper function to test unique violation detection
func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "postgres error code 23505",
			err:  fmt.Errorf("pq: duplicate key value violates unique constraint (23505)"),
			want: true,
		},
		{
			name: "error contains unique",
			err:  fmt.Errorf("ERROR: unique constraint violated"),
			want: true,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "different error",
			err:  fmt.Errorf("connection timeout"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isUniqueViolation(tt.err)
			assert.Equal(t, tt.want, got)
		})
	}
}
