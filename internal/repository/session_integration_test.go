//go:build integration

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/curbside-labs/lotwatch/internal/database"
	"github.com/curbside-labs/lotwatch/internal/domain"
)

func setupIntegrationTest(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "lotwatch_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://test:test@%s:%s/lotwatch_test?sslmode=disable", host, port.Port())

	sqlDB, err := sql.Open("pgx", connStr)
	require.NoError(t, err)

	migrator, err := database.NewMigrator(sqlDB, "lotwatch_test")
	require.NoError(t, err)
	require.NoError(t, migrator.Up())
	require.NoError(t, migrator.Close())

	db, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func TestSessionLifecycle_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()
	lots := NewLotRepository(db)
	sessions := NewSessionRepository(db)
	violations := NewViolationRepository(db)

	lot := &domain.ParkingLot{
		VendorLotID: "garage-north",
		Name:        "North Garage",
		Capacity:    3,
	}
	require.NoError(t, lots.Create(ctx, lot))

	t.Run("entry opens session and increments occupancy", func(t *testing.T) {
		session, updated, err := sessions.Open(ctx, OpenSessionParams{
			LicensePlate:  "AAA111",
			LotID:         lot.ID,
			EntryTime:     time.Now(),
			PaymentStatus: domain.PaymentUnpaid,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.SessionActive, session.Status)
		assert.Equal(t, 1, updated.CurrentOccupancy)
	})

	t.Run("second entry for same plate reports duplicate", func(t *testing.T) {
		existing, _, err := sessions.Open(ctx, OpenSessionParams{
			LicensePlate:  "AAA111",
			LotID:         lot.ID,
			EntryTime:     time.Now(),
			PaymentStatus: domain.PaymentUnpaid,
		})
		assert.ErrorIs(t, err, domain.ErrDuplicateActiveSession)
		require.NotNil(t, existing)

		after, err := lots.GetByID(ctx, lot.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, after.CurrentOccupancy, "duplicate entry must not change occupancy")
	})

	t.Run("full lot rejects entry and leaves no session behind", func(t *testing.T) {
		for _, plate := range []string{"BBB222", "CCC333"} {
			_, _, err := sessions.Open(ctx, OpenSessionParams{
				LicensePlate:  plate,
				LotID:         lot.ID,
				EntryTime:     time.Now(),
				PaymentStatus: domain.PaymentUnpaid,
			})
			require.NoError(t, err)
		}

		_, _, err := sessions.Open(ctx, OpenSessionParams{
			LicensePlate:  "DDD444",
			LotID:         lot.ID,
			EntryTime:     time.Now(),
			PaymentStatus: domain.PaymentUnpaid,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidAdjustment)

		_, err = sessions.GetActive(ctx, "DDD444", lot.ID)
		assert.ErrorIs(t, err, domain.ErrNoActiveSession)
	})

	t.Run("unpaid exit closes as violation", func(t *testing.T) {
		fare := 12.5
		result, err := sessions.Close(ctx, CloseSessionParams{
			LicensePlate: "AAA111",
			LotID:        lot.ID,
			ExitTime:     time.Now(),
			Amount:       &fare,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.SessionViolation, result.Session.Status)
		assert.Equal(t, 2, result.Lot.CurrentOccupancy)
		require.NotNil(t, result.Violation)
		assert.Equal(t, fare, result.Violation.Amount)

		unpaid, err := violations.UnpaidByPlate(ctx, "AAA111")
		require.NoError(t, err)
		assert.Len(t, unpaid, 1)
	})

	t.Run("payment settles the violation session", func(t *testing.T) {
		closed, err := sessions.List(ctx, domain.SessionFilter{
			LicensePlate: "AAA111",
			Status:       domain.SessionViolation,
		})
		require.NoError(t, err)
		require.Len(t, closed, 1)

		session, err := sessions.MarkPaid(ctx, closed[0].ID, "pay_abc", nil)
		require.NoError(t, err)
		assert.Equal(t, domain.SessionCompleted, session.Status)
		assert.Equal(t, domain.PaymentPaid, session.PaymentStatus)

		unpaid, err := violations.UnpaidByPlate(ctx, "AAA111")
		require.NoError(t, err)
		assert.Empty(t, unpaid)
	})

	t.Run("paid exit completes cleanly", func(t *testing.T) {
		fare := 5.0
		_, err := sessions.MarkPaid(ctx, mustActiveID(t, ctx, sessions, "BBB222", lot.ID), "pay_bbb", &fare)
		require.NoError(t, err)

		result, err := sessions.Close(ctx, CloseSessionParams{
			LicensePlate: "BBB222",
			LotID:        lot.ID,
			ExitTime:     time.Now(),
			Amount:       &fare,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.SessionCompleted, result.Session.Status)
		assert.Nil(t, result.Violation)
	})

	t.Run("concurrent entries for distinct plates respect capacity", func(t *testing.T) {
		// Lot currently holds CCC333. Two slots remain; three racers.
		plates := []string{"EEE555", "FFF666", "GGG777"}
		errs := make(chan error, len(plates))

		for _, plate := range plates {
			go func(p string) {
				_, _, err := sessions.Open(ctx, OpenSessionParams{
					LicensePlate:  p,
					LotID:         lot.ID,
					EntryTime:     time.Now(),
					PaymentStatus: domain.PaymentUnpaid,
				})
				errs <- err
			}(plate)
		}

		var rejected int
		for range plates {
			if err := <-errs; err != nil {
				assert.ErrorIs(t, err, domain.ErrInvalidAdjustment)
				rejected++
			}
		}
		assert.Equal(t, 1, rejected)

		after, err := lots.GetByID(ctx, lot.ID)
		require.NoError(t, err)
		assert.Equal(t, after.Capacity, after.CurrentOccupancy)
	})
}

func mustActiveID(t *testing.T, ctx context.Context, repo *SessionRepository, plate string, lotID uuid.UUID) uuid.UUID {
	t.Helper()
	session, err := repo.GetActive(ctx, plate, lotID)
	require.NoError(t, err)
	return session.ID
}

func TestMain(m *testing.M) {
	code := m.Run()
	os.Exit(code)
}
