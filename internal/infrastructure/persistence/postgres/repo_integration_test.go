//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/model"
	"github.com/coopahorro/dap/internal/domain/port"
	"github.com/coopahorro/dap/internal/domain/service"
	"github.com/coopahorro/dap/internal/domain/valueobject"
	"github.com/coopahorro/dap/internal/infrastructure/persistence/postgres"
	pgpkg "github.com/coopahorro/dap/pkg/postgres"
	"github.com/coopahorro/dap/pkg/testutil"
)

var openedAt = time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) *testutil.PostgresContainer {
	t.Helper()
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { pc.Cleanup(t) })
	pc.RunMigrations(t, "migrations")
	return pc
}

func newDeposit(t *testing.T, table valueobject.TierTable, owner uuid.UUID) model.Deposit {
	t.Helper()
	engine := service.NewSimulationEngine(service.NewInterestCalculator())
	offer, err := engine.Offer(table, valueobject.DepositTypeFixed, "UYU", 30, decimal.NewFromInt(100000), openedAt)
	require.NoError(t, err)
	d, err := model.NewDeposit(owner, offer, openedAt)
	require.NoError(t, err)
	return d
}

func TestRepositories_Integration(t *testing.T) {
	pc := setup(t)
	ctx := context.Background()

	tiers, err := postgres.NewTierRepo(pc.Pool).LoadTiers(ctx)
	require.NoError(t, err)
	table, err := valueobject.NewTierTable(tiers)
	require.NoError(t, err, "seeded tiers must partition the term range")

	deposits := postgres.NewDepositRepo(pc.Pool)
	activations := postgres.NewActivationRepo(pc.Pool)
	attachments := postgres.NewAttachmentRepo(pc.Pool)
	outbox := postgres.NewOutboxRepo(pc.Pool)

	t.Run("deposit round trip", func(t *testing.T) {
		d := newDeposit(t, table, testutil.TestOwnerID)
		require.NoError(t, deposits.Save(ctx, d))

		got, err := deposits.FindByID(ctx, d.ID())
		require.NoError(t, err)
		assert.Equal(t, d.Record().Status, got.Status())
		assert.True(t, got.Profit().Equal(decimal.NewFromInt(4)))
		assert.True(t, got.MonthlyRate().Equal(d.MonthlyRate()))
		assert.Equal(t, d.DueAt(), got.DueAt())

		_, err = deposits.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, apperror.ErrDepositNotFound)
	})

	t.Run("stale version rejected", func(t *testing.T) {
		d := newDeposit(t, table, testutil.TestOwnerID)
		require.NoError(t, deposits.Save(ctx, d))
		stored, err := deposits.FindByID(ctx, d.ID())
		require.NoError(t, err)

		first, err := stored.Override(valueobject.DepositStatusActive, openedAt)
		require.NoError(t, err)
		second, err := stored.Override(valueobject.DepositStatusCancelled, openedAt)
		require.NoError(t, err)

		require.NoError(t, deposits.Save(ctx, first))
		assert.ErrorIs(t, deposits.Save(ctx, second), apperror.ErrStaleVersion)
	})

	t.Run("list by owner", func(t *testing.T) {
		owner := uuid.New()
		for i := 0; i < 3; i++ {
			require.NoError(t, deposits.Save(ctx, newDeposit(t, table, owner)))
		}
		got, err := deposits.ListByOwner(ctx, port.DepositFilter{
			OwnerID:  owner,
			Statuses: []valueobject.DepositStatus{valueobject.DepositStatusPending},
			Limit:    2,
		})
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = deposits.ListByOwner(ctx, port.DepositFilter{
			OwnerID:  owner,
			Statuses: []valueobject.DepositStatus{valueobject.DepositStatusCancelled},
			Limit:    10,
		})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("activation uniqueness", func(t *testing.T) {
		a := newDeposit(t, table, testutil.TestOwnerID)
		b := newDeposit(t, table, testutil.TestOwnerID)
		require.NoError(t, deposits.Save(ctx, a))
		require.NoError(t, deposits.Save(ctx, b))

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, d := range []model.Deposit{a, b} {
			wg.Add(1)
			go func(i int, d model.Deposit) {
				defer wg.Done()
				stored, err := deposits.FindByID(ctx, d.ID())
				if !assert.NoError(t, err) {
					return
				}
				activated, err := stored.Activate("ABC123", testutil.TestStaffID, openedAt)
				if !assert.NoError(t, err) {
					return
				}
				rec, err := model.NewActivationRecord(d.ID(), "ABC123", testutil.TestStaffID, openedAt)
				if !assert.NoError(t, err) {
					return
				}
				errs[i] = activations.Activate(ctx, rec, activated)
			}(i, d)
		}
		wg.Wait()

		failed := 0
		for _, err := range errs {
			if err != nil {
				failed++
				assert.ErrorIs(t, err, apperror.ErrInternalIDAlreadyUsed)
			}
		}
		assert.Equal(t, 1, failed)

		rec, err := activations.FindByInternalID(ctx, "ABC123")
		require.NoError(t, err)
		bound, err := deposits.FindByID(ctx, rec.DepositID())
		require.NoError(t, err)
		assert.Equal(t, valueobject.DepositStatusActive, bound.Status())
		assert.Equal(t, "ABC123", bound.InternalID())
	})

	t.Run("attachment create and remove", func(t *testing.T) {
		d := newDeposit(t, table, testutil.TestOwnerID)
		require.NoError(t, deposits.Save(ctx, d))

		att, err := model.NewAttachment(d.ID(), valueobject.DocumentTypeReceipt, valueobject.FileFormatPNG,
			"receipt.png", 128, testutil.TestOwnerID, openedAt)
		require.NoError(t, err)

		blobErr := errors.New("disk full")
		err = attachments.Create(ctx, att, func(context.Context) error { return blobErr })
		assert.ErrorIs(t, err, blobErr)
		live, err := attachments.ListByDeposit(ctx, d.ID())
		require.NoError(t, err)
		assert.Empty(t, live, "failed store rolls back the record")

		require.NoError(t, attachments.Create(ctx, att, func(context.Context) error { return nil }))

		again, err := model.NewAttachment(d.ID(), valueobject.DocumentTypeReceipt, valueobject.FileFormatJPEG,
			"other.jpg", 64, testutil.TestOwnerID, openedAt)
		require.NoError(t, err)
		err = attachments.Create(ctx, again, func(context.Context) error { return nil })
		assert.ErrorIs(t, err, apperror.ErrAlreadyUploaded)

		got, err := attachments.FindByID(ctx, d.ID(), att.ID())
		require.NoError(t, err)
		assert.Equal(t, valueobject.FileFormatPNG, got.Format())
		assert.Equal(t, att.StoragePath(), got.StoragePath())

		staff := valueobject.Actor{UserID: testutil.TestStaffID, Role: valueobject.RoleStaff}
		deleted, err := got.Delete(staff, openedAt)
		require.NoError(t, err)

		err = attachments.Remove(ctx, deleted, func(context.Context) error { return blobErr })
		assert.ErrorIs(t, err, blobErr)
		_, err = attachments.FindByID(ctx, d.ID(), att.ID())
		assert.NoError(t, err, "failed finalize keeps the record")

		require.NoError(t, attachments.Remove(ctx, deleted, func(context.Context) error { return nil }))
		_, err = attachments.FindByID(ctx, d.ID(), att.ID())
		assert.ErrorIs(t, err, apperror.ErrAttachmentNotFound)
	})

	t.Run("outbox", func(t *testing.T) {
		entries, err := outbox.FetchUnpublished(ctx, 500)
		require.NoError(t, err)
		require.NotEmpty(t, entries)

		ids := make([]uuid.UUID, 0, len(entries))
		for _, e := range entries {
			ids = append(ids, e.ID)
		}
		require.NoError(t, outbox.MarkPublished(ctx, ids, time.Now()))

		remaining, err := outbox.FetchUnpublished(ctx, 500)
		require.NoError(t, err)
		assert.Empty(t, remaining)
	})
}

func TestMigrations_UpDown_Integration(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { pc.Cleanup(t) })

	require.NoError(t, pgpkg.RunMigrations(pc.DSN, "file://migrations"))
	require.NoError(t, pgpkg.RunMigrations(pc.DSN, "file://migrations"), "second run is a no-op")

	tiers, err := postgres.NewTierRepo(pc.Pool).LoadTiers(ctx)
	require.NoError(t, err)
	assert.Len(t, tiers, 4)
	require.NoError(t, pgpkg.HealthCheck(ctx, pc.Pool))

	require.NoError(t, pgpkg.RunMigrationsDown(pc.DSN, "file://migrations"))
	_, err = postgres.NewTierRepo(pc.Pool).LoadTiers(ctx)
	assert.Error(t, err, "interest_tiers is dropped")
}
