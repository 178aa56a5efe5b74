package memory

import (
	"context"
	"errors"
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
)

var now = time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

func newDeposit(t *testing.T, owner uuid.UUID) model.Deposit {
	t.Helper()
	tier, err := valueobject.NewInterestTier(30, valueobject.MaxTermDays, 40)
	require.NoError(t, err)
	table, err := valueobject.NewTierTable([]valueobject.InterestTier{tier})
	require.NoError(t, err)
	engine := service.NewSimulationEngine(service.NewInterestCalculator())
	offer, err := engine.Offer(table, valueobject.DepositTypeFixed, "UYU", 30, decimal.NewFromInt(50000), now)
	require.NoError(t, err)
	d, err := model.NewDeposit(owner, offer, now)
	require.NoError(t, err)
	return d
}

func TestDepositRepo_SaveAndVersioning(t *testing.T) {
	store := NewStore()
	repo := store.Deposits()
	ctx := context.Background()
	d := newDeposit(t, uuid.New())

	require.NoError(t, repo.Save(ctx, d))
	found, err := repo.FindByID(ctx, d.ID())
	require.NoError(t, err)
	assert.Equal(t, d.Record(), found.Record())

	activated, err := d.Activate("ABC123", uuid.New(), now.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, activated))

	// A change derived from the stale copy loses.
	annulled, err := d.Override(valueobject.DepositStatusAnnulled, now.Add(time.Hour))
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Save(ctx, annulled), apperror.ErrStaleVersion)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrDepositNotFound)
}

func TestDepositRepo_ListByOwner(t *testing.T) {
	store := NewStore()
	repo := store.Deposits()
	ctx := context.Background()
	owner := uuid.New()
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Save(ctx, newDeposit(t, owner)))
	}
	require.NoError(t, repo.Save(ctx, newDeposit(t, uuid.New())))

	all, err := repo.ListByOwner(ctx, port.DepositFilter{OwnerID: owner})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	page, err := repo.ListByOwner(ctx, port.DepositFilter{OwnerID: owner, Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page, 1)

	paid, err := repo.ListByOwner(ctx, port.DepositFilter{OwnerID: owner, Statuses: []valueobject.DepositStatus{valueobject.DepositStatusPaid}})
	require.NoError(t, err)
	assert.Empty(t, paid)
}

func TestAttachmentRepo_OnePerType(t *testing.T) {
	store := NewStore()
	repo := store.Attachments()
	ctx := context.Background()
	depositID := uuid.New()
	uploader := valueobject.Actor{UserID: uuid.New(), Role: valueobject.RoleClient}

	newReceipt := func() model.Attachment {
		a, err := model.NewAttachment(depositID, valueobject.DocumentTypeReceipt, valueobject.FileFormatJPEG, "receipt.jpg", 128, uploader.UserID, now)
		require.NoError(t, err)
		return a
	}
	noop := func(context.Context) error { return nil }

	first := newReceipt()
	require.NoError(t, repo.Create(ctx, first, noop))
	assert.ErrorIs(t, repo.Create(ctx, newReceipt(), noop), apperror.ErrAlreadyUploaded)

	deleted, err := first.Delete(uploader, now)
	require.NoError(t, err)
	boom := errors.New("disk gone")
	assert.ErrorIs(t, repo.Remove(ctx, deleted, func(context.Context) error { return boom }), boom)
	_, err = repo.FindByID(ctx, depositID, first.ID())
	require.NoError(t, err, "failed finalize keeps the record")

	require.NoError(t, repo.Remove(ctx, deleted, noop))
	require.NoError(t, repo.Create(ctx, newReceipt(), noop))

	list, err := repo.ListByDeposit(ctx, depositID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAttachmentRepo_BlobCallbackDoesNotBlockStore(t *testing.T) {
	store := NewStore()
	repo := store.Attachments()
	ctx := context.Background()
	d := newDeposit(t, uuid.New())
	require.NoError(t, store.Deposits().Save(ctx, d))
	receipt, err := model.NewAttachment(d.ID(), valueobject.DocumentTypeReceipt, valueobject.FileFormatJPEG, "receipt.jpg", 128, d.OwnerID(), now)
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	created := make(chan error, 1)
	go func() {
		created <- repo.Create(ctx, receipt, func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	reads := make(chan error, 1)
	go func() {
		if _, err := store.Deposits().FindByID(ctx, d.ID()); err != nil {
			reads <- err
			return
		}
		_, err := repo.ListByDeposit(ctx, d.ID())
		reads <- err
	}()
	select {
	case err := <-reads:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reads blocked while the blob callback was running")
	}

	dup, err := model.NewAttachment(d.ID(), valueobject.DocumentTypeReceipt, valueobject.FileFormatJPEG, "again.jpg", 64, d.OwnerID(), now)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Create(ctx, dup, func(context.Context) error { return nil }), apperror.ErrAlreadyUploaded)

	close(release)
	require.NoError(t, <-created)
	_, err = repo.FindByID(ctx, d.ID(), receipt.ID())
	require.NoError(t, err)
}

func TestAttachmentRepo_FailedStoreReleasesSlot(t *testing.T) {
	repo := NewStore().Attachments()
	ctx := context.Background()
	depositID := uuid.New()
	newReceipt := func() model.Attachment {
		a, err := model.NewAttachment(depositID, valueobject.DocumentTypeReceipt, valueobject.FileFormatJPEG, "receipt.jpg", 128, uuid.New(), now)
		require.NoError(t, err)
		return a
	}
	boom := errors.New("disk gone")

	failed := newReceipt()
	assert.ErrorIs(t, repo.Create(ctx, failed, func(context.Context) error { return boom }), boom)
	_, err := repo.FindByID(ctx, depositID, failed.ID())
	assert.ErrorIs(t, err, apperror.ErrAttachmentNotFound)

	require.NoError(t, repo.Create(ctx, newReceipt(), func(context.Context) error { return nil }))
}

func TestActivationRepo_Uniqueness(t *testing.T) {
	store := NewStore()
	deposits := store.Deposits()
	repo := store.Activations()
	ctx := context.Background()
	staffID := uuid.New()

	activate := func(d model.Deposit, internalID string) error {
		activated, err := d.Activate(internalID, staffID, now)
		require.NoError(t, err)
		return repo.Activate(ctx, model.ReconstructActivationRecord(d.ID(), internalID, staffID, now), activated)
	}

	d1, d2 := newDeposit(t, uuid.New()), newDeposit(t, uuid.New())
	require.NoError(t, deposits.Save(ctx, d1))
	require.NoError(t, deposits.Save(ctx, d2))

	require.NoError(t, activate(d1, "ABC123"))
	err := activate(d2, "ABC123")
	require.ErrorIs(t, err, apperror.ErrInternalIDAlreadyUsed)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Detail, d1.ID().String())

	assert.ErrorIs(t, activate(d1, "XYZ789"), apperror.ErrDepositAlreadyActivated)

	rec, err := repo.FindByInternalID(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, d1.ID(), rec.DepositID())
	_, err = repo.FindByDepositID(ctx, d2.ID())
	assert.ErrorIs(t, err, apperror.ErrActivationNotFound)
}

func TestOutboxRepo_FetchAndMark(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Deposits().Save(ctx, newDeposit(t, uuid.New())))
	}
	outbox := store.Outbox()

	batch, err := outbox.FetchUnpublished(ctx, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	require.NoError(t, outbox.MarkPublished(ctx, []uuid.UUID{batch[0].ID, batch[1].ID}, now))

	rest, err := outbox.FetchUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.NotEqual(t, batch[0].ID, rest[0].ID)
}

func TestTierSource_FormsValidTable(t *testing.T) {
	tiers, err := TierSource{}.LoadTiers(context.Background())
	require.NoError(t, err)

	table, err := valueobject.NewTierTable(tiers)
	require.NoError(t, err)
	tier, err := table.ResolveTier(30)
	require.NoError(t, err)
	assert.Equal(t, 40, tier.RateBps())
}
