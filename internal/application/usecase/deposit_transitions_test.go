package usecase_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coopahorro/dap/internal/application/dto"
	"github.com/coopahorro/dap/internal/application/usecase"
	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/service"
	"github.com/coopahorro/dap/internal/domain/valueobject"
)

func TestRequestCollection(t *testing.T) {
	h := newHarness()
	owner := client()
	d := seedActive(t, h.deposits, owner.UserID, valueobject.DepositTypeFixed, "ABC123")
	uc := usecase.NewRequestCollection(h.deposits, h.locker, h.clock, testLogger())
	ctx := context.Background()

	_, err := uc.Execute(ctx, dto.DepositActionRequest{Actor: owner, DepositID: d.ID()})
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition, "not yet due")

	h.clock.Set(d.DueAt().AddDate(0, 0, 1))

	_, err = uc.Execute(ctx, dto.DepositActionRequest{Actor: client(), DepositID: d.ID()})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	resp, err := uc.Execute(ctx, dto.DepositActionRequest{Actor: owner, DepositID: d.ID()})
	require.NoError(t, err)
	assert.Equal(t, "EXPIRED_PENDING", resp.Status)

	_, err = uc.Execute(ctx, dto.DepositActionRequest{Actor: owner, DepositID: d.ID()})
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestRequestCollection_ConcurrentRequestsApplyOnce(t *testing.T) {
	h := newHarness()
	owner := client()
	d := seedActive(t, h.deposits, owner.UserID, valueobject.DepositTypeFixed, "ABC123")
	h.clock.Set(d.DueAt())
	uc := usecase.NewRequestCollection(h.deposits, h.locker, h.clock, testLogger())

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Execute(context.Background(), dto.DepositActionRequest{Actor: owner, DepositID: d.ID()})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	stored, err := h.deposits.FindByID(context.Background(), d.ID())
	require.NoError(t, err)
	assert.Equal(t, valueobject.DepositStatusExpiredPending, stored.Status())
}

func TestConfirmPayment(t *testing.T) {
	h := newHarness()
	owner := client()
	d := seedActive(t, h.deposits, owner.UserID, valueobject.DepositTypeFixed, "ABC123")
	h.clock.Set(d.DueAt())
	ctx := context.Background()

	_, err := usecase.NewRequestCollection(h.deposits, h.locker, h.clock, testLogger()).
		Execute(ctx, dto.DepositActionRequest{Actor: owner, DepositID: d.ID()})
	require.NoError(t, err)

	uc := usecase.NewConfirmPayment(h.deposits, h.locker, h.clock, testLogger())

	_, err = uc.Execute(ctx, dto.DepositActionRequest{Actor: owner, DepositID: d.ID()})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	resp, err := uc.Execute(ctx, dto.DepositActionRequest{Actor: staff(), DepositID: d.ID()})
	require.NoError(t, err)
	assert.Equal(t, "PAID", resp.Status)
}

func TestOverrideStatus(t *testing.T) {
	h := newHarness()
	d := seedDeposit(t, h.deposits, client().UserID, valueobject.DepositTypeFixed)
	uc := usecase.NewOverrideStatus(h.deposits, h.locker, h.clock, testLogger())
	ctx := context.Background()

	_, err := uc.Execute(ctx, dto.OverrideStatusRequest{Actor: client(), DepositID: d.ID(), Status: "ACTIVE"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = uc.Execute(ctx, dto.OverrideStatusRequest{Actor: staff(), DepositID: d.ID(), Status: "FROZEN"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	resp, err := uc.Execute(ctx, dto.OverrideStatusRequest{
		Actor: staff(), DepositID: d.ID(), Status: "annulled", Reason: "duplicate request",
	})
	require.NoError(t, err)
	assert.Equal(t, "ANNULLED", resp.Status)

	_, err = uc.Execute(ctx, dto.OverrideStatusRequest{Actor: staff(), DepositID: d.ID(), Status: "ACTIVE"})
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestOverrideStatus_SameStatusIsNoOp(t *testing.T) {
	h := newHarness()
	d := seedDeposit(t, h.deposits, client().UserID, valueobject.DepositTypeFixed)
	uc := usecase.NewOverrideStatus(h.deposits, h.locker, h.clock, testLogger())

	resp, err := uc.Execute(context.Background(), dto.OverrideStatusRequest{
		Actor: staff(), DepositID: d.ID(), Status: "PENDING",
	})
	require.NoError(t, err)
	assert.Equal(t, d.Version(), resp.Version)
}

func TestRenewDeposit(t *testing.T) {
	t.Run("disabled by default", func(t *testing.T) {
		h := newHarness()
		d := seedActive(t, h.deposits, client().UserID, valueobject.DepositTypeRenewable, "R-1")
		h.clock.Set(d.DueAt().AddDate(0, 0, 10))
		uc := usecase.NewRenewDeposit(h.deposits, h.locker, h.clock, service.DisabledRenewal{}, testTable(t), testLogger(), nil)

		_, err := uc.Execute(context.Background(), dto.DepositActionRequest{Actor: staff(), DepositID: d.ID()})
		assert.ErrorIs(t, err, apperror.ErrRenewalDisabled)
	})

	t.Run("capitalizing", func(t *testing.T) {
		h := newHarness()
		d := seedActive(t, h.deposits, client().UserID, valueobject.DepositTypeRenewable, "R-2")
		policy := service.NewCapitalizingRenewal(testEngine())
		uc := usecase.NewRenewDeposit(h.deposits, h.locker, h.clock, policy, testTable(t), testLogger(), nil)
		ctx := context.Background()

		h.clock.Set(d.DueAt())
		_, err := uc.Execute(ctx, dto.DepositActionRequest{Actor: staff(), DepositID: d.ID()})
		assert.ErrorIs(t, err, apperror.ErrInvalidTransition, "grace window still open")

		h.clock.Set(d.DueAt().AddDate(0, 0, 10))
		resp, err := uc.Execute(ctx, dto.DepositActionRequest{Actor: staff(), DepositID: d.ID()})
		require.NoError(t, err)
		assert.Equal(t, 2, resp.Period)
		assert.True(t, resp.InitialAmount.Equal(d.FinalAmount()))
		assert.Equal(t, d.DueAt(), resp.OpenedAt)
		assert.Equal(t, "ACTIVE", resp.StoredStatus)
	})

	t.Run("staff only", func(t *testing.T) {
		h := newHarness()
		owner := client()
		d := seedActive(t, h.deposits, owner.UserID, valueobject.DepositTypeRenewable, "R-3")
		uc := usecase.NewRenewDeposit(h.deposits, h.locker, h.clock, service.DisabledRenewal{}, testTable(t), testLogger(), nil)

		_, err := uc.Execute(context.Background(), dto.DepositActionRequest{Actor: owner, DepositID: d.ID()})
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})
}
