package model_test

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/event"
	"github.com/coopahorro/dap/internal/domain/model"
	"github.com/coopahorro/dap/internal/domain/valueobject"
)

var now = time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

func testOffer(depositType valueobject.DepositType) valueobject.SimulatedOffer {
	return valueobject.SimulatedOffer{
		Days:          30,
		InitialAmount: decimal.NewFromInt(100000),
		Currency:      "UYU",
		OpenedAt:      now,
		DueDate:       now.AddDate(0, 0, 30),
		AnnualRate:    decimal.RequireFromString("0.4"),
		MonthlyRate:   decimal.RequireFromString("0.004"),
		PeriodRate:    decimal.RequireFromString("0.004"),
		Profit:        decimal.NewFromInt(4),
		FinalAmount:   decimal.NewFromInt(100004),
		Type:          depositType,
	}
}

func newPending(t *testing.T) model.Deposit {
	t.Helper()
	d, err := model.NewDeposit(uuid.New(), testOffer(valueobject.DepositTypeFixed), now)
	require.NoError(t, err)
	return d
}

func newActive(t *testing.T) model.Deposit {
	t.Helper()
	d, err := newPending(t).Activate("INT-001", uuid.New(), now)
	require.NoError(t, err)
	return d
}

func TestNewDeposit_Valid(t *testing.T) {
	ownerID := uuid.New()
	d, err := model.NewDeposit(ownerID, testOffer(valueobject.DepositTypeFixed), now)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, d.ID())
	assert.Equal(t, ownerID, d.OwnerID())
	assert.Equal(t, valueobject.DepositStatusPending, d.Status())
	assert.Empty(t, d.InternalID())
	assert.False(t, d.IsActivated())
	assert.Equal(t, now, d.OpenedAt())
	assert.Equal(t, now.AddDate(0, 0, 30), d.DueAt())
	assert.True(t, d.FinalAmount().Equal(d.InitialAmount().Add(d.Profit())))
	assert.Equal(t, 1, d.Period())
	assert.Equal(t, 1, d.Version())
	require.Len(t, d.DomainEvents(), 1)
	assert.Equal(t, event.TypeDepositCreated, d.DomainEvents()[0].EventType())
	assert.Equal(t, d.ID(), d.DomainEvents()[0].AggregateID())
}

func TestNewDeposit_Validation(t *testing.T) {
	tests := []struct {
		name    string
		owner   uuid.UUID
		mutate  func(o *valueobject.SimulatedOffer)
		wantMsg string
	}{
		{name: "missing owner", owner: uuid.Nil, mutate: func(*valueobject.SimulatedOffer) {}, wantMsg: "owner ID is required"},
		{name: "missing type", owner: uuid.New(), mutate: func(o *valueobject.SimulatedOffer) { o.Type = valueobject.DepositType{} }, wantMsg: "deposit type is required"},
		{name: "bad currency", owner: uuid.New(), mutate: func(o *valueobject.SimulatedOffer) { o.Currency = "PESOS" }, wantMsg: "currency"},
		{name: "short term", owner: uuid.New(), mutate: func(o *valueobject.SimulatedOffer) { o.Days = 29 }, wantMsg: "term must be at least 30 days"},
		{name: "non-positive amount", owner: uuid.New(), mutate: func(o *valueobject.SimulatedOffer) { o.InitialAmount = decimal.Zero }, wantMsg: "amount must be positive"},
		{name: "inconsistent final amount", owner: uuid.New(), mutate: func(o *valueobject.SimulatedOffer) { o.FinalAmount = decimal.NewFromInt(1) }, wantMsg: "final amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offer := testOffer(valueobject.DepositTypeFixed)
			tt.mutate(&offer)
			_, err := model.NewDeposit(tt.owner, offer, now)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperror.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestDeposit_EffectiveStatus(t *testing.T) {
	active := newActive(t)
	due := active.DueAt()

	assert.Equal(t, valueobject.DepositStatusActive, active.EffectiveStatus(due.Add(-time.Second)))
	assert.Equal(t, valueobject.DepositStatusExpired, active.EffectiveStatus(due))
	assert.Equal(t, valueobject.DepositStatusExpired, active.EffectiveStatus(due.AddDate(0, 1, 0)))
	// The stored status is untouched by reads.
	assert.Equal(t, valueobject.DepositStatusActive, active.Status())

	pending := newPending(t)
	assert.Equal(t, valueobject.DepositStatusPending, pending.EffectiveStatus(due.AddDate(1, 0, 0)))
}

func TestDeposit_Activate(t *testing.T) {
	pending := newPending(t)
	actor := uuid.New()

	active, err := pending.Activate("  INT-001 \n", actor, now.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, valueobject.DepositStatusActive, active.Status())
	assert.Equal(t, "INT-001", active.InternalID())
	assert.Equal(t, 2, active.Version())
	require.Len(t, active.DomainEvents(), 2)
	assert.Equal(t, event.TypeDepositActivated, active.DomainEvents()[1].EventType())

	// Original is unchanged.
	assert.Equal(t, valueobject.DepositStatusPending, pending.Status())
	assert.Empty(t, pending.InternalID())
	assert.Len(t, pending.DomainEvents(), 1)
}

func TestDeposit_Activate_Idempotent(t *testing.T) {
	active := newActive(t)

	again, err := active.Activate("INT-001", uuid.New(), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, active.Version(), again.Version())
	assert.Len(t, again.DomainEvents(), len(active.DomainEvents()))
}

func TestDeposit_Activate_DifferentInternalID(t *testing.T) {
	active := newActive(t)

	_, err := active.Activate("INT-999", uuid.New(), now)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrDepositAlreadyActivated)

	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Detail, "INT-001")
}

func TestDeposit_Activate_Rejections(t *testing.T) {
	_, err := newPending(t).Activate("   ", uuid.New(), now)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	cancelled, err := newPending(t).Override(valueobject.DepositStatusCancelled, now)
	require.NoError(t, err)
	_, err = cancelled.Activate("INT-002", uuid.New(), now)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestDeposit_Activate_BindsIDAfterOverride(t *testing.T) {
	forced, err := newPending(t).Override(valueobject.DepositStatusActive, now)
	require.NoError(t, err)
	require.False(t, forced.IsActivated())

	bound, err := forced.Activate("INT-003", uuid.New(), now)
	require.NoError(t, err)
	assert.Equal(t, valueobject.DepositStatusActive, bound.Status())
	assert.Equal(t, "INT-003", bound.InternalID())
}

func TestDeposit_Activate_AfterOverrideToPending(t *testing.T) {
	reverted, err := newActive(t).Override(valueobject.DepositStatusPending, now)
	require.NoError(t, err)
	require.Equal(t, "INT-001", reverted.InternalID())

	again, err := reverted.Activate("INT-001", uuid.New(), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, valueobject.DepositStatusActive, again.Status())
	assert.Equal(t, "INT-001", again.InternalID())
	assert.Equal(t, reverted.Version()+1, again.Version())
	last := again.DomainEvents()[len(again.DomainEvents())-1]
	assert.Equal(t, event.TypeDepositActivated, last.EventType())

	_, err = reverted.Activate("INT-999", uuid.New(), now)
	assert.ErrorIs(t, err, apperror.ErrDepositAlreadyActivated)
}

func TestDeposit_RequestCollection(t *testing.T) {
	active := newActive(t)
	afterDue := active.DueAt().Add(time.Minute)

	requested, err := active.RequestCollection(active.OwnerID(), afterDue)
	require.NoError(t, err)
	assert.Equal(t, valueobject.DepositStatusExpiredPending, requested.Status())
	assert.Equal(t, event.TypeDepositCollectionRequested, requested.DomainEvents()[len(requested.DomainEvents())-1].EventType())
}

func TestDeposit_RequestCollection_Rejections(t *testing.T) {
	active := newActive(t)

	_, err := active.RequestCollection(uuid.New(), active.DueAt().Add(time.Minute))
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = active.RequestCollection(active.OwnerID(), active.DueAt().Add(-time.Minute))
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	pending := newPending(t)
	_, err = pending.RequestCollection(pending.OwnerID(), pending.DueAt().Add(time.Minute))
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestDeposit_ConfirmPayment(t *testing.T) {
	active := newActive(t)
	requested, err := active.RequestCollection(active.OwnerID(), active.DueAt())
	require.NoError(t, err)

	paid, err := requested.ConfirmPayment(active.DueAt().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, valueobject.DepositStatusPaid, paid.Status())
	assert.True(t, paid.Status().IsTerminal())

	_, err = active.ConfirmPayment(now)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestDeposit_Override(t *testing.T) {
	for _, target := range valueobject.AllDepositStatuses() {
		t.Run(target.String(), func(t *testing.T) {
			d := newActive(t)
			got, err := d.Override(target, now)
			require.NoError(t, err)
			assert.Equal(t, target, got.Status())
		})
	}
}

func TestDeposit_Override_TerminalIsFinal(t *testing.T) {
	annulled, err := newPending(t).Override(valueobject.DepositStatusAnnulled, now)
	require.NoError(t, err)
	assert.Equal(t, event.TypeDepositStatusOverridden, annulled.DomainEvents()[1].EventType())

	_, err = annulled.Override(valueobject.DepositStatusActive, now)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	_, err = newPending(t).Override(valueobject.DepositStatus{}, now)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestDeposit_Override_SameStatusIsNoop(t *testing.T) {
	d := newPending(t)
	same, err := d.Override(valueobject.DepositStatusPending, now)
	require.NoError(t, err)
	assert.Equal(t, d.Version(), same.Version())
}

func TestDeposit_Renew(t *testing.T) {
	d, err := model.NewDeposit(uuid.New(), testOffer(valueobject.DepositTypeRenewable), now)
	require.NoError(t, err)
	d, err = d.Activate("INT-010", uuid.New(), now)
	require.NoError(t, err)

	due := d.DueAt()
	offer := valueobject.SimulatedOffer{
		Days:          30,
		InitialAmount: d.FinalAmount(),
		Currency:      "UYU",
		OpenedAt:      due,
		DueDate:       due.AddDate(0, 0, 30),
		AnnualRate:    decimal.RequireFromString("0.5"),
		MonthlyRate:   decimal.RequireFromString("0.005"),
		PeriodRate:    decimal.RequireFromString("0.005"),
		Profit:        decimal.NewFromInt(5),
		FinalAmount:   d.FinalAmount().Add(decimal.NewFromInt(5)),
		Type:          valueobject.DepositTypeRenewable,
	}

	renewed, err := d.Renew(offer, due.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, valueobject.DepositStatusActive, renewed.Status())
	assert.Equal(t, 2, renewed.Period())
	assert.True(t, renewed.InitialAmount().Equal(decimal.NewFromInt(100004)))
	assert.True(t, renewed.FinalAmount().Equal(decimal.NewFromInt(100009)))
	assert.Equal(t, event.TypeDepositRenewed, renewed.DomainEvents()[len(renewed.DomainEvents())-1].EventType())

	bad := offer
	bad.InitialAmount = decimal.NewFromInt(100000)
	bad.FinalAmount = decimal.NewFromInt(100005)
	_, err = d.Renew(bad, due.AddDate(0, 0, 7))
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = d.Renew(offer, due.Add(-time.Hour))
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestDeposit_RecordRoundTrip(t *testing.T) {
	d := newActive(t)
	rebuilt := model.ReconstructDeposit(d.Record())

	assert.Equal(t, d.Record(), rebuilt.Record())
	assert.Empty(t, rebuilt.DomainEvents())
}

func TestDeposit_ConcurrentTransitionsDoNotShareState(t *testing.T) {
	base := newPending(t)

	var wg sync.WaitGroup
	results := make([]model.Deposit, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := base.Activate("INT-001", uuid.New(), now)
			if err == nil {
				results[i] = d
			}
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.Len(t, r.DomainEvents(), 2)
		assert.Equal(t, valueobject.DepositStatusActive, r.Status())
	}
	assert.Len(t, base.DomainEvents(), 1)
	assert.Equal(t, valueobject.DepositStatusPending, base.Status())
}
