package service_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/service"
	"github.com/coopahorro/dap/internal/domain/valueobject"
)

func newTestTable(t *testing.T) valueobject.TierTable {
	t.Helper()
	table, err := valueobject.NewTierTable([]valueobject.InterestTier{
		mustTier(t, 30, 90, 40),
		mustTier(t, 91, 180, 300),
		mustTier(t, 181, 365, 450),
		mustTier(t, 366, valueobject.MaxTermDays, 550),
	})
	require.NoError(t, err)
	return table
}

func TestSimulate_CoversTermLadder(t *testing.T) {
	engine := service.NewSimulationEngine(service.NewInterestCalculator())
	amount := decimal.NewFromInt(100000)

	quotes, err := engine.Simulate(newTestTable(t), valueobject.DepositTypeFixed, "usd", amount, openedAt)
	require.NoError(t, err)
	require.Len(t, quotes, len(service.TermLadder))

	for i, q := range quotes {
		assert.Equal(t, service.TermLadder[i], q.Days)
		require.NoError(t, q.Err)
		assert.Equal(t, "USD", q.Offer.Currency)
		assert.Equal(t, valueobject.DepositTypeFixed, q.Offer.Type)
		assert.Equal(t, openedAt.AddDate(0, 0, q.Days), q.Offer.DueDate)
		assert.True(t, q.Offer.FinalAmount.Equal(amount.Add(q.Offer.Profit)))
	}

	// 366 crosses into the annual convention: 100000 * 0.055 * 366/365 / 100 = 55.15 -> 55
	assert.True(t, quotes[5].Offer.Profit.Equal(decimal.NewFromInt(55)), "got %s", quotes[5].Offer.Profit)
	// 180 days: 100000 * 0.03 * 6 / 100 = 180
	assert.True(t, quotes[4].Offer.Profit.Equal(decimal.NewFromInt(180)), "got %s", quotes[4].Offer.Profit)
	assert.True(t, quotes[5].Offer.AnnualRate.Equal(decimal.RequireFromString("5.5")))
}

func TestSimulate_MissingTierFailsOnlyThatTerm(t *testing.T) {
	engine := service.NewSimulationEngine(service.NewInterestCalculator())

	// The zero table resolves nothing, as a table with a gap would for the
	// affected terms.
	quotes, err := engine.Simulate(valueobject.TierTable{}, valueobject.DepositTypeRenewable, "UYU", decimal.NewFromInt(5000), openedAt)
	require.NoError(t, err)
	require.Len(t, quotes, len(service.TermLadder))
	for _, q := range quotes {
		assert.ErrorIs(t, q.Err, apperror.ErrNoTierForTerm)
		assert.Equal(t, apperror.KindConfiguration, apperror.KindOf(q.Err))
	}
}

func TestSimulate_Validation(t *testing.T) {
	engine := service.NewSimulationEngine(service.NewInterestCalculator())
	table := newTestTable(t)

	_, err := engine.Simulate(table, valueobject.DepositType{}, "USD", decimal.NewFromInt(1), openedAt)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = engine.Simulate(table, valueobject.DepositTypeFixed, "dollars", decimal.NewFromInt(1), openedAt)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = engine.Simulate(table, valueobject.DepositTypeFixed, "USD", decimal.Zero, openedAt)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestOffer_ArbitraryTerm(t *testing.T) {
	engine := service.NewSimulationEngine(service.NewInterestCalculator())

	offer, err := engine.Offer(newTestTable(t), valueobject.DepositTypeFixed, "UYU", 45, decimal.NewFromInt(200000), openedAt)
	require.NoError(t, err)
	// 200000 * 0.004 * 1.5 / 100 = 12
	assert.True(t, offer.Profit.Equal(decimal.NewFromInt(12)))

	_, err = engine.Offer(newTestTable(t), valueobject.DepositTypeFixed, "UYU", 10, decimal.NewFromInt(200000), openedAt)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}
