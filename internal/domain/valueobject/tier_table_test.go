package valueobject_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/valueobject"
)

func mustTier(t *testing.T, minDays, maxDays, bps int) valueobject.InterestTier {
	t.Helper()
	tier, err := valueobject.NewInterestTier(minDays, maxDays, bps)
	require.NoError(t, err)
	return tier
}

func standardTiers(t *testing.T) []valueobject.InterestTier {
	t.Helper()
	return []valueobject.InterestTier{
		mustTier(t, 181, 360, 450),
		mustTier(t, 30, 90, 40),
		mustTier(t, 361, valueobject.MaxTermDays, 550),
		mustTier(t, 91, 180, 300),
	}
}

func TestNewTierTable_SortsTiers(t *testing.T) {
	table, err := valueobject.NewTierTable(standardTiers(t))
	require.NoError(t, err)

	tiers := table.Tiers()
	require.Len(t, tiers, 4)
	assert.Equal(t, 30, tiers[0].MinimumDays())
	assert.Equal(t, 91, tiers[1].MinimumDays())
	assert.Equal(t, 181, tiers[2].MinimumDays())
	assert.Equal(t, 361, tiers[3].MinimumDays())
}

func TestNewTierTable_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		tiers   func(t *testing.T) []valueobject.InterestTier
		wantMsg string
	}{
		{
			name:    "empty table",
			tiers:   func(*testing.T) []valueobject.InterestTier { return nil },
			wantMsg: "at least one interest tier is required",
		},
		{
			name: "does not start at the minimum term",
			tiers: func(t *testing.T) []valueobject.InterestTier {
				return []valueobject.InterestTier{mustTier(t, 31, valueobject.MaxTermDays, 40)}
			},
			wantMsg: "must start at 30 days",
		},
		{
			name: "overlapping ranges",
			tiers: func(t *testing.T) []valueobject.InterestTier {
				return []valueobject.InterestTier{
					mustTier(t, 30, 90, 40),
					mustTier(t, 90, valueobject.MaxTermDays, 300),
				}
			},
			wantMsg: "overlap",
		},
		{
			name: "gap between ranges",
			tiers: func(t *testing.T) []valueobject.InterestTier {
				return []valueobject.InterestTier{
					mustTier(t, 30, 90, 40),
					mustTier(t, 92, valueobject.MaxTermDays, 300),
				}
			},
			wantMsg: "gap between 90 and 92",
		},
		{
			name: "bounded last tier",
			tiers: func(t *testing.T) []valueobject.InterestTier {
				return []valueobject.InterestTier{mustTier(t, 30, 9999, 40)}
			},
			wantMsg: "must be unbounded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := valueobject.NewTierTable(tt.tiers(t))
			require.Error(t, err)
			assert.ErrorIs(t, err, apperror.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestTierTable_ResolveTier_PartitionsValidTerms(t *testing.T) {
	input := standardTiers(t)
	table, err := valueobject.NewTierTable(input)
	require.NoError(t, err)

	for days := 30; days <= 9999; days++ {
		matches := 0
		for _, tier := range input {
			if tier.Applies(days) {
				matches++
			}
		}
		require.Equal(t, 1, matches, "days=%d must match exactly one tier", days)

		tier, err := table.ResolveTier(days)
		require.NoError(t, err, "days=%d", days)
		require.True(t, tier.Applies(days), "days=%d resolved to [%d,%d]", days, tier.MinimumDays(), tier.MaximumDays())
	}
}

func TestTierTable_ResolveTier_Boundaries(t *testing.T) {
	table, err := valueobject.NewTierTable(standardTiers(t))
	require.NoError(t, err)

	tests := []struct {
		days    int
		wantBps int
	}{
		{30, 40}, {90, 40}, {91, 300}, {180, 300}, {181, 450}, {360, 450}, {361, 550}, {366, 550},
	}
	for _, tt := range tests {
		tier, err := table.ResolveTier(tt.days)
		require.NoError(t, err)
		assert.Equal(t, tt.wantBps, tier.RateBps(), "days=%d", tt.days)
	}
}

func TestTierTable_ResolveTier_NoTier(t *testing.T) {
	table, err := valueobject.NewTierTable(standardTiers(t))
	require.NoError(t, err)

	_, err = table.ResolveTier(29)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrNoTierForTerm)
	assert.Equal(t, apperror.KindConfiguration, apperror.KindOf(err))
}

func TestTierTable_ZeroValueResolvesNothing(t *testing.T) {
	var table valueobject.TierTable
	_, err := table.ResolveTier(30)
	assert.ErrorIs(t, err, apperror.ErrNoTierForTerm)
}
