package valueobject

import (
	"sort"

	"github.com/coopahorro/dap/internal/domain/apperror"
)

// TierTable is the ordered, immutable set of interest tiers. The tiers
// partition [MinTermDays, MaxTermDays] with no gaps and no overlaps.
type TierTable struct {
	tiers []InterestTier
}

// NewTierTable validates that tiers form a partition of the valid term range.
func NewTierTable(tiers []InterestTier) (TierTable, error) {
	if len(tiers) == 0 {
		return TierTable{}, apperror.ErrInvalidInput.With("at least one interest tier is required")
	}

	sorted := make([]InterestTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].minimumDays < sorted[j].minimumDays
	})

	if sorted[0].minimumDays != MinTermDays {
		return TierTable{}, apperror.ErrInvalidInput.With(
			"interest tiers must start at %d days, first tier starts at %d", MinTermDays, sorted[0].minimumDays)
	}
	for i := 1; i < len(sorted); i++ {
		prev, curr := sorted[i-1], sorted[i]
		switch {
		case curr.minimumDays <= prev.maximumDays:
			return TierTable{}, apperror.ErrInvalidInput.With(
				"interest tiers overlap: tier ending at %d overlaps with tier starting at %d",
				prev.maximumDays, curr.minimumDays)
		case curr.minimumDays != prev.maximumDays+1:
			return TierTable{}, apperror.ErrInvalidInput.With(
				"interest tiers leave a gap between %d and %d days", prev.maximumDays, curr.minimumDays)
		}
	}
	if last := sorted[len(sorted)-1]; !last.IsUnbounded() {
		return TierTable{}, apperror.ErrInvalidInput.With(
			"last interest tier must be unbounded, ends at %d days", last.maximumDays)
	}

	return TierTable{tiers: sorted}, nil
}

// ResolveTier returns the single tier covering days.
func (t TierTable) ResolveTier(days int) (InterestTier, error) {
	i := sort.Search(len(t.tiers), func(i int) bool {
		return t.tiers[i].maximumDays >= days
	})
	if i < len(t.tiers) && t.tiers[i].Applies(days) {
		return t.tiers[i], nil
	}
	return InterestTier{}, apperror.ErrNoTierForTerm.With("no interest tier configured for a %d day term", days)
}

// Tiers returns a copy of the tiers in ascending order.
func (t TierTable) Tiers() []InterestTier {
	c := make([]InterestTier, len(t.tiers))
	copy(c, t.tiers)
	return c
}

// Len returns the number of tiers.
func (t TierTable) Len() int { return len(t.tiers) }
