package memory

import (
	"context"

	"github.com/coopahorro/dap/internal/domain/port"
	"github.com/coopahorro/dap/internal/domain/valueobject"
)

var _ port.TierSource = TierSource{}

// defaultTiers mirrors the rows seeded by the interest_tiers migration.
var defaultTiers = [][3]int{
	{30, 90, 40},
	{91, 180, 300},
	{181, 365, 450},
	{366, valueobject.MaxTermDays, 550},
}

// TierSource serves the seeded interest tiers without a database.
type TierSource struct{}

func (TierSource) LoadTiers(context.Context) ([]valueobject.InterestTier, error) {
	tiers := make([]valueobject.InterestTier, 0, len(defaultTiers))
	for _, row := range defaultTiers {
		tier, err := valueobject.NewInterestTier(row[0], row[1], row[2])
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, tier)
	}
	return tiers, nil
}
