package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coopahorro/dap/internal/domain/port"
	"github.com/coopahorro/dap/internal/domain/valueobject"
)

// Compile-time interface check.
var _ port.TierSource = (*TierRepo)(nil)

// TierRepo loads the interest tier reference table.
type TierRepo struct {
	pool *pgxpool.Pool
}

func NewTierRepo(pool *pgxpool.Pool) *TierRepo {
	return &TierRepo{pool: pool}
}

func (r *TierRepo) LoadTiers(ctx context.Context) ([]valueobject.InterestTier, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT minimum_days, maximum_days, rate_bps FROM interest_tiers ORDER BY minimum_days
	`)
	if err != nil {
		return nil, fmt.Errorf("query interest tiers: %w", err)
	}
	defer rows.Close()

	var tiers []valueobject.InterestTier
	for rows.Next() {
		var (
			minDays, rateBps int
			maxDays          *int
		)
		if err := rows.Scan(&minDays, &maxDays, &rateBps); err != nil {
			return nil, fmt.Errorf("scan interest tier: %w", err)
		}
		upper := valueobject.MaxTermDays
		if maxDays != nil {
			upper = *maxDays
		}
		tier, err := valueobject.NewInterestTier(minDays, upper, rateBps)
		if err != nil {
			return nil, fmt.Errorf("interest tier starting at %d days: %w", minDays, err)
		}
		tiers = append(tiers, tier)
	}
	return tiers, rows.Err()
}
