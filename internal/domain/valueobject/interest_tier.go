package valueobject

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/coopahorro/dap/internal/domain/apperror"
)

const (
	// MinTermDays is the shortest term a deposit can be opened for.
	MinTermDays = 30
	// MaxTermDays stands in for an unbounded upper limit on the last tier.
	MaxTermDays = math.MaxInt32
)

var bpsPerPercent = decimal.NewFromInt(100)

// InterestTier is an immutable value object mapping a range of term lengths
// (in days, both bounds inclusive) to a base annual rate.
// Rates are expressed in basis points: 40 bps = 0.40%.
type InterestTier struct {
	minimumDays int
	maximumDays int
	rateBps     int
}

// NewInterestTier creates a validated InterestTier.
func NewInterestTier(minimumDays, maximumDays, rateBps int) (InterestTier, error) {
	if minimumDays < 1 {
		return InterestTier{}, apperror.ErrInvalidInput.With("minimum days must be positive")
	}
	if maximumDays < minimumDays {
		return InterestTier{}, apperror.ErrInvalidInput.With("maximum days must not be below minimum days")
	}
	if rateBps < 0 {
		return InterestTier{}, apperror.ErrInvalidInput.With("rate basis points must not be negative")
	}
	return InterestTier{
		minimumDays: minimumDays,
		maximumDays: maximumDays,
		rateBps:     rateBps,
	}, nil
}

// MinimumDays returns the lower bound of the tier (inclusive).
func (t InterestTier) MinimumDays() int { return t.minimumDays }

// MaximumDays returns the upper bound of the tier (inclusive).
func (t InterestTier) MaximumDays() int { return t.maximumDays }

// RateBps returns the base annual rate in basis points.
func (t InterestTier) RateBps() int { return t.rateBps }

// IsUnbounded reports whether the tier has no practical upper limit.
func (t InterestTier) IsUnbounded() bool { return t.maximumDays == MaxTermDays }

// AnnualRate returns the base annual rate as a percentage figure
// (40 bps -> 0.40). It is not a monthly rate.
func (t InterestTier) AnnualRate() decimal.Decimal {
	return decimal.NewFromInt(int64(t.rateBps)).Div(bpsPerPercent)
}

// Applies reports whether days falls within [minimumDays, maximumDays].
func (t InterestTier) Applies(days int) bool {
	return days >= t.minimumDays && days <= t.maximumDays
}
