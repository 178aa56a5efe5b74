package service

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/valueobject"
)

const (
	daysPerPeriod = 30
	daysPerYear   = 365

	// rateDisplayPlaces bounds the precision of the display-only rates.
	rateDisplayPlaces = 10
)

var hundred = decimal.NewFromInt(100)

// InterestCalculator turns a term, an amount and a tier into the commercial
// terms of a deposit. It is stateless and deterministic.
type InterestCalculator struct{}

// NewInterestCalculator creates a new InterestCalculator.
func NewInterestCalculator() *InterestCalculator {
	return &InterestCalculator{}
}

// ComputeOffer evaluates the offer for days and initialAmount under tier.
//
// Terms over a year pro-rate the base rate against 365 days, shorter terms
// against 30-day periods. Profit is rounded half-up to whole currency units.
// The returned offer carries no type or currency; callers set them.
func (c *InterestCalculator) ComputeOffer(
	days int,
	initialAmount decimal.Decimal,
	tier valueobject.InterestTier,
	openedAt time.Time,
) (valueobject.SimulatedOffer, error) {
	if days < valueobject.MinTermDays {
		return valueobject.SimulatedOffer{}, apperror.ErrInvalidInput.With(
			"term must be at least %d days, got %d", valueobject.MinTermDays, days)
	}
	if !initialAmount.IsPositive() {
		return valueobject.SimulatedOffer{}, apperror.ErrInvalidInput.With("amount must be positive")
	}
	if !tier.Applies(days) {
		return valueobject.SimulatedOffer{}, apperror.ErrInvalidInput.With(
			"tier [%d, %d] does not cover a %d day term", tier.MinimumDays(), tier.MaximumDays(), days)
	}

	d := decimal.NewFromInt(int64(days))
	periods := d.Div(decimal.NewFromInt(daysPerPeriod))

	divisor := int64(daysPerPeriod)
	if days > daysPerYear {
		divisor = daysPerYear
	}

	annualRate := tier.AnnualRate()
	periodRate := annualRate.Div(hundred)

	// amount * (rate/100 * days/divisor) / 100, divided once so an exact
	// half is never truncated below .5 before rounding.
	numerator := initialAmount.Mul(annualRate).Mul(d)
	profit := numerator.DivRound(decimal.NewFromInt(100*100*divisor), 0)

	return valueobject.SimulatedOffer{
		Days:          days,
		InitialAmount: initialAmount,
		OpenedAt:      openedAt,
		DueDate:       DueDate(openedAt, days),
		AnnualRate:    annualRate,
		MonthlyRate:   periodRate.Div(periods).Round(rateDisplayPlaces),
		PeriodRate:    periodRate,
		Profit:        profit,
		FinalAmount:   initialAmount.Add(profit),
	}, nil
}

// DueDate adds days calendar days to openedAt.
func DueDate(openedAt time.Time, days int) time.Time {
	return openedAt.AddDate(0, 0, days)
}

// NormalizeCurrency upper-cases and validates an ISO 4217 code.
func NormalizeCurrency(currency string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(currency))
	if len(c) != 3 {
		return "", apperror.ErrInvalidInput.With("currency must be a 3-letter ISO code")
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return "", apperror.ErrInvalidInput.With("currency must be a 3-letter ISO code")
		}
	}
	return c, nil
}
