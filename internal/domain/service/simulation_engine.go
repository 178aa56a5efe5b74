package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/valueobject"
)

// TermLadder is the fixed menu of terms offered in a simulation. 366 rather
// than 365 so the menu includes a term priced on the annual convention.
var TermLadder = []int{30, 60, 90, 120, 180, 366}

// TermQuote is the outcome of pricing one term of the ladder.
type TermQuote struct {
	Days  int
	Offer valueobject.SimulatedOffer
	Err   error
}

// SimulationEngine prices offers against a tier table.
type SimulationEngine struct {
	calculator *InterestCalculator
}

// NewSimulationEngine creates a new SimulationEngine.
func NewSimulationEngine(calculator *InterestCalculator) *SimulationEngine {
	return &SimulationEngine{calculator: calculator}
}

// Simulate prices every term of the ladder. A missing tier fails only the
// affected term; the caller decides whether to omit or abort.
func (e *SimulationEngine) Simulate(
	table valueobject.TierTable,
	depositType valueobject.DepositType,
	currency string,
	initialAmount decimal.Decimal,
	openedAt time.Time,
) ([]TermQuote, error) {
	if depositType.IsZero() {
		return nil, apperror.ErrInvalidInput.With("deposit type is required")
	}
	cur, err := NormalizeCurrency(currency)
	if err != nil {
		return nil, err
	}
	if !initialAmount.IsPositive() {
		return nil, apperror.ErrInvalidInput.With("amount must be positive")
	}

	quotes := make([]TermQuote, 0, len(TermLadder))
	for _, days := range TermLadder {
		offer, err := e.Offer(table, depositType, cur, days, initialAmount, openedAt)
		quotes = append(quotes, TermQuote{Days: days, Offer: offer, Err: err})
	}
	return quotes, nil
}

// Offer prices a single term.
func (e *SimulationEngine) Offer(
	table valueobject.TierTable,
	depositType valueobject.DepositType,
	currency string,
	days int,
	initialAmount decimal.Decimal,
	openedAt time.Time,
) (valueobject.SimulatedOffer, error) {
	if depositType.IsZero() {
		return valueobject.SimulatedOffer{}, apperror.ErrInvalidInput.With("deposit type is required")
	}
	cur, err := NormalizeCurrency(currency)
	if err != nil {
		return valueobject.SimulatedOffer{}, err
	}
	if days < valueobject.MinTermDays {
		return valueobject.SimulatedOffer{}, apperror.ErrInvalidInput.With(
			"term must be at least %d days, got %d", valueobject.MinTermDays, days)
	}

	tier, err := table.ResolveTier(days)
	if err != nil {
		return valueobject.SimulatedOffer{}, err
	}

	offer, err := e.calculator.ComputeOffer(days, initialAmount, tier, openedAt)
	if err != nil {
		return valueobject.SimulatedOffer{}, err
	}
	offer.Type = depositType
	offer.Currency = cur
	return offer, nil
}
