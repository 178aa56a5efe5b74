package valueobject

import (
	"time"

	"github.com/shopspring/decimal"
)

// SimulatedOffer is a non-persisted preview of a deposit's commercial terms.
type SimulatedOffer struct {
	Days          int
	InitialAmount decimal.Decimal
	Currency      string
	OpenedAt      time.Time
	DueDate       time.Time
	AnnualRate    decimal.Decimal
	MonthlyRate   decimal.Decimal
	PeriodRate    decimal.Decimal
	Profit        decimal.Decimal
	FinalAmount   decimal.Decimal
	Type          DepositType
}
