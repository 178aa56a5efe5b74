package service

import (
	"time"

	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/model"
	"github.com/coopahorro/dap/internal/domain/valueobject"
)

// RenewalGraceBusinessDays is how long an expired renewable deposit waits
// for collection before it may restart.
const RenewalGraceBusinessDays = 3

// RenewalPolicy decides whether and how an expired deposit restarts.
type RenewalPolicy interface {
	Renew(d model.Deposit, table valueobject.TierTable, now time.Time) (model.Deposit, error)
}

// DisabledRenewal refuses every renewal. It is the default until the
// business defines the renewal trigger.
type DisabledRenewal struct{}

func (DisabledRenewal) Renew(model.Deposit, valueobject.TierTable, time.Time) (model.Deposit, error) {
	return model.Deposit{}, apperror.ErrRenewalDisabled
}

// CapitalizingRenewal restarts a renewable deposit for the same term once the
// grace window has elapsed. The final amount of the ended period becomes the
// new initial amount, priced at the current tier table. The new period starts
// at the previous due date.
type CapitalizingRenewal struct {
	engine *SimulationEngine
}

// NewCapitalizingRenewal creates a CapitalizingRenewal.
func NewCapitalizingRenewal(engine *SimulationEngine) *CapitalizingRenewal {
	return &CapitalizingRenewal{engine: engine}
}

func (p *CapitalizingRenewal) Renew(d model.Deposit, table valueobject.TierTable, now time.Time) (model.Deposit, error) {
	if !d.Type().IsRenewable() {
		return model.Deposit{}, apperror.ErrInvalidTransition.With("deposit type %s is not renewable", d.Type())
	}
	if !RenewalWindowElapsed(d.DueAt(), now) {
		return model.Deposit{}, apperror.ErrInvalidTransition.With(
			"renewal window open until %s", AddBusinessDays(d.DueAt(), RenewalGraceBusinessDays).Format(time.RFC3339))
	}

	offer, err := p.engine.Offer(table, d.Type(), d.Currency(), d.Days(), d.FinalAmount(), d.DueAt())
	if err != nil {
		return model.Deposit{}, err
	}
	return d.Renew(offer, now)
}

// RenewalWindowElapsed reports whether the grace window after dueAt is over.
func RenewalWindowElapsed(dueAt, now time.Time) bool {
	return !now.Before(AddBusinessDays(dueAt, RenewalGraceBusinessDays))
}

// AddBusinessDays advances t by n weekdays. Weekends are skipped; holidays
// are not modelled.
func AddBusinessDays(t time.Time, n int) time.Time {
	for n > 0 {
		t = t.AddDate(0, 0, 1)
		if wd := t.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n--
		}
	}
	return t
}
