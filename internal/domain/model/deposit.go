package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/event"
	"github.com/coopahorro/dap/internal/domain/valueobject"
	"github.com/coopahorro/dap/pkg/events"
)

// Deposit is the aggregate root for a fixed-term deposit contract.
// Commercial terms are frozen when the deposit is created; only the status
// and the internal id change afterwards, through the transition methods.
type Deposit struct {
	openedAt      time.Time
	dueAt         time.Time
	createdAt     time.Time
	updatedAt     time.Time
	initialAmount decimal.Decimal
	finalAmount   decimal.Decimal
	profit        decimal.Decimal
	annualRate    decimal.Decimal
	monthlyRate   decimal.Decimal
	periodRate    decimal.Decimal
	depositType   valueobject.DepositType
	status        valueobject.DepositStatus
	currency      string
	internalID    string
	domainEvents  []events.DomainEvent
	days          int
	period        int
	version       int
	id            uuid.UUID
	ownerID       uuid.UUID
}

// DepositRecord is the canonical persisted shape of a Deposit. Repositories
// produce it once from storage; nothing downstream re-normalizes fields.
type DepositRecord struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	Type          valueobject.DepositType
	Currency      string
	Days          int
	OpenedAt      time.Time
	DueAt         time.Time
	InitialAmount decimal.Decimal
	FinalAmount   decimal.Decimal
	Profit        decimal.Decimal
	AnnualRate    decimal.Decimal
	MonthlyRate   decimal.Decimal
	PeriodRate    decimal.Decimal
	Status        valueobject.DepositStatus
	InternalID    string
	Period        int
	Version       int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewDeposit freezes an accepted offer into a PENDING deposit opened at now.
func NewDeposit(ownerID uuid.UUID, offer valueobject.SimulatedOffer, now time.Time) (Deposit, error) {
	if ownerID == uuid.Nil {
		return Deposit{}, apperror.ErrInvalidInput.With("owner ID is required")
	}
	if offer.Type.IsZero() {
		return Deposit{}, apperror.ErrInvalidInput.With("deposit type is required")
	}
	if len(offer.Currency) != 3 {
		return Deposit{}, apperror.ErrInvalidInput.With("currency must be a 3-letter ISO code")
	}
	if offer.Days < valueobject.MinTermDays {
		return Deposit{}, apperror.ErrInvalidInput.With("term must be at least %d days", valueobject.MinTermDays)
	}
	if !offer.InitialAmount.IsPositive() {
		return Deposit{}, apperror.ErrInvalidInput.With("amount must be positive")
	}
	if !offer.FinalAmount.Equal(offer.InitialAmount.Add(offer.Profit)) {
		return Deposit{}, apperror.ErrInvalidInput.With("final amount must equal initial amount plus profit")
	}

	now = now.UTC()
	id := uuid.New()
	dueAt := now.AddDate(0, 0, offer.Days)

	d := Deposit{
		id:            id,
		ownerID:       ownerID,
		depositType:   offer.Type,
		currency:      offer.Currency,
		days:          offer.Days,
		openedAt:      now,
		dueAt:         dueAt,
		initialAmount: offer.InitialAmount,
		finalAmount:   offer.FinalAmount,
		profit:        offer.Profit,
		annualRate:    offer.AnnualRate,
		monthlyRate:   offer.MonthlyRate,
		periodRate:    offer.PeriodRate,
		status:        valueobject.DepositStatusPending,
		period:        1,
		version:       1,
		createdAt:     now,
		updatedAt:     now,
	}

	d.domainEvents = append(d.domainEvents, event.NewDepositCreated(
		id, ownerID, offer.Type.String(), offer.Currency, offer.Days,
		offer.InitialAmount, offer.FinalAmount, dueAt, now,
	))

	return d, nil
}

// ReconstructDeposit recreates a Deposit from persistence (no validation, no events).
func ReconstructDeposit(r DepositRecord) Deposit {
	return Deposit{
		id:            r.ID,
		ownerID:       r.OwnerID,
		depositType:   r.Type,
		currency:      r.Currency,
		days:          r.Days,
		openedAt:      r.OpenedAt,
		dueAt:         r.DueAt,
		initialAmount: r.InitialAmount,
		finalAmount:   r.FinalAmount,
		profit:        r.Profit,
		annualRate:    r.AnnualRate,
		monthlyRate:   r.MonthlyRate,
		periodRate:    r.PeriodRate,
		status:        r.Status,
		internalID:    r.InternalID,
		period:        r.Period,
		version:       r.Version,
		createdAt:     r.CreatedAt,
		updatedAt:     r.UpdatedAt,
	}
}

// Record returns the persisted shape of the deposit.
func (d Deposit) Record() DepositRecord {
	return DepositRecord{
		ID:            d.id,
		OwnerID:       d.ownerID,
		Type:          d.depositType,
		Currency:      d.currency,
		Days:          d.days,
		OpenedAt:      d.openedAt,
		DueAt:         d.dueAt,
		InitialAmount: d.initialAmount,
		FinalAmount:   d.finalAmount,
		Profit:        d.profit,
		AnnualRate:    d.annualRate,
		MonthlyRate:   d.monthlyRate,
		PeriodRate:    d.periodRate,
		Status:        d.status,
		InternalID:    d.internalID,
		Period:        d.period,
		Version:       d.version,
		CreatedAt:     d.createdAt,
		UpdatedAt:     d.updatedAt,
	}
}

// IsDue reports whether the due instant has been reached at now.
func (d Deposit) IsDue(now time.Time) bool {
	return !d.dueAt.After(now)
}

// EffectiveStatus derives the status observed at now. A stored ACTIVE
// deposit whose due date has passed reads as EXPIRED; EXPIRED is never
// written implicitly.
func (d Deposit) EffectiveStatus(now time.Time) valueobject.DepositStatus {
	if d.status == valueobject.DepositStatusActive && d.IsDue(now) {
		return valueobject.DepositStatusExpired
	}
	return d.status
}

// Activate binds internalID and moves the deposit from PENDING to ACTIVE.
// Repeating the call with the same id is a no-op, unless an override put the
// deposit back to PENDING, in which case it is made ACTIVE again.
func (d Deposit) Activate(internalID string, actorID uuid.UUID, now time.Time) (Deposit, error) {
	internalID, err := valueobject.NormalizeInternalID(internalID)
	if err != nil {
		return Deposit{}, err
	}
	if d.internalID != "" {
		if d.internalID != internalID {
			return Deposit{}, apperror.ErrDepositAlreadyActivated.WithDetail(
				"deposit %s is bound to internal id %s", d.id, d.internalID)
		}
		if d.status != valueobject.DepositStatusPending {
			return d, nil
		}
	}

	// An ACTIVE deposit without an id got there through an override; binding
	// the id completes the activation without another status change.
	if d.status != valueobject.DepositStatusPending && d.status != valueobject.DepositStatusActive {
		return Deposit{}, apperror.ErrInvalidTransition.With(
			"cannot activate a deposit in status %s", d.status)
	}

	activated := d.next(now)
	activated.status = valueobject.DepositStatusActive
	activated.internalID = internalID
	activated.domainEvents = append(activated.domainEvents,
		event.NewDepositActivated(d.id, internalID, actorID, now),
	)
	return activated, nil
}

// RequestCollection moves an expired deposit to EXPIRED_PENDING on behalf
// of its owner.
func (d Deposit) RequestCollection(requesterID uuid.UUID, now time.Time) (Deposit, error) {
	if requesterID != d.ownerID {
		return Deposit{}, apperror.ErrForbidden.With("only the deposit owner can request collection")
	}
	if current := d.EffectiveStatus(now); current != valueobject.DepositStatusExpired {
		return Deposit{}, apperror.ErrInvalidTransition.With(
			"collection requires an expired deposit, current: %s", current)
	}

	requested := d.next(now)
	requested.status = valueobject.DepositStatusExpiredPending
	requested.domainEvents = append(requested.domainEvents,
		event.NewDepositCollectionRequested(d.id, d.ownerID, d.finalAmount, d.currency, now),
	)
	return requested, nil
}

// ConfirmPayment finalizes a collection once staff have made the transfer.
func (d Deposit) ConfirmPayment(now time.Time) (Deposit, error) {
	if d.status != valueobject.DepositStatusExpiredPending {
		return Deposit{}, apperror.ErrInvalidTransition.With(
			"payment requires status %s, current: %s", valueobject.DepositStatusExpiredPending, d.status)
	}

	paid := d.next(now)
	paid.status = valueobject.DepositStatusPaid
	paid.domainEvents = append(paid.domainEvents,
		event.NewDepositPaid(d.id, d.finalAmount, d.currency, now),
	)
	return paid, nil
}

// Override sets target directly, bypassing the guarded transitions. Terminal
// deposits cannot be overridden.
func (d Deposit) Override(target valueobject.DepositStatus, now time.Time) (Deposit, error) {
	if target.IsZero() {
		return Deposit{}, apperror.ErrInvalidInput.With("target status is required")
	}
	if d.status.IsTerminal() {
		return Deposit{}, apperror.ErrInvalidTransition.With(
			"deposit is in terminal status %s", d.status)
	}
	if d.status == target {
		return d, nil
	}

	overridden := d.next(now)
	overridden.status = target
	overridden.domainEvents = append(overridden.domainEvents,
		event.NewDepositStatusOverridden(d.id, d.status.String(), target.String(), now),
	)
	return overridden, nil
}

// Renew restarts an expired renewable deposit for the same term under offer,
// whose initial amount must be the capitalized final amount of the period
// that just ended.
func (d Deposit) Renew(offer valueobject.SimulatedOffer, now time.Time) (Deposit, error) {
	if !d.depositType.IsRenewable() {
		return Deposit{}, apperror.ErrInvalidTransition.With("deposit type %s is not renewable", d.depositType)
	}
	if current := d.EffectiveStatus(now); current != valueobject.DepositStatusExpired {
		return Deposit{}, apperror.ErrInvalidTransition.With(
			"renewal requires an expired deposit, current: %s", current)
	}
	if offer.Days != d.days {
		return Deposit{}, apperror.ErrInvalidInput.With("renewal must keep the %d day term", d.days)
	}
	if !offer.InitialAmount.Equal(d.finalAmount) {
		return Deposit{}, apperror.ErrInvalidInput.With("renewal must capitalize the final amount %s", d.finalAmount)
	}
	if !offer.FinalAmount.Equal(offer.InitialAmount.Add(offer.Profit)) {
		return Deposit{}, apperror.ErrInvalidInput.With("final amount must equal initial amount plus profit")
	}

	renewed := d.next(now)
	renewed.status = valueobject.DepositStatusActive
	renewed.openedAt = offer.OpenedAt.UTC()
	renewed.dueAt = offer.DueDate.UTC()
	renewed.initialAmount = offer.InitialAmount
	renewed.finalAmount = offer.FinalAmount
	renewed.profit = offer.Profit
	renewed.annualRate = offer.AnnualRate
	renewed.monthlyRate = offer.MonthlyRate
	renewed.periodRate = offer.PeriodRate
	renewed.period = d.period + 1
	renewed.domainEvents = append(renewed.domainEvents,
		event.NewDepositRenewed(d.id, renewed.period, offer.InitialAmount, offer.FinalAmount, renewed.dueAt, now),
	)
	return renewed, nil
}

// next returns a copy prepared for a state change.
func (d Deposit) next(now time.Time) Deposit {
	n := d
	n.updatedAt = now.UTC()
	n.version++
	n.domainEvents = copyEvents(d.domainEvents)
	return n
}

// Accessors
func (d Deposit) ID() uuid.UUID                      { return d.id }
func (d Deposit) OwnerID() uuid.UUID                 { return d.ownerID }
func (d Deposit) Type() valueobject.DepositType      { return d.depositType }
func (d Deposit) Currency() string                   { return d.currency }
func (d Deposit) Days() int                          { return d.days }
func (d Deposit) OpenedAt() time.Time                { return d.openedAt }
func (d Deposit) DueAt() time.Time                   { return d.dueAt }
func (d Deposit) InitialAmount() decimal.Decimal     { return d.initialAmount }
func (d Deposit) FinalAmount() decimal.Decimal       { return d.finalAmount }
func (d Deposit) Profit() decimal.Decimal            { return d.profit }
func (d Deposit) AnnualRate() decimal.Decimal        { return d.annualRate }
func (d Deposit) MonthlyRate() decimal.Decimal       { return d.monthlyRate }
func (d Deposit) PeriodRate() decimal.Decimal        { return d.periodRate }
func (d Deposit) Status() valueobject.DepositStatus  { return d.status }
func (d Deposit) InternalID() string                 { return d.internalID }
func (d Deposit) Period() int                        { return d.period }
func (d Deposit) Version() int                       { return d.version }
func (d Deposit) CreatedAt() time.Time               { return d.createdAt }
func (d Deposit) UpdatedAt() time.Time               { return d.updatedAt }
func (d Deposit) DomainEvents() []events.DomainEvent { return d.domainEvents }

// IsActivated reports whether an internal id has been bound.
func (d Deposit) IsActivated() bool { return d.internalID != "" }

// copyEvents returns a copy of evts so value copies never share a backing array.
func copyEvents(evts []events.DomainEvent) []events.DomainEvent {
	if evts == nil {
		return nil
	}
	c := make([]events.DomainEvent, len(evts))
	copy(c, evts)
	return c
}
