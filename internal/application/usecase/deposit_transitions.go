package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/coopahorro/dap/internal/application/dto"
	"github.com/coopahorro/dap/internal/domain/model"
	"github.com/coopahorro/dap/internal/domain/port"
	"github.com/coopahorro/dap/internal/domain/service"
	"github.com/coopahorro/dap/internal/domain/valueobject"
)

// transition re-reads the deposit under its lock, applies fn at the current
// instant and saves the result. The effective status is always derived
// again inside the lock.
func transition(
	ctx context.Context,
	repo port.DepositRepository,
	locker port.Locker,
	clock port.Clock,
	depositID uuid.UUID,
	fn func(d model.Deposit, now time.Time) (model.Deposit, error),
) (model.Deposit, time.Time, error) {
	var (
		updated model.Deposit
		now     time.Time
	)
	err := withLocks(ctx, locker, []string{depositLockKey(depositID)}, func(ctx context.Context) error {
		current, err := repo.FindByID(ctx, depositID)
		if err != nil {
			return err
		}
		now = clock.Now()
		next, err := fn(current, now)
		if err != nil {
			return err
		}
		if next.Version() == current.Version() {
			updated = next
			return nil
		}
		if err := repo.Save(ctx, next); err != nil {
			return fmt.Errorf("failed to save deposit: %w", err)
		}
		updated = next
		return nil
	})
	return updated, now, err
}

// RequestCollection lets the owner of an expired deposit ask for payout.
type RequestCollection struct {
	depositRepo port.DepositRepository
	locker      port.Locker
	clock       port.Clock
	logger      *slog.Logger
}

func NewRequestCollection(depositRepo port.DepositRepository, locker port.Locker, clock port.Clock, logger *slog.Logger) *RequestCollection {
	return &RequestCollection{depositRepo: depositRepo, locker: locker, clock: clock, logger: logger}
}

func (uc *RequestCollection) Execute(ctx context.Context, req dto.DepositActionRequest) (resp dto.DepositResponse, err error) {
	ctx, span := startSpan(ctx, "RequestCollection", attribute.String("deposit.id", req.DepositID.String()))
	defer func() { endSpan(span, err) }()

	d, now, err := transition(ctx, uc.depositRepo, uc.locker, uc.clock, req.DepositID,
		func(d model.Deposit, now time.Time) (model.Deposit, error) {
			return d.RequestCollection(req.Actor.UserID, now)
		})
	if err != nil {
		return dto.DepositResponse{}, err
	}

	uc.logger.InfoContext(ctx, "collection requested", "deposit_id", d.ID(), "owner_id", d.OwnerID())
	return toDepositResponse(d, now), nil
}

// ConfirmPayment records that staff transferred the final amount.
type ConfirmPayment struct {
	depositRepo port.DepositRepository
	locker      port.Locker
	clock       port.Clock
	logger      *slog.Logger
}

func NewConfirmPayment(depositRepo port.DepositRepository, locker port.Locker, clock port.Clock, logger *slog.Logger) *ConfirmPayment {
	return &ConfirmPayment{depositRepo: depositRepo, locker: locker, clock: clock, logger: logger}
}

func (uc *ConfirmPayment) Execute(ctx context.Context, req dto.DepositActionRequest) (resp dto.DepositResponse, err error) {
	ctx, span := startSpan(ctx, "ConfirmPayment", attribute.String("deposit.id", req.DepositID.String()))
	defer func() { endSpan(span, err) }()

	if err := requireStaff(req.Actor); err != nil {
		return dto.DepositResponse{}, err
	}

	d, now, err := transition(ctx, uc.depositRepo, uc.locker, uc.clock, req.DepositID,
		func(d model.Deposit, now time.Time) (model.Deposit, error) {
			return d.ConfirmPayment(now)
		})
	if err != nil {
		return dto.DepositResponse{}, err
	}

	uc.logger.InfoContext(ctx, "deposit paid", "deposit_id", d.ID(), "confirmed_by", req.Actor.UserID)
	return toDepositResponse(d, now), nil
}

// OverrideStatus is the staff escape hatch for operational corrections.
// Every override is written to the audit log.
type OverrideStatus struct {
	depositRepo port.DepositRepository
	locker      port.Locker
	clock       port.Clock
	logger      *slog.Logger
}

func NewOverrideStatus(depositRepo port.DepositRepository, locker port.Locker, clock port.Clock, logger *slog.Logger) *OverrideStatus {
	return &OverrideStatus{depositRepo: depositRepo, locker: locker, clock: clock, logger: logger}
}

func (uc *OverrideStatus) Execute(ctx context.Context, req dto.OverrideStatusRequest) (resp dto.DepositResponse, err error) {
	ctx, span := startSpan(ctx, "OverrideStatus",
		attribute.String("deposit.id", req.DepositID.String()),
		attribute.String("deposit.target_status", req.Status),
	)
	defer func() { endSpan(span, err) }()

	if err := requireStaff(req.Actor); err != nil {
		return dto.DepositResponse{}, err
	}
	target, err := valueobject.ParseDepositStatus(req.Status)
	if err != nil {
		return dto.DepositResponse{}, err
	}

	var from valueobject.DepositStatus
	d, now, err := transition(ctx, uc.depositRepo, uc.locker, uc.clock, req.DepositID,
		func(d model.Deposit, now time.Time) (model.Deposit, error) {
			from = d.Status()
			return d.Override(target, now)
		})
	if err != nil {
		return dto.DepositResponse{}, err
	}

	uc.logger.WarnContext(ctx, "deposit status overridden",
		"audit", true,
		"deposit_id", d.ID(),
		"actor_id", req.Actor.UserID,
		"actor_role", string(req.Actor.Role),
		"from", from.String(),
		"to", target.String(),
		"reason", req.Reason,
	)
	return toDepositResponse(d, now), nil
}

// RenewDeposit asks the configured renewal policy to restart an expired
// deposit.
type RenewDeposit struct {
	depositRepo port.DepositRepository
	locker      port.Locker
	clock       port.Clock
	policy      service.RenewalPolicy
	table       valueobject.TierTable
	logger      *slog.Logger
	metrics     *Metrics
}

func NewRenewDeposit(
	depositRepo port.DepositRepository,
	locker port.Locker,
	clock port.Clock,
	policy service.RenewalPolicy,
	table valueobject.TierTable,
	logger *slog.Logger,
	metrics *Metrics,
) *RenewDeposit {
	return &RenewDeposit{
		depositRepo: depositRepo,
		locker:      locker,
		clock:       clock,
		policy:      policy,
		table:       table,
		logger:      logger,
		metrics:     metrics,
	}
}

func (uc *RenewDeposit) Execute(ctx context.Context, req dto.DepositActionRequest) (resp dto.DepositResponse, err error) {
	ctx, span := startSpan(ctx, "RenewDeposit", attribute.String("deposit.id", req.DepositID.String()))
	defer func() { endSpan(span, err) }()

	if err := requireStaff(req.Actor); err != nil {
		return dto.DepositResponse{}, err
	}

	d, now, err := transition(ctx, uc.depositRepo, uc.locker, uc.clock, req.DepositID,
		func(d model.Deposit, now time.Time) (model.Deposit, error) {
			renewed, err := uc.policy.Renew(d, uc.table, now)
			if err != nil {
				reportConfigurationError(ctx, uc.logger, uc.metrics, err, d.Days())
			}
			return renewed, err
		})
	if err != nil {
		return dto.DepositResponse{}, err
	}

	uc.logger.InfoContext(ctx, "deposit renewed", "deposit_id", d.ID(), "period", d.Period())
	return toDepositResponse(d, now), nil
}
