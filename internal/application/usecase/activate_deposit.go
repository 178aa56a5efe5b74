package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/coopahorro/dap/internal/application/dto"
	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/model"
	"github.com/coopahorro/dap/internal/domain/port"
	"github.com/coopahorro/dap/internal/domain/valueobject"
)

// ActivateDeposit binds an externally issued internal id to a deposit and
// moves it to ACTIVE. Internal ids are unique across deposits and a
// deposit's id never changes once bound.
type ActivateDeposit struct {
	depositRepo    port.DepositRepository
	activationRepo port.ActivationRepository
	locker         port.Locker
	clock          port.Clock
	logger         *slog.Logger
	metrics        *Metrics
}

func NewActivateDeposit(
	depositRepo port.DepositRepository,
	activationRepo port.ActivationRepository,
	locker port.Locker,
	clock port.Clock,
	logger *slog.Logger,
	metrics *Metrics,
) *ActivateDeposit {
	return &ActivateDeposit{
		depositRepo:    depositRepo,
		activationRepo: activationRepo,
		locker:         locker,
		clock:          clock,
		logger:         logger,
		metrics:        metrics,
	}
}

// Execute is idempotent for a repeated (internal id, deposit) pair. Without
// a deposit id it returns the existing binding of the internal id.
func (uc *ActivateDeposit) Execute(ctx context.Context, req dto.ActivateDepositRequest) (resp dto.ActivationResponse, err error) {
	ctx, span := startSpan(ctx, "ActivateDeposit")
	defer func() { endSpan(span, err) }()

	if err := requireStaff(req.Actor); err != nil {
		return dto.ActivationResponse{}, err
	}
	internalID, err := valueobject.NormalizeInternalID(req.InternalID)
	if err != nil {
		return dto.ActivationResponse{}, err
	}
	span.SetAttributes(attribute.String("deposit.internal_id", internalID))

	if req.DepositID == nil {
		return uc.lookup(ctx, internalID)
	}
	depositID := *req.DepositID
	span.SetAttributes(attribute.String("deposit.id", depositID.String()))

	keys := []string{internalIDLockKey(internalID), depositLockKey(depositID)}
	err = withLocks(ctx, uc.locker, keys, func(ctx context.Context) error {
		existing, err := uc.activationRepo.FindByInternalID(ctx, internalID)
		switch {
		case err == nil:
			if existing.DepositID() != depositID {
				return apperror.ErrInternalIDAlreadyUsed.
					With("internal id %s is already bound to another deposit", internalID).
					WithDetail("bound to deposit %s", existing.DepositID())
			}
			deposit, err := uc.depositRepo.FindByID(ctx, depositID)
			if err != nil {
				return err
			}
			now := uc.clock.Now()
			if deposit.Status() == valueobject.DepositStatusPending {
				// Overridden back to PENDING after the id was bound.
				deposit, err = deposit.Activate(internalID, req.Actor.UserID, now)
				if err != nil {
					return err
				}
				if err := uc.depositRepo.Save(ctx, deposit); err != nil {
					return fmt.Errorf("failed to store activation: %w", err)
				}
				uc.logger.InfoContext(ctx, "deposit reactivated",
					"deposit_id", depositID,
					"internal_id", internalID,
					"activated_by", req.Actor.UserID,
				)
			}
			resp = toActivationResponse(existing, deposit, now)
			return nil
		case !errors.Is(err, apperror.ErrActivationNotFound):
			return fmt.Errorf("failed to look up internal id: %w", err)
		}

		deposit, err := uc.depositRepo.FindByID(ctx, depositID)
		if err != nil {
			return err
		}

		now := uc.clock.Now()
		activated, err := deposit.Activate(internalID, req.Actor.UserID, now)
		if err != nil {
			return err
		}
		record, err := model.NewActivationRecord(depositID, internalID, req.Actor.UserID, now)
		if err != nil {
			return err
		}
		if err := uc.activationRepo.Activate(ctx, record, activated); err != nil {
			return fmt.Errorf("failed to store activation: %w", err)
		}

		uc.metrics.activated(ctx)
		uc.logger.InfoContext(ctx, "deposit activated",
			"deposit_id", depositID,
			"internal_id", internalID,
			"activated_by", req.Actor.UserID,
		)
		resp = toActivationResponse(record, activated, now)
		return nil
	})
	if err != nil {
		return dto.ActivationResponse{}, err
	}
	return resp, nil
}

func (uc *ActivateDeposit) lookup(ctx context.Context, internalID string) (dto.ActivationResponse, error) {
	record, err := uc.activationRepo.FindByInternalID(ctx, internalID)
	if err != nil {
		return dto.ActivationResponse{}, err
	}
	deposit, err := uc.depositRepo.FindByID(ctx, record.DepositID())
	if err != nil {
		return dto.ActivationResponse{}, err
	}
	return toActivationResponse(record, deposit, uc.clock.Now()), nil
}

func toActivationResponse(r model.ActivationRecord, d model.Deposit, now time.Time) dto.ActivationResponse {
	return dto.ActivationResponse{
		DepositID:   r.DepositID(),
		InternalID:  r.InternalID(),
		ActivatedBy: r.ActivatedBy(),
		ActivatedAt: r.ActivatedAt(),
		Deposit:     toDepositResponse(d, now),
	}
}
