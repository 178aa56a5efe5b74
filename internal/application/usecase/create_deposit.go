package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/coopahorro/dap/internal/application/dto"
	"github.com/coopahorro/dap/internal/domain/model"
	"github.com/coopahorro/dap/internal/domain/port"
	"github.com/coopahorro/dap/internal/domain/service"
	"github.com/coopahorro/dap/internal/domain/valueobject"
)

// CreateDeposit turns an accepted offer into a PENDING deposit. The offer is
// re-priced server-side; client-supplied figures are never trusted.
type CreateDeposit struct {
	engine      *service.SimulationEngine
	table       valueobject.TierTable
	depositRepo port.DepositRepository
	clock       port.Clock
	logger      *slog.Logger
	metrics     *Metrics
}

func NewCreateDeposit(
	engine *service.SimulationEngine,
	table valueobject.TierTable,
	depositRepo port.DepositRepository,
	clock port.Clock,
	logger *slog.Logger,
	metrics *Metrics,
) *CreateDeposit {
	return &CreateDeposit{
		engine:      engine,
		table:       table,
		depositRepo: depositRepo,
		clock:       clock,
		logger:      logger,
		metrics:     metrics,
	}
}

func (uc *CreateDeposit) Execute(ctx context.Context, req dto.CreateDepositRequest) (resp dto.DepositResponse, err error) {
	ctx, span := startSpan(ctx, "CreateDeposit",
		attribute.String("deposit.type", req.Type),
		attribute.Int("deposit.days", req.Days),
	)
	defer func() { endSpan(span, err) }()

	depositType, err := valueobject.ParseDepositType(req.Type)
	if err != nil {
		return dto.DepositResponse{}, err
	}

	now := uc.clock.Now()
	offer, err := uc.engine.Offer(uc.table, depositType, req.Currency, req.Days, req.Amount, now)
	if err != nil {
		reportConfigurationError(ctx, uc.logger, uc.metrics, err, req.Days)
		return dto.DepositResponse{}, err
	}

	deposit, err := model.NewDeposit(req.Actor.UserID, offer, now)
	if err != nil {
		return dto.DepositResponse{}, err
	}

	if err := uc.depositRepo.Save(ctx, deposit); err != nil {
		return dto.DepositResponse{}, fmt.Errorf("failed to save deposit: %w", err)
	}

	uc.metrics.depositCreated(ctx, depositType.String())
	uc.logger.InfoContext(ctx, "deposit created",
		"deposit_id", deposit.ID(),
		"owner_id", deposit.OwnerID(),
		"days", deposit.Days(),
		"type", depositType.String(),
	)

	return toDepositResponse(deposit, now), nil
}
