package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/coopahorro/dap/internal/application/dto"
	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/port"
	"github.com/coopahorro/dap/internal/domain/service"
	"github.com/coopahorro/dap/internal/domain/valueobject"
)

// Simulate prices the term ladder for a prospective deposit.
type Simulate struct {
	engine  *service.SimulationEngine
	table   valueobject.TierTable
	clock   port.Clock
	logger  *slog.Logger
	metrics *Metrics
}

func NewSimulate(
	engine *service.SimulationEngine,
	table valueobject.TierTable,
	clock port.Clock,
	logger *slog.Logger,
	metrics *Metrics,
) *Simulate {
	return &Simulate{
		engine:  engine,
		table:   table,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// Execute omits terms without a configured tier and fails only when no term
// could be priced.
func (uc *Simulate) Execute(ctx context.Context, req dto.SimulateRequest) (resp dto.SimulateResponse, err error) {
	ctx, span := startSpan(ctx, "Simulate", attribute.String("deposit.type", req.Type))
	defer func() { endSpan(span, err) }()

	depositType, err := valueobject.ParseDepositType(req.Type)
	if err != nil {
		return dto.SimulateResponse{}, err
	}

	quotes, err := uc.engine.Simulate(uc.table, depositType, req.Currency, req.Amount, uc.clock.Now())
	if err != nil {
		return dto.SimulateResponse{}, err
	}

	var firstErr error
	for _, q := range quotes {
		if q.Err != nil {
			if !errors.Is(q.Err, apperror.ErrNoTierForTerm) {
				return dto.SimulateResponse{}, fmt.Errorf("failed to price %d day term: %w", q.Days, q.Err)
			}
			reportConfigurationError(ctx, uc.logger, uc.metrics, q.Err, q.Days)
			resp.OmittedTerms = append(resp.OmittedTerms, q.Days)
			if firstErr == nil {
				firstErr = q.Err
			}
			continue
		}
		resp.Offers = append(resp.Offers, toOfferDTO(q.Offer))
	}

	if len(resp.Offers) == 0 {
		return dto.SimulateResponse{}, firstErr
	}
	return resp, nil
}
