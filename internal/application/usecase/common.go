package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/coopahorro/dap/internal/application/dto"
	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/model"
	"github.com/coopahorro/dap/internal/domain/port"
	"github.com/coopahorro/dap/internal/domain/valueobject"
)

// DefaultIOTimeout bounds blob store calls when no timeout is configured.
const DefaultIOTimeout = 10 * time.Second

var tracer = otel.Tracer("github.com/coopahorro/dap/internal/application/usecase")

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperror.KindOf(err)))
	}
	span.End()
}

func depositLockKey(id uuid.UUID) string { return "deposit:" + id.String() }

func internalIDLockKey(id string) string { return "internal-id:" + id }

// withLocks runs fn while holding every key, acquired in order.
func withLocks(ctx context.Context, locker port.Locker, keys []string, fn func(ctx context.Context) error) error {
	for _, key := range keys {
		release, err := locker.Acquire(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		defer release()
	}
	return fn(ctx)
}

func requireStaff(actor valueobject.Actor) error {
	if !actor.IsStaff() {
		return apperror.ErrForbidden.With("staff role required")
	}
	return nil
}

// loadAccessibleDeposit reads a deposit and checks that actor may act on it.
func loadAccessibleDeposit(ctx context.Context, repo port.DepositRepository, actor valueobject.Actor, id uuid.UUID) (model.Deposit, error) {
	d, err := repo.FindByID(ctx, id)
	if err != nil {
		return model.Deposit{}, err
	}
	if !actor.CanAccess(d.OwnerID()) {
		return model.Deposit{}, apperror.ErrForbidden.With("deposit belongs to another client")
	}
	return d, nil
}

// reportConfigurationError raises the operational alert for a tier gap.
func reportConfigurationError(ctx context.Context, logger *slog.Logger, metrics *Metrics, err error, days int) {
	if !errors.Is(err, apperror.ErrNoTierForTerm) {
		return
	}
	logger.ErrorContext(ctx, "interest tier table has a gap",
		"alert", "tier_table_gap",
		"days", days,
		"error", err,
	)
	metrics.tierConfigurationError(ctx, days)
}

func withIOTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultIOTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func toDepositResponse(d model.Deposit, now time.Time) dto.DepositResponse {
	return dto.DepositResponse{
		ID:            d.ID(),
		OwnerID:       d.OwnerID(),
		Type:          d.Type().String(),
		Currency:      d.Currency(),
		Days:          d.Days(),
		OpenedAt:      d.OpenedAt(),
		DueAt:         d.DueAt(),
		InitialAmount: d.InitialAmount(),
		FinalAmount:   d.FinalAmount(),
		Profit:        d.Profit(),
		AnnualRate:    d.AnnualRate(),
		MonthlyRate:   d.MonthlyRate(),
		PeriodRate:    d.PeriodRate(),
		Status:        d.EffectiveStatus(now).String(),
		StoredStatus:  d.Status().String(),
		InternalID:    d.InternalID(),
		Period:        d.Period(),
		Version:       d.Version(),
		CreatedAt:     d.CreatedAt(),
		UpdatedAt:     d.UpdatedAt(),
	}
}

func toOfferDTO(o valueobject.SimulatedOffer) dto.OfferDTO {
	return dto.OfferDTO{
		Days:          o.Days,
		Type:          o.Type.String(),
		Currency:      o.Currency,
		InitialAmount: o.InitialAmount,
		OpenedAt:      o.OpenedAt,
		DueDate:       o.DueDate,
		AnnualRate:    o.AnnualRate,
		MonthlyRate:   o.MonthlyRate,
		PeriodRate:    o.PeriodRate,
		Profit:        o.Profit,
		FinalAmount:   o.FinalAmount,
	}
}

func toAttachmentResponse(a model.Attachment) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		ID:           a.ID(),
		DepositID:    a.DepositID(),
		DocumentType: a.DocumentType().String(),
		Filename:     a.Filename(),
		ContentType:  a.Format().MIMEType(),
		ByteSize:     a.ByteSize(),
		UploadedBy:   a.UploadedBy(),
		CreatedAt:    a.CreatedAt(),
	}
}
