package usecase

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the business counters. A nil *Metrics records nothing.
type Metrics struct {
	depositsCreated     metric.Int64Counter
	activations         metric.Int64Counter
	attachmentsUploaded metric.Int64Counter
	attachmentsDeleted  metric.Int64Counter
	tierConfigErrors    metric.Int64Counter
}

// NewMetrics registers the counters on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.depositsCreated, err = meter.Int64Counter("dap_deposits_created_total",
		metric.WithDescription("Deposits created from accepted offers")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if m.activations, err = meter.Int64Counter("dap_activations_total",
		metric.WithDescription("Deposits activated by internal id")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if m.attachmentsUploaded, err = meter.Int64Counter("dap_attachments_uploaded_total",
		metric.WithDescription("Supporting documents uploaded")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if m.attachmentsDeleted, err = meter.Int64Counter("dap_attachments_deleted_total",
		metric.WithDescription("Supporting documents deleted")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if m.tierConfigErrors, err = meter.Int64Counter("dap_tier_configuration_errors_total",
		metric.WithDescription("Terms requested with no configured interest tier")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	return &m, nil
}

func (m *Metrics) depositCreated(ctx context.Context, depositType string) {
	if m == nil {
		return
	}
	m.depositsCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("type", depositType)))
}

func (m *Metrics) activated(ctx context.Context) {
	if m == nil {
		return
	}
	m.activations.Add(ctx, 1)
}

func (m *Metrics) attachmentUploaded(ctx context.Context, documentType string) {
	if m == nil {
		return
	}
	m.attachmentsUploaded.Add(ctx, 1, metric.WithAttributes(attribute.String("document_type", documentType)))
}

func (m *Metrics) attachmentDeleted(ctx context.Context, documentType string) {
	if m == nil {
		return
	}
	m.attachmentsDeleted.Add(ctx, 1, metric.WithAttributes(attribute.String("document_type", documentType)))
}

func (m *Metrics) tierConfigurationError(ctx context.Context, days int) {
	if m == nil {
		return
	}
	m.tierConfigErrors.Add(ctx, 1, metric.WithAttributes(attribute.Int("days", days)))
}
