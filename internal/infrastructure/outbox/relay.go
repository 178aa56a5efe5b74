package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coopahorro/dap/internal/domain/port"
	"github.com/coopahorro/dap/pkg/events"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultBatchSize    = 100
)

// Relay moves committed outbox rows to the broker. Delivery is at least
// once: a crash between publish and mark republishes the batch.
type Relay struct {
	repo      events.OutboxRepository
	publisher events.EntryPublisher
	clock     port.Clock
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

// NewRelay creates a relay polling every interval for up to batchSize rows.
func NewRelay(
	repo events.OutboxRepository,
	publisher events.EntryPublisher,
	clock port.Clock,
	interval time.Duration,
	batchSize int,
	logger *slog.Logger,
) *Relay {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Relay{
		repo:      repo,
		publisher: publisher,
		clock:     clock,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run polls until ctx is canceled. A full batch is followed immediately by
// another poll.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info("outbox relay starting", "interval", r.interval, "batch_size", r.batchSize)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		n, err := r.RelayOnce(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			r.logger.Info("outbox relay stopping")
			return nil
		case err != nil:
			r.logger.ErrorContext(ctx, "outbox relay failed", "error", err)
		case n == r.batchSize:
			continue
		}

		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopping")
			return nil
		case <-ticker.C:
		}
	}
}

// RelayOnce publishes one batch and returns how many entries it relayed.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	entries, err := r.repo.FetchUnpublished(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch outbox: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	if err := r.publisher.PublishEntries(ctx, entries); err != nil {
		return 0, err
	}

	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	if err := r.repo.MarkPublished(ctx, ids, r.clock.Now()); err != nil {
		return 0, fmt.Errorf("mark outbox published: %w", err)
	}

	r.logger.DebugContext(ctx, "outbox batch relayed", "count", len(entries))
	return len(entries), nil
}
