package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/model"
	"github.com/coopahorro/dap/internal/domain/port"
	"github.com/coopahorro/dap/pkg/postgres"
)

// Compile-time interface check.
var _ port.ActivationRepository = (*ActivationRepo)(nil)

// ActivationRepo implements ActivationRepository using PostgreSQL.
type ActivationRepo struct {
	pool *pgxpool.Pool
}

func NewActivationRepo(pool *pgxpool.Pool) *ActivationRepo {
	return &ActivationRepo{pool: pool}
}

func (r *ActivationRepo) FindByInternalID(ctx context.Context, internalID string) (model.ActivationRecord, error) {
	return r.findOne(ctx, `WHERE internal_id = $1`, internalID)
}

func (r *ActivationRepo) FindByDepositID(ctx context.Context, depositID uuid.UUID) (model.ActivationRecord, error) {
	return r.findOne(ctx, `WHERE deposit_id = $1`, depositID)
}

// Activate writes the audit record and the activated deposit in one
// transaction. Unique constraints on internal_id and deposit_id reject a
// racing writer from another process.
func (r *ActivationRepo) Activate(ctx context.Context, record model.ActivationRecord, deposit model.Deposit) error {
	return postgres.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO activation_records (deposit_id, internal_id, activated_by, activated_at)
			VALUES ($1, $2, $3, $4)
		`, record.DepositID(), record.InternalID(), record.ActivatedBy(), record.ActivatedAt())
		switch {
		case postgres.IsUniqueViolation(err, "activation_records_internal_id_key"):
			return apperror.ErrInternalIDAlreadyUsed.With("internal id %s is already bound to another deposit", record.InternalID())
		case postgres.IsUniqueViolation(err, "activation_records_deposit_id_key"):
			return apperror.ErrDepositAlreadyActivated.With("deposit %s is already activated", record.DepositID())
		case err != nil:
			return fmt.Errorf("insert activation record: %w", err)
		}
		return saveDeposit(ctx, tx, deposit)
	})
}

func (r *ActivationRepo) findOne(ctx context.Context, where string, arg any) (model.ActivationRecord, error) {
	var (
		depositID   uuid.UUID
		internalID  string
		activatedBy uuid.UUID
		activatedAt time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT deposit_id, internal_id, activated_by, activated_at FROM activation_records `+where, arg,
	).Scan(&depositID, &internalID, &activatedBy, &activatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.ActivationRecord{}, apperror.ErrActivationNotFound
		}
		return model.ActivationRecord{}, fmt.Errorf("query activation record: %w", err)
	}
	return model.ReconstructActivationRecord(depositID, internalID, activatedBy, activatedAt.UTC()), nil
}
