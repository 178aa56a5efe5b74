package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/model"
	"github.com/coopahorro/dap/internal/domain/port"
	"github.com/coopahorro/dap/internal/domain/valueobject"
	"github.com/coopahorro/dap/pkg/postgres"
)

// Compile-time interface check.
var _ port.DepositRepository = (*DepositRepo)(nil)

const depositColumns = `
	id, owner_id, deposit_type, currency, days, opened_at, due_at,
	initial_amount, final_amount, profit, annual_rate, monthly_rate, period_rate,
	status, internal_id, period, version, created_at, updated_at`

// DepositRepo implements DepositRepository using PostgreSQL.
type DepositRepo struct {
	pool *pgxpool.Pool
}

func NewDepositRepo(pool *pgxpool.Pool) *DepositRepo {
	return &DepositRepo{pool: pool}
}

func (r *DepositRepo) Save(ctx context.Context, deposit model.Deposit) error {
	return postgres.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		return saveDeposit(ctx, tx, deposit)
	})
}

// saveDeposit inserts a new deposit or updates the stored one when its
// version is exactly one behind, then writes the pending events.
func saveDeposit(ctx context.Context, q postgres.Querier, deposit model.Deposit) error {
	rec := deposit.Record()
	var internalID *string
	if rec.InternalID != "" {
		internalID = &rec.InternalID
	}

	if rec.Version == 1 {
		_, err := q.Exec(ctx, `
			INSERT INTO deposits (`+depositColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		`, rec.ID, rec.OwnerID, rec.Type.String(), rec.Currency, rec.Days, rec.OpenedAt, rec.DueAt,
			rec.InitialAmount, rec.FinalAmount, rec.Profit, rec.AnnualRate, rec.MonthlyRate, rec.PeriodRate,
			rec.Status.String(), internalID, rec.Period, rec.Version, rec.CreatedAt, rec.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert deposit: %w", err)
		}
	} else {
		tag, err := q.Exec(ctx, `
			UPDATE deposits SET
				opened_at = $2, due_at = $3,
				initial_amount = $4, final_amount = $5, profit = $6,
				annual_rate = $7, monthly_rate = $8, period_rate = $9,
				status = $10, internal_id = $11, period = $12,
				version = $13, updated_at = $14
			WHERE id = $1 AND version = $15
		`, rec.ID, rec.OpenedAt, rec.DueAt,
			rec.InitialAmount, rec.FinalAmount, rec.Profit,
			rec.AnnualRate, rec.MonthlyRate, rec.PeriodRate,
			rec.Status.String(), internalID, rec.Period,
			rec.Version, rec.UpdatedAt, rec.Version-1)
		if err != nil {
			if postgres.IsUniqueViolation(err, "deposits_internal_id_key") {
				return apperror.ErrInternalIDAlreadyUsed.With("internal id %s is already bound to another deposit", rec.InternalID)
			}
			return fmt.Errorf("update deposit: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperror.ErrStaleVersion.With("deposit %s is no longer at version %d", rec.ID, rec.Version-1)
		}
	}

	return writeOutbox(ctx, q, deposit.DomainEvents())
}

func (r *DepositRepo) FindByID(ctx context.Context, id uuid.UUID) (model.Deposit, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+depositColumns+` FROM deposits WHERE id = $1`, id)
	d, err := scanDeposit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Deposit{}, apperror.ErrDepositNotFound.With("deposit %s not found", id)
		}
		return model.Deposit{}, fmt.Errorf("query deposit: %w", err)
	}
	return d, nil
}

func (r *DepositRepo) ListByOwner(ctx context.Context, filter port.DepositFilter) ([]model.Deposit, error) {
	statuses := make([]string, 0, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses = append(statuses, s.String())
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+depositColumns+`
		FROM deposits
		WHERE owner_id = $1 AND (cardinality($2::text[]) = 0 OR status = ANY($2))
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4
	`, filter.OwnerID, statuses, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("query deposits: %w", err)
	}
	defer rows.Close()

	var deposits []model.Deposit
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deposit: %w", err)
		}
		deposits = append(deposits, d)
	}
	return deposits, rows.Err()
}

func scanDeposit(row pgx.Row) (model.Deposit, error) {
	var (
		rec         model.DepositRecord
		depositType string
		status      string
		internalID  *string
		openedAt    time.Time
		dueAt       time.Time
		createdAt   time.Time
		updatedAt   time.Time
		amounts     [6]decimal.Decimal
	)
	err := row.Scan(
		&rec.ID, &rec.OwnerID, &depositType, &rec.Currency, &rec.Days, &openedAt, &dueAt,
		&amounts[0], &amounts[1], &amounts[2], &amounts[3], &amounts[4], &amounts[5],
		&status, &internalID, &rec.Period, &rec.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return model.Deposit{}, err
	}

	if rec.Type, err = valueobject.ParseDepositType(depositType); err != nil {
		return model.Deposit{}, fmt.Errorf("deposit %s: %w", rec.ID, err)
	}
	if rec.Status, err = valueobject.ParseDepositStatus(status); err != nil {
		return model.Deposit{}, fmt.Errorf("deposit %s: %w", rec.ID, err)
	}
	if internalID != nil {
		rec.InternalID = *internalID
	}
	rec.OpenedAt, rec.DueAt = openedAt.UTC(), dueAt.UTC()
	rec.CreatedAt, rec.UpdatedAt = createdAt.UTC(), updatedAt.UTC()
	rec.InitialAmount, rec.FinalAmount, rec.Profit = amounts[0], amounts[1], amounts[2]
	rec.AnnualRate, rec.MonthlyRate, rec.PeriodRate = amounts[3], amounts[4], amounts[5]

	return model.ReconstructDeposit(rec), nil
}
