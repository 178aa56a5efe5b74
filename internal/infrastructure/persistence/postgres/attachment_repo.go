package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/model"
	"github.com/coopahorro/dap/internal/domain/port"
	"github.com/coopahorro/dap/internal/domain/valueobject"
	"github.com/coopahorro/dap/pkg/postgres"
)

// Compile-time interface check.
var _ port.AttachmentRepository = (*AttachmentRepo)(nil)

const attachmentColumns = `
	id, deposit_id, document_type, format, filename, storage_path, byte_size, uploaded_by, created_at`

// AttachmentRepo implements AttachmentRepository using PostgreSQL. The
// unique (deposit_id, document_type) constraint backs the one-live-file rule.
type AttachmentRepo struct {
	pool *pgxpool.Pool
}

func NewAttachmentRepo(pool *pgxpool.Pool) *AttachmentRepo {
	return &AttachmentRepo{pool: pool}
}

// Create inserts the record, runs store and commits. The transaction stays
// open while store runs, so a failed blob write leaves no row behind.
func (r *AttachmentRepo) Create(ctx context.Context, attachment model.Attachment, store func(ctx context.Context) error) error {
	rec := attachment.Record()
	return postgres.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO attachments (`+attachmentColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, rec.ID, rec.DepositID, rec.DocumentType.String(), rec.Format.String(), rec.Filename,
			rec.StoragePath, rec.ByteSize, rec.UploadedBy, rec.CreatedAt)
		if err != nil {
			if postgres.IsUniqueViolation(err, "attachments_deposit_type_key") {
				return apperror.ErrAlreadyUploaded.With("a %s was already uploaded for this deposit", rec.DocumentType)
			}
			return fmt.Errorf("insert attachment: %w", err)
		}
		if err := writeOutbox(ctx, tx, attachment.DomainEvents()); err != nil {
			return err
		}
		return store(ctx)
	})
}

// Remove deletes the record, runs finalize and commits.
func (r *AttachmentRepo) Remove(ctx context.Context, attachment model.Attachment, finalize func(ctx context.Context) error) error {
	return postgres.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM attachments WHERE id = $1 AND deposit_id = $2`,
			attachment.ID(), attachment.DepositID())
		if err != nil {
			return fmt.Errorf("delete attachment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperror.ErrAttachmentNotFound.With("attachment %s not found", attachment.ID())
		}
		if err := writeOutbox(ctx, tx, attachment.DomainEvents()); err != nil {
			return err
		}
		return finalize(ctx)
	})
}

func (r *AttachmentRepo) FindByID(ctx context.Context, depositID, attachmentID uuid.UUID) (model.Attachment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+attachmentColumns+` FROM attachments WHERE id = $1 AND deposit_id = $2
	`, attachmentID, depositID)
	a, err := scanAttachment(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.Attachment{}, apperror.ErrAttachmentNotFound.With("attachment %s not found", attachmentID)
		}
		return model.Attachment{}, fmt.Errorf("query attachment: %w", err)
	}
	return a, nil
}

func (r *AttachmentRepo) ListByDeposit(ctx context.Context, depositID uuid.UUID) ([]model.Attachment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+attachmentColumns+` FROM attachments WHERE deposit_id = $1 ORDER BY created_at
	`, depositID)
	if err != nil {
		return nil, fmt.Errorf("query attachments: %w", err)
	}
	defer rows.Close()

	var attachments []model.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

func scanAttachment(row pgx.Row) (model.Attachment, error) {
	var (
		rec     model.AttachmentRecord
		docType string
		format  string
	)
	if err := row.Scan(&rec.ID, &rec.DepositID, &docType, &format, &rec.Filename,
		&rec.StoragePath, &rec.ByteSize, &rec.UploadedBy, &rec.CreatedAt); err != nil {
		return model.Attachment{}, err
	}

	var err error
	if rec.DocumentType, err = valueobject.ParseDocumentType(docType); err != nil {
		return model.Attachment{}, fmt.Errorf("attachment %s: %w", rec.ID, err)
	}
	if rec.Format, err = valueobject.ParseFileFormat(format); err != nil {
		return model.Attachment{}, fmt.Errorf("attachment %s: %w", rec.ID, err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return model.ReconstructAttachment(rec), nil
}
