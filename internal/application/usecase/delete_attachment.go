package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/coopahorro/dap/internal/application/dto"
	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/model"
	"github.com/coopahorro/dap/internal/domain/port"
)

// DeleteAttachment removes a document and its blob, unlocking its type.
// The record and the blob go together or not at all: if the record removal
// fails after the blob was deleted, the blob is written back.
type DeleteAttachment struct {
	depositRepo    port.DepositRepository
	attachmentRepo port.AttachmentRepository
	blobs          port.BlobStore
	locker         port.Locker
	clock          port.Clock
	ioTimeout      time.Duration
	logger         *slog.Logger
	metrics        *Metrics
}

func NewDeleteAttachment(
	depositRepo port.DepositRepository,
	attachmentRepo port.AttachmentRepository,
	blobs port.BlobStore,
	locker port.Locker,
	clock port.Clock,
	ioTimeout time.Duration,
	logger *slog.Logger,
	metrics *Metrics,
) *DeleteAttachment {
	return &DeleteAttachment{
		depositRepo:    depositRepo,
		attachmentRepo: attachmentRepo,
		blobs:          blobs,
		locker:         locker,
		clock:          clock,
		ioTimeout:      ioTimeout,
		logger:         logger,
		metrics:        metrics,
	}
}

func (uc *DeleteAttachment) Execute(ctx context.Context, req dto.AttachmentRequest) (err error) {
	ctx, span := startSpan(ctx, "DeleteAttachment",
		attribute.String("deposit.id", req.DepositID.String()),
		attribute.String("attachment.id", req.AttachmentID.String()),
	)
	defer func() { endSpan(span, err) }()

	if _, err := loadAccessibleDeposit(ctx, uc.depositRepo, req.Actor, req.DepositID); err != nil {
		return err
	}

	var removed model.Attachment
	err = withLocks(ctx, uc.locker, []string{depositLockKey(req.DepositID)}, func(ctx context.Context) error {
		attachment, err := uc.attachmentRepo.FindByID(ctx, req.DepositID, req.AttachmentID)
		if err != nil {
			return err
		}
		deleted, err := attachment.Delete(req.Actor, uc.clock.Now())
		if err != nil {
			return err
		}

		// The content is read before it is deleted so it can be put back if
		// the record removal fails to commit afterwards.
		var (
			purged   []byte
			blobGone bool
		)
		finalize := func(ctx context.Context) error {
			ctx, cancel := withIOTimeout(ctx, uc.ioTimeout)
			defer cancel()
			content, err := uc.blobs.Get(ctx, deleted.StoragePath())
			if errors.Is(err, apperror.ErrBlobNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := uc.blobs.Delete(ctx, deleted.StoragePath()); err != nil && !errors.Is(err, apperror.ErrBlobNotFound) {
				return err
			}
			purged, blobGone = content, true
			return nil
		}
		if err := uc.attachmentRepo.Remove(ctx, deleted, finalize); err != nil {
			if blobGone {
				uc.restoreBlob(ctx, deleted, purged)
			}
			return err
		}
		removed = deleted
		return nil
	})
	if err != nil {
		return err
	}

	uc.metrics.attachmentDeleted(ctx, removed.DocumentType().String())
	uc.logger.InfoContext(ctx, "attachment deleted",
		"deposit_id", removed.DepositID(),
		"attachment_id", removed.ID(),
		"document_type", removed.DocumentType().String(),
		"deleted_by", req.Actor.UserID,
	)
	return nil
}

// restoreBlob puts back content whose record removal failed to commit.
func (uc *DeleteAttachment) restoreBlob(ctx context.Context, a model.Attachment, content []byte) {
	ctx, cancel := withIOTimeout(context.WithoutCancel(ctx), uc.ioTimeout)
	defer cancel()
	if err := uc.blobs.Put(ctx, a.StoragePath(), content); err != nil {
		uc.logger.ErrorContext(ctx, "failed to restore attachment content",
			"deposit_id", a.DepositID(),
			"attachment_id", a.ID(),
			"path", a.StoragePath(),
			"error", err,
		)
	}
}
