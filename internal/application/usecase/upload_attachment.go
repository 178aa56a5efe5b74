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
	"github.com/coopahorro/dap/internal/domain/service"
	"github.com/coopahorro/dap/internal/domain/valueobject"
)

// UploadAttachment stores a supporting document for a deposit. Each document
// type accepts one live file per deposit.
type UploadAttachment struct {
	depositRepo    port.DepositRepository
	attachmentRepo port.AttachmentRepository
	blobs          port.BlobStore
	locker         port.Locker
	clock          port.Clock
	ioTimeout      time.Duration
	logger         *slog.Logger
	metrics        *Metrics
}

func NewUploadAttachment(
	depositRepo port.DepositRepository,
	attachmentRepo port.AttachmentRepository,
	blobs port.BlobStore,
	locker port.Locker,
	clock port.Clock,
	ioTimeout time.Duration,
	logger *slog.Logger,
	metrics *Metrics,
) *UploadAttachment {
	return &UploadAttachment{
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

func (uc *UploadAttachment) Execute(ctx context.Context, req dto.UploadAttachmentRequest) (resp dto.AttachmentResponse, err error) {
	ctx, span := startSpan(ctx, "UploadAttachment",
		attribute.String("deposit.id", req.DepositID.String()),
		attribute.String("attachment.document_type", req.DocumentType),
		attribute.Int("attachment.byte_size", len(req.Content)),
	)
	defer func() { endSpan(span, err) }()

	docType, err := valueobject.ParseDocumentType(req.DocumentType)
	if err != nil {
		return dto.AttachmentResponse{}, err
	}
	if _, err := loadAccessibleDeposit(ctx, uc.depositRepo, req.Actor, req.DepositID); err != nil {
		return dto.AttachmentResponse{}, err
	}
	format, err := service.ValidateDocument(docType, req.Content)
	if err != nil {
		return dto.AttachmentResponse{}, err
	}

	var created model.Attachment
	err = withLocks(ctx, uc.locker, []string{depositLockKey(req.DepositID)}, func(ctx context.Context) error {
		live, err := uc.attachmentRepo.ListByDeposit(ctx, req.DepositID)
		if err != nil {
			return fmt.Errorf("failed to list attachments: %w", err)
		}
		if model.DeriveLocks(live).Locked(docType) {
			return apperror.ErrAlreadyUploaded.With("a %s was already uploaded for this deposit", docType)
		}

		attachment, err := model.NewAttachment(req.DepositID, docType, format, req.Filename,
			int64(len(req.Content)), req.Actor.UserID, uc.clock.Now())
		if err != nil {
			return err
		}

		stored := false
		store := func(ctx context.Context) error {
			ctx, cancel := withIOTimeout(ctx, uc.ioTimeout)
			defer cancel()
			if err := uc.blobs.Put(ctx, attachment.StoragePath(), req.Content); err != nil {
				return err
			}
			stored = true
			return nil
		}
		if err := uc.attachmentRepo.Create(ctx, attachment, store); err != nil {
			if stored {
				uc.discardBlob(ctx, attachment)
			}
			return err
		}
		created = attachment
		return nil
	})
	if err != nil {
		return dto.AttachmentResponse{}, err
	}

	uc.metrics.attachmentUploaded(ctx, docType.String())
	uc.logger.InfoContext(ctx, "attachment uploaded",
		"deposit_id", created.DepositID(),
		"attachment_id", created.ID(),
		"document_type", docType.String(),
		"byte_size", created.ByteSize(),
	)
	return toAttachmentResponse(created), nil
}

// discardBlob removes content whose record failed to commit.
func (uc *UploadAttachment) discardBlob(ctx context.Context, a model.Attachment) {
	ctx, cancel := withIOTimeout(context.WithoutCancel(ctx), uc.ioTimeout)
	defer cancel()
	if err := uc.blobs.Delete(ctx, a.StoragePath()); err != nil && !errors.Is(err, apperror.ErrBlobNotFound) {
		uc.logger.ErrorContext(ctx, "failed to discard orphaned attachment content",
			"deposit_id", a.DepositID(),
			"attachment_id", a.ID(),
			"path", a.StoragePath(),
			"error", err,
		)
	}
}
