package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/coopahorro/dap/internal/application/dto"
	"github.com/coopahorro/dap/internal/domain/model"
	"github.com/coopahorro/dap/internal/domain/port"
)

// GetAttachmentLocks derives the lock view of a deposit from its live
// attachments.
type GetAttachmentLocks struct {
	depositRepo    port.DepositRepository
	attachmentRepo port.AttachmentRepository
}

func NewGetAttachmentLocks(depositRepo port.DepositRepository, attachmentRepo port.AttachmentRepository) *GetAttachmentLocks {
	return &GetAttachmentLocks{depositRepo: depositRepo, attachmentRepo: attachmentRepo}
}

func (uc *GetAttachmentLocks) Execute(ctx context.Context, req dto.DepositActionRequest) (dto.AttachmentLocksResponse, error) {
	if _, err := loadAccessibleDeposit(ctx, uc.depositRepo, req.Actor, req.DepositID); err != nil {
		return dto.AttachmentLocksResponse{}, err
	}

	live, err := uc.attachmentRepo.ListByDeposit(ctx, req.DepositID)
	if err != nil {
		return dto.AttachmentLocksResponse{}, fmt.Errorf("failed to list attachments: %w", err)
	}

	locks := model.DeriveLocks(live)
	resp := dto.AttachmentLocksResponse{
		DepositID:      req.DepositID,
		Receipt:        locks.Receipt,
		SignedDocument: locks.SignedDocument,
		Attachments:    make([]dto.AttachmentResponse, 0, len(live)),
	}
	for _, a := range live {
		resp.Attachments = append(resp.Attachments, toAttachmentResponse(a))
	}
	return resp, nil
}

// GetAttachmentContent returns a stored document to its owner or staff.
type GetAttachmentContent struct {
	depositRepo    port.DepositRepository
	attachmentRepo port.AttachmentRepository
	blobs          port.BlobStore
	ioTimeout      time.Duration
}

func NewGetAttachmentContent(
	depositRepo port.DepositRepository,
	attachmentRepo port.AttachmentRepository,
	blobs port.BlobStore,
	ioTimeout time.Duration,
) *GetAttachmentContent {
	return &GetAttachmentContent{
		depositRepo:    depositRepo,
		attachmentRepo: attachmentRepo,
		blobs:          blobs,
		ioTimeout:      ioTimeout,
	}
}

func (uc *GetAttachmentContent) Execute(ctx context.Context, req dto.AttachmentRequest) (dto.AttachmentContentResponse, error) {
	if _, err := loadAccessibleDeposit(ctx, uc.depositRepo, req.Actor, req.DepositID); err != nil {
		return dto.AttachmentContentResponse{}, err
	}

	attachment, err := uc.attachmentRepo.FindByID(ctx, req.DepositID, req.AttachmentID)
	if err != nil {
		return dto.AttachmentContentResponse{}, err
	}

	ioCtx, cancel := withIOTimeout(ctx, uc.ioTimeout)
	defer cancel()
	content, err := uc.blobs.Get(ioCtx, attachment.StoragePath())
	if err != nil {
		return dto.AttachmentContentResponse{}, fmt.Errorf("failed to read attachment content: %w", err)
	}

	return dto.AttachmentContentResponse{
		Attachment: toAttachmentResponse(attachment),
		Content:    content,
	}, nil
}
