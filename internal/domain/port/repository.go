package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/coopahorro/dap/internal/domain/model"
	"github.com/coopahorro/dap/internal/domain/valueobject"
)

// DepositFilter narrows a deposits-by-owner query.
type DepositFilter struct {
	OwnerID uuid.UUID
	// Statuses restricts the stored status; empty means any.
	Statuses []valueobject.DepositStatus
	Limit    int
	Offset   int
}

// DepositRepository defines persistence operations for deposits.
type DepositRepository interface {
	// Save persists a deposit (insert or update) together with its pending
	// domain events. Updates are guarded by the deposit's version.
	Save(ctx context.Context, deposit model.Deposit) error
	// FindByID retrieves a deposit by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (model.Deposit, error)
	// ListByOwner returns the owner's deposits, newest first.
	ListByOwner(ctx context.Context, filter DepositFilter) ([]model.Deposit, error)
}

// AttachmentRepository defines persistence operations for attachments.
type AttachmentRepository interface {
	// Create inserts the attachment record and runs store in the same unit of
	// work. If store fails the record is not kept.
	Create(ctx context.Context, attachment model.Attachment, store func(ctx context.Context) error) error
	// Remove deletes the attachment record and runs finalize in the same unit
	// of work. If finalize fails the record is kept.
	Remove(ctx context.Context, attachment model.Attachment, finalize func(ctx context.Context) error) error
	// FindByID retrieves a live attachment of a deposit.
	FindByID(ctx context.Context, depositID, attachmentID uuid.UUID) (model.Attachment, error)
	// ListByDeposit returns the live attachments of a deposit.
	ListByDeposit(ctx context.Context, depositID uuid.UUID) ([]model.Attachment, error)
}

// ActivationRepository defines persistence operations for activation records.
type ActivationRepository interface {
	// FindByInternalID retrieves the record bound to internalID.
	FindByInternalID(ctx context.Context, internalID string) (model.ActivationRecord, error)
	// FindByDepositID retrieves the record of a deposit.
	FindByDepositID(ctx context.Context, depositID uuid.UUID) (model.ActivationRecord, error)
	// Activate stores the record and the activated deposit atomically.
	Activate(ctx context.Context, record model.ActivationRecord, deposit model.Deposit) error
}

// TierSource loads the interest tier reference data.
type TierSource interface {
	LoadTiers(ctx context.Context) ([]valueobject.InterestTier, error)
}

// BlobStore holds attachment content by path.
type BlobStore interface {
	Put(ctx context.Context, path string, content []byte) error
	// Get returns apperror.ErrBlobNotFound when nothing is stored at path.
	Get(ctx context.Context, path string) ([]byte, error)
	// Delete returns apperror.ErrBlobNotFound when nothing is stored at path.
	Delete(ctx context.Context, path string) error
}

// Locker provides mutual exclusion scopes keyed by string. Acquire blocks
// until the scope is held or ctx is done.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}
