package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/valueobject"
)

// ActivationRecord is the audit entry binding an internal id to a deposit.
// It is written once, at activation, and never changes.
type ActivationRecord struct {
	activatedAt time.Time
	internalID  string
	depositID   uuid.UUID
	activatedBy uuid.UUID
}

// NewActivationRecord normalizes internalID and stamps the activating actor.
func NewActivationRecord(depositID uuid.UUID, internalID string, activatedBy uuid.UUID, now time.Time) (ActivationRecord, error) {
	if depositID == uuid.Nil {
		return ActivationRecord{}, apperror.ErrInvalidInput.With("deposit ID is required")
	}
	if activatedBy == uuid.Nil {
		return ActivationRecord{}, apperror.ErrInvalidInput.With("activating actor is required")
	}
	id, err := valueobject.NormalizeInternalID(internalID)
	if err != nil {
		return ActivationRecord{}, err
	}
	return ActivationRecord{
		depositID:   depositID,
		internalID:  id,
		activatedBy: activatedBy,
		activatedAt: now.UTC(),
	}, nil
}

// ReconstructActivationRecord recreates an ActivationRecord from persistence.
func ReconstructActivationRecord(depositID uuid.UUID, internalID string, activatedBy uuid.UUID, activatedAt time.Time) ActivationRecord {
	return ActivationRecord{
		depositID:   depositID,
		internalID:  internalID,
		activatedBy: activatedBy,
		activatedAt: activatedAt,
	}
}

func (r ActivationRecord) DepositID() uuid.UUID   { return r.depositID }
func (r ActivationRecord) InternalID() string     { return r.internalID }
func (r ActivationRecord) ActivatedBy() uuid.UUID { return r.activatedBy }
func (r ActivationRecord) ActivatedAt() time.Time { return r.activatedAt }
