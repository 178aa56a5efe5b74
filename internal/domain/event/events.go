package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coopahorro/dap/pkg/events"
)

const AggregateTypeDeposit = "Deposit"

const (
	TypeDepositCreated             = "deposit.created"
	TypeDepositActivated           = "deposit.activated"
	TypeDepositCollectionRequested = "deposit.collection_requested"
	TypeDepositPaid                = "deposit.paid"
	TypeDepositStatusOverridden    = "deposit.status_overridden"
	TypeDepositRenewed             = "deposit.renewed"
	TypeAttachmentUploaded         = "attachment.uploaded"
	TypeAttachmentDeleted          = "attachment.deleted"
)

// Attachment events are keyed by the owning deposit so that consumers see
// them in order with the deposit's own events.
func newBase(eventType string, depositID uuid.UUID, at time.Time, data any) events.BaseEvent {
	payload, _ := json.Marshal(data)
	return events.NewBaseEvent(eventType, depositID, AggregateTypeDeposit, at, payload)
}

// DepositCreated is emitted when a client accepts an offer.
type DepositCreated struct {
	events.BaseEvent
	Data DepositCreatedData
}

type DepositCreatedData struct {
	DepositID     uuid.UUID `json:"deposit_id"`
	OwnerID       uuid.UUID `json:"owner_id"`
	Type          string    `json:"type"`
	Currency      string    `json:"currency"`
	Days          int       `json:"days"`
	InitialAmount string    `json:"initial_amount"`
	FinalAmount   string    `json:"final_amount"`
	DueAt         time.Time `json:"due_at"`
}

func NewDepositCreated(depositID, ownerID uuid.UUID, depositType, currency string, days int,
	initialAmount, finalAmount decimal.Decimal, dueAt, at time.Time,
) DepositCreated {
	data := DepositCreatedData{
		DepositID:     depositID,
		OwnerID:       ownerID,
		Type:          depositType,
		Currency:      currency,
		Days:          days,
		InitialAmount: initialAmount.String(),
		FinalAmount:   finalAmount.String(),
		DueAt:         dueAt,
	}
	return DepositCreated{BaseEvent: newBase(TypeDepositCreated, depositID, at, data), Data: data}
}

// DepositActivated is emitted when staff bind an internal id to a deposit.
type DepositActivated struct {
	events.BaseEvent
	Data DepositActivatedData
}

type DepositActivatedData struct {
	DepositID   uuid.UUID `json:"deposit_id"`
	InternalID  string    `json:"internal_id"`
	ActivatedBy uuid.UUID `json:"activated_by"`
}

func NewDepositActivated(depositID uuid.UUID, internalID string, activatedBy uuid.UUID, at time.Time) DepositActivated {
	data := DepositActivatedData{DepositID: depositID, InternalID: internalID, ActivatedBy: activatedBy}
	return DepositActivated{BaseEvent: newBase(TypeDepositActivated, depositID, at, data), Data: data}
}

// DepositCollectionRequested is emitted when the owner asks to collect an
// expired deposit.
type DepositCollectionRequested struct {
	events.BaseEvent
	Data DepositCollectionRequestedData
}

type DepositCollectionRequestedData struct {
	DepositID   uuid.UUID `json:"deposit_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	FinalAmount string    `json:"final_amount"`
	Currency    string    `json:"currency"`
}

func NewDepositCollectionRequested(depositID, ownerID uuid.UUID, finalAmount decimal.Decimal, currency string, at time.Time) DepositCollectionRequested {
	data := DepositCollectionRequestedData{
		DepositID:   depositID,
		OwnerID:     ownerID,
		FinalAmount: finalAmount.String(),
		Currency:    currency,
	}
	return DepositCollectionRequested{BaseEvent: newBase(TypeDepositCollectionRequested, depositID, at, data), Data: data}
}

// DepositPaid is emitted when staff confirm the payout transfer.
type DepositPaid struct {
	events.BaseEvent
	Data DepositPaidData
}

type DepositPaidData struct {
	DepositID   uuid.UUID `json:"deposit_id"`
	FinalAmount string    `json:"final_amount"`
	Currency    string    `json:"currency"`
}

func NewDepositPaid(depositID uuid.UUID, finalAmount decimal.Decimal, currency string, at time.Time) DepositPaid {
	data := DepositPaidData{DepositID: depositID, FinalAmount: finalAmount.String(), Currency: currency}
	return DepositPaid{BaseEvent: newBase(TypeDepositPaid, depositID, at, data), Data: data}
}

// DepositStatusOverridden records an administrative status correction.
type DepositStatusOverridden struct {
	events.BaseEvent
	Data DepositStatusOverriddenData
}

type DepositStatusOverriddenData struct {
	DepositID uuid.UUID `json:"deposit_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
}

func NewDepositStatusOverridden(depositID uuid.UUID, from, to string, at time.Time) DepositStatusOverridden {
	data := DepositStatusOverriddenData{DepositID: depositID, From: from, To: to}
	return DepositStatusOverridden{BaseEvent: newBase(TypeDepositStatusOverridden, depositID, at, data), Data: data}
}

// DepositRenewed is emitted when a deposit restarts for a new period.
type DepositRenewed struct {
	events.BaseEvent
	Data DepositRenewedData
}

type DepositRenewedData struct {
	DepositID     uuid.UUID `json:"deposit_id"`
	Period        int       `json:"period"`
	InitialAmount string    `json:"initial_amount"`
	FinalAmount   string    `json:"final_amount"`
	DueAt         time.Time `json:"due_at"`
}

func NewDepositRenewed(depositID uuid.UUID, period int, initialAmount, finalAmount decimal.Decimal, dueAt, at time.Time) DepositRenewed {
	data := DepositRenewedData{
		DepositID:     depositID,
		Period:        period,
		InitialAmount: initialAmount.String(),
		FinalAmount:   finalAmount.String(),
		DueAt:         dueAt,
	}
	return DepositRenewed{BaseEvent: newBase(TypeDepositRenewed, depositID, at, data), Data: data}
}

// AttachmentUploaded is emitted when a supporting document is stored.
type AttachmentUploaded struct {
	events.BaseEvent
	Data AttachmentUploadedData
}

type AttachmentUploadedData struct {
	DepositID    uuid.UUID `json:"deposit_id"`
	AttachmentID uuid.UUID `json:"attachment_id"`
	DocumentType string    `json:"document_type"`
	Filename     string    `json:"filename"`
	ByteSize     int64     `json:"byte_size"`
	UploadedBy   uuid.UUID `json:"uploaded_by"`
}

func NewAttachmentUploaded(depositID, attachmentID uuid.UUID, documentType, filename string, byteSize int64, uploadedBy uuid.UUID, at time.Time) AttachmentUploaded {
	data := AttachmentUploadedData{
		DepositID:    depositID,
		AttachmentID: attachmentID,
		DocumentType: documentType,
		Filename:     filename,
		ByteSize:     byteSize,
		UploadedBy:   uploadedBy,
	}
	return AttachmentUploaded{BaseEvent: newBase(TypeAttachmentUploaded, depositID, at, data), Data: data}
}

// AttachmentDeleted is emitted when a supporting document is removed and its
// type unlocked.
type AttachmentDeleted struct {
	events.BaseEvent
	Data AttachmentDeletedData
}

type AttachmentDeletedData struct {
	DepositID    uuid.UUID `json:"deposit_id"`
	AttachmentID uuid.UUID `json:"attachment_id"`
	DocumentType string    `json:"document_type"`
	DeletedBy    uuid.UUID `json:"deleted_by"`
}

func NewAttachmentDeleted(depositID, attachmentID uuid.UUID, documentType string, deletedBy uuid.UUID, at time.Time) AttachmentDeleted {
	data := AttachmentDeletedData{
		DepositID:    depositID,
		AttachmentID: attachmentID,
		DocumentType: documentType,
		DeletedBy:    deletedBy,
	}
	return AttachmentDeleted{BaseEvent: newBase(TypeAttachmentDeleted, depositID, at, data), Data: data}
}
