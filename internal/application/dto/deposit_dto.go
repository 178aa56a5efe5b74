package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coopahorro/dap/internal/domain/valueobject"
)

// --- Simulation DTOs ---

// SimulateRequest is the input DTO for a deposit simulation.
type SimulateRequest struct {
	Actor    valueobject.Actor
	Type     string
	Currency string
	Amount   decimal.Decimal
}

// OfferDTO transfers a simulated offer between layers.
type OfferDTO struct {
	Days          int
	Type          string
	Currency      string
	InitialAmount decimal.Decimal
	OpenedAt      time.Time
	DueDate       time.Time
	AnnualRate    decimal.Decimal
	MonthlyRate   decimal.Decimal
	PeriodRate    decimal.Decimal
	Profit        decimal.Decimal
	FinalAmount   decimal.Decimal
}

// SimulateResponse is the output DTO for a deposit simulation. Terms that
// could not be priced are listed in OmittedTerms.
type SimulateResponse struct {
	Offers       []OfferDTO
	OmittedTerms []int
}

// --- Deposit DTOs ---

// CreateDepositRequest is the input DTO for accepting an offer.
type CreateDepositRequest struct {
	Actor    valueobject.Actor
	Type     string
	Currency string
	Amount   decimal.Decimal
	Days     int
}

// DepositResponse is the output DTO for a deposit. Status is the effective
// status at read time; StoredStatus is what was last persisted.
type DepositResponse struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	Type          string
	Currency      string
	Days          int
	OpenedAt      time.Time
	DueAt         time.Time
	InitialAmount decimal.Decimal
	FinalAmount   decimal.Decimal
	Profit        decimal.Decimal
	AnnualRate    decimal.Decimal
	MonthlyRate   decimal.Decimal
	PeriodRate    decimal.Decimal
	Status        string
	StoredStatus  string
	InternalID    string
	Period        int
	Version       int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// GetDepositRequest is the input DTO for reading one deposit.
type GetDepositRequest struct {
	Actor     valueobject.Actor
	DepositID uuid.UUID
}

// List views.
const (
	ViewPrimary = "primary"
	ViewHistory = "history"
)

// ListDepositsRequest is the input DTO for listing deposits by owner.
// OwnerID defaults to the actor; only staff may name another owner.
type ListDepositsRequest struct {
	Actor   valueobject.Actor
	OwnerID uuid.UUID
	View    string
	Limit   int
	Offset  int
}

// ListDepositsResponse is the output DTO for listing deposits.
type ListDepositsResponse struct {
	Deposits []DepositResponse
}

// DepositActionRequest identifies a deposit an actor acts on.
type DepositActionRequest struct {
	Actor     valueobject.Actor
	DepositID uuid.UUID
}

// OverrideStatusRequest is the input DTO for a staff status override.
type OverrideStatusRequest struct {
	Actor     valueobject.Actor
	DepositID uuid.UUID
	Status    string
	Reason    string
}

// --- Activation DTOs ---

// ActivateDepositRequest is the input DTO for activation by internal id.
// A nil DepositID looks up the existing binding only.
type ActivateDepositRequest struct {
	Actor      valueobject.Actor
	InternalID string
	DepositID  *uuid.UUID
}

// ActivationResponse is the output DTO for an activation.
type ActivationResponse struct {
	DepositID   uuid.UUID
	InternalID  string
	ActivatedBy uuid.UUID
	ActivatedAt time.Time
	Deposit     DepositResponse
}

// --- Attachment DTOs ---

// UploadAttachmentRequest is the input DTO for a document upload.
type UploadAttachmentRequest struct {
	Actor        valueobject.Actor
	DepositID    uuid.UUID
	DocumentType string
	Filename     string
	Content      []byte
}

// AttachmentResponse is the output DTO for an attachment.
type AttachmentResponse struct {
	ID           uuid.UUID
	DepositID    uuid.UUID
	DocumentType string
	Filename     string
	ContentType  string
	ByteSize     int64
	UploadedBy   uuid.UUID
	CreatedAt    time.Time
}

// AttachmentRequest identifies one attachment of a deposit.
type AttachmentRequest struct {
	Actor        valueobject.Actor
	DepositID    uuid.UUID
	AttachmentID uuid.UUID
}

// AttachmentLocksResponse reports which document types are locked.
type AttachmentLocksResponse struct {
	DepositID      uuid.UUID
	Receipt        bool
	SignedDocument bool
	Attachments    []AttachmentResponse
}

// AttachmentContentResponse carries a stored document.
type AttachmentContentResponse struct {
	Attachment AttachmentResponse
	Content    []byte
}

// --- Document DTOs ---

// Document kinds.
const (
	DocumentSolicitud   = "solicitud"
	DocumentInstructivo = "instructivo"
)

// GetDocumentDataRequest is the input DTO for document rendering data.
type GetDocumentDataRequest struct {
	Actor     valueobject.Actor
	DepositID uuid.UUID
	Kind      string
}

// PaymentInstructionsDTO transfers the cooperative's collection account.
type PaymentInstructionsDTO struct {
	BankName      string
	AccountName   string
	AccountNumber string
	AccountType   string
	Currency      string
	ReferenceNote string
}

// DocumentDataResponse is the read-only snapshot a renderer consumes.
type DocumentDataResponse struct {
	Kind                string
	Deposit             DepositResponse
	PaymentInstructions PaymentInstructionsDTO
	GeneratedAt         time.Time
}
