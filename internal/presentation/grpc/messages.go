package grpc

// Wire messages for dap.deposit.v1.DepositService. Amounts and rates travel
// as decimal strings and timestamps as RFC 3339 strings.

type SimulateRequest struct {
	Type     string `json:"type"`
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

type Offer struct {
	Days          int32  `json:"days"`
	Type          string `json:"type"`
	Currency      string `json:"currency"`
	InitialAmount string `json:"initial_amount"`
	OpenedAt      string `json:"opened_at"`
	DueDate       string `json:"due_date"`
	AnnualRate    string `json:"annual_rate"`
	MonthlyRate   string `json:"monthly_rate"`
	PeriodRate    string `json:"period_rate"`
	Profit        string `json:"profit"`
	FinalAmount   string `json:"final_amount"`
}

type SimulateResponse struct {
	Offers       []*Offer `json:"offers"`
	OmittedTerms []int32  `json:"omitted_terms,omitempty"`
}

type CreateDepositRequest struct {
	Type     string `json:"type"`
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
	Days     int32  `json:"days"`
}

// Deposit is the wire form of a deposit. Status is the effective status at
// read time.
type Deposit struct {
	ID            string `json:"id"`
	OwnerID       string `json:"owner_id"`
	Type          string `json:"type"`
	Currency      string `json:"currency"`
	Days          int32  `json:"days"`
	OpenedAt      string `json:"opened_at"`
	DueAt         string `json:"due_at"`
	InitialAmount string `json:"initial_amount"`
	FinalAmount   string `json:"final_amount"`
	Profit        string `json:"profit"`
	AnnualRate    string `json:"annual_rate"`
	MonthlyRate   string `json:"monthly_rate"`
	PeriodRate    string `json:"period_rate"`
	Status        string `json:"status"`
	StoredStatus  string `json:"stored_status"`
	InternalID    string `json:"internal_id,omitempty"`
	Period        int32  `json:"period"`
	Version       int32  `json:"version"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type GetDepositRequest struct {
	DepositID string `json:"deposit_id"`
}

type ListDepositsRequest struct {
	OwnerID string `json:"owner_id,omitempty"`
	View    string `json:"view"`
	Limit   int32  `json:"limit"`
	Offset  int32  `json:"offset"`
}

type ListDepositsResponse struct {
	Deposits []*Deposit `json:"deposits"`
}

// DepositActionRequest is shared by RequestCollection, ConfirmPayment and
// RenewDeposit.
type DepositActionRequest struct {
	DepositID string `json:"deposit_id"`
}

type OverrideStatusRequest struct {
	DepositID string `json:"deposit_id"`
	Status    string `json:"status"`
	Reason    string `json:"reason"`
}

// ActivateDepositRequest binds InternalID to DepositID. An empty DepositID
// only looks up the existing binding.
type ActivateDepositRequest struct {
	InternalID string `json:"internal_id"`
	DepositID  string `json:"deposit_id,omitempty"`
}

type ActivationResponse struct {
	DepositID   string   `json:"deposit_id"`
	InternalID  string   `json:"internal_id"`
	ActivatedBy string   `json:"activated_by"`
	ActivatedAt string   `json:"activated_at"`
	Deposit     *Deposit `json:"deposit"`
}

// UploadAttachmentRequest carries the raw file; Content is base64 in JSON.
type UploadAttachmentRequest struct {
	DepositID    string `json:"deposit_id"`
	DocumentType string `json:"document_type"`
	Filename     string `json:"filename"`
	Content      []byte `json:"content"`
}

type Attachment struct {
	ID           string `json:"id"`
	DepositID    string `json:"deposit_id"`
	DocumentType string `json:"document_type"`
	Filename     string `json:"filename"`
	ContentType  string `json:"content_type"`
	ByteSize     int64  `json:"byte_size"`
	UploadedBy   string `json:"uploaded_by"`
	CreatedAt    string `json:"created_at"`
}

type DeleteAttachmentRequest struct {
	DepositID    string `json:"deposit_id"`
	AttachmentID string `json:"attachment_id"`
}

type DeleteAttachmentResponse struct{}

type GetAttachmentLocksRequest struct {
	DepositID string `json:"deposit_id"`
}

type AttachmentLocksResponse struct {
	DepositID            string        `json:"deposit_id"`
	ReceiptLocked        bool          `json:"receipt_locked"`
	SignedDocumentLocked bool          `json:"signed_document_locked"`
	Attachments          []*Attachment `json:"attachments"`
}

type GetDocumentDataRequest struct {
	DepositID string `json:"deposit_id"`
	Kind      string `json:"kind"`
}

type PaymentInstructions struct {
	BankName      string `json:"bank_name"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	AccountType   string `json:"account_type"`
	Currency      string `json:"currency"`
	ReferenceNote string `json:"reference_note,omitempty"`
}

type DocumentDataResponse struct {
	Kind                string               `json:"kind"`
	Deposit             *Deposit             `json:"deposit"`
	PaymentInstructions *PaymentInstructions `json:"payment_instructions"`
	GeneratedAt         string               `json:"generated_at"`
}
