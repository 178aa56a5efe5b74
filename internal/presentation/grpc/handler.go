package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/coopahorro/dap/internal/application/dto"
	"github.com/coopahorro/dap/internal/application/usecase"
	"github.com/coopahorro/dap/internal/domain/valueobject"
	"github.com/coopahorro/dap/internal/presentation/identity"
)

// UseCases groups the application services the handler dispatches to.
type UseCases struct {
	Simulate           *usecase.Simulate
	CreateDeposit      *usecase.CreateDeposit
	GetDeposit         *usecase.GetDeposit
	ListDeposits       *usecase.ListDeposits
	RequestCollection  *usecase.RequestCollection
	ConfirmPayment     *usecase.ConfirmPayment
	OverrideStatus     *usecase.OverrideStatus
	RenewDeposit       *usecase.RenewDeposit
	ActivateDeposit    *usecase.ActivateDeposit
	UploadAttachment   *usecase.UploadAttachment
	DeleteAttachment   *usecase.DeleteAttachment
	GetAttachmentLocks *usecase.GetAttachmentLocks
	GetDocumentData    *usecase.GetDocumentData
}

// DepositHandler implements DepositServiceServer.
type DepositHandler struct {
	UnimplementedDepositServiceServer
	uc     UseCases
	logger *slog.Logger
}

// NewDepositHandler creates a new gRPC deposit handler.
func NewDepositHandler(uc UseCases, logger *slog.Logger) *DepositHandler {
	return &DepositHandler{uc: uc, logger: logger}
}

var _ DepositServiceServer = (*DepositHandler)(nil)

func (h *DepositHandler) Simulate(ctx context.Context, req *SimulateRequest) (*SimulateResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	actor, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	result, err := h.uc.Simulate.Execute(ctx, dto.SimulateRequest{
		Actor:    actor,
		Type:     req.Type,
		Currency: req.Currency,
		Amount:   amount,
	})
	if err != nil {
		return nil, toStatus(ctx, h.logger, actor, err)
	}

	resp := &SimulateResponse{Offers: make([]*Offer, 0, len(result.Offers))}
	for _, o := range result.Offers {
		resp.Offers = append(resp.Offers, toOffer(o))
	}
	for _, days := range result.OmittedTerms {
		resp.OmittedTerms = append(resp.OmittedTerms, int32(days))
	}
	return resp, nil
}

func (h *DepositHandler) CreateDeposit(ctx context.Context, req *CreateDepositRequest) (*Deposit, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	actor, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	result, err := h.uc.CreateDeposit.Execute(ctx, dto.CreateDepositRequest{
		Actor:    actor,
		Type:     req.Type,
		Currency: req.Currency,
		Amount:   amount,
		Days:     int(req.Days),
	})
	if err != nil {
		return nil, toStatus(ctx, h.logger, actor, err)
	}
	return toDeposit(result), nil
}

func (h *DepositHandler) GetDeposit(ctx context.Context, req *GetDepositRequest) (*Deposit, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	actor, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}
	depositID, err := parseID("deposit_id", req.DepositID)
	if err != nil {
		return nil, err
	}

	result, err := h.uc.GetDeposit.Execute(ctx, dto.GetDepositRequest{Actor: actor, DepositID: depositID})
	if err != nil {
		return nil, toStatus(ctx, h.logger, actor, err)
	}
	return toDeposit(result), nil
}

func (h *DepositHandler) ListDeposits(ctx context.Context, req *ListDepositsRequest) (*ListDepositsResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	actor, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}
	var ownerID uuid.UUID
	if req.OwnerID != "" {
		if ownerID, err = parseID("owner_id", req.OwnerID); err != nil {
			return nil, err
		}
	}

	result, err := h.uc.ListDeposits.Execute(ctx, dto.ListDepositsRequest{
		Actor:   actor,
		OwnerID: ownerID,
		View:    req.View,
		Limit:   int(req.Limit),
		Offset:  int(req.Offset),
	})
	if err != nil {
		return nil, toStatus(ctx, h.logger, actor, err)
	}

	resp := &ListDepositsResponse{Deposits: make([]*Deposit, 0, len(result.Deposits))}
	for _, d := range result.Deposits {
		resp.Deposits = append(resp.Deposits, toDeposit(d))
	}
	return resp, nil
}

func (h *DepositHandler) RequestCollection(ctx context.Context, req *DepositActionRequest) (*Deposit, error) {
	return h.depositAction(ctx, req, h.uc.RequestCollection.Execute)
}

func (h *DepositHandler) ConfirmPayment(ctx context.Context, req *DepositActionRequest) (*Deposit, error) {
	return h.depositAction(ctx, req, h.uc.ConfirmPayment.Execute)
}

func (h *DepositHandler) RenewDeposit(ctx context.Context, req *DepositActionRequest) (*Deposit, error) {
	return h.depositAction(ctx, req, h.uc.RenewDeposit.Execute)
}

func (h *DepositHandler) depositAction(
	ctx context.Context,
	req *DepositActionRequest,
	execute func(context.Context, dto.DepositActionRequest) (dto.DepositResponse, error),
) (*Deposit, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	actor, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}
	depositID, err := parseID("deposit_id", req.DepositID)
	if err != nil {
		return nil, err
	}

	result, err := execute(ctx, dto.DepositActionRequest{Actor: actor, DepositID: depositID})
	if err != nil {
		return nil, toStatus(ctx, h.logger, actor, err)
	}
	return toDeposit(result), nil
}

func (h *DepositHandler) OverrideStatus(ctx context.Context, req *OverrideStatusRequest) (*Deposit, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	actor, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}
	depositID, err := parseID("deposit_id", req.DepositID)
	if err != nil {
		return nil, err
	}

	result, err := h.uc.OverrideStatus.Execute(ctx, dto.OverrideStatusRequest{
		Actor:     actor,
		DepositID: depositID,
		Status:    req.Status,
		Reason:    req.Reason,
	})
	if err != nil {
		return nil, toStatus(ctx, h.logger, actor, err)
	}
	return toDeposit(result), nil
}

func (h *DepositHandler) ActivateDeposit(ctx context.Context, req *ActivateDepositRequest) (*ActivationResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	actor, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}
	in := dto.ActivateDepositRequest{Actor: actor, InternalID: req.InternalID}
	if req.DepositID != "" {
		depositID, err := parseID("deposit_id", req.DepositID)
		if err != nil {
			return nil, err
		}
		in.DepositID = &depositID
	}

	result, err := h.uc.ActivateDeposit.Execute(ctx, in)
	if err != nil {
		return nil, toStatus(ctx, h.logger, actor, err)
	}
	return &ActivationResponse{
		DepositID:   result.DepositID.String(),
		InternalID:  result.InternalID,
		ActivatedBy: result.ActivatedBy.String(),
		ActivatedAt: formatTime(result.ActivatedAt),
		Deposit:     toDeposit(result.Deposit),
	}, nil
}

func (h *DepositHandler) UploadAttachment(ctx context.Context, req *UploadAttachmentRequest) (*Attachment, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	actor, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}
	depositID, err := parseID("deposit_id", req.DepositID)
	if err != nil {
		return nil, err
	}

	result, err := h.uc.UploadAttachment.Execute(ctx, dto.UploadAttachmentRequest{
		Actor:        actor,
		DepositID:    depositID,
		DocumentType: req.DocumentType,
		Filename:     req.Filename,
		Content:      req.Content,
	})
	if err != nil {
		return nil, toStatus(ctx, h.logger, actor, err)
	}
	return toAttachment(result), nil
}

func (h *DepositHandler) DeleteAttachment(ctx context.Context, req *DeleteAttachmentRequest) (*DeleteAttachmentResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	actor, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}
	depositID, err := parseID("deposit_id", req.DepositID)
	if err != nil {
		return nil, err
	}
	attachmentID, err := parseID("attachment_id", req.AttachmentID)
	if err != nil {
		return nil, err
	}

	err = h.uc.DeleteAttachment.Execute(ctx, dto.AttachmentRequest{
		Actor:        actor,
		DepositID:    depositID,
		AttachmentID: attachmentID,
	})
	if err != nil {
		return nil, toStatus(ctx, h.logger, actor, err)
	}
	return &DeleteAttachmentResponse{}, nil
}

func (h *DepositHandler) GetAttachmentLocks(ctx context.Context, req *GetAttachmentLocksRequest) (*AttachmentLocksResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	actor, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}
	depositID, err := parseID("deposit_id", req.DepositID)
	if err != nil {
		return nil, err
	}

	result, err := h.uc.GetAttachmentLocks.Execute(ctx, dto.DepositActionRequest{Actor: actor, DepositID: depositID})
	if err != nil {
		return nil, toStatus(ctx, h.logger, actor, err)
	}

	resp := &AttachmentLocksResponse{
		DepositID:            result.DepositID.String(),
		ReceiptLocked:        result.Receipt,
		SignedDocumentLocked: result.SignedDocument,
		Attachments:          make([]*Attachment, 0, len(result.Attachments)),
	}
	for _, a := range result.Attachments {
		resp.Attachments = append(resp.Attachments, toAttachment(a))
	}
	return resp, nil
}

func (h *DepositHandler) GetDocumentData(ctx context.Context, req *GetDocumentDataRequest) (*DocumentDataResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	actor, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}
	depositID, err := parseID("deposit_id", req.DepositID)
	if err != nil {
		return nil, err
	}

	result, err := h.uc.GetDocumentData.Execute(ctx, dto.GetDocumentDataRequest{
		Actor:     actor,
		DepositID: depositID,
		Kind:      req.Kind,
	})
	if err != nil {
		return nil, toStatus(ctx, h.logger, actor, err)
	}

	p := result.PaymentInstructions
	return &DocumentDataResponse{
		Kind:    result.Kind,
		Deposit: toDeposit(result.Deposit),
		PaymentInstructions: &PaymentInstructions{
			BankName:      p.BankName,
			AccountName:   p.AccountName,
			AccountNumber: p.AccountNumber,
			AccountType:   p.AccountType,
			Currency:      p.Currency,
			ReferenceNote: p.ReferenceNote,
		},
		GeneratedAt: formatTime(result.GeneratedAt),
	}, nil
}

func (h *DepositHandler) actor(ctx context.Context) (valueobject.Actor, error) {
	actor, err := identity.FromContext(ctx)
	if err != nil {
		return valueobject.Actor{}, status.Error(codes.Unauthenticated, "missing or invalid credentials")
	}
	return actor, nil
}

func parseID(field, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, status.Error(codes.InvalidArgument, fmt.Sprintf("invalid %s: %v", field, err))
	}
	return id, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, status.Error(codes.InvalidArgument, fmt.Sprintf("invalid amount: %q", s))
	}
	return amount, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toOffer(o dto.OfferDTO) *Offer {
	return &Offer{
		Days:          int32(o.Days),
		Type:          o.Type,
		Currency:      o.Currency,
		InitialAmount: o.InitialAmount.String(),
		OpenedAt:      formatTime(o.OpenedAt),
		DueDate:       formatTime(o.DueDate),
		AnnualRate:    o.AnnualRate.String(),
		MonthlyRate:   o.MonthlyRate.String(),
		PeriodRate:    o.PeriodRate.String(),
		Profit:        o.Profit.String(),
		FinalAmount:   o.FinalAmount.String(),
	}
}

func toDeposit(d dto.DepositResponse) *Deposit {
	return &Deposit{
		ID:            d.ID.String(),
		OwnerID:       d.OwnerID.String(),
		Type:          d.Type,
		Currency:      d.Currency,
		Days:          int32(d.Days),
		OpenedAt:      formatTime(d.OpenedAt),
		DueAt:         formatTime(d.DueAt),
		InitialAmount: d.InitialAmount.String(),
		FinalAmount:   d.FinalAmount.String(),
		Profit:        d.Profit.String(),
		AnnualRate:    d.AnnualRate.String(),
		MonthlyRate:   d.MonthlyRate.String(),
		PeriodRate:    d.PeriodRate.String(),
		Status:        d.Status,
		StoredStatus:  d.StoredStatus,
		InternalID:    d.InternalID,
		Period:        int32(d.Period),
		Version:       int32(d.Version),
		CreatedAt:     formatTime(d.CreatedAt),
		UpdatedAt:     formatTime(d.UpdatedAt),
	}
}

func toAttachment(a dto.AttachmentResponse) *Attachment {
	return &Attachment{
		ID:           a.ID.String(),
		DepositID:    a.DepositID.String(),
		DocumentType: a.DocumentType,
		Filename:     a.Filename,
		ContentType:  a.ContentType,
		ByteSize:     a.ByteSize,
		UploadedBy:   a.UploadedBy.String(),
		CreatedAt:    formatTime(a.CreatedAt),
	}
}
