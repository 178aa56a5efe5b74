package usecase

import (
	"context"
	"strings"

	"github.com/coopahorro/dap/internal/application/dto"
	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/port"
	"github.com/coopahorro/dap/internal/domain/valueobject"
)

// GetDocumentData supplies the read-only snapshot for the "solicitud" and
// "instructivo" documents. Rendering happens elsewhere.
type GetDocumentData struct {
	depositRepo  port.DepositRepository
	clock        port.Clock
	instructions valueobject.PaymentInstructions
}

func NewGetDocumentData(depositRepo port.DepositRepository, clock port.Clock, instructions valueobject.PaymentInstructions) *GetDocumentData {
	return &GetDocumentData{depositRepo: depositRepo, clock: clock, instructions: instructions}
}

func (uc *GetDocumentData) Execute(ctx context.Context, req dto.GetDocumentDataRequest) (dto.DocumentDataResponse, error) {
	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	if kind != dto.DocumentSolicitud && kind != dto.DocumentInstructivo {
		return dto.DocumentDataResponse{}, apperror.ErrInvalidInput.With("unknown document kind %q", req.Kind)
	}

	deposit, err := loadAccessibleDeposit(ctx, uc.depositRepo, req.Actor, req.DepositID)
	if err != nil {
		return dto.DocumentDataResponse{}, err
	}

	now := uc.clock.Now()
	return dto.DocumentDataResponse{
		Kind:    kind,
		Deposit: toDepositResponse(deposit, now),
		PaymentInstructions: dto.PaymentInstructionsDTO{
			BankName:      uc.instructions.BankName,
			AccountName:   uc.instructions.AccountName,
			AccountNumber: uc.instructions.AccountNumber,
			AccountType:   uc.instructions.AccountType,
			Currency:      uc.instructions.Currency,
			ReferenceNote: uc.instructions.ReferenceNote,
		},
		GeneratedAt: now,
	}, nil
}
