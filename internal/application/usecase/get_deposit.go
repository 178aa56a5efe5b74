package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/coopahorro/dap/internal/application/dto"
	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/port"
	"github.com/coopahorro/dap/internal/domain/valueobject"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// GetDeposit reads a single deposit for its owner or staff.
type GetDeposit struct {
	depositRepo port.DepositRepository
	clock       port.Clock
}

func NewGetDeposit(depositRepo port.DepositRepository, clock port.Clock) *GetDeposit {
	return &GetDeposit{depositRepo: depositRepo, clock: clock}
}

func (uc *GetDeposit) Execute(ctx context.Context, req dto.GetDepositRequest) (dto.DepositResponse, error) {
	deposit, err := loadAccessibleDeposit(ctx, uc.depositRepo, req.Actor, req.DepositID)
	if err != nil {
		return dto.DepositResponse{}, err
	}
	return toDepositResponse(deposit, uc.clock.Now()), nil
}

// ListDeposits lists an owner's deposits in one of two views. The primary
// view hides annulled and cancelled deposits; the history view shows the
// cancelled ones.
type ListDeposits struct {
	depositRepo port.DepositRepository
	clock       port.Clock
}

func NewListDeposits(depositRepo port.DepositRepository, clock port.Clock) *ListDeposits {
	return &ListDeposits{depositRepo: depositRepo, clock: clock}
}

func (uc *ListDeposits) Execute(ctx context.Context, req dto.ListDepositsRequest) (dto.ListDepositsResponse, error) {
	ownerID := req.OwnerID
	if ownerID == uuid.Nil {
		ownerID = req.Actor.UserID
	}
	if ownerID != req.Actor.UserID && !req.Actor.IsStaff() {
		return dto.ListDepositsResponse{}, apperror.ErrForbidden.With("cannot list another client's deposits")
	}

	statuses, err := viewStatuses(req.View)
	if err != nil {
		return dto.ListDepositsResponse{}, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	deposits, err := uc.depositRepo.ListByOwner(ctx, port.DepositFilter{
		OwnerID:  ownerID,
		Statuses: statuses,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return dto.ListDepositsResponse{}, fmt.Errorf("failed to list deposits: %w", err)
	}

	now := uc.clock.Now()
	resp := dto.ListDepositsResponse{Deposits: make([]dto.DepositResponse, 0, len(deposits))}
	for _, d := range deposits {
		resp.Deposits = append(resp.Deposits, toDepositResponse(d, now))
	}
	return resp, nil
}

func viewStatuses(view string) ([]valueobject.DepositStatus, error) {
	switch strings.ToLower(strings.TrimSpace(view)) {
	case "", dto.ViewPrimary:
		return []valueobject.DepositStatus{
			valueobject.DepositStatusPending,
			valueobject.DepositStatusActive,
			valueobject.DepositStatusExpired,
			valueobject.DepositStatusExpiredPending,
			valueobject.DepositStatusPaid,
		}, nil
	case dto.ViewHistory:
		return []valueobject.DepositStatus{valueobject.DepositStatusCancelled}, nil
	default:
		return nil, apperror.ErrInvalidInput.With("unknown list view %q", view)
	}
}
