package valueobject

import (
	"strings"

	"github.com/coopahorro/dap/internal/domain/apperror"
)

// DepositStatus represents the lifecycle state of a deposit.
type DepositStatus struct {
	value string
}

var (
	DepositStatusPending        = DepositStatus{"PENDING"}
	DepositStatusActive         = DepositStatus{"ACTIVE"}
	DepositStatusExpired        = DepositStatus{"EXPIRED"}
	DepositStatusExpiredPending = DepositStatus{"EXPIRED_PENDING"}
	DepositStatusPaid           = DepositStatus{"PAID"}
	DepositStatusCancelled      = DepositStatus{"CANCELLED"}
	DepositStatusAnnulled       = DepositStatus{"ANNULLED"}
)

var validDepositStatuses = map[string]DepositStatus{
	"PENDING":         DepositStatusPending,
	"ACTIVE":          DepositStatusActive,
	"EXPIRED":         DepositStatusExpired,
	"EXPIRED_PENDING": DepositStatusExpiredPending,
	"PAID":            DepositStatusPaid,
	"CANCELLED":       DepositStatusCancelled,
	"ANNULLED":        DepositStatusAnnulled,
}

// ParseDepositStatus canonicalises s (case-insensitive, surrounding blanks
// ignored) to one of the enumerated statuses.
func ParseDepositStatus(s string) (DepositStatus, error) {
	if status, ok := validDepositStatuses[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return status, nil
	}
	return DepositStatus{}, apperror.ErrInvalidInput.With("invalid deposit status: %q", s)
}

// AllDepositStatuses lists every status in lifecycle order.
func AllDepositStatuses() []DepositStatus {
	return []DepositStatus{
		DepositStatusPending,
		DepositStatusActive,
		DepositStatusExpired,
		DepositStatusExpiredPending,
		DepositStatusPaid,
		DepositStatusCancelled,
		DepositStatusAnnulled,
	}
}

// String returns the canonical representation of the status.
func (s DepositStatus) String() string {
	return s.value
}

// IsTerminal returns true for PAID, CANCELLED and ANNULLED. No transition
// leaves a terminal status.
func (s DepositStatus) IsTerminal() bool {
	return s == DepositStatusPaid || s == DepositStatusCancelled || s == DepositStatusAnnulled
}

// IsZero returns true if the status is uninitialized.
func (s DepositStatus) IsZero() bool {
	return s.value == ""
}
