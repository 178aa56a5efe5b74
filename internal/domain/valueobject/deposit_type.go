package valueobject

import (
	"strings"

	"github.com/coopahorro/dap/internal/domain/apperror"
)

// DepositType distinguishes deposits that restart automatically at maturity
// from those that wait for the client to collect.
type DepositType struct {
	value string
}

var (
	DepositTypeFixed     = DepositType{"FIXED"}
	DepositTypeRenewable = DepositType{"RENEWABLE"}
)

// ParseDepositType canonicalises s case-insensitively.
func ParseDepositType(s string) (DepositType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FIXED":
		return DepositTypeFixed, nil
	case "RENEWABLE":
		return DepositTypeRenewable, nil
	default:
		return DepositType{}, apperror.ErrInvalidInput.With("invalid deposit type: %q", s)
	}
}

func (t DepositType) String() string { return t.value }

// IsRenewable reports whether uncollected deposits of this type restart for
// the same term.
func (t DepositType) IsRenewable() bool { return t == DepositTypeRenewable }

func (t DepositType) IsZero() bool { return t.value == "" }
