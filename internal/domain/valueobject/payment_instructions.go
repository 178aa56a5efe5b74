package valueobject

import (
	"strings"

	"github.com/coopahorro/dap/internal/domain/apperror"
)

// PaymentInstructions tells clients where to transfer the deposit amount.
// It is printed on the "instructivo" document.
type PaymentInstructions struct {
	BankName      string
	AccountName   string
	AccountNumber string
	AccountType   string
	Currency      string
	ReferenceNote string
}

// Validate checks that every field a client needs to make the transfer is present.
func (p PaymentInstructions) Validate() error {
	var missing []string
	if strings.TrimSpace(p.BankName) == "" {
		missing = append(missing, "bank name")
	}
	if strings.TrimSpace(p.AccountName) == "" {
		missing = append(missing, "account name")
	}
	if strings.TrimSpace(p.AccountNumber) == "" {
		missing = append(missing, "account number")
	}
	if strings.TrimSpace(p.AccountType) == "" {
		missing = append(missing, "account type")
	}
	if len(strings.TrimSpace(p.Currency)) != 3 {
		missing = append(missing, "currency")
	}
	if len(missing) > 0 {
		return apperror.ErrInvalidInput.With("payment instructions incomplete: %s", strings.Join(missing, ", "))
	}
	return nil
}
