package valueobject

import (
	"strings"
	"unicode/utf8"

	"github.com/coopahorro/dap/internal/domain/apperror"
)

// MaxInternalIDLength bounds the identifiers issued by the core banking system.
const MaxInternalIDLength = 64

// NormalizeInternalID trims surrounding blanks and validates the result.
func NormalizeInternalID(s string) (string, error) {
	id := strings.TrimSpace(s)
	if id == "" {
		return "", apperror.ErrInvalidInput.With("internal id is required")
	}
	if utf8.RuneCountInString(id) > MaxInternalIDLength {
		return "", apperror.ErrInvalidInput.With("internal id must be at most %d characters", MaxInternalIDLength)
	}
	return id, nil
}
