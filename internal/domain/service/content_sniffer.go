package service

import (
	"bytes"

	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/valueobject"
)

var (
	magicJPEG = []byte{0xFF, 0xD8}
	magicPNG  = []byte{0x89, 0x50, 0x4E, 0x47}
	magicPDF  = []byte("%PDF")
)

// DetectFormat identifies a file from its leading bytes. Names and
// caller-declared MIME types are never consulted.
func DetectFormat(content []byte) valueobject.FileFormat {
	switch {
	case bytes.HasPrefix(content, magicJPEG):
		return valueobject.FileFormatJPEG
	case bytes.HasPrefix(content, magicPNG):
		return valueobject.FileFormatPNG
	case bytes.HasPrefix(content, magicPDF):
		return valueobject.FileFormatPDF
	default:
		return valueobject.FileFormatUnknown
	}
}

// ValidateDocument checks content against the size ceiling and accepted
// formats of docType and returns the detected format.
func ValidateDocument(docType valueobject.DocumentType, content []byte) (valueobject.FileFormat, error) {
	if docType.IsZero() {
		return valueobject.FileFormatUnknown, apperror.ErrInvalidInput.With("document type is required")
	}
	if int64(len(content)) > docType.MaxBytes() {
		return valueobject.FileFormatUnknown, apperror.ErrPayloadTooLarge.With(
			"%s exceeds the %d byte limit", docType, docType.MaxBytes())
	}
	if len(content) == 0 {
		return valueobject.FileFormatUnknown, apperror.ErrInvalidFormat.With("file is empty")
	}

	format := DetectFormat(content)
	if !docType.Accepts(format) {
		return valueobject.FileFormatUnknown, apperror.ErrInvalidFormat.With(
			"content is not an accepted format for %s", docType)
	}
	return format, nil
}
