package valueobject

import (
	"strings"

	"github.com/coopahorro/dap/internal/domain/apperror"
)

const mib = 1 << 20

// DocumentType identifies which supporting document an attachment holds.
// A deposit accepts at most one live attachment per type.
type DocumentType struct {
	value string
}

var (
	// DocumentTypeReceipt is the transfer receipt image.
	DocumentTypeReceipt = DocumentType{"receipt"}
	// DocumentTypeSignedDocument is the signed contract PDF.
	DocumentTypeSignedDocument = DocumentType{"signedDocument"}
)

type documentRules struct {
	maxBytes int64
	formats  []FileFormat
}

var documentTypeRules = map[DocumentType]documentRules{
	DocumentTypeReceipt:        {maxBytes: 5 * mib, formats: []FileFormat{FileFormatJPEG, FileFormatPNG}},
	DocumentTypeSignedDocument: {maxBytes: 10 * mib, formats: []FileFormat{FileFormatPDF}},
}

// ParseDocumentType accepts the canonical names case-insensitively, plus
// the snake_case spelling used by older clients.
func ParseDocumentType(s string) (DocumentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "receipt":
		return DocumentTypeReceipt, nil
	case "signeddocument", "signed_document":
		return DocumentTypeSignedDocument, nil
	default:
		return DocumentType{}, apperror.ErrInvalidInput.With("invalid document type: %q", s)
	}
}

// AllDocumentTypes lists the document types a deposit can carry.
func AllDocumentTypes() []DocumentType {
	return []DocumentType{DocumentTypeReceipt, DocumentTypeSignedDocument}
}

func (d DocumentType) String() string { return d.value }

// MaxBytes returns the size ceiling for files of this type.
func (d DocumentType) MaxBytes() int64 { return documentTypeRules[d].maxBytes }

// Accepts reports whether a file of format f may be stored under this type.
func (d DocumentType) Accepts(f FileFormat) bool {
	for _, allowed := range documentTypeRules[d].formats {
		if allowed == f {
			return true
		}
	}
	return false
}

func (d DocumentType) IsZero() bool { return d.value == "" }

// FileFormat is a content format detected from magic bytes.
type FileFormat struct {
	name      string
	extension string
	mimeType  string
}

var (
	FileFormatUnknown = FileFormat{}
	FileFormatJPEG    = FileFormat{"jpeg", ".jpg", "image/jpeg"}
	FileFormatPNG     = FileFormat{"png", ".png", "image/png"}
	FileFormatPDF     = FileFormat{"pdf", ".pdf", "application/pdf"}
)

// ParseFileFormat resolves a stored format name.
func ParseFileFormat(s string) (FileFormat, error) {
	for _, f := range []FileFormat{FileFormatJPEG, FileFormatPNG, FileFormatPDF} {
		if f.name == strings.ToLower(strings.TrimSpace(s)) {
			return f, nil
		}
	}
	return FileFormatUnknown, apperror.ErrInvalidInput.With("unknown file format: %q", s)
}

func (f FileFormat) String() string    { return f.name }
func (f FileFormat) Extension() string { return f.extension }
func (f FileFormat) MIMEType() string  { return f.mimeType }
