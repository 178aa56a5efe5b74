package model

import (
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/event"
	"github.com/coopahorro/dap/internal/domain/valueobject"
	"github.com/coopahorro/dap/pkg/events"
)

const maxFilenameLength = 200

// Attachment is a supporting document stored for a deposit. At most one live
// attachment exists per deposit and document type.
type Attachment struct {
	createdAt    time.Time
	documentType valueobject.DocumentType
	format       valueobject.FileFormat
	filename     string
	storagePath  string
	domainEvents []events.DomainEvent
	byteSize     int64
	id           uuid.UUID
	depositID    uuid.UUID
	uploadedBy   uuid.UUID
}

// AttachmentRecord is the persisted shape of an Attachment.
type AttachmentRecord struct {
	ID           uuid.UUID
	DepositID    uuid.UUID
	DocumentType valueobject.DocumentType
	Format       valueobject.FileFormat
	Filename     string
	StoragePath  string
	ByteSize     int64
	UploadedBy   uuid.UUID
	CreatedAt    time.Time
}

// NewAttachment creates an attachment for already validated content of the
// given format. The storage path is fixed here and never changes.
func NewAttachment(
	depositID uuid.UUID,
	documentType valueobject.DocumentType,
	format valueobject.FileFormat,
	filename string,
	byteSize int64,
	uploadedBy uuid.UUID,
	now time.Time,
) (Attachment, error) {
	if depositID == uuid.Nil {
		return Attachment{}, apperror.ErrInvalidInput.With("deposit ID is required")
	}
	if uploadedBy == uuid.Nil {
		return Attachment{}, apperror.ErrInvalidInput.With("uploader is required")
	}
	if documentType.IsZero() {
		return Attachment{}, apperror.ErrInvalidInput.With("document type is required")
	}
	if !documentType.Accepts(format) {
		return Attachment{}, apperror.ErrInvalidFormat.With("%s does not accept %s files", documentType, format)
	}
	if byteSize <= 0 {
		return Attachment{}, apperror.ErrInvalidFormat.With("file is empty")
	}

	now = now.UTC()
	id := uuid.New()
	name := sanitizeFilename(filename, documentType, format)

	a := Attachment{
		id:           id,
		depositID:    depositID,
		documentType: documentType,
		format:       format,
		filename:     name,
		storagePath:  StoragePath(depositID, documentType, id, format),
		byteSize:     byteSize,
		uploadedBy:   uploadedBy,
		createdAt:    now,
	}
	a.domainEvents = append(a.domainEvents, event.NewAttachmentUploaded(
		depositID, id, documentType.String(), name, byteSize, uploadedBy, now,
	))
	return a, nil
}

// ReconstructAttachment recreates an Attachment from persistence.
func ReconstructAttachment(r AttachmentRecord) Attachment {
	return Attachment{
		id:           r.ID,
		depositID:    r.DepositID,
		documentType: r.DocumentType,
		format:       r.Format,
		filename:     r.Filename,
		storagePath:  r.StoragePath,
		byteSize:     r.ByteSize,
		uploadedBy:   r.UploadedBy,
		createdAt:    r.CreatedAt,
	}
}

// StoragePath lays blobs out per deposit and document type.
func StoragePath(depositID uuid.UUID, documentType valueobject.DocumentType, attachmentID uuid.UUID, format valueobject.FileFormat) string {
	return path.Join("deposits", depositID.String(), documentType.String(), attachmentID.String()+format.Extension())
}

// Delete records the removal of the attachment by actor. Only the uploader
// and staff may delete.
func (a Attachment) Delete(actor valueobject.Actor, now time.Time) (Attachment, error) {
	if !actor.IsStaff() && actor.UserID != a.uploadedBy {
		return Attachment{}, apperror.ErrForbidden.With("only the uploader or staff can delete an attachment")
	}
	deleted := a
	deleted.domainEvents = append(copyEvents(a.domainEvents),
		event.NewAttachmentDeleted(a.depositID, a.id, a.documentType.String(), actor.UserID, now.UTC()),
	)
	return deleted, nil
}

// Record returns the persisted shape of the attachment.
func (a Attachment) Record() AttachmentRecord {
	return AttachmentRecord{
		ID:           a.id,
		DepositID:    a.depositID,
		DocumentType: a.documentType,
		Format:       a.format,
		Filename:     a.filename,
		StoragePath:  a.storagePath,
		ByteSize:     a.byteSize,
		UploadedBy:   a.uploadedBy,
		CreatedAt:    a.createdAt,
	}
}

func (a Attachment) ID() uuid.UUID                          { return a.id }
func (a Attachment) DepositID() uuid.UUID                   { return a.depositID }
func (a Attachment) DocumentType() valueobject.DocumentType { return a.documentType }
func (a Attachment) Format() valueobject.FileFormat         { return a.format }
func (a Attachment) Filename() string                       { return a.filename }
func (a Attachment) StoragePath() string                    { return a.storagePath }
func (a Attachment) ByteSize() int64                        { return a.byteSize }
func (a Attachment) UploadedBy() uuid.UUID                  { return a.uploadedBy }
func (a Attachment) CreatedAt() time.Time                   { return a.createdAt }
func (a Attachment) DomainEvents() []events.DomainEvent     { return a.domainEvents }

// AttachmentLocks tells which document types can no longer be uploaded.
type AttachmentLocks struct {
	Receipt        bool
	SignedDocument bool
}

// DeriveLocks computes the lock view from the live attachments of a deposit.
// There is no stored lock flag.
func DeriveLocks(live []Attachment) AttachmentLocks {
	var locks AttachmentLocks
	for _, a := range live {
		switch a.documentType {
		case valueobject.DocumentTypeReceipt:
			locks.Receipt = true
		case valueobject.DocumentTypeSignedDocument:
			locks.SignedDocument = true
		}
	}
	return locks
}

// Locked reports the lock state of documentType.
func (l AttachmentLocks) Locked(documentType valueobject.DocumentType) bool {
	switch documentType {
	case valueobject.DocumentTypeReceipt:
		return l.Receipt
	case valueobject.DocumentTypeSignedDocument:
		return l.SignedDocument
	default:
		return false
	}
}

// sanitizeFilename keeps the base name of a client-supplied filename and
// strips control characters. The extension always follows the sniffed format.
func sanitizeFilename(name string, documentType valueobject.DocumentType, format valueobject.FileFormat) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == '/' {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" || name == "." || name == ".." {
		name = documentType.String()
	}
	if r := []rune(name); len(r) > maxFilenameLength {
		name = string(r[:maxFilenameLength])
	}
	return name + format.Extension()
}
