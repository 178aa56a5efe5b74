// Package memory keeps deposits, attachments and activations in process
// memory. It backs STORAGE_BACKEND=memory for local runs without PostgreSQL
// and gives API tests real repository semantics. Everything is lost on exit.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/model"
	"github.com/coopahorro/dap/internal/domain/port"
	"github.com/coopahorro/dap/internal/domain/valueobject"
	"github.com/coopahorro/dap/pkg/events"
)

type attachmentKey struct {
	depositID uuid.UUID
	docType   valueobject.DocumentType
}

// Store is a thread-safe in-memory store. One mutex guards every table so
// multi-aggregate writes (activation) are atomic like a database transaction.
type Store struct {
	mu          sync.RWMutex
	deposits    map[uuid.UUID]model.DepositRecord
	attachments map[uuid.UUID]model.AttachmentRecord
	docIndex    map[attachmentKey]uuid.UUID
	removing    map[uuid.UUID]bool
	byInternal  map[string]model.ActivationRecord
	byDeposit   map[uuid.UUID]model.ActivationRecord
	outbox      []events.OutboxEntry
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		deposits:    make(map[uuid.UUID]model.DepositRecord),
		attachments: make(map[uuid.UUID]model.AttachmentRecord),
		docIndex:    make(map[attachmentKey]uuid.UUID),
		removing:    make(map[uuid.UUID]bool),
		byInternal:  make(map[string]model.ActivationRecord),
		byDeposit:   make(map[uuid.UUID]model.ActivationRecord),
	}
}

// Deposits returns the deposit repository view of the store.
func (s *Store) Deposits() *DepositRepo { return &DepositRepo{s: s} }

// Attachments returns the attachment repository view of the store.
func (s *Store) Attachments() *AttachmentRepo { return &AttachmentRepo{s: s} }

// Activations returns the activation repository view of the store.
func (s *Store) Activations() *ActivationRepo { return &ActivationRepo{s: s} }

// Outbox returns the outbox view of the store.
func (s *Store) Outbox() *OutboxRepo { return &OutboxRepo{s: s} }

func (s *Store) appendEvents(evts []events.DomainEvent) {
	for _, e := range evts {
		s.outbox = append(s.outbox, events.NewOutboxEntry(e))
	}
}

func (s *Store) saveDepositLocked(d model.Deposit) error {
	rec := d.Record()
	stored, exists := s.deposits[rec.ID]
	switch {
	case !exists && rec.Version != 1:
		return apperror.ErrDepositNotFound.With("deposit %s not found", rec.ID)
	case exists && stored.Version != rec.Version-1:
		return apperror.ErrStaleVersion
	}
	if rec.InternalID != "" {
		for id, other := range s.deposits {
			if id != rec.ID && other.InternalID == rec.InternalID {
				return apperror.ErrInternalIDAlreadyUsed.WithDetail("bound to deposit %s", id)
			}
		}
	}
	s.deposits[rec.ID] = rec
	s.appendEvents(d.DomainEvents())
	return nil
}

// DepositRepo implements port.DepositRepository.
type DepositRepo struct{ s *Store }

var _ port.DepositRepository = (*DepositRepo)(nil)

func (r *DepositRepo) Save(_ context.Context, d model.Deposit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.saveDepositLocked(d)
}

func (r *DepositRepo) FindByID(_ context.Context, id uuid.UUID) (model.Deposit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.deposits[id]
	if !ok {
		return model.Deposit{}, apperror.ErrDepositNotFound.With("deposit %s not found", id)
	}
	return model.ReconstructDeposit(rec), nil
}

func (r *DepositRepo) ListByOwner(_ context.Context, f port.DepositFilter) ([]model.Deposit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	allowed := make(map[valueobject.DepositStatus]bool, len(f.Statuses))
	for _, st := range f.Statuses {
		allowed[st] = true
	}
	var out []model.Deposit
	for _, rec := range r.s.deposits {
		if rec.OwnerID != f.OwnerID || (len(allowed) > 0 && !allowed[rec.Status]) {
			continue
		}
		out = append(out, model.ReconstructDeposit(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().After(out[j].CreatedAt()) })

	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// AttachmentRepo implements port.AttachmentRepository. Create and Remove
// claim their slot under the store lock and release it while the blob
// callback runs, so slow blob I/O never blocks other readers or writers.
// A callback failure undoes the claim and leaves no trace.
type AttachmentRepo struct{ s *Store }

var _ port.AttachmentRepository = (*AttachmentRepo)(nil)

func (r *AttachmentRepo) Create(ctx context.Context, a model.Attachment, store func(ctx context.Context) error) error {
	key := attachmentKey{a.DepositID(), a.DocumentType()}

	r.s.mu.Lock()
	if _, taken := r.s.docIndex[key]; taken {
		r.s.mu.Unlock()
		return apperror.ErrAlreadyUploaded
	}
	r.s.docIndex[key] = a.ID()
	r.s.mu.Unlock()

	err := store(ctx)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err != nil {
		delete(r.s.docIndex, key)
		return err
	}
	r.s.attachments[a.ID()] = a.Record()
	r.s.appendEvents(a.DomainEvents())
	return nil
}

// Remove keeps the record readable until finalize succeeds. A concurrent
// Remove of the same attachment reports it as not found.
func (r *AttachmentRepo) Remove(ctx context.Context, a model.Attachment, finalize func(ctx context.Context) error) error {
	r.s.mu.Lock()
	if _, ok := r.s.attachments[a.ID()]; !ok || r.s.removing[a.ID()] {
		r.s.mu.Unlock()
		return apperror.ErrAttachmentNotFound
	}
	r.s.removing[a.ID()] = true
	r.s.mu.Unlock()

	err := finalize(ctx)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.removing, a.ID())
	if err != nil {
		return err
	}
	delete(r.s.attachments, a.ID())
	delete(r.s.docIndex, attachmentKey{a.DepositID(), a.DocumentType()})
	r.s.appendEvents(a.DomainEvents())
	return nil
}

func (r *AttachmentRepo) FindByID(_ context.Context, depositID, attachmentID uuid.UUID) (model.Attachment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.attachments[attachmentID]
	if !ok || rec.DepositID != depositID {
		return model.Attachment{}, apperror.ErrAttachmentNotFound
	}
	return model.ReconstructAttachment(rec), nil
}

func (r *AttachmentRepo) ListByDeposit(_ context.Context, depositID uuid.UUID) ([]model.Attachment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Attachment
	for _, rec := range r.s.attachments {
		if rec.DepositID == depositID {
			out = append(out, model.ReconstructAttachment(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().Before(out[j].CreatedAt()) })
	return out, nil
}

// ActivationRepo implements port.ActivationRepository.
type ActivationRepo struct{ s *Store }

var _ port.ActivationRepository = (*ActivationRepo)(nil)

func (r *ActivationRepo) FindByInternalID(_ context.Context, internalID string) (model.ActivationRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.byInternal[internalID]
	if !ok {
		return model.ActivationRecord{}, apperror.ErrActivationNotFound
	}
	return rec, nil
}

func (r *ActivationRepo) FindByDepositID(_ context.Context, depositID uuid.UUID) (model.ActivationRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.byDeposit[depositID]
	if !ok {
		return model.ActivationRecord{}, apperror.ErrActivationNotFound
	}
	return rec, nil
}

func (r *ActivationRepo) Activate(_ context.Context, rec model.ActivationRecord, d model.Deposit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.byInternal[rec.InternalID()]; ok {
		return apperror.ErrInternalIDAlreadyUsed.WithDetail("bound to deposit %s", existing.DepositID())
	}
	if _, ok := r.s.byDeposit[rec.DepositID()]; ok {
		return apperror.ErrDepositAlreadyActivated
	}
	if err := r.s.saveDepositLocked(d); err != nil {
		return err
	}
	r.s.byInternal[rec.InternalID()] = rec
	r.s.byDeposit[rec.DepositID()] = rec
	return nil
}

// OutboxRepo implements events.OutboxRepository over the store's event log.
type OutboxRepo struct{ s *Store }

var _ events.OutboxRepository = (*OutboxRepo)(nil)

func (r *OutboxRepo) FetchUnpublished(_ context.Context, batchSize int) ([]events.OutboxEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []events.OutboxEntry
	for _, e := range r.s.outbox {
		if e.PublishedAt != nil {
			continue
		}
		out = append(out, e)
		if len(out) == batchSize {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepo) MarkPublished(_ context.Context, ids []uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	pending := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		pending[id] = true
	}
	for i := range r.s.outbox {
		if pending[r.s.outbox[i].ID] {
			published := at
			r.s.outbox[i].PublishedAt = &published
		}
	}
	return nil
}
