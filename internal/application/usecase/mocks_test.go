package usecase_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/model"
	"github.com/coopahorro/dap/internal/domain/port"
	"github.com/coopahorro/dap/internal/domain/service"
	"github.com/coopahorro/dap/internal/domain/valueobject"
	"github.com/coopahorro/dap/internal/infrastructure/lock"
	"github.com/coopahorro/dap/pkg/events"
)

var baseTime = time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- clock ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: baseTime} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// --- deposit repository ---

type memDepositRepo struct {
	mu       sync.Mutex
	deposits map[uuid.UUID]model.DepositRecord
	events   []events.DomainEvent
	saveErr  error
}

func newMemDepositRepo() *memDepositRepo {
	return &memDepositRepo{deposits: make(map[uuid.UUID]model.DepositRecord)}
}

func (r *memDepositRepo) saveLocked(d model.Deposit) error {
	rec := d.Record()
	if stored, ok := r.deposits[rec.ID]; ok {
		if stored.Version != rec.Version-1 {
			return apperror.ErrStaleVersion
		}
	} else if rec.Version != 1 {
		return apperror.ErrDepositNotFound
	}
	r.deposits[rec.ID] = rec
	r.events = append(r.events, d.DomainEvents()...)
	return nil
}

func (r *memDepositRepo) Save(_ context.Context, d model.Deposit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	return r.saveLocked(d)
}

func (r *memDepositRepo) FindByID(_ context.Context, id uuid.UUID) (model.Deposit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.deposits[id]
	if !ok {
		return model.Deposit{}, apperror.ErrDepositNotFound
	}
	return model.ReconstructDeposit(rec), nil
}

func (r *memDepositRepo) ListByOwner(_ context.Context, f port.DepositFilter) ([]model.Deposit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	allowed := make(map[valueobject.DepositStatus]bool)
	for _, s := range f.Statuses {
		allowed[s] = true
	}
	var out []model.Deposit
	for _, rec := range r.deposits {
		if rec.OwnerID != f.OwnerID {
			continue
		}
		if len(allowed) > 0 && !allowed[rec.Status] {
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

// put stores a deposit directly, bypassing version checks.
func (r *memDepositRepo) put(d model.Deposit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deposits[d.ID()] = d.Record()
}

func (r *memDepositRepo) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType())
	}
	return out
}

// --- attachment repository ---

type attachmentKey struct {
	depositID uuid.UUID
	docType   valueobject.DocumentType
}

type memAttachmentRepo struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]model.AttachmentRecord
	byType map[attachmentKey]uuid.UUID
	events []events.DomainEvent
	// commitErr fails Create after store has run.
	commitErr error
	// removeCommitErr fails Remove after finalize has run.
	removeCommitErr error
}

func newMemAttachmentRepo() *memAttachmentRepo {
	return &memAttachmentRepo{
		byID:   make(map[uuid.UUID]model.AttachmentRecord),
		byType: make(map[attachmentKey]uuid.UUID),
	}
}

func (r *memAttachmentRepo) Create(ctx context.Context, a model.Attachment, store func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := attachmentKey{a.DepositID(), a.DocumentType()}
	if _, ok := r.byType[key]; ok {
		return apperror.ErrAlreadyUploaded
	}
	if err := store(ctx); err != nil {
		return err
	}
	if r.commitErr != nil {
		return r.commitErr
	}
	r.byID[a.ID()] = a.Record()
	r.byType[key] = a.ID()
	r.events = append(r.events, a.DomainEvents()...)
	return nil
}

func (r *memAttachmentRepo) Remove(ctx context.Context, a model.Attachment, finalize func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[a.ID()]; !ok {
		return apperror.ErrAttachmentNotFound
	}
	if err := finalize(ctx); err != nil {
		return err
	}
	if r.removeCommitErr != nil {
		return r.removeCommitErr
	}
	delete(r.byID, a.ID())
	delete(r.byType, attachmentKey{a.DepositID(), a.DocumentType()})
	r.events = append(r.events, a.DomainEvents()...)
	return nil
}

func (r *memAttachmentRepo) FindByID(_ context.Context, depositID, attachmentID uuid.UUID) (model.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[attachmentID]
	if !ok || rec.DepositID != depositID {
		return model.Attachment{}, apperror.ErrAttachmentNotFound
	}
	return model.ReconstructAttachment(rec), nil
}

func (r *memAttachmentRepo) ListByDeposit(_ context.Context, depositID uuid.UUID) ([]model.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Attachment
	for _, rec := range r.byID {
		if rec.DepositID == depositID {
			out = append(out, model.ReconstructAttachment(rec))
		}
	}
	return out, nil
}

func (r *memAttachmentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// --- activation repository ---

type memActivationRepo struct {
	mu         sync.Mutex
	byInternal map[string]model.ActivationRecord
	byDeposit  map[uuid.UUID]model.ActivationRecord
	deposits   *memDepositRepo
}

func newMemActivationRepo(deposits *memDepositRepo) *memActivationRepo {
	return &memActivationRepo{
		byInternal: make(map[string]model.ActivationRecord),
		byDeposit:  make(map[uuid.UUID]model.ActivationRecord),
		deposits:   deposits,
	}
}

func (r *memActivationRepo) FindByInternalID(_ context.Context, internalID string) (model.ActivationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byInternal[internalID]
	if !ok {
		return model.ActivationRecord{}, apperror.ErrActivationNotFound
	}
	return rec, nil
}

func (r *memActivationRepo) FindByDepositID(_ context.Context, depositID uuid.UUID) (model.ActivationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byDeposit[depositID]
	if !ok {
		return model.ActivationRecord{}, apperror.ErrActivationNotFound
	}
	return rec, nil
}

func (r *memActivationRepo) Activate(_ context.Context, rec model.ActivationRecord, d model.Deposit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byInternal[rec.InternalID()]; ok {
		return apperror.ErrInternalIDAlreadyUsed.WithDetail("bound to deposit %s", existing.DepositID())
	}
	if _, ok := r.byDeposit[rec.DepositID()]; ok {
		return apperror.ErrDepositAlreadyActivated
	}
	r.deposits.mu.Lock()
	err := r.deposits.saveLocked(d)
	r.deposits.mu.Unlock()
	if err != nil {
		return err
	}
	r.byInternal[rec.InternalID()] = rec
	r.byDeposit[rec.DepositID()] = rec
	return nil
}

func (r *memActivationRepo) countFor(internalID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byInternal[internalID]; ok {
		return 1
	}
	return 0
}

// --- blob store ---

type memBlobStore struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	putErr    error
	deleteErr error
	putDelay  time.Duration
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{blobs: make(map[string][]byte)}
}

func (s *memBlobStore) Put(ctx context.Context, p string, content []byte) error {
	if s.putDelay > 0 {
		select {
		case <-time.After(s.putDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.blobs[p] = append([]byte(nil), content...)
	return nil
}

func (s *memBlobStore) Get(_ context.Context, p string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[p]
	if !ok {
		return nil, apperror.ErrBlobNotFound
	}
	return b, nil
}

func (s *memBlobStore) Delete(_ context.Context, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.blobs[p]; !ok {
		return apperror.ErrBlobNotFound
	}
	delete(s.blobs, p)
	return nil
}

func (s *memBlobStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

var errBlobUnavailable = errors.New("blob backend unavailable")

// --- fixtures ---

func mustTier(t *testing.T, minDays, maxDays, bps int) valueobject.InterestTier {
	t.Helper()
	tier, err := valueobject.NewInterestTier(minDays, maxDays, bps)
	require.NoError(t, err)
	return tier
}

func testTable(t *testing.T) valueobject.TierTable {
	t.Helper()
	table, err := valueobject.NewTierTable([]valueobject.InterestTier{
		mustTier(t, 30, 90, 40),
		mustTier(t, 91, 180, 300),
		mustTier(t, 181, 365, 450),
		mustTier(t, 366, valueobject.MaxTermDays, 550),
	})
	require.NoError(t, err)
	return table
}

func testEngine() *service.SimulationEngine {
	return service.NewSimulationEngine(service.NewInterestCalculator())
}

func client() valueobject.Actor {
	return valueobject.Actor{UserID: uuid.New(), Role: valueobject.RoleClient}
}

func staff() valueobject.Actor {
	return valueobject.Actor{UserID: uuid.New(), Role: valueobject.RoleStaff}
}

// seedDeposit stores a PENDING deposit owned by owner.
func seedDeposit(t *testing.T, repo *memDepositRepo, owner uuid.UUID, depositType valueobject.DepositType) model.Deposit {
	t.Helper()
	offer, err := testEngine().Offer(testTable(t), depositType, "UYU", 30, decimal.NewFromInt(100000), baseTime)
	require.NoError(t, err)
	d, err := model.NewDeposit(owner, offer, baseTime)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), d))
	return d
}

// seedActive stores an ACTIVE deposit owned by owner.
func seedActive(t *testing.T, repo *memDepositRepo, owner uuid.UUID, depositType valueobject.DepositType, internalID string) model.Deposit {
	t.Helper()
	d := seedDeposit(t, repo, owner, depositType)
	active, err := d.Activate(internalID, uuid.New(), baseTime)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), active))
	return active
}

type harness struct {
	clock       *fakeClock
	deposits    *memDepositRepo
	attachments *memAttachmentRepo
	activations *memActivationRepo
	blobs       *memBlobStore
	locker      *lock.KeyedLocker
}

func newHarness() *harness {
	deposits := newMemDepositRepo()
	return &harness{
		clock:       newFakeClock(),
		deposits:    deposits,
		attachments: newMemAttachmentRepo(),
		activations: newMemActivationRepo(deposits),
		blobs:       newMemBlobStore(),
		locker:      lock.NewKeyedLocker(),
	}
}
