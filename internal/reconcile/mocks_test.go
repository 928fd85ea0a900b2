package reconcile

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/crypto/bcrypt"

	"practice_system/internal/domain"
)

// Compile-time check to ensure MemoryAccountStore implements AccountStore
var _ AccountStore = (*MemoryAccountStore)(nil)

// MemoryAccountStore is a map-backed AccountStore test double. Func
// fields override individual operations; unset fields fall through to
// the in-memory map, which enforces email uniqueness like the real
// store's index.
type MemoryAccountStore struct {
	FindByIDFunc      func(ctx context.Context, id string) (*domain.Account, error)
	FindByEmailFunc   func(ctx context.Context, email string) (*domain.Account, error)
	SaveFunc          func(ctx context.Context, account *domain.Account) error
	UpsertByEmailFunc func(ctx context.Context, payload *domain.Account) error

	SaveCallCount   int32
	UpsertCallCount int32

	mu       sync.Mutex
	accounts map[string]*domain.Account // keyed by id
	nextID   int32
}

func NewMemoryAccountStore(seed ...*domain.Account) *MemoryAccountStore {
	s := &MemoryAccountStore{accounts: make(map[string]*domain.Account)}
	for _, a := range seed {
		cp := *a
		s.accounts[cp.ID] = &cp
	}
	return s
}

func (s *MemoryAccountStore) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	if s.FindByIDFunc != nil {
		return s.FindByIDFunc(ctx, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryAccountStore) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	if s.FindByEmailFunc != nil {
		return s.FindByEmailFunc(ctx, email)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryAccountStore) Save(ctx context.Context, account *domain.Account) error {
	atomic.AddInt32(&s.SaveCallCount, 1)
	if s.SaveFunc != nil {
		return s.SaveFunc(ctx, account)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *account
	s.accounts[cp.ID] = &cp
	return nil
}

func (s *MemoryAccountStore) UpsertByEmail(ctx context.Context, payload *domain.Account) error {
	atomic.AddInt32(&s.UpsertCallCount, 1)
	if s.UpsertByEmailFunc != nil {
		return s.UpsertByEmailFunc(ctx, payload)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == payload.Email {
			payload.ID = a.ID
			cp := *payload
			s.accounts[a.ID] = &cp
			return nil
		}
	}
	if payload.ID == "" {
		payload.ID = "mem-" + strconv.Itoa(int(atomic.AddInt32(&s.nextID, 1)))
	}
	cp := *payload
	s.accounts[cp.ID] = &cp
	return nil
}

// AccountByEmail is a test helper for asserting on stored state.
func (s *MemoryAccountStore) AccountByEmail(email string) *domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == email {
			cp := *a
			return &cp
		}
	}
	return nil
}

// Compile-time check to ensure MockCredentialIssuer implements CredentialIssuer
var _ CredentialIssuer = (*MockCredentialIssuer)(nil)

// MockCredentialIssuer counts issuance calls and hands back a real
// bcrypt hash so credential-reuse assertions can compare stored
// hashes.
type MockCredentialIssuer struct {
	IssueFunc func(ctx context.Context, email, lastName, drsID string) (string, error)

	IssueCallCount int32
}

func (m *MockCredentialIssuer) IssueTemporaryCredential(ctx context.Context, email, lastName, drsID string) (string, error) {
	atomic.AddInt32(&m.IssueCallCount, 1)
	if m.IssueFunc != nil {
		return m.IssueFunc(ctx, email, lastName, drsID)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("temp-"+email), bcrypt.MinCost)
	if err != nil {
		return "", errors.New("hashing failed in mock")
	}
	return string(hash), nil
}
