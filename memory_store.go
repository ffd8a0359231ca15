package tokenauth

import (
	"context"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// Account is a concrete Principal backed by plain fields. It is the store
// record for MemoryStore and a convenient fixture type for tests.
type Account struct {
	ID           string
	Password     string // bcrypt hash
	IsDisabled   bool
	IsLocked     bool
	IsExpired    bool
	CredsExpired bool
	MFA          uint8
	Granted      []string
}

var _ Principal = (*Account)(nil)

func (a *Account) UID() string              { return a.ID }
func (a *Account) PasswordHash() string     { return a.Password }
func (a *Account) Enabled() bool            { return !a.IsDisabled }
func (a *Account) Locked() bool             { return a.IsLocked }
func (a *Account) Expired() bool            { return a.IsExpired }
func (a *Account) CredentialsExpired() bool { return a.CredsExpired }
func (a *Account) MFALevel() uint8          { return a.MFA }
func (a *Account) Authorities() []string    { return a.Granted }

// MemoryStore is an in-memory PrincipalStore for tests, examples, and
// small deployments that provision accounts at startup.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*Account
}

var _ PrincipalStore = (*MemoryStore)(nil)

func NewMemoryStore(accounts ...*Account) *MemoryStore {
	s := &MemoryStore{accounts: map[string]*Account{}}
	for _, a := range accounts {
		s.Put(a)
	}
	return s
}

// Put inserts or replaces an account.
func (s *MemoryStore) Put(a *Account) {
	if a == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a
}

func (s *MemoryStore) FindByUID(ctx context.Context, uid string) (Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[uid]
	if !ok {
		return nil, goerrors.New("principal not found", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound)
	}
	return a, nil
}
