// Package bunstore provides a bun-backed PrincipalStore. It is the
// persistence counterpart to the in-memory store in the root package: one
// table of accounts with the state booleans the token layer snapshots at
// issuance.
package bunstore

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	tokenauth "github.com/goliatone/go-tokenauth"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the persisted principal record.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`

	ID                 uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UID                string     `bun:"uid,notnull,unique" json:"uid,omitempty"`
	PasswordHash       string     `bun:"password_hash" json:"-"`
	IsDisabled         bool       `bun:"is_disabled" json:"is_disabled,omitempty"`
	IsLocked           bool       `bun:"is_locked" json:"is_locked,omitempty"`
	IsExpired          bool       `bun:"is_expired" json:"is_expired,omitempty"`
	CredentialsExpired bool       `bun:"credentials_expired" json:"credentials_expired,omitempty"`
	MFALevel           uint8      `bun:"mfa_level" json:"mfa_level,omitempty"`
	Authorities        []string   `bun:"authorities,type:jsonb" json:"authorities,omitempty"`
	CreatedAt          *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt          *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt          *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// principalView adapts an Account row to the tokenauth.Principal surface.
type principalView struct {
	rec *Account
}

var _ tokenauth.Principal = (*principalView)(nil)

func (p *principalView) UID() string              { return p.rec.UID }
func (p *principalView) PasswordHash() string     { return p.rec.PasswordHash }
func (p *principalView) Enabled() bool            { return !p.rec.IsDisabled }
func (p *principalView) Locked() bool             { return p.rec.IsLocked }
func (p *principalView) Expired() bool            { return p.rec.IsExpired }
func (p *principalView) CredentialsExpired() bool { return p.rec.CredentialsExpired }
func (p *principalView) MFALevel() uint8          { return p.rec.MFALevel }
func (p *principalView) Authorities() []string    { return p.rec.Authorities }

// Store resolves principals from a bun database.
type Store struct {
	db   *bun.DB
	repo repository.Repository[*Account]
}

var _ tokenauth.PrincipalStore = (*Store)(nil)

// NewStore wires a store over an existing bun database. Connection
// lifecycle and migrations belong to the host application.
func NewStore(db *bun.DB) *Store {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
	})

	return &Store{db: db, repo: repo}
}

// FindByUID resolves a principal by uid.
func (s *Store) FindByUID(ctx context.Context, uid string) (tokenauth.Principal, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, goerrors.New("uid must not be empty", goerrors.CategoryBadInput)
	}

	record := &Account{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.uid = ?", uid).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, goerrors.New("principal not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound).
				WithMetadata(map[string]any{"uid": uid})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve principal")
	}

	return &principalView{rec: record}, nil
}

// Register creates an account with a hashed password.
func (s *Store) Register(ctx context.Context, uid, password string, authorities ...string) (*Account, error) {
	hash, err := tokenauth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	record := &Account{
		ID:           uuid.New(),
		UID:          strings.TrimSpace(uid),
		PasswordHash: hash,
		Authorities:  authorities,
	}

	return s.repo.Create(ctx, record)
}

// SetPassword replaces the stored hash, which implicitly invalidates every
// refresh token issued against the old password.
func (s *Store) SetPassword(ctx context.Context, uid, password string) error {
	hash, err := tokenauth.HashPassword(password)
	if err != nil {
		return err
	}

	_, err = s.db.NewUpdate().
		Model((*Account)(nil)).
		Set("password_hash = ?", hash).
		Set("updated_at = current_timestamp").
		Where("uid = ?", strings.TrimSpace(uid)).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password")
	}
	return nil
}

// CreateTable creates the accounts table. Exposed for tests and examples;
// production schemas go through the host's migration tooling.
func CreateTable(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*Account)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}
