package tokenauth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Manager orchestrates token issuance, restoration, and refresh. It is a
// pure computation over its inputs except for the principal lookup, which
// goes through the injected PrincipalStore.
type Manager struct {
	codec      *Codec
	store      PrincipalStore
	accessTTL  time.Duration
	refreshTTL time.Duration
	leeway     time.Duration
	issuer     string
	logger     Logger
	now        func() time.Time
}

// NewManager wires a manager from a codec, a principal store, and config.
func NewManager(codec *Codec, store PrincipalStore, cfg Config) *Manager {
	return &Manager{
		codec:      codec,
		store:      store,
		accessTTL:  cfg.GetAccessTokenTTL(),
		refreshTTL: cfg.GetRefreshTokenTTL(),
		leeway:     cfg.GetLeeway(),
		issuer:     cfg.GetIssuer(),
		logger:     defLogger{},
		now:        time.Now,
	}
}

func (m *Manager) WithLogger(l Logger) *Manager {
	if l != nil {
		m.logger = l
	}
	return m
}

// WithClock overrides the manager time source. Tests use it to pin expiry
// boundaries; the codec clock should be overridden alongside.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	if now != nil {
		m.now = now
	}
	return m
}

// RefreshSubject computes the refresh token subject: a hash binding the
// refresh token to the access token it was issued alongside and to the
// password hash at issuance time. A password change therefore invalidates
// every outstanding refresh token without any revocation list.
func RefreshSubject(accessToken, passwordHash string) string {
	sum := sha256.Sum256([]byte(accessToken + passwordHash))
	return hex.EncodeToString(sum[:])
}

// Create issues a new access/refresh pair for the authenticated principal.
// When prev is non-nil (the refresh case) identity and status flags are
// carried forward from it instead of being re-derived; otherwise the flags
// are snapshotted fresh off the principal.
func (m *Manager) Create(ctx context.Context, prev *Token, auth *Authentication) (*Token, error) {
	if auth == nil || auth.Principal() == nil {
		return nil, NewAuthError(KindServiceUnavailable)
	}
	principal := auth.Principal()

	uid := principal.UID()
	runAs := ""
	var flags StatusFlags
	if prev != nil {
		uid = prev.UID
		runAs = prev.RunAs
		flags = prev.StatusFlags
	} else {
		flags = SnapshotFlags(principal)
	}

	now := m.now()

	access := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
		},
		RunAs: runAs,
	}
	access.SetStatusFlags(flags)

	accessToken, err := m.codec.Sign(access)
	if err != nil {
		m.logger.Error("failed to sign access token: %s", err)
		return nil, err
	}

	refresh := &RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   RefreshSubject(accessToken, principal.PasswordHash()),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshTTL)),
		},
	}

	refreshToken, err := m.codec.Sign(refresh)
	if err != nil {
		m.logger.Error("failed to sign refresh token: %s", err)
		return nil, err
	}

	return &Token{
		UID:          uid,
		RunAs:        runAs,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		StatusFlags:  flags,
	}, nil
}

// Restore rebuilds a trusted Authentication from an access token. The flags
// decoded off the wire are re-applied onto a fresh principal snapshot and
// are authoritative for this request: a store side lock only takes effect
// at the next refresh. Account-state failures still carry the constructed
// Authentication so callers keep the request metadata for audit.
func (m *Manager) Restore(ctx context.Context, accessToken string) (*Authentication, error) {
	claims := &AccessClaims{}
	if err := m.codec.Parse(accessToken, claims); err != nil {
		return nil, err
	}
	if err := m.codec.ValidateWindow(claims, m.leeway); err != nil {
		return nil, err
	}

	uid := claims.RegisteredClaims.Subject
	if uid == "" {
		return nil, NewAuthError(KindInvalidToken)
	}

	principal, err := m.store.FindByUID(ctx, uid)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, WrapAuthError(KindInvalidToken, err)
		}
		m.logger.Error("principal lookup failed during restore: %s", err)
		return nil, WrapAuthError(KindServiceUnavailable, err)
	}

	flags := claims.StatusFlags()
	flagged := applyFlags(principal, flags)

	token := &Token{
		UID:         uid,
		RunAs:       claims.RunAs,
		AccessToken: accessToken,
		StatusFlags: flags,
	}

	if kind, bad := accountStateKind(flags); bad {
		// Carry an unauthenticated context on the failure: the identity and
		// request metadata stay observable for audit, but nothing downstream
		// can treat the request as authenticated.
		blocked := &Authentication{principal: flagged, token: token}
		return nil, NewAuthError(kind).WithAuthentication(blocked)
	}

	return NewAuthenticated(flagged, nil, token)
}

// Refresh validates the refresh token binding and issues a new pair with
// the old token's identity carried forward. The Authentication handed to
// Create is deliberately unauthenticated: a refresh proves possession of
// the pair, not fresh credentials.
func (m *Manager) Refresh(ctx context.Context, old *Token, principal Principal) (*Token, error) {
	if old == nil || old.UID == "" || old.RefreshToken == "" {
		return nil, NewAuthError(KindInvalidToken)
	}
	if principal == nil {
		return nil, NewAuthError(KindInvalidToken)
	}

	claims := &RefreshClaims{}
	if err := m.codec.Parse(old.RefreshToken, claims); err != nil {
		return nil, err
	}
	if err := m.codec.ValidateWindow(claims, m.leeway); err != nil {
		return nil, err
	}

	expected := RefreshSubject(old.AccessToken, principal.PasswordHash())
	if subtle.ConstantTimeCompare([]byte(claims.RegisteredClaims.Subject), []byte(expected)) != 1 {
		// Either the password changed since issuance or the pair was mixed
		// up. Indistinguishable to the caller on purpose.
		return nil, NewAuthError(KindInvalidToken)
	}

	return m.Create(ctx, old, NewUnauthenticated(principal))
}

// SnapshotFlags reads the current account state off a principal into the
// packed flag representation.
func SnapshotFlags(p Principal) StatusFlags {
	return StatusFlags{
		MFALevel:           p.MFALevel(),
		CredentialsExpired: p.CredentialsExpired(),
		Locked:             p.Locked(),
		Expired:            p.Expired(),
		Disabled:           !p.Enabled(),
	}
}

// accountStateKind maps blocking flag states to their failure kinds.
// Ordering is fixed so the same flag combination always reports the same
// failure.
func accountStateKind(flags StatusFlags) (ErrorKind, bool) {
	switch {
	case flags.Disabled:
		return KindAccountDisabled, true
	case flags.Locked:
		return KindAccountLocked, true
	case flags.Expired:
		return KindAccountExpired, true
	case flags.CredentialsExpired:
		return KindCredentialsExpired, true
	}
	return 0, false
}

// flaggedPrincipal overlays wire flags on top of a store snapshot so the
// account-state getters reflect what the token says, per the statelessness
// trade-off documented on Restore.
type flaggedPrincipal struct {
	Principal
	flags StatusFlags
}

func applyFlags(p Principal, flags StatusFlags) Principal {
	return &flaggedPrincipal{Principal: p, flags: flags}
}

func (p *flaggedPrincipal) Enabled() bool            { return !p.flags.Disabled }
func (p *flaggedPrincipal) Locked() bool             { return p.flags.Locked }
func (p *flaggedPrincipal) Expired() bool            { return p.flags.Expired }
func (p *flaggedPrincipal) CredentialsExpired() bool { return p.flags.CredentialsExpired }
func (p *flaggedPrincipal) MFALevel() uint8          { return p.flags.MFALevel }
