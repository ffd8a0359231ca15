package tokenauth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// Authenticator ties credential verification and impersonation to token
// issuance. It is the login-time entry point; everything request-time goes
// through Restorer and Engine instead.
type Authenticator struct {
	manager *Manager
	store   PrincipalStore
	logger  Logger
}

// NewAuthenticator wires the login surface over a manager and store.
func NewAuthenticator(manager *Manager, store PrincipalStore) *Authenticator {
	return &Authenticator{
		manager: manager,
		store:   store,
		logger:  defLogger{},
	}
}

func (a *Authenticator) WithLogger(l Logger) *Authenticator {
	if l != nil {
		a.logger = l
	}
	return a
}

// Login verifies uid/password against the store and issues a fresh token
// pair. A missing principal and a wrong password are indistinguishable to
// the caller; blocked account states are not, since the user can act on
// them.
func (a *Authenticator) Login(ctx context.Context, uid, password string) (*Token, error) {
	principal, err := a.lookup(ctx, uid)
	if err != nil {
		return nil, err
	}

	if err := ComparePasswordAndHash(password, principal.PasswordHash()); err != nil {
		a.logger.Info("login rejected for %q: password mismatch", uid)
		return nil, WrapAuthError(KindUnauthenticated, err)
	}

	if kind, blocked := accountStateKind(SnapshotFlags(principal)); blocked {
		a.logger.Info("login blocked for %q: %s", uid, kind.TextCode())
		return nil, NewAuthError(kind).WithAuthentication(NewUnauthenticated(principal))
	}

	return a.manager.Create(ctx, nil, NewUnauthenticated(principal))
}

// Impersonate issues a token acting as target while keeping the actor as
// the subject. The actor's account state rides in the flags; an actor who
// cannot log in cannot impersonate either.
func (a *Authenticator) Impersonate(ctx context.Context, actorUID, targetUID string) (*Token, error) {
	actor, err := a.lookup(ctx, actorUID)
	if err != nil {
		return nil, err
	}
	if kind, blocked := accountStateKind(SnapshotFlags(actor)); blocked {
		return nil, NewAuthError(kind).WithAuthentication(NewUnauthenticated(actor))
	}

	if _, err := a.lookup(ctx, targetUID); err != nil {
		return nil, err
	}

	carry := &Token{
		UID:         actor.UID(),
		RunAs:       targetUID,
		StatusFlags: SnapshotFlags(actor),
	}
	return a.manager.Create(ctx, carry, NewUnauthenticated(actor))
}

// RefreshSession exchanges an issued pair for a fresh one. The principal is
// looked up live: the new refresh token binds to the current password hash,
// and an account that was locked or disabled since issuance is refused
// here. This is the point where server side revocation takes effect, since
// restore trusts the flags inside the token.
func (a *Authenticator) RefreshSession(ctx context.Context, token *Token) (*Token, error) {
	if token == nil || token.UID == "" {
		return nil, NewAuthError(KindInvalidToken)
	}

	principal, err := a.store.FindByUID(ctx, token.UID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, WrapAuthError(KindInvalidToken, err)
		}
		return nil, WrapAuthError(KindServiceUnavailable, err)
	}

	if kind, blocked := accountStateKind(SnapshotFlags(principal)); blocked {
		return nil, NewAuthError(kind).WithAuthentication(NewUnauthenticated(principal))
	}

	return a.manager.Refresh(ctx, token, principal)
}

func (a *Authenticator) lookup(ctx context.Context, uid string) (Principal, error) {
	principal, err := a.store.FindByUID(ctx, uid)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, WrapAuthError(KindUnauthenticated, err)
		}
		a.logger.Error("principal lookup failed: %s", err)
		return nil, WrapAuthError(KindServiceUnavailable, err)
	}
	return principal, nil
}
