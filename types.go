package tokenauth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Principal is the stored identity record resolved by uid. Implementations
// answer the account-state questions the token layer needs; everything else
// about the identity (email, profile, tenancy) is the host application's
// business.
type Principal interface {
	UID() string
	PasswordHash() string
	Enabled() bool
	Locked() bool
	Expired() bool
	CredentialsExpired() bool
	MFALevel() uint8
	Authorities() []string
}

// PrincipalStore resolves principals by uid. The only I/O the token layer
// performs goes through this interface.
type PrincipalStore interface {
	FindByUID(ctx context.Context, uid string) (Principal, error)
}

// Config holds the token auth options. All values are read once at wiring
// time; nothing in this package mutates configuration after startup.
type Config interface {
	GetSigningKey() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetLeeway() time.Duration
	GetRolePrefix() string
	GetLoginURL() string
	GetRealmName() string
	GetTokenHeaderName() string
	GetBearerPrefix() string
	GetCookieName() string
	GetQueryArgName() string
	GetPathExcludes() []string
	GetRoleHierarchy() map[string][]string
	GetIssuer() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] TOKENAUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] TOKENAUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] TOKENAUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] TOKENAUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
