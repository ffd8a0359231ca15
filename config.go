package tokenauth

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Default option values. Callers only override what they care about.
const (
	DefaultAccessTokenTTL  = 2 * time.Hour
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
	DefaultLeeway          = 30 * time.Second
	DefaultRolePrefix      = "ROLE_"
	DefaultTokenHeaderName = "Authorization"
	DefaultBearerPrefix    = "Bearer"
	DefaultCookieName      = "access_token"
)

// Options is the concrete Config implementation. The zero value plus
// WithDefaults is a working development setup (unsigned tokens included).
type Options struct {
	// SigningKey is the HMAC secret. Empty means the insecure unsigned
	// fallback; see NewCodec.
	SigningKey string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Leeway is the grace period applied to expiry checks to tolerate
	// clock skew between issuer and verifier.
	Leeway time.Duration

	RolePrefix string

	// LoginURL, when set, is where browser-ish 401 responses redirect.
	LoginURL string
	// RealmName, when set, enables the Basic challenge fallback for
	// browser-ish 401 responses without a LoginURL.
	RealmName string

	TokenHeaderName string
	BearerPrefix    string
	CookieName      string
	// QueryArgName enables token extraction from the query string. Empty
	// disables the query source entirely.
	QueryArgName string

	// PathExcludes are Ant-style patterns ("*" within a segment, "**"
	// across segments) that bypass authorization unconditionally.
	PathExcludes []string

	// RoleHierarchy maps a role to the roles it implies. Edges are expanded
	// transitively at Engine construction.
	RoleHierarchy map[string][]string

	Issuer string
}

var _ Config = (*Options)(nil)

// NewOptions applies defaults over opts and returns the result.
func NewOptions(opts Options) *Options {
	o := opts
	if o.AccessTokenTTL <= 0 {
		o.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if o.RefreshTokenTTL <= 0 {
		o.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if o.Leeway < 0 {
		o.Leeway = 0
	} else if o.Leeway == 0 {
		o.Leeway = DefaultLeeway
	}
	if o.RolePrefix == "" {
		o.RolePrefix = DefaultRolePrefix
	}
	if o.TokenHeaderName == "" {
		o.TokenHeaderName = DefaultTokenHeaderName
	}
	if o.CookieName == "" {
		o.CookieName = DefaultCookieName
	}
	return &o
}

// Validate checks option invariants that would otherwise surface as
// confusing runtime behavior.
func (o *Options) Validate() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.AccessTokenTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&o.RefreshTokenTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&o.TokenHeaderName, validation.Required),
		validation.Field(&o.CookieName, validation.Required),
	)
}

func (o *Options) GetSigningKey() string                  { return o.SigningKey }
func (o *Options) GetAccessTokenTTL() time.Duration       { return o.AccessTokenTTL }
func (o *Options) GetRefreshTokenTTL() time.Duration      { return o.RefreshTokenTTL }
func (o *Options) GetLeeway() time.Duration               { return o.Leeway }
func (o *Options) GetRolePrefix() string                  { return o.RolePrefix }
func (o *Options) GetLoginURL() string                    { return o.LoginURL }
func (o *Options) GetRealmName() string                   { return o.RealmName }
func (o *Options) GetTokenHeaderName() string             { return o.TokenHeaderName }
func (o *Options) GetBearerPrefix() string                { return o.BearerPrefix }
func (o *Options) GetCookieName() string                  { return o.CookieName }
func (o *Options) GetQueryArgName() string                { return o.QueryArgName }
func (o *Options) GetPathExcludes() []string              { return o.PathExcludes }
func (o *Options) GetRoleHierarchy() map[string][]string  { return o.RoleHierarchy }
func (o *Options) GetIssuer() string                      { return o.Issuer }
