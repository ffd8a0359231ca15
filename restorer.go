package tokenauth

import (
	"context"
	"strings"
)

// Carrier is the request surface the restorer works against. Each pipeline
// adapter (go-router, fiber, net/http) implements it over its native
// request type; per-request attribute storage is the only part whose
// implementation may differ between pipelines.
type Carrier interface {
	// Query returns the named query string argument, blank when absent.
	Query(name string) string
	// Header returns the named request header, blank when absent.
	Header(name string) string
	// Cookie returns the named cookie value, blank when absent.
	Cookie(name string) string
	// MetaHeaders returns the request headers matching the given lower-case
	// prefix, keyed by lower-cased name. Adapters that cannot enumerate
	// headers return nil.
	MetaHeaders(prefix string) map[string]string
	// RemoteAddr returns the peer address for audit metadata.
	RemoteAddr() string
	// Attr and SetAttr are the request scoped attribute store backing the
	// restore-at-most-once guarantee.
	Attr(key string) (any, bool)
	SetAttr(key string, value any)
}

// Attribute keys the restorer caches under.
const (
	attrAuthentication = "tokenauth:authentication"
	attrFailure        = "tokenauth:failure"
)

// Restorer rebuilds the Authentication for a request, at most once per
// request, caching both the context and any failure on the carrier so
// authorization and the failure responder observe the same outcome.
type Restorer struct {
	manager      *Manager
	queryArg     string
	headerName   string
	bearerPrefix string
	cookieName   string
	logger       Logger
}

// NewRestorer wires a restorer from the manager and the extraction config.
func NewRestorer(manager *Manager, cfg Config) *Restorer {
	return &Restorer{
		manager:      manager,
		queryArg:     cfg.GetQueryArgName(),
		headerName:   cfg.GetTokenHeaderName(),
		bearerPrefix: cfg.GetBearerPrefix(),
		cookieName:   cfg.GetCookieName(),
		logger:       defLogger{},
	}
}

func (r *Restorer) WithLogger(l Logger) *Restorer {
	if l != nil {
		r.logger = l
	}
	return r
}

// Load returns the request's Authentication, never nil. The first call does
// the work; subsequent calls on the same carrier return the cached value
// unchanged regardless of outcome.
func (r *Restorer) Load(ctx context.Context, c Carrier) *Authentication {
	if cached, ok := c.Attr(attrAuthentication); ok {
		if auth, ok := cached.(*Authentication); ok {
			return auth
		}
	}
	if _, ok := c.Attr(attrFailure); ok {
		// A prior attempt failed without a usable context; stay anonymous.
		auth := NewAnonymous()
		c.SetAttr(attrAuthentication, auth)
		return auth
	}

	candidate := r.ExtractToken(c)
	if candidate == "" {
		auth := NewAnonymous()
		c.SetAttr(attrAuthentication, auth)
		return auth
	}

	auth, err := r.manager.Restore(ctx, candidate)
	if err == nil {
		auth.SetDetails(extractDetails(c))
		c.SetAttr(attrAuthentication, auth)
		return auth
	}

	ae := Classify(err)
	c.SetAttr(attrFailure, ae)

	if ae.Authentication != nil {
		// The failure still produced a context (e.g. disabled account);
		// store it so audit and authorization can observe the attempt.
		ae.Authentication.SetDetails(extractDetails(c))
		c.SetAttr(attrAuthentication, ae.Authentication)
		return ae.Authentication
	}

	r.logger.Debug("token restore failed: %s", ae.Kind.TextCode())
	anon := NewAnonymous()
	c.SetAttr(attrAuthentication, anon)
	return anon
}

// Failure returns the failure recorded for this request, nil when
// restoration succeeded or no token was present.
func (r *Restorer) Failure(c Carrier) *AuthError {
	if v, ok := c.Attr(attrFailure); ok {
		if ae, ok := v.(*AuthError); ok {
			return ae
		}
	}
	return nil
}

// ExtractToken picks the candidate token: query argument, then header with
// the configured bearer prefix stripped, then cookie. First non-blank hit
// wins; there is no chaining past the first hit.
func (r *Restorer) ExtractToken(c Carrier) string {
	if r.queryArg != "" {
		if v := strings.TrimSpace(c.Query(r.queryArg)); v != "" {
			return v
		}
	}

	if r.headerName != "" {
		if v := r.tokenFromHeader(c.Header(r.headerName)); v != "" {
			return v
		}
	}

	if r.cookieName != "" {
		if v := strings.TrimSpace(c.Cookie(r.cookieName)); v != "" {
			return v
		}
	}

	return ""
}

// tokenFromHeader strips the configured bearer prefix case-insensitively.
// Without a configured prefix the whole header value is the token; with one,
// a header that does not carry it is not a hit.
func (r *Restorer) tokenFromHeader(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if r.bearerPrefix == "" {
		return value
	}
	prefix := strings.TrimSpace(r.bearerPrefix)
	if len(value) > len(prefix) && strings.EqualFold(value[:len(prefix)], prefix) {
		return strings.TrimSpace(value[len(prefix):])
	}
	return ""
}

func extractDetails(c Carrier) *RequestDetails {
	return &RequestDetails{
		DeviceID:   c.Header(HeaderDeviceID),
		AppID:      c.Header(HeaderAppID),
		RemoteAddr: c.RemoteAddr(),
		Meta:       c.MetaHeaders(MetaHeaderPrefix),
	}
}
