package tokenauth

import (
	"strings"
	"sync"
)

// RequestDetails is device/app/remote-address metadata attached to an
// Authentication once per request, even when authentication fails, so audit
// trails keep the caller's context.
type RequestDetails struct {
	DeviceID   string
	AppID      string
	RemoteAddr string
	// Meta carries the request's x-m-* headers, keyed by lower-cased header
	// name with the prefix intact.
	Meta map[string]string
}

// MetaHeaderPrefix selects which request headers end up in
// RequestDetails.Meta.
const MetaHeaderPrefix = "x-m-"

// Header names the detail extraction reads.
const (
	HeaderDeviceID = "X-Device-ID"
	HeaderAppID    = "X-App-ID"
)

// Authentication is the request scoped answer to "who is making this call".
// Instances are either fully trusted (constructed with a verified token and
// authorities) or not; nothing can promote an untrusted instance after
// construction.
type Authentication struct {
	principal     Principal
	token         *Token
	authenticated bool

	authOnce    sync.Once
	authorities []string

	detailsMu sync.Mutex
	details   *RequestDetails
}

// NewAuthenticated builds a trusted Authentication. The token must be
// issued (non-empty access token); authorities default to the principal's
// when nil.
func NewAuthenticated(principal Principal, authorities []string, token *Token) (*Authentication, error) {
	if principal == nil {
		return nil, NewAuthError(KindUnauthenticated)
	}
	if !token.Issued() {
		return nil, NewAuthError(KindUnauthenticated)
	}
	return &Authentication{
		principal:     principal,
		token:         token,
		authorities:   authorities,
		authenticated: true,
	}, nil
}

// NewUnauthenticated wraps a principal without trusting it. Used for the
// failure carrier path and for refresh issuance.
func NewUnauthenticated(principal Principal) *Authentication {
	return &Authentication{principal: principal}
}

// NewAnonymous is the empty context returned when a request carries no
// token at all.
func NewAnonymous() *Authentication {
	return &Authentication{}
}

func (a *Authentication) Principal() Principal { return a.principal }

func (a *Authentication) Token() *Token { return a.token }

// IsAuthenticated reports whether the instance was constructed through the
// trusted path.
func (a *Authentication) IsAuthenticated() bool {
	return a != nil && a.authenticated
}

// IsEmpty reports whether there is no principal behind this context.
func (a *Authentication) IsEmpty() bool {
	return a == nil || a.principal == nil
}

// UID returns the principal uid, blank for anonymous contexts.
func (a *Authentication) UID() string {
	if a.IsEmpty() {
		return ""
	}
	return a.principal.UID()
}

// Authorities returns the granted permission/role strings. They are
// resolved from the principal once per instance and cached; concurrent
// callers converge on the same slice.
func (a *Authentication) Authorities() []string {
	if a == nil {
		return nil
	}
	a.authOnce.Do(func() {
		if a.authorities == nil && a.principal != nil {
			granted := a.principal.Authorities()
			a.authorities = make([]string, len(granted))
			copy(a.authorities, granted)
		}
	})
	return a.authorities
}

// Details returns the attached request metadata, nil before attachment.
func (a *Authentication) Details() *RequestDetails {
	if a == nil {
		return nil
	}
	a.detailsMu.Lock()
	defer a.detailsMu.Unlock()
	return a.details
}

// SetDetails attaches request metadata. Details attach once; later calls
// are ignored so nested sub-requests cannot overwrite the original caller's
// context.
func (a *Authentication) SetDetails(d *RequestDetails) {
	if a == nil || d == nil {
		return
	}
	a.detailsMu.Lock()
	defer a.detailsMu.Unlock()
	if a.details == nil {
		a.details = d
	}
}

// StatusFlags returns the flags snapshot off the backing token, zero for
// tokenless contexts.
func (a *Authentication) StatusFlags() StatusFlags {
	if a == nil || a.token == nil {
		return StatusFlags{}
	}
	return a.token.StatusFlags
}

// IsMetaHeader reports whether the header name participates in detail
// extraction.
func IsMetaHeader(name string) bool {
	return strings.HasPrefix(strings.ToLower(name), MetaHeaderPrefix)
}
