// Package httpware adapts the tokenauth pipeline to net/http's blocking,
// handler-per-request model. Decisions are identical to the other adapters;
// only the per-request storage (a context-scoped attribute map) differs.
package httpware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	tokenauth "github.com/goliatone/go-tokenauth"
)

type Config struct {
	Restorer  *tokenauth.Restorer
	Engine    *tokenauth.Engine
	Responder *tokenauth.Responder

	// Filter skips the middleware entirely when it returns true.
	Filter func(*http.Request) bool
	// OptionalAuth lets failed authentication proceed anonymously instead
	// of rendering the failure. Authorization still runs.
	OptionalAuth bool
}

// New builds the authentication middleware. Restorer and Responder are
// required; Engine is optional.
func New(cfg Config) func(http.Handler) http.Handler {
	if cfg.Restorer == nil {
		panic("TOKENAUTH: httpware configuration: Restorer is required.")
	}
	if cfg.Responder == nil {
		panic("TOKENAUTH: httpware configuration: Responder is required.")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Filter != nil && cfg.Filter(r) {
				next.ServeHTTP(w, r)
				return
			}

			r = ensureAttrs(r)
			carrier := &httpCarrier{req: r}
			writer := &httpResponseWriter{w: w, r: r}
			accept := r.Header.Get("Accept")

			auth := cfg.Restorer.Load(r.Context(), carrier)

			// Excluded paths are served regardless of token validity, so a
			// stored restore failure only renders when the path is covered.
			excluded := cfg.Engine != nil && cfg.Engine.IsExcluded(r.URL.Path)

			if failure := cfg.Restorer.Failure(carrier); failure != nil && !cfg.OptionalAuth && !excluded {
				_ = cfg.Responder.Respond(writer, accept, failure)
				return
			}

			if cfg.Engine != nil {
				if err := cfg.Engine.Authorize(r.URL.Path, auth); err != nil {
					_ = cfg.Responder.Respond(writer, accept, err)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(tokenauth.WithAuthentication(r.Context(), auth)))
		})
	}
}

// FromRequest returns the Authentication stored by the middleware, never
// nil.
func FromRequest(r *http.Request) *tokenauth.Authentication {
	if auth, ok := tokenauth.AuthenticationFromContext(r.Context()); ok {
		return auth
	}
	return tokenauth.NewAnonymous()
}

// attrStore is the per-request attribute map. Nested sub-requests sharing
// one logical request may race to populate it, so reads and writes go
// through the store mutex and initialization is double-checked: racers
// converge on one winner without corrupting either value.
type attrStore struct {
	mu    sync.Mutex
	attrs map[string]any
}

func (s *attrStore) get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attrs == nil {
		return nil, false
	}
	v, ok := s.attrs[key]
	return v, ok
}

func (s *attrStore) set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attrs == nil {
		s.attrs = map[string]any{}
	}
	if _, exists := s.attrs[key]; exists {
		// First writer wins, matching the restore-at-most-once contract.
		return
	}
	s.attrs[key] = value
}

type attrsCtxKey struct{}

// ensureAttrs installs the attribute store on the request context once.
func ensureAttrs(r *http.Request) *http.Request {
	if _, ok := r.Context().Value(attrsCtxKey{}).(*attrStore); ok {
		return r
	}
	return r.WithContext(context.WithValue(r.Context(), attrsCtxKey{}, &attrStore{}))
}

type httpCarrier struct {
	req *http.Request

	queryOnce sync.Once
	query     map[string][]string
}

var _ tokenauth.Carrier = (*httpCarrier)(nil)

// Query parses the raw query once per carrier and serves later reads from
// the parsed form.
func (c *httpCarrier) Query(name string) string {
	c.queryOnce.Do(func() {
		c.query = c.req.URL.Query()
	})
	if vs := c.query[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func (c *httpCarrier) Header(name string) string {
	return c.req.Header.Get(name)
}

func (c *httpCarrier) Cookie(name string) string {
	cookie, err := c.req.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (c *httpCarrier) RemoteAddr() string {
	return c.req.RemoteAddr
}

func (c *httpCarrier) MetaHeaders(prefix string) map[string]string {
	var meta map[string]string
	for name, values := range c.req.Header {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, prefix) || len(values) == 0 {
			continue
		}
		if meta == nil {
			meta = map[string]string{}
		}
		meta[lower] = values[0]
	}
	return meta
}

func (c *httpCarrier) Attr(key string) (any, bool) {
	if store, ok := c.req.Context().Value(attrsCtxKey{}).(*attrStore); ok {
		return store.get(key)
	}
	return nil, false
}

func (c *httpCarrier) SetAttr(key string, value any) {
	if store, ok := c.req.Context().Value(attrsCtxKey{}).(*attrStore); ok {
		store.set(key, value)
	}
}

type httpResponseWriter struct {
	w http.ResponseWriter
	r *http.Request
}

var _ tokenauth.ResponseWriter = (*httpResponseWriter)(nil)

func (w *httpResponseWriter) SetHeader(key, value string) {
	w.w.Header().Set(key, value)
}

func (w *httpResponseWriter) Redirect(url string, status int) error {
	http.Redirect(w.w, w.r, url, status)
	return nil
}

func (w *httpResponseWriter) JSON(status int, body any) error {
	w.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.w.WriteHeader(status)
	return json.NewEncoder(w.w).Encode(body)
}

func (w *httpResponseWriter) Text(status int, body string) error {
	w.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.w.WriteHeader(status)
	_, err := w.w.Write([]byte(body))
	return err
}
