// Package routerware adapts the tokenauth pipeline to go-router, which in
// turn fronts either a fiber or an httprouter backend. The restore and
// authorize logic lives in the root package; this adapter only maps the
// Carrier and ResponseWriter ports onto router.Context.
package routerware

import (
	"github.com/goliatone/go-router"
	tokenauth "github.com/goliatone/go-tokenauth"
)

// DefaultContextKey is where the Authentication lands in router locals.
const DefaultContextKey = "authentication"

type Config struct {
	Restorer  *tokenauth.Restorer
	Engine    *tokenauth.Engine
	Responder *tokenauth.Responder

	// Filter skips the middleware entirely when it returns true.
	Filter func(router.Context) bool
	// OptionalAuth lets failed authentication proceed anonymously instead
	// of rendering the failure. Authorization still runs.
	OptionalAuth bool
	// ContextKey overrides where the Authentication is stored in locals.
	ContextKey string

	SuccessHandler router.HandlerFunc
}

// New builds the authentication middleware. Restorer and Responder are
// required; Engine is optional (restore-only deployments).
func New(cfg Config) router.MiddlewareFunc {
	if cfg.Restorer == nil {
		panic("TOKENAUTH: routerware configuration: Restorer is required.")
	}
	if cfg.Responder == nil {
		panic("TOKENAUTH: routerware configuration: Responder is required.")
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}
	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			carrier := &routerCarrier{ctx: ctx}
			w := &routerResponseWriter{ctx: ctx}
			accept := ctx.GetString("Accept", "")

			auth := cfg.Restorer.Load(ctx.Context(), carrier)

			// Excluded paths are served regardless of token validity, so a
			// stored restore failure only renders when the path is covered.
			excluded := cfg.Engine != nil && cfg.Engine.IsExcluded(ctx.Path())

			if failure := cfg.Restorer.Failure(carrier); failure != nil && !cfg.OptionalAuth && !excluded {
				return cfg.Responder.Respond(w, accept, failure)
			}

			if cfg.Engine != nil {
				if err := cfg.Engine.Authorize(ctx.Path(), auth); err != nil {
					return cfg.Responder.Respond(w, accept, err)
				}
			}

			ctx.Locals(cfg.ContextKey, auth)
			ctx.SetContext(tokenauth.WithAuthentication(ctx.Context(), auth))

			return cfg.SuccessHandler(ctx)
		}
	}
}

// FromContext returns the Authentication stored by the middleware, never
// nil.
func FromContext(ctx router.Context, key ...string) *tokenauth.Authentication {
	k := DefaultContextKey
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	if auth, ok := ctx.Locals(k).(*tokenauth.Authentication); ok {
		return auth
	}
	return tokenauth.NewAnonymous()
}

type routerCarrier struct {
	ctx router.Context
}

var _ tokenauth.Carrier = (*routerCarrier)(nil)

func (c *routerCarrier) Query(name string) string  { return c.ctx.Query(name, "") }
func (c *routerCarrier) Header(name string) string { return c.ctx.GetString(name, "") }
func (c *routerCarrier) Cookie(name string) string { return c.ctx.Cookies(name) }
func (c *routerCarrier) RemoteAddr() string        { return c.ctx.IP() }

// MetaHeaders returns nil: router.Context does not expose header
// enumeration, so only the named detail headers survive on this transport.
func (c *routerCarrier) MetaHeaders(prefix string) map[string]string { return nil }

func (c *routerCarrier) Attr(key string) (any, bool) {
	v := c.ctx.Locals(key)
	return v, v != nil
}

func (c *routerCarrier) SetAttr(key string, value any) {
	c.ctx.Locals(key, value)
}

type routerResponseWriter struct {
	ctx router.Context
}

var _ tokenauth.ResponseWriter = (*routerResponseWriter)(nil)

func (w *routerResponseWriter) SetHeader(key, value string) {
	w.ctx.SetHeader(key, value)
}

func (w *routerResponseWriter) Redirect(url string, status int) error {
	return w.ctx.Redirect(url, status)
}

func (w *routerResponseWriter) JSON(status int, body any) error {
	return w.ctx.JSON(status, body)
}

func (w *routerResponseWriter) Text(status int, body string) error {
	return w.ctx.Status(status).SendString(body)
}
