// Package fiberware adapts the tokenauth pipeline to fiber's event-driven
// fasthttp request model. Decisions are identical to the other adapters;
// only the per-request storage (fiber locals) differs.
package fiberware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	tokenauth "github.com/goliatone/go-tokenauth"
)

// DefaultContextKey is where the Authentication lands in fiber locals.
const DefaultContextKey = "authentication"

type Config struct {
	Restorer  *tokenauth.Restorer
	Engine    *tokenauth.Engine
	Responder *tokenauth.Responder

	// Filter skips the middleware entirely when it returns true.
	Filter func(*fiber.Ctx) bool
	// OptionalAuth lets failed authentication proceed anonymously instead
	// of rendering the failure. Authorization still runs.
	OptionalAuth bool
	// ContextKey overrides where the Authentication is stored in locals.
	ContextKey string
}

// New builds the authentication handler. Restorer and Responder are
// required; Engine is optional.
func New(cfg Config) fiber.Handler {
	if cfg.Restorer == nil {
		panic("TOKENAUTH: fiberware configuration: Restorer is required.")
	}
	if cfg.Responder == nil {
		panic("TOKENAUTH: fiberware configuration: Responder is required.")
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		carrier := &fiberCarrier{ctx: c}
		w := &fiberResponseWriter{ctx: c}
		accept := c.Get(fiber.HeaderAccept)

		auth := cfg.Restorer.Load(c.UserContext(), carrier)

		// Excluded paths are served regardless of token validity, so a
		// stored restore failure only renders when the path is covered.
		excluded := cfg.Engine != nil && cfg.Engine.IsExcluded(c.Path())

		if failure := cfg.Restorer.Failure(carrier); failure != nil && !cfg.OptionalAuth && !excluded {
			return cfg.Responder.Respond(w, accept, failure)
		}

		if cfg.Engine != nil {
			if err := cfg.Engine.Authorize(c.Path(), auth); err != nil {
				return cfg.Responder.Respond(w, accept, err)
			}
		}

		c.Locals(cfg.ContextKey, auth)
		c.SetUserContext(tokenauth.WithAuthentication(c.UserContext(), auth))

		return c.Next()
	}
}

// FromCtx returns the Authentication stored by the middleware, never nil.
func FromCtx(c *fiber.Ctx, key ...string) *tokenauth.Authentication {
	k := DefaultContextKey
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	if auth, ok := c.Locals(k).(*tokenauth.Authentication); ok {
		return auth
	}
	return tokenauth.NewAnonymous()
}

type fiberCarrier struct {
	ctx *fiber.Ctx
}

var _ tokenauth.Carrier = (*fiberCarrier)(nil)

func (c *fiberCarrier) Query(name string) string  { return c.ctx.Query(name) }
func (c *fiberCarrier) Header(name string) string { return c.ctx.Get(name) }
func (c *fiberCarrier) Cookie(name string) string { return c.ctx.Cookies(name) }
func (c *fiberCarrier) RemoteAddr() string        { return c.ctx.IP() }

func (c *fiberCarrier) MetaHeaders(prefix string) map[string]string {
	var meta map[string]string
	for name, values := range c.ctx.GetReqHeaders() {
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

func (c *fiberCarrier) Attr(key string) (any, bool) {
	v := c.ctx.Locals(key)
	return v, v != nil
}

func (c *fiberCarrier) SetAttr(key string, value any) {
	c.ctx.Locals(key, value)
}

type fiberResponseWriter struct {
	ctx *fiber.Ctx
}

var _ tokenauth.ResponseWriter = (*fiberResponseWriter)(nil)

func (w *fiberResponseWriter) SetHeader(key, value string) {
	w.ctx.Set(key, value)
}

func (w *fiberResponseWriter) Redirect(url string, status int) error {
	return w.ctx.Redirect(url, status)
}

func (w *fiberResponseWriter) JSON(status int, body any) error {
	return w.ctx.Status(status).JSON(body)
}

func (w *fiberResponseWriter) Text(status int, body string) error {
	return w.ctx.Status(status).SendString(body)
}
