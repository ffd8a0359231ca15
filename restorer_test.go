package tokenauth_test

import (
	"context"
	"strings"
	"testing"

	tokenauth "github.com/goliatone/go-tokenauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCarrier is an in-memory Carrier for exercising extraction and the
// per-request cache without a transport.
type fakeCarrier struct {
	query   map[string]string
	headers map[string]string
	cookies map[string]string
	remote  string

	attrs map[string]any
}

func newFakeCarrier() *fakeCarrier {
	return &fakeCarrier{
		query:   map[string]string{},
		headers: map[string]string{},
		cookies: map[string]string{},
		remote:  "203.0.113.7:55001",
		attrs:   map[string]any{},
	}
}

func (c *fakeCarrier) Query(name string) string  { return c.query[name] }
func (c *fakeCarrier) Header(name string) string { return c.headers[name] }
func (c *fakeCarrier) Cookie(name string) string { return c.cookies[name] }
func (c *fakeCarrier) RemoteAddr() string        { return c.remote }

func (c *fakeCarrier) MetaHeaders(prefix string) map[string]string {
	out := map[string]string{}
	for k, v := range c.headers {
		if name := strings.ToLower(k); strings.HasPrefix(name, prefix) {
			out[name] = v
		}
	}
	return out
}

func (c *fakeCarrier) Attr(key string) (any, bool) {
	v, ok := c.attrs[key]
	return v, ok
}

func (c *fakeCarrier) SetAttr(key string, value any) { c.attrs[key] = value }

func restorerOptions(bearerPrefix string) *tokenauth.Options {
	return tokenauth.NewOptions(tokenauth.Options{
		SigningKey:      string(testSigningKey),
		QueryArgName:    "jwt",
		TokenHeaderName: "Authorization",
		BearerPrefix:    bearerPrefix,
		CookieName:      "access_token",
	})
}

func TestRestorerExtractToken(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		setup  func(*fakeCarrier)
		want   string
	}{
		{
			"query wins over header and cookie",
			"Bearer",
			func(c *fakeCarrier) {
				c.query["jwt"] = "from-query"
				c.headers["Authorization"] = "Bearer from-header"
				c.cookies["access_token"] = "from-cookie"
			},
			"from-query",
		},
		{
			"bearer prefix stripped",
			"Bearer",
			func(c *fakeCarrier) { c.headers["Authorization"] = "Bearer abc123" },
			"abc123",
		},
		{
			"bearer prefix case-insensitive",
			"Bearer",
			func(c *fakeCarrier) { c.headers["Authorization"] = "bearer abc123" },
			"abc123",
		},
		{
			"no prefix configured takes whole value",
			"",
			func(c *fakeCarrier) { c.headers["Authorization"] = "xyz789" },
			"xyz789",
		},
		{
			"prefixed header without prefix is not a hit",
			"Bearer",
			func(c *fakeCarrier) {
				c.headers["Authorization"] = "Token abc123"
				c.cookies["access_token"] = "from-cookie"
			},
			"from-cookie",
		},
		{
			"cookie fallback",
			"Bearer",
			func(c *fakeCarrier) { c.cookies["access_token"] = "from-cookie" },
			"from-cookie",
		},
		{
			"nothing anywhere",
			"Bearer",
			func(c *fakeCarrier) {},
			"",
		},
		{
			"blank query falls through",
			"Bearer",
			func(c *fakeCarrier) {
				c.query["jwt"] = "   "
				c.headers["Authorization"] = "Bearer abc123"
			},
			"abc123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newManagerFixture(t)
			r := tokenauth.NewRestorer(f.manager, restorerOptions(tt.prefix))

			c := newFakeCarrier()
			tt.setup(c)
			assert.Equal(t, tt.want, r.ExtractToken(c))
		})
	}
}

func TestRestorerLoadSuccess(t *testing.T) {
	account := testAccount("user-1", "s3cret")
	f := newManagerFixture(t, account)

	token, err := f.manager.Create(context.Background(), nil, tokenauth.NewUnauthenticated(account))
	require.NoError(t, err)

	r := tokenauth.NewRestorer(f.manager, restorerOptions("Bearer"))

	c := newFakeCarrier()
	c.headers["Authorization"] = "Bearer " + token.AccessToken
	c.headers["X-Device-ID"] = "device-9"
	c.headers["x-m-channel"] = "mobile"

	auth := r.Load(context.Background(), c)
	require.NotNil(t, auth)
	assert.True(t, auth.IsAuthenticated())
	assert.Equal(t, "user-1", auth.UID())
	assert.Nil(t, r.Failure(c))

	details := auth.Details()
	require.NotNil(t, details)
	assert.Equal(t, "device-9", details.DeviceID)
	assert.Equal(t, "203.0.113.7:55001", details.RemoteAddr)
	assert.Equal(t, "mobile", details.Meta["x-m-channel"])

	// Second load returns the same instance, no re-verification.
	again := r.Load(context.Background(), c)
	assert.Same(t, auth, again)
}

func TestRestorerLoadNoToken(t *testing.T) {
	f := newManagerFixture(t)
	r := tokenauth.NewRestorer(f.manager, restorerOptions("Bearer"))

	c := newFakeCarrier()
	auth := r.Load(context.Background(), c)
	require.NotNil(t, auth)
	assert.False(t, auth.IsAuthenticated())
	assert.True(t, auth.IsEmpty())
	assert.Nil(t, r.Failure(c))

	// The anonymous context is cached too.
	assert.Same(t, auth, r.Load(context.Background(), c))
}

func TestRestorerLoadInvalidToken(t *testing.T) {
	f := newManagerFixture(t)
	r := tokenauth.NewRestorer(f.manager, restorerOptions("Bearer"))

	c := newFakeCarrier()
	c.headers["Authorization"] = "Bearer not.a.token"

	auth := r.Load(context.Background(), c)
	require.NotNil(t, auth)
	assert.False(t, auth.IsAuthenticated())

	failure := r.Failure(c)
	require.NotNil(t, failure)
	assert.Equal(t, tokenauth.KindInvalidToken, failure.Kind)

	// Repeated loads return the same cached anonymous value without
	// retrying the parse.
	assert.Same(t, auth, r.Load(context.Background(), c))
	assert.Same(t, auth, r.Load(context.Background(), c))
}

func TestRestorerLoadBlockedAccount(t *testing.T) {
	account := testAccount("user-1", "s3cret")
	account.IsDisabled = true
	f := newManagerFixture(t, account)

	token, err := f.manager.Create(context.Background(), nil, tokenauth.NewUnauthenticated(account))
	require.NoError(t, err)

	r := tokenauth.NewRestorer(f.manager, restorerOptions("Bearer"))

	c := newFakeCarrier()
	c.headers["Authorization"] = "Bearer " + token.AccessToken
	c.headers["X-Device-ID"] = "device-9"

	auth := r.Load(context.Background(), c)
	require.NotNil(t, auth)

	// The context identifies the account for audit but is not authenticated.
	assert.Equal(t, "user-1", auth.UID())
	assert.False(t, auth.IsAuthenticated())
	require.NotNil(t, auth.Details())
	assert.Equal(t, "device-9", auth.Details().DeviceID)

	failure := r.Failure(c)
	require.NotNil(t, failure)
	assert.Equal(t, tokenauth.KindAccountDisabled, failure.Kind)
	assert.Same(t, auth, failure.Authentication)
}
