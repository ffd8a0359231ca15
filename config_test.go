package tokenauth_test

import (
	"testing"
	"time"

	tokenauth "github.com/goliatone/go-tokenauth"
	"github.com/stretchr/testify/assert"
)

func TestNewOptionsDefaults(t *testing.T) {
	o := tokenauth.NewOptions(tokenauth.Options{SigningKey: "k"})

	assert.Equal(t, tokenauth.DefaultAccessTokenTTL, o.AccessTokenTTL)
	assert.Equal(t, tokenauth.DefaultRefreshTokenTTL, o.RefreshTokenTTL)
	assert.Equal(t, tokenauth.DefaultLeeway, o.Leeway)
	assert.Equal(t, tokenauth.DefaultRolePrefix, o.RolePrefix)
	assert.Equal(t, tokenauth.DefaultTokenHeaderName, o.TokenHeaderName)
	assert.Equal(t, tokenauth.DefaultCookieName, o.CookieName)

	// The bearer prefix is opt-in: raw token headers are a supported mode.
	assert.Empty(t, o.BearerPrefix)

	assert.NoError(t, o.Validate())
}

func TestNewOptionsOverrides(t *testing.T) {
	o := tokenauth.NewOptions(tokenauth.Options{
		SigningKey:      "k",
		AccessTokenTTL:  10 * time.Minute,
		Leeway:          -1,
		RolePrefix:      "R_",
		TokenHeaderName: "X-Token",
	})

	assert.Equal(t, 10*time.Minute, o.AccessTokenTTL)
	assert.Equal(t, time.Duration(0), o.Leeway)
	assert.Equal(t, "R_", o.RolePrefix)
	assert.Equal(t, "X-Token", o.TokenHeaderName)
}

func TestOptionsValidate(t *testing.T) {
	o := tokenauth.NewOptions(tokenauth.Options{SigningKey: "k"})
	o.AccessTokenTTL = 0
	assert.Error(t, o.Validate())

	o = tokenauth.NewOptions(tokenauth.Options{SigningKey: "k"})
	o.TokenHeaderName = ""
	assert.Error(t, o.Validate())
}
