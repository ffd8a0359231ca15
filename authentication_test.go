package tokenauth_test

import (
	"context"
	"testing"

	tokenauth "github.com/goliatone/go-tokenauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAuthenticatedValidation(t *testing.T) {
	account := &tokenauth.Account{ID: "user-1"}

	_, err := tokenauth.NewAuthenticated(nil, nil, &tokenauth.Token{AccessToken: "x"})
	assert.Error(t, err)

	_, err = tokenauth.NewAuthenticated(account, nil, nil)
	assert.Error(t, err)

	_, err = tokenauth.NewAuthenticated(account, nil, &tokenauth.Token{})
	assert.Error(t, err)

	auth, err := tokenauth.NewAuthenticated(account, nil, &tokenauth.Token{UID: "user-1", AccessToken: "x"})
	require.NoError(t, err)
	assert.True(t, auth.IsAuthenticated())
}

func TestAuthenticationStates(t *testing.T) {
	account := &tokenauth.Account{ID: "user-1", Granted: []string{"ROLE_USER"}}

	anon := tokenauth.NewAnonymous()
	assert.True(t, anon.IsEmpty())
	assert.False(t, anon.IsAuthenticated())
	assert.Empty(t, anon.UID())
	assert.Empty(t, anon.Authorities())

	unauth := tokenauth.NewUnauthenticated(account)
	assert.False(t, unauth.IsEmpty())
	assert.False(t, unauth.IsAuthenticated())
	assert.Equal(t, "user-1", unauth.UID())
}

func TestAuthenticationAuthoritiesResolvedOnce(t *testing.T) {
	account := &tokenauth.Account{ID: "user-1", Granted: []string{"ROLE_USER"}}
	auth, err := tokenauth.NewAuthenticated(account, nil, &tokenauth.Token{UID: "user-1", AccessToken: "x"})
	require.NoError(t, err)

	first := auth.Authorities()
	assert.Equal(t, []string{"ROLE_USER"}, first)

	// Later mutations of the principal do not change the resolved set.
	account.Granted = append(account.Granted, "ROLE_ADMIN")
	second := auth.Authorities()
	assert.Equal(t, first, second)
}

func TestAuthenticationExplicitAuthoritiesWin(t *testing.T) {
	account := &tokenauth.Account{ID: "user-1", Granted: []string{"ROLE_USER"}}
	auth, err := tokenauth.NewAuthenticated(account, []string{"ROLE_SERVICE"}, &tokenauth.Token{UID: "user-1", AccessToken: "x"})
	require.NoError(t, err)

	assert.Equal(t, []string{"ROLE_SERVICE"}, auth.Authorities())
}

func TestAuthenticationDetailsAttachOnce(t *testing.T) {
	auth := tokenauth.NewUnauthenticated(&tokenauth.Account{ID: "user-1"})
	assert.Nil(t, auth.Details())

	auth.SetDetails(&tokenauth.RequestDetails{DeviceID: "device-1"})
	auth.SetDetails(&tokenauth.RequestDetails{DeviceID: "device-2"})

	require.NotNil(t, auth.Details())
	assert.Equal(t, "device-1", auth.Details().DeviceID)
}

func TestAuthenticationStatusFlagsFromToken(t *testing.T) {
	flags := tokenauth.StatusFlags{MFALevel: 2, Locked: true}
	auth, err := tokenauth.NewAuthenticated(
		&tokenauth.Account{ID: "user-1"},
		nil,
		&tokenauth.Token{UID: "user-1", AccessToken: "x", StatusFlags: flags},
	)
	require.NoError(t, err)
	assert.Equal(t, flags, auth.StatusFlags())

	assert.True(t, tokenauth.NewAnonymous().StatusFlags().IsZero())
}

func TestContextRoundTrip(t *testing.T) {
	auth, err := tokenauth.NewAuthenticated(
		&tokenauth.Account{ID: "user-1"},
		nil,
		&tokenauth.Token{UID: "user-1", AccessToken: "x"},
	)
	require.NoError(t, err)

	ctx := tokenauth.WithAuthentication(context.Background(), auth)

	got, ok := tokenauth.AuthenticationFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, auth, got)
	assert.Equal(t, "user-1", tokenauth.UIDFromContext(ctx))

	_, ok = tokenauth.AuthenticationFromContext(context.Background())
	assert.False(t, ok)
	assert.Empty(t, tokenauth.UIDFromContext(context.Background()))

	// An unauthenticated context never yields a uid.
	anon := tokenauth.WithAuthentication(context.Background(), tokenauth.NewUnauthenticated(&tokenauth.Account{ID: "user-1"}))
	assert.Empty(t, tokenauth.UIDFromContext(anon))
}
