package bunstore_test

import (
	"context"
	"database/sql"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	tokenauth "github.com/goliatone/go-tokenauth"
	"github.com/goliatone/go-tokenauth/provider/bunstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestStore(t *testing.T) *bunstore.Store {
	t.Helper()

	// One shared in-memory database per test, so pooled connections see the
	// same schema without tests seeing each other's rows.
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { sqldb.Close() })

	db := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, bunstore.CreateTable(context.Background(), db))

	return bunstore.NewStore(db)
}

func TestStoreRegisterAndFind(t *testing.T) {
	store := newTestStore(t)

	record, err := store.Register(context.Background(), "user-1", "s3cret", "ROLE_USER", "view:user.*")
	require.NoError(t, err)
	assert.NotEqual(t, "", record.ID.String())

	principal, err := store.FindByUID(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, "user-1", principal.UID())
	assert.True(t, principal.Enabled())
	assert.False(t, principal.Locked())
	assert.Equal(t, []string{"ROLE_USER", "view:user.*"}, principal.Authorities())
	assert.NoError(t, tokenauth.ComparePasswordAndHash("s3cret", principal.PasswordHash()))
}

func TestStoreFindMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.FindByUID(context.Background(), "nobody")
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))

	_, err = store.FindByUID(context.Background(), "  ")
	require.Error(t, err)
	assert.False(t, goerrors.IsNotFound(err))
}

func TestStoreSetPassword(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Register(context.Background(), "user-1", "old-password")
	require.NoError(t, err)

	require.NoError(t, store.SetPassword(context.Background(), "user-1", "new-password"))

	principal, err := store.FindByUID(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Error(t, tokenauth.ComparePasswordAndHash("old-password", principal.PasswordHash()))
	assert.NoError(t, tokenauth.ComparePasswordAndHash("new-password", principal.PasswordHash()))
}

func TestStoreBacksManagerRestore(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Register(context.Background(), "user-1", "s3cret", "ROLE_USER")
	require.NoError(t, err)

	opts := tokenauth.NewOptions(tokenauth.Options{SigningKey: "test-signing-key"})
	codec := tokenauth.NewCodec([]byte(opts.SigningKey))
	manager := tokenauth.NewManager(codec, store, opts)

	principal, err := store.FindByUID(context.Background(), "user-1")
	require.NoError(t, err)

	token, err := manager.Create(context.Background(), nil, tokenauth.NewUnauthenticated(principal))
	require.NoError(t, err)

	auth, err := manager.Restore(context.Background(), token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", auth.UID())
	assert.Contains(t, auth.Authorities(), "ROLE_USER")
}
