package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/reaction-reach/internal/types"
)

func TestFileStore_SaveAndLoadRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	sess := NewContext(time.Now().UTC().Truncate(time.Second))
	sess.TrustLevel = types.TrustAuthenticated
	sess.LastValidatedAt = time.Now().UTC().Truncate(time.Second)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sess))

	loaded, err := store.Load(ctx, sess.ContextID)
	require.NoError(t, err)
	assert.Equal(t, sess.ContextID, loaded.ContextID)
	assert.Equal(t, types.TrustAuthenticated, loaded.TrustLevel)
	assert.True(t, sess.LastValidatedAt.Equal(loaded.LastValidatedAt))
}

func TestFileStore_LoadMissingReturnsNotFound(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_SaveOverwrites(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	sess := NewContext(time.Now())
	require.NoError(t, store.Save(ctx, sess))

	sess.TrustLevel = types.TrustFlagged
	require.NoError(t, store.Save(ctx, sess))

	loaded, err := store.Load(ctx, sess.ContextID)
	require.NoError(t, err)
	assert.Equal(t, types.TrustFlagged, loaded.TrustLevel)
}

func TestFileStore_SaveWithoutContextID(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	err = store.Save(context.Background(), &types.Session{})
	assert.Error(t, err)
}

func TestNewContext_StartsUnauthenticated(t *testing.T) {
	sess := NewContext(time.Now())
	assert.NotEmpty(t, sess.ContextID)
	assert.Equal(t, types.TrustUnauthenticated, sess.TrustLevel)
}
