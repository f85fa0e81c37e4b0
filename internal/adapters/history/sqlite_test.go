package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStoreRecordsObservations(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordObservation(ctx, "m1", "alice@example.com", false))
	require.NoError(t, store.RecordObservation(ctx, "m2", "alice@example.com", true))
	require.NoError(t, store.RecordObservation(ctx, "m3", "bob@example.com", false))

	profile, err := store.GetProfile(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, int64(2), profile.TotalEmailsSeen)
	assert.Equal(t, int64(1), profile.FlaggedEmailsSeen)
	assert.False(t, profile.FirstSeenAt.IsZero())
}

func TestSQLiteStoreIsIdempotentPerMessage(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.RecordObservation(ctx, "m1", "alice@example.com", true))
	}

	profile, err := store.GetProfile(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, int64(1), profile.TotalEmailsSeen)
	assert.Equal(t, int64(1), profile.FlaggedEmailsSeen)
}

func TestSQLiteStoreUnknownSender(t *testing.T) {
	store := newTestSQLiteStore(t)

	profile, err := store.GetProfile(context.Background(), "nobody@example.com")

	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.RecordObservation(ctx, "m1", "alice@example.com", true))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	profile, err := reopened.GetProfile(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, int64(1), profile.TotalEmailsSeen)
}
