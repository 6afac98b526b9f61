package checkpoint

import (
	"context"
	"errors"
	"path"
	"testing"

	"github.com/bridgelock/listener/db"
	"github.com/bridgelock/listener/log"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := path.Join(t.TempDir(), "checkpointTest.sqlite")
	store, err := NewStore(log.WithFields("test", t.Name()), dbPath)
	require.NoError(t, err)
	return store
}

func TestLoadEmpty(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Load(context.Background())
	require.True(t, errors.Is(err, db.ErrNotFound))
}

func TestSaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, 1052))
	blockNum, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1052), blockNum)

	require.NoError(t, store.Save(ctx, 1060))
	blockNum, err = store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1060), blockNum)
}

func TestSaveRejectsRegression(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, 1052))
	require.Error(t, store.Save(ctx, 1000))

	// stored value untouched
	blockNum, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1052), blockNum)
}

func TestSurvivesReopen(t *testing.T) {
	dbPath := path.Join(t.TempDir(), "checkpointReopen.sqlite")
	ctx := context.Background()

	store, err := NewStore(log.WithFields("test", t.Name()), dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, 42))

	reopened, err := NewStore(log.WithFields("test", t.Name()), dbPath)
	require.NoError(t, err)
	blockNum, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(42), blockNum)
}
