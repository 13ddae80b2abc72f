package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roeyazroel/linear-task/internal/config"
)

type selectionRecord struct {
	ProjectID string `json:"projectId"`
	TeamID    string `json:"teamId"`
}

// exerciseStore runs the shared contract against a backend.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key is absent", func(t *testing.T) {
		dst := "untouched"
		found, err := s.Load(ctx, "never-set", &dst)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, "untouched", dst)

		value, found, err := LoadString(ctx, s, "never-set")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, value)
	})

	t.Run("save then load", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, KeyAPIKey, "lin_api_123"))
		value, found, err := LoadString(ctx, s, KeyAPIKey)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "lin_api_123", value)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, KeyLastTeamID, "t1"))
		require.NoError(t, s.Save(ctx, KeyLastTeamID, "t2"))
		value, _, err := LoadString(ctx, s, KeyLastTeamID)
		require.NoError(t, err)
		assert.Equal(t, "t2", value)
	})

	t.Run("empty string is found", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, KeyLastAssigneeID, ""))
		value, found, err := LoadString(ctx, s, KeyLastAssigneeID)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Empty(t, value)
	})

	t.Run("structured value", func(t *testing.T) {
		in := selectionRecord{ProjectID: "p1", TeamID: "t1"}
		require.NoError(t, s.Save(ctx, "record", in))

		var out selectionRecord
		found, err := s.Load(ctx, "record", &out)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, in, out)
	})

	t.Run("type mismatch is an error", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, "number", 42))
		var out string
		_, err := s.Load(ctx, "number", &out)
		assert.Error(t, err)
	})
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemoryStore()
	assert.ErrorIs(t, s.Save(ctx, "k", "v"), context.Canceled)
	_, err := s.Load(ctx, "k", new(string))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "store.db"))
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestSQLiteStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	ctx := context.Background()

	first, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, KeyLastProjectID, "p1"))
	require.NoError(t, first.Close())

	second, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer second.Close()

	value, found, err := LoadString(ctx, second, KeyLastProjectID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "p1", value)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("LINEAR_TASK_TEST_REDIS_URL")
	if url == "" {
		t.Skip("LINEAR_TASK_TEST_REDIS_URL not set")
	}
	s, err := NewRedisStore(context.Background(), url, "linear-task-test:"+t.Name()+":")
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{Backend: config.BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, config.StoreConfig{Backend: config.BackendSQLite, Path: filepath.Join(t.TempDir(), "s.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.StoreConfig{Backend: "etcd"})
	assert.Error(t, err)
}
