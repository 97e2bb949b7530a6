package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "used_topics.json"))
	topics, err := fs.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, topics)
}

func TestFileStore_CorruptFileIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "used_topics.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	require.Error(t, err)
}

func TestFileStore_WritesJSONArray(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "used_topics.json")
	fs := NewFileStore(path)

	require.NoError(t, fs.Save(ctx, []string{"🌀 Idea A", "💡 Ідея Б"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `["🌀 Idea A", "💡 Ідея Б"]`, string(data))

	topics, err := fs.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"🌀 Idea A", "💡 Ідея Б"}, topics)
}

func TestFileStore_SaveEmptyWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "used_topics.json")
	require.NoError(t, NewFileStore(path).Save(context.Background(), nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(data))
}

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "topics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_PreservesInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	var want []string
	for i := 0; i < 50; i++ {
		// descending text so lexical order differs from insertion order
		want = append(want, fmt.Sprintf("topic %02d", 99-i))
	}
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestSQLiteStore_SaveReplacesContents(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	require.NoError(t, s.Save(ctx, []string{"a", "b", "c"}))
	require.NoError(t, s.Save(ctx, []string{"b", "c", "d"}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c", "d"}, got)
}
