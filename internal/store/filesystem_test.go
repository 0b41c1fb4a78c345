package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type probeDoc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestFileSystemRepository_PutGetRoundtrip(t *testing.T) {
	repo := NewFileSystemRepository(t.TempDir())
	ctx := context.Background()

	changed, err := repo.Put(ctx, "account/SHIBUYA/2025-01-15", probeDoc{Name: "shibuya", Count: 3})
	require.NoError(t, err)
	require.True(t, changed)

	var got probeDoc
	require.NoError(t, repo.Get(ctx, "account/SHIBUYA/2025-01-15", &got))
	require.Equal(t, probeDoc{Name: "shibuya", Count: 3}, got)
}

func TestFileSystemRepository_PutSkipsIdenticalContent(t *testing.T) {
	repo := NewFileSystemRepository(t.TempDir())
	ctx := context.Background()
	doc := probeDoc{Name: "umeda", Count: 1}

	changed, err := repo.Put(ctx, "timeseries/UMEDA", doc)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = repo.Put(ctx, "timeseries/UMEDA", doc)
	require.NoError(t, err)
	require.False(t, changed)

	changed, err = repo.Put(ctx, "timeseries/UMEDA", probeDoc{Name: "umeda", Count: 2})
	require.NoError(t, err)
	require.True(t, changed)
}

func TestFileSystemRepository_GetMissing(t *testing.T) {
	repo := NewFileSystemRepository(t.TempDir())
	var out probeDoc
	err := repo.Get(context.Background(), "account/NOPE/2025-01-01", &out)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFileSystemRepository_RejectsTraversalKeys(t *testing.T) {
	repo := NewFileSystemRepository(t.TempDir())
	ctx := context.Background()

	for _, key := range []string{"", "../escape", "/abs/path", "a/../../b"} {
		_, err := repo.Put(ctx, key, probeDoc{})
		require.Error(t, err, "key %q", key)
	}
}

func TestFileSystemRepository_ListUnderPrefix(t *testing.T) {
	repo := NewFileSystemRepository(t.TempDir())
	ctx := context.Background()

	for _, key := range []string{
		"posts/SHIBUYA/2025/01/14",
		"posts/SHIBUYA/2025/01/15",
		"posts/UMEDA/2025/01/15",
		"reels/SHIBUYA/2025/01/15",
	} {
		_, err := repo.Put(ctx, key, probeDoc{Name: key})
		require.NoError(t, err)
	}

	keys, err := repo.List(ctx, "posts/SHIBUYA")
	require.NoError(t, err)
	require.Equal(t, []string{"posts/SHIBUYA/2025/01/14", "posts/SHIBUYA/2025/01/15"}, keys)

	keys, err = repo.List(ctx, "posts/NOWHERE")
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestFileSystemRepository_WriteLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	repo := NewFileSystemRepository(root)
	ctx := context.Background()

	_, err := repo.Put(ctx, "timeseries/SHIBUYA", probeDoc{Count: 1})
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(root, "timeseries"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "SHIBUYA.json", entries[0].Name())
}

func TestMemoryRepository_MatchesFilesystemSemantics(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	changed, err := repo.Put(ctx, "timeseries/A", probeDoc{Count: 1})
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = repo.Put(ctx, "timeseries/A", probeDoc{Count: 1})
	require.NoError(t, err)
	require.False(t, changed)

	var out probeDoc
	require.NoError(t, repo.Get(ctx, "timeseries/A", &out))
	require.Equal(t, 1, out.Count)

	require.ErrorIs(t, repo.Get(ctx, "timeseries/B", &out), ErrNotFound)

	_, err = repo.Put(ctx, "timeseries/AB", probeDoc{})
	require.NoError(t, err)
	keys, err := repo.List(ctx, "timeseries/A")
	require.NoError(t, err)
	require.Equal(t, []string{"timeseries/A"}, keys)
}
