package objectstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	local, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	return map[string]Store{
		"local":  local,
		"memory": NewMemory(),
	}
}

func TestStore_PutGetList(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, "space/1/table/2/a", []byte("a")))
			require.NoError(t, s.Put(ctx, "space/1/table/2/b", []byte("b")))
			require.NoError(t, s.Put(ctx, "space/1/table/3/a", []byte("c")))
			require.NoError(t, s.Put(ctx, "space/1/table/2/a", []byte("a2")))

			data, err := s.Get(ctx, "space/1/table/2/a")
			require.NoError(t, err)
			assert.Equal(t, []byte("a2"), data)

			keys, err := s.List(ctx, "space/1/table/2/")
			require.NoError(t, err)
			assert.Equal(t, []string{"space/1/table/2/a", "space/1/table/2/b"}, keys)

			_, err = s.Get(ctx, "space/9/missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []string{"p/x/1", "p/x/2", "p/y/1"} {
				require.NoError(t, s.Put(ctx, k, []byte(k)))
			}

			n, err := DeletePrefix(ctx, s, "p/x/")
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			keys, err := s.List(ctx, "p/")
			require.NoError(t, err)
			assert.Equal(t, []string{"p/y/1"}, keys)

			require.NoError(t, s.Delete(ctx, "p/x/1"))
		})
	}
}

func TestStore_InvalidKey(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"", "/abs", "a/../b", "dir/"} {
				assert.ErrorIs(t, s.Put(ctx, key, nil), ErrInvalidKey, key)
			}
		})
	}
}

func TestLocal_NoTempLeftovers(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocal(root)
	require.NoError(t, err)

	require.NoError(t, s.Put(context.Background(), "manifest/snapshot", []byte("v1")))
	require.NoError(t, s.Put(context.Background(), "manifest/snapshot", []byte("v2")))

	entries, err := os.ReadDir(filepath.Join(root, "manifest"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "snapshot", entries[0].Name())
}
