package purger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabledb/pkg/listener"
	"tabledb/pkg/objectstore"
)

func TestFilePurger_PurgeTable(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemory()
	for _, k := range []string{
		"space/1/table/2/000001.sst",
		"space/1/table/2/000002.sst",
		"space/1/table/20/000001.sst",
	} {
		require.NoError(t, store.Put(ctx, k, []byte("x")))
	}

	p := New(store, 4, nil)
	p.Start(ctx)
	require.NoError(t, p.PurgeTable(ctx, 1, 2))
	p.Stop()

	keys, err := store.List(ctx, "space/1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"space/1/table/20/000001.sst"}, keys)
}

func TestFilePurger_StoppedRejects(t *testing.T) {
	p := New(objectstore.NewMemory(), 1, nil)
	p.Start(context.Background())
	p.Stop()

	err := p.Purge(context.Background(), "space/1/")
	assert.ErrorIs(t, err, listener.ErrStopped)
}
