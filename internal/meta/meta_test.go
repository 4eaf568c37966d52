package meta

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"tabledb/internal/table"
	"tabledb/pkg/objectstore"
	"tabledb/pkg/schema"
	"tabledb/pkg/types"
	"tabledb/pkg/wal"
)

func addTable(space types.SpaceID, id types.TableID, name string) AddTable {
	opts := table.DefaultOptions()
	opts.TTL = 3 * 24 * time.Hour
	return AddTable{
		SpaceID:   space,
		ID:        id,
		TableName: name,
		Schema: schema.Schema{
			Version: 2,
			Columns: []schema.ColumnSchema{
				{Name: "host", Kind: schema.KindString, IsKey: true, Comment: "origin"},
				{Name: "value", Kind: schema.KindFloat64, Nullable: true},
			},
		},
		Options:       opts,
		StartSequence: 17,
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	updates := []MetaUpdate{
		addTable(7, 42, "t1"),
		DropTable{SpaceID: 7, ID: 42, TableName: "t1"},
	}

	for _, u := range updates {
		t.Run(u.Kind(), func(t *testing.T) {
			p := NewPayload(u)
			var buf bytes.Buffer
			require.NoError(t, p.EncodeTo(&buf))
			assert.Equal(t, p.EncodeSize(), buf.Len())

			got, err := PayloadDecoder{}.Decode(buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, u, got)
		})
	}
}

func TestCodec_SkipsUnknownFields(t *testing.T) {
	b, err := EncodeMetaUpdate(nil, DropTable{SpaceID: 1, ID: 2, TableName: "x"})
	require.NoError(t, err)
	b = protowire.AppendTag(b, 15, protowire.VarintType)
	b = protowire.AppendVarint(b, 99)

	got, err := DecodeMetaUpdate(b)
	require.NoError(t, err)
	assert.Equal(t, DropTable{SpaceID: 1, ID: 2, TableName: "x"}, got)
}

func TestCodec_Errors(t *testing.T) {
	_, err := DecodeMetaUpdate(nil)
	assert.ErrorIs(t, err, ErrEmptyUpdate)

	_, err = DecodeMetaUpdate([]byte{0x0a, 0x05, 0x01})
	assert.Error(t, err)

	_, err = EncodeMetaUpdate(nil, nil)
	assert.ErrorIs(t, err, ErrUnknownUpdate)
}

func openManifest(t *testing.T, dir string, store objectstore.Store, every int) (*WALManifest, *wal.LevelDBManager) {
	t.Helper()
	w, err := wal.New(dir)
	require.NoError(t, err)
	m, err := OpenWALManifest(context.Background(), w, store, Options{SnapshotEvery: every})
	require.NoError(t, err)
	return m, w
}

func closeManifest(t *testing.T, m *WALManifest, w *wal.LevelDBManager) {
	t.Helper()
	require.NoError(t, m.Close())
	require.NoError(t, w.Close())
}

func TestWALManifest_ReplayAfterReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := objectstore.NewMemory()

	m, w := openManifest(t, dir, store, 0)
	require.NoError(t, m.StoreUpdate(ctx, addTable(7, 42, "t1")))
	require.NoError(t, m.StoreUpdate(ctx, addTable(7, 43, "t2")))
	require.NoError(t, m.StoreUpdate(ctx, addTable(8, 1, "other")))
	require.NoError(t, m.StoreUpdate(ctx, DropTable{SpaceID: 7, ID: 43, TableName: "t2"}))

	meta, ok := m.TableMeta(7, 42)
	require.True(t, ok)
	assert.Equal(t, "t1", meta.TableName)
	closeManifest(t, m, w)

	m, w = openManifest(t, dir, store, 0)
	defer closeManifest(t, m, w)

	meta, ok = m.TableMeta(7, 42)
	require.True(t, ok)
	assert.Equal(t, addTable(7, 42, "t1"), meta)
	_, ok = m.TableMeta(7, 43)
	assert.False(t, ok)
	assert.Len(t, m.Tables(7), 1)
	assert.Len(t, m.Tables(8), 1)
}

func TestWALManifest_Snapshot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := objectstore.NewMemory()

	m, w := openManifest(t, dir, store, 2)
	for id := types.TableID(1); id <= 3; id++ {
		require.NoError(t, m.StoreUpdate(ctx, addTable(1, id, "t")))
	}

	_, err := store.Get(ctx, SnapshotKey)
	require.NoError(t, err)

	// entries folded into the snapshot are gone, the third one is still logged
	it, err := wal.ReadFrom[MetaUpdate](ctx, w, manifestRegion, types.MinSequenceNumber, PayloadDecoder{})
	require.NoError(t, err)
	var remaining []types.SequenceNumber
	for it.Next() {
		remaining = append(remaining, it.Entry().Sequence)
	}
	require.NoError(t, it.Err())
	it.Release()
	assert.Equal(t, []types.SequenceNumber{3}, remaining)
	closeManifest(t, m, w)

	m, w = openManifest(t, dir, store, 2)
	defer closeManifest(t, m, w)
	assert.Len(t, m.Tables(1), 3)

	require.NoError(t, m.StoreUpdate(ctx, DropTable{SpaceID: 1, ID: 2}))
	assert.Len(t, m.Tables(1), 2)
}

func TestWALManifest_Closed(t *testing.T) {
	w, err := wal.NewMemory()
	require.NoError(t, err)
	defer w.Close()

	m, err := OpenWALManifest(context.Background(), w, objectstore.NewMemory(), Options{})
	require.NoError(t, err)
	require.NoError(t, m.Close())

	err = m.StoreUpdate(context.Background(), addTable(1, 1, "t"))
	assert.ErrorIs(t, err, ErrManifestClosed)
}
