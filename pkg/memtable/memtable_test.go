package memtable

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTracker struct {
	total atomic.Int64
}

func (c *countingTracker) Track(delta int64) { c.total.Add(delta) }

func TestMemtable_UpsertAndGet(t *testing.T) {
	tr := &countingTracker{}
	mt := New(1<<20, tr)

	require.NoError(t, mt.Upsert([]byte("b"), []byte("v1"), 1))
	require.NoError(t, mt.Upsert([]byte("a"), []byte("v2"), 2))

	it, ok := mt.Get([]byte("b"))
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), it.Value)
	assert.Equal(t, uint64(1), it.SeqN)

	_, ok = mt.Get([]byte("c"))
	assert.False(t, ok)

	assert.Equal(t, 2, mt.Len())
	assert.Equal(t, uint64(2), mt.LastSequence())
	assert.Equal(t, int64(mt.Size()), tr.total.Load())
}

func TestMemtable_OverwriteAdjustsSize(t *testing.T) {
	tr := &countingTracker{}
	mt := New(0, tr)

	require.NoError(t, mt.Upsert([]byte("k"), []byte("long-value"), 1))
	require.NoError(t, mt.Upsert([]byte("k"), []byte("v"), 2))

	assert.Equal(t, uint64(1+1+seqNSize), mt.Size())
	assert.Equal(t, int64(mt.Size()), tr.total.Load())

	// stale replay must not win over a newer version
	require.NoError(t, mt.Upsert([]byte("k"), []byte("stale"), 1))
	it, _ := mt.Get([]byte("k"))
	assert.Equal(t, []byte("v"), it.Value)

	mt.Release()
	assert.Equal(t, int64(0), tr.total.Load())
}

func TestMemtable_Threshold(t *testing.T) {
	mt := New(32, nil)

	err := mt.Upsert([]byte("k"), make([]byte, 64), 1)
	assert.ErrorIs(t, err, ErrTooLargeEntry)

	require.NoError(t, mt.Upsert([]byte("k1"), make([]byte, 10), 1))
	assert.False(t, mt.ShouldFlush())
	require.NoError(t, mt.Upsert([]byte("k2"), make([]byte, 10), 2))
	assert.True(t, mt.ShouldFlush())
}

func TestMemtable_SnapshotSorted(t *testing.T) {
	mt := New(0, nil)
	for i, k := range []string{"c", "a", "b"} {
		require.NoError(t, mt.Upsert([]byte(k), nil, uint64(i+1)))
	}

	items := mt.Snapshot().Sorted()
	require.Len(t, items, 3)
	for i, want := range []string{"a", "b", "c"} {
		assert.Equal(t, want, string(items[i].Key))
	}
}
