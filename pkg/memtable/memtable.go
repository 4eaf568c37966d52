package memtable

import (
	"bytes"
	"errors"
	"sync/atomic"

	"github.com/zhangyunhao116/skipmap"

	"tabledb/pkg/clock"
)

var (
	ErrTooLargeEntry = errors.New("entry is too large")
)

type concurrentSet = skipmap.FuncMap[[]byte, Item]

// Tracker receives memory usage deltas.
type Tracker interface {
	Track(delta int64)
}

type nopTracker struct{}

func (nopTracker) Track(int64) {}

// Memtable buffers the latest version of every row key of one table.
// Writers must be serialized by the caller, readers may run concurrently.
type Memtable struct {
	threshold uint64
	tracker   Tracker

	size    atomic.Uint64
	lastSeq clock.AtomicClock

	underlying *concurrentSet
}

// New creates a memtable that reports flush pressure once it holds
// threshold bytes. A nil tracker disables usage propagation.
func New(threshold uint64, tracker Tracker) *Memtable {
	if tracker == nil {
		tracker = nopTracker{}
	}
	return &Memtable{
		threshold: threshold,
		tracker:   tracker,
		underlying: skipmap.NewFunc[[]byte, Item](func(a, b []byte) bool {
			return bytes.Compare(a, b) < 0
		}),
	}
}

func (mt *Memtable) Get(k []byte) (Item, bool) {
	return mt.underlying.Load(k)
}

// Upsert stores value under k at sequence seqN. Older sequences than the one
// already stored for k are ignored, which keeps WAL replay idempotent.
func (mt *Memtable) Upsert(k, value []byte, seqN uint64) error {
	it := Item{
		Key:   k,
		Value: value,
		SeqN:  seqN,
	}
	entSize := it.size()
	if mt.threshold > 0 && entSize > mt.threshold {
		return ErrTooLargeEntry
	}

	delta := int64(entSize)
	if old, ok := mt.underlying.Load(k); ok {
		if old.SeqN > seqN {
			return nil
		}
		delta -= int64(old.size())
	}
	mt.underlying.Store(k, it)

	if delta >= 0 {
		mt.size.Add(uint64(delta))
	} else {
		mt.size.Add(^uint64(-delta - 1))
	}
	mt.tracker.Track(delta)

	mt.lastSeq.Advance(seqN)

	return nil
}

// Size is the number of buffered bytes.
func (mt *Memtable) Size() uint64 {
	return mt.size.Load()
}

func (mt *Memtable) Len() int {
	return mt.underlying.Len()
}

// LastSequence is the highest sequence inserted so far.
func (mt *Memtable) LastSequence() uint64 {
	return mt.lastSeq.Val()
}

// ShouldFlush reports whether the buffered bytes reached the threshold.
func (mt *Memtable) ShouldFlush() bool {
	return mt.threshold > 0 && mt.size.Load() >= mt.threshold
}

// Snapshot returns the current content ordered by key.
func (mt *Memtable) Snapshot() SortedSet {
	return &sortedSet{mt.underlying}
}

// Release returns the buffered bytes to the tracker. The memtable must not be
// used afterwards.
func (mt *Memtable) Release() {
	if sz := mt.size.Swap(0); sz > 0 {
		mt.tracker.Track(-int64(sz))
	}
}
