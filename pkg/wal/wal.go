package wal

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"tabledb/pkg/types"
)

const (
	logKeyPrefix  byte = 'l'
	metaKeyPrefix byte = 'm'

	regionPrefixLen = 1 + 8
	logKeyLen       = regionPrefixLen + 8
)

// LevelDBManager is a Manager storing every region in one LevelDB instance.
//
// Entries live under 'l' | region | seq (big endian, so iteration follows
// sequence order). The last sequence handed out for a region is kept under
// 'm' | region and written in the same batch as the entries, which keeps
// sequences monotonic after entries are deleted and across restarts.
type LevelDBManager struct {
	db      *leveldb.DB
	writeOp *opt.WriteOptions
	closed  atomic.Bool

	mu      sync.Mutex
	regions map[types.RegionID]*regionState
}

type regionState struct {
	mu   sync.Mutex
	last types.SequenceNumber
}

// New opens (or creates) a LevelDB backed WAL in dir.
func New(dir string) (*LevelDBManager, error) {
	if dir == "" {
		return nil, fmt.Errorf("empty WAL dir")
	}
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create WAL directory: %w", err)
	}

	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL at %s: %w", dir, err)
	}

	return newManager(db, true), nil
}

// NewMemory creates a WAL that lives only in memory. Used by tests and tools.
func NewMemory() (*LevelDBManager, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory WAL: %w", err)
	}

	return newManager(db, false), nil
}

func newManager(db *leveldb.DB, sync bool) *LevelDBManager {
	return &LevelDBManager{
		db:      db,
		writeOp: &opt.WriteOptions{Sync: sync},
		regions: make(map[types.RegionID]*regionState),
	}
}

func (m *LevelDBManager) Write(ctx context.Context, batch *EncodedBatch) (types.SequenceNumber, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	region, err := m.region(batch.RegionID)
	if err != nil {
		return 0, err
	}

	region.mu.Lock()
	defer region.mu.Unlock()

	if len(batch.Payloads) == 0 {
		return region.last, nil
	}

	wb := new(leveldb.Batch)
	next := region.last
	for _, payload := range batch.Payloads {
		next++
		wb.Put(logKey(batch.RegionID, next), payload)
	}
	wb.Put(metaKey(batch.RegionID), encodeSequence(next))

	if err := m.db.Write(wb, m.writeOp); err != nil {
		return 0, fmt.Errorf("failed to write WAL batch: %w", err)
	}
	region.last = next

	return next, nil
}

func (m *LevelDBManager) Read(ctx context.Context, req ReadRequest) (EntryIterator, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rng := &util.Range{Start: logKey(req.RegionID, req.Start)}
	if req.End == types.MaxSequenceNumber {
		rng.Limit = util.BytesPrefix(regionPrefix(logKeyPrefix, req.RegionID)).Limit
	} else {
		rng.Limit = logKey(req.RegionID, req.End+1)
	}

	return &levelDBIterator{iter: m.db.NewIterator(rng, nil)}, nil
}

func (m *LevelDBManager) SequenceNum(_ context.Context, regionID types.RegionID) (types.SequenceNumber, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}

	region, err := m.region(regionID)
	if err != nil {
		return 0, err
	}

	region.mu.Lock()
	defer region.mu.Unlock()

	return region.last, nil
}

func (m *LevelDBManager) MarkDeleteEntriesUpTo(ctx context.Context, regionID types.RegionID, seq types.SequenceNumber) error {
	if m.closed.Load() {
		return ErrClosed
	}

	region, err := m.region(regionID)
	if err != nil {
		return err
	}

	region.mu.Lock()
	defer region.mu.Unlock()

	rng := &util.Range{Start: logKey(regionID, types.MinSequenceNumber)}
	if seq == types.MaxSequenceNumber {
		rng.Limit = util.BytesPrefix(regionPrefix(logKeyPrefix, regionID)).Limit
	} else {
		rng.Limit = logKey(regionID, seq+1)
	}

	iter := m.db.NewIterator(rng, nil)
	defer iter.Release()

	wb := new(leveldb.Batch)
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		wb.Delete(append([]byte(nil), iter.Key()...))
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("failed to scan WAL region %d: %w", regionID, err)
	}
	if wb.Len() == 0 {
		return nil
	}

	if err := m.db.Write(wb, m.writeOp); err != nil {
		return fmt.Errorf("failed to delete WAL entries of region %d: %w", regionID, err)
	}

	return nil
}

func (m *LevelDBManager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := m.db.Close(); err != nil {
		return fmt.Errorf("failed to close WAL: %w", err)
	}

	return nil
}

func (m *LevelDBManager) region(regionID types.RegionID) (*regionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.regions[regionID]; ok {
		return r, nil
	}

	r := &regionState{}
	raw, err := m.db.Get(metaKey(regionID), nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to load sequence of region %d: %w", regionID, err)
	default:
		r.last = decodeSequence(raw)
	}
	m.regions[regionID] = r

	return r, nil
}

type levelDBIterator struct {
	iter iterator.Iterator
	cur  RawEntry
}

func (it *levelDBIterator) Next() bool {
	if !it.iter.Next() {
		return false
	}

	key := it.iter.Key()
	it.cur = RawEntry{
		Sequence: decodeSequence(key[regionPrefixLen:logKeyLen]),
		Payload:  it.iter.Value(),
	}

	return true
}

func (it *levelDBIterator) Entry() RawEntry {
	return it.cur
}

func (it *levelDBIterator) Err() error {
	return it.iter.Error()
}

func (it *levelDBIterator) Release() {
	it.iter.Release()
}

func regionPrefix(prefix byte, regionID types.RegionID) []byte {
	key := make([]byte, regionPrefixLen, logKeyLen)
	key[0] = prefix
	binary.BigEndian.PutUint64(key[1:], uint64(regionID))
	return key
}

func logKey(regionID types.RegionID, seq types.SequenceNumber) []byte {
	key := regionPrefix(logKeyPrefix, regionID)
	return binary.BigEndian.AppendUint64(key, uint64(seq))
}

func metaKey(regionID types.RegionID) []byte {
	return regionPrefix(metaKeyPrefix, regionID)
}

func encodeSequence(seq types.SequenceNumber) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(seq))
}

func decodeSequence(b []byte) types.SequenceNumber {
	return types.SequenceNumber(binary.BigEndian.Uint64(b))
}
