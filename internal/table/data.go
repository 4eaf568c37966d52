// Package table holds the in-memory state of open tables.
package table

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"tabledb/internal/purger"
	"tabledb/internal/writeworker"
	"tabledb/pkg/clock"
	"tabledb/pkg/encoding/custom"
	"tabledb/pkg/memtable"
	"tabledb/pkg/schema"
	"tabledb/pkg/types"
)

var (
	ErrEmptyTableName = errors.New("empty table name")
	ErrNoWriteHandle  = errors.New("no write worker handle")
	ErrKeyColumns     = errors.New("key column count mismatch")
	ErrTableIDRange   = errors.New("table id out of range")
)

// DataParams describe the table a Data is built for.
type DataParams struct {
	SpaceID types.SpaceID
	TableID types.TableID
	Name    string
	Schema  schema.Schema
	Options Options
	// StartSequence is the first sequence of the WAL region owned by this
	// table. Older entries belong to a dropped table with the same id.
	StartSequence types.SequenceNumber
}

// Data is the shared record of one open table. Mutations happen on the
// table's write worker, reads may come from anywhere.
type Data struct {
	SpaceID types.SpaceID
	ID      types.TableID
	Name    string

	schema      schema.Schema
	keyColumns  int
	opts        atomic.Pointer[Options]
	writeHandle *writeworker.Handle
	purger      *purger.FilePurger
	memUsage    *MemUsageCollector
	startSeq    types.SequenceNumber

	mem     atomic.Pointer[memtable.Memtable]
	lastSeq clock.AtomicClock
	dropped atomic.Bool
	closed  atomic.Bool
}

func NewData(
	p DataParams,
	writeHandle *writeworker.Handle,
	filePurger *purger.FilePurger,
	spaceUsage *MemUsageCollector,
) (*Data, error) {
	if p.Name == "" {
		return nil, ErrEmptyTableName
	}
	if p.TableID > types.MaxTableID {
		return nil, fmt.Errorf("%w: %d > %d", ErrTableIDRange, p.TableID, types.MaxTableID)
	}
	if err := p.Schema.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema of table %s: %w", p.Name, err)
	}
	if writeHandle == nil {
		return nil, ErrNoWriteHandle
	}
	if spaceUsage == nil {
		spaceUsage = NewMemUsageCollector()
	}

	d := &Data{
		SpaceID:     p.SpaceID,
		ID:          p.TableID,
		Name:        p.Name,
		schema:      p.Schema.Clone(),
		writeHandle: writeHandle,
		purger:      filePurger,
		memUsage:    spaceUsage.Child(),
		startSeq:    max(p.StartSequence, types.MinSequenceNumber),
	}
	for _, col := range d.schema.Columns {
		if col.IsKey {
			d.keyColumns++
		}
	}
	opts := p.Options
	d.opts.Store(&opts)
	d.mem.Store(memtable.New(opts.WriteBufferSize, d.memUsage))

	return d, nil
}

// RegionID is the data WAL region of the table.
func (d *Data) RegionID() types.RegionID {
	return types.TableRegionID(d.SpaceID, d.ID)
}

// StartSequence is where replay of the table's region begins.
func (d *Data) StartSequence() types.SequenceNumber {
	return d.startSeq
}

// SetStartSequence must be called before the table is registered.
func (d *Data) SetStartSequence(seq types.SequenceNumber) {
	d.startSeq = max(seq, types.MinSequenceNumber)
}

func (d *Data) Schema() schema.Schema {
	return d.schema.Clone()
}

func (d *Data) Options() Options {
	return *d.opts.Load()
}

func (d *Data) WriteHandle() *writeworker.Handle {
	return d.writeHandle
}

func (d *Data) Memtable() *memtable.Memtable {
	return d.mem.Load()
}

// LastSequence is the WAL sequence of the last row applied to the memtable.
func (d *Data) LastSequence() types.SequenceNumber {
	return types.SequenceNumber(d.lastSeq.Val())
}

func (d *Data) SetLastSequence(seq types.SequenceNumber) {
	d.lastSeq.Set(uint64(seq))
}

func (d *Data) MemUsage() int64 {
	return d.memUsage.Usage()
}

// ShouldFlush reports whether the table reached its write buffer size.
func (d *Data) ShouldFlush() bool {
	return d.Memtable().ShouldFlush()
}

func (d *Data) IsDropped() bool {
	return d.dropped.Load()
}

// SetDropped marks the table dropped and releases its memory.
func (d *Data) SetDropped() {
	if d.dropped.CompareAndSwap(false, true) {
		d.Memtable().Release()
	}
}

func (d *Data) IsClosed() bool {
	return d.closed.Load()
}

// SetClosed marks the table closed and releases its memory.
func (d *Data) SetClosed() {
	if d.closed.CompareAndSwap(false, true) {
		d.Memtable().Release()
	}
}

// PurgeFiles schedules deletion of the table's objects.
func (d *Data) PurgeFiles(ctx context.Context) error {
	if d.purger == nil {
		return nil
	}
	return d.purger.PurgeTable(ctx, d.SpaceID, d.ID)
}

// ValidateRow checks row against the schema and the memtable entry limit.
func (d *Data) ValidateRow(row schema.Row) error {
	if err := d.schema.ValidateRow(row); err != nil {
		return err
	}
	key, err := d.schema.EncodeKey(row)
	if err != nil {
		return err
	}
	size := uint64(len(key)) + uint64(schema.RowEncodedSize(row)) + 8
	if limit := d.Options().WriteBufferSize; limit > 0 && size > limit {
		return fmt.Errorf("%w: %d bytes, write buffer is %d", memtable.ErrTooLargeEntry, size, limit)
	}
	return nil
}

// Apply inserts a row written to the WAL at seq. Must run on the table's
// write worker.
func (d *Data) Apply(row schema.Row, seq types.SequenceNumber) error {
	key, err := d.schema.EncodeKey(row)
	if err != nil {
		return err
	}
	value, err := schema.EncodeRow(row)
	if err != nil {
		return err
	}
	return d.Memtable().Upsert(key, value, uint64(seq))
}

// Get looks a row up by its key column values in column order.
func (d *Data) Get(key schema.Row) (schema.Row, bool, error) {
	if len(key) != d.keyColumns {
		return nil, false, fmt.Errorf("%w: want %d, got %d", ErrKeyColumns, d.keyColumns, len(key))
	}

	var (
		encoded []byte
		err     error
	)
	for _, v := range key {
		if encoded, err = custom.Append(encoded, v); err != nil {
			return nil, false, err
		}
	}

	it, ok := d.Memtable().Get(encoded)
	if !ok {
		return nil, false, nil
	}
	row, _, err := schema.DecodeRow(it.Value)
	if err != nil {
		return nil, false, err
	}
	return row, true, nil
}

// Scan visits buffered rows in key order until f returns false.
func (d *Data) Scan(f func(row schema.Row) bool) error {
	var scanErr error
	d.Memtable().Snapshot().Range(func(_ []byte, it memtable.Item) bool {
		row, _, err := schema.DecodeRow(it.Value)
		if err != nil {
			scanErr = err
			return false
		}
		return f(row)
	})
	return scanErr
}

func (d *Data) String() string {
	return fmt.Sprintf("space_id:%d, table:%s, table_id:%d", d.SpaceID, d.Name, d.ID)
}
