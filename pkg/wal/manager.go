package wal

import (
	"context"
	"errors"
	"fmt"

	"tabledb/pkg/types"
)

var (
	ErrClosed = errors.New("wal: closed")
)

// EncodeError reports which entry of a batch failed to encode.
type EncodeError struct {
	Index int
	Err   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("wal: encode payload at index %d: %v", e.Index, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// DecodeError reports the sequence of an entry whose payload could not be decoded.
type DecodeError struct {
	RegionID types.RegionID
	Sequence types.SequenceNumber
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("wal: decode payload region:%d sequence:%d: %v", e.RegionID, e.Sequence, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodedBatch is a LogWriteBatch after payload encoding.
type EncodedBatch struct {
	RegionID types.RegionID
	Payloads [][]byte
}

// ReadRequest selects entries of one region with sequence in [Start, End].
type ReadRequest struct {
	RegionID types.RegionID
	Start    types.SequenceNumber
	End      types.SequenceNumber
}

// RawEntry is an undecoded log entry.
type RawEntry struct {
	Sequence types.SequenceNumber
	Payload  []byte
}

// EntryIterator walks raw entries in ascending sequence order.
type EntryIterator interface {
	// Next advances to the next entry and reports whether one exists.
	Next() bool
	// Entry returns the current entry. The payload is only valid until the next call to Next.
	Entry() RawEntry
	Err() error
	Release()
}

// Manager is an append-only, per-region log.
//
// Write assigns consecutive sequence numbers to the entries of a batch and
// returns the sequence of the LAST entry written. Writing an empty batch
// returns the region's current sequence without writing anything.
type Manager interface {
	Write(ctx context.Context, batch *EncodedBatch) (types.SequenceNumber, error)
	Read(ctx context.Context, req ReadRequest) (EntryIterator, error)
	// SequenceNum returns the last sequence assigned in the region, 0 if none.
	SequenceNum(ctx context.Context, regionID types.RegionID) (types.SequenceNumber, error)
	// MarkDeleteEntriesUpTo removes entries with sequence <= seq. Sequences are never reused.
	MarkDeleteEntriesUpTo(ctx context.Context, regionID types.RegionID, seq types.SequenceNumber) error
	Close() error
}

// Append encodes the batch through the payload contract and writes it.
func Append[P Payload](ctx context.Context, m Manager, batch *LogWriteBatch[P]) (types.SequenceNumber, error) {
	encoded, err := batch.encode()
	if err != nil {
		return 0, err
	}

	return m.Write(ctx, encoded)
}

// LogIterator lazily decodes raw entries into T.
type LogIterator[T any] struct {
	regionID types.RegionID
	raw      EntryIterator
	decoder  PayloadDecoder[T]

	cur LogEntry[T]
	err error
}

// ReadFrom returns an iterator over every entry of the region starting at start.
func ReadFrom[T any](
	ctx context.Context,
	m Manager,
	regionID types.RegionID,
	start types.SequenceNumber,
	decoder PayloadDecoder[T],
) (*LogIterator[T], error) {
	raw, err := m.Read(ctx, ReadRequest{
		RegionID: regionID,
		Start:    start,
		End:      types.MaxSequenceNumber,
	})
	if err != nil {
		return nil, err
	}

	return &LogIterator[T]{
		regionID: regionID,
		raw:      raw,
		decoder:  decoder,
	}, nil
}

func (it *LogIterator[T]) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.raw.Next() {
		it.err = it.raw.Err()
		return false
	}

	raw := it.raw.Entry()
	payload, err := it.decoder.Decode(raw.Payload)
	if err != nil {
		it.err = &DecodeError{RegionID: it.regionID, Sequence: raw.Sequence, Err: err}
		return false
	}
	it.cur = LogEntry[T]{Sequence: raw.Sequence, Payload: payload}

	return true
}

func (it *LogIterator[T]) Entry() LogEntry[T] {
	return it.cur
}

func (it *LogIterator[T]) Err() error {
	return it.err
}

func (it *LogIterator[T]) Release() {
	it.raw.Release()
}

// Replay feeds every entry from start on to callback.
func Replay[T any](
	ctx context.Context,
	m Manager,
	regionID types.RegionID,
	start types.SequenceNumber,
	decoder PayloadDecoder[T],
	callback func(LogEntry[T]) error,
) error {
	it, err := ReadFrom(ctx, m, regionID, start, decoder)
	if err != nil {
		return fmt.Errorf("failed to read WAL region %d: %w", regionID, err)
	}
	defer it.Release()

	for it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := callback(it.Entry()); err != nil {
			return fmt.Errorf("WAL replay callback failed: %w", err)
		}
	}

	return it.Err()
}
