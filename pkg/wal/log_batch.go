package wal

import (
	"bytes"

	"tabledb/pkg/types"
)

// Payload is a typed log record that knows its encoded size and how to
// serialize itself.
type Payload interface {
	// EncodeSize returns the exact number of bytes EncodeTo appends.
	EncodeSize() int
	// EncodeTo appends the encoded payload to buf.
	EncodeTo(buf *bytes.Buffer) error
}

// PayloadDecoder turns encoded bytes back into a T. The target type does not
// have to be the type that produced the bytes.
type PayloadDecoder[T any] interface {
	Decode(buf []byte) (T, error)
}

// PayloadDecoderFunc adapts a plain function to PayloadDecoder.
type PayloadDecoderFunc[T any] func(buf []byte) (T, error)

func (f PayloadDecoderFunc[T]) Decode(buf []byte) (T, error) {
	return f(buf)
}

// LogEntry is an entry read back from the WAL.
type LogEntry[T any] struct {
	Sequence types.SequenceNumber
	Payload  T
}

// LogWriteEntry is an entry to be written. The sequence is assigned by the
// Manager on append.
type LogWriteEntry[P Payload] struct {
	Payload P
}

// LogWriteBatch accumulates entries for exactly one region. A batch can be
// cleared and reused across appends without reallocating.
type LogWriteBatch[P Payload] struct {
	regionID types.RegionID
	entries  []LogWriteEntry[P]
}

func NewLogWriteBatch[P Payload](regionID types.RegionID) *LogWriteBatch[P] {
	return WithCapacity[P](regionID, 0)
}

func WithCapacity[P Payload](regionID types.RegionID, capacity int) *LogWriteBatch[P] {
	return &LogWriteBatch[P]{
		regionID: regionID,
		entries:  make([]LogWriteEntry[P], 0, capacity),
	}
}

func (b *LogWriteBatch[P]) RegionID() types.RegionID {
	return b.regionID
}

// SetRegionID rebinds an (usually cleared) batch to another region.
func (b *LogWriteBatch[P]) SetRegionID(regionID types.RegionID) {
	b.regionID = regionID
}

func (b *LogWriteBatch[P]) Push(entry LogWriteEntry[P]) {
	b.entries = append(b.entries, entry)
}

func (b *LogWriteBatch[P]) Len() int {
	return len(b.entries)
}

func (b *LogWriteBatch[P]) IsEmpty() bool {
	return len(b.entries) == 0
}

// Clear drops all entries and keeps the backing array.
func (b *LogWriteBatch[P]) Clear() {
	clear(b.entries)
	b.entries = b.entries[:0]
}

func (b *LogWriteBatch[P]) Entries() []LogWriteEntry[P] {
	return b.entries
}

// encode serializes every payload into one contiguous buffer. The returned
// batch shares no memory with b.
func (b *LogWriteBatch[P]) encode() (*EncodedBatch, error) {
	size := 0
	for _, e := range b.entries {
		size += e.Payload.EncodeSize()
	}

	var buf bytes.Buffer
	buf.Grow(size)

	encoded := &EncodedBatch{
		RegionID: b.regionID,
		Payloads: make([][]byte, 0, len(b.entries)),
	}
	for i, e := range b.entries {
		start := buf.Len()
		if err := e.Payload.EncodeTo(&buf); err != nil {
			return nil, &EncodeError{Index: i, Err: err}
		}
		encoded.Payloads = append(encoded.Payloads, buf.Bytes()[start:buf.Len():buf.Len()])
	}

	return encoded, nil
}
