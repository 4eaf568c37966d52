package types

import "math"

// Key is an immutable byte slice type alias used for clarity.
type Key = []byte

// SequenceNumber represents a monotonically increasing sequence assigned by the WAL per region.
type SequenceNumber uint64

const (
	// MinSequenceNumber is the first sequence a region ever hands out.
	MinSequenceNumber SequenceNumber = 1
	MaxSequenceNumber SequenceNumber = math.MaxUint64
)

// RegionID is a logical partition of the WAL. Sequences are ordered within one region only.
type RegionID uint64

// DefaultRegionID is used when the caller does not partition its log.
const DefaultRegionID RegionID = 0

// TableID identifies a table within a space.
type TableID uint64

// MaxTableID is the largest table id a data WAL region can address.
const MaxTableID TableID = math.MaxUint32

// TableRegionID returns the WAL region holding the writes of a table. The
// space id fills the high 32 bits, so equal table ids of different spaces
// never share a region. tableID must not exceed MaxTableID.
func TableRegionID(spaceID SpaceID, tableID TableID) RegionID {
	return RegionID(uint64(spaceID)<<32 | uint64(tableID))
}

// SchemaID is the globally unique id of a schema.
type SchemaID uint32

// SpaceID identifies a keyspace. One space exists per schema.
type SpaceID uint32
