// Package space groups the tables of one schema.
package space

import (
	"github.com/zhangyunhao116/skipmap"

	"tabledb/internal/table"
	"tabledb/internal/writeworker"
	"tabledb/pkg/types"
)

// Space owns a table registry and a write group. The registry is mutated
// only by the write worker owning the table, but may be read from anywhere.
type Space struct {
	ID types.SpaceID

	tables     *skipmap.FuncMap[types.TableID, *table.Data]
	writeGroup *writeworker.Group
	memUsage   *table.MemUsageCollector
}

func New(id types.SpaceID, writeGroup *writeworker.Group, instanceUsage *table.MemUsageCollector) *Space {
	return &Space{
		ID: id,
		tables: skipmap.NewFunc[types.TableID, *table.Data](func(a, b types.TableID) bool {
			return a < b
		}),
		writeGroup: writeGroup,
		memUsage:   instanceUsage.Child(),
	}
}

func (s *Space) WriteGroup() *writeworker.Group {
	return s.writeGroup
}

func (s *Space) MemUsage() *table.MemUsageCollector {
	return s.memUsage
}

func (s *Space) FindTableByID(id types.TableID) (*table.Data, bool) {
	return s.tables.Load(id)
}

func (s *Space) FindTable(name string) (*table.Data, bool) {
	var found *table.Data
	s.tables.Range(func(_ types.TableID, d *table.Data) bool {
		if d.Name == name {
			found = d
			return false
		}
		return true
	})
	return found, found != nil
}

// InsertTable registers d. Must run on d's write worker.
func (s *Space) InsertTable(d *table.Data) {
	s.tables.Store(d.ID, d)
}

// RemoveTable unregisters a table. Must run on its write worker.
func (s *Space) RemoveTable(id types.TableID) (*table.Data, bool) {
	return s.tables.LoadAndDelete(id)
}

// Tables lists the open tables ordered by id.
func (s *Space) Tables() []*table.Data {
	tables := make([]*table.Data, 0, s.tables.Len())
	s.tables.Range(func(_ types.TableID, d *table.Data) bool {
		tables = append(tables, d)
		return true
	})
	return tables
}

// ShouldFlush reports whether the space buffers at least writeBufferSize
// bytes. Zero disables the check.
func (s *Space) ShouldFlush(writeBufferSize uint64) bool {
	return writeBufferSize > 0 && s.memUsage.Usage() >= int64(writeBufferSize)
}

// Close stops the write group after its queued commands ran.
func (s *Space) Close() {
	s.writeGroup.Stop()
}
