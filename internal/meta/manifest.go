package meta

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tabledb/pkg/types"
)

// Manifest is the durable store of table metadata.
type Manifest interface {
	// StoreUpdate returns once the update is persisted and visible through
	// TableMeta.
	StoreUpdate(ctx context.Context, update MetaUpdate) error
	TableMeta(spaceID types.SpaceID, tableID types.TableID) (AddTable, bool)
	Tables(spaceID types.SpaceID) []AddTable
	Close() error
}

// ManifestData is the state obtained by applying every stored update.
type ManifestData struct {
	mu     sync.RWMutex
	spaces map[types.SpaceID]map[types.TableID]AddTable
}

func NewManifestData() *ManifestData {
	return &ManifestData{
		spaces: make(map[types.SpaceID]map[types.TableID]AddTable),
	}
}

func (d *ManifestData) Apply(update MetaUpdate) error {
	switch u := update.(type) {
	case *AddTable:
		update = *u
	case *DropTable:
		update = *u
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch u := update.(type) {
	case AddTable:
		tables, ok := d.spaces[u.SpaceID]
		if !ok {
			tables = make(map[types.TableID]AddTable)
			d.spaces[u.SpaceID] = tables
		}
		tables[u.ID] = u
	case DropTable:
		tables := d.spaces[u.SpaceID]
		delete(tables, u.ID)
		if len(tables) == 0 {
			delete(d.spaces, u.SpaceID)
		}
	default:
		return fmt.Errorf("%w: %T", ErrUnknownUpdate, update)
	}
	return nil
}

func (d *ManifestData) TableMeta(spaceID types.SpaceID, tableID types.TableID) (AddTable, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	meta, ok := d.spaces[spaceID][tableID]
	return meta, ok
}

// Tables returns the tables of a space ordered by id.
func (d *ManifestData) Tables(spaceID types.SpaceID) []AddTable {
	d.mu.RLock()
	defer d.mu.RUnlock()

	tables := make([]AddTable, 0, len(d.spaces[spaceID]))
	for _, meta := range d.spaces[spaceID] {
		tables = append(tables, meta)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].ID < tables[j].ID })
	return tables
}

// all returns every table meta ordered by space and id.
func (d *ManifestData) all() []AddTable {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var tables []AddTable
	for _, space := range d.spaces {
		for _, meta := range space {
			tables = append(tables, meta)
		}
	}
	sort.Slice(tables, func(i, j int) bool {
		if tables[i].SpaceID != tables[j].SpaceID {
			return tables[i].SpaceID < tables[j].SpaceID
		}
		return tables[i].ID < tables[j].ID
	})
	return tables
}
