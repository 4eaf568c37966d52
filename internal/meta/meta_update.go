// Package meta persists table metadata mutations.
package meta

import (
	"fmt"

	"tabledb/internal/table"
	"tabledb/pkg/schema"
	"tabledb/pkg/types"
)

// MetaUpdate is one durable table metadata mutation.
type MetaUpdate interface {
	Kind() string
	TableID() types.TableID
	isMetaUpdate()
}

type AddTable struct {
	SpaceID   types.SpaceID `json:"space_id"`
	ID        types.TableID `json:"table_id"`
	TableName string        `json:"table_name"`
	Schema    schema.Schema `json:"schema"`
	Options   table.Options `json:"options"`
	// StartSequence is the first data WAL sequence of the table's region.
	StartSequence types.SequenceNumber `json:"start_sequence"`
}

func (AddTable) Kind() string             { return "add_table" }
func (u AddTable) TableID() types.TableID { return u.ID }
func (AddTable) isMetaUpdate()            {}

func (u AddTable) String() string {
	return fmt.Sprintf("AddTable{space_id:%d, table_id:%d, table:%s}", u.SpaceID, u.ID, u.TableName)
}

type DropTable struct {
	SpaceID   types.SpaceID `json:"space_id"`
	ID        types.TableID `json:"table_id"`
	TableName string        `json:"table_name"`
}

func (DropTable) Kind() string             { return "drop_table" }
func (u DropTable) TableID() types.TableID { return u.ID }
func (DropTable) isMetaUpdate()            {}

func (u DropTable) String() string {
	return fmt.Sprintf("DropTable{space_id:%d, table_id:%d, table:%s}", u.SpaceID, u.ID, u.TableName)
}
