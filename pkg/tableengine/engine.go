// Package tableengine is the contract between callers and a table engine.
package tableengine

import (
	"context"
	"fmt"

	"tabledb/pkg/schema"
	"tabledb/pkg/types"
)

// AnalyticEngineType is the engine type reported by the analytic engine.
const AnalyticEngineType = "Analytic"

// TableEngine manages the lifecycle of tables.
type TableEngine interface {
	EngineType() string
	Close(ctx context.Context) error

	CreateTable(ctx context.Context, req CreateTableRequest) (Table, error)
	// DropTable reports whether a table was actually removed.
	DropTable(ctx context.Context, req DropTableRequest) (bool, error)
	// OpenTable returns a nil Table when the table does not exist.
	OpenTable(ctx context.Context, req OpenTableRequest) (Table, error)
	CloseTable(ctx context.Context, req CloseTableRequest) error
}

// Table is a handle to an open table.
type Table interface {
	Name() string
	ID() types.TableID
	SchemaID() types.SchemaID
	Schema() schema.Schema
	Options() map[string]string
	Engine() string

	// Write persists rows into the WAL and then the memtable, returning the
	// number of rows written.
	Write(ctx context.Context, rows []schema.Row) (int, error)
	// Get returns the latest version of the row with the given key columns.
	Get(key schema.Row) (schema.Row, bool, error)
	// Scan visits buffered rows in key order until f returns false.
	Scan(f func(row schema.Row) bool) error
}

type CreateTableRequest struct {
	SchemaID  types.SchemaID
	TableID   types.TableID
	TableName string
	Schema    schema.Schema
	Options   map[string]string
	Engine    string
}

func (r CreateTableRequest) String() string {
	return fmt.Sprintf("CreateTableRequest{schema_id:%d, table_id:%d, table:%s, engine:%s, schema:%s, options:%v}",
		r.SchemaID, r.TableID, r.TableName, r.Engine, r.Schema.String(), r.Options)
}

type OpenTableRequest struct {
	SchemaID  types.SchemaID
	TableID   types.TableID
	TableName string
	Engine    string
}

func (r OpenTableRequest) String() string {
	return fmt.Sprintf("OpenTableRequest{schema_id:%d, table_id:%d, table:%s, engine:%s}",
		r.SchemaID, r.TableID, r.TableName, r.Engine)
}

type DropTableRequest struct {
	SchemaID  types.SchemaID
	TableID   types.TableID
	TableName string
	Engine    string
}

func (r DropTableRequest) String() string {
	return fmt.Sprintf("DropTableRequest{schema_id:%d, table_id:%d, table:%s, engine:%s}",
		r.SchemaID, r.TableID, r.TableName, r.Engine)
}

type CloseTableRequest struct {
	SchemaID  types.SchemaID
	TableID   types.TableID
	TableName string
	Engine    string
}

func (r CloseTableRequest) String() string {
	return fmt.Sprintf("CloseTableRequest{schema_id:%d, table_id:%d, table:%s, engine:%s}",
		r.SchemaID, r.TableID, r.TableName, r.Engine)
}
