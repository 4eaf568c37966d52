package engine

import (
	"context"

	"tabledb/internal/table"
	"tabledb/pkg/schema"
	"tabledb/pkg/tableengine"
	"tabledb/pkg/types"
)

// TableImpl is a handle to an open table of the analytic engine.
type TableImpl struct {
	engine   *TableEngineImpl
	schemaID types.SchemaID
	data     *table.Data
}

var _ tableengine.Table = (*TableImpl)(nil)

func newTableImpl(e *TableEngineImpl, schemaID types.SchemaID, d *table.Data) *TableImpl {
	return &TableImpl{
		engine:   e,
		schemaID: schemaID,
		data:     d,
	}
}

func (t *TableImpl) Name() string               { return t.data.Name }
func (t *TableImpl) ID() types.TableID          { return t.data.ID }
func (t *TableImpl) SchemaID() types.SchemaID   { return t.schemaID }
func (t *TableImpl) Schema() schema.Schema      { return t.data.Schema() }
func (t *TableImpl) Options() map[string]string { return t.data.Options().ToMap() }
func (t *TableImpl) Engine() string             { return tableengine.AnalyticEngineType }

func (t *TableImpl) Write(ctx context.Context, rows []schema.Row) (int, error) {
	return t.engine.instance.Write(ctx, t.engine.cc, t.data, rows)
}

func (t *TableImpl) Get(key schema.Row) (schema.Row, bool, error) {
	return t.data.Get(key)
}

func (t *TableImpl) Scan(f func(row schema.Row) bool) error {
	return t.data.Scan(f)
}
