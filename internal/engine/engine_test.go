package engine

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabledb/pkg/config"
	"tabledb/pkg/encoding/custom"
	"tabledb/pkg/schema"
	"tabledb/pkg/tableengine"
	"tabledb/pkg/types"
)

func testConfig(t *testing.T, dir string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DataDir = dir
	cfg.Engine.WriteGroupWorkerNum = 2
	cfg.TableOpts = map[string]string{"ttl": "3d"}
	require.NoError(t, cfg.Validate())
	return cfg
}

func openEngine(t *testing.T, dir string) *TableEngineImpl {
	t.Helper()
	e, err := Open(context.Background(), testConfig(t, dir), OpenOptions{Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)
	return e
}

func metricsSchema() schema.Schema {
	return schema.Schema{
		Version: 1,
		Columns: []schema.ColumnSchema{
			{Name: "host", Kind: schema.KindString, IsKey: true},
			{Name: "value", Kind: schema.KindFloat64, Nullable: true},
		},
	}
}

func TestBuildSpaceID(t *testing.T) {
	assert.Equal(t, types.SpaceID(7), BuildSpaceID(7))

	seen := make(map[types.SpaceID]types.SchemaID)
	for _, id := range []types.SchemaID{0, 1, 2, 7, 1 << 16, 1<<32 - 1} {
		space := BuildSpaceID(id)
		prev, dup := seen[space]
		assert.False(t, dup, "schema %d and %d share space %d", prev, id, space)
		seen[space] = id
	}
}

func TestEngine_Scenario(t *testing.T) {
	ctx := context.Background()
	e := openEngine(t, t.TempDir())
	defer func() { require.NoError(t, e.Close(ctx)) }()

	assert.Equal(t, "Analytic", e.EngineType())

	created, err := e.CreateTable(ctx, tableengine.CreateTableRequest{
		SchemaID:  7,
		TableID:   42,
		TableName: "t1",
		Schema:    metricsSchema(),
		Engine:    tableengine.AnalyticEngineType,
	})
	require.NoError(t, err)
	assert.Equal(t, "t1", created.Name())
	assert.Equal(t, types.SchemaID(7), created.SchemaID())
	assert.Equal(t, "3d", created.Options()["ttl"], "engine defaults apply")

	stored := e.Tables(7)
	require.Len(t, stored, 1)
	assert.Equal(t, types.SpaceID(7), stored[0].SpaceID)
	assert.Equal(t, types.TableID(42), stored[0].ID)

	opened, err := e.OpenTable(ctx, tableengine.OpenTableRequest{SchemaID: 7, TableID: 42})
	require.NoError(t, err)
	require.NotNil(t, opened)
	assert.Equal(t, "t1", opened.Name())
	assert.Equal(t, created.ID(), opened.ID())
}

func TestEngine_AbsentTables(t *testing.T) {
	ctx := context.Background()
	e := openEngine(t, t.TempDir())
	defer func() { require.NoError(t, e.Close(ctx)) }()

	opened, err := e.OpenTable(ctx, tableengine.OpenTableRequest{SchemaID: 1, TableID: 1})
	require.NoError(t, err)
	assert.Nil(t, opened)

	dropped, err := e.DropTable(ctx, tableengine.DropTableRequest{SchemaID: 1, TableID: 1})
	require.NoError(t, err)
	assert.False(t, dropped)

	require.NoError(t, e.CloseTable(ctx, tableengine.CloseTableRequest{SchemaID: 1, TableID: 1}))
}

func TestEngine_WriteSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	e := openEngine(t, dir)
	tbl, err := e.CreateTable(ctx, tableengine.CreateTableRequest{
		SchemaID:  3,
		TableID:   10,
		TableName: "cpu",
		Schema:    metricsSchema(),
	})
	require.NoError(t, err)

	n, err := tbl.Write(ctx, []schema.Row{
		{custom.String("b"), custom.Float64(2)},
		{custom.String("a"), custom.Null()},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, e.Close(ctx))

	e = openEngine(t, dir)
	defer func() { require.NoError(t, e.Close(ctx)) }()

	tbl, err = e.OpenTable(ctx, tableengine.OpenTableRequest{SchemaID: 3, TableID: 10})
	require.NoError(t, err)
	require.NotNil(t, tbl)

	row, ok, err := tbl.Get(schema.Row{custom.String("b")})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2.0, row[1].Float64)

	var hosts []string
	require.NoError(t, tbl.Scan(func(r schema.Row) bool {
		hosts = append(hosts, r[0].String)
		return true
	}))
	assert.Equal(t, []string{"a", "b"}, hosts)

	dropped, err := e.DropTable(ctx, tableengine.DropTableRequest{SchemaID: 3, TableID: 10, TableName: "cpu"})
	require.NoError(t, err)
	assert.True(t, dropped)
	dropped, err = e.DropTable(ctx, tableengine.DropTableRequest{SchemaID: 3, TableID: 10, TableName: "cpu"})
	require.NoError(t, err)
	assert.False(t, dropped)
}

func TestEngine_InvalidTableOpts(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.TableOpts = map[string]string{"enable_ttl": "maybe"}

	_, err := Open(context.Background(), cfg, OpenOptions{})
	assert.Error(t, err)
}

func TestEngine_CloseTwice(t *testing.T) {
	e := openEngine(t, t.TempDir())
	require.NoError(t, e.Close(context.Background()))
	require.NoError(t, e.Close(context.Background()))
}
