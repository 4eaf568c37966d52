package table

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabledb/internal/writeworker"
	"tabledb/pkg/encoding/custom"
	"tabledb/pkg/schema"
	"tabledb/pkg/types"
)

type nopProcessor struct{}

func (nopProcessor) ProcessCommand(context.Context, *writeworker.WorkerLocal, writeworker.Command) {}

func testHandle(t *testing.T) *writeworker.Handle {
	t.Helper()
	g := writeworker.NewGroup(context.Background(), writeworker.Options{Name: "t", WorkerNum: 1}, nopProcessor{})
	t.Cleanup(g.Stop)
	return g.ChooseWorker(1)
}

func testSchema() schema.Schema {
	return schema.Schema{
		Version: 1,
		Columns: []schema.ColumnSchema{
			{Name: "host", Kind: schema.KindString, IsKey: true},
			{Name: "ts", Kind: schema.KindTimestamp, IsKey: true},
			{Name: "value", Kind: schema.KindFloat64, Nullable: true},
		},
	}
}

func newTestData(t *testing.T, usage *MemUsageCollector) *Data {
	t.Helper()
	d, err := NewData(DataParams{
		SpaceID: 7,
		TableID: 42,
		Name:    "t1",
		Schema:  testSchema(),
		Options: DefaultOptions(),
	}, testHandle(t), nil, usage)
	require.NoError(t, err)
	return d
}

func TestNewData_Invalid(t *testing.T) {
	h := testHandle(t)

	_, err := NewData(DataParams{Name: "", Schema: testSchema()}, h, nil, nil)
	assert.ErrorIs(t, err, ErrEmptyTableName)

	_, err = NewData(DataParams{Name: "t", Schema: schema.Schema{}}, h, nil, nil)
	assert.ErrorIs(t, err, schema.ErrNoColumns)

	_, err = NewData(DataParams{Name: "t", Schema: testSchema()}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoWriteHandle)

	_, err = NewData(DataParams{TableID: types.MaxTableID + 1, Name: "t", Schema: testSchema()}, h, nil, nil)
	assert.ErrorIs(t, err, ErrTableIDRange)
}

func TestData_RegionAndStartSequence(t *testing.T) {
	d := newTestData(t, nil)

	assert.Equal(t, types.TableRegionID(7, 42), d.RegionID())
	assert.Equal(t, types.MinSequenceNumber, d.StartSequence())

	d.SetStartSequence(11)
	assert.Equal(t, types.SequenceNumber(11), d.StartSequence())
}

func TestData_ApplyGetScan(t *testing.T) {
	usage := NewMemUsageCollector()
	d := newTestData(t, usage)

	rows := []schema.Row{
		{custom.String("b"), custom.Int64(1), custom.Float64(1.5)},
		{custom.String("a"), custom.Int64(2), custom.Null()},
		{custom.String("b"), custom.Int64(1), custom.Float64(9)},
	}
	for i, row := range rows {
		require.NoError(t, d.Apply(row, types.SequenceNumber(i+1)))
	}

	got, ok, err := d.Get(schema.Row{custom.String("b"), custom.Int64(1)})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 9.0, got[2].Float64)

	_, ok, err = d.Get(schema.Row{custom.String("c"), custom.Int64(1)})
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = d.Get(schema.Row{custom.String("b")})
	assert.ErrorIs(t, err, ErrKeyColumns)

	var hosts []string
	require.NoError(t, d.Scan(func(row schema.Row) bool {
		hosts = append(hosts, row[0].String)
		return true
	}))
	assert.Equal(t, []string{"a", "b"}, hosts)

	assert.Positive(t, usage.Usage())
	assert.Equal(t, d.MemUsage(), usage.Usage())

	d.SetDropped()
	assert.True(t, d.IsDropped())
	assert.Zero(t, usage.Usage())
}
