package space

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabledb/internal/table"
	"tabledb/internal/writeworker"
	"tabledb/pkg/encoding/custom"
	"tabledb/pkg/schema"
	"tabledb/pkg/types"
)

type nopProcessor struct{}

func (nopProcessor) ProcessCommand(context.Context, *writeworker.WorkerLocal, writeworker.Command) {}

func newSpace(t *testing.T) *Space {
	t.Helper()
	g := writeworker.NewGroup(context.Background(), writeworker.Options{Name: "1", WorkerNum: 2}, nopProcessor{})
	s := New(1, g, table.NewMemUsageCollector())
	t.Cleanup(s.Close)
	return s
}

func newData(t *testing.T, s *Space, id types.TableID, name string) *table.Data {
	t.Helper()
	d, err := table.NewData(table.DataParams{
		SpaceID: s.ID,
		TableID: id,
		Name:    name,
		Schema: schema.Schema{Columns: []schema.ColumnSchema{
			{Name: "k", Kind: schema.KindInt64, IsKey: true},
		}},
		Options: table.DefaultOptions(),
	}, s.WriteGroup().ChooseWorker(id), nil, s.MemUsage())
	require.NoError(t, err)
	return d
}

func TestSpace_Registry(t *testing.T) {
	s := newSpace(t)

	_, ok := s.FindTableByID(3)
	assert.False(t, ok)

	s.InsertTable(newData(t, s, 3, "c"))
	s.InsertTable(newData(t, s, 1, "a"))

	d, ok := s.FindTableByID(3)
	require.True(t, ok)
	assert.Equal(t, "c", d.Name)

	d, ok = s.FindTable("a")
	require.True(t, ok)
	assert.Equal(t, types.TableID(1), d.ID)

	tables := s.Tables()
	require.Len(t, tables, 2)
	assert.Equal(t, types.TableID(1), tables[0].ID)

	removed, ok := s.RemoveTable(1)
	require.True(t, ok)
	assert.Equal(t, "a", removed.Name)
	_, ok = s.RemoveTable(1)
	assert.False(t, ok)
}

func TestSpace_ShouldFlush(t *testing.T) {
	s := newSpace(t)
	d := newData(t, s, 1, "a")
	s.InsertTable(d)

	assert.False(t, s.ShouldFlush(32))
	for i := int64(0); i < 4; i++ {
		require.NoError(t, d.Apply(schema.Row{custom.Int64(i)}, types.SequenceNumber(i+1)))
	}
	assert.True(t, s.ShouldFlush(32))
	assert.False(t, s.ShouldFlush(1<<20))
	assert.False(t, s.ShouldFlush(0))
}
