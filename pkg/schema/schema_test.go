package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabledb/pkg/encoding/custom"
)

func cpuSchema() Schema {
	return Schema{
		Version: 1,
		Columns: []ColumnSchema{
			{Name: "host", Kind: KindString, IsKey: true},
			{Name: "ts", Kind: KindTimestamp, IsKey: true},
			{Name: "value", Kind: KindFloat64, Nullable: true},
		},
	}
}

func TestSchema_Validate(t *testing.T) {
	good := cpuSchema()
	require.NoError(t, good.Validate())

	tests := []struct {
		name   string
		schema Schema
		want   error
	}{
		{"no columns", Schema{}, ErrNoColumns},
		{"no key", Schema{Columns: []ColumnSchema{{Name: "a", Kind: KindInt64}}}, ErrNoKeyColumn},
		{"duplicate", Schema{Columns: []ColumnSchema{
			{Name: "a", Kind: KindInt64, IsKey: true},
			{Name: "a", Kind: KindString},
		}}, ErrDuplicateColumn},
		{"empty name", Schema{Columns: []ColumnSchema{{Kind: KindInt64, IsKey: true}}}, ErrEmptyColumnName},
		{"unknown kind", Schema{Columns: []ColumnSchema{{Name: "a", Kind: 99, IsKey: true}}}, ErrUnknownKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.schema.Validate(), tt.want)
		})
	}
}

func TestSchema_ValidateRow(t *testing.T) {
	s := cpuSchema()

	require.NoError(t, s.ValidateRow(Row{custom.String("h1"), custom.Int64(10), custom.Float64(0.3)}))
	require.NoError(t, s.ValidateRow(Row{custom.String("h1"), custom.Int64(10), custom.Null()}))

	assert.ErrorIs(t, s.ValidateRow(Row{custom.String("h1")}), ErrColumnCount)
	assert.ErrorIs(t, s.ValidateRow(Row{custom.Null(), custom.Int64(10), custom.Null()}), ErrNullKey)
	assert.ErrorIs(t, s.ValidateRow(Row{custom.String("h1"), custom.String("x"), custom.Null()}), ErrKindMismatch)
}

func TestSchema_EncodeKey(t *testing.T) {
	s := cpuSchema()

	k1, err := s.EncodeKey(Row{custom.String("h1"), custom.Int64(10), custom.Float64(1)})
	require.NoError(t, err)
	k2, err := s.EncodeKey(Row{custom.String("h1"), custom.Int64(10), custom.Float64(2)})
	require.NoError(t, err)
	k3, err := s.EncodeKey(Row{custom.String("h1"), custom.Int64(11), custom.Float64(1)})
	require.NoError(t, err)

	assert.Equal(t, k1, k2, "non-key columns do not affect the key")
	assert.NotEqual(t, k1, k3)
}

func TestRowRoundTrip(t *testing.T) {
	row := Row{custom.String("h1"), custom.Int64(10), custom.Float64(0.5)}

	data, err := EncodeRow(row)
	require.NoError(t, err)
	assert.Equal(t, RowEncodedSize(row), len(data))

	got, n, err := DecodeRow(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, row, got)
}

func TestParseDatumKind(t *testing.T) {
	k, err := ParseDatumKind("FLOAT64")
	require.NoError(t, err)
	assert.Equal(t, KindFloat64, k)

	_, err = ParseDatumKind("decimal")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
