package schema

import (
	"fmt"

	"tabledb/pkg/encoding/custom"
)

// Row is one record, values in schema column order.
type Row []custom.Value

// ValidateRow checks that row matches the schema column by column.
func (s *Schema) ValidateRow(row Row) error {
	if len(row) != len(s.Columns) {
		return fmt.Errorf("%w: want %d, got %d", ErrColumnCount, len(s.Columns), len(row))
	}

	for i, col := range s.Columns {
		v := row[i]
		if v.Type == custom.TypeNull {
			switch {
			case col.IsKey:
				return fmt.Errorf("%w: %s", ErrNullKey, col.Name)
			case !col.Nullable:
				return fmt.Errorf("%w: %s", ErrNotNullViolation, col.Name)
			}
			continue
		}
		if v.Type != col.Kind.encodedType() {
			return fmt.Errorf("%w: column %s wants %s, got %s", ErrKindMismatch, col.Name, col.Kind, v.Type)
		}
	}

	return nil
}

// EncodeKey builds the memtable key of a row from its key columns.
func (s *Schema) EncodeKey(row Row) ([]byte, error) {
	var (
		key []byte
		err error
	)
	for i, col := range s.Columns {
		if !col.IsKey {
			continue
		}
		if key, err = custom.Append(key, row[i]); err != nil {
			return nil, fmt.Errorf("failed to encode key column %s: %w", col.Name, err)
		}
	}

	return key, nil
}

// EncodeRow serializes a row into its binary form.
func EncodeRow(row Row) ([]byte, error) {
	return custom.Encode(custom.List(row...))
}

// RowEncodedSize is the number of bytes EncodeRow produces.
func RowEncodedSize(row Row) int {
	return custom.EncodedSize(custom.List(row...))
}

// DecodeRow is the inverse of EncodeRow.
func DecodeRow(data []byte) (Row, int, error) {
	v, n, err := custom.Decode(data)
	if err != nil {
		return nil, 0, err
	}
	if v.Type != custom.TypeList {
		return nil, 0, fmt.Errorf("row must be encoded as list, got %s", v.Type)
	}

	return Row(v.List), n, nil
}
