package schema

import (
	"errors"
	"fmt"
	"strings"

	"tabledb/pkg/encoding/custom"
)

var (
	ErrNoColumns        = errors.New("schema has no columns")
	ErrNoKeyColumn      = errors.New("schema has no key column")
	ErrDuplicateColumn  = errors.New("duplicate column")
	ErrEmptyColumnName  = errors.New("empty column name")
	ErrUnknownKind      = errors.New("unknown datum kind")
	ErrColumnCount      = errors.New("row column count mismatch")
	ErrKindMismatch     = errors.New("row value kind mismatch")
	ErrNullKey          = errors.New("null value in key column")
	ErrNotNullViolation = errors.New("null value in not-null column")
)

// DatumKind is the logical type of a column.
type DatumKind uint8

const (
	KindInt64 DatumKind = iota + 1
	KindFloat64
	KindString
	KindBool
	KindBytes
	KindTimestamp
)

var kindNames = map[DatumKind]string{
	KindInt64:     "int64",
	KindFloat64:   "float64",
	KindString:    "string",
	KindBool:      "bool",
	KindBytes:     "bytes",
	KindTimestamp: "timestamp",
}

func (k DatumKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(k))
}

// ParseDatumKind is the inverse of DatumKind.String.
func ParseDatumKind(s string) (DatumKind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(name, s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// encodedType is the wire type a value of this kind is stored as.
func (k DatumKind) encodedType() custom.TypeID {
	switch k {
	case KindInt64, KindTimestamp:
		return custom.TypeInt64
	case KindFloat64:
		return custom.TypeFloat64
	case KindString:
		return custom.TypeString
	case KindBool:
		return custom.TypeBool
	case KindBytes:
		return custom.TypeBytes
	default:
		return 0
	}
}

type ColumnSchema struct {
	Name     string    `json:"name"`
	Kind     DatumKind `json:"kind"`
	IsKey    bool      `json:"is_key"`
	Nullable bool      `json:"nullable"`
	Comment  string    `json:"comment,omitempty"`
}

// Schema describes the columns of a table. Key columns form the primary key
// in declaration order.
type Schema struct {
	Version uint32         `json:"version"`
	Columns []ColumnSchema `json:"columns"`
}

// Validate checks the schema is usable for a table.
func (s *Schema) Validate() error {
	if len(s.Columns) == 0 {
		return ErrNoColumns
	}

	seen := make(map[string]struct{}, len(s.Columns))
	hasKey := false
	for _, col := range s.Columns {
		if col.Name == "" {
			return ErrEmptyColumnName
		}
		if _, ok := seen[col.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateColumn, col.Name)
		}
		seen[col.Name] = struct{}{}
		if col.Kind.encodedType() == 0 {
			return fmt.Errorf("%w: column %s kind %d", ErrUnknownKind, col.Name, col.Kind)
		}
		hasKey = hasKey || col.IsKey
	}
	if !hasKey {
		return ErrNoKeyColumn
	}

	return nil
}

// ColumnIndex returns the position of the named column.
func (s *Schema) ColumnIndex(name string) (int, bool) {
	for i, col := range s.Columns {
		if col.Name == name {
			return i, true
		}
	}
	return 0, false
}

func (s *Schema) Clone() Schema {
	return Schema{
		Version: s.Version,
		Columns: append([]ColumnSchema(nil), s.Columns...),
	}
}

func (s *Schema) String() string {
	parts := make([]string, 0, len(s.Columns))
	for _, col := range s.Columns {
		p := col.Name + " " + col.Kind.String()
		if col.IsKey {
			p += " key"
		}
		parts = append(parts, p)
	}
	return fmt.Sprintf("v%d(%s)", s.Version, strings.Join(parts, ", "))
}
