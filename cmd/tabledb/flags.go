package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tabledb/pkg/encoding/custom"
	"tabledb/pkg/schema"
)

var errBadColumn = errors.New("column must look like name:kind[:key][:nullable]")

// parseColumns turns name:kind[:key][:nullable] definitions into a schema.
func parseColumns(defs []string) (schema.Schema, error) {
	s := schema.Schema{Version: 1}
	for _, def := range defs {
		parts := strings.Split(def, ":")
		if len(parts) < 2 {
			return s, fmt.Errorf("%w: %q", errBadColumn, def)
		}
		kind, err := schema.ParseDatumKind(parts[1])
		if err != nil {
			return s, err
		}

		col := schema.ColumnSchema{Name: parts[0], Kind: kind}
		for _, flag := range parts[2:] {
			switch flag {
			case "key":
				col.IsKey = true
			case "nullable":
				col.Nullable = true
			default:
				return s, fmt.Errorf("%w: unknown flag %q", errBadColumn, flag)
			}
		}
		s.Columns = append(s.Columns, col)
	}
	return s, s.Validate()
}

// parseOptions turns k=v pairs into request options.
func parseOptions(pairs []string) (map[string]string, error) {
	opts := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("option must look like key=value: %q", pair)
		}
		opts[k] = v
	}
	return opts, nil
}

// parseRow parses comma separated values following the column kinds.
// An empty value is null.
func parseRow(s schema.Schema, line string) (schema.Row, error) {
	fields := strings.Split(line, ",")
	if len(fields) != len(s.Columns) {
		return nil, fmt.Errorf("%w: want %d values, got %d", schema.ErrColumnCount, len(s.Columns), len(fields))
	}

	row := make(schema.Row, len(fields))
	for i, raw := range fields {
		v, err := parseValue(s.Columns[i].Kind, strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", s.Columns[i].Name, err)
		}
		row[i] = v
	}
	return row, nil
}

func parseValue(kind schema.DatumKind, raw string) (custom.Value, error) {
	if raw == "" {
		return custom.Null(), nil
	}

	switch kind {
	case schema.KindInt64, schema.KindTimestamp:
		v, err := strconv.ParseInt(raw, 10, 64)
		return custom.Int64(v), err
	case schema.KindFloat64:
		v, err := strconv.ParseFloat(raw, 64)
		return custom.Float64(v), err
	case schema.KindBool:
		v, err := strconv.ParseBool(raw)
		return custom.Bool(v), err
	case schema.KindString:
		return custom.String(raw), nil
	case schema.KindBytes:
		v, err := base64.StdEncoding.DecodeString(raw)
		return custom.Bytes(v), err
	default:
		return custom.Value{}, fmt.Errorf("%w: %s", schema.ErrUnknownKind, kind)
	}
}

func formatRow(row schema.Row) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = formatValue(v)
	}
	return strings.Join(parts, ",")
}

func formatValue(v custom.Value) string {
	switch v.Type {
	case custom.TypeInt64:
		return strconv.FormatInt(v.Int64, 10)
	case custom.TypeFloat64:
		return strconv.FormatFloat(v.Float64, 'g', -1, 64)
	case custom.TypeBool:
		return strconv.FormatBool(v.Bool)
	case custom.TypeString:
		return v.String
	case custom.TypeBytes:
		return base64.StdEncoding.EncodeToString(v.Bytes)
	default:
		return ""
	}
}
