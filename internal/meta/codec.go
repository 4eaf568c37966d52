package meta

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"tabledb/internal/table"
	"tabledb/pkg/schema"
	"tabledb/pkg/types"
	"tabledb/pkg/wal"
)

// Field numbers of the MetaUpdate wire message.
const (
	fieldAddTable  protowire.Number = 1
	fieldDropTable protowire.Number = 2
)

var (
	ErrUnknownUpdate = errors.New("unknown meta update")
	ErrEmptyUpdate   = errors.New("empty meta update")
)

// Payload adapts a MetaUpdate to the WAL payload contract.
type Payload struct {
	update  MetaUpdate
	encoded []byte
}

var _ wal.Payload = (*Payload)(nil)

func NewPayload(update MetaUpdate) *Payload {
	return &Payload{update: update}
}

func (p *Payload) EncodeSize() int {
	b, err := p.bytes()
	if err != nil {
		return 0
	}
	return len(b)
}

func (p *Payload) EncodeTo(buf *bytes.Buffer) error {
	b, err := p.bytes()
	if err != nil {
		return err
	}
	_, err = buf.Write(b)
	return err
}

func (p *Payload) bytes() ([]byte, error) {
	if p.encoded != nil {
		return p.encoded, nil
	}
	b, err := EncodeMetaUpdate(nil, p.update)
	if err != nil {
		return nil, err
	}
	p.encoded = b
	return b, nil
}

// PayloadDecoder decodes WAL payloads back into MetaUpdates.
type PayloadDecoder struct{}

var _ wal.PayloadDecoder[MetaUpdate] = PayloadDecoder{}

func (PayloadDecoder) Decode(buf []byte) (MetaUpdate, error) {
	return DecodeMetaUpdate(buf)
}

// EncodeMetaUpdate appends the wire form of u to dst.
func EncodeMetaUpdate(dst []byte, u MetaUpdate) ([]byte, error) {
	switch u := u.(type) {
	case AddTable:
		return protowire.AppendBytes(protowire.AppendTag(dst, fieldAddTable, protowire.BytesType), appendAddTable(nil, u)), nil
	case *AddTable:
		return EncodeMetaUpdate(dst, *u)
	case DropTable:
		return protowire.AppendBytes(protowire.AppendTag(dst, fieldDropTable, protowire.BytesType), appendDropTable(nil, u)), nil
	case *DropTable:
		return EncodeMetaUpdate(dst, *u)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownUpdate, u)
	}
}

func DecodeMetaUpdate(b []byte) (MetaUpdate, error) {
	var update MetaUpdate
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.BytesType || (num != fieldAddTable && num != fieldDropTable) {
			return skipField(num, typ, b)
		}
		msg, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}

		var err error
		switch num {
		case fieldAddTable:
			update, err = decodeAddTable(msg)
		case fieldDropTable:
			update, err = decodeDropTable(msg)
		}
		return n, err
	})
	if err != nil {
		return nil, fmt.Errorf("decode meta update: %w", err)
	}
	if update == nil {
		return nil, ErrEmptyUpdate
	}
	return update, nil
}

func appendAddTable(b []byte, u AddTable) []byte {
	b = appendVarintField(b, 1, uint64(u.SpaceID))
	b = appendVarintField(b, 2, uint64(u.ID))
	b = appendStringField(b, 3, u.TableName)
	b = appendBytesField(b, 4, appendSchema(nil, u.Schema))
	b = appendBytesField(b, 5, appendOptions(nil, u.Options))
	b = appendVarintField(b, 6, uint64(u.StartSequence))
	return b
}

func decodeAddTable(b []byte) (AddTable, error) {
	var u AddTable
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			return consumeVarint(b, func(v uint64) { u.SpaceID = types.SpaceID(v) })
		case num == 2 && typ == protowire.VarintType:
			return consumeVarint(b, func(v uint64) { u.ID = types.TableID(v) })
		case num == 3 && typ == protowire.BytesType:
			return consumeBytes(b, func(v []byte) error { u.TableName = string(v); return nil })
		case num == 4 && typ == protowire.BytesType:
			return consumeBytes(b, func(v []byte) (err error) { u.Schema, err = decodeSchema(v); return err })
		case num == 5 && typ == protowire.BytesType:
			return consumeBytes(b, func(v []byte) (err error) { u.Options, err = decodeOptions(v); return err })
		case num == 6 && typ == protowire.VarintType:
			return consumeVarint(b, func(v uint64) { u.StartSequence = types.SequenceNumber(v) })
		default:
			return skipField(num, typ, b)
		}
	})
	return u, err
}

func appendDropTable(b []byte, u DropTable) []byte {
	b = appendVarintField(b, 1, uint64(u.SpaceID))
	b = appendVarintField(b, 2, uint64(u.ID))
	b = appendStringField(b, 3, u.TableName)
	return b
}

func decodeDropTable(b []byte) (DropTable, error) {
	var u DropTable
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			return consumeVarint(b, func(v uint64) { u.SpaceID = types.SpaceID(v) })
		case num == 2 && typ == protowire.VarintType:
			return consumeVarint(b, func(v uint64) { u.ID = types.TableID(v) })
		case num == 3 && typ == protowire.BytesType:
			return consumeBytes(b, func(v []byte) error { u.TableName = string(v); return nil })
		default:
			return skipField(num, typ, b)
		}
	})
	return u, err
}

func appendSchema(b []byte, s schema.Schema) []byte {
	b = appendVarintField(b, 1, uint64(s.Version))
	for _, col := range s.Columns {
		var c []byte
		c = appendStringField(c, 1, col.Name)
		c = appendVarintField(c, 2, uint64(col.Kind))
		c = appendVarintField(c, 3, protowire.EncodeBool(col.IsKey))
		c = appendVarintField(c, 4, protowire.EncodeBool(col.Nullable))
		c = appendStringField(c, 5, col.Comment)
		b = appendBytesField(b, 2, c)
	}
	return b
}

func decodeSchema(b []byte) (schema.Schema, error) {
	var s schema.Schema
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			return consumeVarint(b, func(v uint64) { s.Version = uint32(v) })
		case num == 2 && typ == protowire.BytesType:
			return consumeBytes(b, func(v []byte) error {
				col, err := decodeColumn(v)
				s.Columns = append(s.Columns, col)
				return err
			})
		default:
			return skipField(num, typ, b)
		}
	})
	return s, err
}

func decodeColumn(b []byte) (schema.ColumnSchema, error) {
	var col schema.ColumnSchema
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			return consumeBytes(b, func(v []byte) error { col.Name = string(v); return nil })
		case num == 2 && typ == protowire.VarintType:
			return consumeVarint(b, func(v uint64) { col.Kind = schema.DatumKind(v) })
		case num == 3 && typ == protowire.VarintType:
			return consumeVarint(b, func(v uint64) { col.IsKey = protowire.DecodeBool(v) })
		case num == 4 && typ == protowire.VarintType:
			return consumeVarint(b, func(v uint64) { col.Nullable = protowire.DecodeBool(v) })
		case num == 5 && typ == protowire.BytesType:
			return consumeBytes(b, func(v []byte) error { col.Comment = string(v); return nil })
		default:
			return skipField(num, typ, b)
		}
	})
	return col, err
}

func appendOptions(b []byte, o table.Options) []byte {
	b = appendVarintField(b, 1, uint64(o.SegmentDuration))
	b = appendVarintField(b, 2, uint64(o.TTL))
	b = appendVarintField(b, 3, protowire.EncodeBool(o.EnableTTL))
	b = appendVarintField(b, 4, o.WriteBufferSize)
	b = appendVarintField(b, 5, o.ArenaBlockSize)
	b = appendVarintField(b, 6, o.NumRowsPerRowGroup)
	b = appendStringField(b, 7, string(o.UpdateMode))
	return b
}

func decodeOptions(b []byte) (table.Options, error) {
	var o table.Options
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ == protowire.BytesType && num == 7 {
			return consumeBytes(b, func(v []byte) error { o.UpdateMode = table.UpdateMode(v); return nil })
		}
		if typ != protowire.VarintType {
			return skipField(num, typ, b)
		}
		return consumeVarint(b, func(v uint64) {
			switch num {
			case 1:
				o.SegmentDuration = time.Duration(v)
			case 2:
				o.TTL = time.Duration(v)
			case 3:
				o.EnableTTL = protowire.DecodeBool(v)
			case 4:
				o.WriteBufferSize = v
			case 5:
				o.ArenaBlockSize = v
			case 6:
				o.NumRowsPerRowGroup = v
			}
		})
	})
	return o, err
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendStringField(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// consumeFields calls field for every field of message b. field consumes
// the value and returns how many bytes it used.
func consumeFields(b []byte, field func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		n, err := field(num, typ, b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func consumeVarint(b []byte, set func(uint64)) (int, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	set(v)
	return n, nil
}

func consumeBytes(b []byte, set func([]byte) error) (int, error) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return n, set(v)
}

func skipField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return n, nil
}
