// Package custom implements the compact tagged binary format used for row
// payloads in the WAL.
package custom

import (
	"encoding/binary"
	"fmt"
	"math"
)

// TypeID tags every encoded value.
type TypeID uint8

const (
	TypeInt32 TypeID = iota + 1
	TypeInt64
	TypeFloat32
	TypeFloat64
	TypeBool
	TypeString
	TypeMessage
	TypeList
	TypeBytes
	TypeNull
)

func (t TypeID) String() string {
	switch t {
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeFloat32:
		return "float32"
	case TypeFloat64:
		return "float64"
	case TypeBool:
		return "bool"
	case TypeString:
		return "string"
	case TypeMessage:
		return "message"
	case TypeList:
		return "list"
	case TypeBytes:
		return "bytes"
	case TypeNull:
		return "null"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Value holds one value of any supported type. Only the field matching Type is meaningful.
type Value struct {
	Type    TypeID
	Int32   int32
	Int64   int64
	Float32 float32
	Float64 float64
	Bool    bool
	String  string
	Bytes   []byte
	Message []Field
	List    []Value
}

// Field is a numbered member of a message.
type Field struct {
	Number uint32
	Value  Value
}

func Int64(v int64) Value     { return Value{Type: TypeInt64, Int64: v} }
func Float64(v float64) Value { return Value{Type: TypeFloat64, Float64: v} }
func Bool(v bool) Value       { return Value{Type: TypeBool, Bool: v} }
func String(v string) Value   { return Value{Type: TypeString, String: v} }
func Bytes(v []byte) Value    { return Value{Type: TypeBytes, Bytes: v} }
func Null() Value             { return Value{Type: TypeNull} }
func List(vs ...Value) Value  { return Value{Type: TypeList, List: vs} }

type EncodeError struct {
	Message string
}

func (e *EncodeError) Error() string {
	return e.Message
}

type DecodeError struct {
	Message string
}

func (e *DecodeError) Error() string {
	return e.Message
}

// EncodedSize returns the number of bytes Append writes for value.
func EncodedSize(value Value) int {
	size := 1
	switch value.Type {
	case TypeInt32, TypeFloat32:
		size += 4
	case TypeInt64, TypeFloat64:
		size += 8
	case TypeBool:
		size++
	case TypeString:
		size += 4 + len(value.String)
	case TypeBytes:
		size += 4 + len(value.Bytes)
	case TypeMessage:
		size += 4
		for _, field := range value.Message {
			size += 4 + EncodedSize(field.Value)
		}
	case TypeList:
		size += 4
		for _, item := range value.List {
			size += EncodedSize(item)
		}
	}
	return size
}

// Encode returns the binary form of value.
func Encode(value Value) ([]byte, error) {
	return Append(make([]byte, 0, EncodedSize(value)), value)
}

// Append appends the binary form of value to dst.
func Append(dst []byte, value Value) ([]byte, error) {
	dst = append(dst, byte(value.Type))

	switch value.Type {
	case TypeInt32:
		dst = binary.LittleEndian.AppendUint32(dst, uint32(value.Int32))
	case TypeInt64:
		dst = binary.LittleEndian.AppendUint64(dst, uint64(value.Int64))
	case TypeFloat32:
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(value.Float32))
	case TypeFloat64:
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(value.Float64))
	case TypeBool:
		if value.Bool {
			dst = append(dst, 1)
		} else {
			dst = append(dst, 0)
		}
	case TypeString:
		if len(value.String) > math.MaxUint32 {
			return nil, &EncodeError{Message: fmt.Sprintf("string too large: %d", len(value.String))}
		}
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(value.String)))
		dst = append(dst, value.String...)
	case TypeBytes:
		if len(value.Bytes) > math.MaxUint32 {
			return nil, &EncodeError{Message: fmt.Sprintf("bytes too large: %d", len(value.Bytes))}
		}
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(value.Bytes)))
		dst = append(dst, value.Bytes...)
	case TypeNull:
	case TypeMessage:
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(value.Message)))
		for _, field := range value.Message {
			dst = binary.LittleEndian.AppendUint32(dst, field.Number)
			var err error
			if dst, err = Append(dst, field.Value); err != nil {
				return nil, err
			}
		}
	case TypeList:
		if len(value.List) == 0 {
			return nil, &EncodeError{Message: "empty list"}
		}
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(value.List)))
		for _, item := range value.List {
			var err error
			if dst, err = Append(dst, item); err != nil {
				return nil, err
			}
		}
	default:
		return nil, &EncodeError{Message: fmt.Sprintf("unknown type: %d", value.Type)}
	}

	return dst, nil
}

// Decode reads one value from data and returns it with the number of bytes consumed.
func Decode(data []byte) (Value, int, error) {
	if len(data) < 1 {
		return Value{}, 0, &DecodeError{Message: "insufficient data"}
	}

	valueType := TypeID(data[0])
	offset := 1
	rest := data[offset:]

	switch valueType {
	case TypeInt32:
		if len(rest) < 4 {
			return Value{}, 0, &DecodeError{Message: "insufficient data for int32"}
		}
		return Value{Type: TypeInt32, Int32: int32(binary.LittleEndian.Uint32(rest))}, offset + 4, nil

	case TypeInt64:
		if len(rest) < 8 {
			return Value{}, 0, &DecodeError{Message: "insufficient data for int64"}
		}
		return Value{Type: TypeInt64, Int64: int64(binary.LittleEndian.Uint64(rest))}, offset + 8, nil

	case TypeFloat32:
		if len(rest) < 4 {
			return Value{}, 0, &DecodeError{Message: "insufficient data for float32"}
		}
		return Value{Type: TypeFloat32, Float32: math.Float32frombits(binary.LittleEndian.Uint32(rest))}, offset + 4, nil

	case TypeFloat64:
		if len(rest) < 8 {
			return Value{}, 0, &DecodeError{Message: "insufficient data for float64"}
		}
		return Value{Type: TypeFloat64, Float64: math.Float64frombits(binary.LittleEndian.Uint64(rest))}, offset + 8, nil

	case TypeBool:
		if len(rest) < 1 {
			return Value{}, 0, &DecodeError{Message: "insufficient data for bool"}
		}
		return Value{Type: TypeBool, Bool: rest[0] != 0}, offset + 1, nil

	case TypeNull:
		return Value{Type: TypeNull}, offset, nil

	case TypeString, TypeBytes:
		if len(rest) < 4 {
			return Value{}, 0, &DecodeError{Message: fmt.Sprintf("insufficient data for %s length", valueType)}
		}
		length := int(binary.LittleEndian.Uint32(rest))
		offset += 4
		if len(data[offset:]) < length {
			return Value{}, 0, &DecodeError{Message: fmt.Sprintf("insufficient data for %s content", valueType)}
		}
		content := data[offset : offset+length]
		if valueType == TypeString {
			return Value{Type: TypeString, String: string(content)}, offset + length, nil
		}
		return Value{Type: TypeBytes, Bytes: append([]byte(nil), content...)}, offset + length, nil

	case TypeMessage:
		if len(rest) < 4 {
			return Value{}, 0, &DecodeError{Message: "insufficient data for message field count"}
		}
		fieldCount := int(binary.LittleEndian.Uint32(rest))
		offset += 4
		fields := make([]Field, 0, min(fieldCount, len(data)))

		for i := 0; i < fieldCount; i++ {
			if len(data[offset:]) < 4 {
				return Value{}, 0, &DecodeError{Message: "insufficient data for field number"}
			}
			number := binary.LittleEndian.Uint32(data[offset:])
			offset += 4

			value, n, err := Decode(data[offset:])
			if err != nil {
				return Value{}, 0, err
			}
			fields = append(fields, Field{Number: number, Value: value})
			offset += n
		}
		return Value{Type: TypeMessage, Message: fields}, offset, nil

	case TypeList:
		if len(rest) < 4 {
			return Value{}, 0, &DecodeError{Message: "insufficient data for list length"}
		}
		length := int(binary.LittleEndian.Uint32(rest))
		offset += 4
		items := make([]Value, 0, min(length, len(data)))

		for i := 0; i < length; i++ {
			value, n, err := Decode(data[offset:])
			if err != nil {
				return Value{}, 0, err
			}
			items = append(items, value)
			offset += n
		}
		return Value{Type: TypeList, List: items}, offset, nil

	default:
		return Value{}, 0, &DecodeError{Message: fmt.Sprintf("unknown type: %d", valueType)}
	}
}
