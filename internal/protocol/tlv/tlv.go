// Package tlv encodes typed id/type/length/value records as an engine
// schema. Unknown type IDs are kept as raw bytes.
package tlv

import (
	"errors"
	"fmt"

	"github.com/danmuck/binstruct/internal/wire"
)

const HeaderLen = 7

var (
	ErrShortFieldHeader = errors.New("tlv: short field header")
	ErrShortFieldValue  = errors.New("tlv: short field value")
	ErrLengthMismatch   = errors.New("tlv: length does not match value width")
)

// Type IDs from tlv contract.
const (
	TypeU8     uint8 = 1
	TypeU16    uint8 = 2
	TypeU32    uint8 = 3
	TypeU64    uint8 = 4
	TypeBool   uint8 = 5
	TypeString uint8 = 6
	TypeBytes  uint8 = 7
)

var Record = wire.NewSchema("TLVRecord").
	Endian(wire.BigEndian).
	Field("id", wire.UInt16()).
	Field("type", wire.UInt8()).
	Field("length", wire.UInt32()).
	Field("value", wire.Switch(wire.Ref("type"),
		wire.Case(TypeU8, wire.UInt8()),
		wire.Case(TypeU16, wire.UInt16()),
		wire.Case(TypeU32, wire.UInt32()),
		wire.Case(TypeU64, wire.UInt64()),
		wire.Case(TypeBool, wire.Bool()),
		wire.Case(TypeString, wire.String(wire.Ref("length"))),
		wire.Case(TypeBytes, wire.Bytes(wire.Ref("length"))),
	).Default(wire.Bytes(wire.Ref("length")))).
	Sync(
		wire.SyncTag("type", "value"),
		wire.SyncExpr("length", wire.SizeOf("value")),
	).
	Validate(wire.Consistency{Field: "length", Equals: wire.SizeOf("value")}).
	MustBuild()

// Field is one decoded TLV field. Value holds the Go type for Type: uint8,
// uint16, uint32, uint64, bool, string, or []byte for bytes and unknown types.
type Field struct {
	ID    uint16
	Type  uint8
	Value any
}

func U8(id uint16, v uint8) Field      { return Field{ID: id, Type: TypeU8, Value: v} }
func U16(id uint16, v uint16) Field    { return Field{ID: id, Type: TypeU16, Value: v} }
func U32(id uint16, v uint32) Field    { return Field{ID: id, Type: TypeU32, Value: v} }
func U64(id uint16, v uint64) Field    { return Field{ID: id, Type: TypeU64, Value: v} }
func Bool(id uint16, v bool) Field     { return Field{ID: id, Type: TypeBool, Value: v} }
func String(id uint16, v string) Field { return Field{ID: id, Type: TypeString, Value: v} }
func Bytes(id uint16, v []byte) Field  { return Field{ID: id, Type: TypeBytes, Value: append([]byte{}, v...)} }

func EncodeField(f Field) ([]byte, error) {
	in := Record.New().
		MustSet("id", f.ID).
		MustSet("value", wire.Variant{Tag: f.Type, Value: f.Value})
	out, err := in.ToBytes(wire.EncodeOptions{Sync: true})
	if err != nil {
		return nil, fmt.Errorf("tlv: encode field %d: %w", f.ID, err)
	}
	return out, nil
}

func EncodeFields(fields []Field) ([]byte, error) {
	out := make([]byte, 0)
	for _, f := range fields {
		b, err := EncodeField(f)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

// DecodeFields reads records until payload is consumed. Each record is
// parsed with AllowTrailing so the next one starts where it stopped.
func DecodeFields(payload []byte) ([]Field, error) {
	fields := make([]Field, 0)
	for rest := payload; len(rest) > 0; {
		in, err := Record.ParseWith(rest, wire.DecodeOptions{AllowTrailing: true})
		if err != nil {
			return nil, shortError(err)
		}
		if err := in.Validate(); err != nil {
			id, _ := in.Uint("id")
			return nil, fmt.Errorf("%w: field %d: %v", ErrLengthMismatch, id, err)
		}
		fields = append(fields, fieldFrom(in))
		rest = rest[len(rest)-in.Trailing():]
	}
	return fields, nil
}

func shortError(err error) error {
	var eof *wire.UnexpectedEOFError
	if !errors.As(err, &eof) {
		return err
	}
	if eof.Field == "value" {
		return fmt.Errorf("%w: %v", ErrShortFieldValue, err)
	}
	return fmt.Errorf("%w: %v", ErrShortFieldHeader, err)
}

func fieldFrom(in *wire.Instance) Field {
	id, _ := in.Uint("id")
	typ, _ := in.Uint("type")
	f := Field{ID: uint16(id), Type: uint8(typ)}
	if v, ok := in.Get("value").(wire.Variant); ok {
		f.Value = v.Value
	}
	return f
}

func GetField(fields []Field, id uint16) (Field, bool) {
	for _, f := range fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

func MustType(f Field, expected uint8) error {
	if f.Type != expected {
		return fmt.Errorf("tlv: field %d type mismatch: got %d want %d", f.ID, f.Type, expected)
	}
	return nil
}

func (f Field) Uint() (uint64, error) {
	switch v := f.Value.(type) {
	case uint8:
		return uint64(v), nil
	case uint16:
		return uint64(v), nil
	case uint32:
		return uint64(v), nil
	case uint64:
		return v, nil
	}
	return 0, fmt.Errorf("tlv: field %d is type %d, not an integer", f.ID, f.Type)
}

func (f Field) Text() (string, error) {
	if s, ok := f.Value.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("tlv: field %d is type %d, not a string", f.ID, f.Type)
}
