package wire

import (
	"bytes"
	"fmt"
)

func bytesOf(v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	default:
		return nil, fmt.Errorf("expected bytes or string, got %T", v)
	}
}

type FixedBytesField struct {
	n int
}

// FixedBytes is exactly n raw bytes; shorter values are zero-padded.
func FixedBytes(n int) *FixedBytesField { return &FixedBytesField{n: n} }

func (f *FixedBytesField) Kind() Kind                       { return KindByte }
func (f *FixedBytesField) FixedSize() (int, bool)           { return f.n, true }
func (f *FixedBytesField) Size(*Instance, any) (int, error) { return f.n, nil }

func (f *FixedBytesField) Parse(src *Source, _ *Instance) (any, error) {
	b, err := src.Read(f.n)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(b), nil
}

func (f *FixedBytesField) Serialize(v any, _ *Instance) ([]byte, error) {
	b, err := bytesOf(v)
	if err != nil {
		return nil, serializationErr("", "%v", err)
	}
	if len(b) > f.n {
		return nil, serializationErr("", "value is %d bytes, exceeds fixed length %d", len(b), f.n)
	}
	out := make([]byte, f.n)
	copy(out, b)
	return out, nil
}

type BytesField struct {
	size Extent
}

// Bytes reads size bytes, where size is Fixed or a Ref to an earlier field.
// Serialize writes the stored value as is.
func Bytes(size Extent) *BytesField { return &BytesField{size: size} }

func (f *BytesField) Kind() Kind { return KindByte }

func (f *BytesField) FixedSize() (int, bool) {
	n, ok := f.size.(Fixed)
	return int(n), ok
}

func (f *BytesField) Size(in *Instance, v any) (int, error) {
	if v != nil {
		b, err := bytesOf(v)
		if err != nil {
			return 0, err
		}
		return len(b), nil
	}
	return f.size.Extent(in)
}

func (f *BytesField) Parse(src *Source, in *Instance) (any, error) {
	n, err := f.size.Extent(in)
	if err != nil {
		return nil, err
	}
	b, err := src.Read(n)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(b), nil
}

func (f *BytesField) Serialize(v any, _ *Instance) ([]byte, error) {
	b, err := bytesOf(v)
	if err != nil {
		return nil, serializationErr("", "%v", err)
	}
	return b, nil
}

func (f *BytesField) checkDefinition() error {
	if f.size == nil {
		return fmt.Errorf("bytes field without size")
	}
	return nil
}

type FixedStringField struct {
	n   int
	pad byte
}

// FixedString is an n-byte UTF-8 string padded with pad; trailing pad bytes
// are stripped on parse.
func FixedString(n int, pad byte) *FixedStringField {
	return &FixedStringField{n: n, pad: pad}
}

func (f *FixedStringField) Kind() Kind                       { return KindByte }
func (f *FixedStringField) FixedSize() (int, bool)           { return f.n, true }
func (f *FixedStringField) Size(*Instance, any) (int, error) { return f.n, nil }

func (f *FixedStringField) Parse(src *Source, _ *Instance) (any, error) {
	b, err := src.Read(f.n)
	if err != nil {
		return nil, err
	}
	return string(bytes.TrimRight(b, string([]byte{f.pad}))), nil
}

func (f *FixedStringField) Serialize(v any, _ *Instance) ([]byte, error) {
	b, err := bytesOf(v)
	if err != nil {
		return nil, serializationErr("", "%v", err)
	}
	if len(b) > f.n {
		return nil, serializationErr("", "string too long: %d > %d", len(b), f.n)
	}
	out := bytes.Repeat([]byte{f.pad}, f.n)
	copy(out, b)
	return out, nil
}

type StringField struct {
	length Extent
}

// String reads length bytes as UTF-8. Serialize writes the value unchecked.
func String(length Extent) *StringField { return &StringField{length: length} }

func (f *StringField) Kind() Kind { return KindByte }

func (f *StringField) FixedSize() (int, bool) {
	n, ok := f.length.(Fixed)
	return int(n), ok
}

func (f *StringField) Size(in *Instance, v any) (int, error) {
	if v != nil {
		b, err := bytesOf(v)
		if err != nil {
			return 0, err
		}
		return len(b), nil
	}
	return f.length.Extent(in)
}

func (f *StringField) Parse(src *Source, in *Instance) (any, error) {
	n, err := f.length.Extent(in)
	if err != nil {
		return nil, err
	}
	b, err := src.Read(n)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (f *StringField) Serialize(v any, _ *Instance) ([]byte, error) {
	b, err := bytesOf(v)
	if err != nil {
		return nil, serializationErr("", "%v", err)
	}
	return b, nil
}

func (f *StringField) checkDefinition() error {
	if f.length == nil {
		return fmt.Errorf("string field without length")
	}
	return nil
}

type CStringField struct {
	max int
}

// CString is a NUL-terminated string. When max > 0 the terminator must
// appear within max bytes.
func CString(max int) *CStringField { return &CStringField{max: max} }

func (f *CStringField) Kind() Kind { return KindByte }

func (f *CStringField) Size(_ *Instance, v any) (int, error) {
	b, err := bytesOf(v)
	if err != nil {
		return 0, err
	}
	return len(b) + 1, nil
}

func (f *CStringField) Parse(src *Source, _ *Instance) (any, error) {
	b, err := src.ReadUntil(0, f.max)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (f *CStringField) Serialize(v any, _ *Instance) ([]byte, error) {
	b, err := bytesOf(v)
	if err != nil {
		return nil, serializationErr("", "%v", err)
	}
	if bytes.IndexByte(b, 0) >= 0 {
		return nil, serializationErr("", "string contains NUL")
	}
	if f.max > 0 && len(b)+1 > f.max {
		return nil, serializationErr("", "string too long: %d > %d", len(b)+1, f.max)
	}
	return append(bytes.Clone(b), 0), nil
}
