package wire

import (
	"bytes"
	"fmt"
)

type BoolField struct{}

// Bool is one byte: zero is false, anything else true.
func Bool() BoolField { return BoolField{} }

func (BoolField) Kind() Kind                       { return KindByte }
func (BoolField) FixedSize() (int, bool)           { return 1, true }
func (BoolField) Size(*Instance, any) (int, error) { return 1, nil }

func (BoolField) Parse(src *Source, _ *Instance) (any, error) {
	b, err := src.Read(1)
	if err != nil {
		return nil, err
	}
	return b[0] != 0, nil
}

func (BoolField) Serialize(v any, _ *Instance) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return []byte{0}, nil
	case bool:
		if x {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	}
	u, err := toUint64(v, 64)
	if err != nil {
		return nil, serializationErr("", "%v", err)
	}
	if u != 0 {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}

type PaddingField struct {
	size Extent
	fill byte
}

// Padding skips size bytes on parse and writes fill bytes on serialize. It
// stores nothing and is never required.
func Padding(size Extent, fill byte) *PaddingField {
	return &PaddingField{size: size, fill: fill}
}

func (p *PaddingField) Kind() Kind              { return KindByte }
func (p *PaddingField) optionalByDefault() bool { return true }

func (p *PaddingField) FixedSize() (int, bool) {
	n, ok := p.size.(Fixed)
	return int(n), ok
}

func (p *PaddingField) Size(in *Instance, _ any) (int, error) { return p.size.Extent(in) }

func (p *PaddingField) Parse(src *Source, in *Instance) (any, error) {
	n, err := p.size.Extent(in)
	if err != nil {
		return nil, err
	}
	if _, err := src.Read(n); err != nil {
		return nil, err
	}
	return nil, nil
}

func (p *PaddingField) Serialize(_ any, in *Instance) ([]byte, error) {
	n, err := p.size.Extent(in)
	if err != nil {
		return nil, serializationErr("", "%v", err)
	}
	return bytes.Repeat([]byte{p.fill}, n), nil
}

// FlagSet is the decoded value of a Flags field.
type FlagSet struct {
	Value uint64
	names map[string]uint64
}

func (f FlagSet) Has(name string) bool {
	bit, ok := f.names[name]
	return ok && f.Value&bit == bit && bit != 0
}

// Names lists set flags in sorted order.
func (f FlagSet) Names() []string {
	var out []string
	for _, name := range sortedKeys(f.names) {
		if f.Has(name) {
			out = append(out, name)
		}
	}
	return out
}

func (f FlagSet) String() string { return fmt.Sprintf("FlagSet(%v, value=%d)", f.Names(), f.Value) }

type FlagsField struct {
	size   int
	names  map[string]uint64
	endian Endian
}

// Flags maps named bits of a size-byte integer to a FlagSet. Serialize
// accepts a FlagSet, a []string of names, or a raw integer.
func Flags(size int, names map[string]uint64) *FlagsField {
	cp := make(map[string]uint64, len(names))
	for k, v := range names {
		cp[k] = v
	}
	return &FlagsField{size: size, names: cp}
}

func (f *FlagsField) WithEndian(e Endian) *FlagsField {
	cp := *f
	cp.endian = e
	return &cp
}

func (f *FlagsField) Kind() Kind                       { return KindByte }
func (f *FlagsField) FixedSize() (int, bool)           { return f.size, true }
func (f *FlagsField) Size(*Instance, any) (int, error) { return f.size, nil }

// Set builds a FlagSet from names for assignment.
func (f *FlagsField) Set(names ...string) (FlagSet, error) {
	var v uint64
	for _, n := range names {
		bit, ok := f.names[n]
		if !ok {
			return FlagSet{}, fmt.Errorf("wire: unknown flag %q", n)
		}
		v |= bit
	}
	return FlagSet{Value: v, names: f.names}, nil
}

func (f *FlagsField) Parse(src *Source, in *Instance) (any, error) {
	b, err := src.Read(f.size)
	if err != nil {
		return nil, err
	}
	return FlagSet{Value: getUint(b, resolveEndian(f.endian, in)), names: f.names}, nil
}

func (f *FlagsField) Serialize(v any, in *Instance) ([]byte, error) {
	var u uint64
	switch x := v.(type) {
	case FlagSet:
		u = x.Value
	case []string:
		fs, err := f.Set(x...)
		if err != nil {
			return nil, serializationErr("", "%v", err)
		}
		u = fs.Value
	default:
		n, err := toUint64(v, f.size*8)
		if err != nil {
			return nil, serializationErr("", "%v", err)
		}
		u = n
	}
	if f.size < 8 && u >= 1<<uint(f.size*8) {
		return nil, serializationErr("", "flags value %d exceeds %d bytes", u, f.size)
	}
	return putUint(u, f.size, resolveEndian(f.endian, in)), nil
}

func (f *FlagsField) checkDefinition() error {
	if f.size < 1 || f.size > 8 {
		return fmt.Errorf("flags size must be 1..8, got %d", f.size)
	}
	return nil
}

// EnumValue is the decoded value of an Enum field. Name is empty for values
// without a declared name.
type EnumValue struct {
	Value uint64
	Name  string
}

func (e EnumValue) String() string {
	if e.Name != "" {
		return e.Name
	}
	return fmt.Sprintf("%d", e.Value)
}

type EnumField struct {
	size   int
	names  map[uint64]string
	values map[string]uint64
	endian Endian
}

// Enum reads a size-byte integer and names it from names. Unknown values
// are kept as-is.
func Enum(size int, names map[string]uint64) *EnumField {
	f := &EnumField{size: size, names: make(map[uint64]string, len(names)), values: make(map[string]uint64, len(names))}
	for _, name := range sortedKeys(names) {
		v := names[name]
		if _, taken := f.names[v]; !taken {
			f.names[v] = name
		}
		f.values[name] = v
	}
	return f
}

func (f *EnumField) WithEndian(e Endian) *EnumField {
	cp := *f
	cp.endian = e
	return &cp
}

func (f *EnumField) Kind() Kind                       { return KindByte }
func (f *EnumField) FixedSize() (int, bool)           { return f.size, true }
func (f *EnumField) Size(*Instance, any) (int, error) { return f.size, nil }

// Value returns the EnumValue for a declared name.
func (f *EnumField) Value(name string) (EnumValue, bool) {
	v, ok := f.values[name]
	return EnumValue{Value: v, Name: name}, ok
}

func (f *EnumField) Parse(src *Source, in *Instance) (any, error) {
	b, err := src.Read(f.size)
	if err != nil {
		return nil, err
	}
	u := getUint(b, resolveEndian(f.endian, in))
	return EnumValue{Value: u, Name: f.names[u]}, nil
}

func (f *EnumField) Serialize(v any, in *Instance) ([]byte, error) {
	var u uint64
	switch x := v.(type) {
	case EnumValue:
		u = x.Value
	case string:
		n, ok := f.values[x]
		if !ok {
			return nil, serializationErr("", "unknown enum name %q", x)
		}
		u = n
	default:
		n, err := toUint64(v, f.size*8)
		if err != nil {
			return nil, serializationErr("", "%v", err)
		}
		u = n
	}
	if f.size < 8 && u >= 1<<uint(f.size*8) {
		return nil, serializationErr("", "enum value %d exceeds %d bytes", u, f.size)
	}
	return putUint(u, f.size, resolveEndian(f.endian, in)), nil
}

func (f *EnumField) checkDefinition() error {
	if f.size < 1 || f.size > 8 {
		return fmt.Errorf("enum size must be 1..8, got %d", f.size)
	}
	return nil
}
