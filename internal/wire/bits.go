package wire

import (
	"fmt"

	"github.com/danmuck/binstruct/internal/bitpack"
)

type BitOrder = bitpack.Order

const (
	MSBFirst = bitpack.MSBFirst
	LSBFirst = bitpack.LSBFirst
)

func ParseBitOrder(raw string) (BitOrder, error) { return bitpack.ParseOrder(raw) }

// BitField is a sub-byte slot. It is only accepted by a BitSchema.
type BitField struct {
	width int
}

// Bit is a one-bit flag decoded as bool.
func Bit() *BitField { return &BitField{width: 1} }

// Bits is an n-bit unsigned integer decoded as uint64.
func Bits(n int) *BitField { return &BitField{width: n} }

func (*BitField) Kind() Kind   { return KindBit }
func (b *BitField) Width() int { return b.width }

type bitFieldDef struct {
	name  string
	width int
	cfg   fieldConfig
}

// BitSchema is a fixed-size container of bit fields.
type BitSchema struct {
	name   string
	layout bitpack.Layout
	fields []bitFieldDef
	index  map[string]int
}

type BitBuilder struct {
	name   string
	size   int
	order  BitOrder
	endian Endian
	fields []*fieldDef
}

func NewBitSchema(name string, size int) *BitBuilder {
	return &BitBuilder{name: name, size: size}
}

func (b *BitBuilder) Field(name string, def Definition, opts ...FieldOption) *BitBuilder {
	b.fields = append(b.fields, newFieldDef(name, def, opts))
	return b
}

func (b *BitBuilder) Order(o BitOrder) *BitBuilder {
	b.order = o
	return b
}

// Endian sets the container byte order. Containers are little-endian unless
// set to BigEndian here; the global default does not apply.
func (b *BitBuilder) Endian(e Endian) *BitBuilder {
	b.endian = e
	return b
}

func (b *BitBuilder) MustBuild() *BitSchema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

// Build checks field kinds and that widths fill the container exactly.
func (b *BitBuilder) Build() (*BitSchema, error) {
	s := &BitSchema{name: b.name, index: make(map[string]int, len(b.fields))}
	widths := make([]int, 0, len(b.fields))
	for _, fd := range b.fields {
		if fd.name == "" || pathHead(fd.name) != fd.name {
			return nil, definitionErr(b.name, fd.name, "field name must be non-empty and contain no path separators")
		}
		bf, ok := fd.def.(*BitField)
		if !ok || fd.def.Kind() != KindBit {
			return nil, definitionErr(b.name, fd.name, fmt.Sprintf("byte-level definition %T in a bit container", fd.def))
		}
		if _, dup := s.index[fd.name]; dup {
			return nil, definitionErr(b.name, fd.name, "duplicate field name")
		}
		s.index[fd.name] = len(s.fields)
		s.fields = append(s.fields, bitFieldDef{name: fd.name, width: bf.width, cfg: fd.cfg})
		widths = append(widths, bf.width)
	}
	layout, err := bitpack.NewLayout(b.size, b.order, widths)
	if err != nil {
		return nil, &DefinitionError{Schema: b.name, Reason: "bit layout", Err: err}
	}
	if b.endian == BigEndian {
		layout = layout.WithByteOrder(bitpack.BigEndian)
	}
	s.layout = layout
	return s, nil
}

func (s *BitSchema) Name() string    { return s.name }
func (s *BitSchema) Size() int       { return s.layout.Size() }
func (s *BitSchema) Order() BitOrder { return s.layout.Order() }

func (s *BitSchema) Endian() Endian {
	if s.layout.ByteOrder() == bitpack.BigEndian {
		return BigEndian
	}
	return LittleEndian
}

func (s *BitSchema) Fields() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.name
	}
	return out
}

// New returns a record holding defaults, or zero values where none are set.
func (s *BitSchema) New() *BitRecord {
	r := &BitRecord{schema: s, values: make([]any, len(s.fields))}
	for i, f := range s.fields {
		if v, ok := (&fieldDef{cfg: f.cfg}).defaultValue(); ok {
			r.values[i] = v
			continue
		}
		r.values[i] = zeroBit(f.width)
	}
	return r
}

func zeroBit(width int) any {
	if width == 1 {
		return false
	}
	return uint64(0)
}

func (s *BitSchema) Decode(raw []byte) (*BitRecord, error) {
	vals, err := s.layout.Unpack(raw)
	if err != nil {
		return nil, &UnexpectedEOFError{Expected: s.Size(), Got: len(raw)}
	}
	r := &BitRecord{schema: s, values: make([]any, len(vals))}
	for i, v := range vals {
		if s.fields[i].width == 1 {
			r.values[i] = v != 0
			continue
		}
		r.values[i] = v
	}
	return r, nil
}

func (s *BitSchema) Encode(r *BitRecord) ([]byte, error) {
	vals := make([]uint64, len(s.fields))
	for i, f := range s.fields {
		v, err := toUint64(r.values[i], f.width)
		if err != nil {
			return nil, serializationErr(f.name, "%v", err)
		}
		vals[i] = v
	}
	out, err := s.layout.Pack(vals)
	if err != nil {
		return nil, serializationErr(s.name, "%v", err)
	}
	return out, nil
}

// BitRecord holds decoded bit field values.
type BitRecord struct {
	schema *BitSchema
	values []any
}

func (r *BitRecord) Schema() *BitSchema { return r.schema }

func (r *BitRecord) Lookup(name string) (any, bool) {
	i, ok := r.schema.index[name]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

func (r *BitRecord) Get(name string) any {
	v, _ := r.Lookup(name)
	return v
}

func (r *BitRecord) Set(name string, v any) error {
	i, ok := r.schema.index[name]
	if !ok {
		return fmt.Errorf("%w: %s has no bit field %q", ErrUnknownField, r.schema.name, name)
	}
	r.values[i] = v
	return nil
}

// MustSet is Set for statically known names; it panics on error.
func (r *BitRecord) MustSet(name string, v any) *BitRecord {
	if err := r.Set(name, v); err != nil {
		panic(err)
	}
	return r
}

func (r *BitRecord) Bytes() ([]byte, error) { return r.schema.Encode(r) }

func (r *BitRecord) Equal(other *BitRecord) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.schema != other.schema {
		return false
	}
	for i := range r.values {
		if !Equal(r.values[i], other.values[i]) {
			return false
		}
	}
	return true
}

func (r *BitRecord) ToDict() map[string]any {
	out := make(map[string]any, len(r.values))
	for i, f := range r.schema.fields {
		out[f.name] = r.values[i]
	}
	return out
}

func (r *BitRecord) collect(errs *ValidationErrors, prefix string) {
	for i, f := range r.schema.fields {
		for _, fv := range f.cfg.validators {
			if err := fv.ValidateField(r.values[i], nil); err != nil {
				*errs = append(*errs, &FieldValidationError{Field: prefix + f.name, Err: err})
			}
		}
	}
}

type packedField struct {
	schema *BitSchema
}

// Packed embeds a bit container as a single byte-oriented field. Its value
// is a *BitRecord whose fields are reachable with dotted Refs.
func Packed(s *BitSchema) Field { return packedField{schema: s} }

func (packedField) Kind() Kind                         { return KindByte }
func (p packedField) FixedSize() (int, bool)           { return p.schema.Size(), true }
func (p packedField) Size(*Instance, any) (int, error) { return p.schema.Size(), nil }

func (p packedField) Parse(src *Source, _ *Instance) (any, error) {
	raw, err := src.Read(p.schema.Size())
	if err != nil {
		return nil, err
	}
	return p.schema.Decode(raw)
}

func (p packedField) Serialize(v any, _ *Instance) ([]byte, error) {
	switch r := v.(type) {
	case nil:
		return p.schema.Encode(p.schema.New())
	case *BitRecord:
		if r.schema != p.schema {
			return nil, serializationErr("", "bit record %s does not match container %s", r.schema.name, p.schema.name)
		}
		return p.schema.Encode(r)
	case map[string]any:
		rec := p.schema.New()
		for k, val := range r {
			if err := rec.Set(k, val); err != nil {
				return nil, serializationErr("", "%v", err)
			}
		}
		return p.schema.Encode(rec)
	default:
		return nil, serializationErr("", "expected *wire.BitRecord, got %T", v)
	}
}

func (p packedField) checkDefinition() error {
	if p.schema == nil {
		return fmt.Errorf("packed field without bit schema")
	}
	return nil
}
