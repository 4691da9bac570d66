package wire

import "math"

// IntField is a fixed-width integer. Values parse to the matching Go type
// (int8..int64, uint8..uint64); any integer kind in range serializes.
type IntField struct {
	bits   int
	signed bool
	endian Endian
}

func Int8() *IntField   { return &IntField{bits: 8, signed: true} }
func Int16() *IntField  { return &IntField{bits: 16, signed: true} }
func Int32() *IntField  { return &IntField{bits: 32, signed: true} }
func Int64() *IntField  { return &IntField{bits: 64, signed: true} }
func UInt8() *IntField  { return &IntField{bits: 8} }
func UInt16() *IntField { return &IntField{bits: 16} }
func UInt32() *IntField { return &IntField{bits: 32} }
func UInt64() *IntField { return &IntField{bits: 64} }

// WithEndian overrides the schema and global byte order for this field.
func (f *IntField) WithEndian(e Endian) *IntField {
	cp := *f
	cp.endian = e
	return &cp
}

func (f *IntField) Kind() Kind                       { return KindByte }
func (f *IntField) FixedSize() (int, bool)           { return f.bits / 8, true }
func (f *IntField) Size(*Instance, any) (int, error) { return f.bits / 8, nil }

func (f *IntField) Parse(src *Source, in *Instance) (any, error) {
	b, err := src.Read(f.bits / 8)
	if err != nil {
		return nil, err
	}
	order := resolveEndian(f.endian, in).order()
	switch f.bits {
	case 8:
		if f.signed {
			return int8(b[0]), nil
		}
		return b[0], nil
	case 16:
		u := order.Uint16(b)
		if f.signed {
			return int16(u), nil
		}
		return u, nil
	case 32:
		u := order.Uint32(b)
		if f.signed {
			return int32(u), nil
		}
		return u, nil
	default:
		u := order.Uint64(b)
		if f.signed {
			return int64(u), nil
		}
		return u, nil
	}
}

func (f *IntField) Serialize(v any, in *Instance) ([]byte, error) {
	var u uint64
	if f.signed {
		i, err := toInt64(v, f.bits)
		if err != nil {
			return nil, serializationErr("", "%v", err)
		}
		u = uint64(i)
	} else {
		x, err := toUint64(v, f.bits)
		if err != nil {
			return nil, serializationErr("", "%v", err)
		}
		u = x
	}
	return putUint(u, f.bits/8, resolveEndian(f.endian, in)), nil
}

func putUint(u uint64, size int, e Endian) []byte {
	out := make([]byte, size)
	order := e.order()
	switch size {
	case 1:
		out[0] = byte(u)
	case 2:
		order.PutUint16(out, uint16(u))
	case 4:
		order.PutUint32(out, uint32(u))
	case 8:
		order.PutUint64(out, u)
	default:
		for i := 0; i < size; i++ {
			shift := uint(8 * i)
			if e == BigEndian {
				shift = uint(8 * (size - 1 - i))
			}
			out[i] = byte(u >> shift)
		}
	}
	return out
}

func getUint(b []byte, e Endian) uint64 {
	var u uint64
	for i := range b {
		idx := i
		if e == LittleEndian {
			idx = len(b) - 1 - i
		}
		u = u<<8 | uint64(b[idx])
	}
	return u
}

// FloatField is an IEEE-754 float32 or float64.
type FloatField struct {
	bits   int
	endian Endian
}

func Float32() *FloatField { return &FloatField{bits: 32} }
func Float64() *FloatField { return &FloatField{bits: 64} }

func (f *FloatField) WithEndian(e Endian) *FloatField {
	cp := *f
	cp.endian = e
	return &cp
}

func (f *FloatField) Kind() Kind                       { return KindByte }
func (f *FloatField) FixedSize() (int, bool)           { return f.bits / 8, true }
func (f *FloatField) Size(*Instance, any) (int, error) { return f.bits / 8, nil }

func (f *FloatField) Parse(src *Source, in *Instance) (any, error) {
	b, err := src.Read(f.bits / 8)
	if err != nil {
		return nil, err
	}
	order := resolveEndian(f.endian, in).order()
	if f.bits == 32 {
		return math.Float32frombits(order.Uint32(b)), nil
	}
	return math.Float64frombits(order.Uint64(b)), nil
}

func (f *FloatField) Serialize(v any, in *Instance) ([]byte, error) {
	x, err := toFloat64(v)
	if err != nil {
		return nil, serializationErr("", "%v", err)
	}
	e := resolveEndian(f.endian, in)
	if f.bits == 32 {
		return putUint(uint64(math.Float32bits(float32(x))), 4, e), nil
	}
	return putUint(math.Float64bits(x), 8, e), nil
}
