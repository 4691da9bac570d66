// Package bitpack packs and unpacks fixed-width bit fields inside a small
// byte container.
//
// A container of n bytes (1..8) is read as a single unsigned integer,
// little-endian unless the layout says otherwise. With MSBFirst the first
// field occupies the top bits of that integer; with LSBFirst it occupies
// bit 0. Byte order and bit order are independent.
package bitpack

import (
	"errors"
	"fmt"
	"strings"
)

type Order uint8

const (
	MSBFirst Order = iota
	LSBFirst
)

// ByteOrder is how the container bytes map onto the integer.
type ByteOrder uint8

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

const MaxBytes = 8

var (
	ErrContainerSize = errors.New("bitpack: container size must be 1..8 bytes")
	ErrWidth         = errors.New("bitpack: field width out of range")
	ErrWidthSum      = errors.New("bitpack: field widths do not fill container")
	ErrShort         = errors.New("bitpack: short container")
	ErrValueRange    = errors.New("bitpack: value exceeds field width")
)

func (o Order) String() string {
	switch o {
	case LSBFirst:
		return "lsb"
	default:
		return "msb"
	}
}

func ParseOrder(raw string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "msb", "msb_first":
		return MSBFirst, nil
	case "lsb", "lsb_first":
		return LSBFirst, nil
	default:
		return MSBFirst, fmt.Errorf("bitpack: unknown bit order %q", raw)
	}
}

// Layout is a validated ordered list of field widths.
type Layout struct {
	size   int
	order  Order
	bytes  ByteOrder
	widths []int
}

// NewLayout checks that widths exactly fill size bytes.
func NewLayout(size int, order Order, widths []int) (Layout, error) {
	if size < 1 || size > MaxBytes {
		return Layout{}, fmt.Errorf("%w: got %d", ErrContainerSize, size)
	}
	total := 0
	for i, w := range widths {
		if w < 1 || w > 64 {
			return Layout{}, fmt.Errorf("%w: field %d width=%d", ErrWidth, i, w)
		}
		total += w
	}
	if total != size*8 {
		return Layout{}, fmt.Errorf("%w: %d bits declared, container holds %d", ErrWidthSum, total, size*8)
	}
	ws := make([]int, len(widths))
	copy(ws, widths)
	return Layout{size: size, order: order, widths: ws}, nil
}

// WithByteOrder returns a copy of l that loads and stores the container in b.
func (l Layout) WithByteOrder(b ByteOrder) Layout {
	l.bytes = b
	return l
}

func (l Layout) Size() int            { return l.size }
func (l Layout) Order() Order         { return l.order }
func (l Layout) ByteOrder() ByteOrder { return l.bytes }
func (l Layout) Fields() int          { return len(l.widths) }

// Unpack splits raw into one value per field, in declaration order.
func (l Layout) Unpack(raw []byte) ([]uint64, error) {
	if len(raw) < l.size {
		return nil, fmt.Errorf("%w: need=%d got=%d", ErrShort, l.size, len(raw))
	}
	word := Load(raw[:l.size], l.bytes)
	out := make([]uint64, len(l.widths))
	if l.order == LSBFirst {
		shift := 0
		for i, w := range l.widths {
			out[i] = (word >> uint(shift)) & mask(w)
			shift += w
		}
		return out, nil
	}
	shift := l.size * 8
	for i, w := range l.widths {
		shift -= w
		out[i] = (word >> uint(shift)) & mask(w)
	}
	return out, nil
}

// Pack is the inverse of Unpack.
func (l Layout) Pack(values []uint64) ([]byte, error) {
	if len(values) != len(l.widths) {
		return nil, fmt.Errorf("bitpack: pack got %d values for %d fields", len(values), len(l.widths))
	}
	var word uint64
	shift := 0
	if l.order == MSBFirst {
		shift = l.size * 8
	}
	for i, w := range l.widths {
		v := values[i]
		if v&^mask(w) != 0 {
			return nil, fmt.Errorf("%w: field %d value=%d width=%d", ErrValueRange, i, v, w)
		}
		if l.order == LSBFirst {
			word |= v << uint(shift)
			shift += w
			continue
		}
		shift -= w
		word |= v << uint(shift)
	}
	return Store(word, l.size, l.bytes), nil
}

// Load reads up to 8 bytes as an unsigned integer.
func Load(raw []byte, order ByteOrder) uint64 {
	var word uint64
	if order == BigEndian {
		for _, b := range raw {
			word = word<<8 | uint64(b)
		}
		return word
	}
	for i := len(raw) - 1; i >= 0; i-- {
		word = word<<8 | uint64(raw[i])
	}
	return word
}

// Store writes the low size bytes of word.
func Store(word uint64, size int, order ByteOrder) []byte {
	out := make([]byte, size)
	for i := 0; i < size; i++ {
		b := byte(word >> uint(8*i))
		if order == BigEndian {
			out[size-1-i] = b
		} else {
			out[i] = b
		}
	}
	return out
}

func mask(w int) uint64 {
	if w >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(w) - 1
}
