package wire

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync/atomic"
)

type Endian uint8

const (
	// EndianUnset defers to the next tier: field, then schema, then global.
	EndianUnset Endian = iota
	LittleEndian
	BigEndian
)

var defaultEndian atomic.Uint32

func init() {
	defaultEndian.Store(uint32(LittleEndian))
}

// SetDefaultEndian changes the global byte order used when neither the field
// nor its schema sets one.
func SetDefaultEndian(e Endian) {
	if e == EndianUnset {
		e = LittleEndian
	}
	defaultEndian.Store(uint32(e))
}

func DefaultEndian() Endian {
	return Endian(defaultEndian.Load())
}

func ParseEndian(raw string) (Endian, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return EndianUnset, nil
	case "little", "le", "<":
		return LittleEndian, nil
	case "big", "be", ">", "network", "!":
		return BigEndian, nil
	default:
		return EndianUnset, fmt.Errorf("wire: unknown endian %q", raw)
	}
}

func (e Endian) String() string {
	switch e {
	case LittleEndian:
		return "little"
	case BigEndian:
		return "big"
	default:
		return "unset"
	}
}

func (e Endian) order() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// resolveEndian picks field override, then the instance schema's option,
// then the global default.
func resolveEndian(field Endian, in *Instance) Endian {
	if field != EndianUnset {
		return field
	}
	if in != nil && in.schema != nil && in.schema.endian != EndianUnset {
		return in.schema.endian
	}
	return DefaultEndian()
}
