package wire

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
)

type absent struct{}

func (absent) String() string { return "<absent>" }

// Absent is stored for a When field whose predicate was false.
var Absent any = absent{}

func IsAbsent(v any) bool {
	_, ok := v.(absent)
	return ok
}

type numKind uint8

const (
	numNone numKind = iota
	numInt
	numUint
	numFloat
)

type number struct {
	kind numKind
	i    int64
	u    uint64
	f    float64
}

func asNumber(v any) (number, bool) {
	switch x := v.(type) {
	case int:
		return number{kind: numInt, i: int64(x)}, true
	case int8:
		return number{kind: numInt, i: int64(x)}, true
	case int16:
		return number{kind: numInt, i: int64(x)}, true
	case int32:
		return number{kind: numInt, i: int64(x)}, true
	case int64:
		return number{kind: numInt, i: x}, true
	case uint:
		return number{kind: numUint, u: uint64(x)}, true
	case uint8:
		return number{kind: numUint, u: uint64(x)}, true
	case uint16:
		return number{kind: numUint, u: uint64(x)}, true
	case uint32:
		return number{kind: numUint, u: uint64(x)}, true
	case uint64:
		return number{kind: numUint, u: x}, true
	case float32:
		return number{kind: numFloat, f: float64(x)}, true
	case float64:
		return number{kind: numFloat, f: x}, true
	case EnumValue:
		return number{kind: numUint, u: x.Value}, true
	case FlagSet:
		return number{kind: numUint, u: x.Value}, true
	}
	return number{}, false
}

func (n number) float() float64 {
	switch n.kind {
	case numInt:
		return float64(n.i)
	case numUint:
		return float64(n.u)
	default:
		return n.f
	}
}

func compareNumbers(a, b number) int {
	if a.kind == numFloat || b.kind == numFloat {
		af, bf := a.float(), b.float()
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	if a.kind == numInt && a.i < 0 {
		if b.kind == numInt && b.i < 0 {
			return cmp3(a.i, b.i)
		}
		return -1
	}
	if b.kind == numInt && b.i < 0 {
		return 1
	}
	return cmp3(a.unsigned(), b.unsigned())
}

func (n number) unsigned() uint64 {
	if n.kind == numInt {
		return uint64(n.i)
	}
	return n.u
}

func cmp3[T int64 | uint64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Equal reports whether two stored values are equal, normalizing numeric
// kinds and comparing byte slices by content.
func Equal(a, b any) bool {
	if an, ok := asNumber(a); ok {
		if bn, ok := asNumber(b); ok {
			return compareNumbers(an, bn) == 0
		}
		return false
	}
	switch x := a.(type) {
	case nil:
		return b == nil
	case absent:
		return IsAbsent(b)
	case []byte:
		switch y := b.(type) {
		case []byte:
			return bytes.Equal(x, y)
		case string:
			return string(x) == y
		}
		return false
	case string:
		switch y := b.(type) {
		case string:
			return x == y
		case []byte:
			return x == string(y)
		}
		return false
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case *Instance:
		y, ok := b.(*Instance)
		return ok && x.Equal(y)
	case *BitRecord:
		y, ok := b.(*BitRecord)
		return ok && x.Equal(y)
	case Variant:
		y, ok := b.(Variant)
		return ok && Equal(x.Tag, y.Tag) && Equal(x.Value, y.Value)
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// Compare orders two values. Numbers, strings, and byte slices are ordered;
// everything else is ErrIncomparable.
func Compare(a, b any) (int, error) {
	if an, ok := asNumber(a); ok {
		if bn, ok := asNumber(b); ok {
			return compareNumbers(an, bn), nil
		}
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return cmp3(x, y), nil
		}
	case []byte:
		if y, ok := b.([]byte); ok {
			return bytes.Compare(x, y), nil
		}
	}
	return 0, fmt.Errorf("%w: %v (%T) and %v (%T)", ErrIncomparable, a, a, b, b)
}

// ToInt converts an integer-valued number to int.
func ToInt(v any) (int, error) {
	n, ok := asNumber(v)
	if !ok {
		return 0, fmt.Errorf("wire: %v (%T) is not an integer", v, v)
	}
	switch n.kind {
	case numInt:
		return int(n.i), nil
	case numUint:
		if n.u > math.MaxInt {
			return 0, fmt.Errorf("wire: %d overflows int", n.u)
		}
		return int(n.u), nil
	default:
		if n.f != math.Trunc(n.f) {
			return 0, fmt.Errorf("wire: %v is not an integer", n.f)
		}
		return int(n.f), nil
	}
}

func toUint64(v any, bits int) (uint64, error) {
	if v == nil {
		return 0, nil
	}
	if b, ok := v.(bool); ok {
		if b {
			return 1, nil
		}
		return 0, nil
	}
	n, ok := asNumber(v)
	if !ok || n.kind == numFloat {
		return 0, fmt.Errorf("expected unsigned integer, got %T", v)
	}
	if n.kind == numInt && n.i < 0 {
		return 0, fmt.Errorf("value %d is negative", n.i)
	}
	u := n.unsigned()
	if bits < 64 && u > (uint64(1)<<uint(bits))-1 {
		return 0, fmt.Errorf("value %d exceeds %d-bit range", u, bits)
	}
	return u, nil
}

func toInt64(v any, bits int) (int64, error) {
	if v == nil {
		return 0, nil
	}
	n, ok := asNumber(v)
	if !ok || n.kind == numFloat {
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
	if n.kind == numUint && n.u > math.MaxInt64 {
		return 0, fmt.Errorf("value %d exceeds %d-bit range", n.u, bits)
	}
	i := n.i
	if n.kind == numUint {
		i = int64(n.u)
	}
	lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
	if bits < 64 {
		lo, hi = -(int64(1) << uint(bits-1)), (int64(1)<<uint(bits-1))-1
	}
	if i < lo || i > hi {
		return 0, fmt.Errorf("value %d exceeds %d-bit range", i, bits)
	}
	return i, nil
}

func toFloat64(v any) (float64, error) {
	if v == nil {
		return 0, nil
	}
	n, ok := asNumber(v)
	if !ok {
		return 0, fmt.Errorf("expected number, got %T", v)
	}
	return n.float(), nil
}

// arith applies + - * / to two numbers. Integer operands stay integral;
// division truncates toward zero.
func arith(op string, a, b any) (any, error) {
	an, ok := asNumber(a)
	if !ok {
		return nil, fmt.Errorf("wire: arithmetic on %T", a)
	}
	bn, ok := asNumber(b)
	if !ok {
		return nil, fmt.Errorf("wire: arithmetic on %T", b)
	}
	if an.kind == numFloat || bn.kind == numFloat {
		x, y := an.float(), bn.float()
		switch op {
		case "+":
			return x + y, nil
		case "-":
			return x - y, nil
		case "*":
			return x * y, nil
		case "/":
			if y == 0 {
				return nil, fmt.Errorf("wire: division by zero")
			}
			return x / y, nil
		}
		return nil, fmt.Errorf("wire: unknown operator %q", op)
	}
	x, y := an.signed(), bn.signed()
	switch op {
	case "+":
		return x + y, nil
	case "-":
		return x - y, nil
	case "*":
		return x * y, nil
	case "/":
		if y == 0 {
			return nil, fmt.Errorf("wire: division by zero")
		}
		return x / y, nil
	}
	return nil, fmt.Errorf("wire: unknown operator %q", op)
}

func (n number) signed() int64 {
	if n.kind == numUint {
		return int64(n.u)
	}
	return n.i
}
