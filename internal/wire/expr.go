package wire

import (
	"fmt"
	"reflect"

	"github.com/danmuck/binstruct/internal/checksum"
)

// Expression is a read-only computation over instance state, used by
// consistency checks and SyncExpr.
type Expression interface {
	Evaluate(in *Instance) (any, error)
}

type referencer interface {
	refs() []string
}

func exprRefs(e Expression) []string {
	if r, ok := e.(referencer); ok {
		return r.refs()
	}
	return nil
}

func asExpression(v any) Expression {
	switch x := v.(type) {
	case Expression:
		return x
	case Ref:
		return ValueOf(string(x))
	default:
		return Const(v)
	}
}

type lenExpr struct{ path Ref }

// LenOf is the length of a bytes, string, or list field, or the encoded
// size of a struct field.
func LenOf(path string) Expression { return lenExpr{path: Ref(path)} }

func (e lenExpr) Evaluate(in *Instance) (any, error) {
	v, err := e.path.Resolve(in)
	if err != nil {
		return nil, err
	}
	return lengthOf(v)
}

func (e lenExpr) refs() []string { return []string{string(e.path)} }
func (e lenExpr) String() string { return fmt.Sprintf("len(%s)", e.path) }

func lengthOf(v any) (int, error) {
	switch x := unwrapVariant(v).(type) {
	case nil, absent:
		return 0, nil
	case []byte:
		return len(x), nil
	case string:
		return len(x), nil
	case []any:
		return len(x), nil
	case *Instance:
		return x.Size()
	case *BitRecord:
		return x.schema.Size(), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		return rv.Len(), nil
	}
	return 0, fmt.Errorf("wire: len of %T", v)
}

type sizeExpr struct{ path Ref }

// SizeOf is the encoded size of the field at path, including struct-valued
// fields and the whole instance when path is "/". Fields of the current
// instance are measured by their own definition, so a switch or integer
// field reports its wire width.
func SizeOf(path string) Expression { return sizeExpr{path: Ref(path)} }

func (e sizeExpr) Evaluate(in *Instance) (any, error) {
	if e.path == "/" {
		return in.root.Size()
	}
	if f, ok := in.schema.Field(string(e.path)); ok {
		v, _ := in.Lookup(string(e.path))
		if IsAbsent(v) {
			return 0, nil
		}
		return f.Size(in, v)
	}
	v, err := e.path.Resolve(in)
	if err != nil {
		return nil, err
	}
	switch x := unwrapVariant(v).(type) {
	case *Instance:
		return x.Size()
	case *BitRecord:
		return x.schema.Size(), nil
	}
	return lengthOf(v)
}

func (e sizeExpr) refs() []string { return []string{string(e.path)} }
func (e sizeExpr) String() string { return fmt.Sprintf("size(%s)", e.path) }

type valueExpr struct{ path Ref }

func ValueOf(path string) Expression { return valueExpr{path: Ref(path)} }

func (e valueExpr) Evaluate(in *Instance) (any, error) { return e.path.Resolve(in) }
func (e valueExpr) refs() []string                     { return []string{string(e.path)} }
func (e valueExpr) String() string                     { return string(e.path) }

type constExpr struct{ v any }

func Const(v any) Expression { return constExpr{v: v} }

func (e constExpr) Evaluate(*Instance) (any, error) { return e.v, nil }
func (e constExpr) String() string                  { return fmt.Sprintf("%#v", e.v) }

type checksumExpr struct {
	path Ref
	algo string
}

// ChecksumOf digests the bytes of the field at path with a named algorithm
// from internal/checksum. Struct values are digested in encoded form.
func ChecksumOf(path, algo string) Expression {
	return checksumExpr{path: Ref(path), algo: algo}
}

func (e checksumExpr) Evaluate(in *Instance) (any, error) {
	v, err := e.path.Resolve(in)
	if err != nil {
		return nil, err
	}
	var data []byte
	switch x := unwrapVariant(v).(type) {
	case []byte:
		data = x
	case string:
		data = []byte(x)
	case *Instance:
		if data, err = x.serializeFields(); err != nil {
			return nil, err
		}
	case *BitRecord:
		if data, err = x.Bytes(); err != nil {
			return nil, err
		}
	case nil, absent:
	default:
		return nil, fmt.Errorf("wire: checksum of %T", v)
	}
	return checksum.Compute(e.algo, data)
}

func (e checksumExpr) refs() []string { return []string{string(e.path)} }
func (e checksumExpr) String() string { return fmt.Sprintf("checksum(%s, %q)", e.path, e.algo) }

type binaryExpr struct {
	op          string
	left, right Expression
}

func Add(a, b any) Expression { return binaryExpr{op: "+", left: asExpression(a), right: asExpression(b)} }
func Sub(a, b any) Expression { return binaryExpr{op: "-", left: asExpression(a), right: asExpression(b)} }
func Mul(a, b any) Expression { return binaryExpr{op: "*", left: asExpression(a), right: asExpression(b)} }
func Div(a, b any) Expression { return binaryExpr{op: "/", left: asExpression(a), right: asExpression(b)} }

// Binary builds an arithmetic node from an operator symbol.
func Binary(op string, a, b any) (Expression, error) {
	switch op {
	case "+", "-", "*", "/":
		return binaryExpr{op: op, left: asExpression(a), right: asExpression(b)}, nil
	}
	return nil, fmt.Errorf("wire: unknown arithmetic operator %q", op)
}

func (e binaryExpr) Evaluate(in *Instance) (any, error) {
	l, err := e.left.Evaluate(in)
	if err != nil {
		return nil, err
	}
	r, err := e.right.Evaluate(in)
	if err != nil {
		return nil, err
	}
	return arith(e.op, l, r)
}

func (e binaryExpr) refs() []string {
	return append(exprRefs(e.left), exprRefs(e.right)...)
}

func (e binaryExpr) String() string {
	return fmt.Sprintf("(%v %s %v)", e.left, e.op, e.right)
}

type computedExtent struct{ e Expression }

// Computed sizes a field from an expression, for lengths that are stored
// with an offset or in other units.
func Computed(e Expression) Extent { return computedExtent{e: e} }

func (c computedExtent) Extent(in *Instance) (int, error) {
	v, err := c.e.Evaluate(in)
	if err != nil {
		return 0, err
	}
	n, err := ToInt(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("wire: computed extent %v is negative (%d)", c.e, n)
	}
	return n, nil
}
