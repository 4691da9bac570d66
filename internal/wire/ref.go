package wire

import (
	"strings"
)

// Ref is a path to another field's value, relative to an instance:
//
//	name        same-level field
//	a.b         field b of the struct (or bit record) stored in a
//	../name     field of the parent instance; repeat to climb further
//	/a/b, /a.b  path from the root instance
//
// Resolution only reads values that are already stored.
type Ref string

type scope interface {
	Lookup(name string) (any, bool)
}

func (r Ref) String() string { return string(r) }

func (r Ref) Resolve(in *Instance) (any, error) {
	if in == nil {
		return nil, &RefError{Path: string(r), Reason: "nil instance"}
	}
	path := string(r)
	cur := in
	switch {
	case strings.HasPrefix(path, "/"):
		cur = in.root
		path = path[1:]
	default:
		for path == ".." || strings.HasPrefix(path, "../") {
			if cur.parent == nil {
				return nil, &RefError{Path: string(r), Reason: "no parent instance", Err: ErrNoParent}
			}
			cur = cur.parent
			path = strings.TrimPrefix(strings.TrimPrefix(path, ".."), "/")
		}
	}
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil, &RefError{Path: string(r), Reason: "empty path"}
	}
	var at scope = cur
	for i, seg := range segs {
		v, ok := at.Lookup(seg)
		if !ok {
			if !declares(at, seg) {
				return nil, &RefError{Path: string(r), Reason: "no field " + seg, Err: ErrUnknownField}
			}
			return nil, &RefError{Path: string(r), Reason: "field " + seg + " has no value yet"}
		}
		if i == len(segs)-1 {
			return v, nil
		}
		switch next := unwrapVariant(v).(type) {
		case *Instance:
			at = next
		case *BitRecord:
			at = next
		default:
			return nil, &RefError{Path: string(r), Reason: "field " + seg + " is not a struct"}
		}
	}
	return nil, &RefError{Path: string(r), Reason: "unreachable"}
}

// Extent resolves the path as a count.
func (r Ref) Extent(in *Instance) (int, error) {
	v, err := r.Resolve(in)
	if err != nil {
		return 0, err
	}
	n, err := ToInt(v)
	if err != nil {
		return 0, &RefError{Path: string(r), Reason: "not a count", Err: err}
	}
	if n < 0 {
		return 0, &RefError{Path: string(r), Reason: "negative count"}
	}
	return n, nil
}

func (r Ref) Eq(v any) Comparison { return Comparison{Left: r, Op: OpEq, Right: v} }
func (r Ref) Ne(v any) Comparison { return Comparison{Left: r, Op: OpNe, Right: v} }
func (r Ref) Lt(v any) Comparison { return Comparison{Left: r, Op: OpLt, Right: v} }
func (r Ref) Le(v any) Comparison { return Comparison{Left: r, Op: OpLe, Right: v} }
func (r Ref) Gt(v any) Comparison { return Comparison{Left: r, Op: OpGt, Right: v} }
func (r Ref) Ge(v any) Comparison { return Comparison{Left: r, Op: OpGe, Right: v} }

func splitPath(path string) []string {
	return strings.FieldsFunc(path, func(c rune) bool { return c == '.' || c == '/' })
}

func declares(at scope, name string) bool {
	switch x := at.(type) {
	case *Instance:
		_, ok := x.schema.index[name]
		return ok
	case *BitRecord:
		_, ok := x.schema.index[name]
		return ok
	}
	return false
}
