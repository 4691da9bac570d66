package wire

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Instance is one value tree conforming to a Schema. The parent and root
// links are non-owning: a parent always outlives the children it embeds.
type Instance struct {
	schema   *Schema
	values   map[string]any
	parent   *Instance
	root     *Instance
	trailing int
}

func newInstance(s *Schema, parent *Instance) *Instance {
	in := &Instance{schema: s, values: make(map[string]any, len(s.fields)), parent: parent}
	in.root = in
	if parent != nil {
		in.root = parent.root
	}
	return in
}

// New returns an instance with every declared default applied.
func (s *Schema) New() *Instance {
	in := newInstance(s, nil)
	in.applyDefaults()
	return in
}

func (in *Instance) applyDefaults() {
	for _, fd := range in.schema.fields {
		if v, ok := fd.defaultValue(); ok {
			in.values[fd.name] = v
			in.adopt(v)
		}
	}
}

func (in *Instance) Schema() *Schema   { return in.schema }
func (in *Instance) Parent() *Instance { return in.parent }
func (in *Instance) Root() *Instance   { return in.root }

// Trailing reports how many unconsumed bytes a lenient top-level parse left.
func (in *Instance) Trailing() int { return in.trailing }

// Lookup returns the stored value of a same-level field.
func (in *Instance) Lookup(name string) (any, bool) {
	v, ok := in.values[name]
	return v, ok
}

// Get resolves a path (see Ref) and returns nil when it cannot.
func (in *Instance) Get(path string) any {
	v, err := Ref(path).Resolve(in)
	if err != nil {
		return nil
	}
	return v
}

// Set assigns a value by field name or dotted path into nested structs and
// bit records.
func (in *Instance) Set(path string, v any) error {
	head, rest, nested := strings.Cut(path, ".")
	if _, ok := in.schema.index[head]; !ok {
		return fmt.Errorf("%w: %s has no field %q", ErrUnknownField, in.schema.name, head)
	}
	if !nested {
		in.values[head] = v
		in.adopt(v)
		return nil
	}
	switch child := unwrapVariant(in.values[head]).(type) {
	case *Instance:
		return child.Set(rest, v)
	case *BitRecord:
		return child.Set(rest, v)
	default:
		return fmt.Errorf("%w: %s.%s holds no struct value", ErrUnknownField, in.schema.name, head)
	}
}

func (in *Instance) MustSet(path string, v any) *Instance {
	if err := in.Set(path, v); err != nil {
		panic(err)
	}
	return in
}

// adopt binds parent and root links on struct values stored under in.
func (in *Instance) adopt(v any) {
	switch x := v.(type) {
	case *Instance:
		if x == nil || x == in {
			return
		}
		x.parent = in
		x.rebindRoot(in.root)
	case Variant:
		in.adopt(x.Value)
	case []any:
		for _, e := range x {
			in.adopt(e)
		}
	}
}

func (in *Instance) rebindRoot(root *Instance) {
	in.root = root
	for _, v := range in.values {
		walkInstances(v, func(child *Instance) {
			child.rebindRoot(root)
		})
	}
}

func walkInstances(v any, fn func(*Instance)) {
	switch x := v.(type) {
	case *Instance:
		if x != nil {
			fn(x)
		}
	case Variant:
		walkInstances(x.Value, fn)
	case []any:
		for _, e := range x {
			walkInstances(e, fn)
		}
	}
}

func unwrapVariant(v any) any {
	if vv, ok := v.(Variant); ok {
		return vv.Value
	}
	return v
}

func (in *Instance) Uint(path string) (uint64, error) {
	v, err := Ref(path).Resolve(in)
	if err != nil {
		return 0, err
	}
	return toUint64(v, 64)
}

func (in *Instance) Int(path string) (int64, error) {
	v, err := Ref(path).Resolve(in)
	if err != nil {
		return 0, err
	}
	return toInt64(v, 64)
}

func (in *Instance) Bool(path string) (bool, error) {
	v, err := Ref(path).Resolve(in)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("wire: %s is %T, not bool", path, v)
	}
	return b, nil
}

func (in *Instance) Raw(path string) ([]byte, error) {
	v, err := Ref(path).Resolve(in)
	if err != nil {
		return nil, err
	}
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		return nil, fmt.Errorf("wire: %s is %T, not bytes", path, v)
	}
}

func (in *Instance) Text(path string) (string, error) {
	v, err := Ref(path).Resolve(in)
	if err != nil {
		return "", err
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	default:
		return "", fmt.Errorf("wire: %s is %T, not string", path, v)
	}
}

func (in *Instance) Struct(path string) (*Instance, error) {
	v, err := Ref(path).Resolve(in)
	if err != nil {
		return nil, err
	}
	child, ok := unwrapVariant(v).(*Instance)
	if !ok {
		return nil, fmt.Errorf("wire: %s is %T, not a struct", path, v)
	}
	return child, nil
}

func (in *Instance) Record(path string) (*BitRecord, error) {
	v, err := Ref(path).Resolve(in)
	if err != nil {
		return nil, err
	}
	rec, ok := v.(*BitRecord)
	if !ok {
		return nil, fmt.Errorf("wire: %s is %T, not a bit record", path, v)
	}
	return rec, nil
}

// Size returns the encoded width of the instance in its current state.
func (in *Instance) Size() (int, error) {
	total := 0
	for _, fd := range in.schema.fields {
		n, err := fd.field.Size(in, in.values[fd.name])
		if err != nil {
			return 0, fmt.Errorf("wire: size of %s.%s: %w", in.schema.name, fd.name, err)
		}
		total += n
	}
	return total, nil
}

// Equal reports whether both instances share a schema and hold equal values.
func (in *Instance) Equal(other *Instance) bool {
	if in == nil || other == nil {
		return in == other
	}
	if in.schema != other.schema {
		return false
	}
	for _, fd := range in.schema.fields {
		a, aok := in.values[fd.name]
		b, bok := other.values[fd.name]
		if aok != bok || !Equal(a, b) {
			return false
		}
	}
	return true
}

// ToDict converts the instance into maps, slices, and scalars.
func (in *Instance) ToDict() map[string]any {
	out := make(map[string]any, len(in.schema.fields))
	for _, fd := range in.schema.fields {
		out[fd.name] = plain(in.values[fd.name])
	}
	return out
}

func plain(v any) any {
	switch x := v.(type) {
	case nil, absent:
		return nil
	case *Instance:
		return x.ToDict()
	case *BitRecord:
		return x.ToDict()
	case Variant:
		return plain(x.Value)
	case FlagSet:
		names := x.Names()
		out := make([]any, len(names))
		for i, n := range names {
			out[i] = n
		}
		return out
	case EnumValue:
		if x.Name != "" {
			return x.Name
		}
		return x.Value
	case []byte:
		return x
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plain(e)
		}
		return out
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = plain(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

func (in *Instance) GoString() string {
	keys := in.schema.Fields()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, in.values[k]))
	}
	return in.schema.name + "(" + strings.Join(parts, ", ") + ")"
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
