package wire

import (
	"bytes"
	"fmt"
	"reflect"
)

type EmbedField struct {
	schema *Schema
}

// Embed nests a struct. The child parses from the shared source, links to
// its parent, and never applies a trailing-data policy.
func Embed(s *Schema) *EmbedField { return &EmbedField{schema: s} }

func (e *EmbedField) Schema() *Schema { return e.schema }
func (e *EmbedField) Kind() Kind      { return KindByte }

func (e *EmbedField) FixedSize() (int, bool) {
	n := e.schema.Size()
	return n, n >= 0
}

func (e *EmbedField) Size(in *Instance, v any) (int, error) {
	if child, ok := v.(*Instance); ok {
		return child.Size()
	}
	if n := e.schema.Size(); n >= 0 {
		return n, nil
	}
	// unset values serialize as a defaulted instance; measure that
	fresh := newInstance(e.schema, in)
	fresh.applyDefaults()
	return fresh.Size()
}

func (e *EmbedField) Parse(src *Source, in *Instance) (any, error) {
	child := newInstance(e.schema, in)
	if err := child.parseFields(src); err != nil {
		return nil, err
	}
	return child, nil
}

func (e *EmbedField) Serialize(v any, in *Instance) ([]byte, error) {
	switch child := v.(type) {
	case nil:
		fresh := newInstance(e.schema, in)
		fresh.applyDefaults()
		return fresh.serializeFields()
	case *Instance:
		if child.schema != e.schema {
			return nil, serializationErr("", "value is a %s, expected %s", child.schema.name, e.schema.name)
		}
		return child.serializeFields()
	default:
		return nil, serializationErr("", "expected *wire.Instance, got %T", v)
	}
}

func (e *EmbedField) checkDefinition() error {
	if e.schema == nil {
		return fmt.Errorf("embedded field without schema")
	}
	return nil
}

type ArrayField struct {
	item  Field
	count Extent
}

// Array repeats item count times. Values are stored as []any.
func Array(item Field, count Extent) *ArrayField {
	return &ArrayField{item: item, count: count}
}

func (a *ArrayField) Item() Field { return a.item }
func (a *ArrayField) Kind() Kind  { return KindByte }

func (a *ArrayField) FixedSize() (int, bool) {
	n, ok := a.count.(Fixed)
	if !ok {
		return 0, false
	}
	fs, ok := a.item.(FixedSizer)
	if !ok {
		return 0, false
	}
	each, fixed := fs.FixedSize()
	return int(n) * each, fixed
}

func (a *ArrayField) Size(in *Instance, v any) (int, error) {
	if v != nil {
		items, err := asList(v)
		if err != nil {
			return 0, err
		}
		total := 0
		for _, item := range items {
			n, err := a.item.Size(in, item)
			if err != nil {
				return 0, err
			}
			total += n
		}
		return total, nil
	}
	n, err := a.count.Extent(in)
	if err != nil {
		return 0, err
	}
	each, err := a.item.Size(in, nil)
	if err != nil {
		return 0, err
	}
	return n * each, nil
}

func (a *ArrayField) Parse(src *Source, in *Instance) (any, error) {
	n, err := a.count.Extent(in)
	if err != nil {
		return nil, err
	}
	rem := src.Remaining()
	if fs, ok := a.item.(FixedSizer); ok {
		if each, fixed := fs.FixedSize(); fixed && each > 0 && n > rem/each {
			return nil, &UnexpectedEOFError{Expected: n * each, Got: rem}
		}
	}
	// counts come off the wire; cap the allocation by what is left
	out := make([]any, 0, min(n, rem))
	for i := 0; i < n; i++ {
		v, err := a.item.Parse(src, in)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (a *ArrayField) Serialize(v any, in *Instance) ([]byte, error) {
	items, err := asList(v)
	if err != nil {
		return nil, serializationErr("", "%v", err)
	}
	var buf bytes.Buffer
	for i, item := range items {
		b, err := a.item.Serialize(item, in)
		if err != nil {
			return nil, serializationErr("", "item %d: %v", i, err)
		}
		buf.Write(b)
	}
	return buf.Bytes(), nil
}

func (a *ArrayField) checkDefinition() error {
	if a.item == nil || a.count == nil {
		return fmt.Errorf("array needs an item field and a count")
	}
	if dc, ok := a.item.(definitionChecker); ok {
		return dc.checkDefinition()
	}
	return nil
}

func asList(v any) ([]any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return x, nil
	case []byte:
		return nil, fmt.Errorf("array value must be a list, got []byte")
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("array value must be a list, got %T", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}
