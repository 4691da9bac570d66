package wire

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
)

type TrailingPolicy uint8

const (
	TrailingError TrailingPolicy = iota
	TrailingWarn
	TrailingIgnore
)

func (p TrailingPolicy) String() string {
	switch p {
	case TrailingWarn:
		return "warn"
	case TrailingIgnore:
		return "ignore"
	default:
		return "error"
	}
}

var defaultTrailing atomic.Uint32

// SetDefaultTrailingPolicy changes the policy used by schemas that do not
// set one.
func SetDefaultTrailingPolicy(p TrailingPolicy) { defaultTrailing.Store(uint32(p)) }

func DefaultTrailingPolicy() TrailingPolicy { return TrailingPolicy(defaultTrailing.Load()) }

func ParseTrailingPolicy(raw string) (TrailingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "error", "strict":
		return TrailingError, nil
	case "warn", "warning":
		return TrailingWarn, nil
	case "ignore":
		return TrailingIgnore, nil
	default:
		return TrailingError, fmt.Errorf("wire: unknown trailing policy %q", raw)
	}
}

// Schema is an assembled, immutable struct definition.
type Schema struct {
	name        string
	fields      []*fieldDef
	index       map[string]int
	endian      Endian
	endianSet   bool
	trailing    TrailingPolicy
	trailingSet bool
	syncRules   []SyncRule
	validators  []StructValidator
}

// Builder collects field definitions and options. Build merges them over
// any base schemas.
type Builder struct {
	name        string
	bases       []*Schema
	fields      []*fieldDef
	endian      Endian
	endianSet   bool
	trailing    TrailingPolicy
	trailingSet bool
	syncRules   []SyncRule
	validators  []StructValidator
}

func NewSchema(name string) *Builder {
	return &Builder{name: name}
}

func (b *Builder) Field(name string, def Definition, opts ...FieldOption) *Builder {
	b.fields = append(b.fields, newFieldDef(name, def, opts))
	return b
}

// Extends merges bases in order before this builder's own fields.
func (b *Builder) Extends(bases ...*Schema) *Builder {
	b.bases = append(b.bases, bases...)
	return b
}

func (b *Builder) Endian(e Endian) *Builder {
	b.endian = e
	b.endianSet = true
	return b
}

func (b *Builder) Trailing(p TrailingPolicy) *Builder {
	b.trailing = p
	b.trailingSet = true
	return b
}

func (b *Builder) Sync(rules ...SyncRule) *Builder {
	b.syncRules = append(b.syncRules, rules...)
	return b
}

func (b *Builder) Validate(validators ...StructValidator) *Builder {
	b.validators = append(b.validators, validators...)
	return b
}

func (b *Builder) MustBuild() *Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

func (b *Builder) Build() (*Schema, error) {
	s := &Schema{name: b.name, index: make(map[string]int)}
	for _, base := range b.bases {
		if base == nil {
			return nil, definitionErr(b.name, "", "nil base schema")
		}
		for _, fd := range base.fields {
			s.put(fd)
		}
		if base.endianSet {
			s.endian, s.endianSet = base.endian, true
		}
		if base.trailingSet {
			s.trailing, s.trailingSet = base.trailing, true
		}
		s.syncRules = append(s.syncRules, base.syncRules...)
		s.validators = append(s.validators, base.validators...)
	}

	own := make(map[string]struct{}, len(b.fields))
	for _, fd := range b.fields {
		if err := b.checkField(fd); err != nil {
			return nil, err
		}
		if _, dup := own[fd.name]; dup {
			return nil, definitionErr(b.name, fd.name, "duplicate field name")
		}
		own[fd.name] = struct{}{}
		s.put(fd)
	}
	if b.endianSet {
		s.endian, s.endianSet = b.endian, true
	}
	if b.trailingSet {
		s.trailing, s.trailingSet = b.trailing, true
	}
	s.syncRules = append(s.syncRules, b.syncRules...)
	s.validators = append(s.validators, b.validators...)

	for i, fd := range s.fields {
		fd.ordinal = i
	}
	if err := s.checkRules(); err != nil {
		return nil, err
	}
	return s, nil
}

// put overwrites an existing slot in place or appends a new one.
func (s *Schema) put(fd *fieldDef) {
	cp := *fd
	if i, ok := s.index[fd.name]; ok {
		s.fields[i] = &cp
		return
	}
	s.index[fd.name] = len(s.fields)
	s.fields = append(s.fields, &cp)
}

func (b *Builder) checkField(fd *fieldDef) error {
	if fd.name == "" || strings.ContainsAny(fd.name, "./") {
		return definitionErr(b.name, fd.name, "field name must be non-empty and contain no path separators")
	}
	if fd.def == nil {
		return definitionErr(b.name, fd.name, "nil field definition")
	}
	if fd.def.Kind() != KindByte || fd.field == nil {
		return definitionErr(b.name, fd.name, fmt.Sprintf("%s-level definition %T in a byte-oriented schema", fd.def.Kind(), fd.def))
	}
	if c, ok := fd.def.(definitionChecker); ok {
		if err := c.checkDefinition(); err != nil {
			var de *DefinitionError
			if errors.As(err, &de) {
				return err
			}
			return &DefinitionError{Schema: b.name, Field: fd.name, Reason: "invalid field", Err: err}
		}
	}
	return nil
}

func (s *Schema) checkRules() error {
	for _, rule := range s.syncRules {
		if rule.Compute == nil {
			return definitionErr(s.name, rule.Target, "sync rule without compute function")
		}
		head := pathHead(rule.Target)
		if _, ok := s.index[head]; !ok {
			return definitionErr(s.name, rule.Target, "sync target is not a field")
		}
	}
	if err := checkSyncCycles(s.syncRules); err != nil {
		return &DefinitionError{Schema: s.name, Reason: "sync rules form a cycle", Err: err}
	}
	for _, v := range s.validators {
		if c, ok := v.(Consistency); ok {
			if _, known := s.index[pathHead(c.Field)]; !known {
				return definitionErr(s.name, c.Field, "consistency check on unknown field")
			}
		}
	}
	return nil
}

func pathHead(path string) string {
	if i := strings.IndexAny(path, "./"); i >= 0 {
		return path[:i]
	}
	return path
}

func (s *Schema) Name() string { return s.name }

func (s *Schema) Endian() Endian { return s.endian }

// TrailingPolicy falls back to the process default when the schema and its
// bases leave it unset.
func (s *Schema) TrailingPolicy() TrailingPolicy {
	if !s.trailingSet {
		return DefaultTrailingPolicy()
	}
	return s.trailing
}

// Fields returns field names in wire order.
func (s *Schema) Fields() []string {
	out := make([]string, len(s.fields))
	for i, fd := range s.fields {
		out[i] = fd.name
	}
	return out
}

func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.fields[i].field, true
}

// Size returns the encoded width when every field is fixed, else -1.
func (s *Schema) Size() int {
	total := 0
	for _, fd := range s.fields {
		fs, ok := fd.field.(FixedSizer)
		if !ok {
			return -1
		}
		n, fixed := fs.FixedSize()
		if !fixed {
			return -1
		}
		total += n
	}
	return total
}

func (s *Schema) String() string {
	return fmt.Sprintf("Schema(%s, %d fields)", s.name, len(s.fields))
}
