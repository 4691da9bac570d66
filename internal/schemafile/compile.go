package schemafile

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/binstruct/internal/exprlang"
	logs "github.com/danmuck/binstruct/internal/logging"
	"github.com/danmuck/binstruct/internal/wire"
)

var (
	ErrFormat     = errors.New("schemafile: unsupported file format")
	ErrUnknownKey = errors.New("schemafile: unknown key")
	ErrNotFound   = errors.New("schemafile: definition not found")
	ErrCycle      = errors.New("schemafile: reference cycle")
)

// Registry holds the compiled definitions of one document.
type Registry struct {
	structs map[string]*wire.Schema
	bits    map[string]*wire.BitSchema
	names   []string
}

func (r *Registry) Schema(name string) (*wire.Schema, error) {
	s, ok := r.structs[name]
	if !ok {
		return nil, fmt.Errorf("%w: struct %q", ErrNotFound, name)
	}
	return s, nil
}

func (r *Registry) BitSchema(name string) (*wire.BitSchema, error) {
	s, ok := r.bits[name]
	if !ok {
		return nil, fmt.Errorf("%w: bits %q", ErrNotFound, name)
	}
	return s, nil
}

// Names lists struct definitions then bit containers, each in document order.
func (r *Registry) Names() []string { return append([]string(nil), r.names...) }

func (r *Registry) Len() int { return len(r.names) }

// Load reads and compiles a schema file.
func Load(path string) (*Registry, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	reg, err := Compile(doc)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", path, err)
	}
	return reg, nil
}

type compiler struct {
	structDocs map[string]*StructDoc
	bitDocs    map[string]*BitsDoc
	reg        *Registry
	active     []string
}

// Compile builds every definition in doc. References between definitions
// resolve regardless of declaration order.
func Compile(doc *Document) (*Registry, error) {
	c := &compiler{
		structDocs: make(map[string]*StructDoc, len(doc.Structs)),
		bitDocs:    make(map[string]*BitsDoc, len(doc.Bits)),
		reg: &Registry{
			structs: make(map[string]*wire.Schema, len(doc.Structs)),
			bits:    make(map[string]*wire.BitSchema, len(doc.Bits)),
		},
	}
	for i := range doc.Structs {
		d := &doc.Structs[i]
		if err := c.declare(d.Name); err != nil {
			return nil, err
		}
		c.structDocs[d.Name] = d
	}
	for i := range doc.Bits {
		d := &doc.Bits[i]
		if err := c.declare(d.Name); err != nil {
			return nil, err
		}
		c.bitDocs[d.Name] = d
	}
	for _, d := range doc.Structs {
		if _, err := c.structSchema(d.Name); err != nil {
			return nil, err
		}
	}
	for _, d := range doc.Bits {
		if _, err := c.bitSchema(d.Name); err != nil {
			return nil, err
		}
	}
	logs.Debugf("schemafile.Compile structs=%d bits=%d", len(c.reg.structs), len(c.reg.bits))
	return c.reg, nil
}

func (c *compiler) declare(name string) error {
	if strings.TrimSpace(name) == "" {
		return &wire.DefinitionError{Reason: "definition without a name"}
	}
	if _, ok := c.structDocs[name]; ok {
		return &wire.DefinitionError{Schema: name, Reason: "declared more than once"}
	}
	if _, ok := c.bitDocs[name]; ok {
		return &wire.DefinitionError{Schema: name, Reason: "declared more than once"}
	}
	c.reg.names = append(c.reg.names, name)
	return nil
}

func (c *compiler) enter(name string) error {
	for i, n := range c.active {
		if n == name {
			chain := append(append([]string(nil), c.active[i:]...), name)
			return &wire.DefinitionError{
				Schema: name,
				Reason: "definitions reference each other (" + strings.Join(chain, " -> ") + ")",
				Err:    ErrCycle,
			}
		}
	}
	c.active = append(c.active, name)
	return nil
}

func (c *compiler) leave() { c.active = c.active[:len(c.active)-1] }

func (c *compiler) structSchema(name string) (*wire.Schema, error) {
	if s, ok := c.reg.structs[name]; ok {
		return s, nil
	}
	d, ok := c.structDocs[name]
	if !ok {
		return nil, fmt.Errorf("%w: struct %q", ErrNotFound, name)
	}
	if err := c.enter(name); err != nil {
		return nil, err
	}
	defer c.leave()

	b := wire.NewSchema(name)
	bases := make([]*wire.Schema, 0, len(d.Extends))
	for _, base := range d.Extends {
		s, err := c.structSchema(base)
		if err != nil {
			return nil, wrap(name, "", "extends "+base, err)
		}
		bases = append(bases, s)
	}
	if len(bases) > 0 {
		b.Extends(bases...)
	}
	if d.Endian != "" {
		e, err := wire.ParseEndian(d.Endian)
		if err != nil {
			return nil, wrap(name, "", "endian", err)
		}
		b.Endian(e)
	}
	if d.Trailing != "" {
		p, err := wire.ParseTrailingPolicy(d.Trailing)
		if err != nil {
			return nil, wrap(name, "", "trailing", err)
		}
		b.Trailing(p)
	}
	for i := range d.Fields {
		fd := &d.Fields[i]
		def, err := c.definition(fd)
		if err != nil {
			return nil, wrap(name, fd.Name, "invalid field", err)
		}
		opts, err := fieldOptions(fd)
		if err != nil {
			return nil, wrap(name, fd.Name, "invalid options", err)
		}
		b.Field(fd.Name, def, opts...)
	}
	for _, sd := range d.Sync {
		rule, err := syncRule(sd)
		if err != nil {
			return nil, wrap(name, sd.Field, "invalid sync rule", err)
		}
		b.Sync(rule)
	}
	for _, cd := range d.Checks {
		v, err := structCheck(cd)
		if err != nil {
			return nil, wrap(name, cd.Field, "invalid check", err)
		}
		b.Validate(v)
	}
	s, err := b.Build()
	if err != nil {
		return nil, err
	}
	c.reg.structs[name] = s
	return s, nil
}

func (c *compiler) bitSchema(name string) (*wire.BitSchema, error) {
	if s, ok := c.reg.bits[name]; ok {
		return s, nil
	}
	d, ok := c.bitDocs[name]
	if !ok {
		return nil, fmt.Errorf("%w: bits %q", ErrNotFound, name)
	}
	b := wire.NewBitSchema(name, d.Size)
	order, err := wire.ParseBitOrder(d.Order)
	if err != nil {
		return nil, wrap(name, "", "order", err)
	}
	b.Order(order)
	endian, err := wire.ParseEndian(d.Endian)
	if err != nil {
		return nil, wrap(name, "", "endian", err)
	}
	b.Endian(endian)
	for i := range d.Fields {
		fd := &d.Fields[i]
		def, err := c.definition(fd)
		if err != nil {
			return nil, wrap(name, fd.Name, "invalid field", err)
		}
		opts, err := fieldOptions(fd)
		if err != nil {
			return nil, wrap(name, fd.Name, "invalid options", err)
		}
		b.Field(fd.Name, def, opts...)
	}
	s, err := b.Build()
	if err != nil {
		return nil, err
	}
	c.reg.bits[name] = s
	return s, nil
}

// definition compiles a field in declaration position. Bit fields are
// returned as-is so the builder can reject them where they do not belong.
func (c *compiler) definition(fd *FieldDoc) (wire.Definition, error) {
	switch fd.Type {
	case "bit", "bits":
		if fd.When != "" {
			return nil, fmt.Errorf("bit fields cannot be conditional")
		}
		if fd.Type == "bit" {
			return wire.Bit(), nil
		}
		return wire.Bits(fd.Width), nil
	}
	f, err := c.field(fd)
	if err != nil {
		return nil, err
	}
	if fd.When == "" {
		return f, nil
	}
	p, err := exprlang.ParsePredicate(fd.When)
	if err != nil {
		return nil, err
	}
	return wire.When(f, p), nil
}

var intTypes = map[string]func() *wire.IntField{
	"u8": wire.UInt8, "u16": wire.UInt16, "u32": wire.UInt32, "u64": wire.UInt64,
	"i8": wire.Int8, "i16": wire.Int16, "i32": wire.Int32, "i64": wire.Int64,
}

func (c *compiler) field(fd *FieldDoc) (wire.Field, error) {
	endian, err := wire.ParseEndian(fd.Endian)
	if err != nil {
		return nil, err
	}
	if ctor, ok := intTypes[fd.Type]; ok {
		return ctor().WithEndian(endian), nil
	}
	switch fd.Type {
	case "f32":
		return wire.Float32().WithEndian(endian), nil
	case "f64":
		return wire.Float64().WithEndian(endian), nil
	case "bool":
		return wire.Bool(), nil
	case "bytes":
		ext, err := extent(fd.Size, "size")
		if err != nil {
			return nil, err
		}
		return wire.Bytes(ext), nil
	case "fixed_bytes":
		n, err := count(fd.Length, "length")
		if err != nil {
			return nil, err
		}
		return wire.FixedBytes(n), nil
	case "string":
		ext, err := extent(fd.Length, "length")
		if err != nil {
			return nil, err
		}
		return wire.String(ext), nil
	case "fixed_string":
		n, err := count(fd.Length, "length")
		if err != nil {
			return nil, err
		}
		return wire.FixedString(n, byte(fd.Pad)), nil
	case "cstring":
		return wire.CString(fd.Max), nil
	case "padding":
		ext, err := extent(fd.Size, "size")
		if err != nil {
			return nil, err
		}
		return wire.Padding(ext, byte(fd.Pad)), nil
	case "flags":
		n, err := count(fd.Size, "size")
		if err != nil {
			return nil, err
		}
		return wire.Flags(n, fd.Names).WithEndian(endian), nil
	case "enum":
		n, err := count(fd.Size, "size")
		if err != nil {
			return nil, err
		}
		return wire.Enum(n, fd.Names).WithEndian(endian), nil
	case "array":
		if fd.Item == nil {
			return nil, fmt.Errorf("array without item")
		}
		item, err := c.field(fd.Item)
		if err != nil {
			return nil, fmt.Errorf("array item: %w", err)
		}
		ext, err := extent(fd.Count, "count")
		if err != nil {
			return nil, err
		}
		return wire.Array(item, ext), nil
	case "struct":
		s, err := c.structSchema(fd.Ref)
		if err != nil {
			return nil, err
		}
		return wire.Embed(s), nil
	case "packed":
		s, err := c.bitSchema(fd.Ref)
		if err != nil {
			return nil, err
		}
		return wire.Packed(s), nil
	case "switch":
		if fd.On == "" {
			return nil, fmt.Errorf("switch without on")
		}
		cases := make([]wire.SwitchCase, 0, len(fd.Cases))
		for _, cd := range fd.Cases {
			if cd.Field == nil {
				return nil, fmt.Errorf("case %v without field", cd.Tag)
			}
			f, err := c.field(cd.Field)
			if err != nil {
				return nil, fmt.Errorf("case %v: %w", cd.Tag, err)
			}
			cases = append(cases, wire.Case(cd.Tag, f))
		}
		sw := wire.Switch(wire.Ref(fd.On), cases...)
		if fd.DefaultCase != nil {
			f, err := c.field(fd.DefaultCase)
			if err != nil {
				return nil, fmt.Errorf("default case: %w", err)
			}
			sw = sw.Default(f)
		}
		return sw, nil
	case "bit", "bits":
		return nil, fmt.Errorf("%s fields belong in a bits container", fd.Type)
	case "":
		return nil, fmt.Errorf("missing type")
	default:
		return nil, fmt.Errorf("unknown type %q", fd.Type)
	}
}

func fieldOptions(fd *FieldDoc) ([]wire.FieldOption, error) {
	var opts []wire.FieldOption
	if fd.Default != nil {
		opts = append(opts, wire.Default(normalizeDefault(fd.Type, fd.Default)))
	}
	if fd.Optional != nil {
		if *fd.Optional {
			opts = append(opts, wire.Optional())
		} else {
			opts = append(opts, wire.Required())
		}
	}
	var checks []wire.FieldValidator
	if len(fd.Range) > 0 {
		if len(fd.Range) != 2 {
			return nil, fmt.Errorf("range needs [min, max], got %v", fd.Range)
		}
		checks = append(checks, wire.Range(fd.Range[0], fd.Range[1]))
	}
	if len(fd.OneOf) > 0 {
		checks = append(checks, wire.OneOf(fd.OneOf...))
	}
	if fd.Pattern != "" {
		p, err := wire.Pattern(fd.Pattern)
		if err != nil {
			return nil, err
		}
		checks = append(checks, p)
	}
	if fd.Prefix != "" {
		raw, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(fd.Prefix), "0x"))
		if err != nil {
			return nil, fmt.Errorf("prefix: %w", err)
		}
		checks = append(checks, wire.HasPrefix(raw))
	}
	if fd.MaxLen > 0 {
		checks = append(checks, wire.MaxLen(fd.MaxLen))
	}
	if len(checks) > 0 {
		opts = append(opts, wire.Check(checks...))
	}
	return opts, nil
}

// normalizeDefault turns decoded lists of names into the []string form that
// flags fields accept.
func normalizeDefault(typ string, v any) any {
	list, ok := v.([]any)
	if !ok || typ != "flags" {
		return v
	}
	names := make([]string, 0, len(list))
	for _, e := range list {
		s, ok := e.(string)
		if !ok {
			return v
		}
		names = append(names, s)
	}
	return names
}

func syncRule(sd SyncDoc) (wire.SyncRule, error) {
	switch {
	case sd.Field == "":
		return wire.SyncRule{}, fmt.Errorf("sync rule without field")
	case sd.Expr != "" && sd.TagOf != "":
		return wire.SyncRule{}, fmt.Errorf("sync rule sets both expr and tag_of")
	case sd.Expr != "":
		e, err := exprlang.ParseExpression(sd.Expr)
		if err != nil {
			return wire.SyncRule{}, err
		}
		return wire.SyncExpr(sd.Field, e), nil
	case sd.TagOf != "":
		return wire.SyncTag(sd.Field, sd.TagOf), nil
	default:
		return wire.SyncRule{}, fmt.Errorf("sync rule needs expr or tag_of")
	}
}

func structCheck(cd CheckDoc) (wire.StructValidator, error) {
	if cd.Predicate != "" {
		p, err := exprlang.ParsePredicate(cd.Predicate)
		if err != nil {
			return nil, err
		}
		msg := cd.Message
		if msg == "" {
			msg = "check failed: " + cd.Predicate
		}
		return wire.Custom(p, msg), nil
	}
	if cd.Field == "" {
		return nil, fmt.Errorf("check needs a field or a predicate")
	}
	check := wire.Consistency{Field: cd.Field}
	for _, part := range []struct {
		src string
		dst *wire.Expression
	}{
		{cd.Equals, &check.Equals},
		{cd.GreaterThan, &check.GreaterThan},
		{cd.LessThan, &check.LessThan},
	} {
		if part.src == "" {
			continue
		}
		e, err := exprlang.ParseExpression(part.src)
		if err != nil {
			return nil, err
		}
		*part.dst = e
	}
	if check.Equals == nil && check.GreaterThan == nil && check.LessThan == nil {
		return nil, fmt.Errorf("check on %s has no comparison", cd.Field)
	}
	return check, nil
}

func extent(v any, key string) (wire.Extent, error) {
	if path, ok := v.(string); ok {
		if path == "" {
			return nil, fmt.Errorf("empty %s path", key)
		}
		return wire.Ref(path), nil
	}
	n, err := count(v, key)
	if err != nil {
		return nil, err
	}
	return wire.Fixed(n), nil
}

func count(v any, key string) (int, error) {
	if v == nil {
		return 0, fmt.Errorf("missing %s", key)
	}
	n, err := wire.ToInt(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %d", key, n)
	}
	return n, nil
}

// wrap keeps definition errors from nested definitions intact.
func wrap(schema, field, reason string, err error) error {
	var de *wire.DefinitionError
	if errors.As(err, &de) {
		return err
	}
	return &wire.DefinitionError{Schema: schema, Field: field, Reason: reason, Err: err}
}
