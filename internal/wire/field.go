package wire

type Kind uint8

const (
	KindByte Kind = iota
	KindBit
)

func (k Kind) String() string {
	if k == KindBit {
		return "bit"
	}
	return "byte"
}

// Definition is anything that can occupy a schema slot. Byte schemas accept
// only KindByte Fields; bit schemas accept only *BitField.
type Definition interface {
	Kind() Kind
}

// Field is the codec contract every byte-oriented slot implements.
//
// Size reports the encoded width given the slot's current stored value v (nil
// when unset) without touching any source. Parse must consume exactly that
// width or fail with *UnexpectedEOFError. Serialize must not mutate in.
type Field interface {
	Definition
	Size(in *Instance, v any) (int, error)
	Parse(src *Source, in *Instance) (any, error)
	Serialize(v any, in *Instance) ([]byte, error)
}

// FixedSizer is implemented by fields whose width is known without an
// instance.
type FixedSizer interface {
	FixedSize() (int, bool)
}

// Extent yields a byte or element count for variable-width fields.
type Extent interface {
	Extent(in *Instance) (int, error)
}

// Fixed is a constant Extent.
type Fixed int

func (n Fixed) Extent(*Instance) (int, error) { return int(n), nil }

type optionalDefinition interface {
	optionalByDefault() bool
}

type definitionChecker interface {
	checkDefinition() error
}

type fieldConfig struct {
	dflt        any
	dfltFunc    func() any
	hasDefault  bool
	optional    bool
	optionalSet bool
	validators  []FieldValidator
}

type FieldOption func(*fieldConfig)

func Default(v any) FieldOption {
	return func(c *fieldConfig) {
		c.dflt = v
		c.dfltFunc = nil
		c.hasDefault = true
	}
}

// DefaultFunc computes a fresh default for every new instance.
func DefaultFunc(fn func() any) FieldOption {
	return func(c *fieldConfig) {
		c.dflt = nil
		c.dfltFunc = fn
		c.hasDefault = true
	}
}

// Optional lets the field serialize from its zero value when unset.
func Optional() FieldOption {
	return func(c *fieldConfig) {
		c.optional = true
		c.optionalSet = true
	}
}

func Required() FieldOption {
	return func(c *fieldConfig) {
		c.optional = false
		c.optionalSet = true
	}
}

func Check(validators ...FieldValidator) FieldOption {
	return func(c *fieldConfig) {
		c.validators = append(c.validators, validators...)
	}
}

type fieldDef struct {
	name    string
	def     Definition
	field   Field
	cfg     fieldConfig
	ordinal int
}

func newFieldDef(name string, def Definition, opts []FieldOption) *fieldDef {
	fd := &fieldDef{name: name, def: def}
	fd.field, _ = def.(Field)
	for _, opt := range opts {
		opt(&fd.cfg)
	}
	if !fd.cfg.optionalSet {
		if od, ok := def.(optionalDefinition); ok {
			fd.cfg.optional = od.optionalByDefault()
		}
	}
	return fd
}

func (fd *fieldDef) required() bool {
	return !fd.cfg.optional
}

func (fd *fieldDef) defaultValue() (any, bool) {
	if !fd.cfg.hasDefault {
		return nil, false
	}
	if fd.cfg.dfltFunc != nil {
		return fd.cfg.dfltFunc(), true
	}
	return fd.cfg.dflt, true
}

func (fd *fieldDef) isConditional() bool {
	_, ok := fd.def.(*Conditional)
	return ok
}
