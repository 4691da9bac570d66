package wire

import (
	"errors"
	"fmt"
)

var ErrNoCase = errors.New("wire: no switch case for discriminator")

// Variant is the stored value of a Switch field. Tag selects the case on
// serialize; it is never inferred from the type of Value.
type Variant struct {
	Tag   any
	Value any
}

type SwitchCase struct {
	Tag   any
	Field Field
}

func Case(tag any, f Field) SwitchCase { return SwitchCase{Tag: tag, Field: f} }

type SwitchField struct {
	on    Ref
	cases []SwitchCase
	dflt  Field
}

// Switch selects a case by the value at on, which must already be parsed.
func Switch(on Ref, cases ...SwitchCase) *SwitchField {
	return &SwitchField{on: on, cases: cases}
}

// Default handles discriminators with no matching case.
func (s *SwitchField) Default(f Field) *SwitchField {
	cp := *s
	cp.dflt = f
	return &cp
}

func (s *SwitchField) On() Ref             { return s.on }
func (s *SwitchField) Cases() []SwitchCase { return s.cases }
func (s *SwitchField) Kind() Kind          { return KindByte }

func (s *SwitchField) match(tag any) (Field, bool) {
	for _, c := range s.cases {
		if Equal(c.Tag, tag) {
			return c.Field, true
		}
	}
	if s.dflt != nil {
		return s.dflt, true
	}
	return nil, false
}

func (s *SwitchField) Size(in *Instance, v any) (int, error) {
	if vv, ok := v.(Variant); ok {
		f, found := s.match(vv.Tag)
		if !found {
			return 0, fmt.Errorf("%w: %v", ErrNoCase, vv.Tag)
		}
		return f.Size(in, vv.Value)
	}
	tag, err := s.on.Resolve(in)
	if err != nil {
		return 0, err
	}
	f, found := s.match(tag)
	if !found {
		return 0, fmt.Errorf("%w: %v", ErrNoCase, tag)
	}
	return f.Size(in, nil)
}

func (s *SwitchField) Parse(src *Source, in *Instance) (any, error) {
	tag, err := s.on.Resolve(in)
	if err != nil {
		return nil, err
	}
	f, found := s.match(tag)
	if !found {
		return nil, fmt.Errorf("%w: %s=%v", ErrNoCase, s.on, tag)
	}
	v, err := f.Parse(src, in)
	if err != nil {
		return nil, err
	}
	return Variant{Tag: tag, Value: v}, nil
}

func (s *SwitchField) Serialize(v any, in *Instance) ([]byte, error) {
	vv, ok := v.(Variant)
	if !ok {
		return nil, serializationErr("", "switch value must be a wire.Variant, got %T", v)
	}
	f, found := s.match(vv.Tag)
	if !found {
		return nil, serializationErr("", "no case for tag %v", vv.Tag)
	}
	return f.Serialize(vv.Value, in)
}

func (s *SwitchField) checkDefinition() error {
	if s.on == "" {
		return fmt.Errorf("switch without discriminator")
	}
	for i, c := range s.cases {
		if c.Field == nil {
			return fmt.Errorf("switch case %v has no field", c.Tag)
		}
		for _, prev := range s.cases[:i] {
			if Equal(prev.Tag, c.Tag) {
				return fmt.Errorf("duplicate switch case %v", c.Tag)
			}
		}
		if dc, ok := c.Field.(definitionChecker); ok {
			if err := dc.checkDefinition(); err != nil {
				return err
			}
		}
	}
	return nil
}
