package wire

import "fmt"

// Conditional wraps a field whose presence is recomputed from its predicate
// on every parse, size, and serialize call.
type Conditional struct {
	inner Field
	when  Predicate
}

// When makes inner present only while pred holds. Absent slots hold Absent
// after parse and encode to zero bytes.
func When(inner Field, pred Predicate) *Conditional {
	return &Conditional{inner: inner, when: pred}
}

func (c *Conditional) Inner() Field            { return c.inner }
func (c *Conditional) Predicate() Predicate    { return c.when }
func (c *Conditional) Kind() Kind              { return KindByte }
func (c *Conditional) optionalByDefault() bool { return true }

func (c *Conditional) Size(in *Instance, v any) (int, error) {
	ok, err := c.when.Eval(in)
	if err != nil || !ok {
		return 0, err
	}
	if IsAbsent(v) {
		v = nil
	}
	return c.inner.Size(in, v)
}

func (c *Conditional) Parse(src *Source, in *Instance) (any, error) {
	ok, err := c.when.Eval(in)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Absent, nil
	}
	return c.inner.Parse(src, in)
}

func (c *Conditional) Serialize(v any, in *Instance) ([]byte, error) {
	ok, err := c.when.Eval(in)
	if err != nil {
		return nil, serializationErr("", "condition: %v", err)
	}
	if !ok {
		return []byte{}, nil
	}
	if v == nil || IsAbsent(v) {
		return nil, serializationErr("", "condition holds but no value is set")
	}
	return c.inner.Serialize(v, in)
}

func (c *Conditional) checkDefinition() error {
	if c.inner == nil || c.when == nil {
		return fmt.Errorf("conditional needs an inner field and a predicate")
	}
	if c.inner.Kind() != KindByte {
		return fmt.Errorf("conditional wraps a %s-level field", c.inner.Kind())
	}
	if dc, ok := c.inner.(definitionChecker); ok {
		return dc.checkDefinition()
	}
	return nil
}
