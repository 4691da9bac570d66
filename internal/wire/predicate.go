package wire

import (
	"fmt"
	"strings"
)

// Predicate is a boolean condition evaluated against an instance.
type Predicate interface {
	Eval(in *Instance) (bool, error)
}

type PredicateFunc func(in *Instance) (bool, error)

func (f PredicateFunc) Eval(in *Instance) (bool, error) { return f(in) }

type CompareOp uint8

const (
	OpEq CompareOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

var compareOpNames = [...]string{"==", "!=", "<", "<=", ">", ">="}

func (op CompareOp) String() string {
	if int(op) < len(compareOpNames) {
		return compareOpNames[op]
	}
	return "?"
}

func ParseCompareOp(raw string) (CompareOp, error) {
	for i, name := range compareOpNames {
		if raw == name {
			return CompareOp(i), nil
		}
	}
	return 0, fmt.Errorf("wire: unknown comparison operator %q", raw)
}

// Comparison compares a Ref against a literal or another Ref.
type Comparison struct {
	Left  Ref
	Op    CompareOp
	Right any
}

func (c Comparison) Eval(in *Instance) (bool, error) {
	left, err := c.Left.Resolve(in)
	if err != nil {
		return false, err
	}
	right := c.Right
	if r, ok := right.(Ref); ok {
		if right, err = r.Resolve(in); err != nil {
			return false, err
		}
	}
	switch c.Op {
	case OpEq:
		return Equal(left, right), nil
	case OpNe:
		return !Equal(left, right), nil
	}
	n, err := Compare(left, right)
	if err != nil {
		return false, fmt.Errorf("wire: %s: %w", c, err)
	}
	switch c.Op {
	case OpLt:
		return n < 0, nil
	case OpLe:
		return n <= 0, nil
	case OpGt:
		return n > 0, nil
	case OpGe:
		return n >= 0, nil
	}
	return false, fmt.Errorf("wire: unknown comparison operator %d", c.Op)
}

func (c Comparison) And(p Predicate) Logical { return And(c, p) }
func (c Comparison) Or(p Predicate) Logical  { return Or(c, p) }

func (c Comparison) String() string {
	if r, ok := c.Right.(Ref); ok {
		return fmt.Sprintf("%s %s %s", c.Left, c.Op, r)
	}
	return fmt.Sprintf("%s %s %#v", c.Left, c.Op, c.Right)
}

type LogicalOp uint8

const (
	OpAnd LogicalOp = iota
	OpOr
)

func (op LogicalOp) String() string {
	if op == OpOr {
		return "||"
	}
	return "&&"
}

// Logical joins predicates with a single operator. Evaluation short-circuits.
type Logical struct {
	Op    LogicalOp
	Terms []Predicate
}

func And(ps ...Predicate) Logical { return Logical{Op: OpAnd, Terms: ps} }
func Or(ps ...Predicate) Logical  { return Logical{Op: OpOr, Terms: ps} }

func (l Logical) Eval(in *Instance) (bool, error) {
	for _, p := range l.Terms {
		ok, err := p.Eval(in)
		if err != nil {
			return false, err
		}
		if l.Op == OpOr && ok {
			return true, nil
		}
		if l.Op == OpAnd && !ok {
			return false, nil
		}
	}
	return l.Op == OpAnd, nil
}

func (l Logical) And(p Predicate) Logical { return And(l, p) }
func (l Logical) Or(p Predicate) Logical  { return Or(l, p) }

func (l Logical) String() string {
	parts := make([]string, len(l.Terms))
	for i, p := range l.Terms {
		parts[i] = fmt.Sprint(p)
	}
	return "(" + strings.Join(parts, " "+l.Op.String()+" ") + ")"
}
