package wire

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"
)

// FieldValidator checks one stored value with access to its instance. Unset
// fields are validated with a nil value; the built-in validators accept nil
// and leave presence checks to custom ones.
type FieldValidator interface {
	ValidateField(v any, in *Instance) error
}

type FieldValidatorFunc func(v any, in *Instance) error

func (f FieldValidatorFunc) ValidateField(v any, in *Instance) error { return f(v, in) }

// StructValidator checks cross-field state.
type StructValidator interface {
	ValidateStruct(in *Instance) error
}

type StructValidatorFunc func(in *Instance) error

func (f StructValidatorFunc) ValidateStruct(in *Instance) error { return f(in) }

// CheckError is a failed Custom check.
type CheckError struct {
	Message string
}

func (e *CheckError) Error() string { return e.Message }

func (e *CheckError) Is(target error) bool { return target == ErrValidation }

// Range accepts values with min <= v <= max; a nil bound is open.
func Range(min, max any) FieldValidator {
	return FieldValidatorFunc(func(v any, _ *Instance) error {
		if v == nil {
			return nil
		}
		if min != nil {
			n, err := Compare(v, min)
			if err != nil {
				return err
			}
			if n < 0 {
				return fmt.Errorf("value %v is less than %v", v, min)
			}
		}
		if max != nil {
			n, err := Compare(v, max)
			if err != nil {
				return err
			}
			if n > 0 {
				return fmt.Errorf("value %v is greater than %v", v, max)
			}
		}
		return nil
	})
}

func OneOf(allowed ...any) FieldValidator {
	return FieldValidatorFunc(func(v any, _ *Instance) error {
		if v == nil {
			return nil
		}
		for _, a := range allowed {
			if Equal(v, a) {
				return nil
			}
		}
		return fmt.Errorf("value %v is not one of %v", v, allowed)
	})
}

// Pattern matches string or bytes values against expr anchored at the
// start, using .NET-style regular expressions (dlclark/regexp2).
func Pattern(expr string) (FieldValidator, error) {
	re, err := regexp2.Compile(`\A(?:`+expr+`)`, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("wire: pattern %q: %w", expr, err)
	}
	return FieldValidatorFunc(func(v any, _ *Instance) error {
		var s string
		switch x := v.(type) {
		case nil:
			return nil
		case string:
			s = x
		case []byte:
			s = string(x)
		default:
			return fmt.Errorf("pattern needs string value, got %T", v)
		}
		ok, err := re.MatchString(s)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("value %q does not match %s", s, strconv.Quote(expr))
		}
		return nil
	}), nil
}

func MustPattern(expr string) FieldValidator {
	v, err := Pattern(expr)
	if err != nil {
		panic(err)
	}
	return v
}

func HasPrefix(prefix []byte) FieldValidator {
	return FieldValidatorFunc(func(v any, _ *Instance) error {
		var b []byte
		switch x := v.(type) {
		case nil:
			return nil
		case []byte:
			b = x
		case string:
			b = []byte(x)
		default:
			return fmt.Errorf("prefix needs bytes value, got %T", v)
		}
		if !bytes.HasPrefix(b, prefix) {
			return fmt.Errorf("value does not start with %x", prefix)
		}
		return nil
	})
}

func MaxLen(n int) FieldValidator {
	return FieldValidatorFunc(func(v any, _ *Instance) error {
		got, err := lengthOf(v)
		if err != nil {
			return err
		}
		if got > n {
			return fmt.Errorf("length %d exceeds %d", got, n)
		}
		return nil
	})
}

// Consistency compares Field against one expression. Exactly one of
// Equals, GreaterThan, LessThan should be set; the first set one is used.
type Consistency struct {
	Field       string
	Equals      Expression
	GreaterThan Expression
	LessThan    Expression
}

func (c Consistency) ValidateStruct(in *Instance) error {
	actual, err := Ref(c.Field).Resolve(in)
	if err != nil {
		return &FieldValidationError{Field: c.Field, Err: err}
	}
	var (
		op   string
		expr Expression
	)
	switch {
	case c.Equals != nil:
		op, expr = "==", c.Equals
	case c.GreaterThan != nil:
		op, expr = ">", c.GreaterThan
	case c.LessThan != nil:
		op, expr = "<", c.LessThan
	default:
		return nil
	}
	expected, err := expr.Evaluate(in)
	if err != nil {
		return &FieldValidationError{Field: c.Field, Err: err}
	}
	ok := false
	if op == "==" {
		ok = Equal(actual, expected)
	} else {
		n, err := Compare(actual, expected)
		if err != nil {
			return &FieldValidationError{Field: c.Field, Err: err}
		}
		ok = (op == ">" && n > 0) || (op == "<" && n < 0)
	}
	if !ok {
		return &InconsistencyError{Field: c.Field, Op: op, Actual: actual, Expected: expected}
	}
	return nil
}

type customCheck struct {
	pred    Predicate
	message string
}

// Custom fails with message when pred evaluates false.
func Custom(pred Predicate, message string) StructValidator {
	return customCheck{pred: pred, message: message}
}

func (c customCheck) ValidateStruct(in *Instance) error {
	ok, err := c.pred.Eval(in)
	if err != nil {
		return &CheckError{Message: fmt.Sprintf("%s: %v", c.message, err)}
	}
	if !ok {
		return &CheckError{Message: c.message}
	}
	return nil
}

// Validate runs every field validator, set or not (recursing into nested
// structs and bit records), and then every struct validator, and returns all failures as
// one ValidationErrors.
func (in *Instance) Validate() error {
	var errs ValidationErrors
	in.collect(&errs, "")
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (in *Instance) collect(errs *ValidationErrors, prefix string) {
	for _, fd := range in.schema.fields {
		v := in.values[fd.name]
		if IsAbsent(v) {
			continue
		}
		for _, fv := range fd.cfg.validators {
			if err := fv.ValidateField(v, in); err != nil {
				*errs = append(*errs, &FieldValidationError{Field: prefix + fd.name, Err: err})
			}
		}
		collectNested(errs, prefix+fd.name, v)
	}
	for _, sv := range in.schema.validators {
		err := sv.ValidateStruct(in)
		if err == nil {
			continue
		}
		var agg ValidationErrors
		if errors.As(err, &agg) {
			for _, e := range agg {
				*errs = append(*errs, withPrefix(e, prefix))
			}
			continue
		}
		*errs = append(*errs, withPrefix(err, prefix))
	}
}

func collectNested(errs *ValidationErrors, path string, v any) {
	switch x := v.(type) {
	case *Instance:
		x.collect(errs, path+".")
	case *BitRecord:
		x.collect(errs, path+".")
	case Variant:
		collectNested(errs, path, x.Value)
	case []any:
		for i, e := range x {
			collectNested(errs, fmt.Sprintf("%s[%d]", path, i), e)
		}
	}
}

func withPrefix(err error, prefix string) error {
	if prefix == "" {
		return err
	}
	switch e := err.(type) {
	case *FieldValidationError:
		cp := *e
		cp.Field = prefix + cp.Field
		return &cp
	case *InconsistencyError:
		cp := *e
		cp.Field = prefix + cp.Field
		return &cp
	case *CheckError:
		return &CheckError{Message: strings.TrimSuffix(prefix, ".") + ": " + e.Message}
	}
	return err
}
