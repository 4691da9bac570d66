package wire

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrParse         = errors.New("wire: parse failed")
	ErrUnexpectedEOF = errors.New("wire: unexpected end of data")
	ErrTrailingData  = errors.New("wire: trailing data")
	ErrDefinition    = errors.New("wire: invalid schema definition")
	ErrValidation    = errors.New("wire: validation failed")
	ErrSerialization = errors.New("wire: serialization failed")
	ErrUnresolvedRef = errors.New("wire: unresolved reference")
	ErrNoParent      = errors.New("wire: no parent instance")
	ErrUnknownField  = errors.New("wire: unknown field")
	ErrIncomparable  = errors.New("wire: incomparable values")
)

type UnexpectedEOFError struct {
	Field    string
	Expected int
	Got      int
}

func (e *UnexpectedEOFError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("expected %d bytes, got %d", e.Expected, e.Got)
	}
	return fmt.Sprintf("field '%s': expected %d bytes, got %d", e.Field, e.Expected, e.Got)
}

func (e *UnexpectedEOFError) Is(target error) bool {
	return target == ErrParse || target == ErrUnexpectedEOF
}

type TrailingDataError struct {
	Count int
}

func (e *TrailingDataError) Error() string {
	return fmt.Sprintf("%d bytes remaining after parsing", e.Count)
}

func (e *TrailingDataError) Is(target error) bool {
	return target == ErrParse || target == ErrTrailingData
}

// ParseError wraps a field-level parse failure that is not a short read.
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse field '%s': %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

type DefinitionError struct {
	Schema string
	Field  string
	Reason string
	Err    error
}

func (e *DefinitionError) Error() string {
	var b strings.Builder
	b.WriteString("schema ")
	b.WriteString(e.Schema)
	if e.Field != "" {
		b.WriteString(" field '")
		b.WriteString(e.Field)
		b.WriteString("'")
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DefinitionError) Unwrap() error { return e.Err }

func (e *DefinitionError) Is(target error) bool { return target == ErrDefinition }

type SerializationError struct {
	Field  string
	Reason string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("cannot serialize '%s': %s", e.Field, e.Reason)
}

func (e *SerializationError) Is(target error) bool { return target == ErrSerialization }

type RefError struct {
	Path   string
	Reason string
	Err    error
}

func (e *RefError) Error() string {
	return fmt.Sprintf("ref %q: %s", e.Path, e.Reason)
}

func (e *RefError) Unwrap() error { return e.Err }

func (e *RefError) Is(target error) bool { return target == ErrUnresolvedRef }

// FieldValidationError is one failed field-level check.
type FieldValidationError struct {
	Field string
	Err   error
}

func (e *FieldValidationError) Error() string {
	return fmt.Sprintf("field '%s': %v", e.Field, e.Err)
}

func (e *FieldValidationError) Unwrap() error { return e.Err }

func (e *FieldValidationError) Is(target error) bool { return target == ErrValidation }

// InconsistencyError is a failed cross-field consistency check.
type InconsistencyError struct {
	Field    string
	Op       string
	Actual   any
	Expected any
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("field '%s': expected %s %v, got %v", e.Field, e.Op, e.Expected, e.Actual)
}

func (e *InconsistencyError) Is(target error) bool { return target == ErrValidation }

// ValidationErrors aggregates every failure found by one Validate call.
type ValidationErrors []error

func (v ValidationErrors) Error() string {
	switch len(v) {
	case 0:
		return "no validation errors"
	case 1:
		return v[0].Error()
	default:
		return fmt.Sprintf("%d validation errors: %s (and %d more)", len(v), v[0].Error(), len(v)-1)
	}
}

func (v ValidationErrors) Unwrap() []error { return v }

func (v ValidationErrors) Is(target error) bool { return target == ErrValidation }

// AsValidationErrors extracts the aggregate from err, if any.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var v ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

func definitionErr(schema, field, reason string) *DefinitionError {
	return &DefinitionError{Schema: schema, Field: field, Reason: reason}
}

func serializationErr(field, format string, args ...any) *SerializationError {
	return &SerializationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
