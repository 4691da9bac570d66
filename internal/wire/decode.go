package wire

import (
	"errors"
	"time"

	logs "github.com/danmuck/binstruct/internal/logging"
	"github.com/danmuck/binstruct/internal/observability"
)

type DecodeOptions struct {
	// AllowTrailing skips the schema's trailing-data policy.
	AllowTrailing bool
}

func (s *Schema) Parse(data []byte) (*Instance, error) {
	return s.ParseWith(data, DecodeOptions{})
}

// ParseWith decodes data as a top-level instance of s. Parse errors are
// fatal and no partial instance is returned.
func (s *Schema) ParseWith(data []byte, opts DecodeOptions) (*Instance, error) {
	start := time.Now()
	logs.Debugf("wire.Parse schema=%s len=%d", s.name, len(data))
	in, err := s.parseTop(data, opts)
	observability.RecordCodec(s.name, observability.OpParse, len(data)-in.remaining(), time.Since(start), err)
	if err != nil {
		logs.Debugf("wire.Parse schema=%s err=%v", s.name, err)
		return nil, err
	}
	return in, nil
}

func (s *Schema) parseTop(data []byte, opts DecodeOptions) (*Instance, error) {
	src := NewSource(data)
	in := newInstance(s, nil)
	if err := in.parseFields(src); err != nil {
		return nil, err
	}
	rem := src.Remaining()
	in.trailing = rem
	if rem == 0 || opts.AllowTrailing {
		return in, nil
	}
	switch s.TrailingPolicy() {
	case TrailingWarn:
		logs.Warnf("wire.Parse schema=%s trailing_bytes=%d", s.name, rem)
		observability.RecordTrailing(s.name, rem)
	case TrailingIgnore:
		observability.RecordTrailing(s.name, rem)
	default:
		return nil, &TrailingDataError{Count: rem}
	}
	return in, nil
}

func (in *Instance) remaining() int {
	if in == nil {
		return 0
	}
	return in.trailing
}

// parseFields walks the schema in order. Embedded structs call this on the
// shared source, so they consume exactly their own fields.
func (in *Instance) parseFields(src *Source) error {
	for _, fd := range in.schema.fields {
		v, err := fd.field.Parse(src, in)
		if err != nil {
			return annotateParse(err, fd.name)
		}
		in.values[fd.name] = v
	}
	return nil
}

func annotateParse(err error, field string) error {
	var eof *UnexpectedEOFError
	if errors.As(err, &eof) {
		if eof.Field == "" {
			eof.Field = field
		}
		return err
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return err
	}
	return &ParseError{Field: field, Err: err}
}
