package wire

import (
	"bytes"
	"errors"
	"time"

	logs "github.com/danmuck/binstruct/internal/logging"
	"github.com/danmuck/binstruct/internal/observability"
)

type EncodeOptions struct {
	Sync     bool
	Validate bool
}

// Bytes serializes the current state with no sync and no validation.
func (in *Instance) Bytes() ([]byte, error) {
	return in.ToBytes(EncodeOptions{})
}

// ToBytes serializes in field order. Sync and Validate run first only when
// requested; no other consistency check is made.
func (in *Instance) ToBytes(opts EncodeOptions) ([]byte, error) {
	start := time.Now()
	logs.Debugf("wire.ToBytes schema=%s sync=%t validate=%t", in.schema.name, opts.Sync, opts.Validate)
	out, err := in.encode(opts)
	observability.RecordCodec(in.schema.name, observability.OpEncode, len(out), time.Since(start), err)
	return out, err
}

func (in *Instance) encode(opts EncodeOptions) ([]byte, error) {
	if opts.Sync {
		if err := in.Sync(); err != nil {
			return nil, err
		}
	}
	if opts.Validate {
		if err := in.Validate(); err != nil {
			return nil, err
		}
	}
	return in.serializeFields()
}

func (in *Instance) serializeFields() ([]byte, error) {
	var buf bytes.Buffer
	for _, fd := range in.schema.fields {
		v, ok := in.values[fd.name]
		if (!ok || v == nil || IsAbsent(v)) && !fd.isConditional() {
			if fd.required() {
				return nil, serializationErr(fd.name, "required value is missing")
			}
			v = nil
		}
		b, err := fd.field.Serialize(v, in)
		if err != nil {
			return nil, annotateSerialize(err, fd.name)
		}
		buf.Write(b)
	}
	return buf.Bytes(), nil
}

func annotateSerialize(err error, field string) error {
	var se *SerializationError
	if errors.As(err, &se) {
		if se.Field == "" {
			se.Field = field
		}
		return err
	}
	return &SerializationError{Field: field, Reason: err.Error()}
}
