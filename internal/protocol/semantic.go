package protocol

import (
	"fmt"
	"sort"
)

// FieldSpec declares a known field within a message type.
type FieldSpec struct {
	ID       uint16
	Type     uint8
	Required bool
}

// Schema defines required and known fields for a message type.
type Schema struct {
	MessageType uint32
	Fields      []FieldSpec
}

// SemanticMessage is a message with its known fields indexed by ID.
type SemanticMessage struct {
	Message Message
	Fields  map[uint16]Field
	Unknown []Field
}

// MissingFieldError indicates a required field was not present.
type MissingFieldError struct {
	FieldID uint16
}

func (e MissingFieldError) Error() string {
	return fmt.Sprintf("protocol: missing required field %d", e.FieldID)
}

// ParseSemantic checks msg against schema. Known fields must carry the
// declared type; unknown fields are kept aside.
func ParseSemantic(msg *Message, schema Schema) (*SemanticMessage, error) {
	if msg == nil {
		return nil, ErrNilMessage
	}
	if msg.Header.MessageType != schema.MessageType {
		return nil, ErrMessageTypeMismatch
	}
	known := make(map[uint16]FieldSpec, len(schema.Fields))
	for _, spec := range schema.Fields {
		known[spec.ID] = spec
	}

	out := &SemanticMessage{Message: *msg, Fields: make(map[uint16]Field)}
	for _, field := range msg.Fields {
		spec, ok := known[field.ID]
		if !ok {
			out.Unknown = append(out.Unknown, field)
			continue
		}
		if field.Type != spec.Type {
			return nil, fmt.Errorf("%w: field %d has type %d, want %d", ErrFieldTypeMismatch, field.ID, field.Type, spec.Type)
		}
		out.Fields[field.ID] = field
	}

	var missing []uint16
	for id, spec := range known {
		if _, ok := out.Fields[id]; spec.Required && !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
		return nil, MissingFieldError{FieldID: missing[0]}
	}
	return out, nil
}
