package protocol

import (
	"errors"
	"io"

	"github.com/danmuck/binstruct/internal/protocol/frame"
	"github.com/danmuck/binstruct/internal/protocol/tlv"
)

const (
	Magic   uint32 = 0xEDCE1001
	Version uint16 = 1
)

var (
	ErrInvalidMagic        = errors.New("protocol: invalid magic")
	ErrUnsupportedVersion  = errors.New("protocol: unsupported version")
	ErrNilMessage          = errors.New("protocol: nil message")
	ErrFieldTypeMismatch   = errors.New("protocol: field type mismatch")
	ErrMessageTypeMismatch = errors.New("protocol: message type mismatch")
)

// Message is one frame whose payload is a TLV field list.
type Message struct {
	Header frame.Header
	Auth   []byte
	Fields []Field
}

// Field aliases the tlv field so callers need only this package.
type Field = tlv.Field

// Encode stamps magic and version, encodes the fields, and writes one frame.
func Encode(w io.Writer, msg *Message, limits frame.Limits) error {
	if msg == nil {
		return ErrNilMessage
	}
	payload, err := tlv.EncodeFields(msg.Fields)
	if err != nil {
		return err
	}
	head := msg.Header
	head.Magic = Magic
	head.Version = Version
	return frame.WriteFrame(w, frame.Frame{Header: head, Auth: msg.Auth, Payload: payload}, limits)
}

// Decode reads one frame and decodes its payload fields.
func Decode(r io.Reader, limits frame.Limits) (*Message, error) {
	f, err := frame.ReadFrame(r, limits)
	if err != nil {
		return nil, err
	}
	if f.Header.Magic != Magic {
		return nil, ErrInvalidMagic
	}
	if f.Header.Version != Version {
		return nil, ErrUnsupportedVersion
	}
	fields, err := tlv.DecodeFields(f.Payload)
	if err != nil {
		return nil, err
	}
	return &Message{Header: f.Header, Auth: f.Auth, Fields: fields}, nil
}
