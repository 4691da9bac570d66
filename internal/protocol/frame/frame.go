// Package frame defines the edge wire frame as engine schemas: a 32-byte
// big-endian header, an optional auth block, and a payload.
package frame

import (
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/binstruct/internal/wire"
)

const (
	FixedHeaderLen uint16 = 32
	FlagHasAuth    uint32 = 0x01
	FlagIsResponse uint32 = 0x02
	FlagIsError    uint32 = 0x04
)

var (
	ErrShortHeader       = errors.New("frame: short fixed header")
	ErrHeaderLenTooSmall = errors.New("frame: header_len smaller than fixed header")
	ErrHeaderLenMismatch = errors.New("frame: auth present but header_len has no auth bytes")
	ErrPayloadTooLarge   = errors.New("frame: payload too large")
	ErrAuthTooLarge      = errors.New("frame: auth too large")
	ErrAuthFlagMissing   = errors.New("frame: header_len has auth bytes but auth flag is clear")
)

// FlagBits is the 32-bit big-endian flags word. The low three bits are
// named; the rest are carried through untouched.
var FlagBits = wire.NewBitSchema("FrameFlags", 4).
	Order(wire.MSBFirst).
	Endian(wire.BigEndian).
	Field("reserved", wire.Bits(29)).
	Field("is_error", wire.Bit()).
	Field("is_response", wire.Bit()).
	Field("has_auth", wire.Bit()).
	MustBuild()

var HeaderSchema = wire.NewSchema("FrameHeader").
	Endian(wire.BigEndian).
	Field("magic", wire.UInt32()).
	Field("version", wire.UInt16()).
	Field("header_len", wire.UInt16(), wire.Default(FixedHeaderLen)).
	Field("message_id", wire.UInt64()).
	Field("message_type", wire.UInt32()).
	Field("flags", wire.Packed(FlagBits)).
	Field("payload_len", wire.UInt64(), wire.Default(uint64(0))).
	Validate(
		wire.StructValidatorFunc(checkHeaderLen),
		wire.StructValidatorFunc(checkAuthFlag),
	).
	MustBuild()

// Schema is a complete frame. Encoding with Sync derives header_len,
// payload_len, and the has_auth flag from the auth and payload fields.
var Schema = wire.NewSchema("Frame").
	Extends(HeaderSchema).
	Field("auth", wire.When(
		wire.Bytes(wire.Computed(wire.Sub(wire.ValueOf("header_len"), int64(FixedHeaderLen)))),
		wire.Ref("flags.has_auth").Eq(true),
	)).
	Field("payload", wire.Bytes(wire.Ref("payload_len"))).
	Sync(
		wire.SyncFrom("flags.has_auth", "auth", func(v any) (any, error) {
			b, _ := v.([]byte)
			return len(b) > 0, nil
		}),
		wire.SyncFrom("header_len", "auth", func(v any) (any, error) {
			b, _ := v.([]byte)
			return int(FixedHeaderLen) + len(b), nil
		}),
		wire.SyncExpr("payload_len", wire.LenOf("payload")),
	).
	MustBuild()

// Header is the fixed wire header.
type Header struct {
	Magic       uint32
	Version     uint16
	HeaderLen   uint16
	MessageID   uint64
	MessageType uint32
	Flags       uint32
	PayloadLen  uint64
}

// Frame is one complete wire message.
type Frame struct {
	Header  Header
	Auth    []byte
	Payload []byte
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxAuthBytes    uint64
	MaxPayloadBytes uint64
}

func DefaultLimits() Limits {
	return Limits{
		MaxAuthBytes:    64 * 1024,
		MaxPayloadBytes: 8 * 1024 * 1024,
	}
}

// Validator checks header_len and payload_len against the limits.
func (l Limits) Validator() wire.StructValidator {
	return wire.StructValidatorFunc(func(in *wire.Instance) error {
		hl, err := in.Uint("header_len")
		if err != nil {
			return err
		}
		pl, err := in.Uint("payload_len")
		if err != nil {
			return err
		}
		if hl >= uint64(FixedHeaderLen) && hl-uint64(FixedHeaderLen) > l.MaxAuthBytes {
			return ErrAuthTooLarge
		}
		if pl > l.MaxPayloadBytes {
			return ErrPayloadTooLarge
		}
		return nil
	})
}

func checkHeaderLen(in *wire.Instance) error {
	hl, err := in.Uint("header_len")
	if err != nil {
		return err
	}
	if hl < uint64(FixedHeaderLen) {
		return ErrHeaderLenTooSmall
	}
	return nil
}

func checkAuthFlag(in *wire.Instance) error {
	hasAuth, err := in.Bool("flags.has_auth")
	if err != nil {
		return err
	}
	hl, err := in.Uint("header_len")
	if err != nil {
		return err
	}
	switch {
	case hasAuth && hl == uint64(FixedHeaderLen):
		return ErrHeaderLenMismatch
	case !hasAuth && hl > uint64(FixedHeaderLen):
		return ErrAuthFlagMissing
	}
	return nil
}

// check reports the first header failure, static rules before limits.
func check(in *wire.Instance, limits Limits) error {
	if err := in.Validate(); err != nil {
		if agg, ok := wire.AsValidationErrors(err); ok && len(agg) > 0 {
			return agg[0]
		}
		return err
	}
	return limits.Validator().ValidateStruct(in)
}

func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	fixed := make([]byte, FixedHeaderLen)
	if _, err := io.ReadFull(r, fixed); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}
	hdr, err := HeaderSchema.Parse(fixed)
	if err != nil {
		return Frame{}, err
	}
	if err := check(hdr, limits); err != nil {
		return Frame{}, err
	}
	h := headerFrom(hdr)
	rest := make([]byte, uint64(h.HeaderLen-FixedHeaderLen)+h.PayloadLen)
	if _, err := io.ReadFull(r, rest); err != nil {
		return Frame{}, err
	}
	return Decode(append(fixed, rest...), limits)
}

// Decode parses exactly one frame from b.
func Decode(b []byte, limits Limits) (Frame, error) {
	if len(b) < int(FixedHeaderLen) {
		return Frame{}, ErrShortHeader
	}
	hdr, err := HeaderSchema.ParseWith(b[:FixedHeaderLen], wire.DecodeOptions{})
	if err != nil {
		return Frame{}, err
	}
	if err := check(hdr, limits); err != nil {
		return Frame{}, err
	}
	in, err := Schema.Parse(b)
	if err != nil {
		return Frame{}, err
	}
	f := Frame{Header: headerFrom(in), Payload: in.Get("payload").([]byte)}
	if auth, ok := in.Get("auth").([]byte); ok {
		f.Auth = auth
	} else {
		f.Auth = []byte{}
	}
	return f, nil
}

// Encode derives header_len, payload_len, and the auth flag, then checks
// the result against limits before producing bytes.
func Encode(f Frame, limits Limits) ([]byte, error) {
	if uint64(len(f.Auth)) > limits.MaxAuthBytes {
		return nil, ErrAuthTooLarge
	}
	if uint64(len(f.Payload)) > limits.MaxPayloadBytes {
		return nil, ErrPayloadTooLarge
	}
	in := Schema.New()
	setHeader(in, f.Header)
	in.MustSet("auth", append([]byte{}, f.Auth...))
	in.MustSet("payload", append([]byte{}, f.Payload...))
	if err := in.Sync(); err != nil {
		return nil, err
	}
	if err := check(in, limits); err != nil {
		return nil, err
	}
	return in.Bytes()
}

func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	b, err := Encode(f, limits)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// EncodeHeader writes h exactly as given.
func EncodeHeader(h Header) []byte {
	in := HeaderSchema.New()
	setHeader(in, h)
	b, err := in.Bytes()
	if err != nil {
		// Every header field is a fixed-width integer set from a value of
		// matching width.
		panic(err)
	}
	return b
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) != int(FixedHeaderLen) {
		return Header{}, fmt.Errorf("frame: invalid fixed header length: %d", len(b))
	}
	in, err := HeaderSchema.Parse(b)
	if err != nil {
		return Header{}, err
	}
	return headerFrom(in), nil
}

func setHeader(in *wire.Instance, h Header) {
	in.MustSet("magic", h.Magic).
		MustSet("version", h.Version).
		MustSet("header_len", h.HeaderLen).
		MustSet("message_id", h.MessageID).
		MustSet("message_type", h.MessageType).
		MustSet("flags", flagRecord(h.Flags)).
		MustSet("payload_len", h.PayloadLen)
}

func headerFrom(in *wire.Instance) Header {
	var h Header
	magic, _ := in.Uint("magic")
	version, _ := in.Uint("version")
	headerLen, _ := in.Uint("header_len")
	h.Magic = uint32(magic)
	h.Version = uint16(version)
	h.HeaderLen = uint16(headerLen)
	h.MessageID, _ = in.Uint("message_id")
	messageType, _ := in.Uint("message_type")
	h.MessageType = uint32(messageType)
	h.PayloadLen, _ = in.Uint("payload_len")
	if rec, err := in.Record("flags"); err == nil {
		h.Flags = flagWord(rec)
	}
	return h
}

func flagRecord(flags uint32) *wire.BitRecord {
	return FlagBits.New().
		MustSet("reserved", uint64(flags>>3)).
		MustSet("is_error", flags&FlagIsError != 0).
		MustSet("is_response", flags&FlagIsResponse != 0).
		MustSet("has_auth", flags&FlagHasAuth != 0)
}

func flagWord(rec *wire.BitRecord) uint32 {
	raw, err := rec.Bytes()
	if err != nil || len(raw) != 4 {
		return 0
	}
	return uint32(raw[0])<<24 | uint32(raw[1])<<16 | uint32(raw[2])<<8 | uint32(raw[3])
}
