package frame

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/binstruct/internal/protocol/tlv"
	"github.com/danmuck/binstruct/internal/testutil/testlog"
)

func TestReadWriteFrameRoundTrip(t *testing.T) {
	testlog.Start(t)
	payload, err := tlv.EncodeFields([]tlv.Field{tlv.String(1, "intent-1")})
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	in := Frame{
		Header:  Header{Magic: 0xEDCE1001, Version: 1, MessageID: 42, MessageType: 1, Flags: FlagIsResponse},
		Auth:    []byte("auth"),
		Payload: payload,
	}
	var buf bytes.Buffer
	if err := WriteFrame(&buf, in, DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	out, err := ReadFrame(&buf, DefaultLimits())
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if out.Header.Magic != in.Header.Magic || out.Header.MessageType != in.Header.MessageType || out.Header.MessageID != in.Header.MessageID {
		t.Fatalf("header mismatch: got=%+v want=%+v", out.Header, in.Header)
	}
	if out.Header.HeaderLen != FixedHeaderLen+4 || out.Header.PayloadLen != uint64(len(payload)) {
		t.Fatalf("derived lengths wrong: %+v", out.Header)
	}
	if out.Header.Flags != FlagIsResponse|FlagHasAuth {
		t.Fatalf("flags=%#x", out.Header.Flags)
	}
	if string(out.Auth) != "auth" {
		t.Fatalf("auth mismatch: %q", string(out.Auth))
	}
	if !bytes.Equal(out.Payload, payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestEncodeWithoutAuthClearsFlag(t *testing.T) {
	testlog.Start(t)
	b, err := Encode(Frame{Header: Header{Magic: 1, Flags: FlagHasAuth | FlagIsError}}, DefaultLimits())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(b) != int(FixedHeaderLen) {
		t.Fatalf("len=%d", len(b))
	}
	h, err := DecodeHeader(b)
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if h.Flags != FlagIsError || h.HeaderLen != FixedHeaderLen || h.PayloadLen != 0 {
		t.Fatalf("header=%+v", h)
	}
}

func TestHeaderLayoutIsBigEndian(t *testing.T) {
	testlog.Start(t)
	h := Header{Magic: 0x01020304, Version: 0x0506, HeaderLen: 32, MessageID: 7, MessageType: 9, Flags: 0x80000003, PayloadLen: 0x10}
	b := EncodeHeader(h)
	want := []byte{
		1, 2, 3, 4, 5, 6, 0, 32,
		0, 0, 0, 0, 0, 0, 0, 7,
		0, 0, 0, 9, 0x80, 0, 0, 3,
		0, 0, 0, 0, 0, 0, 0, 0x10,
	}
	if !bytes.Equal(b, want) {
		t.Fatalf("got %x want %x", b, want)
	}
	back, err := DecodeHeader(b)
	if err != nil || back != h {
		t.Fatalf("decode=%+v err=%v", back, err)
	}
}

func TestReadFrameMalformedHeaderIsDeterministic(t *testing.T) {
	testlog.Start(t)
	_, err := ReadFrame(bytes.NewReader([]byte{1, 2, 3}), DefaultLimits())
	if !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}

func TestReadFrameHeaderLenTooSmall(t *testing.T) {
	testlog.Start(t)
	h := Header{Magic: 1, Version: 1, HeaderLen: 8, MessageID: 1, MessageType: 1, PayloadLen: 0}
	buf := EncodeHeader(h)
	_, err := ReadFrame(bytes.NewReader(buf), DefaultLimits())
	if !errors.Is(err, ErrHeaderLenTooSmall) {
		t.Fatalf("expected ErrHeaderLenTooSmall, got %v", err)
	}
}

func TestReadFrameAuthFlagWithoutAuthBytes(t *testing.T) {
	testlog.Start(t)
	h := Header{Magic: 1, Version: 1, HeaderLen: FixedHeaderLen, MessageID: 1, MessageType: 1, Flags: FlagHasAuth, PayloadLen: 0}
	buf := EncodeHeader(h)
	_, err := ReadFrame(bytes.NewReader(buf), DefaultLimits())
	if !errors.Is(err, ErrHeaderLenMismatch) {
		t.Fatalf("expected ErrHeaderLenMismatch, got %v", err)
	}
}

func TestReadFrameAuthBytesWithoutFlag(t *testing.T) {
	testlog.Start(t)
	h := Header{Magic: 1, HeaderLen: FixedHeaderLen + 2}
	buf := append(EncodeHeader(h), 'a', 'b')
	_, err := ReadFrame(bytes.NewReader(buf), DefaultLimits())
	if !errors.Is(err, ErrAuthFlagMissing) {
		t.Fatalf("expected ErrAuthFlagMissing, got %v", err)
	}
}

func TestLimitsAreEnforced(t *testing.T) {
	testlog.Start(t)
	limits := Limits{MaxAuthBytes: 2, MaxPayloadBytes: 4}
	if _, err := Encode(Frame{Auth: []byte("abc")}, limits); !errors.Is(err, ErrAuthTooLarge) {
		t.Fatalf("expected ErrAuthTooLarge, got %v", err)
	}
	if _, err := Encode(Frame{Payload: []byte("hello")}, limits); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	h := Header{Magic: 1, HeaderLen: FixedHeaderLen, PayloadLen: 5}
	_, err := ReadFrame(bytes.NewReader(EncodeHeader(h)), limits)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge on read, got %v", err)
	}
}
