package tlv

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/binstruct/internal/testutil/testlog"
)

func TestEncodeFieldLayout(t *testing.T) {
	testlog.Start(t)
	b, err := EncodeField(String(1, "hi"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{0, 1, TypeString, 0, 0, 0, 2, 'h', 'i'}
	if !bytes.Equal(b, want) {
		t.Fatalf("got %x want %x", b, want)
	}
	b, err = EncodeField(U32(2, 0xDEADBEEF))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want = []byte{0, 2, TypeU32, 0, 0, 0, 4, 0xDE, 0xAD, 0xBE, 0xEF}
	if !bytes.Equal(b, want) {
		t.Fatalf("got %x want %x", b, want)
	}
}

func TestEncodeDecodeFieldsRoundTripPreservesUnknown(t *testing.T) {
	testlog.Start(t)
	in := []Field{
		String(1, "intent-1"),
		U64(2, 1<<40),
		Bool(3, true),
		{ID: 9999, Type: 0x63, Value: []byte{0xAA, 0xBB}}, // unknown type id
	}
	b, err := EncodeFields(in)
	if err != nil {
		t.Fatalf("encode fields: %v", err)
	}
	out, err := DecodeFields(b)
	if err != nil {
		t.Fatalf("decode fields: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("expected 4 fields, got %d", len(out))
	}
	if s, err := out[0].Text(); err != nil || s != "intent-1" {
		t.Fatalf("field 1: %q %v", s, err)
	}
	if v, err := out[1].Uint(); err != nil || v != 1<<40 {
		t.Fatalf("field 2: %d %v", v, err)
	}
	if out[2].Value != true {
		t.Fatalf("field 3: %v", out[2].Value)
	}
	if out[3].ID != 9999 || out[3].Type != 0x63 || !bytes.Equal(out[3].Value.([]byte), []byte{0xAA, 0xBB}) {
		t.Fatalf("unknown field not preserved: %+v", out[3])
	}
	if f, ok := GetField(out, 3); !ok || MustType(f, TypeBool) != nil {
		t.Fatalf("lookup by id failed: %+v", f)
	}
}

func TestDecodeFieldsMalformedHeaderIsDeterministic(t *testing.T) {
	testlog.Start(t)
	_, err := DecodeFields([]byte{1, 2, 3})
	if !errors.Is(err, ErrShortFieldHeader) {
		t.Fatalf("expected ErrShortFieldHeader, got %v", err)
	}
}

func TestDecodeFieldsMalformedLengthIsDeterministic(t *testing.T) {
	testlog.Start(t)
	// id=1, type=string, len=5, value only 2 bytes
	payload := []byte{0, 1, TypeString, 0, 0, 0, 5, 'a', 'b'}
	_, err := DecodeFields(payload)
	if !errors.Is(err, ErrShortFieldValue) {
		t.Fatalf("expected ErrShortFieldValue, got %v", err)
	}
}

func TestDecodeFieldsRejectsWidthMismatch(t *testing.T) {
	testlog.Start(t)
	// u8 value declared with length 2
	payload := []byte{0, 1, TypeU8, 0, 0, 0, 2, 7, 0}
	_, err := DecodeFields(payload)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}
