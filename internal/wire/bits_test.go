package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/binstruct/internal/testutil/testlog"
)

func TestBitContainerMSBLiteral(t *testing.T) {
	testlog.Start(t)
	nibbles := NewBitSchema("Nibbles", 1).
		Field("a", Bits(4)).
		Field("b", Bits(4)).
		MustBuild()
	rec, err := nibbles.Decode([]byte{0xE3})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Get("a") != uint64(14) || rec.Get("b") != uint64(3) {
		t.Fatalf("a=%v b=%v", rec.Get("a"), rec.Get("b"))
	}
	out, err := rec.Bytes()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(out, []byte{0xE3}) {
		t.Fatalf("encode=%x", out)
	}
}

func TestBitContainerWidthMismatchIsDefinitionError(t *testing.T) {
	testlog.Start(t)
	_, err := NewBitSchema("TooWide", 1).
		Field("a", Bits(4)).
		Field("b", Bits(6)).
		Build()
	if !errors.Is(err, ErrDefinition) {
		t.Fatalf("expected ErrDefinition, got %v", err)
	}
}

func TestBitContainerRejectsByteField(t *testing.T) {
	testlog.Start(t)
	_, err := NewBitSchema("Mixed", 1).
		Field("a", Bits(4)).
		Field("b", UInt8()).
		Build()
	var de *DefinitionError
	if !errors.As(err, &de) || de.Field != "b" {
		t.Fatalf("expected definition error on b, got %v", err)
	}
}

func TestPackedContainerInByteSchema(t *testing.T) {
	testlog.Start(t)
	status := NewBitSchema("Status", 1).
		Field("ready", Bit()).
		Field("mode", Bits(3)).
		Field("count", Bits(4)).
		MustBuild()
	s := NewSchema("Device").
		Field("id", UInt8()).
		Field("status", Packed(status)).
		Field("extra", When(UInt8(), Ref("status.ready").Eq(true))).
		MustBuild()

	in, err := s.Parse([]byte{0x01, 0xA5, 0x7F})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ready, _ := in.Bool("status.ready"); !ready {
		t.Fatalf("ready should be set")
	}
	if mode, _ := in.Uint("status.mode"); mode != 2 {
		t.Fatalf("mode=%d", mode)
	}
	if count, _ := in.Uint("status.count"); count != 5 {
		t.Fatalf("count=%d", count)
	}
	if extra, _ := in.Uint("extra"); extra != 0x7F {
		t.Fatalf("extra=%x", extra)
	}

	if err := in.Set("status.ready", false); err != nil {
		t.Fatalf("set: %v", err)
	}
	out, err := in.Bytes()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if !bytes.Equal(out, []byte{0x01, 0x25}) {
		t.Fatalf("bytes=%x", out)
	}
}

func TestBitContainerLSBFirst(t *testing.T) {
	testlog.Start(t)
	hdr := NewBitSchema("Header", 2).
		Order(LSBFirst).
		Field("flags", Bits(3)).
		Field("version", Bits(5)).
		Field("code", Bits(8)).
		MustBuild()
	rec, err := hdr.Decode([]byte{0x12, 0x34})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Get("flags") != uint64(2) || rec.Get("version") != uint64(2) || rec.Get("code") != uint64(0x34) {
		t.Fatalf("unexpected record %v", rec.ToDict())
	}
}

func TestBitContainerMSBFirstMultiByte(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name   string
		endian Endian
		a, b   uint64
	}{
		{name: "little", endian: EndianUnset, a: 0x3, b: 0x412},
		{name: "big", endian: BigEndian, a: 0x1, b: 0x234},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewBitSchema("Word", 2).
				Endian(tc.endian).
				Field("a", Bits(4)).
				Field("b", Bits(12)).
				MustBuild()
			rec, err := s.Decode([]byte{0x12, 0x34})
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if rec.Get("a") != tc.a || rec.Get("b") != tc.b {
				t.Fatalf("a=%v b=%v", rec.Get("a"), rec.Get("b"))
			}
			out, err := rec.Bytes()
			if err != nil || !bytes.Equal(out, []byte{0x12, 0x34}) {
				t.Fatalf("encode=%x err=%v", out, err)
			}
		})
	}
}

func TestBitRecordMustSetPanicsOnUnknownField(t *testing.T) {
	testlog.Start(t)
	s := NewBitSchema("Small", 1).Field("a", Bits(2)).Field("b", Bits(6)).MustBuild()
	rec := s.New().MustSet("a", uint64(1))
	if rec.Get("a") != uint64(1) {
		t.Fatalf("a=%v", rec.Get("a"))
	}
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrUnknownField) {
			t.Fatalf("expected ErrUnknownField panic, got %v", r)
		}
	}()
	rec.MustSet("missing", 1)
}

func TestBitRecordEncodeRejectsOverflow(t *testing.T) {
	testlog.Start(t)
	s := NewBitSchema("Small", 1).Field("a", Bits(2)).Field("b", Bits(6)).MustBuild()
	rec := s.New()
	if err := rec.Set("a", 4); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := rec.Bytes(); !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected ErrSerialization, got %v", err)
	}
}
