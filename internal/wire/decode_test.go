package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/binstruct/internal/testutil/testlog"
)

func lengthPrefixed(t *testing.T, policy TrailingPolicy) *Schema {
	t.Helper()
	s, err := NewSchema("LengthPrefixed").
		Field("length", UInt8()).
		Field("data", Bytes(Ref("length"))).
		Trailing(policy).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return s
}

var helloWithTrailer = []byte{0x05, 'H', 'e', 'l', 'l', 'o', 0xFF, 0xFF}

func TestParseTrailingDataErrorReportsCount(t *testing.T) {
	testlog.Start(t)
	_, err := lengthPrefixed(t, TrailingError).Parse(helloWithTrailer)
	var te *TrailingDataError
	if !errors.As(err, &te) {
		t.Fatalf("expected TrailingDataError, got %v", err)
	}
	if te.Count != 2 {
		t.Fatalf("expected 2 trailing bytes, got %d", te.Count)
	}
	if !errors.Is(err, ErrParse) || !errors.Is(err, ErrTrailingData) {
		t.Fatalf("trailing error must match ErrParse and ErrTrailingData: %v", err)
	}
}

func TestParseTrailingDataIgnoreAndWarn(t *testing.T) {
	testlog.Start(t)
	for _, policy := range []TrailingPolicy{TrailingIgnore, TrailingWarn} {
		in, err := lengthPrefixed(t, policy).Parse(helloWithTrailer)
		if err != nil {
			t.Fatalf("policy=%s parse: %v", policy, err)
		}
		data, err := in.Raw("data")
		if err != nil {
			t.Fatalf("policy=%s data: %v", policy, err)
		}
		if !bytes.Equal(data, []byte("Hello")) {
			t.Fatalf("policy=%s data=%q", policy, data)
		}
		if in.Trailing() != 2 {
			t.Fatalf("policy=%s trailing=%d", policy, in.Trailing())
		}
	}
}

func TestParseAllowTrailingOverridesPolicy(t *testing.T) {
	testlog.Start(t)
	in, err := lengthPrefixed(t, TrailingError).ParseWith(helloWithTrailer, DecodeOptions{AllowTrailing: true})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got, _ := in.Text("data"); got != "Hello" {
		t.Fatalf("data=%q", got)
	}
}

func TestParseShortInputNamesField(t *testing.T) {
	testlog.Start(t)
	s := NewSchema("Short").
		Field("a", UInt8()).
		Field("b", UInt32()).
		MustBuild()
	_, err := s.Parse([]byte{1, 2, 3})
	var eof *UnexpectedEOFError
	if !errors.As(err, &eof) {
		t.Fatalf("expected UnexpectedEOFError, got %v", err)
	}
	if eof.Field != "b" || eof.Expected != 4 || eof.Got != 2 {
		t.Fatalf("unexpected eof detail: %+v", eof)
	}
	if eof.Error() != "field 'b': expected 4 bytes, got 2" {
		t.Fatalf("unexpected message %q", eof.Error())
	}
}

func TestEmbeddedParseNeverChecksTrailing(t *testing.T) {
	testlog.Start(t)
	inner := NewSchema("Inner").Field("x", UInt8()).MustBuild()
	outer := NewSchema("Outer").
		Field("inner", Embed(inner)).
		Field("y", UInt8()).
		MustBuild()
	in, err := outer.Parse([]byte{7, 9})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v, _ := in.Uint("inner.x"); v != 7 {
		t.Fatalf("inner.x=%d", v)
	}
	if v, _ := in.Uint("y"); v != 9 {
		t.Fatalf("y=%d", v)
	}
	child, _ := in.Struct("inner")
	if child.Parent() != in || child.Root() != in {
		t.Fatalf("child links not bound")
	}
}

func TestConditionalSymmetry(t *testing.T) {
	testlog.Start(t)
	s := NewSchema("Versioned").
		Endian(BigEndian).
		Field("version", UInt8()).
		Field("extra", When(UInt32(), Ref("version").Ge(2))).
		Field("tail", UInt8()).
		MustBuild()

	v1, err := s.Parse([]byte{0x01, 0x42})
	if err != nil {
		t.Fatalf("parse v1: %v", err)
	}
	if extra, _ := v1.Lookup("extra"); !IsAbsent(extra) {
		t.Fatalf("expected absent extra, got %v", extra)
	}
	if tail, _ := v1.Uint("tail"); tail != 0x42 {
		t.Fatalf("tail=%x", tail)
	}

	v2, err := s.Parse([]byte{0x02, 0x00, 0x00, 0x00, 0x01, 0x42})
	if err != nil {
		t.Fatalf("parse v2: %v", err)
	}
	if extra, _ := v2.Uint("extra"); extra != 1 {
		t.Fatalf("extra=%d", extra)
	}
	if tail, _ := v2.Uint("tail"); tail != 0x42 {
		t.Fatalf("tail=%x", tail)
	}

	v2.MustSet("version", 1)
	out, err := v2.Bytes()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if !bytes.Equal(out, []byte{0x01, 0x42}) {
		t.Fatalf("expected stored extra to be skipped, got %x", out)
	}
	if n, _ := v2.Size(); n != 2 {
		t.Fatalf("size=%d", n)
	}
}

func TestConditionalPresentWithoutValueFails(t *testing.T) {
	testlog.Start(t)
	s := NewSchema("Opt").
		Field("flag", Bool()).
		Field("extra", When(UInt8(), Ref("flag").Eq(true))).
		MustBuild()
	in := s.New().MustSet("flag", true)
	if _, err := in.Bytes(); !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected ErrSerialization, got %v", err)
	}
}

func TestArrayOfEmbeddedStructs(t *testing.T) {
	testlog.Start(t)
	point := NewSchema("Point").
		Field("x", Int8()).
		Field("y", Int8()).
		MustBuild()
	poly := NewSchema("Polygon").
		Field("count", UInt8()).
		Field("points", Array(Embed(point), Ref("count"))).
		MustBuild()
	raw := []byte{2, 1, 0xFF, 3, 4}
	in, err := poly.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	pts := in.Get("points").([]any)
	if len(pts) != 2 {
		t.Fatalf("points=%d", len(pts))
	}
	first := pts[0].(*Instance)
	if y, _ := first.Int("y"); y != -1 {
		t.Fatalf("y=%d", y)
	}
	if c, _ := first.Uint("../count"); c != 2 {
		t.Fatalf("../count=%d", c)
	}
	out, err := in.Bytes()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if !bytes.Equal(out, raw) {
		t.Fatalf("round trip mismatch %x", out)
	}
}

func TestArrayHugeCountFailsShort(t *testing.T) {
	testlog.Start(t)
	chunk := NewSchema("Chunk").
		Field("length", UInt8()).
		Field("data", Bytes(Ref("length"))).
		MustBuild()
	cases := []struct {
		name string
		item Field
	}{
		{name: "fixed items", item: UInt32()},
		{name: "variable items", item: Embed(chunk)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSchema("Counted").
				Field("count", UInt32()).
				Field("items", Array(tc.item, Ref("count"))).
				MustBuild()
			_, err := s.Parse([]byte{0xFF, 0xFF, 0xFF, 0x7F})
			if !errors.Is(err, ErrUnexpectedEOF) {
				t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
			}
		})
	}
}

func TestUnsetTrailingPolicyFollowsDefault(t *testing.T) {
	testlog.Start(t)
	prev := DefaultTrailingPolicy()
	t.Cleanup(func() { SetDefaultTrailingPolicy(prev) })

	open := NewSchema("Open").
		Field("length", UInt8()).
		Field("data", Bytes(Ref("length"))).
		MustBuild()
	strict := lengthPrefixed(t, TrailingError)

	SetDefaultTrailingPolicy(TrailingIgnore)
	if open.TrailingPolicy() != TrailingIgnore {
		t.Fatalf("unset policy = %s, want ignore", open.TrailingPolicy())
	}
	if _, err := open.Parse(helloWithTrailer); err != nil {
		t.Fatalf("default ignore should tolerate trailer: %v", err)
	}
	if _, err := strict.Parse(helloWithTrailer); !errors.Is(err, ErrTrailingData) {
		t.Fatalf("explicit error policy must win over default, got %v", err)
	}
}
