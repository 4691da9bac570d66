package wire

import (
	"bytes"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/danmuck/binstruct/internal/testutil/testlog"
)

func TestPrimitiveRoundTrip(t *testing.T) {
	testlog.Start(t)
	perm := Flags(1, map[string]uint64{"READ": 1, "WRITE": 2, "EXEC": 4})
	kind := Enum(2, map[string]uint64{"REQUEST": 1, "RESPONSE": 2})
	s := NewSchema("Record").
		Endian(BigEndian).
		Field("i8", Int8()).
		Field("i32", Int32()).
		Field("u64", UInt64()).
		Field("f32", Float32()).
		Field("f64", Float64()).
		Field("ok", Bool()).
		Field("name", FixedString(6, ' ')).
		Field("label", CString(8)).
		Field("pad", Padding(Fixed(2), 0xEE)).
		Field("perm", perm).
		Field("kind", kind).
		MustBuild()

	in := s.New().
		MustSet("i8", -5).
		MustSet("i32", -70000).
		MustSet("u64", uint64(math.MaxUint64)).
		MustSet("f32", float32(1.5)).
		MustSet("f64", -2.25).
		MustSet("ok", true).
		MustSet("name", "bob").
		MustSet("label", "tag").
		MustSet("perm", []string{"READ", "EXEC"}).
		MustSet("kind", "RESPONSE")
	raw, err := in.Bytes()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if n, _ := in.Size(); n != len(raw) {
		t.Fatalf("size=%d len=%d", n, len(raw))
	}
	back, err := s.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v, _ := back.Int("i32"); v != -70000 {
		t.Fatalf("i32=%d", v)
	}
	if v, _ := back.Uint("u64"); v != math.MaxUint64 {
		t.Fatalf("u64=%d", v)
	}
	if back.Get("f32") != float32(1.5) || back.Get("f64") != -2.25 {
		t.Fatalf("floats=%v %v", back.Get("f32"), back.Get("f64"))
	}
	if s, _ := back.Text("name"); s != "bob" {
		t.Fatalf("name=%q", s)
	}
	if s, _ := back.Text("label"); s != "tag" {
		t.Fatalf("label=%q", s)
	}
	fs := back.Get("perm").(FlagSet)
	if !fs.Has("READ") || fs.Has("WRITE") || !fs.Has("EXEC") || fs.Value != 5 {
		t.Fatalf("perm=%v", fs)
	}
	if ev := back.Get("kind").(EnumValue); ev.Name != "RESPONSE" || ev.Value != 2 {
		t.Fatalf("kind=%v", ev)
	}
	if !bytes.Contains(raw, []byte{0xEE, 0xEE}) {
		t.Fatalf("padding fill missing: %x", raw)
	}
}

func TestSerializeFixedCapacityBounds(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name  string
		field Field
		value any
	}{
		{"u8 overflow", UInt8(), 256},
		{"u16 negative", UInt16(), -1},
		{"i8 overflow", Int8(), 128},
		{"fixed string too long", FixedString(2, 0), "abc"},
		{"fixed bytes too long", FixedBytes(1), []byte{1, 2}},
		{"cstring too long", CString(3), "abc"},
		{"enum unknown name", Enum(1, map[string]uint64{"A": 1}), "B"},
	}
	for _, tc := range cases {
		s := NewSchema("Bound").Field("v", tc.field).MustBuild()
		_, err := s.New().MustSet("v", tc.value).Bytes()
		var se *SerializationError
		if !errors.As(err, &se) || se.Field != "v" {
			t.Fatalf("%s: expected SerializationError on v, got %v", tc.name, err)
		}
	}
}

func TestSerializeMissingRequired(t *testing.T) {
	testlog.Start(t)
	s := NewSchema("Req").
		Field("a", UInt8()).
		Field("b", UInt8(), Optional()).
		Field("c", UInt8(), Default(3)).
		MustBuild()
	_, err := s.New().Bytes()
	var se *SerializationError
	if !errors.As(err, &se) || se.Field != "a" {
		t.Fatalf("expected missing a, got %v", err)
	}
	if se.Error() != "cannot serialize 'a': required value is missing" {
		t.Fatalf("message=%q", se.Error())
	}
	out, err := s.New().MustSet("a", 1).Bytes()
	if err != nil || !bytes.Equal(out, []byte{1, 0, 3}) {
		t.Fatalf("out=%x err=%v", out, err)
	}
}

func TestEmbedSizeOfUnsetValue(t *testing.T) {
	testlog.Start(t)
	label := NewSchema("Label").
		Field("length", UInt8(), Default(3)).
		Field("text", Bytes(Ref("length")), DefaultFunc(func() any { return []byte("abc") })).
		MustBuild()
	outer := NewSchema("Tagged").
		Field("id", UInt8(), Default(1)).
		Field("label", Embed(label)).
		MustBuild()
	in := outer.New()
	n, err := in.Size()
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	out, err := in.Bytes()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if n != len(out) || n != 5 {
		t.Fatalf("size=%d serialized=%d", n, len(out))
	}

	bare := NewSchema("Bare").
		Field("length", UInt8()).
		Field("text", Bytes(Ref("length"))).
		MustBuild()
	holder := NewSchema("Holder").Field("bare", Embed(bare)).MustBuild()
	if n, err := holder.New().Size(); err == nil {
		t.Fatalf("unset variable struct should not size, got %d", n)
	}
}

func TestDefaultFuncIsFreshPerInstance(t *testing.T) {
	testlog.Start(t)
	s := NewSchema("Fresh").
		Field("n", UInt8(), Default(0)).
		Field("items", Array(UInt8(), Ref("n")), DefaultFunc(func() any { return []any{} })).
		MustBuild()
	a, b := s.New(), s.New()
	a.MustSet("items", append(a.Get("items").([]any), uint8(1)))
	if len(b.Get("items").([]any)) != 0 {
		t.Fatalf("default shared between instances")
	}
}

func TestToDictUnwrapsNestedValues(t *testing.T) {
	testlog.Start(t)
	status := NewBitSchema("Status", 1).Field("on", Bit()).Field("level", Bits(7)).MustBuild()
	inner := NewSchema("Inner").Field("x", UInt8()).MustBuild()
	s := NewSchema("Outer").
		Field("inner", Embed(inner)).
		Field("status", Packed(status)).
		Field("list", Array(Embed(inner), Fixed(2))).
		Field("opt", When(UInt8(), Ref("inner.x").Eq(0))).
		Field("kind", Switch(Ref("inner.x"), Case(1, UInt8()))).
		MustBuild()
	in, err := s.Parse([]byte{1, 0x83, 4, 5, 9})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := in.ToDict()
	want := map[string]any{
		"inner":  map[string]any{"x": uint8(1)},
		"status": map[string]any{"on": true, "level": uint64(3)},
		"list":   []any{map[string]any{"x": uint8(4)}, map[string]any{"x": uint8(5)}},
		"opt":    nil,
		"kind":   uint8(9),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("dict=%v\nwant=%v", got, want)
	}
}
