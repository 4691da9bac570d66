package exprlang

import (
	"errors"
	"hash/crc32"
	"testing"

	"github.com/danmuck/binstruct/internal/testutil/testlog"
	"github.com/danmuck/binstruct/internal/wire"
)

func sample(t *testing.T) *wire.Instance {
	t.Helper()
	status := wire.NewBitSchema("Status", 1).
		Field("ready", wire.Bit()).
		Field("mode", wire.Bits(3)).
		Field("count", wire.Bits(4)).
		MustBuild()
	s := wire.NewSchema("Sample").
		Field("status", wire.Packed(status)).
		Field("kind", wire.UInt8()).
		Field("length", wire.UInt16()).
		Field("payload", wire.Bytes(wire.Ref("length"))).
		MustBuild()
	in, err := s.Parse([]byte{0xA5, 0x07, 0x03, 0x00, 'a', 'b', 'c'})
	if err != nil {
		t.Fatalf("parse sample: %v", err)
	}
	return in
}

func TestPredicates(t *testing.T) {
	testlog.Start(t)
	in := sample(t)
	cases := []struct {
		src  string
		want bool
	}{
		{`kind == 7`, true},
		{`kind != 0x07`, false},
		{`status.ready == true`, true},
		{`status.mode == 2 && status.count >= 5`, true},
		{`kind < 3 || length <= 3`, true},
		{`(kind < 3 || length > 3) && kind == 7`, false},
		{`/kind > -1`, true},
		{`length == kind`, false},
		{`payload == "abc"`, true},
	}
	for _, tc := range cases {
		p, err := ParsePredicate(tc.src)
		if err != nil {
			t.Fatalf("%s: %v", tc.src, err)
		}
		got, err := p.Eval(in)
		if err != nil {
			t.Fatalf("%s: eval: %v", tc.src, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %t want %t", tc.src, got, tc.want)
		}
	}
}

func TestExpressions(t *testing.T) {
	testlog.Start(t)
	in := sample(t)
	cases := []struct {
		src  string
		want any
	}{
		{`len(payload) + 4`, 7},
		{`kind - 1 * 2`, 5},
		{`(kind - 1) * 2`, 12},
		{`kind / 2`, 3},
		{`-kind + 10`, 3},
		{`size("/")`, 7},
		{`size(payload)`, 3},
		{`1.5 * 2`, 3.0},
		{`checksum(payload, "crc32")`, crc32.ChecksumIEEE([]byte("abc"))},
	}
	for _, tc := range cases {
		e, err := ParseExpression(tc.src)
		if err != nil {
			t.Fatalf("%s: %v", tc.src, err)
		}
		got, err := e.Evaluate(in)
		if err != nil {
			t.Fatalf("%s: eval: %v", tc.src, err)
		}
		if !wire.Equal(got, tc.want) {
			t.Fatalf("%s: got %v (%T) want %v", tc.src, got, got, tc.want)
		}
	}
}

func TestSyntaxErrors(t *testing.T) {
	testlog.Start(t)
	for _, src := range []string{``, `kind ==`, `== 3`, `kind = 3`, `kind == 1 &&`, `(kind == 1`, `kind == -payload`} {
		if _, err := ParsePredicate(src); !errors.Is(err, ErrSyntax) {
			t.Fatalf("predicate %q: expected ErrSyntax, got %v", src, err)
		}
	}
	for _, src := range []string{`len(payload`, `checksum(payload)`, `len(payload, "x")`, `1 +`, `-"abc"`} {
		if _, err := ParseExpression(src); !errors.Is(err, ErrSyntax) {
			t.Fatalf("expression %q: expected ErrSyntax, got %v", src, err)
		}
	}
}

func TestCompiledExpressionDrivesSync(t *testing.T) {
	testlog.Start(t)
	s := wire.NewSchema("Msg").
		Field("length", wire.UInt8()).
		Field("body", wire.Bytes(wire.Ref("length"))).
		Sync(wire.SyncExpr("length", MustExpression(`len(body)`))).
		MustBuild()
	in := s.New().MustSet("body", []byte("hello"))
	out, err := in.ToBytes(wire.EncodeOptions{Sync: true})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if out[0] != 5 || len(out) != 6 {
		t.Fatalf("out=%x", out)
	}
}
