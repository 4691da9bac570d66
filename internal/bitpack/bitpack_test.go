package bitpack

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/binstruct/internal/testutil/testlog"
)

func TestUnpackMSBFirstNibbles(t *testing.T) {
	testlog.Start(t)
	l, err := NewLayout(1, MSBFirst, []int{4, 4})
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	got, err := l.Unpack([]byte{0xE3})
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if got[0] != 14 || got[1] != 3 {
		t.Fatalf("unexpected fields: %v", got)
	}
}

func TestUnpackLSBFirstTwoBytes(t *testing.T) {
	testlog.Start(t)
	l, err := NewLayout(2, LSBFirst, []int{3, 5, 8})
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	got, err := l.Unpack([]byte{0x12, 0x34})
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if got[0] != 2 || got[1] != 2 || got[2] != 0x34 {
		t.Fatalf("unexpected fields: %v", got)
	}
}

func TestPackRoundTrip(t *testing.T) {
	testlog.Start(t)
	for _, order := range []Order{MSBFirst, LSBFirst} {
		l, err := NewLayout(3, order, []int{1, 7, 12, 4})
		if err != nil {
			t.Fatalf("layout: %v", err)
		}
		in := []byte{0xA5, 0x0F, 0x3C}
		vals, err := l.Unpack(in)
		if err != nil {
			t.Fatalf("unpack: %v", err)
		}
		out, err := l.Pack(vals)
		if err != nil {
			t.Fatalf("pack: %v", err)
		}
		if !bytes.Equal(in, out) {
			t.Fatalf("order=%s mismatch in=%x out=%x", order, in, out)
		}
	}
}

func TestNewLayoutRejectsWidthMismatch(t *testing.T) {
	testlog.Start(t)
	if _, err := NewLayout(1, MSBFirst, []int{4, 6}); !errors.Is(err, ErrWidthSum) {
		t.Fatalf("expected ErrWidthSum, got %v", err)
	}
	if _, err := NewLayout(9, MSBFirst, []int{72}); !errors.Is(err, ErrContainerSize) {
		t.Fatalf("expected ErrContainerSize, got %v", err)
	}
	if _, err := NewLayout(1, MSBFirst, []int{0, 8}); !errors.Is(err, ErrWidth) {
		t.Fatalf("expected ErrWidth, got %v", err)
	}
}

func TestPackRejectsOverflow(t *testing.T) {
	testlog.Start(t)
	l, _ := NewLayout(1, MSBFirst, []int{4, 4})
	if _, err := l.Pack([]uint64{16, 0}); !errors.Is(err, ErrValueRange) {
		t.Fatalf("expected ErrValueRange, got %v", err)
	}
}

func TestUnpackMSBFirstTwoBytesLittleEndian(t *testing.T) {
	testlog.Start(t)
	l, err := NewLayout(2, MSBFirst, []int{4, 12})
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	raw := []byte{0x12, 0x34}
	got, err := l.Unpack(raw)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if got[0] != 0x3 || got[1] != 0x412 {
		t.Fatalf("unexpected fields: %x", got)
	}
	out, err := l.Pack(got)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if !bytes.Equal(out, raw) {
		t.Fatalf("pack=%x", out)
	}
}

func TestBigEndianContainer(t *testing.T) {
	testlog.Start(t)
	l, err := NewLayout(2, MSBFirst, []int{4, 12})
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	l = l.WithByteOrder(BigEndian)
	got, err := l.Unpack([]byte{0x12, 0x34})
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if got[0] != 0x1 || got[1] != 0x234 {
		t.Fatalf("unexpected fields: %x", got)
	}
	out, err := l.Pack([]uint64{0xA, 0x001})
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if !bytes.Equal(out, []byte{0xA0, 0x01}) {
		t.Fatalf("pack=%x", out)
	}
}

func TestFullWidthField(t *testing.T) {
	testlog.Start(t)
	l, err := NewLayout(8, MSBFirst, []int{64})
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	raw := []byte{0xFF, 0, 0, 0, 0, 0, 0, 0x01}
	got, err := l.Unpack(raw)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if got[0] != 0x01000000000000FF {
		t.Fatalf("unexpected value %x", got[0])
	}
	got, err = l.WithByteOrder(BigEndian).Unpack(raw)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if got[0] != 0xFF00000000000001 {
		t.Fatalf("unexpected big-endian value %x", got[0])
	}
}

func TestParseOrder(t *testing.T) {
	testlog.Start(t)
	for raw, want := range map[string]Order{"": MSBFirst, "MSB": MSBFirst, "lsb_first": LSBFirst} {
		got, err := ParseOrder(raw)
		if err != nil || got != want {
			t.Fatalf("ParseOrder(%q)=%v,%v", raw, got, err)
		}
	}
	if _, err := ParseOrder("middle"); err == nil {
		t.Fatalf("expected error")
	}
}
