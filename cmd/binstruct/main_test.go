package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/binstruct/internal/protocol"
	"github.com/danmuck/binstruct/internal/protocol/frame"
	"github.com/danmuck/binstruct/internal/protocol/tlv"
	"github.com/danmuck/binstruct/internal/testutil/testlog"
	"github.com/danmuck/binstruct/internal/wire"
)

const recordSchema = "testdata/record.toml"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCheckListsDefinitions(t *testing.T) {
	testlog.Start(t)
	out, err := run(t, "check", "--schema", recordSchema)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out, "1 definitions") || !strings.Contains(out, "Schema(Record, 3 fields)") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestCheckWithoutSchemas(t *testing.T) {
	testlog.Start(t)
	if _, err := run(t, "check"); err == nil {
		t.Fatalf("expected error when no schema is given or configured")
	}
}

func TestParseFormats(t *testing.T) {
	testlog.Start(t)
	out, err := run(t, "parse", "--schema", recordSchema, "--type", "Record", "--hex", "01 0003 616263")
	if err != nil {
		t.Fatalf("parse json: %v", err)
	}
	for _, want := range []string{`"body": "616263"`, `"kind": 1`, `"length": 3`} {
		if !strings.Contains(out, want) {
			t.Fatalf("json output missing %s:\n%s", want, out)
		}
	}

	out, err = run(t, "parse", "--schema", recordSchema, "--type", "Record", "--hex", "01:00:03:61:62:63", "--format", "diag")
	if err != nil {
		t.Fatalf("parse diag: %v", err)
	}
	if !strings.Contains(out, "h'616263'") {
		t.Fatalf("diag output missing body bytes:\n%s", out)
	}

	if _, err := run(t, "parse", "--schema", recordSchema, "--type", "Record", "--hex", "010003616263", "--format", "xml"); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestParseTrailingAndValidate(t *testing.T) {
	testlog.Start(t)
	_, err := run(t, "parse", "--schema", recordSchema, "--type", "Record", "--hex", "010001aaff")
	if !errors.Is(err, wire.ErrTrailingData) {
		t.Fatalf("expected trailing data error, got %v", err)
	}
	if _, err := run(t, "parse", "--schema", recordSchema, "--type", "Record", "--hex", "010001aaff", "--allow-trailing"); err != nil {
		t.Fatalf("allow-trailing parse: %v", err)
	}

	out, err := run(t, "parse", "--schema", recordSchema, "--type", "Record", "--hex", "090000", "--validate")
	if !errors.Is(err, wire.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(out, "invalid:") {
		t.Fatalf("validation failures not printed:\n%s", out)
	}
}

func TestParseInputErrors(t *testing.T) {
	testlog.Start(t)
	if _, err := run(t, "parse", "--schema", recordSchema, "--type", "Record"); err == nil {
		t.Fatalf("expected missing input error")
	}
	if _, err := run(t, "parse", "--schema", recordSchema, "--type", "Record", "--hex", "zz"); err == nil {
		t.Fatalf("expected bad hex error")
	}
	if _, err := run(t, "parse", "--schema", recordSchema, "--type", "Missing", "--hex", "00"); err == nil {
		t.Fatalf("expected unknown type error")
	}
}

func TestRoundtrip(t *testing.T) {
	testlog.Start(t)
	out, err := run(t, "roundtrip", "--schema", recordSchema, "--type", "Record", "--hex", "020002beef", "--sync")
	if err != nil {
		t.Fatalf("roundtrip: %v", err)
	}
	if !strings.Contains(out, "ok Record 5 bytes") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestMessageDecodesFrame(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	msg := &protocol.Message{
		Header: frame.Header{MessageID: 7, MessageType: 2},
		Fields: []protocol.Field{tlv.String(2, "run"), tlv.Bytes(9, []byte{0xab})},
	}
	if err := protocol.Encode(&buf, msg, frame.DefaultLimits()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := run(t, "message", "--hex", hex.EncodeToString(buf.Bytes()))
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	for _, want := range []string{"message id=7 type=2", "field 2 type=6 value=run", "field 9 type=7 value=ab"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if _, err := run(t, "message", "--hex", hex.EncodeToString(buf.Bytes()), "--max-payload", "2"); !errors.Is(err, frame.ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestInitConfigThenUseIt(t *testing.T) {
	testlog.Start(t)
	prevEndian := wire.DefaultEndian()
	prevTrailing := wire.DefaultTrailingPolicy()
	t.Cleanup(func() {
		wire.SetDefaultEndian(prevEndian)
		wire.SetDefaultTrailingPolicy(prevTrailing)
	})

	path := filepath.Join(t.TempDir(), "binstruct.toml")
	if _, err := run(t, "init-config", path); err != nil {
		t.Fatalf("init-config: %v", err)
	}
	if _, err := run(t, "init-config", path); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if _, err := run(t, "--config", path, "check", "--schema", recordSchema); err != nil {
		t.Fatalf("check with config: %v", err)
	}
}
