// Package snapshot renders decoded instances as plain data: deterministic
// CBOR for storage and comparison, and indented JSON for people.
package snapshot

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/danmuck/binstruct/internal/wire"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	// Core deterministic encoding sorts map keys, so equal instances always
	// produce identical bytes.
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("snapshot: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("snapshot: CBOR decoder initialization failed: " + err.Error())
	}
}

// Encode snapshots the ToDict view of in.
func Encode(in *wire.Instance) ([]byte, error) {
	out, err := encMode.Marshal(in.ToDict())
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode %s: %w", in.Schema().Name(), err)
	}
	return out, nil
}

// Decode returns the plain data of a snapshot. Integers come back as uint64
// or int64 and byte fields as []byte.
func Decode(data []byte) (map[string]any, error) {
	var out map[string]any
	if err := decMode.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	return out, nil
}

// Diagnose returns RFC 8949 diagnostic notation for a snapshot.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}

// JSON renders in as indented JSON. Byte values are shown as hex strings.
func JSON(in *wire.Instance) ([]byte, error) {
	out, err := json.MarshalIndent(hexBytes(in.ToDict()), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("snapshot: json %s: %w", in.Schema().Name(), err)
	}
	return out, nil
}

func hexBytes(v any) any {
	switch x := v.(type) {
	case []byte:
		return hex.EncodeToString(x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = hexBytes(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = hexBytes(e)
		}
		return out
	}
	return v
}
