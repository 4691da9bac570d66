// Package checksum maps algorithm names to digest functions used by checksum
// expressions and sync rules.
package checksum

import (
	"errors"
	"fmt"
	"hash/adler32"
	"hash/crc32"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
	"github.com/zeebo/xxh3"
)

var ErrUnknownAlgorithm = errors.New("checksum: unknown algorithm")

// Func computes a digest. Integer-width algorithms return uint32 or uint64;
// cryptographic ones return the digest bytes.
type Func func(data []byte) any

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

var registry = map[string]Func{
	"crc32":  func(b []byte) any { return crc32.ChecksumIEEE(b) },
	"crc32c": func(b []byte) any { return crc32.Checksum(b, castagnoli) },
	"adler32": func(b []byte) any {
		return adler32.Checksum(b)
	},
	"xxhash64": func(b []byte) any { return xxhash.Sum64(b) },
	"xxh3":     func(b []byte) any { return xxh3.Hash(b) },
	"blake3": func(b []byte) any {
		sum := blake3.Sum256(b)
		return sum[:]
	},
}

func Lookup(name string) (Func, error) {
	fn, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
	return fn, nil
}

func Compute(name string, data []byte) (any, error) {
	fn, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return fn(data), nil
}

// Names lists registered algorithms in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
