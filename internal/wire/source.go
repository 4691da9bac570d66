package wire

import (
	"bytes"
	"io"

	"github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
)

// Source is the read cursor handed to Field.Parse.
type Source struct {
	stream *kaitai.Stream
	size   int
}

func NewSource(data []byte) *Source {
	return &Source{stream: kaitai.NewStream(bytes.NewReader(data)), size: len(data)}
}

func (s *Source) Pos() int {
	pos, err := s.stream.Pos()
	if err != nil {
		return s.size
	}
	return int(pos)
}

func (s *Source) Remaining() int {
	return s.size - s.Pos()
}

// Read consumes exactly n bytes or fails without consuming anything.
func (s *Source) Read(n int) ([]byte, error) {
	if n < 0 {
		return nil, &UnexpectedEOFError{Expected: n, Got: 0}
	}
	if rem := s.Remaining(); rem < n {
		return nil, &UnexpectedEOFError{Expected: n, Got: rem}
	}
	if n == 0 {
		return []byte{}, nil
	}
	return s.stream.ReadBytes(n)
}

// ReadUntil consumes bytes up to and including term, returning them without
// the terminator. At most max bytes are scanned when max > 0.
func (s *Source) ReadUntil(term byte, max int) ([]byte, error) {
	if max <= 0 {
		rem := s.Remaining()
		out, err := s.stream.ReadBytesTerm(term, false, true, true)
		if err != nil {
			return nil, &UnexpectedEOFError{Expected: rem + 1, Got: rem}
		}
		return out, nil
	}
	start := s.Pos()
	limit := s.Remaining()
	if max < limit {
		limit = max
	}
	peek, err := s.stream.ReadBytes(limit)
	if err != nil {
		return nil, err
	}
	idx := bytes.IndexByte(peek, term)
	if _, err := s.stream.Seek(int64(start), io.SeekStart); err != nil {
		return nil, err
	}
	if idx < 0 {
		return nil, &UnexpectedEOFError{Expected: limit + 1, Got: limit}
	}
	out, err := s.stream.ReadBytes(idx + 1)
	if err != nil {
		return nil, err
	}
	return out[:idx], nil
}
