package frame

// reader.go cleans raw bytes before they reach the CSV parser.
//
// Statistical agency exports are frequently saved by spreadsheet tools:
//   - a UTF-8 BOM (0xEF 0xBB 0xBF) prefixes the first header
//   - stray Latin-1 bytes appear in country names
//
// newCleanReader strips the BOM and replaces each invalid UTF-8 byte with '?'.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// newCleanReader wraps r with BOM removal and UTF-8 sanitization.
// The BOM must be removed first; otherwise its bytes would be kept as a
// valid rune and end up in the first column name.
func newCleanReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return &sanitizingReader{src: br}
}

// sanitizingReader decodes runes from src and re-encodes them, writing '?'
// for every byte that does not start a valid UTF-8 sequence.
type sanitizingReader struct {
	src *bufio.Reader

	// Bytes of an encoded rune that did not fit in the previous Read.
	pending []byte
}

func (s *sanitizingReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(s.pending) > 0 {
			c := copy(p[n:], s.pending)
			s.pending = s.pending[c:]
			n += c
			continue
		}

		r, size, err := s.src.ReadRune()
		if err != nil {
			if n > 0 && err == io.EOF {
				return n, nil
			}
			return n, err
		}

		if r == utf8.RuneError && size == 1 {
			p[n] = '?'
			n++
			continue
		}

		var enc [utf8.UTFMax]byte
		w := utf8.EncodeRune(enc[:], r)
		c := copy(p[n:], enc[:w])
		n += c
		if c < w {
			s.pending = append(s.pending[:0], enc[c:w]...)
		}
	}
	return n, nil
}
