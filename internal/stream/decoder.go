// Package stream decodes the tutoring backend's chunked text protocol into
// content deltas. Frames follow the Server-Sent-Events convention: each
// "data: <text>" line carries one delta; everything else (event names, ids,
// keep-alive comments, blank separators) is ignored.
package stream

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// dataPrefix marks a content-bearing line.
const dataPrefix = "data: "

// Decoder turns a byte stream into a sequence of text deltas. It buffers
// input through bufio, so a "data: " line split across two transport reads
// is reassembled before parsing.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder wraps the given reader. The caller retains ownership of the
// underlying stream and is responsible for closing it.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next normalized delta. It skips non-data lines, returns
// io.EOF when the transport closes, and returns ctx.Err() once the context
// is cancelled — cancellation ends decoding but is not a protocol error.
func (d *Decoder) Next(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		line, err := d.r.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		atEOF := err == io.EOF

		trimmed := strings.TrimSuffix(line, "\n")
		if delta, ok := strings.CutPrefix(trimmed, dataPrefix); ok {
			return NormalizeDelta(delta), nil
		}
		if atEOF {
			// Unparseable trailing bytes are ignorable, never an error.
			return "", io.EOF
		}
	}
}

// NormalizeDelta applies the backend's carriage-return convention: a delta
// consisting solely of one or more \r runes signals a paragraph break and
// becomes count-1 newlines (minimum one); any other delta has embedded \r
// stripped outright.
func NormalizeDelta(delta string) string {
	if delta == "" {
		return ""
	}
	if onlyCarriageReturns(delta) {
		n := len(delta) - 1
		if n < 1 {
			n = 1
		}
		return strings.Repeat("\n", n)
	}
	return strings.ReplaceAll(delta, "\r", "")
}

func onlyCarriageReturns(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '\r' {
			return false
		}
	}
	return true
}
