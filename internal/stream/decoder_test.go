package stream

import (
	"context"
	"io"
	"strings"
	"testing"
)

// chunkReader yields its chunks one Read call at a time, simulating a
// transport that controls its own chunk boundaries.
type chunkReader struct {
	chunks []string
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	if n < len(c.chunks[0]) {
		c.chunks[0] = c.chunks[0][n:]
	} else {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func collect(t *testing.T, d *Decoder) []string {
	t.Helper()
	var out []string
	for {
		delta, err := d.Next(context.Background())
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, delta)
	}
}

func TestDecoder_TwoReadsConcatenateInOrder(t *testing.T) {
	d := NewDecoder(&chunkReader{chunks: []string{"data: A\n", "data: B\n"}})

	deltas := collect(t, d)

	if got := strings.Join(deltas, ""); got != "AB" {
		t.Errorf("accumulated = %q, want %q", got, "AB")
	}
}

func TestDecoder_IgnoresNonDataLines(t *testing.T) {
	input := "event: message\ndata: hello\nid: 4\n\n: keep-alive\ndata: world\n"
	d := NewDecoder(strings.NewReader(input))

	deltas := collect(t, d)

	if len(deltas) != 2 || deltas[0] != "hello" || deltas[1] != "world" {
		t.Errorf("deltas = %q, want [hello world]", deltas)
	}
}

func TestDecoder_ReassemblesLineSplitAcrossChunks(t *testing.T) {
	d := NewDecoder(&chunkReader{chunks: []string{"da", "ta: he", "llo\ndata: bye\n"}})

	deltas := collect(t, d)

	if len(deltas) != 2 || deltas[0] != "hello" || deltas[1] != "bye" {
		t.Errorf("deltas = %q, want [hello bye]", deltas)
	}
}

func TestDecoder_FinalLineWithoutNewline(t *testing.T) {
	d := NewDecoder(strings.NewReader("data: tail"))

	deltas := collect(t, d)

	if len(deltas) != 1 || deltas[0] != "tail" {
		t.Errorf("deltas = %q, want [tail]", deltas)
	}
}

func TestDecoder_CancelledContextStopsDecoding(t *testing.T) {
	d := NewDecoder(strings.NewReader("data: never\n"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Next(ctx)

	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNormalizeDelta(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain", "plain"},
		{"\r", "\n"},
		{"\r\r", "\n"},
		{"\r\r\r", "\n\n"},
		{"a\rb", "ab"},
		{"a\r\rb", "ab"},
		{"mixed \r text\r", "mixed  text"},
	}
	for _, tc := range cases {
		if got := NormalizeDelta(tc.in); got != tc.want {
			t.Errorf("NormalizeDelta(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
