package server

import (
	"fmt"
	"net/http"
	"strings"
)

// encodeDeltas splits a text delta into SSE-safe frames. A literal newline
// cannot cross the "data: " line framing, so runs of newlines travel as
// their own frame of carriage returns: a run of n newlines becomes n+1 CRs,
// which the client decodes back to n newlines. Stray CRs in the text are
// dropped.
func encodeDeltas(delta string) []string {
	var frames []string
	var text strings.Builder

	flushText := func() {
		if text.Len() > 0 {
			frames = append(frames, text.String())
			text.Reset()
		}
	}

	i := 0
	for i < len(delta) {
		switch delta[i] {
		case '\n':
			run := 0
			for i < len(delta) && delta[i] == '\n' {
				run++
				i++
			}
			flushText()
			frames = append(frames, strings.Repeat("\r", run+1))
		case '\r':
			i++
		default:
			text.WriteByte(delta[i])
			i++
		}
	}
	flushText()
	return frames
}

// sseWriter emits "data: " framed deltas with a flush per frame.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// newSSEWriter prepares the response for event streaming. Returns an error
// when the underlying writer cannot flush.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &sseWriter{w: w, flusher: flusher}, nil
}

// Emit writes one text delta, encoding embedded newlines for the framing.
func (s *sseWriter) Emit(delta string) error {
	for _, frame := range encodeDeltas(delta) {
		if _, err := fmt.Fprintf(s.w, "data: %s\n\n", frame); err != nil {
			return err
		}
	}
	s.flusher.Flush()
	return nil
}
