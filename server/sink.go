package server

import (
	"encoding/json"
	"net/http"

	"github.com/inkwell-ai/inkwell/events"
)

// ndjsonSink writes stream events as newline-delimited JSON, flushing after
// every event so clients see text as it is generated.
type ndjsonSink struct {
	w       http.ResponseWriter
	enc     *json.Encoder
	flusher http.Flusher
	started bool
}

func newNDJSONSink(w http.ResponseWriter) *ndjsonSink {
	flusher, _ := w.(http.Flusher)
	return &ndjsonSink{
		w:       w,
		enc:     json.NewEncoder(w),
		flusher: flusher,
	}
}

// Send writes one event as a JSON line. The streaming headers go out with
// the first event; Encode appends the newline.
func (s *ndjsonSink) Send(event events.Event) error {
	if !s.started {
		s.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.started = true
	}
	if err := s.enc.Encode(event); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

var _ events.Sink = (*ndjsonSink)(nil)
