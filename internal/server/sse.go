package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// sseStream writes agent events to an HTTP client as server-sent
// events: one "data: <json>" frame per event, flushed immediately,
// connection kept open until the terminal event is written.
type sseStream struct {
	w     io.Writer
	flush func()
	mu    sync.Mutex
}

func newSSEStream(w http.ResponseWriter) *sseStream {
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")

	var flushFn func()
	if f, ok := w.(http.Flusher); ok {
		flushFn = f.Flush
	}
	return &sseStream{w: w, flush: flushFn}
}

// send serializes one event as a data frame.
func (s *sseStream) send(evt any) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal SSE payload: %w", err)
	}
	return s.write([]byte("data: " + string(body) + "\n\n"))
}

func (s *sseStream) write(data []byte) error {
	if s == nil || s.w == nil {
		return errors.New("sse stream writer not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(data); err != nil {
		return err
	}
	if s.flush != nil {
		s.flush()
	}
	return nil
}
