package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/felixgeelhaar/auditd/internal/errors"
)

// Writer writes events to one HTTP response as an SSE stream. It is safe for
// concurrent use; frames never interleave.
type Writer struct {
	mu  sync.Mutex
	w   http.ResponseWriter
	rc  *http.ResponseController
	err error
}

// NewSSEWriter sends the event-stream headers and flushes them. It fails if
// the response cannot be flushed, since buffered events would defeat the
// purpose of streaming.
func NewSSEWriter(w http.ResponseWriter) (*Writer, error) {
	rc := http.NewResponseController(w)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	// Audits outlive the server's write timeout. Recorders and some
	// middleware don't support deadlines, which is fine.
	_ = rc.SetWriteDeadline(time.Time{})

	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStreamOpen, "response does not support streaming", err)
	}

	return &Writer{w: w, rc: rc}, nil
}

// Send writes ev as one data frame and flushes it.
func (s *Writer) Send(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	return s.write("data: " + string(payload) + "\n\n")
}

// Comment writes an SSE comment line that clients ignore. The coordinator
// uses it as a keep-alive so idle proxies don't close quiet runs.
func (s *Writer) Comment(text string) error {
	return s.write(": " + text + "\n\n")
}

func (s *Writer) write(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	if _, err := fmt.Fprint(s.w, frame); err != nil {
		s.err = err
		return err
	}
	if err := s.rc.Flush(); err != nil {
		s.err = err
		return err
	}
	return nil
}
