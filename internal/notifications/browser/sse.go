package browser

import (
	"fmt"
	"net/http"
)

// sseWriter writes Server-Sent Events frames.
type sseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	return &sseWriter{w: w, rc: http.NewResponseController(w)}
}

// sendEvent writes id: <id>\nevent: <type>\ndata: <data>\n\n.
func (s *sseWriter) sendEvent(id, event string, data []byte) error {
	if _, err := fmt.Fprintf(s.w, "id: %s\nevent: %s\ndata: %s\n\n", id, event, data); err != nil {
		return err
	}
	return s.rc.Flush()
}

// sendComment writes a comment line, used as keepalive.
func (s *sseWriter) sendComment(comment string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", comment); err != nil {
		return err
	}
	return s.rc.Flush()
}

// sendRetry sets the client reconnect delay.
func (s *sseWriter) sendRetry(milliseconds int) error {
	if _, err := fmt.Fprintf(s.w, "retry: %d\n\n", milliseconds); err != nil {
		return err
	}
	return s.rc.Flush()
}
