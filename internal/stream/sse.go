package stream

import (
	"bufio"
	"net/http"
	"strconv"
	"time"
)

// SSEWriter writes events in text/event-stream framing.
type SSEWriter struct {
	w            http.ResponseWriter
	rc           *http.ResponseController
	writeTimeout time.Duration
}

// NewSSEWriter sends the stream headers. writeTimeout bounds each event
// write; zero disables the deadline.
func NewSSEWriter(w http.ResponseWriter, writeTimeout time.Duration) *SSEWriter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	return &SSEWriter{w: w, rc: http.NewResponseController(w), writeTimeout: writeTimeout}
}

func (s *SSEWriter) WriteEvent(ev Event) error {
	if s.writeTimeout > 0 {
		// Not every ResponseWriter supports deadlines; the write itself
		// still reports a broken transport.
		_ = s.rc.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	bw := bufio.NewWriter(s.w)
	bw.WriteString("id: ")
	bw.WriteString(strconv.FormatInt(ev.ID, 10))
	bw.WriteString("\nevent: ")
	bw.WriteString(ev.Name)
	if len(ev.Data) == 0 {
		bw.WriteString("\ndata:\n\n")
	} else {
		bw.WriteString("\ndata: ")
		bw.Write(ev.Data)
		bw.WriteString("\n\n")
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return s.rc.Flush()
}
