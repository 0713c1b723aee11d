package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const sseHeartbeatInterval = 15 * time.Second

// openEventStream sets SSE headers and returns the flusher, or reports that
// the connection cannot stream.
func openEventStream(c *gin.Context) (http.Flusher, bool) {
	writer := c.Writer
	headers := writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, ok := writer.(http.Flusher)
	if !ok {
		AbortWithError(c, ErrServiceUnavailable)
		return nil, false
	}

	if _, err := io.WriteString(writer, "retry: 2000\n\n"); err != nil {
		return nil, false
	}
	flusher.Flush()
	return flusher, true
}

func writeEvent(w io.Writer, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

func writeHeartbeat(w io.Writer) error {
	_, err := io.WriteString(w, ": heartbeat\n\n")
	return err
}
