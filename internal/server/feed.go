package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetFeed(c *gin.Context) {
	items, err := s.feedProjector.Snapshot(c.Request.Context(), principal(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// StreamFeed pushes the merged feed over SSE: authoritative snapshots overlaid
// with this instance's optimistic create/delete events.
func (s *Server) StreamFeed(c *gin.Context) {
	feed := s.feedProjector.Open(c.Request.Context(), principal(c))
	defer feed.Cancel()

	flusher, ok := openEventStream(c)
	if !ok {
		return
	}

	writer := c.Writer
	ctx := c.Request.Context()
	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case items, open := <-feed.Updates():
			if !open {
				return
			}
			if err := writeEvent(writer, gin.H{"items": items}); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if err := writeHeartbeat(writer); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
