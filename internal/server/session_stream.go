package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playpulse/clubsync/internal/eventbus"
	"github.com/playpulse/clubsync/internal/identity"
)

// SignIn announces the authenticated principal to the identity resolver. The
// guest flag flips before the role projection starts, so no consumer ever
// sees a signed-in session with a stale role.
func (s *Server) SignIn(c *gin.Context) {
	s.bus.Publish(eventbus.TopicAuthState, identity.AuthState{UserID: principal(c)})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) SignOut(c *gin.Context) {
	s.bus.Publish(eventbus.TopicAuthState, identity.AuthState{})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// StreamSession pushes complete session snapshots over SSE, starting with the
// current one.
func (s *Server) StreamSession(c *gin.Context) {
	current, subscription := s.sessions.Subscribe()
	defer subscription.Close()

	flusher, ok := openEventStream(c)
	if !ok {
		return
	}

	writer := c.Writer
	if err := writeEvent(writer, current); err != nil {
		return
	}
	flusher.Flush()

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case session, open := <-subscription.Sessions():
			if !open {
				return
			}
			if err := writeEvent(writer, session); err != nil {
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
