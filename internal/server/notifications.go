package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	notificationdomain "github.com/playpulse/clubsync/internal/notification/domain"
	"github.com/playpulse/clubsync/pkg/db/pagination"
)

func (s *Server) ListNotifications(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	resp, err := s.notificationSvc.List(c.Request.Context(), notificationdomain.ListRequest{
		UserID: principal(c),
		Page:   page,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) MarkNotificationRead(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := s.notificationSvc.MarkRead(c.Request.Context(), principal(c), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) MarkAllNotificationsRead(c *gin.Context) {
	if err := s.notificationSvc.MarkAllRead(c.Request.Context(), principal(c)); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type setPreferenceRequest struct {
	Type    string `json:"type"`
	Enabled *bool  `json:"enabled"`
}

func (s *Server) SetNotificationPreference(c *gin.Context) {
	var req setPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	err := s.notificationSvc.SetPreference(
		c.Request.Context(),
		principal(c),
		notificationdomain.Type(req.Type),
		*req.Enabled,
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// StreamUnreadCount pushes the unread badge count over SSE whenever the
// user's notifications change.
func (s *Server) StreamUnreadCount(c *gin.Context) {
	handle := s.notificationSvc.WatchUnread(c.Request.Context(), principal(c))
	defer handle.Cancel()

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
		case snapshot, open := <-handle.Snapshots():
			if !open {
				return
			}
			if snapshot.Err != nil {
				return
			}
			var count int64
			if len(snapshot.Items) > 0 {
				count = snapshot.Items[0]
			}
			if err := writeEvent(writer, gin.H{"unread": count}); err != nil {
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
