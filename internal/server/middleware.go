package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/playpulse/clubsync/internal/observability/obsctx"
)

// Authentication happens upstream; the gateway injects the verified subject.
const (
	HeaderUserID     = "X-User-Id"
	contextUserIDKey = "user_id"
)

func (s *Server) PrincipalRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextUserIDKey, userID)
		ctx := obsctx.WithUserID(c.Request.Context(), userID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func principal(c *gin.Context) string {
	return c.GetString(contextUserIDKey)
}
