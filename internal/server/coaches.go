package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ApproveCoach(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := s.profileSvc.ApproveCoach(c.Request.Context(), userID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type rejectCoachRequest struct {
	Reason   string `json:"reason"`
	Category string `json:"category"`
}

func (s *Server) RejectCoach(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		AbortWithError(c, invalidRequestError())
		return
	}
	var req rejectCoachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := s.profileSvc.RejectCoach(c.Request.Context(), userID, req.Reason, req.Category); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
