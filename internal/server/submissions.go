package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/playpulse/clubsync/internal/authorization"
	feeddomain "github.com/playpulse/clubsync/internal/feed/domain"
)

type createSubmissionRequest struct {
	ChallengeID string `json:"challenge_id"`
	MediaURL    string `json:"media_url"`
}

func (s *Server) CreateSubmission(c *gin.Context) {
	ownerID := principal(c)
	if err := s.authzSvc.Authorize(c.Request.Context(), ownerID, authorization.ObjectSubmission, authorization.ActionSubmissionCreate); err != nil {
		AbortWithError(c, err)
		return
	}

	var req createSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	challengeID, err := snowflake.ParseString(req.ChallengeID)
	if err != nil || challengeID == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.feedSvc.CreateSubmission(c.Request.Context(), feeddomain.CreateSubmissionRequest{
		OwnerID:     ownerID,
		ChallengeID: challengeID,
		MediaURL:    req.MediaURL,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (s *Server) DeleteSubmission(c *gin.Context) {
	ownerID := principal(c)
	if err := s.authzSvc.Authorize(c.Request.Context(), ownerID, authorization.ObjectSubmission, authorization.ActionSubmissionDelete); err != nil {
		AbortWithError(c, err)
		return
	}

	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil || id == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := s.feedSvc.DeleteSubmission(c.Request.Context(), id, ownerID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) LikeSubmission(c *gin.Context) {
	userID := principal(c)
	if err := s.authzSvc.Authorize(c.Request.Context(), userID, authorization.ObjectSubmission, authorization.ActionSubmissionLike); err != nil {
		AbortWithError(c, err)
		return
	}

	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil || id == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := s.feedSvc.Like(c.Request.Context(), id, userID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
