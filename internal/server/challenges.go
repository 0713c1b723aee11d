package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playpulse/clubsync/internal/authorization"
	challengedomain "github.com/playpulse/clubsync/internal/challenge/domain"
)

type createChallengeRequest struct {
	Title     string    `json:"title"`
	MonthName string    `json:"month_name"`
	EndsAt    time.Time `json:"ends_at"`
}

func (s *Server) CreateChallenge(c *gin.Context) {
	coachID := principal(c)
	if err := s.authzSvc.Authorize(c.Request.Context(), coachID, authorization.ObjectChallenge, authorization.ActionChallengeCreate); err != nil {
		AbortWithError(c, err)
		return
	}

	var req createChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	challenge, err := s.challengeSvc.Create(c.Request.Context(), challengedomain.CreateRequest{
		CoachID:   coachID,
		Title:     req.Title,
		MonthName: req.MonthName,
		EndsAt:    req.EndsAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, challenge)
}

func (s *Server) ListChallenges(c *gin.Context) {
	status := challengedomain.Status(c.Query("status"))
	challenges, err := s.challengeSvc.List(c.Request.Context(), status)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"challenges": challenges})
}
