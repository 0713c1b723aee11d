package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playpulse/clubsync/internal/authorization"
)

type createTeamRequest struct {
	Name string `json:"name"`
}

func (s *Server) CreateTeam(c *gin.Context) {
	coachID := principal(c)
	if err := s.authzSvc.Authorize(c.Request.Context(), coachID, authorization.ObjectTeam, authorization.ActionTeamCreate); err != nil {
		AbortWithError(c, err)
		return
	}

	var req createTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	team, err := s.teamSvc.Create(c.Request.Context(), coachID, req.Name)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, team)
}
