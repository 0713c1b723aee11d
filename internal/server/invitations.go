package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/playpulse/clubsync/internal/authorization"
	invitationdomain "github.com/playpulse/clubsync/internal/invitation/domain"
)

type createInvitationRequest struct {
	PlayerID string `json:"player_id"`
	TeamID   string `json:"team_id"`
}

func (s *Server) CreateInvitation(c *gin.Context) {
	coachID := principal(c)
	if err := s.authzSvc.Authorize(c.Request.Context(), coachID, authorization.ObjectInvitation, authorization.ActionInvitationCreate); err != nil {
		AbortWithError(c, err)
		return
	}

	var req createInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	teamID, err := snowflake.ParseString(req.TeamID)
	if err != nil || teamID == 0 || req.PlayerID == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	invitation, err := s.invitationSvc.Create(c.Request.Context(), invitationdomain.CreateRequest{
		CoachID:  coachID,
		PlayerID: req.PlayerID,
		TeamID:   teamID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invitation)
}

func (s *Server) ListInvitations(c *gin.Context) {
	status := invitationdomain.Status(c.Query("status"))
	invitations, err := s.invitationSvc.ListByPlayer(c.Request.Context(), principal(c), status)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invitations": invitations})
}

type respondInvitationRequest struct {
	Accept *bool `json:"accept"`
}

func (s *Server) RespondInvitation(c *gin.Context) {
	playerID := principal(c)
	if err := s.authzSvc.Authorize(c.Request.Context(), playerID, authorization.ObjectInvitation, authorization.ActionInvitationRespond); err != nil {
		AbortWithError(c, err)
		return
	}

	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil || id == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}
	var req respondInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Accept == nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	invitation, err := s.invitationSvc.Respond(c.Request.Context(), id, playerID, *req.Accept)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, invitation)
}
