package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playpulse/clubsync/internal/authorization"
	challengedomain "github.com/playpulse/clubsync/internal/challenge/domain"
	feeddomain "github.com/playpulse/clubsync/internal/feed/domain"
	invitationdomain "github.com/playpulse/clubsync/internal/invitation/domain"
	notificationdomain "github.com/playpulse/clubsync/internal/notification/domain"
	profiledomain "github.com/playpulse/clubsync/internal/profile/domain"
	teamdomain "github.com/playpulse/clubsync/internal/team/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, challengedomain.ErrNotVerifiedCoach),
		errors.Is(err, invitationdomain.ErrNotInvitee),
		errors.Is(err, invitationdomain.ErrNotTeamOwner):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, invitationdomain.ErrAlreadyResolved):
		return http.StatusConflict, errorPayload{
			Type:    "already_resolved",
			Message: "invitation already resolved",
		}
	case errors.Is(err, feeddomain.ErrChallengeEnded),
		errors.Is(err, gorm.ErrDuplicatedKey):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isValidationSentinel(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationSentinel(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, challengedomain.ErrInvalidTitle),
		errors.Is(err, challengedomain.ErrInvalidDeadline),
		errors.Is(err, feeddomain.ErrInvalidMedia),
		errors.Is(err, teamdomain.ErrInvalidName),
		errors.Is(err, notificationdomain.ErrInvalidType),
		errors.Is(err, notificationdomain.ErrInvalidRecipient),
		errors.Is(err, profiledomain.ErrInvalidUser):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, challengedomain.ErrNotFound),
		errors.Is(err, feeddomain.ErrNotFound),
		errors.Is(err, invitationdomain.ErrNotFound),
		errors.Is(err, notificationdomain.ErrNotFound),
		errors.Is(err, profiledomain.ErrNotFound),
		errors.Is(err, teamdomain.ErrNotFound):
		return true
	default:
		return false
	}
}

// classifyErrorForLog buckets request errors for the access log.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if status >= 500 {
		return "server", payload.Type
	}
	return "client", payload.Type
}
