package authorization

import (
	"context"
	"errors"
)

type Service interface {
	// Authorize resolves the actor's effective role and enforces the
	// object/action pair against the policy set.
	Authorize(ctx context.Context, userID string, object string, action string) error
}

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)
