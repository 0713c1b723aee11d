package profile

import (
	"github.com/playpulse/clubsync/internal/identity"
	"github.com/playpulse/clubsync/internal/profile/domain"
	"github.com/playpulse/clubsync/internal/profile/repository"
	"github.com/playpulse/clubsync/internal/profile/service"
	"go.uber.org/fx"
)

var Module = fx.Module("profile",
	fx.Provide(
		repository.New,
		service.New,
		func(repo domain.Repository) identity.RoleSource { return repo },
	),
)
