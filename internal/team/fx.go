package team

import (
	"github.com/playpulse/clubsync/internal/team/repository"
	"github.com/playpulse/clubsync/internal/team/service"
	"go.uber.org/fx"
)

var Module = fx.Module("team",
	fx.Provide(
		repository.New,
		service.New,
	),
)
