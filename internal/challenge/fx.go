package challenge

import (
	"github.com/playpulse/clubsync/internal/challenge/repository"
	"github.com/playpulse/clubsync/internal/challenge/service"
	"go.uber.org/fx"
)

var Module = fx.Module("challenge",
	fx.Provide(
		repository.New,
		service.New,
	),
)
