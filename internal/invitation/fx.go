package invitation

import (
	"github.com/playpulse/clubsync/internal/invitation/repository"
	"github.com/playpulse/clubsync/internal/invitation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invitation",
	fx.Provide(
		repository.New,
		service.New,
	),
)
