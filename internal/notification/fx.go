package notification

import (
	"github.com/playpulse/clubsync/internal/notification/repository"
	"github.com/playpulse/clubsync/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification",
	fx.Provide(
		repository.New,
		repository.NewPreferences,
		service.New,
	),
)
