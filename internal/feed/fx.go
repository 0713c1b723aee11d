package feed

import (
	"github.com/playpulse/clubsync/internal/feed/domain"
	"github.com/playpulse/clubsync/internal/feed/projector"
	"github.com/playpulse/clubsync/internal/feed/repository"
	"github.com/playpulse/clubsync/internal/feed/service"
	notificationdomain "github.com/playpulse/clubsync/internal/notification/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("feed",
	fx.Provide(
		repository.New,
		service.New,
		projector.New,
		func(repo domain.Repository) notificationdomain.RecipientSource { return repo },
	),
)
