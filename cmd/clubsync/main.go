package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/playpulse/clubsync/internal/authorization"
	"github.com/playpulse/clubsync/internal/challenge"
	"github.com/playpulse/clubsync/internal/clock"
	"github.com/playpulse/clubsync/internal/config"
	"github.com/playpulse/clubsync/internal/eventbus"
	"github.com/playpulse/clubsync/internal/feed"
	"github.com/playpulse/clubsync/internal/identity"
	"github.com/playpulse/clubsync/internal/invitation"
	"github.com/playpulse/clubsync/internal/migration"
	"github.com/playpulse/clubsync/internal/notification"
	"github.com/playpulse/clubsync/internal/observability"
	"github.com/playpulse/clubsync/internal/profile"
	"github.com/playpulse/clubsync/internal/scheduler"
	"github.com/playpulse/clubsync/internal/server"
	"github.com/playpulse/clubsync/internal/team"
	"github.com/playpulse/clubsync/internal/watch"
	"github.com/playpulse/clubsync/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		eventbus.Module,
		watch.Module,
		migration.Module,

		// Functional domains
		identity.Module,
		profile.Module,
		notification.Module,
		challenge.Module,
		feed.Module,
		team.Module,
		invitation.Module,
		authorization.Module,
		scheduler.Module,

		// External surface
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
