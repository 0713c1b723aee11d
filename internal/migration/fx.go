package migration

import (
	challengedomain "github.com/playpulse/clubsync/internal/challenge/domain"
	"github.com/playpulse/clubsync/internal/config"
	feeddomain "github.com/playpulse/clubsync/internal/feed/domain"
	invitationdomain "github.com/playpulse/clubsync/internal/invitation/domain"
	notificationdomain "github.com/playpulse/clubsync/internal/notification/domain"
	profiledomain "github.com/playpulse/clubsync/internal/profile/domain"
	"github.com/playpulse/clubsync/internal/seed"
	teamdomain "github.com/playpulse/clubsync/internal/team/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Non-postgres deployments (dev sqlite) fall back to schema sync.
			if err := conn.AutoMigrate(
				&profiledomain.Profile{},
				&teamdomain.Team{},
				&teamdomain.Member{},
				&challengedomain.Challenge{},
				&feeddomain.Submission{},
				&feeddomain.Like{},
				&invitationdomain.Invitation{},
				&notificationdomain.Record{},
				&notificationdomain.Preference{},
			); err != nil {
				return err
			}
		}

		if cfg.SeedDemoData {
			return seed.EnsureDemoClub(conn)
		}
		return nil
	}),
)
