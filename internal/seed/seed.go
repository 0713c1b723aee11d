package seed

import (
	"time"

	"github.com/bwmarrin/snowflake"
	challengedomain "github.com/playpulse/clubsync/internal/challenge/domain"
	"github.com/playpulse/clubsync/internal/identity"
	profiledomain "github.com/playpulse/clubsync/internal/profile/domain"
	teamdomain "github.com/playpulse/clubsync/internal/team/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Fixed ids keep the seed idempotent across restarts.
const (
	demoTeamID      = snowflake.ID(1001)
	demoChallengeID = snowflake.ID(2001)

	demoCoachID  = "demo-coach"
	demoPlayerID = "demo-player"
)

// EnsureDemoClub provisions a verified coach, a team, a player, and an open
// challenge so a fresh local instance has something to look at.
func EnsureDemoClub(conn *gorm.DB) error {
	now := time.Now().UTC()

	profiles := []profiledomain.Profile{
		{
			UserID:      demoCoachID,
			Role:        string(identity.RoleCoach),
			CoachStatus: string(identity.VerificationApproved),
			TeamID:      demoTeamID,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			UserID:      demoPlayerID,
			Role:        string(identity.RolePlayer),
			CoachStatus: string(identity.VerificationPending),
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
	for i := range profiles {
		if err := conn.Clauses(clause.OnConflict{DoNothing: true}).Create(&profiles[i]).Error; err != nil {
			return err
		}
	}

	team := teamdomain.Team{
		ID:        demoTeamID,
		CoachID:   demoCoachID,
		Name:      "Demo United",
		Slug:      "demo-united",
		CreatedAt: now,
	}
	if err := conn.Clauses(clause.OnConflict{DoNothing: true}).Create(&team).Error; err != nil {
		return err
	}

	challenge := challengedomain.Challenge{
		ID:        demoChallengeID,
		CoachID:   demoCoachID,
		Title:     "Juggling March",
		MonthName: "March",
		Status:    string(challengedomain.StatusOpen),
		EndsAt:    now.AddDate(0, 1, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return conn.Clauses(clause.OnConflict{DoNothing: true}).Create(&challenge).Error
}
