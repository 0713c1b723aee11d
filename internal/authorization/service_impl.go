package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/playpulse/clubsync/internal/identity"
	profiledomain "github.com/playpulse/clubsync/internal/profile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectChallenge  = "challenge"
	ObjectInvitation = "invitation"
	ObjectSubmission = "submission"
	ObjectTeam       = "team"
)

const (
	ActionChallengeCreate = "challenge.create"

	ActionInvitationCreate  = "invitation.create"
	ActionInvitationRespond = "invitation.respond"

	ActionSubmissionCreate = "submission.create"
	ActionSubmissionDelete = "submission.delete"
	ActionSubmissionLike   = "submission.like"

	ActionTeamCreate = "team.create"
)

const (
	roleVerifiedCoach = "role:coach_verified"
	roleCoach         = "role:coach"
	rolePlayer        = "role:player"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	Profiles profiledomain.Repository
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	profiles profiledomain.Repository
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		profiles: p.Profiles,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, userID string, object string, action string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	roleName, err := s.roleForUser(ctx, userID)
	if err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(roleName, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("user_id", userID),
			zap.String("role", roleName),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

// roleForUser maps the stored profile onto a policy subject. An approved
// coach gets the elevated subject; an unverified coach keeps the base coach
// subject, which today holds no grants.
func (s *ServiceImpl) roleForUser(ctx context.Context, userID string) (string, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return "", ErrForbidden
	}
	if profile.Role == string(identity.RoleCoach) {
		if profile.CoachStatus == string(identity.VerificationApproved) {
			return roleVerifiedCoach, nil
		}
		return roleCoach, nil
	}
	return rolePlayer, nil
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{roleVerifiedCoach, ObjectChallenge, ActionChallengeCreate},
		{roleVerifiedCoach, ObjectInvitation, ActionInvitationCreate},
		{roleVerifiedCoach, ObjectTeam, ActionTeamCreate},

		{rolePlayer, ObjectInvitation, ActionInvitationRespond},
		{rolePlayer, ObjectSubmission, ActionSubmissionCreate},
		{rolePlayer, ObjectSubmission, ActionSubmissionDelete},
		{rolePlayer, ObjectSubmission, ActionSubmissionLike},
	}

	groupings := [][]string{
		// A verified coach inherits everything the base coach subject holds.
		{roleVerifiedCoach, roleCoach},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	for _, grouping := range groupings {
		if _, err := enforcer.AddGroupingPolicy(grouping[0], grouping[1]); err != nil {
			return err
		}
	}
	return nil
}

var Module = fx.Module("authorization",
	fx.Provide(
		NewEnforcer,
		NewService,
	),
)
