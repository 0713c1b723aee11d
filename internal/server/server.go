package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/playpulse/clubsync/internal/authorization"
	challengedomain "github.com/playpulse/clubsync/internal/challenge/domain"
	"github.com/playpulse/clubsync/internal/config"
	"github.com/playpulse/clubsync/internal/eventbus"
	feeddomain "github.com/playpulse/clubsync/internal/feed/domain"
	feedprojector "github.com/playpulse/clubsync/internal/feed/projector"
	"github.com/playpulse/clubsync/internal/identity"
	invitationdomain "github.com/playpulse/clubsync/internal/invitation/domain"
	notificationdomain "github.com/playpulse/clubsync/internal/notification/domain"
	"github.com/playpulse/clubsync/internal/observability"
	obslogger "github.com/playpulse/clubsync/internal/observability/logger"
	obsmetrics "github.com/playpulse/clubsync/internal/observability/metrics"
	obstracing "github.com/playpulse/clubsync/internal/observability/tracing"
	profiledomain "github.com/playpulse/clubsync/internal/profile/domain"
	teamdomain "github.com/playpulse/clubsync/internal/team/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	genID           *snowflake.Node
	bus             *eventbus.Bus
	sessions        *identity.Store
	authzSvc        authorization.Service
	profileSvc      profiledomain.Service
	challengeSvc    challengedomain.Service
	feedSvc         feeddomain.Service
	feedProjector   *feedprojector.Projector
	teamSvc         teamdomain.Service
	invitationSvc   invitationdomain.Service
	notificationSvc notificationdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	GenID           *snowflake.Node
	Bus             *eventbus.Bus
	Sessions        *identity.Store
	AuthzSvc        authorization.Service
	ProfileSvc      profiledomain.Service
	ChallengeSvc    challengedomain.Service
	FeedSvc         feeddomain.Service
	FeedProjector   *feedprojector.Projector
	TeamSvc         teamdomain.Service
	InvitationSvc   invitationdomain.Service
	NotificationSvc notificationdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		genID:           p.GenID,
		bus:             p.Bus,
		sessions:        p.Sessions,
		authzSvc:        p.AuthzSvc,
		profileSvc:      p.ProfileSvc,
		challengeSvc:    p.ChallengeSvc,
		feedSvc:         p.FeedSvc,
		feedProjector:   p.FeedProjector,
		teamSvc:         p.TeamSvc,
		invitationSvc:   p.InvitationSvc,
		notificationSvc: p.NotificationSvc,
	}

	svc.registerSessionRoutes()
	svc.registerAPIRoutes()
	svc.registerInternalRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerSessionRoutes() {
	session := s.engine.Group("/v1/session")

	session.POST("/signin", s.PrincipalRequired(), s.SignIn)
	session.POST("/signout", s.PrincipalRequired(), s.SignOut)
	session.GET("/stream", s.PrincipalRequired(), s.StreamSession)
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1", s.PrincipalRequired())

	v1.GET("/feed", s.GetFeed)
	v1.GET("/feed/stream", s.StreamFeed)

	v1.GET("/notifications", s.ListNotifications)
	v1.POST("/notifications/:id/read", s.MarkNotificationRead)
	v1.POST("/notifications/read-all", s.MarkAllNotificationsRead)
	v1.GET("/notifications/unread/stream", s.StreamUnreadCount)
	v1.PUT("/notifications/preferences", s.SetNotificationPreference)

	v1.POST("/teams", s.CreateTeam)

	v1.POST("/invitations", s.CreateInvitation)
	v1.GET("/invitations", s.ListInvitations)
	v1.POST("/invitations/:id/respond", s.RespondInvitation)

	v1.POST("/challenges", s.CreateChallenge)
	v1.GET("/challenges", s.ListChallenges)

	v1.POST("/submissions", s.CreateSubmission)
	v1.DELETE("/submissions/:id", s.DeleteSubmission)
	v1.POST("/submissions/:id/like", s.LikeSubmission)
}

// Internal routes are fronted by gateway ACLs; the app itself does not hold
// an operator identity model.
func (s *Server) registerInternalRoutes() {
	internal := s.engine.Group("/internal/v1")

	internal.POST("/coaches/:id/approve", s.ApproveCoach)
	internal.POST("/coaches/:id/reject", s.RejectCoach)
}
