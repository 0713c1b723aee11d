package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/playpulse/clubsync/internal/clock"
	"github.com/playpulse/clubsync/internal/team/domain"
	"go.uber.org/zap"
)

type service struct {
	log   *zap.Logger
	repo  domain.Repository
	node  *snowflake.Node
	clock clock.Clock
}

func New(log *zap.Logger, repo domain.Repository, node *snowflake.Node, clk clock.Clock) domain.Service {
	return &service{
		log:   log.Named("team"),
		repo:  repo,
		node:  node,
		clock: clk,
	}
}

func (s *service) Create(ctx context.Context, coachID, name string) (*domain.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	id := s.node.Generate()
	team := &domain.Team{
		ID:        id,
		CoachID:   coachID,
		Name:      name,
		Slug:      slug.Make(name) + "-" + id.Base36(),
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Create(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

func (s *service) Get(ctx context.Context, id snowflake.ID) (*domain.Team, error) {
	return s.repo.Get(ctx, id)
}
