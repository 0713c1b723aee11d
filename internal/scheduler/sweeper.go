package scheduler

import (
	"context"
	"time"

	challengedomain "github.com/playpulse/clubsync/internal/challenge/domain"
	"github.com/playpulse/clubsync/internal/clock"
	"github.com/playpulse/clubsync/internal/config"
	"github.com/playpulse/clubsync/internal/eventbus"
	notificationdomain "github.com/playpulse/clubsync/internal/notification/domain"
	"go.uber.org/zap"
)

const (
	sweepLockKey = "clubsync:sweep:challenge_end"
	sweepLockTTL = time.Minute
)

// Sweeper closes challenges whose deadline has passed and fans out the
// ended notification to everyone who submitted. The conditional status
// transition in the store makes concurrent sweeps safe; the redis lock only
// avoids duplicate work.
type Sweeper struct {
	log      *zap.Logger
	repo     challengedomain.Repository
	notifier notificationdomain.Service
	policy   *config.NotificationPolicyHolder
	locker   *Locker
	clock    clock.Clock
	bus      *eventbus.Bus
}

func NewSweeper(
	log *zap.Logger,
	repo challengedomain.Repository,
	notifier notificationdomain.Service,
	policy *config.NotificationPolicyHolder,
	locker *Locker,
	clk clock.Clock,
	bus *eventbus.Bus,
) *Sweeper {
	return &Sweeper{
		log:      log.Named("scheduler.sweeper"),
		repo:     repo,
		notifier: notifier,
		policy:   policy,
		locker:   locker,
		clock:    clk,
		bus:      bus,
	}
}

// Run ticks at the policy's sweep cadence until the context ends.
func (s *Sweeper) Run(ctx context.Context) {
	for {
		interval := s.policy.Get().SweepInterval
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		timer := time.NewTimer(interval)
		select {
		case <-timer.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// Sweep performs one pass. A per-challenge failure is logged and skipped so
// one broken challenge never starves the rest.
func (s *Sweeper) Sweep(ctx context.Context) {
	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, sweepLockKey, sweepLockTTL)
		if err != nil {
			s.log.Warn("sweep lock unavailable", zap.Error(err))
			return
		}
		if !ok {
			return
		}
		defer func() {
			if err := s.locker.Release(ctx, sweepLockKey, token); err != nil {
				s.log.Warn("sweep lock release failed", zap.Error(err))
			}
		}()
	}

	challenges, err := s.repo.FindEndedOpen(ctx, s.clock.Now())
	if err != nil {
		s.log.Warn("ended challenge scan failed", zap.Error(err))
		return
	}

	ended := 0
	for _, challenge := range challenges {
		won, err := s.repo.MarkEnded(ctx, challenge.ID)
		if err != nil {
			s.log.Warn("challenge close failed",
				zap.Stringer("challenge_id", challenge.ID),
				zap.Error(err),
			)
			continue
		}
		if !won {
			continue
		}
		ended++

		if _, err := s.notifier.NotifyChallengeEnded(ctx, challenge.ID, challenge.Title); err != nil {
			s.log.Warn("challenge ended fan-out failed",
				zap.Stringer("challenge_id", challenge.ID),
				zap.Error(err),
			)
		}
	}
	if ended > 0 {
		s.bus.Publish(eventbus.CollectionChanged("challenges"), nil)
	}
}
