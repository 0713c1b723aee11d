package identity

import (
	"context"

	"github.com/playpulse/clubsync/internal/eventbus"
	"github.com/playpulse/clubsync/internal/watch"
	"go.uber.org/zap"
)

// RoleSource executes the profile query backing the role projection. The
// result set holds zero or one documents.
type RoleSource interface {
	RoleDocs(ctx context.Context, userID string) ([]RoleDoc, error)
}

// Resolver turns authentication-state events into Session snapshots. On
// sign-in it publishes the authenticated-but-unverified session first, then
// starts the role projection for the new user; on sign-out it cancels the
// projection and resets to guest. All session mutations happen on the Run
// goroutine, which is the serialization point for identity state.
type Resolver struct {
	bus     *eventbus.Bus
	watcher *watch.Watcher
	source  RoleSource
	store   *Store
	log     *zap.Logger
}

func NewResolver(bus *eventbus.Bus, watcher *watch.Watcher, source RoleSource, store *Store, log *zap.Logger) *Resolver {
	return &Resolver{
		bus:     bus,
		watcher: watcher,
		source:  source,
		store:   store,
		log:     log.Named("identity"),
	}
}

func (r *Resolver) Run(ctx context.Context) error {
	authSub, err := r.bus.Subscribe(eventbus.TopicAuthState)
	if err != nil {
		return err
	}
	defer authSub.Close()

	var (
		roleHandle *watch.Handle[RoleDoc]
		roleCh     <-chan watch.Snapshot[RoleDoc]
		currentUID string
	)
	stopRole := func() {
		if roleHandle != nil {
			roleHandle.Cancel()
			roleHandle = nil
			roleCh = nil
		}
	}
	defer stopRole()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-authSub.Events():
			if !ok {
				return nil
			}
			state, ok := ev.Payload.(AuthState)
			if !ok {
				continue
			}

			stopRole()
			if state.UserID == "" {
				currentUID = ""
				r.store.Swap(Guest())
				continue
			}

			currentUID = state.UserID
			// Publish the authenticated session with default role before
			// the role watch starts, so role-gated consumers never read the
			// previous user's authorization.
			r.store.Swap(Project(currentUID, nil))

			uid := currentUID
			roleHandle = watch.Start(r.watcher, ctx, roleKey(uid),
				func(qctx context.Context) ([]RoleDoc, error) {
					return r.source.RoleDocs(qctx, uid)
				},
				"users",
			)
			roleCh = roleHandle.Snapshots()

		case snap, ok := <-roleCh:
			if !ok {
				roleCh = nil
				continue
			}
			if snap.Err != nil {
				// Fail soft: the last good session stays visible; the
				// subscription is terminal until the next auth event.
				r.log.Warn("role subscription failed",
					zap.String("user_id", currentUID),
					zap.Error(snap.Err),
				)
				continue
			}
			r.store.Swap(Project(currentUID, snap.Items))
		}
	}
}

func roleKey(userID string) string {
	return "role/" + userID
}
