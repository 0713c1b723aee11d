package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectDefaults(t *testing.T) {
	sess := Project("u1", nil)
	assert.Equal(t, "u1", sess.UserID)
	assert.False(t, sess.IsGuest)
	assert.Equal(t, RolePlayer, sess.Role)
	assert.Equal(t, VerificationPending, sess.Verification)
	assert.False(t, sess.IsVerifiedCoach())
}

func TestProjectRoleDerivation(t *testing.T) {
	cases := []struct {
		name     string
		doc      RoleDoc
		role     Role
		verified Verification
		isCoach  bool
	}{
		{"empty doc keeps defaults", RoleDoc{}, RolePlayer, VerificationPending, false},
		{"player stays player", RoleDoc{Role: "player"}, RolePlayer, VerificationPending, false},
		{"pending coach", RoleDoc{Role: "coach"}, RoleCoach, VerificationPending, false},
		{"approved coach", RoleDoc{Role: "coach", CoachStatus: "approved"}, RoleCoach, VerificationApproved, true},
		{"rejected coach", RoleDoc{Role: "coach", CoachStatus: "rejected"}, RoleCoach, VerificationRejected, false},
		{"approved player is not a coach", RoleDoc{Role: "player", CoachStatus: "approved"}, RolePlayer, VerificationApproved, false},
		{"unknown role falls back to player", RoleDoc{Role: "admin"}, RolePlayer, VerificationPending, false},
		{"unknown status falls back to pending", RoleDoc{Role: "coach", CoachStatus: "maybe"}, RoleCoach, VerificationPending, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sess := Project("u1", []RoleDoc{tc.doc})
			assert.Equal(t, tc.role, sess.Role)
			assert.Equal(t, tc.verified, sess.Verification)
			assert.Equal(t, tc.isCoach, sess.IsVerifiedCoach())
		})
	}
}

func TestProjectCarriesRejectionDetails(t *testing.T) {
	sess := Project("u1", []RoleDoc{{
		Role:              "coach",
		CoachStatus:       "rejected",
		RejectionReason:   "incomplete application",
		RejectionCategory: "documents",
	}})
	assert.Equal(t, "incomplete application", sess.RejectionReason)
	assert.Equal(t, "documents", sess.RejectionCategory)
}

func TestGuestIsNeverVerifiedCoach(t *testing.T) {
	guest := Guest()
	assert.True(t, guest.IsGuest)
	assert.False(t, guest.IsVerifiedCoach())
}

func TestStoreSwapPublishesLatestValue(t *testing.T) {
	store := NewStore()

	current, sub := store.Subscribe()
	defer sub.Close()
	assert.True(t, current.IsGuest)

	// A slow subscriber must observe the newest session, not a stale one.
	store.Swap(Project("u1", nil))
	store.Swap(Project("u2", nil))

	sess := <-sub.Sessions()
	assert.Equal(t, "u2", sess.UserID)
	assert.Equal(t, "u2", store.Current().UserID)
}

func TestStoreSubscriptionCloseIsIdempotent(t *testing.T) {
	store := NewStore()
	_, sub := store.Subscribe()
	sub.Close()
	sub.Close()

	store.Swap(Guest())
}
