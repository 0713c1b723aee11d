package identity

type Role string

const (
	RolePlayer Role = "player"
	RoleCoach  Role = "coach"
)

type Verification string

const (
	VerificationPending  Verification = "pending"
	VerificationApproved Verification = "approved"
	VerificationRejected Verification = "rejected"
)

// Session is the derived authorization state for one authenticated principal.
// It is owned by a Store and only ever replaced wholesale, never field by
// field, so consumers cannot observe a torn update.
type Session struct {
	UserID            string
	IsGuest           bool
	Role              Role
	Verification      Verification
	RejectionReason   string
	RejectionCategory string
}

// Guest is the unauthenticated session value.
func Guest() Session {
	return Session{
		IsGuest:      true,
		Role:         RolePlayer,
		Verification: VerificationPending,
	}
}

// IsVerifiedCoach holds only for an approved coach; every other combination
// is false.
func (s Session) IsVerifiedCoach() bool {
	return !s.IsGuest && s.Role == RoleCoach && s.Verification == VerificationApproved
}

// AuthState is the low-level authentication event consumed by the Resolver.
// An empty UserID means signed out.
type AuthState struct {
	UserID string
}

// RoleDoc is the raw profile document read from the users collection. Fields
// may be absent; projection applies documented defaults instead of failing.
type RoleDoc struct {
	Role              string
	CoachStatus       string
	RejectionReason   string
	RejectionCategory string
}

// Project derives a Session from the user's profile query result (zero or one
// documents). It is pure and total: missing documents and missing fields get
// defaults (role=player, coachStatus=pending), never an error.
func Project(userID string, docs []RoleDoc) Session {
	sess := Session{
		UserID:       userID,
		Role:         RolePlayer,
		Verification: VerificationPending,
	}
	if len(docs) == 0 {
		return sess
	}

	doc := docs[0]
	if doc.Role == string(RoleCoach) {
		sess.Role = RoleCoach
	}
	switch doc.CoachStatus {
	case string(VerificationApproved):
		sess.Verification = VerificationApproved
	case string(VerificationRejected):
		sess.Verification = VerificationRejected
		sess.RejectionReason = doc.RejectionReason
		sess.RejectionCategory = doc.RejectionCategory
	default:
		sess.Verification = VerificationPending
	}
	return sess
}
