package access

// Masquerade describes how a staff user is viewing the course.
type Masquerade int

const (
	// MasqueradeNone: the user is viewing as themselves.
	MasqueradeNone Masquerade = iota
	// MasqueradeGenericStudent: staff viewing as an anonymous learner;
	// gating applies as if no roles were held.
	MasqueradeGenericStudent
	// MasqueradeSpecificStudent: staff viewing as one named student;
	// the engine evaluates everything against that student's state.
	MasqueradeSpecificStudent
)

// UserContext is the per-request identity the pipeline evaluates
// against. It carries everything role- and masquerade-related so that
// transformers never reach for ambient globals.
type UserContext struct {
	UserID     string
	Masquerade Masquerade
	// MasqueradeUserID names the student being impersonated when
	// Masquerade is MasqueradeSpecificStudent.
	MasqueradeUserID string
	// Preview marks a staff preview context, where masquerade state is
	// ignored for the staff-override check.
	Preview bool
}

// EffectiveUserID is the identity per-user state (attempts, scores,
// fulfillment) is read for. Under specific-student masquerade that is
// the student, so staff sees exactly what the student sees.
func (u UserContext) EffectiveUserID() string {
	if u.Masquerade == MasqueradeSpecificStudent && u.MasqueradeUserID != "" {
		return u.MasqueradeUserID
	}
	return u.UserID
}

// IsMasqueradingAsStudent reports whether the user has dropped to a
// student view, generic or specific.
func (u UserContext) IsMasqueradingAsStudent() bool {
	return u.Masquerade != MasqueradeNone
}
