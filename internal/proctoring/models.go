package proctoring

import "github.com/mind-engage/mindengage-courseware/internal/blocks"

// AttemptStatus is the lifecycle state of one user's special-exam
// attempt, as reported by the proctoring subsystem.
type AttemptStatus string

const (
	StatusCreated   AttemptStatus = "created"
	StatusStarted   AttemptStatus = "started"
	StatusSubmitted AttemptStatus = "submitted"
	StatusVerified  AttemptStatus = "verified"
	StatusRejected  AttemptStatus = "rejected"
	StatusDeclined  AttemptStatus = "declined"
	StatusError     AttemptStatus = "error"
)

// AttemptSummary is the engine's read-only view of an exam attempt.
// A user with no summary at all has simply never interacted with the
// exam; that is modeled as absence, not as a zero summary.
type AttemptSummary struct {
	UserID string
	Course blocks.CourseKey
	Block  blocks.BlockKey
	Status AttemptStatus
}
