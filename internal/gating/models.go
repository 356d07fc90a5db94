package gating

import "github.com/mind-engage/mindengage-courseware/internal/blocks"

// Requirement is one active gating relationship: Gated is inaccessible
// to a user until their aggregate score on Gating's subtree reaches
// MinScore (a percentage, 0..100). A gated block has at most one
// requirement per course; setting a new one overwrites.
type Requirement struct {
	Course   blocks.CourseKey
	Gated    blocks.BlockKey
	Gating   blocks.BlockKey
	MinScore float64
}

// Fulfillment is a user's recorded state against one requirement.
// Recomputed by EvaluatePrerequisite, never derived from itself.
type Fulfillment struct {
	UserID string
	Course blocks.CourseKey
	Gated  blocks.BlockKey
	// Score is the last evaluated aggregate score on the gating subtree,
	// as a percentage.
	Score     float64
	Fulfilled bool
}

// Milestone is one unfulfilled "requires" relationship blocking a user
// from a block. Score-based prerequisites are the only kind this store
// produces, but consumers treat the record generically.
type Milestone struct {
	Course   blocks.CourseKey
	Block    blocks.BlockKey // the gated content
	Requires blocks.BlockKey // the prerequisite block
	MinScore float64
}
