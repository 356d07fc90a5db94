// Package milestones implements the gating stage of the block-structure
// pipeline: special-exam visibility, milestone prerequisites, and the
// staff override that bypasses both.
package milestones

import (
	"context"

	"github.com/mind-engage/mindengage-courseware/internal/access"
	"github.com/mind-engage/mindengage-courseware/internal/blocks"
	"github.com/mind-engage/mindengage-courseware/internal/gating"
	"github.com/mind-engage/mindengage-courseware/internal/proctoring"
	"github.com/mind-engage/mindengage-courseware/internal/transform"
)

const (
	fieldProctoredEnabled = "is_proctored_enabled"
	fieldPracticeExam     = "is_practice_exam"
)

// Config carries the feature switches the transformer honors. With
// special exams disabled, the exam sub-rule never excludes anything;
// that is a configuration state, not an error.
type Config struct {
	EnableSpecialExams bool
}

// Transformer excludes blocks a user is gated from: live special exams
// the user must still take, and blocks with unfulfilled "requires"
// milestones. Staff access, checked once per evaluation, bypasses both
// rules uniformly.
type Transformer struct {
	cfg        Config
	exams      proctoring.Oracle
	milestones gating.MilestoneSource
	roles      access.RoleOracle
}

func New(cfg Config, exams proctoring.Oracle, milestones gating.MilestoneSource, roles access.RoleOracle) *Transformer {
	return &Transformer{cfg: cfg, exams: exams, milestones: milestones, roles: roles}
}

func (t *Transformer) Name() string { return "milestones" }

// Collect declares the exam flags the filter step reads per block.
func (t *Transformer) Collect(c *blocks.Collector) {
	c.RequestXBlockFields(fieldProctoredEnabled, fieldPracticeExam)
}

// TransformFilters returns a single filter excluding every block the
// user is gated from. The filter is a pure read over the collected
// structure, the stored fulfillment state, and the oracles.
func (t *Transformer) TransformFilters(ctx context.Context, info transform.UsageInfo, s *blocks.CollectedStructure) ([]transform.RemovalFilter, error) {
	staff, err := t.hasStaffAccess(ctx, info)
	if err != nil {
		return nil, err
	}
	filter := func(k blocks.BlockKey) (bool, error) {
		if staff {
			return false, nil
		}
		exam, err := t.isLiveSpecialExam(ctx, k, info, s)
		if err != nil {
			return false, err
		}
		if exam {
			return true, nil
		}
		return t.hasPendingMilestones(ctx, k, info, s)
	}
	return []transform.RemovalFilter{filter}, nil
}

// isLiveSpecialExam is the proctored-exam sub-rule: a sequential flagged
// proctored or practice, with special exams enabled, is excluded when
// the user has an attempt summary in any status other than declined.
// Declining, or never having a summary, leaves the exam visible so the
// user can proceed past it.
func (t *Transformer) isLiveSpecialExam(ctx context.Context, k blocks.BlockKey, info transform.UsageInfo, s *blocks.CollectedStructure) (bool, error) {
	if k.Type != blocks.TypeSequential {
		return false, nil
	}
	if !s.XBlockFieldBool(k, fieldProctoredEnabled) && !s.XBlockFieldBool(k, fieldPracticeExam) {
		return false, nil
	}
	if !t.cfg.EnableSpecialExams {
		return false, nil
	}
	summary, ok, err := t.exams.AttemptSummary(ctx, info.User.EffectiveUserID(), info.Course, k)
	if err != nil {
		return false, err
	}
	return ok && summary.Status != proctoring.StatusDeclined, nil
}

// hasPendingMilestones is the generic milestone sub-rule. Records whose
// prerequisite block is no longer part of the tree are skipped: a
// relationship that cannot be reasoned about must not gate.
func (t *Transformer) hasPendingMilestones(ctx context.Context, k blocks.BlockKey, info transform.UsageInfo, s *blocks.CollectedStructure) (bool, error) {
	ms, err := t.milestones.CourseContentMilestones(ctx, info.Course, k, info.User.EffectiveUserID())
	if err != nil {
		return false, err
	}
	for _, m := range ms {
		if s.Has(m.Requires) {
			return true, nil
		}
	}
	return false, nil
}

// hasStaffAccess computes the staff override once per evaluation. A
// staff user masquerading as a student (generic or specific) forfeits
// the override unless in a preview context, so masquerade shows exactly
// the student view.
func (t *Transformer) hasStaffAccess(ctx context.Context, info transform.UsageInfo) (bool, error) {
	u := info.User
	if u.UserID == "" {
		return false, nil
	}
	if !u.Preview && u.IsMasqueradingAsStudent() {
		return false, nil
	}
	return access.HasStaffAccess(ctx, t.roles, u.UserID, info.Course)
}
