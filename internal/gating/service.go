package gating

import (
	"context"
	"fmt"

	"github.com/mind-engage/mindengage-courseware/internal/blocks"
	"github.com/mind-engage/mindengage-courseware/internal/grading"
)

// TreeSource supplies the raw course tree EvaluatePrerequisite walks.
type TreeSource interface {
	CourseTree(ctx context.Context, course blocks.CourseKey) (*blocks.BlockStructure, error)
}

// MilestoneSource is the milestone store as the transformer consumes it:
// only unfulfilled "requires" records come back, and an empty result
// means the user is fully satisfied for that block.
type MilestoneSource interface {
	CourseContentMilestones(ctx context.Context, course blocks.CourseKey, block blocks.BlockKey, userID string) ([]Milestone, error)
}

// Service is the gating API surface: author-facing CRUD plus the
// score-driven evaluation trigger. Filtering reads only stored
// fulfillment state; recomputation happens here and nowhere else.
type Service struct {
	store  Store
	trees  TreeSource
	grades grading.Oracle
}

func NewService(store Store, trees TreeSource, grades grading.Oracle) *Service {
	return &Service{store: store, trees: trees, grades: grades}
}

// AddPrerequisite registers block as a gating source for its course.
func (s *Service) AddPrerequisite(ctx context.Context, course blocks.CourseKey, block blocks.BlockKey) error {
	return s.store.AddPrerequisite(ctx, course, block)
}

// RemovePrerequisite deregisters a gating source; requirements keyed by
// it and their fulfillment rows are removed with it.
func (s *Service) RemovePrerequisite(ctx context.Context, course blocks.CourseKey, block blocks.BlockKey) error {
	return s.store.RemovePrerequisite(ctx, course, block)
}

func (s *Service) ListPrerequisites(ctx context.Context, course blocks.CourseKey) ([]blocks.BlockKey, error) {
	return s.store.ListPrerequisites(ctx, course)
}

// SetRequiredContent gates gated behind gating at minScore percent.
// Last write wins: a gated block has one active requirement.
func (s *Service) SetRequiredContent(ctx context.Context, course blocks.CourseKey, gated, gating blocks.BlockKey, minScore float64) error {
	if minScore < 0 || minScore > 100 {
		return fmt.Errorf("gating: min score %v out of range", minScore)
	}
	return s.store.SetRequiredContent(ctx, Requirement{
		Course:   course,
		Gated:    gated,
		Gating:   gating,
		MinScore: minScore,
	})
}

func (s *Service) GetRequiredContent(ctx context.Context, course blocks.CourseKey, gated blocks.BlockKey) (Requirement, bool, error) {
	return s.store.GetRequiredContent(ctx, course, gated)
}

// CourseContentMilestones returns the user's unfulfilled "requires"
// milestones for block. A requirement with min score zero is trivially
// satisfied. Callers holding the course structure should additionally
// skip records whose Requires block is no longer present in the tree:
// a relationship that cannot be reasoned about must not gate.
func (s *Service) CourseContentMilestones(ctx context.Context, course blocks.CourseKey, block blocks.BlockKey, userID string) ([]Milestone, error) {
	req, ok, err := s.store.GetRequiredContent(ctx, course, block)
	if err != nil {
		return nil, err
	}
	if !ok || req.MinScore <= 0 {
		return nil, nil
	}
	f, ok, err := s.store.GetFulfillment(ctx, userID, course, block)
	if err != nil {
		return nil, err
	}
	if ok && f.Fulfilled {
		return nil, nil
	}
	return []Milestone{{
		Course:   course,
		Block:    block,
		Requires: req.Gating,
		MinScore: req.MinScore,
	}}, nil
}

// EvaluatePrerequisite recomputes fulfillment after a scoring event on
// completed. It walks up to the nearest registered gating ancestor,
// re-aggregates that ancestor's subtree score for the user, and updates
// the fulfillment row of every requirement keyed by it. The computation
// derives only from the canonical score source, so repeated calls with
// unchanged scores converge on the same state.
func (s *Service) EvaluatePrerequisite(ctx context.Context, course blocks.CourseKey, completed blocks.BlockKey, userID string) error {
	tree, err := s.trees.CourseTree(ctx, course)
	if err != nil {
		return fmt.Errorf("gating: evaluate course=%s block=%s: %w", course, completed, err)
	}
	gatingBlock, ok, err := s.nearestGatingAncestor(ctx, course, tree, completed)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	ratio, scored, err := s.grades.AggregateScore(ctx, userID, gatingBlock, tree)
	if err != nil {
		return fmt.Errorf("gating: aggregate score user=%s block=%s: %w", userID, gatingBlock, err)
	}
	pct := 0.0
	if scored {
		pct = ratio * 100
	}
	reqs, err := s.store.RequirementsByGating(ctx, course, gatingBlock)
	if err != nil {
		return err
	}
	for _, req := range reqs {
		if !tree.Has(req.Gated) {
			// stale relationship, surfaced to authors elsewhere
			continue
		}
		err := s.store.SetFulfillment(ctx, Fulfillment{
			UserID:    userID,
			Course:    course,
			Gated:     req.Gated,
			Score:     pct,
			Fulfilled: pct >= req.MinScore,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) nearestGatingAncestor(ctx context.Context, course blocks.CourseKey, tree *blocks.BlockStructure, from blocks.BlockKey) (blocks.BlockKey, bool, error) {
	for k := from; !k.IsZero(); k = tree.Parent(k) {
		ok, err := s.store.IsPrerequisite(ctx, course, k)
		if err != nil {
			return blocks.BlockKey{}, false, err
		}
		if ok {
			return k, true, nil
		}
	}
	return blocks.BlockKey{}, false, nil
}
