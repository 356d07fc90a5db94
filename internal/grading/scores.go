package grading

import (
	"context"
	"sync"

	"github.com/mind-engage/mindengage-courseware/internal/blocks"
)

// Score is a user's recorded result on one scorable block.
type Score struct {
	Earned   float64
	Possible float64
}

// ScoreStore persists per-(user, block) scores. Writes come from the
// score-event path; the aggregate oracle reads them.
type ScoreStore interface {
	RecordScore(ctx context.Context, userID string, block blocks.BlockKey, s Score) error
	GetScore(ctx context.Context, userID string, block blocks.BlockKey) (Score, bool, error)
}

// Structure is the tree shape the aggregator walks. Both the raw and
// the collected block structures satisfy it.
type Structure interface {
	Children(blocks.BlockKey) []blocks.BlockKey
	XBlockField(blocks.BlockKey, string) any
}

// Oracle answers "what fraction of the subtree under block has the user
// earned", in [0,1]. ok=false when the subtree holds nothing scorable.
type Oracle interface {
	AggregateScore(ctx context.Context, userID string, block blocks.BlockKey, s Structure) (float64, bool, error)
}

// SubtreeAggregator sums recorded scores over the scorable descendants
// of a block. Unanswered problems count their full possible points
// against the user, so the ratio reflects the whole subtree.
type SubtreeAggregator struct {
	scores ScoreStore
	points func(Structure, blocks.BlockKey) float64
}

func NewSubtreeAggregator(scores ScoreStore) *SubtreeAggregator {
	return &SubtreeAggregator{
		scores: scores,
		points: func(s Structure, k blocks.BlockKey) float64 {
			if v, ok := asFloat(s.XBlockField(k, "points")); ok && v > 0 {
				return v
			}
			return 1
		},
	}
}

func (a *SubtreeAggregator) AggregateScore(ctx context.Context, userID string, block blocks.BlockKey, s Structure) (float64, bool, error) {
	var earned, possible float64
	stack := []blocks.BlockKey{block}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stack = append(stack, s.Children(k)...)
		if k.Type != blocks.TypeProblem {
			continue
		}
		sc, ok, err := a.scores.GetScore(ctx, userID, k)
		if err != nil {
			return 0, false, err
		}
		if ok {
			earned += sc.Earned
			possible += sc.Possible
		} else {
			possible += a.points(s, k)
		}
	}
	if possible == 0 {
		return 0, false, nil
	}
	return earned / possible, true, nil
}

// asFloat widens the numeric types field values arrive in: YAML
// manifests decode whole numbers as int, JSON as float64.
func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

// MemoryScoreStore is the in-memory ScoreStore for tests and offline mode.
type MemoryScoreStore struct {
	mu     sync.RWMutex
	scores map[string]Score // user|block
}

func NewMemoryScoreStore() *MemoryScoreStore {
	return &MemoryScoreStore{scores: map[string]Score{}}
}

func scoreKey(userID string, block blocks.BlockKey) string {
	return userID + "|" + block.String()
}

func (m *MemoryScoreStore) RecordScore(_ context.Context, userID string, block blocks.BlockKey, s Score) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores[scoreKey(userID, block)] = s
	return nil
}

func (m *MemoryScoreStore) GetScore(_ context.Context, userID string, block blocks.BlockKey) (Score, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scores[scoreKey(userID, block)]
	return s, ok, nil
}
