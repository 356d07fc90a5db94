package proctoring

import (
	"context"
	"sync"

	"github.com/mind-engage/mindengage-courseware/internal/blocks"
)

// Oracle is the proctoring subsystem as seen by the gating engine:
// queried, never driven. An oracle failure is fatal for the request that
// needed it; gating never silently defaults open or closed.
type Oracle interface {
	// AttemptSummary returns the user's attempt state for the exam
	// block, or ok=false when the user has no attempt at all.
	AttemptSummary(ctx context.Context, userID string, course blocks.CourseKey, block blocks.BlockKey) (AttemptSummary, bool, error)
}

// MemoryOracle holds attempt summaries in memory. Used in tests and in
// offline mode, where the proctoring service runs in-process.
type MemoryOracle struct {
	mu       sync.RWMutex
	attempts map[string]AttemptSummary // user|block
}

func NewMemoryOracle() *MemoryOracle {
	return &MemoryOracle{attempts: map[string]AttemptSummary{}}
}

func attemptKey(userID string, block blocks.BlockKey) string {
	return userID + "|" + block.String()
}

// SetStatus records (or overwrites) the user's attempt status for block.
func (m *MemoryOracle) SetStatus(userID string, block blocks.BlockKey, status AttemptStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[attemptKey(userID, block)] = AttemptSummary{
		UserID: userID,
		Course: block.Course,
		Block:  block,
		Status: status,
	}
}

func (m *MemoryOracle) Clear(userID string, block blocks.BlockKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attempts, attemptKey(userID, block))
}

func (m *MemoryOracle) AttemptSummary(_ context.Context, userID string, _ blocks.CourseKey, block blocks.BlockKey) (AttemptSummary, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[attemptKey(userID, block)]
	return a, ok, nil
}
