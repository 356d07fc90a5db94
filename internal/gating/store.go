package gating

import (
	"context"
	"errors"
	"sync"

	"github.com/mind-engage/mindengage-courseware/internal/blocks"
)

var ErrNotFound = errors.New("gating: not found")

// Store is the persistent mapping of gating relationships and per-user
// fulfillment state. Course authors write prerequisites and
// requirements; EvaluatePrerequisite writes fulfillments.
type Store interface {
	AddPrerequisite(ctx context.Context, course blocks.CourseKey, block blocks.BlockKey) error
	RemovePrerequisite(ctx context.Context, course blocks.CourseKey, block blocks.BlockKey) error
	IsPrerequisite(ctx context.Context, course blocks.CourseKey, block blocks.BlockKey) (bool, error)
	ListPrerequisites(ctx context.Context, course blocks.CourseKey) ([]blocks.BlockKey, error)

	SetRequiredContent(ctx context.Context, req Requirement) error
	GetRequiredContent(ctx context.Context, course blocks.CourseKey, gated blocks.BlockKey) (Requirement, bool, error)
	RequirementsByGating(ctx context.Context, course blocks.CourseKey, gating blocks.BlockKey) ([]Requirement, error)

	SetFulfillment(ctx context.Context, f Fulfillment) error
	GetFulfillment(ctx context.Context, userID string, course blocks.CourseKey, gated blocks.BlockKey) (Fulfillment, bool, error)
}

// MemoryStore is the in-memory Store for tests and offline mode.
type MemoryStore struct {
	mu           sync.RWMutex
	prereqs      map[blocks.BlockKey]struct{}
	requirements map[blocks.BlockKey]Requirement // keyed by gated block
	fulfillments map[string]Fulfillment          // user|gated
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		prereqs:      map[blocks.BlockKey]struct{}{},
		requirements: map[blocks.BlockKey]Requirement{},
		fulfillments: map[string]Fulfillment{},
	}
}

func (m *MemoryStore) AddPrerequisite(_ context.Context, _ blocks.CourseKey, block blocks.BlockKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prereqs[block] = struct{}{}
	return nil
}

func (m *MemoryStore) RemovePrerequisite(_ context.Context, _ blocks.CourseKey, block blocks.BlockKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.prereqs, block)
	// requirements keyed by this gating block die with it, and their
	// fulfillment rows with them
	for gated, req := range m.requirements {
		if req.Gating == block {
			delete(m.requirements, gated)
			for k, f := range m.fulfillments {
				if f.Gated == gated {
					delete(m.fulfillments, k)
				}
			}
		}
	}
	return nil
}

func (m *MemoryStore) IsPrerequisite(_ context.Context, _ blocks.CourseKey, block blocks.BlockKey) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.prereqs[block]
	return ok, nil
}

func (m *MemoryStore) ListPrerequisites(_ context.Context, course blocks.CourseKey) ([]blocks.BlockKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []blocks.BlockKey
	for k := range m.prereqs {
		if k.Course == course {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *MemoryStore) SetRequiredContent(_ context.Context, req Requirement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.prereqs[req.Gating]; !ok {
		return ErrNotFound
	}
	m.requirements[req.Gated] = req
	return nil
}

func (m *MemoryStore) GetRequiredContent(_ context.Context, _ blocks.CourseKey, gated blocks.BlockKey) (Requirement, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.requirements[gated]
	return req, ok, nil
}

func (m *MemoryStore) RequirementsByGating(_ context.Context, course blocks.CourseKey, gating blocks.BlockKey) ([]Requirement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Requirement
	for _, req := range m.requirements {
		if req.Course == course && req.Gating == gating {
			out = append(out, req)
		}
	}
	return out, nil
}

func fulfillmentKey(userID string, gated blocks.BlockKey) string {
	return userID + "|" + gated.String()
}

func (m *MemoryStore) SetFulfillment(_ context.Context, f Fulfillment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fulfillments[fulfillmentKey(f.UserID, f.Gated)] = f
	return nil
}

func (m *MemoryStore) GetFulfillment(_ context.Context, userID string, _ blocks.CourseKey, gated blocks.BlockKey) (Fulfillment, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.fulfillments[fulfillmentKey(userID, gated)]
	return f, ok, nil
}
