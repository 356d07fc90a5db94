package contentsource

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mind-engage/mindengage-courseware/internal/blocks"
)

var ErrCourseNotFound = errors.New("contentsource: course not found")

// Provider supplies raw, unfiltered course trees. Course content is
// authored elsewhere; the engine only ever reads it. Version changes
// whenever the tree does, which is what keys the structure cache.
type Provider interface {
	CourseTree(ctx context.Context, course blocks.CourseKey) (*blocks.BlockStructure, error)
	CourseVersion(ctx context.Context, course blocks.CourseKey) (string, error)
}

type courseEntry struct {
	tree    *blocks.BlockStructure
	version string
}

// MemoryProvider serves registered course trees from memory.
type MemoryProvider struct {
	mu      sync.RWMutex
	courses map[blocks.CourseKey]courseEntry
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{courses: map[blocks.CourseKey]courseEntry{}}
}

func (p *MemoryProvider) Register(tree *blocks.BlockStructure, version string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.courses[tree.Course()] = courseEntry{tree: tree, version: version}
}

func (p *MemoryProvider) CourseTree(_ context.Context, course blocks.CourseKey) (*blocks.BlockStructure, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.courses[course]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCourseNotFound, course)
	}
	return e.tree, nil
}

func (p *MemoryProvider) CourseVersion(_ context.Context, course blocks.CourseKey) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.courses[course]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrCourseNotFound, course)
	}
	return e.version, nil
}
