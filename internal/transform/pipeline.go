package transform

import (
	"context"
	"fmt"

	"github.com/mind-engage/mindengage-courseware/internal/access"
	"github.com/mind-engage/mindengage-courseware/internal/blocks"
	"github.com/mind-engage/mindengage-courseware/internal/contentsource"
)

// Pipeline owns the registered transformers and orchestrates
// collect-once, filter-per-user over course trees. Transformer order is
// registration order: the result set does not depend on it, but
// determinism keeps evaluation reproducible.
type Pipeline struct {
	provider     contentsource.Provider
	cache        blocks.StructureCache
	transformers []Transformer
	names        map[string]struct{}
}

func NewPipeline(provider contentsource.Provider, cache blocks.StructureCache) *Pipeline {
	if cache == nil {
		cache = blocks.NewNopCache()
	}
	return &Pipeline{
		provider: provider,
		cache:    cache,
		names:    map[string]struct{}{},
	}
}

// Register appends a transformer. Duplicate names are rejected so the
// requested-field registry stays unambiguous.
func (p *Pipeline) Register(t Transformer) error {
	if _, dup := p.names[t.Name()]; dup {
		return fmt.Errorf("transform: transformer %q already registered", t.Name())
	}
	p.names[t.Name()] = struct{}{}
	p.transformers = append(p.transformers, t)
	return nil
}

// Collected returns the collected structure for the course, from cache
// when the version matches, otherwise by running every transformer's
// collection step over a fresh tree.
func (p *Pipeline) Collected(ctx context.Context, course blocks.CourseKey) (*blocks.CollectedStructure, error) {
	version, err := p.provider.CourseVersion(ctx, course)
	if err != nil {
		return nil, err
	}
	if cs, ok := p.cache.Get(ctx, course, version); ok {
		return cs, nil
	}
	raw, err := p.provider.CourseTree(ctx, course)
	if err != nil {
		return nil, err
	}
	c := blocks.NewCollector()
	for _, t := range p.transformers {
		t.Collect(c.ForTransformer(t.Name()))
	}
	cs := c.Collect(raw)
	p.cache.Put(ctx, course, version, cs)
	return cs, nil
}

// GetCourseBlocks evaluates every registered transformer against the
// same collected structure and user context, ORs the removal filters,
// and prunes matched subtrees in a single traversal. Any oracle failure
// fails the request as a whole.
func (p *Pipeline) GetCourseBlocks(ctx context.Context, user access.UserContext, root blocks.BlockKey) (*blocks.FilteredStructure, error) {
	course := root.Course
	cs, err := p.Collected(ctx, course)
	if err != nil {
		return nil, fmt.Errorf("transform: course=%s user=%s: %w", course, user.UserID, err)
	}
	info := UsageInfo{User: user, Course: course}
	var filters []RemovalFilter
	for _, t := range p.transformers {
		fs, err := t.TransformFilters(ctx, info, cs)
		if err != nil {
			return nil, fmt.Errorf("transform: %s: course=%s user=%s: %w", t.Name(), course, user.UserID, err)
		}
		filters = append(filters, fs...)
	}
	return blocks.ApplyRemovals(cs, func(k blocks.BlockKey) (bool, error) {
		for _, f := range filters {
			gone, err := f(k)
			if err != nil {
				return false, err
			}
			if gone {
				return true, nil
			}
		}
		return false, nil
	})
}
