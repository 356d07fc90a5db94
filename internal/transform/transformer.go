package transform

import (
	"context"

	"github.com/mind-engage/mindengage-courseware/internal/access"
	"github.com/mind-engage/mindengage-courseware/internal/blocks"
)

// UsageInfo is the per-request context every transformer's filter step
// receives: who is asking, for which course.
type UsageInfo struct {
	User   access.UserContext
	Course blocks.CourseKey
}

// RemovalFilter decides whether a block, together with its entire
// subtree, is excluded from the user's view. Filters from all
// transformers compose by OR, so order of evaluation never changes the
// result. An error aborts the whole request; gating never degrades to a
// partial answer.
type RemovalFilter func(blocks.BlockKey) (bool, error)

// Transformer is one filtering stage of the pipeline. Collect declares
// the fields the stage needs cached on the structure; TransformFilters
// computes removal filters for one (structure, user) evaluation and must
// not mutate the structure.
type Transformer interface {
	Name() string
	Collect(c *blocks.Collector)
	TransformFilters(ctx context.Context, info UsageInfo, s *blocks.CollectedStructure) ([]RemovalFilter, error)
}
