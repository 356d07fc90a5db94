package blocks

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedBlock marks a block missing required structural fields
	// (identity, type) or an edge set that is not a tree. Fatal at build.
	ErrMalformedBlock = errors.New("malformed block")
)

// Block is one raw node of a course content tree as delivered by the
// content provider. Fields holds every declared field; after collection
// only the fields some transformer requested are retained.
type Block struct {
	Key      BlockKey
	Fields   map[string]any
	Children []BlockKey
}

// BlockStructure is the raw, unfiltered tree for one course run. Each
// block has exactly one parent; the structure is acyclic. Both are
// verified at build time.
type BlockStructure struct {
	root    BlockKey
	course  CourseKey
	blocks  map[BlockKey]*Block
	parents map[BlockKey]BlockKey
}

// NewStructure validates raw blocks into a BlockStructure rooted at root.
func NewStructure(root BlockKey, raw []Block) (*BlockStructure, error) {
	if err := root.validate(); err != nil {
		return nil, err
	}
	s := &BlockStructure{
		root:    root,
		course:  root.Course,
		blocks:  make(map[BlockKey]*Block, len(raw)),
		parents: make(map[BlockKey]BlockKey, len(raw)),
	}
	for i := range raw {
		b := raw[i]
		if err := b.Key.validate(); err != nil {
			return nil, err
		}
		if b.Key.Course != s.course {
			return nil, fmt.Errorf("%w: block %s belongs to course %s", ErrMalformedBlock, b.Key, b.Key.Course)
		}
		if _, dup := s.blocks[b.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate block %s", ErrMalformedBlock, b.Key)
		}
		s.blocks[b.Key] = &b
	}
	if _, ok := s.blocks[root]; !ok {
		return nil, fmt.Errorf("%w: root %s not present", ErrMalformedBlock, root)
	}
	for k, b := range s.blocks {
		for _, c := range b.Children {
			if _, ok := s.blocks[c]; !ok {
				return nil, fmt.Errorf("%w: %s references missing child %s", ErrMalformedBlock, k, c)
			}
			if p, seen := s.parents[c]; seen {
				return nil, fmt.Errorf("%w: %s has parents %s and %s", ErrMalformedBlock, c, p, k)
			}
			s.parents[c] = k
		}
	}
	if _, rooted := s.parents[root]; rooted {
		return nil, fmt.Errorf("%w: root %s has a parent", ErrMalformedBlock, root)
	}
	// Single-parent plus a reachability sweep rules out cycles and orphans.
	reached := 0
	for range s.walk() {
		reached++
	}
	if reached != len(s.blocks) {
		return nil, fmt.Errorf("%w: %d of %d blocks unreachable from root", ErrMalformedBlock, len(s.blocks)-reached, len(s.blocks))
	}
	return s, nil
}

func (s *BlockStructure) Root() BlockKey      { return s.root }
func (s *BlockStructure) Course() CourseKey   { return s.course }
func (s *BlockStructure) Len() int            { return len(s.blocks) }
func (s *BlockStructure) Has(k BlockKey) bool { _, ok := s.blocks[k]; return ok }

func (s *BlockStructure) Children(k BlockKey) []BlockKey {
	b, ok := s.blocks[k]
	if !ok {
		return nil
	}
	return b.Children
}

// Parent returns the parent of k, or the zero key for the root or an
// unknown block.
func (s *BlockStructure) Parent(k BlockKey) BlockKey { return s.parents[k] }

// XBlockField returns a declared field value, or nil when absent. The
// raw structure exposes every declared field; collection later narrows
// this to what transformers requested.
func (s *BlockStructure) XBlockField(k BlockKey, name string) any {
	v, _ := s.field(k, name)
	return v
}

func (s *BlockStructure) field(k BlockKey, name string) (any, bool) {
	b, ok := s.blocks[k]
	if !ok || b.Fields == nil {
		return nil, false
	}
	v, ok := b.Fields[name]
	return v, ok
}

// walk yields block keys in deterministic pre-order.
func (s *BlockStructure) walk() []BlockKey {
	out := make([]BlockKey, 0, len(s.blocks))
	stack := []BlockKey{s.root}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, k)
		ch := s.Children(k)
		for i := len(ch) - 1; i >= 0; i-- {
			stack = append(stack, ch[i])
		}
	}
	return out
}
