package blocks

import (
	"fmt"
	"strings"
)

// CourseKey identifies one course run, e.g. "course-v1:MindEngage+CS101+2026".
type CourseKey string

func (c CourseKey) String() string { return string(c) }

// Org returns the organization segment of the course key, or "" if the
// key is not in course-v1 form.
func (c CourseKey) Org() string {
	s := strings.TrimPrefix(string(c), "course-v1:")
	if s == string(c) {
		return ""
	}
	parts := strings.SplitN(s, "+", 3)
	if len(parts) != 3 {
		return ""
	}
	return parts[0]
}

func (c CourseKey) valid() bool {
	s := strings.TrimPrefix(string(c), "course-v1:")
	if s == string(c) || s == "" {
		return false
	}
	return len(strings.Split(s, "+")) == 3
}

// BlockType tags a node in the course tree. Types are validated at
// collection time; a structure containing an unknown type fails to build.
type BlockType string

const (
	TypeCourse     BlockType = "course"
	TypeChapter    BlockType = "chapter"
	TypeSequential BlockType = "sequential"
	TypeVertical   BlockType = "vertical"
	TypeProblem    BlockType = "problem"
	TypeHTML       BlockType = "html"
)

var knownTypes = map[BlockType]struct{}{
	TypeCourse:     {},
	TypeChapter:    {},
	TypeSequential: {},
	TypeVertical:   {},
	TypeProblem:    {},
	TypeHTML:       {},
}

func (t BlockType) Valid() bool {
	_, ok := knownTypes[t]
	return ok
}

// BlockKey is a course-scoped usage key. It is comparable and used as a
// map key throughout the engine.
type BlockKey struct {
	Course CourseKey
	Type   BlockType
	Name   string
}

func NewBlockKey(course CourseKey, typ BlockType, name string) BlockKey {
	return BlockKey{Course: course, Type: typ, Name: name}
}

func (k BlockKey) String() string {
	return fmt.Sprintf("block-v1:%s+type@%s+block@%s",
		strings.TrimPrefix(string(k.Course), "course-v1:"), k.Type, k.Name)
}

func (k BlockKey) IsZero() bool { return k == BlockKey{} }

// ParseBlockKey parses the canonical string form produced by String.
func ParseBlockKey(s string) (BlockKey, error) {
	rest := strings.TrimPrefix(s, "block-v1:")
	if rest == s {
		return BlockKey{}, fmt.Errorf("%w: %q", ErrMalformedBlock, s)
	}
	ti := strings.Index(rest, "+type@")
	if ti < 0 {
		return BlockKey{}, fmt.Errorf("%w: %q", ErrMalformedBlock, s)
	}
	course := CourseKey("course-v1:" + rest[:ti])
	rest = rest[ti+len("+type@"):]
	bi := strings.Index(rest, "+block@")
	if bi < 0 {
		return BlockKey{}, fmt.Errorf("%w: %q", ErrMalformedBlock, s)
	}
	k := BlockKey{Course: course, Type: BlockType(rest[:bi]), Name: rest[bi+len("+block@"):]}
	if err := k.validate(); err != nil {
		return BlockKey{}, err
	}
	return k, nil
}

func (k BlockKey) validate() error {
	if !k.Course.valid() {
		return fmt.Errorf("%w: bad course key %q", ErrMalformedBlock, k.Course)
	}
	if !k.Type.Valid() {
		return fmt.Errorf("%w: unknown block type %q", ErrMalformedBlock, k.Type)
	}
	if k.Name == "" {
		return fmt.Errorf("%w: empty block name", ErrMalformedBlock)
	}
	return nil
}
