package blocks

type fieldKey struct {
	block BlockKey
	field string
}

// CollectedStructure is the annotated tree produced by collection. It is
// never mutated after build and is safe for concurrent readers, which is
// what makes it cacheable per course version and reusable across users.
type CollectedStructure struct {
	root      BlockKey
	course    CourseKey
	order     []BlockKey // deterministic pre-order
	children  map[BlockKey][]BlockKey
	parents   map[BlockKey]BlockKey
	values    map[fieldKey]any
	requested map[string][]string // transformer name -> requested fields
}

func (s *CollectedStructure) Root() BlockKey    { return s.root }
func (s *CollectedStructure) Course() CourseKey { return s.course }
func (s *CollectedStructure) Len() int          { return len(s.order) }

func (s *CollectedStructure) Has(k BlockKey) bool {
	if k == s.root {
		return true
	}
	_, ok := s.parents[k]
	return ok
}

// BlockKeys returns every block in deterministic pre-order. Callers must
// not mutate the returned slice.
func (s *CollectedStructure) BlockKeys() []BlockKey { return s.order }

func (s *CollectedStructure) Children(k BlockKey) []BlockKey { return s.children[k] }
func (s *CollectedStructure) Parent(k BlockKey) BlockKey     { return s.parents[k] }

// XBlockField returns the cached value for a requested field, or nil if
// the block never declared it. Absent is a defined state, not an error.
func (s *CollectedStructure) XBlockField(k BlockKey, field string) any {
	return s.values[fieldKey{k, field}]
}

// XBlockFieldBool reads a field as a bool, with absent defaulting false.
func (s *CollectedStructure) XBlockFieldBool(k BlockKey, field string) bool {
	v, _ := s.values[fieldKey{k, field}].(bool)
	return v
}

// RequestedFields reports which fields the named transformer asked for
// during collection.
func (s *CollectedStructure) RequestedFields(transformer string) []string {
	return s.requested[transformer]
}
