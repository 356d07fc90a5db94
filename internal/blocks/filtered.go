package blocks

// FilteredStructure is a per-user pruned view over a CollectedStructure.
// Accessors are restricted to the visible set.
type FilteredStructure struct {
	collected *CollectedStructure
	visible   map[BlockKey]struct{}
	order     []BlockKey
}

// ApplyRemovals prunes every block matched by remove, together with its
// entire subtree, in a single traversal. Children of a removed interior
// node are not re-tested.
func ApplyRemovals(cs *CollectedStructure, remove func(BlockKey) (bool, error)) (*FilteredStructure, error) {
	fs := &FilteredStructure{
		collected: cs,
		visible:   make(map[BlockKey]struct{}, cs.Len()),
	}
	var visit func(k BlockKey) error
	visit = func(k BlockKey) error {
		gone, err := remove(k)
		if err != nil {
			return err
		}
		if gone {
			return nil
		}
		fs.visible[k] = struct{}{}
		fs.order = append(fs.order, k)
		for _, c := range cs.Children(k) {
			if err := visit(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(cs.Root()); err != nil {
		return nil, err
	}
	return fs, nil
}

func (f *FilteredStructure) Len() int { return len(f.order) }

func (f *FilteredStructure) Has(k BlockKey) bool {
	_, ok := f.visible[k]
	return ok
}

// BlockKeys returns the visible blocks in pre-order.
func (f *FilteredStructure) BlockKeys() []BlockKey { return f.order }

// Root returns the structure root, or the zero key when even the root
// was removed.
func (f *FilteredStructure) Root() BlockKey {
	if f.Has(f.collected.Root()) {
		return f.collected.Root()
	}
	return BlockKey{}
}

func (f *FilteredStructure) Children(k BlockKey) []BlockKey {
	if !f.Has(k) {
		return nil
	}
	var out []BlockKey
	for _, c := range f.collected.Children(k) {
		if f.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func (f *FilteredStructure) Parent(k BlockKey) BlockKey {
	if !f.Has(k) {
		return BlockKey{}
	}
	p := f.collected.Parent(k)
	if !f.Has(p) {
		return BlockKey{}
	}
	return p
}

func (f *FilteredStructure) XBlockField(k BlockKey, field string) any {
	if !f.Has(k) {
		return nil
	}
	return f.collected.XBlockField(k, field)
}
