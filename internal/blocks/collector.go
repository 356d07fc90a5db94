package blocks

// Collector accumulates the field names each transformer declares it
// needs before collection runs. A transformer only ever sees fields it
// requested here; everything else is dropped from the collected copy.
type Collector struct {
	current   string
	requested map[string]map[string]struct{}
}

func NewCollector() *Collector {
	return &Collector{requested: map[string]map[string]struct{}{}}
}

// ForTransformer scopes subsequent requests to the named transformer.
func (c *Collector) ForTransformer(name string) *Collector {
	c.current = name
	if _, ok := c.requested[name]; !ok {
		c.requested[name] = map[string]struct{}{}
	}
	return c
}

// RequestXBlockFields registers field names the current transformer
// needs cached on every block.
func (c *Collector) RequestXBlockFields(names ...string) {
	set := c.requested[c.current]
	if set == nil {
		set = map[string]struct{}{}
		c.requested[c.current] = set
	}
	for _, n := range names {
		set[n] = struct{}{}
	}
}

func (c *Collector) allFields() map[string]struct{} {
	all := map[string]struct{}{}
	for _, set := range c.requested {
		for n := range set {
			all[n] = struct{}{}
		}
	}
	return all
}

// Collect produces an immutable CollectedStructure holding only the
// requested fields. A request for a field a block does not declare is
// not an error; reads of it yield the absent default.
func (c *Collector) Collect(raw *BlockStructure) *CollectedStructure {
	fields := c.allFields()
	cs := &CollectedStructure{
		root:      raw.root,
		course:    raw.course,
		order:     raw.walk(),
		children:  make(map[BlockKey][]BlockKey, len(raw.blocks)),
		parents:   make(map[BlockKey]BlockKey, len(raw.parents)),
		values:    make(map[fieldKey]any),
		requested: make(map[string][]string, len(c.requested)),
	}
	for name, set := range c.requested {
		for f := range set {
			cs.requested[name] = append(cs.requested[name], f)
		}
	}
	for k, p := range raw.parents {
		cs.parents[k] = p
	}
	for k, b := range raw.blocks {
		if len(b.Children) > 0 {
			ch := make([]BlockKey, len(b.Children))
			copy(ch, b.Children)
			cs.children[k] = ch
		}
		for f := range fields {
			if v, ok := raw.field(k, f); ok {
				cs.values[fieldKey{k, f}] = v
			}
		}
	}
	return cs
}
