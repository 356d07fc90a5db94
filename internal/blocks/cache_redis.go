package blocks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCache shares collected structures across gateway instances.
// Errors are swallowed: the cache only ever holds user-independent
// structure data, so falling back to a fresh collection is always safe.
type redisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) StructureCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &redisCache{rdb: rdb, ttl: ttl}
}

type encodedBlock struct {
	Key      string         `json:"key"`
	Children []string       `json:"children,omitempty"`
	Fields   map[string]any `json:"fields,omitempty"`
}

type encodedStructure struct {
	Root      string              `json:"root"`
	Requested map[string][]string `json:"requested,omitempty"`
	Blocks    []encodedBlock      `json:"blocks"` // pre-order
}

func (c *redisCache) Get(ctx context.Context, course CourseKey, version string) (*CollectedStructure, bool) {
	raw, err := c.rdb.Get(ctx, "blockstructure:"+cacheKey(course, version)).Bytes()
	if err != nil {
		return nil, false
	}
	var enc encodedStructure
	if err := json.Unmarshal(raw, &enc); err != nil {
		return nil, false
	}
	cs, err := decodeStructure(&enc)
	if err != nil {
		return nil, false
	}
	return cs, true
}

func (c *redisCache) Put(ctx context.Context, course CourseKey, version string, cs *CollectedStructure) {
	raw, err := json.Marshal(encodeStructure(cs))
	if err != nil {
		return
	}
	c.rdb.Set(ctx, "blockstructure:"+cacheKey(course, version), raw, c.ttl)
}

func encodeStructure(cs *CollectedStructure) *encodedStructure {
	enc := &encodedStructure{
		Root:      cs.root.String(),
		Requested: cs.requested,
		Blocks:    make([]encodedBlock, 0, len(cs.order)),
	}
	for _, k := range cs.order {
		eb := encodedBlock{Key: k.String()}
		for _, c := range cs.children[k] {
			eb.Children = append(eb.Children, c.String())
		}
		for fk, v := range cs.values {
			if fk.block == k {
				if eb.Fields == nil {
					eb.Fields = map[string]any{}
				}
				eb.Fields[fk.field] = v
			}
		}
		enc.Blocks = append(enc.Blocks, eb)
	}
	return enc
}

func decodeStructure(enc *encodedStructure) (*CollectedStructure, error) {
	root, err := ParseBlockKey(enc.Root)
	if err != nil {
		return nil, err
	}
	cs := &CollectedStructure{
		root:      root,
		course:    root.Course,
		children:  map[BlockKey][]BlockKey{},
		parents:   map[BlockKey]BlockKey{},
		values:    map[fieldKey]any{},
		requested: enc.Requested,
	}
	for _, eb := range enc.Blocks {
		k, err := ParseBlockKey(eb.Key)
		if err != nil {
			return nil, err
		}
		cs.order = append(cs.order, k)
		for _, cstr := range eb.Children {
			ck, err := ParseBlockKey(cstr)
			if err != nil {
				return nil, err
			}
			cs.children[k] = append(cs.children[k], ck)
			cs.parents[ck] = k
		}
		for f, v := range eb.Fields {
			cs.values[fieldKey{k, f}] = v
		}
	}
	return cs, nil
}
