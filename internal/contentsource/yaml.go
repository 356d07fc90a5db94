package contentsource

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mind-engage/mindengage-courseware/internal/blocks"
)

// Course manifests are declarative YAML files, one per course run:
//
//	course: course-v1:MindEngage+CS101+2026
//	version: "3"
//	root: Overview
//	blocks:
//	  - name: Overview
//	    type: course
//	    children: [Intro, Exam1]
//	  - name: Intro
//	    type: sequential
//	  - name: Exam1
//	    type: sequential
//	    fields:
//	      is_proctored_enabled: true
//
// Children reference block names within the same manifest.
type manifest struct {
	Course  string          `yaml:"course"`
	Version string          `yaml:"version"`
	Root    string          `yaml:"root"`
	Blocks  []manifestBlock `yaml:"blocks"`
}

type manifestBlock struct {
	Name     string         `yaml:"name"`
	Type     string         `yaml:"type"`
	Children []string       `yaml:"children"`
	Fields   map[string]any `yaml:"fields"`
}

// LoadCourse parses one manifest into a validated block structure.
func LoadCourse(r io.Reader) (*blocks.BlockStructure, string, error) {
	var m manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return nil, "", fmt.Errorf("contentsource: decode manifest: %w", err)
	}
	course := blocks.CourseKey(m.Course)
	types := make(map[string]blocks.BlockType, len(m.Blocks))
	for _, b := range m.Blocks {
		types[b.Name] = blocks.BlockType(b.Type)
	}
	key := func(name string) (blocks.BlockKey, error) {
		t, ok := types[name]
		if !ok {
			return blocks.BlockKey{}, fmt.Errorf("contentsource: manifest references unknown block %q", name)
		}
		return blocks.NewBlockKey(course, t, name), nil
	}
	raw := make([]blocks.Block, 0, len(m.Blocks))
	for _, b := range m.Blocks {
		k, err := key(b.Name)
		if err != nil {
			return nil, "", err
		}
		blk := blocks.Block{Key: k, Fields: b.Fields}
		for _, c := range b.Children {
			ck, err := key(c)
			if err != nil {
				return nil, "", err
			}
			blk.Children = append(blk.Children, ck)
		}
		raw = append(raw, blk)
	}
	rootName := m.Root
	if rootName == "" && len(m.Blocks) > 0 {
		rootName = m.Blocks[0].Name
	}
	root, err := key(rootName)
	if err != nil {
		return nil, "", err
	}
	tree, err := blocks.NewStructure(root, raw)
	if err != nil {
		return nil, "", err
	}
	return tree, m.Version, nil
}

// LoadDir registers every *.yaml manifest under dir into a provider.
func LoadDir(dir string) (*MemoryProvider, error) {
	p := NewMemoryProvider()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}
		f, err := os.Open(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		tree, version, err := LoadCourse(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("contentsource: %s: %w", e.Name(), err)
		}
		p.Register(tree, version)
	}
	return p, nil
}
