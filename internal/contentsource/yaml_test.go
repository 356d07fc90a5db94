package contentsource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mind-engage/mindengage-courseware/internal/blocks"
)

const sampleManifest = `
course: course-v1:MindEngage+CS101+2026
version: "3"
root: Overview
blocks:
  - name: Overview
    type: course
    children: [Intro, Exam1]
  - name: Intro
    type: sequential
  - name: Exam1
    type: sequential
    fields:
      is_proctored_enabled: true
      min_points: 10
`

func TestLoadCourse(t *testing.T) {
	tree, version, err := LoadCourse(strings.NewReader(sampleManifest))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if version != "3" {
		t.Fatalf("expected version 3, got %q", version)
	}
	if tree.Len() != 3 {
		t.Fatalf("expected 3 blocks, got %d", tree.Len())
	}
	course := blocks.CourseKey("course-v1:MindEngage+CS101+2026")
	exam := blocks.NewBlockKey(course, blocks.TypeSequential, "Exam1")
	if v, ok := tree.XBlockField(exam, "is_proctored_enabled").(bool); !ok || !v {
		t.Fatalf("field lost: %v", tree.XBlockField(exam, "is_proctored_enabled"))
	}
	// yaml decodes whole numbers as int
	if v, ok := tree.XBlockField(exam, "min_points").(int); !ok || v != 10 {
		t.Fatalf("numeric field: %v", tree.XBlockField(exam, "min_points"))
	}
	root := blocks.NewBlockKey(course, blocks.TypeCourse, "Overview")
	if got := tree.Children(root); len(got) != 2 {
		t.Fatalf("children: %v", got)
	}
}

func TestLoadCourseDefaultsRootToFirstBlock(t *testing.T) {
	m := `
course: course-v1:MindEngage+CS102+2026
version: "1"
blocks:
  - name: Top
    type: course
`
	tree, _, err := LoadCourse(strings.NewReader(m))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := blocks.NewBlockKey("course-v1:MindEngage+CS102+2026", blocks.TypeCourse, "Top")
	if tree.Root() != want {
		t.Fatalf("root: %s", tree.Root())
	}
}

func TestLoadCourseRejectsBadManifests(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{
			"unknown child reference",
			`
course: course-v1:O+C+1
blocks:
  - name: Top
    type: course
    children: [Missing]
`,
		},
		{
			"unknown block type",
			`
course: course-v1:O+C+1
blocks:
  - name: Top
    type: widget
`,
		},
		{
			"not yaml",
			`{{{`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := LoadCourse(strings.NewReader(tc.body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"cs101.yaml": sampleManifest,
		"notes.txt":  "ignored",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	p, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	ctx := context.Background()
	course := blocks.CourseKey("course-v1:MindEngage+CS101+2026")
	if _, err := p.CourseTree(ctx, course); err != nil {
		t.Fatalf("course not registered: %v", err)
	}
	if v, _ := p.CourseVersion(ctx, course); v != "3" {
		t.Fatalf("version: %q", v)
	}
	if _, err := p.CourseTree(ctx, "course-v1:Nope+X+1"); !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
}
