package grading

import (
	"context"
	"testing"

	"github.com/mind-engage/mindengage-courseware/internal/blocks"
)

func grade(t *testing.T, p Problem, response any) Result {
	t.Helper()
	res, err := NewDefaultGrader().Grade(context.Background(), p, response)
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	return res
}

func TestExactStrategies(t *testing.T) {
	p := Problem{Type: "mcq_single", Points: 2, AnswerKey: []string{"B"}}
	if res := grade(t, p, "B"); res.Earned != 2 || res.Possible != 2 {
		t.Fatalf("correct answer: %+v", res)
	}
	if res := grade(t, p, "C"); res.Earned != 0 || res.Possible != 2 {
		t.Fatalf("wrong answer: %+v", res)
	}
	tf := Problem{Type: "true_false", Points: 1, AnswerKey: []string{"true"}}
	if res := grade(t, tf, "true"); res.Earned != 1 {
		t.Fatalf("true_false: %+v", res)
	}
}

func TestNumericTolerances(t *testing.T) {
	cases := []struct {
		name     string
		key      []string
		response string
		earned   float64
	}{
		{"exact string", []string{"3.14159"}, "3.14159", 1},
		{"within abs tol", []string{"3.14159", "tol=0.01"}, "3.14", 1},
		{"outside abs tol", []string{"3.14159", "tol=0.001"}, "3.1", 0},
		{"within rel tol", []string{"100", "reltol=0.05"}, "97", 1},
		{"outside rel tol", []string{"100", "reltol=0.05"}, "90", 0},
		{"equal values no tol", []string{"2.5"}, " 2.50 ", 1},
		{"not a number", []string{"2.5"}, "two and a half", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Problem{Type: "numeric", Points: 1, AnswerKey: tc.key}
			if res := grade(t, p, tc.response); res.Earned != tc.earned {
				t.Fatalf("got %+v, want earned=%v", res, tc.earned)
			}
		})
	}
}

func TestShortWordMatching(t *testing.T) {
	p := Problem{Type: "short_word", Points: 2, AnswerKey: []string{"mitochondria"}}
	if res := grade(t, p, "  Mitochondria! "); res.Earned != 2 {
		t.Fatalf("normalized match: %+v", res)
	}
	// one edit away earns half credit, two edits nothing
	if res := grade(t, p, "mitochondri"); res.Earned != 1 {
		t.Fatalf("one deletion should earn half: %+v", res)
	}
	if res := grade(t, p, "mitochondira"); res.Earned != 0 {
		t.Fatalf("transposition is two edits: %+v", res)
	}
	if res := grade(t, p, "chloroplast"); res.Earned != 0 {
		t.Fatalf("unrelated word: %+v", res)
	}
}

func TestUnknownTypeEarnsNothing(t *testing.T) {
	p := Problem{Type: "essay", Points: 5}
	res := grade(t, p, "a long answer")
	if res.Earned != 0 || res.Possible != 5 {
		t.Fatalf("unknown type: %+v", res)
	}
}

func TestNonStringResponseErrors(t *testing.T) {
	p := Problem{Type: "mcq_single", Points: 1, AnswerKey: []string{"A"}}
	if _, err := NewDefaultGrader().Grade(context.Background(), p, 42); err == nil {
		t.Fatalf("expected error for non-string response")
	}
}

const aggCourse = blocks.CourseKey("course-v1:MindEngage+AGG+2026")

func aggKey(typ blocks.BlockType, name string) blocks.BlockKey {
	return blocks.NewBlockKey(aggCourse, typ, name)
}

func aggTree(t *testing.T) *blocks.BlockStructure {
	t.Helper()
	root := aggKey(blocks.TypeCourse, "course")
	seq := aggKey(blocks.TypeSequential, "sub")
	html := aggKey(blocks.TypeHTML, "intro")
	p1 := aggKey(blocks.TypeProblem, "p1")
	p2 := aggKey(blocks.TypeProblem, "p2")
	s, err := blocks.NewStructure(root, []blocks.Block{
		{Key: root, Children: []blocks.BlockKey{seq}},
		{Key: seq, Children: []blocks.BlockKey{html, p1, p2}},
		{Key: html},
		{Key: p1, Fields: map[string]any{"points": 1}},
		{Key: p2, Fields: map[string]any{"points": 3}},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return s
}

func TestAggregateCountsUnansweredAsPossible(t *testing.T) {
	tree := aggTree(t)
	scores := NewMemoryScoreStore()
	agg := NewSubtreeAggregator(scores)
	ctx := context.Background()

	// only p1 answered: 1 earned of 4 possible
	scores.RecordScore(ctx, "u1", aggKey(blocks.TypeProblem, "p1"), Score{Earned: 1, Possible: 1})
	ratio, ok, err := agg.AggregateScore(ctx, "u1", aggKey(blocks.TypeSequential, "sub"), tree)
	if err != nil || !ok {
		t.Fatalf("aggregate: ok=%v err=%v", ok, err)
	}
	if ratio != 0.25 {
		t.Fatalf("expected 0.25, got %v", ratio)
	}

	scores.RecordScore(ctx, "u1", aggKey(blocks.TypeProblem, "p2"), Score{Earned: 3, Possible: 3})
	ratio, ok, _ = agg.AggregateScore(ctx, "u1", aggKey(blocks.TypeSequential, "sub"), tree)
	if !ok || ratio != 1 {
		t.Fatalf("expected 1.0, got %v ok=%v", ratio, ok)
	}
}

func TestAggregateNothingScorable(t *testing.T) {
	tree := aggTree(t)
	agg := NewSubtreeAggregator(NewMemoryScoreStore())
	// html subtree holds no problems
	_, ok, err := agg.AggregateScore(context.Background(), "u1", aggKey(blocks.TypeHTML, "intro"), tree)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for subtree with nothing scorable")
	}
}
