package courseevents_test

import (
	"context"
	"testing"

	"github.com/mind-engage/mindengage-courseware/internal/access"
	"github.com/mind-engage/mindengage-courseware/internal/blocks"
	"github.com/mind-engage/mindengage-courseware/internal/contentsource"
	"github.com/mind-engage/mindengage-courseware/internal/courseevents"
	"github.com/mind-engage/mindengage-courseware/internal/gating"
	"github.com/mind-engage/mindengage-courseware/internal/grading"
	"github.com/mind-engage/mindengage-courseware/internal/proctoring"
	"github.com/mind-engage/mindengage-courseware/internal/transform"
	"github.com/mind-engage/mindengage-courseware/internal/transform/milestones"
)

const course = blocks.CourseKey("course-v1:MindEngage+FLOW+2026")

func bk(t blocks.BlockType, name string) blocks.BlockKey {
	return blocks.NewBlockKey(course, t, name)
}

// chapter → Subsection1{Problem1}, Subsection2{Problem2}.
func flowCourse(t *testing.T) *blocks.BlockStructure {
	t.Helper()
	root := bk(blocks.TypeCourse, "course")
	ch := bk(blocks.TypeChapter, "Chapter")
	sub1 := bk(blocks.TypeSequential, "Subsection1")
	sub2 := bk(blocks.TypeSequential, "Subsection2")
	p1 := bk(blocks.TypeProblem, "Problem1")
	p2 := bk(blocks.TypeProblem, "Problem2")
	s, err := blocks.NewStructure(root, []blocks.Block{
		{Key: root, Children: []blocks.BlockKey{ch}},
		{Key: ch, Children: []blocks.BlockKey{sub1, sub2}},
		{Key: sub1, Children: []blocks.BlockKey{p1}},
		{Key: sub2, Children: []blocks.BlockKey{p2}},
		{Key: p1, Fields: map[string]any{"problem_type": "mcq_single", "points": 1, "answer_key": []string{"B"}}},
		{Key: p2, Fields: map[string]any{"problem_type": "mcq_single", "points": 1, "answer_key": []string{"C"}}},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return s
}

type capturedEvents struct{ events []courseevents.ScoreEvent }

func (c *capturedEvents) Append(_ context.Context, e courseevents.ScoreEvent) error {
	c.events = append(c.events, e)
	return nil
}

// A correct answer on the gating subsection unlocks the gated one in the
// very next blocks read.
func TestScoreUnlocksGatedContent(t *testing.T) {
	ctx := context.Background()
	provider := contentsource.NewMemoryProvider()
	provider.Register(flowCourse(t), "v1")

	scores := grading.NewMemoryScoreStore()
	gates := gating.NewService(gating.NewMemoryStore(), provider, grading.NewSubtreeAggregator(scores))
	events := &capturedEvents{}
	rec := courseevents.NewRecorder(grading.NewDefaultGrader(), scores, events, gates)

	pipeline := transform.NewPipeline(provider, nil)
	err := pipeline.Register(milestones.New(
		milestones.Config{EnableSpecialExams: true},
		proctoring.NewMemoryOracle(), gates, access.NewMemoryRoleStore()))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	sub1 := bk(blocks.TypeSequential, "Subsection1")
	sub2 := bk(blocks.TypeSequential, "Subsection2")
	if err := gates.AddPrerequisite(ctx, course, sub1); err != nil {
		t.Fatalf("add prerequisite: %v", err)
	}
	if err := gates.SetRequiredContent(ctx, course, sub2, sub1, 80); err != nil {
		t.Fatalf("set required content: %v", err)
	}

	user := access.UserContext{UserID: "student1"}
	sequentials := func() int {
		fs, err := pipeline.GetCourseBlocks(ctx, user, bk(blocks.TypeCourse, "course"))
		if err != nil {
			t.Fatalf("get course blocks: %v", err)
		}
		n := 0
		for _, k := range fs.BlockKeys() {
			if k.Type == blocks.TypeSequential {
				n++
			}
		}
		return n
	}

	if got := sequentials(); got != 1 {
		t.Fatalf("expected 1 visible subsection before scoring, got %d", got)
	}

	// wrong answer: gate stays down
	problem := grading.Problem{Type: "mcq_single", Points: 1, AnswerKey: []string{"B"}}
	res, err := rec.SubmitResponse(ctx, user.UserID, bk(blocks.TypeProblem, "Problem1"), problem, "A")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Earned != 0 {
		t.Fatalf("wrong answer earned %v", res.Earned)
	}
	if got := sequentials(); got != 1 {
		t.Fatalf("gate opened on a failing score, %d subsections visible", got)
	}

	// correct answer: 100% >= 80%, gate opens
	res, err = rec.SubmitResponse(ctx, user.UserID, bk(blocks.TypeProblem, "Problem1"), problem, "B")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Earned != 1 {
		t.Fatalf("correct answer earned %v", res.Earned)
	}
	if got := sequentials(); got != 2 {
		t.Fatalf("expected both subsections visible after qualifying score, got %d", got)
	}

	if len(events.events) != 2 {
		t.Fatalf("expected 2 score events, got %d", len(events.events))
	}
	last := events.events[1]
	if last.ID == "" || last.UserID != user.UserID || last.Earned != 1 {
		t.Fatalf("bad event: %+v", last)
	}
}

func TestRecordScoreWithoutEventRepo(t *testing.T) {
	ctx := context.Background()
	provider := contentsource.NewMemoryProvider()
	provider.Register(flowCourse(t), "v1")
	scores := grading.NewMemoryScoreStore()
	gates := gating.NewService(gating.NewMemoryStore(), provider, grading.NewSubtreeAggregator(scores))
	rec := courseevents.NewRecorder(grading.NewDefaultGrader(), scores, nil, gates)

	p1 := bk(blocks.TypeProblem, "Problem1")
	if err := rec.RecordScore(ctx, "student1", p1, grading.Score{Earned: 1, Possible: 1}); err != nil {
		t.Fatalf("record: %v", err)
	}
	s, ok, err := scores.GetScore(ctx, "student1", p1)
	if err != nil || !ok || s.Earned != 1 {
		t.Fatalf("score missing: ok=%v err=%v %+v", ok, err, s)
	}
}
