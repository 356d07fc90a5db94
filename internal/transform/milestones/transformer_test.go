package milestones_test

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/mind-engage/mindengage-courseware/internal/access"
	"github.com/mind-engage/mindengage-courseware/internal/blocks"
	"github.com/mind-engage/mindengage-courseware/internal/contentsource"
	"github.com/mind-engage/mindengage-courseware/internal/gating"
	"github.com/mind-engage/mindengage-courseware/internal/grading"
	"github.com/mind-engage/mindengage-courseware/internal/proctoring"
	"github.com/mind-engage/mindengage-courseware/internal/transform"
	"github.com/mind-engage/mindengage-courseware/internal/transform/milestones"
)

const course = blocks.CourseKey("course-v1:MindEngage+PE101F+2026")

var allBlocks = []string{
	"course", "A", "B", "C",
	"TimedExam", "D", "E",
	"PracticeExam", "F", "G",
	"NotASpecialExam", "H",
}

func bk(t blocks.BlockType, name string) blocks.BlockKey {
	return blocks.NewBlockKey(course, t, name)
}

//	              course
//	      /      |         |        \
//	     A   TimedExam PracticeExam NotASpecialExam
//	    / \     / \       / \         |
//	   B   C   D   E     F   G        H
func examCourse(t *testing.T) *blocks.BlockStructure {
	t.Helper()
	root := bk(blocks.TypeCourse, "course")
	seq := func(name string) blocks.BlockKey { return bk(blocks.TypeSequential, name) }
	vert := func(name string) blocks.BlockKey { return bk(blocks.TypeVertical, name) }
	raw := []blocks.Block{
		{Key: root, Children: []blocks.BlockKey{seq("A"), seq("TimedExam"), seq("PracticeExam"), seq("NotASpecialExam")}},
		{Key: seq("A"), Children: []blocks.BlockKey{vert("B"), vert("C")}},
		{
			Key:      seq("TimedExam"),
			Fields:   map[string]any{"is_proctored_enabled": true, "is_practice_exam": false},
			Children: []blocks.BlockKey{vert("D"), vert("E")},
		},
		{
			Key:      seq("PracticeExam"),
			Fields:   map[string]any{"is_proctored_enabled": true, "is_practice_exam": true},
			Children: []blocks.BlockKey{vert("F"), vert("G")},
		},
		{Key: seq("NotASpecialExam"), Children: []blocks.BlockKey{vert("H")}},
		{Key: vert("B")}, {Key: vert("C")}, {Key: vert("D")}, {Key: vert("E")},
		{Key: vert("F")}, {Key: vert("G")}, {Key: vert("H")},
	}
	s, err := blocks.NewStructure(root, raw)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return s
}

type env struct {
	pipeline *transform.Pipeline
	gates    *gating.Service
	exams    *proctoring.MemoryOracle
	roles    *access.MemoryRoleStore
	scores   *grading.MemoryScoreStore
}

func newEnv(t *testing.T, specialExams bool) *env {
	t.Helper()
	provider := contentsource.NewMemoryProvider()
	provider.Register(examCourse(t), "v1")

	scores := grading.NewMemoryScoreStore()
	gates := gating.NewService(gating.NewMemoryStore(), provider, grading.NewSubtreeAggregator(scores))
	exams := proctoring.NewMemoryOracle()
	roles := access.NewMemoryRoleStore()

	p := transform.NewPipeline(provider, nil)
	err := p.Register(milestones.New(
		milestones.Config{EnableSpecialExams: specialExams}, exams, gates, roles))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return &env{pipeline: p, gates: gates, exams: exams, roles: roles, scores: scores}
}

func (e *env) visible(t *testing.T, user access.UserContext) []string {
	t.Helper()
	fs, err := e.pipeline.GetCourseBlocks(context.Background(), user, bk(blocks.TypeCourse, "course"))
	if err != nil {
		t.Fatalf("get course blocks: %v", err)
	}
	var names []string
	for _, k := range fs.BlockKeys() {
		names = append(names, k.Name)
	}
	sort.Strings(names)
	return names
}

func expectVisible(t *testing.T, got []string, want ...string) {
	t.Helper()
	sorted := append([]string(nil), want...)
	sort.Strings(sorted)
	if strings.Join(got, ",") != strings.Join(sorted, ",") {
		t.Fatalf("visible set mismatch:\n got  %v\n want %v", got, sorted)
	}
}

func (e *env) gate(t *testing.T, gated, gatingBlock string, minScore float64) {
	t.Helper()
	ctx := context.Background()
	gk := bk(blocks.TypeSequential, gatingBlock)
	if err := e.gates.AddPrerequisite(ctx, course, gk); err != nil {
		t.Fatalf("add prerequisite: %v", err)
	}
	if err := e.gates.SetRequiredContent(ctx, course, bk(blocks.TypeSequential, gated), gk, minScore); err != nil {
		t.Fatalf("set required content: %v", err)
	}
}

var student = access.UserContext{UserID: "student1"}

func TestNoExamAttemptLeavesExamsVisible(t *testing.T) {
	e := newEnv(t, true)
	expectVisible(t, e.visible(t, student), allBlocks...)
}

func TestExamAttemptStatuses(t *testing.T) {
	minus := func(names ...string) []string {
		drop := map[string]bool{}
		for _, n := range names {
			drop[n] = true
		}
		var out []string
		for _, n := range allBlocks {
			if !drop[n] {
				out = append(out, n)
			}
		}
		return out
	}
	cases := []struct {
		name     string
		exam     string
		status   proctoring.AttemptStatus
		expected []string
	}{
		{"timed declined stays visible", "TimedExam", proctoring.StatusDeclined, allBlocks},
		{"timed submitted excluded", "TimedExam", proctoring.StatusSubmitted, minus("TimedExam", "D", "E")},
		{"timed rejected excluded", "TimedExam", proctoring.StatusRejected, minus("TimedExam", "D", "E")},
		{"timed started excluded", "TimedExam", proctoring.StatusStarted, minus("TimedExam", "D", "E")},
		{"practice declined stays visible", "PracticeExam", proctoring.StatusDeclined, allBlocks},
		{"practice rejected excluded", "PracticeExam", proctoring.StatusRejected, minus("PracticeExam", "F", "G")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t, true)
			e.exams.SetStatus(student.UserID, bk(blocks.TypeSequential, tc.exam), tc.status)
			expectVisible(t, e.visible(t, student), tc.expected...)
		})
	}
}

func TestSpecialExamsFlagOff(t *testing.T) {
	e := newEnv(t, false)
	e.exams.SetStatus(student.UserID, bk(blocks.TypeSequential, "TimedExam"), proctoring.StatusSubmitted)
	expectVisible(t, e.visible(t, student), allBlocks...)
}

func TestDeclinedExamVisibleForAllFlagValues(t *testing.T) {
	for _, flag := range []bool{false, true} {
		e := newEnv(t, flag)
		e.exams.SetStatus(student.UserID, bk(blocks.TypeSequential, "TimedExam"), proctoring.StatusDeclined)
		expectVisible(t, e.visible(t, student), allBlocks...)
	}
}

func TestSpecialExamGatedByAnotherExam(t *testing.T) {
	e := newEnv(t, true)
	e.gate(t, "PracticeExam", "TimedExam", 80)
	// TimedExam incomplete: PracticeExam subtree is gated away while
	// TimedExam's own exam rule is evaluated independently.
	expectVisible(t, e.visible(t, student),
		"course", "A", "B", "C", "TimedExam", "D", "E", "NotASpecialExam", "H")
}

func TestOrdinarySectionGatedByExam(t *testing.T) {
	e := newEnv(t, true)
	e.gate(t, "NotASpecialExam", "TimedExam", 80)
	expectVisible(t, e.visible(t, student),
		"course", "A", "B", "C", "TimedExam", "D", "E", "PracticeExam", "F", "G")
}

func TestStaffBypassIsUniform(t *testing.T) {
	grants := []struct {
		role  access.Role
		scope string
	}{
		{access.GlobalStaff, ""},
		{access.CourseStaff, course.String()},
		{access.OrgStaff, course.Org()},
		{access.CourseInstructor, course.String()},
		{access.OrgInstructor, course.Org()},
	}
	for _, g := range grants {
		t.Run(string(g.role), func(t *testing.T) {
			e := newEnv(t, true)
			staff := access.UserContext{UserID: "staff1"}
			e.roles.Grant(staff.UserID, g.role, g.scope)
			// both rules armed: a rejected exam attempt and a milestone
			e.exams.SetStatus(staff.UserID, bk(blocks.TypeSequential, "TimedExam"), proctoring.StatusRejected)
			e.gate(t, "PracticeExam", "TimedExam", 80)
			expectVisible(t, e.visible(t, staff), allBlocks...)
		})
	}
}

func TestGenericMasqueradeDropsOverride(t *testing.T) {
	e := newEnv(t, true)
	staff := access.UserContext{UserID: "staff1", Masquerade: access.MasqueradeGenericStudent}
	e.roles.Grant(staff.UserID, access.CourseStaff, course.String())
	e.gate(t, "PracticeExam", "TimedExam", 80)
	expectVisible(t, e.visible(t, staff),
		"course", "A", "B", "C", "TimedExam", "D", "E", "NotASpecialExam", "H")
}

func TestPreviewKeepsOverrideDespiteMasquerade(t *testing.T) {
	e := newEnv(t, true)
	staff := access.UserContext{UserID: "staff1", Masquerade: access.MasqueradeGenericStudent, Preview: true}
	e.roles.Grant(staff.UserID, access.CourseStaff, course.String())
	e.gate(t, "PracticeExam", "TimedExam", 80)
	expectVisible(t, e.visible(t, staff), allBlocks...)
}

func TestSpecificMasqueradeMatchesStudentView(t *testing.T) {
	e := newEnv(t, true)
	e.roles.Grant("staff1", access.CourseStaff, course.String())
	// the student has submitted the timed exam and is gated from practice
	e.exams.SetStatus(student.UserID, bk(blocks.TypeSequential, "TimedExam"), proctoring.StatusSubmitted)
	e.gate(t, "PracticeExam", "TimedExam", 80)

	masq := access.UserContext{
		UserID:           "staff1",
		Masquerade:       access.MasqueradeSpecificStudent,
		MasqueradeUserID: student.UserID,
	}
	own := e.visible(t, student)
	seen := e.visible(t, masq)
	expectVisible(t, seen, own...)
}

func TestUnknownPrerequisiteDoesNotGate(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	// relationship points at a block that is not in the tree anymore
	ghost := bk(blocks.TypeSequential, "RemovedSection")
	if err := e.gates.AddPrerequisite(ctx, course, ghost); err != nil {
		t.Fatalf("add prerequisite: %v", err)
	}
	err := e.gates.SetRequiredContent(ctx, course, bk(blocks.TypeSequential, "NotASpecialExam"), ghost, 80)
	if err != nil {
		t.Fatalf("set required content: %v", err)
	}
	expectVisible(t, e.visible(t, student), allBlocks...)
}

func TestAnonymousUserGetsGated(t *testing.T) {
	e := newEnv(t, true)
	e.gate(t, "PracticeExam", "TimedExam", 80)
	expectVisible(t, e.visible(t, access.UserContext{}),
		"course", "A", "B", "C", "TimedExam", "D", "E", "NotASpecialExam", "H")
}
