package state

import (
	"errors"
	"testing"
	"time"

	planx "github.com/tanpawarit/Chative-Finance-Assistant/agent/plan"
)

func twoTaskPlan() planx.TaskPlan {
	return planx.TaskPlan{
		Tasks: []planx.Task{
			{Name: "News", Kind: planx.KindNews, Instruction: "tax news"},
			{Name: "Document_qna", Kind: planx.KindDocumentQA, Instruction: "summarise", Dependencies: []string{"News"}},
		},
		Reasoning: "news then document",
	}
}

func TestSessionStateWalksPlanInOrder(t *testing.T) {
	t.Parallel()

	st := NewSessionState("s1", "u1", "summarise and relate", time.Now())
	if err := st.SetPlan(twoTaskPlan()); err != nil {
		t.Fatalf("SetPlan() error = %v", err)
	}

	task, err := st.Begin()
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if task.Name != "News" || st.Phase() != PhaseRunning {
		t.Fatalf("unexpected running task=%s phase=%s", task.Name, st.Phase())
	}
	if _, err := st.Begin(); err == nil {
		t.Fatal("Begin() twice must fail")
	}

	phase, err := st.Advance(TaskResult{TaskName: "News", Output: "rates unchanged"})
	if err != nil || phase != PhaseCompleted {
		t.Fatalf("Advance() = %s, %v", phase, err)
	}
	if st.Cursor() != 1 || st.Phase() != PhasePending {
		t.Fatalf("cursor=%d phase=%s", st.Cursor(), st.Phase())
	}

	if _, err := st.Begin(); err != nil {
		t.Fatalf("Begin() second task error = %v", err)
	}
	phase, err = st.Advance(TaskResult{TaskName: "Document_qna", Output: "diagnostic", Error: "no document"})
	if err != nil || phase != PhaseFailed {
		t.Fatalf("Advance() = %s, %v", phase, err)
	}
	if !st.Done() {
		t.Fatalf("phase = %s, want all_done", st.Phase())
	}

	results := st.Results()
	if len(results) != 2 || results[0].TaskName != "News" || results[1].TaskName != "Document_qna" {
		t.Fatalf("unexpected results: %#v", results)
	}
	if results[1].Kind != planx.KindDocumentQA {
		t.Fatalf("result kind = %s", results[1].Kind)
	}
}

func TestSessionStateRejectsMismatchedResult(t *testing.T) {
	t.Parallel()

	st := NewSessionState("s1", "u1", "q", time.Now())
	if err := st.SetPlan(twoTaskPlan()); err != nil {
		t.Fatalf("SetPlan() error = %v", err)
	}
	if _, err := st.Advance(TaskResult{TaskName: "News"}); !errors.Is(err, ErrTaskNotRunning) {
		t.Fatalf("Advance() before Begin error = %v", err)
	}
	if _, err := st.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if _, err := st.Advance(TaskResult{TaskName: "Law_qna"}); !errors.Is(err, ErrTaskMismatch) {
		t.Fatalf("Advance() error = %v, want ErrTaskMismatch", err)
	}
}

func TestSessionStatePlanLockedAfterDispatch(t *testing.T) {
	t.Parallel()

	st := NewSessionState("s1", "u1", "q", time.Now())
	if err := st.SetPlan(twoTaskPlan()); err != nil {
		t.Fatalf("SetPlan() error = %v", err)
	}
	if _, err := st.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := st.SetPlan(planx.Fallback("q", "")); !errors.Is(err, ErrPlanLocked) {
		t.Fatalf("SetPlan() error = %v, want ErrPlanLocked", err)
	}
}

func TestSessionStateRejectsInvalidPlan(t *testing.T) {
	t.Parallel()

	st := NewSessionState("s1", "u1", "q", time.Now())
	err := st.SetPlan(planx.TaskPlan{})
	if !errors.Is(err, planx.ErrEmptyPlan) {
		t.Fatalf("SetPlan() error = %v, want ErrEmptyPlan", err)
	}
	if st.HasPlan() {
		t.Fatal("invalid plan must not be installed")
	}
}

func TestFinalAnswerIsWriteOnce(t *testing.T) {
	t.Parallel()

	st := NewSessionState("s1", "u1", "q", time.Now())
	if _, ok := st.FinalAnswer(); ok {
		t.Fatal("final answer must start empty")
	}
	if err := st.SetFinalAnswer("first"); err != nil {
		t.Fatalf("SetFinalAnswer() error = %v", err)
	}
	if err := st.SetFinalAnswer("second"); !errors.Is(err, ErrFinalAnswerSet) {
		t.Fatalf("second SetFinalAnswer() error = %v", err)
	}
	if got, _ := st.FinalAnswer(); got != "first" {
		t.Fatalf("FinalAnswer() = %q, want first", got)
	}
	if snap := st.Snapshot(); snap.FinalAnswer != "first" {
		t.Fatalf("snapshot final answer = %q", snap.FinalAnswer)
	}
}

func TestSeparateSessionsDoNotShareOutputs(t *testing.T) {
	t.Parallel()

	a := NewSessionState("a", "u", "q", time.Now())
	b := NewSessionState("b", "u", "q", time.Now())
	for _, st := range []*SessionState{a, b} {
		if err := st.SetPlan(planx.Fallback("q", "")); err != nil {
			t.Fatalf("SetPlan() error = %v", err)
		}
	}
	if _, err := a.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if _, err := a.Advance(TaskResult{TaskName: "General_qna", Output: "A"}); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if len(b.Outputs()) != 0 {
		t.Fatal("outputs leaked across sessions")
	}
}
