package state

import (
	"errors"
	"fmt"
	"time"

	planx "github.com/tanpawarit/Chative-Finance-Assistant/agent/plan"
)

// TaskResult is the recorded outcome of one task. When Error is set, Output
// still carries a readable diagnostic that aggregation can use.
type TaskResult struct {
	TaskName string         `json:"task_name"`
	Kind     planx.ToolKind `json:"kind"`
	Output   string         `json:"output"`
	Error    string         `json:"error,omitempty"`
	Duration time.Duration  `json:"duration_ns,omitempty"`
}

func (r TaskResult) Failed() bool {
	return r.Error != ""
}

// Phase is the dispatch state of the task under the cursor.
type Phase string

const (
	PhasePending   Phase = "pending"
	PhaseRunning   Phase = "running"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
	PhaseAllDone   Phase = "all_done"
)

// SessionState is the per-turn record threaded through routing, dispatch,
// aggregation and persistence. One in-flight request owns it.
// The cursor and outputs move only through Begin/Advance; the final answer
// is written once.
type SessionState struct {
	// Identity
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`

	// Turn input
	OriginalQuery string              `json:"original_query"`
	History       []Message           `json:"conversation_history,omitempty"`
	Memory        ConversationContext `json:"memory_context"`
	Attachments   Attachments         `json:"attachments,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`

	plan        planx.TaskPlan
	planSet     bool
	cursor      int
	phase       Phase
	outputs     map[string]TaskResult
	finalAnswer *string
}

var (
	ErrNilSessionState = errors.New("session state is nil")
	ErrPlanLocked      = errors.New("plan cannot change once dispatch started")
	ErrNoPlan          = errors.New("session has no plan")
	ErrNoPendingTask   = errors.New("no pending task")
	ErrTaskNotRunning  = errors.New("task is not running")
	ErrTaskMismatch    = errors.New("result does not match the running task")
	ErrFinalAnswerSet  = errors.New("final answer already written")
)

func NewSessionState(sessionID, userID, query string, now time.Time) *SessionState {
	return &SessionState{
		SessionID:     sessionID,
		UserID:        userID,
		OriginalQuery: query,
		CreatedAt:     now.UTC(),
		phase:         PhasePending,
		outputs:       make(map[string]TaskResult, 4),
	}
}

/* ------------------------------- Plan ----------------------------------- */

// SetPlan installs a validated plan. It fails once dispatch has started.
func (s *SessionState) SetPlan(p planx.TaskPlan) error {
	if s == nil {
		return ErrNilSessionState
	}
	if s.cursor > 0 || s.phase != PhasePending || len(s.outputs) > 0 {
		return ErrPlanLocked
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("install plan: %w", err)
	}
	s.plan = p
	s.planSet = true
	return nil
}

func (s *SessionState) Plan() planx.TaskPlan {
	if s == nil {
		return planx.TaskPlan{}
	}
	return s.plan
}

func (s *SessionState) HasPlan() bool {
	return s != nil && s.planSet
}

/* ----------------------------- Dispatch --------------------------------- */

func (s *SessionState) Cursor() int {
	if s == nil {
		return 0
	}
	return s.cursor
}

func (s *SessionState) Phase() Phase {
	if s == nil {
		return PhasePending
	}
	if s.planSet && s.cursor >= len(s.plan.Tasks) {
		return PhaseAllDone
	}
	return s.phase
}

func (s *SessionState) Done() bool {
	return s.Phase() == PhaseAllDone
}

// Current returns the task under the cursor.
func (s *SessionState) Current() (planx.Task, bool) {
	if s == nil || !s.planSet || s.cursor >= len(s.plan.Tasks) {
		return planx.Task{}, false
	}
	return s.plan.Tasks[s.cursor], true
}

// Begin moves the task under the cursor from Pending to Running.
func (s *SessionState) Begin() (planx.Task, error) {
	if s == nil {
		return planx.Task{}, ErrNilSessionState
	}
	if !s.planSet {
		return planx.Task{}, ErrNoPlan
	}
	task, ok := s.Current()
	if !ok {
		return planx.Task{}, ErrNoPendingTask
	}
	if s.phase == PhaseRunning {
		return planx.Task{}, fmt.Errorf("%w: %s is already running", ErrNoPendingTask, task.Name)
	}
	s.phase = PhaseRunning
	return task, nil
}

// Advance records the running task's result and moves the cursor on.
// The returned phase is Completed or Failed for the finished task.
func (s *SessionState) Advance(result TaskResult) (Phase, error) {
	if s == nil {
		return "", ErrNilSessionState
	}
	task, ok := s.Current()
	if !ok || s.phase != PhaseRunning {
		return "", ErrTaskNotRunning
	}
	if result.TaskName != task.Name {
		return "", fmt.Errorf("%w: running=%s result=%s", ErrTaskMismatch, task.Name, result.TaskName)
	}
	result.Kind = task.Kind

	s.outputs[task.Name] = result
	s.cursor++
	s.phase = PhasePending

	if result.Failed() {
		return PhaseFailed, nil
	}
	return PhaseCompleted, nil
}

func (s *SessionState) Output(name string) (TaskResult, bool) {
	if s == nil {
		return TaskResult{}, false
	}
	r, ok := s.outputs[name]
	return r, ok
}

// Outputs returns a copy of the recorded results keyed by task name.
func (s *SessionState) Outputs() map[string]TaskResult {
	if s == nil {
		return map[string]TaskResult{}
	}
	out := make(map[string]TaskResult, len(s.outputs))
	for k, v := range s.outputs {
		out[k] = v
	}
	return out
}

// Results returns recorded results in plan order.
func (s *SessionState) Results() []TaskResult {
	if s == nil {
		return nil
	}
	results := make([]TaskResult, 0, len(s.outputs))
	for _, t := range s.plan.Tasks {
		if r, ok := s.outputs[t.Name]; ok {
			results = append(results, r)
		}
	}
	return results
}

/* ---------------------------- Final answer ------------------------------ */

func (s *SessionState) SetFinalAnswer(answer string) error {
	if s == nil {
		return ErrNilSessionState
	}
	if s.finalAnswer != nil {
		return ErrFinalAnswerSet
	}
	s.finalAnswer = &answer
	return nil
}

func (s *SessionState) FinalAnswer() (string, bool) {
	if s == nil || s.finalAnswer == nil {
		return "", false
	}
	return *s.finalAnswer, true
}

/* ------------------------------ Snapshot -------------------------------- */

// Snapshot is the serialisable view of a finished or in-flight turn.
type Snapshot struct {
	SessionID     string              `json:"session_id"`
	UserID        string              `json:"user_id"`
	OriginalQuery string              `json:"original_query"`
	History       []Message           `json:"conversation_history,omitempty"`
	Memory        ConversationContext `json:"memory_context"`
	Attachments   Attachments         `json:"attachments,omitempty"`
	Plan          planx.TaskPlan      `json:"plan"`
	Cursor        int                 `json:"cursor"`
	Phase         Phase               `json:"phase"`
	Outputs       []TaskResult        `json:"outputs,omitempty"`
	FinalAnswer   string              `json:"final_answer,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

func (s *SessionState) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	answer, _ := s.FinalAnswer()
	history := make([]Message, len(s.History))
	copy(history, s.History)
	return Snapshot{
		SessionID:     s.SessionID,
		UserID:        s.UserID,
		OriginalQuery: s.OriginalQuery,
		History:       history,
		Memory:        s.Memory,
		Attachments:   s.Attachments,
		Plan:          s.plan,
		Cursor:        s.cursor,
		Phase:         s.Phase(),
		Outputs:       s.Results(),
		FinalAnswer:   answer,
		CreatedAt:     s.CreatedAt,
	}
}
