package plan

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gammazero/toposort"
)

var (
	ErrEmptyPlan          = errors.New("plan has no tasks")
	ErrInvalidKind        = errors.New("task kind is invalid")
	ErrEmptyTaskName      = errors.New("task name is empty")
	ErrDuplicateTask      = errors.New("task name is duplicated")
	ErrSelfDependency     = errors.New("task depends on itself")
	ErrUnknownDependency  = errors.New("task depends on an unknown task")
	ErrForwardDependency  = errors.New("task depends on a later task")
	ErrCyclicDependencies = errors.New("task dependencies contain a cycle")
)

// Task is one step of a plan. Name is unique within its plan.
type Task struct {
	Name         string   `json:"name"`
	Kind         ToolKind `json:"kind"`
	Instruction  string   `json:"instruction"`
	Dependencies []string `json:"dependencies,omitempty"`
}

func (t Task) DependsOn(name string) bool {
	for _, dep := range t.Dependencies {
		if dep == name {
			return true
		}
	}
	return false
}

// TaskPlan is the ordered task list produced once per turn. Reasoning is
// diagnostic only. Fallback marks plans built without a usable router reply.
type TaskPlan struct {
	Tasks     []Task `json:"tasks"`
	Reasoning string `json:"reasoning,omitempty"`
	Fallback  bool   `json:"fallback,omitempty"`
}

const FallbackReasoning = "Fallback to general Q&A"

// Fallback is the single GeneralQA plan over the raw query.
func Fallback(query, reason string) TaskPlan {
	reasoning := FallbackReasoning
	if reason = strings.TrimSpace(reason); reason != "" {
		reasoning += ": " + reason
	}
	return TaskPlan{
		Tasks: []Task{{
			Name:        KindGeneralQA.String(),
			Kind:        KindGeneralQA,
			Instruction: query,
		}},
		Reasoning: reasoning,
		Fallback:  true,
	}
}

func (p TaskPlan) Len() int {
	return len(p.Tasks)
}

func (p TaskPlan) Names() []string {
	names := make([]string, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		names = append(names, t.Name)
	}
	return names
}

func (p TaskPlan) Kinds() []ToolKind {
	kinds := make([]ToolKind, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		kinds = append(kinds, t.Kind)
	}
	return kinds
}

func (p TaskPlan) Task(name string) (Task, bool) {
	for _, t := range p.Tasks {
		if t.Name == name {
			return t, true
		}
	}
	return Task{}, false
}

// Validate checks the execution invariants: at least one task, unique
// names, valid kinds, and dependencies that only point backwards.
func (p TaskPlan) Validate() error {
	if len(p.Tasks) == 0 {
		return ErrEmptyPlan
	}
	if err := checkGraph(p.Tasks); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(p.Tasks))
	for _, t := range p.Tasks {
		for _, dep := range t.Dependencies {
			if _, ok := seen[dep]; !ok {
				return fmt.Errorf("%w: %s -> %s", ErrForwardDependency, t.Name, dep)
			}
		}
		seen[t.Name] = struct{}{}
	}
	return nil
}

// Arrange returns tasks reordered so every dependency precedes its
// dependents. Among ready tasks the original order wins, so an already
// valid order is returned unchanged. Cycles and self references fail.
func Arrange(tasks []Task) ([]Task, error) {
	if len(tasks) == 0 {
		return nil, ErrEmptyPlan
	}
	if err := checkGraph(tasks); err != nil {
		return nil, err
	}

	index := make(map[string]int, len(tasks))
	for i, t := range tasks {
		index[t.Name] = i
	}
	pending := make([]int, len(tasks))
	dependents := make(map[string][]int, len(tasks))
	for i, t := range tasks {
		pending[i] = len(t.Dependencies)
		for _, dep := range t.Dependencies {
			dependents[dep] = append(dependents[dep], i)
		}
	}

	ready := make([]int, 0, len(tasks))
	for i := range tasks {
		if pending[i] == 0 {
			ready = append(ready, i)
		}
	}

	out := make([]Task, 0, len(tasks))
	for len(ready) > 0 {
		sort.Ints(ready)
		next := ready[0]
		ready = ready[1:]
		out = append(out, tasks[next])
		for _, d := range dependents[tasks[next].Name] {
			pending[d]--
			if pending[d] == 0 {
				ready = append(ready, d)
			}
		}
	}
	if len(out) != len(tasks) {
		return nil, ErrCyclicDependencies
	}
	return out, nil
}

// Prune removes every task for which drop reports true, together with
// any dependency edges that pointed at a removed task.
func Prune(tasks []Task, drop func(Task) bool) (kept []Task, dropped []Task) {
	removed := make(map[string]struct{})
	for _, t := range tasks {
		if drop(t) {
			removed[t.Name] = struct{}{}
			dropped = append(dropped, t)
			continue
		}
		kept = append(kept, t)
	}
	if len(removed) == 0 {
		return kept, nil
	}
	for i := range kept {
		deps := kept[i].Dependencies[:0:0]
		for _, dep := range kept[i].Dependencies {
			if _, gone := removed[dep]; !gone {
				deps = append(deps, dep)
			}
		}
		kept[i].Dependencies = deps
	}
	return kept, dropped
}

func checkGraph(tasks []Task) error {
	names := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if strings.TrimSpace(t.Name) == "" {
			return ErrEmptyTaskName
		}
		if !t.Kind.Valid() {
			return fmt.Errorf("%w: task=%s", ErrInvalidKind, t.Name)
		}
		if _, dup := names[t.Name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateTask, t.Name)
		}
		names[t.Name] = struct{}{}
	}

	edges := make([]toposort.Edge, 0, len(tasks))
	for _, t := range tasks {
		if len(t.Dependencies) == 0 {
			edges = append(edges, toposort.Edge{nil, t.Name})
			continue
		}
		for _, dep := range t.Dependencies {
			if dep == t.Name {
				return fmt.Errorf("%w: %s", ErrSelfDependency, t.Name)
			}
			if _, ok := names[dep]; !ok {
				return fmt.Errorf("%w: %s -> %s", ErrUnknownDependency, t.Name, dep)
			}
			edges = append(edges, toposort.Edge{dep, t.Name})
		}
	}

	if _, err := toposort.Toposort(edges); err != nil {
		return fmt.Errorf("%w: %v", ErrCyclicDependencies, err)
	}
	return nil
}
