package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
	planx "github.com/tanpawarit/Chative-Finance-Assistant/agent/plan"
	statex "github.com/tanpawarit/Chative-Finance-Assistant/agent/state"
)

const DefaultMaxDependencyChars = 4000

var _ contractx.Dispatcher = (*Dispatcher)(nil)

type Config struct {
	MaxDependencyChars int `envconfig:"MAX_DEPENDENCY_CHARS" default:"4000"`
}

// Dispatcher runs a plan's tasks strictly in order, one at a time.
type Dispatcher struct {
	catalog     contractx.ToolCatalog
	window      statex.Window
	maxDepChars int
}

func New(catalog contractx.ToolCatalog, window statex.Window, cfg Config) (*Dispatcher, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: tool catalog is required", contractx.ErrValidation)
	}
	maxDep := cfg.MaxDependencyChars
	if maxDep <= 0 {
		maxDep = DefaultMaxDependencyChars
	}
	return &Dispatcher{catalog: catalog, window: window, maxDepChars: maxDep}, nil
}

// Execute walks the plan from the cursor to the end. A failed task records
// its diagnostic and the next task still runs.
func (d *Dispatcher) Execute(ctx context.Context, st *statex.SessionState) *statex.SessionState {
	if st == nil || !st.HasPlan() {
		return st
	}
	logger := log.With().
		Str("component", "dispatcher").
		Str("session_id", st.SessionID).
		Logger()

	history := d.window.Apply(st.History)
	for !st.Done() {
		task, err := st.Begin()
		if err != nil {
			logger.Error().Err(err).Int("cursor", st.Cursor()).Msg("cannot start task")
			return st
		}

		depContext := d.dependencyContext(st, task, logger)
		req := contractx.ToolRequest{
			TaskName:          task.Name,
			Kind:              task.Kind,
			Instruction:       augment(task.Instruction, depContext),
			BaseInstruction:   task.Instruction,
			DependencyContext: depContext,
			Attachments:       st.Attachments,
			History:           history,
			UserID:            st.UserID,
			SessionID:         st.SessionID,
		}

		started := time.Now()
		output, err := d.invoke(ctx, req)
		result := statex.TaskResult{TaskName: task.Name, Output: output, Duration: time.Since(started)}
		if err != nil {
			result.Error = err.Error()
			result.Output = fmt.Sprintf("%s failed: %s", task.Kind, readable(err))
		}

		phase, err := st.Advance(result)
		if err != nil {
			logger.Error().Err(err).Str("task", task.Name).Msg("cannot record task result")
			return st
		}

		ev := logger.Info()
		if phase == statex.PhaseFailed {
			ev = logger.Warn().Str("error", result.Error)
		}
		ev.Str("task", task.Name).
			Str("kind", task.Kind.String()).
			Str("phase", string(phase)).
			Dur("duration", result.Duration).
			Msg("task finished")
	}
	return st
}

func (d *Dispatcher) invoke(ctx context.Context, req contractx.ToolRequest) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = contractx.NewToolError(req.Kind, "tool crashed", fmt.Errorf("panic: %v", r))
		}
	}()

	adapter, err := pickAdapter(req.Kind, d.catalog)
	if err != nil {
		return "", err
	}
	return adapter.Invoke(ctx, req)
}

func pickAdapter(kind planx.ToolKind, catalog contractx.ToolCatalog) (contractx.ToolAdapter, error) {
	var adapter contractx.ToolAdapter
	switch kind {
	case planx.KindDocumentQA:
		adapter = catalog.DocumentQA()
	case planx.KindNews:
		adapter = catalog.News()
	case planx.KindGeneralQA:
		adapter = catalog.GeneralQA()
	case planx.KindImageQA:
		adapter = catalog.ImageQA()
	case planx.KindLawQA:
		adapter = catalog.LawQA()
	default:
		return nil, contractx.NewToolError(kind, "unsupported tool", planx.ErrInvalidKind)
	}
	if adapter == nil {
		return nil, contractx.NewToolError(kind, "tool is not configured", contractx.ErrToolUnavailable)
	}
	return adapter, nil
}

// dependencyContext renders one labeled excerpt per dependency that has
// already produced output. Missing ones are logged and skipped.
func (d *Dispatcher) dependencyContext(st *statex.SessionState, task planx.Task, logger zerolog.Logger) string {
	if len(task.Dependencies) == 0 {
		return ""
	}
	parts := make([]string, 0, len(task.Dependencies))
	for _, dep := range task.Dependencies {
		res, ok := st.Output(dep)
		if !ok {
			logger.Warn().Str("task", task.Name).Str("dependency", dep).Msg("dependency output missing, skipping")
			continue
		}
		parts = append(parts, fmt.Sprintf("Dependency: %s output:\n%s", dep, excerpt(res.Output, d.maxDepChars)))
	}
	return strings.Join(parts, "\n\n")
}

func augment(instruction, depContext string) string {
	if depContext == "" {
		return instruction
	}
	return instruction + "\n\n" + depContext
}

func excerpt(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// readable prefers the adapter's user-facing message over the wrapped chain.
func readable(err error) string {
	var te *contractx.ToolError
	if errors.As(err, &te) && te.Message != "" {
		return te.Message
	}
	return err.Error()
}
