package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
	planx "github.com/tanpawarit/Chative-Finance-Assistant/agent/plan"
	statex "github.com/tanpawarit/Chative-Finance-Assistant/agent/state"
)

var _ contractx.Router = (*Router)(nil)

// Router turns a user query into a TaskPlan with one model call.
type Router struct {
	llm          contractx.LLM
	systemPrompt string
	window       statex.Window
}

func New(llm contractx.LLM, systemPrompt string, window statex.Window) (*Router, error) {
	if llm == nil {
		return nil, fmt.Errorf("%w: router model is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: router", contractx.ErrPromptMissing)
	}
	return &Router{llm: llm, systemPrompt: systemPrompt, window: window}, nil
}

// Plan never fails: every problem with the model reply degrades to the
// GeneralQA fallback over the raw query.
func (r *Router) Plan(ctx context.Context, req contractx.RouterRequest) planx.TaskPlan {
	query := strings.TrimSpace(req.Query)
	logger := log.With().Str("component", "router").Logger()

	raw, err := r.llm.Complete(ctx, r.systemPrompt, r.userMessage(query, req))
	if err != nil {
		logger.Warn().Err(err).Msg("router model call failed, using fallback plan")
		return planx.Fallback(query, "router model unavailable")
	}

	reply, err := parseRouterReply(raw)
	if err != nil {
		logger.Warn().Err(err).Str("raw", truncate(raw, 300)).Msg("router reply unusable, using fallback plan")
		return planx.Fallback(query, "router reply could not be parsed")
	}

	tasks, err := buildTasks(reply, query, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("router plan invalid, using fallback plan")
		return planx.Fallback(query, err.Error())
	}

	tasks, dropped := planx.Prune(tasks, func(t planx.Task) bool {
		return !req.Attachments.Has(t.Kind.RequiredAttachment())
	})
	for _, t := range dropped {
		logger.Info().
			Str("task", t.Name).
			Str("attachment", string(t.Kind.RequiredAttachment())).
			Msg("dropping task whose attachment is missing")
	}
	if len(tasks) == 0 {
		return planx.Fallback(query, "required attachment is missing")
	}

	ordered, err := planx.Arrange(tasks)
	if err != nil {
		logger.Warn().Err(err).Msg("router dependencies invalid, using fallback plan")
		return planx.Fallback(query, "invalid task dependencies")
	}

	p := planx.TaskPlan{Tasks: ordered, Reasoning: strings.TrimSpace(reply.Reasoning)}
	if err := p.Validate(); err != nil {
		logger.Warn().Err(err).Msg("router plan failed validation, using fallback plan")
		return planx.Fallback(query, "invalid plan")
	}

	logger.Debug().Strs("tasks", p.Names()).Str("reasoning", p.Reasoning).Msg("router plan ready")
	return p
}

func (r *Router) userMessage(query string, req contractx.RouterRequest) string {
	memory := req.Context
	memory.History = r.window.Apply(memory.History)

	var b strings.Builder
	b.WriteString("Available attachments:\n")
	fmt.Fprintf(&b, "- document: %s\n", yesNo(req.Attachments.Has(planx.AttachmentDocument)))
	fmt.Fprintf(&b, "- image: %s\n\n", yesNo(req.Attachments.Has(planx.AttachmentImage)))
	b.WriteString("Conversation context:\n")
	b.WriteString(memory.Render())
	b.WriteString("\n\nUser query: ")
	b.WriteString(query)
	return b.String()
}

var errSelfDependency = errors.New("task depends on itself")

// buildTasks maps reply agents to tasks: unknown tools are dropped, empty
// instructions fall back to the raw query, repeated kinds get "#n" names,
// and dependencies resolve by task name or by tool kind.
func buildTasks(reply routerReply, query string, logger zerolog.Logger) ([]planx.Task, error) {
	type draft struct {
		task    planx.Task
		rawDeps []string
	}

	drafts := make([]draft, 0, len(reply.Agents))
	perKind := make(map[planx.ToolKind]int, len(reply.Agents))
	byName := make(map[string]string, len(reply.Agents))
	firstOfKind := make(map[planx.ToolKind]string, len(reply.Agents))

	for _, agent := range reply.Agents {
		kind := planx.ParseToolKind(agent.Name)
		if !kind.Valid() {
			logger.Warn().Str("tool", agent.Name).Msg("router picked an unknown tool, skipping")
			continue
		}
		perKind[kind]++
		name := kind.String()
		if n := perKind[kind]; n > 1 {
			name = fmt.Sprintf("%s#%d", name, n)
		}

		instruction := strings.TrimSpace(agent.Query)
		if instruction == "" {
			instruction = query
		}

		byName[strings.ToLower(name)] = name
		if _, ok := firstOfKind[kind]; !ok {
			firstOfKind[kind] = name
		}
		drafts = append(drafts, draft{
			task:    planx.Task{Name: name, Kind: kind, Instruction: instruction},
			rawDeps: agent.Dependencies,
		})
	}
	if len(drafts) == 0 {
		return nil, fmt.Errorf("%w: no known tools in reply", contractx.ErrPlanParse)
	}

	tasks := make([]planx.Task, 0, len(drafts))
	for _, d := range drafts {
		seen := make(map[string]struct{}, len(d.rawDeps))
		for _, raw := range d.rawDeps {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			dep, ok := byName[strings.ToLower(raw)]
			if !ok {
				dep, ok = firstOfKind[planx.ParseToolKind(raw)]
			}
			if !ok {
				logger.Warn().Str("task", d.task.Name).Str("dependency", raw).Msg("unknown dependency, skipping")
				continue
			}
			if dep == d.task.Name {
				return nil, fmt.Errorf("%w: %w: %s", contractx.ErrPlanParse, errSelfDependency, dep)
			}
			if _, dup := seen[dep]; dup {
				continue
			}
			seen[dep] = struct{}{}
			d.task.Dependencies = append(d.task.Dependencies, dep)
		}
		tasks = append(tasks, d.task)
	}
	return tasks, nil
}

func yesNo(ok bool) string {
	if ok {
		return "available"
	}
	return "not available"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
