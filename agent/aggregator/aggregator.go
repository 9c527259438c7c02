package aggregator

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
	statex "github.com/tanpawarit/Chative-Finance-Assistant/agent/state"
)

// NoOutputs is returned when there is nothing to combine.
const NoOutputs = "No agent outputs to aggregate."

var _ contractx.Aggregator = (*Aggregator)(nil)

type Aggregator struct {
	llm          contractx.LLM
	systemPrompt string
	window       statex.Window
}

func New(llm contractx.LLM, systemPrompt string, window statex.Window) (*Aggregator, error) {
	if llm == nil {
		return nil, fmt.Errorf("%w: aggregator model is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: aggregator", contractx.ErrPromptMissing)
	}
	return &Aggregator{llm: llm, systemPrompt: systemPrompt, window: window}, nil
}

// Aggregate returns a single output unchanged and synthesises several with
// one model call, degrading to a labeled concatenation when that fails.
func (a *Aggregator) Aggregate(ctx context.Context, req contractx.AggregateRequest) string {
	switch len(req.Outputs) {
	case 0:
		return NoOutputs
	case 1:
		return req.Outputs[0].Output
	}

	answer, err := a.llm.Complete(ctx, a.systemPrompt, a.userMessage(req))
	if err == nil && strings.TrimSpace(answer) == "" {
		err = fmt.Errorf("%w: empty synthesis", contractx.ErrAggregation)
	}
	if err != nil {
		log.Warn().
			Err(fmt.Errorf("%w: %w", contractx.ErrAggregation, err)).
			Int("outputs", len(req.Outputs)).
			Msg("synthesis failed, concatenating tool outputs")
		return Concatenate(req.Outputs)
	}
	return strings.TrimSpace(answer)
}

func (a *Aggregator) userMessage(req contractx.AggregateRequest) string {
	var b strings.Builder
	b.WriteString("Original query: ")
	b.WriteString(strings.TrimSpace(req.Query))
	if r := strings.TrimSpace(req.Reasoning); r != "" {
		b.WriteString("\n\nRouting reasoning: ")
		b.WriteString(r)
	}
	b.WriteString("\n\nTool outputs:\n")
	b.WriteString(labeled(req.Outputs))
	if history := a.window.Apply(req.History); len(history) > 0 {
		b.WriteString("\n\nConversation history:\n")
		b.WriteString(statex.Transcript(history))
	}
	return b.String()
}

// Concatenate joins outputs as "[Task]\n<output>" blocks in plan order.
func Concatenate(outputs []statex.TaskResult) string {
	if len(outputs) == 0 {
		return NoOutputs
	}
	return labeled(outputs)
}

func labeled(outputs []statex.TaskResult) string {
	blocks := make([]string, 0, len(outputs))
	for _, o := range outputs {
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", o.TaskName, strings.TrimSpace(o.Output)))
	}
	return strings.Join(blocks, "\n\n")
}
