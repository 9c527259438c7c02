package tool

import (
	"context"
	"strings"

	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
	planx "github.com/tanpawarit/Chative-Finance-Assistant/agent/plan"
	statex "github.com/tanpawarit/Chative-Finance-Assistant/agent/state"
)

// General answers directly with one completion.
type General struct {
	llm    contractx.LLM
	prompt string
}

func NewGeneral(llm contractx.LLM, prompt string) *General {
	return &General{llm: llm, prompt: prompt}
}

func (g *General) Invoke(ctx context.Context, req contractx.ToolRequest) (string, error) {
	answer, err := g.llm.Complete(ctx, g.prompt, withHistory(req.Instruction, req.History))
	if err != nil {
		return "", contractx.NewToolError(planx.KindGeneralQA, "could not generate an answer", err)
	}
	return answer, nil
}

// withHistory prefixes the question with the windowed conversation.
func withHistory(question string, history []statex.Message) string {
	if len(history) == 0 {
		return question
	}
	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	b.WriteString(statex.Transcript(history))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
