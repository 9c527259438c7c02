package aggregator

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
	statex "github.com/tanpawarit/Chative-Finance-Assistant/agent/state"
)

type fakeLLM struct {
	reply string
	err   error
	calls []string
}

func (f *fakeLLM) Complete(_ context.Context, _ string, user string) (string, error) {
	f.calls = append(f.calls, user)
	return f.reply, f.err
}

func twoOutputs() []statex.TaskResult {
	return []statex.TaskResult{
		{TaskName: "Document_qna", Output: "Revenue grew 12%."},
		{TaskName: "News", Output: "New tax slab announced."},
	}
}

func TestAggregateEmpty(t *testing.T) {
	t.Parallel()

	llm := &fakeLLM{reply: "ignored"}
	a, _ := New(llm, "combine", statex.Window{})
	if got := a.Aggregate(context.Background(), contractx.AggregateRequest{}); got != NoOutputs {
		t.Fatalf("Aggregate() = %q", got)
	}
	if len(llm.calls) != 0 {
		t.Fatal("empty aggregation must not call the model")
	}
}

func TestAggregateSingleOutputVerbatim(t *testing.T) {
	t.Parallel()

	llm := &fakeLLM{reply: "ignored"}
	a, _ := New(llm, "combine", statex.Window{})
	out := "  Bitcoin rose 5% today.\n\nSources:\n- https://example.com  "
	got := a.Aggregate(context.Background(), contractx.AggregateRequest{
		Outputs: []statex.TaskResult{{TaskName: "News", Output: out}},
	})
	if got != out {
		t.Fatalf("Aggregate() = %q, want verbatim", got)
	}
	if len(llm.calls) != 0 {
		t.Fatal("single output must not call the model")
	}
}

func TestAggregateSynthesises(t *testing.T) {
	t.Parallel()

	llm := &fakeLLM{reply: " Combined answer. "}
	a, _ := New(llm, "combine", statex.Window{MaxMessages: 1})
	got := a.Aggregate(context.Background(), contractx.AggregateRequest{
		Outputs:   twoOutputs(),
		Query:     "relate my report to tax news",
		Reasoning: "doc then news",
		History:   []statex.Message{statex.HumanMessage("old"), statex.AssistantMessage("latest")},
	})
	if got != "Combined answer." {
		t.Fatalf("Aggregate() = %q", got)
	}
	if len(llm.calls) != 1 {
		t.Fatalf("model calls = %d, want 1", len(llm.calls))
	}
	msg := llm.calls[0]
	for _, want := range []string{
		"Original query: relate my report to tax news",
		"Routing reasoning: doc then news",
		"[Document_qna]\nRevenue grew 12%.",
		"[News]\nNew tax slab announced.",
		"Assistant: latest",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("user message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "Human: old") {
		t.Fatal("history outside the window leaked")
	}
}

func TestAggregateDegradesToConcatenation(t *testing.T) {
	t.Parallel()

	for name, llm := range map[string]*fakeLLM{
		"error": {err: errors.New("timeout")},
		"empty": {reply: "   "},
	} {
		llm := llm
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			a, _ := New(llm, "combine", statex.Window{})
			got := a.Aggregate(context.Background(), contractx.AggregateRequest{Outputs: twoOutputs()})
			want := "[Document_qna]\nRevenue grew 12%.\n\n[News]\nNew tax slab announced."
			if got != want {
				t.Fatalf("Aggregate() = %q, want %q", got, want)
			}
		})
	}
}
