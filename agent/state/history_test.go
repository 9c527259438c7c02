package state

import (
	"strings"
	"testing"

	planx "github.com/tanpawarit/Chative-Finance-Assistant/agent/plan"
)

func messages(n int) []Message {
	out := make([]Message, 0, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			out = append(out, HumanMessage(string(rune('a'+i))))
		} else {
			out = append(out, AssistantMessage(string(rune('a'+i))))
		}
	}
	return out
}

func TestWindowApplyKeepsTail(t *testing.T) {
	t.Parallel()

	w := Window{MaxMessages: 3}
	got := w.Apply(messages(5))
	if len(got) != 3 || got[0].Content != "c" || got[2].Content != "e" {
		t.Fatalf("Apply() = %#v", got)
	}
	older := w.Older(messages(5))
	if len(older) != 2 || older[1].Content != "b" {
		t.Fatalf("Older() = %#v", older)
	}
}

func TestWindowDefaultSize(t *testing.T) {
	t.Parallel()

	w := Window{}
	if w.Size() != DefaultWindowSize {
		t.Fatalf("Size() = %d, want %d", w.Size(), DefaultWindowSize)
	}
	if got := w.Apply(messages(12)); len(got) != DefaultWindowSize {
		t.Fatalf("Apply() len = %d", len(got))
	}
	if got := w.Older(messages(4)); got != nil {
		t.Fatalf("Older() = %#v, want nil", got)
	}
}

func TestWindowApplyCopies(t *testing.T) {
	t.Parallel()

	src := messages(2)
	got := Window{MaxMessages: 5}.Apply(src)
	got[0].Content = "changed"
	if src[0].Content == "changed" {
		t.Fatal("Apply() must not alias the input")
	}
}

func TestConversationContextRender(t *testing.T) {
	t.Parallel()

	if got := FreshContext().Render(); got != FreshConversation {
		t.Fatalf("fresh Render() = %q", got)
	}

	ctx := ConversationContext{
		Summary: "Earlier: asked about SIPs",
		History: []Message{HumanMessage("price of gold?"), AssistantMessage("about 2400 USD/oz")},
	}
	got := ctx.Render()
	for _, want := range []string{
		"Summarized memory:\nEarlier: asked about SIPs",
		"Recent conversation:\nHuman: price of gold?\nAssistant: about 2400 USD/oz",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("Render() = %q, missing %q", got, want)
		}
	}
}

func TestAttachmentsHas(t *testing.T) {
	t.Parallel()

	a := Attachments{Document: "uploads/report.pdf"}
	if !a.Has(planx.AttachmentDocument) || a.Has(planx.AttachmentImage) || !a.Has(planx.AttachmentNone) {
		t.Fatalf("unexpected attachment checks for %#v", a)
	}
	if retained := (Attachments{ActiveDocument: true}); !retained.Has(planx.AttachmentDocument) {
		t.Fatalf("active document must count as attached: %#v", retained)
	}
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	if r, ok := ParseRole("user"); !ok || r != RoleHuman {
		t.Fatalf("ParseRole(user) = %s %v", r, ok)
	}
	if r, ok := ParseRole("AI"); !ok || r != RoleAssistant {
		t.Fatalf("ParseRole(AI) = %s %v", r, ok)
	}
	if _, ok := ParseRole("system"); ok {
		t.Fatal("system must not parse as a chat role")
	}
}
