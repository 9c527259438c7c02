package observers

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func TestLastUserContent(t *testing.T) {
	t.Parallel()

	msgs := []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage(" first "),
		nil,
		schema.AssistantMessage("reply", nil),
		schema.UserMessage(" second "),
	}
	if got := lastUserContent(msgs); got != "second" {
		t.Fatalf("lastUserContent() = %q", got)
	}
	if got := lastUserContent(nil); got != "" {
		t.Fatalf("lastUserContent(nil) = %q", got)
	}
}

func TestPreviewClips(t *testing.T) {
	t.Parallel()

	got := preview(strings.Repeat("ab ", 200))
	if !strings.HasSuffix(got, "...") || len([]rune(got)) != previewRunes+3 {
		t.Fatalf("preview() len = %d", len([]rune(got)))
	}
	if got := preview("a\n\tb"); got != "a b" {
		t.Fatalf("preview() = %q", got)
	}
}

func TestNewModelCallbacks(t *testing.T) {
	t.Parallel()

	if NewModelCallbacks() == nil {
		t.Fatal("handler must not be nil")
	}
}
