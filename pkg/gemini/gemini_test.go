package gemini

import (
	"context"
	"errors"
	"testing"
)

func TestSplitLinesDropsBlanksAndKeepsOrder(t *testing.T) {
	t.Parallel()

	got := SplitLines("  Revenue 2024\r\n\nNet income  \n \nEPS 1.20")
	want := []string{"Revenue 2024", "Net income", "EPS 1.20"}
	if len(got) != len(want) {
		t.Fatalf("SplitLines() len = %d, want %d (%q)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := Config{}.NewClient(context.Background())
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("NewClient() error = %v, want ErrMissingAPIKey", err)
	}
}

func TestNewOCRValidatesInputs(t *testing.T) {
	t.Parallel()

	if _, err := NewOCR(nil, "gemini-2.0-flash"); err == nil {
		t.Fatal("expected error for nil client")
	}
}
