package tool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
	planx "github.com/tanpawarit/Chative-Finance-Assistant/agent/plan"
)

type stubAdapter struct {
	out   string
	err   error
	calls int
}

func (s *stubAdapter) Invoke(_ context.Context, _ contractx.ToolRequest) (string, error) {
	s.calls++
	return s.out, s.err
}

func TestCatalogExposesAdapters(t *testing.T) {
	t.Parallel()

	news := &stubAdapter{out: "news"}
	general := &stubAdapter{out: "general"}
	c := NewCatalog(Adapters{News: news, GeneralQA: general}, nil)

	if c.News() != news || c.GeneralQA() != general {
		t.Fatal("catalog must return the configured adapters")
	}
	if c.DocumentQA() != nil || c.ImageQA() != nil || c.LawQA() != nil {
		t.Fatal("unconfigured adapters must be nil")
	}

	got := c.Configured()
	if len(got) != 2 || got[0] != planx.KindNews || got[1] != planx.KindGeneralQA {
		t.Fatalf("Configured() = %v", got)
	}
}

func TestCatalogWrapsWithBreakers(t *testing.T) {
	t.Parallel()

	general := &stubAdapter{out: "ok"}
	c := NewCatalog(Adapters{GeneralQA: general}, NewBreakerRegistry(BreakerConfig{}))
	if c.LawQA() != nil {
		t.Fatal("nil adapters must stay nil behind the breaker")
	}

	out, err := c.GeneralQA().Invoke(context.Background(), contractx.ToolRequest{Instruction: "hi"})
	if err != nil || out != "ok" {
		t.Fatalf("Invoke() = %q, %v", out, err)
	}
	if general.calls != 1 {
		t.Fatalf("expected one call through the breaker, got %d", general.calls)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	failing := &stubAdapter{err: errors.New("provider down")}
	reg := NewBreakerRegistry(BreakerConfig{MaxFailures: 2, OpenTimeout: time.Minute, HalfOpenMax: 1})
	adapter := reg.Wrap(planx.KindNews, failing)

	for i := 0; i < 2; i++ {
		if _, err := adapter.Invoke(context.Background(), contractx.ToolRequest{}); err == nil {
			t.Fatalf("call %d: expected provider error", i)
		}
	}

	_, err := adapter.Invoke(context.Background(), contractx.ToolRequest{})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	var toolErr *contractx.ToolError
	if !errors.As(err, &toolErr) || toolErr.Kind != planx.KindNews {
		t.Fatalf("expected news ToolError, got %T", err)
	}
	if failing.calls != 2 {
		t.Fatalf("open breaker must not call the adapter, calls = %d", failing.calls)
	}
	if reg.Get(planx.KindNews).State() != gobreaker.StateOpen {
		t.Fatal("breaker must report open state")
	}
}

func TestBreakerIgnoresMissingAttachment(t *testing.T) {
	t.Parallel()

	missing := &stubAdapter{err: contractx.NewToolError(planx.KindImageQA, "no image", contractx.ErrMissingAttachment)}
	reg := NewBreakerRegistry(BreakerConfig{MaxFailures: 1})
	adapter := reg.Wrap(planx.KindImageQA, missing)

	for i := 0; i < 3; i++ {
		_, err := adapter.Invoke(context.Background(), contractx.ToolRequest{})
		if !errors.Is(err, contractx.ErrMissingAttachment) {
			t.Fatalf("call %d: expected missing attachment, got %v", i, err)
		}
	}
	if missing.calls != 3 {
		t.Fatalf("breaker must stay closed, calls = %d", missing.calls)
	}
}

func TestBreakerRegistryReusesBreakers(t *testing.T) {
	t.Parallel()

	reg := NewBreakerRegistry(BreakerConfig{})
	if reg.Get(planx.KindLawQA) != reg.Get(planx.KindLawQA) {
		t.Fatal("registry must return the same breaker per kind")
	}
	if reg.Get(planx.KindLawQA) == reg.Get(planx.KindNews) {
		t.Fatal("kinds must not share breakers")
	}
}
