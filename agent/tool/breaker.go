package tool

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
	planx "github.com/tanpawarit/Chative-Finance-Assistant/agent/plan"
)

type BreakerConfig struct {
	MaxFailures uint32        `split_words:"true" default:"5"`
	OpenTimeout time.Duration `split_words:"true" default:"30s"`
	HalfOpenMax uint32        `split_words:"true" default:"3"`
}

// BreakerRegistry keeps one circuit breaker per tool kind.
type BreakerRegistry struct {
	cfg      BreakerConfig
	mu       sync.Mutex
	breakers map[planx.ToolKind]*gobreaker.CircuitBreaker
}

func NewBreakerRegistry(cfg BreakerConfig) *BreakerRegistry {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax == 0 {
		cfg.HalfOpenMax = 3
	}
	return &BreakerRegistry{cfg: cfg, breakers: make(map[planx.ToolKind]*gobreaker.CircuitBreaker)}
}

func (r *BreakerRegistry) Get(kind planx.ToolKind) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[kind]; ok {
		return cb
	}
	maxFailures := r.cfg.MaxFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        kind.String(),
		MaxRequests: r.cfg.HalfOpenMax,
		Timeout:     r.cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().Str("tool", name).Str("from", from.String()).Str("to", to.String()).Msg("tool breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			// caller problems are not provider failures
			return err == nil ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, contractx.ErrMissingAttachment) ||
				errors.Is(err, contractx.ErrToolUnavailable)
		},
	})
	r.breakers[kind] = cb
	return cb
}

// Wrap guards adapter with the kind's breaker. A nil adapter stays nil.
func (r *BreakerRegistry) Wrap(kind planx.ToolKind, adapter contractx.ToolAdapter) contractx.ToolAdapter {
	if adapter == nil {
		return nil
	}
	return &guarded{kind: kind, next: adapter, cb: r.Get(kind)}
}

type guarded struct {
	kind planx.ToolKind
	next contractx.ToolAdapter
	cb   *gobreaker.CircuitBreaker
}

func (g *guarded) Invoke(ctx context.Context, req contractx.ToolRequest) (string, error) {
	out, err := g.cb.Execute(func() (interface{}, error) {
		return g.next.Invoke(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", contractx.NewToolError(g.kind, "service is temporarily unavailable, please try again shortly", err)
	}
	if err != nil {
		return "", err
	}
	s, _ := out.(string)
	return s, nil
}
