package contract

import (
	"context"

	planx "github.com/tanpawarit/Chative-Finance-Assistant/agent/plan"
	statex "github.com/tanpawarit/Chative-Finance-Assistant/agent/state"
)

// LLM is a single-shot chat completion used by the router, the aggregator
// and the tool adapters.
type LLM interface {
	Complete(ctx context.Context, system string, user string) (string, error)
}

type Router interface {
	Plan(ctx context.Context, req RouterRequest) planx.TaskPlan
}

type Dispatcher interface {
	Execute(ctx context.Context, st *statex.SessionState) *statex.SessionState
}

type Aggregator interface {
	Aggregate(ctx context.Context, req AggregateRequest) string
}

// ToolAdapter wraps one external capability. Errors returned here are
// already readable; the dispatcher records them verbatim.
type ToolAdapter interface {
	Invoke(ctx context.Context, req ToolRequest) (string, error)
}

// ToolCatalog exposes one adapter per ToolKind.
type ToolCatalog interface {
	DocumentQA() ToolAdapter
	News() ToolAdapter
	GeneralQA() ToolAdapter
	ImageQA() ToolAdapter
	LawQA() ToolAdapter
}

// MemoryStore loads and saves conversational memory. Neither call fails
// the turn: LoadContext degrades to a fresh context and SaveTurn logs.
type MemoryStore interface {
	LoadContext(ctx context.Context, userID, sessionID string) statex.ConversationContext
	SaveTurn(ctx context.Context, userID, sessionID, query, answer string)
}

// DocumentIndex reports whether a conversation still has a searchable
// document from an earlier turn.
type DocumentIndex interface {
	HasActive(ctx context.Context, userID, sessionID string) (bool, error)
}

type CheckpointStore interface {
	Save(ctx context.Context, snap statex.Snapshot) error
}
