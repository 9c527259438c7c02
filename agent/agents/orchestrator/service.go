package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
	nodex "github.com/tanpawarit/Chative-Finance-Assistant/agent/nodes/orchestrator"
	planx "github.com/tanpawarit/Chative-Finance-Assistant/agent/plan"
	statex "github.com/tanpawarit/Chative-Finance-Assistant/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
	ErrInvalidUser    = nodex.ErrInvalidUser
)

type Config struct {
	HistoryWindow int `split_words:"true" default:"10"`
}

type Deps struct {
	Router      contractx.Router
	Dispatcher  contractx.Dispatcher
	Aggregator  contractx.Aggregator
	Memory      contractx.MemoryStore
	Documents   contractx.DocumentIndex
	Checkpoints contractx.CheckpointStore
}

type TurnRequest struct {
	UserID      string
	SessionID   string
	Message     string
	History     []statex.Message
	Attachments statex.Attachments
}

type TurnResponse struct {
	Reply     string
	SessionID string
	Plan      planx.TaskPlan
	Results   []statex.TaskResult
	History   []statex.Message
}

type Orchestrator struct {
	router      contractx.Router
	dispatcher  contractx.Dispatcher
	aggregator  contractx.Aggregator
	memory      contractx.MemoryStore
	documents   contractx.DocumentIndex
	checkpoints contractx.CheckpointStore
	window      statex.Window

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(deps Deps, cfg Config) (*Orchestrator, error) {
	if deps.Router == nil {
		return nil, errors.New("router is required")
	}
	if deps.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if deps.Aggregator == nil {
		return nil, errors.New("aggregator is required")
	}
	if deps.Memory == nil {
		deps.Memory = noopMemoryStore{}
	}

	o := &Orchestrator{
		router:      deps.Router,
		dispatcher:  deps.Dispatcher,
		aggregator:  deps.Aggregator,
		memory:      deps.Memory,
		documents:   deps.Documents,
		checkpoints: deps.Checkpoints,
		window:      statex.Window{MaxMessages: cfg.HistoryWindow},
		now:         time.Now,
	}

	graphRunner, err := o.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleTurn runs one user message through routing, dispatch and
// aggregation. It only fails for invalid requests.
func (o *Orchestrator) HandleTurn(ctx context.Context, req TurnRequest) (TurnResponse, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		UserID:      req.UserID,
		SessionID:   req.SessionID,
		Message:     req.Message,
		History:     req.History,
		Attachments: req.Attachments,
	})
	if err != nil {
		return TurnResponse{}, err
	}
	return TurnResponse{
		Reply:     out.Reply,
		SessionID: out.SessionID,
		Plan:      out.Plan,
		Results:   out.Results,
		History:   out.History,
	}, nil
}

type noopMemoryStore struct{}

func (noopMemoryStore) LoadContext(context.Context, string, string) statex.ConversationContext {
	return statex.FreshContext()
}

func (noopMemoryStore) SaveTurn(context.Context, string, string, string, string) {}
