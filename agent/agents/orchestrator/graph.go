package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	nodex "github.com/tanpawarit/Chative-Finance-Assistant/agent/nodes/orchestrator"
)

func (o *Orchestrator) compileHandleTurnGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	steps := []struct {
		name string
		fn   func(context.Context, *nodex.GraphState) (*nodex.GraphState, error)
	}{
		{"load_context", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadContext(ctx, in, o.memory, o.documents, o.window)
		}},
		{"route_plan", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RoutePlan(ctx, in, o.router)
		}},
		{"dispatch_plan", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DispatchPlan(ctx, in, o.dispatcher)
		}},
		{"aggregate_outputs", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.AggregateOutputs(ctx, in, o.aggregator)
		}},
		{"save_turn", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.SaveTurn(ctx, in, o.memory)
		}},
		{"checkpoint_state", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.CheckpointState(ctx, in, o.checkpoints)
		}},
	}
	for _, step := range steps {
		if err := graph.AddLambdaNode(step.name, compose.InvokableLambda(step.fn)); err != nil {
			return nil, fmt.Errorf("add node %s: %w", step.name, err)
		}
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeReply(in, o.window)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_context"},
		{"load_context", "route_plan"},
		{"route_plan", "dispatch_plan"},
		{"dispatch_plan", "aggregate_outputs"},
		{"aggregate_outputs", "save_turn"},
		{"save_turn", "checkpoint_state"},
		{"checkpoint_state", "finalize_reply"},
		{"finalize_reply", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
