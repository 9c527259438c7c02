package orchestratornode

import (
	"context"

	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
)

func DispatchPlan(
	ctx context.Context,
	in *GraphState,
	dispatcher contractx.Dispatcher,
) (*GraphState, error) {
	if err := requireSession(in); err != nil {
		return nil, err
	}
	in.Session = dispatcher.Execute(ctx, in.Session)
	return in, requireSession(in)
}
