package orchestratornode

import (
	"context"

	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
)

func AggregateOutputs(
	ctx context.Context,
	in *GraphState,
	aggregator contractx.Aggregator,
) (*GraphState, error) {
	if err := requireSession(in); err != nil {
		return nil, err
	}

	st := in.Session
	answer := aggregator.Aggregate(ctx, contractx.AggregateRequest{
		Outputs:   st.Results(),
		Query:     st.OriginalQuery,
		Reasoning: st.Plan().Reasoning,
		History:   st.History,
	})
	if err := st.SetFinalAnswer(answer); err != nil {
		return nil, err
	}
	in.Reply = answer
	return in, nil
}
