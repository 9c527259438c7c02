package orchestratornode

import (
	"context"

	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
	planx "github.com/tanpawarit/Chative-Finance-Assistant/agent/plan"
	logx "github.com/tanpawarit/Chative-Finance-Assistant/pkg/logger"
)

func RoutePlan(
	ctx context.Context,
	in *GraphState,
	router contractx.Router,
) (*GraphState, error) {
	if err := requireSession(in); err != nil {
		return nil, err
	}

	st := in.Session
	lg := logx.WithSession(st.UserID, st.SessionID)
	plan := router.Plan(ctx, contractx.RouterRequest{
		Query:       st.OriginalQuery,
		Context:     st.Memory,
		Attachments: st.Attachments,
	})
	if err := st.SetPlan(plan); err != nil {
		lg.Warn().Err(err).Msg("router plan rejected, using fallback")
		if err := st.SetPlan(planx.Fallback(st.OriginalQuery, err.Error())); err != nil {
			return nil, err
		}
	}

	lg.Info().
		Strs("tasks", st.Plan().Names()).
		Bool("fallback", st.Plan().Fallback).
		Msg("plan ready")
	return in, nil
}
