package orchestratornode

import (
	"context"

	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
	logx "github.com/tanpawarit/Chative-Finance-Assistant/pkg/logger"
)

// SaveTurn appends the finished turn to memory. Memory logs its own
// failures, so the node never fails the turn.
func SaveTurn(
	ctx context.Context,
	in *GraphState,
	memory contractx.MemoryStore,
) (*GraphState, error) {
	if err := requireSession(in); err != nil {
		return nil, err
	}
	st := in.Session
	memory.SaveTurn(ctx, st.UserID, st.SessionID, st.OriginalQuery, in.Reply)
	return in, nil
}

// CheckpointState records a snapshot of the turn when a store is set.
func CheckpointState(
	ctx context.Context,
	in *GraphState,
	store contractx.CheckpointStore,
) (*GraphState, error) {
	if err := requireSession(in); err != nil {
		return nil, err
	}
	if store == nil {
		return in, nil
	}
	if err := store.Save(ctx, in.Session.Snapshot()); err != nil {
		lg := logx.WithSession(in.Session.UserID, in.Session.SessionID)
		lg.Warn().Err(err).Msg("checkpoint save failed")
	}
	return in, nil
}
