package orchestratornode

import (
	"context"

	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
	planx "github.com/tanpawarit/Chative-Finance-Assistant/agent/plan"
	statex "github.com/tanpawarit/Chative-Finance-Assistant/agent/state"
	logx "github.com/tanpawarit/Chative-Finance-Assistant/pkg/logger"
)

// LoadContext fills the session's memory. Stored memory wins; a client
// supplied history only seeds a conversation memory knows nothing about.
// A document left active by an earlier turn counts as attached when this
// turn brings none.
func LoadContext(
	ctx context.Context,
	in *GraphState,
	memory contractx.MemoryStore,
	documents contractx.DocumentIndex,
	window statex.Window,
) (*GraphState, error) {
	if err := requireSession(in); err != nil {
		return nil, err
	}

	st := in.Session
	conv := memory.LoadContext(ctx, st.UserID, st.SessionID)
	if conv.Fresh && len(in.ClientHistory) > 0 {
		conv = statex.ConversationContext{History: window.Apply(in.ClientHistory)}
	}

	st.Memory = conv
	st.History = window.Apply(conv.History)

	if documents != nil && !st.Attachments.Has(planx.AttachmentDocument) {
		active, err := documents.HasActive(ctx, st.UserID, st.SessionID)
		if err != nil {
			lg := logx.WithSession(st.UserID, st.SessionID)
			lg.Warn().Err(err).Msg("active document lookup failed")
		}
		st.Attachments.ActiveDocument = active
	}
	return in, nil
}
