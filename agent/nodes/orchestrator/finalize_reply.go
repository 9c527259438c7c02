package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
	statex "github.com/tanpawarit/Chative-Finance-Assistant/agent/state"
)

func FinalizeReply(in *GraphState, window statex.Window) (GraphOutput, error) {
	if err := requireSession(in); err != nil {
		return GraphOutput{}, err
	}
	st := in.Session
	reply, ok := st.FinalAnswer()
	if !ok {
		return GraphOutput{}, fmt.Errorf("%w: final answer is missing", contractx.ErrValidation)
	}

	history := append(append([]statex.Message(nil), st.History...),
		statex.HumanMessage(st.OriginalQuery),
		statex.AssistantMessage(reply),
	)
	return GraphOutput{
		Reply:     reply,
		SessionID: st.SessionID,
		Plan:      st.Plan(),
		Results:   st.Results(),
		History:   window.Apply(history),
	}, nil
}
