package orchestratornode

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
	planx "github.com/tanpawarit/Chative-Finance-Assistant/agent/plan"
	statex "github.com/tanpawarit/Chative-Finance-Assistant/agent/state"
)

var (
	ErrInvalidMessage = fmt.Errorf("%w: message is empty", contractx.ErrValidation)
	ErrInvalidSession = fmt.Errorf("%w: session id is empty", contractx.ErrValidation)
	ErrInvalidUser    = fmt.Errorf("%w: user id is empty", contractx.ErrValidation)
)

type GraphInput struct {
	UserID      string
	SessionID   string
	Message     string
	History     []statex.Message
	Attachments statex.Attachments
}

type GraphOutput struct {
	Reply     string
	SessionID string
	Plan      planx.TaskPlan
	Results   []statex.TaskResult
	History   []statex.Message
}

// GraphState carries one turn between nodes. Session is created fresh per
// invocation and never shared across turns.
type GraphState struct {
	Now           time.Time
	ClientHistory []statex.Message
	Session       *statex.SessionState
	Reply         string
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return nil, ErrInvalidUser
	}

	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	text := strings.TrimSpace(in.Message)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	now := nowFn().UTC()
	session := statex.NewSessionState(sessionID, userID, text, now)
	session.Attachments = statex.Attachments{
		Document: strings.TrimSpace(in.Attachments.Document),
		Image:    strings.TrimSpace(in.Attachments.Image),
	}

	return &GraphState{
		Now:           now,
		ClientHistory: cleanHistory(in.History),
		Session:       session,
	}, nil
}

func cleanHistory(msgs []statex.Message) []statex.Message {
	out := make([]statex.Message, 0, len(msgs))
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}

func requireSession(in *GraphState) error {
	if in == nil || in.Session == nil {
		return fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	return nil
}
