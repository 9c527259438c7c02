package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
	statex "github.com/tanpawarit/Chative-Finance-Assistant/agent/state"
)

const (
	maxSummaryLines = 5
	digestRunes     = 160
)

var _ contractx.MemoryStore = (*Manager)(nil)

// Manager adapts a Store to the turn pipeline. The last window of messages
// becomes History, older turns become one-line digests in Summary.
type Manager struct {
	store    Store
	window   statex.Window
	maxTurns int
	now      func() time.Time
}

func NewManager(store Store, window statex.Window, maxTurns int) *Manager {
	return &Manager{store: store, window: window, maxTurns: maxTurns, now: time.Now}
}

func (m *Manager) LoadContext(ctx context.Context, userID, sessionID string) statex.ConversationContext {
	turns, err := m.store.ListTurns(ctx, userID, sessionID, m.maxTurns)
	if err != nil {
		log.Warn().
			Err(fmt.Errorf("%w: %w", contractx.ErrPersistence, err)).
			Str("user_id", userID).
			Str("session_id", sessionID).
			Msg("memory load failed, starting fresh")
		return statex.FreshContext()
	}
	if len(turns) == 0 {
		return statex.FreshContext()
	}

	msgs := Messages(turns)
	return statex.ConversationContext{
		Summary: summarize(m.window.Older(msgs)),
		History: m.window.Apply(msgs),
	}
}

func (m *Manager) SaveTurn(ctx context.Context, userID, sessionID, query, answer string) {
	turn := Turn{
		UserID:    userID,
		SessionID: sessionID,
		Query:     query,
		Answer:    answer,
		CreatedAt: m.now().UTC(),
	}
	if err := m.store.AppendTurn(ctx, turn); err != nil {
		log.Warn().
			Err(fmt.Errorf("%w: %w", contractx.ErrPersistence, err)).
			Str("user_id", userID).
			Str("session_id", sessionID).
			Msg("memory save failed")
	}
}

// Messages flattens turns into alternating human and assistant messages.
func Messages(turns []Turn) []statex.Message {
	msgs := make([]statex.Message, 0, len(turns)*2)
	for _, t := range turns {
		msgs = append(msgs, statex.HumanMessage(t.Query))
		if strings.TrimSpace(t.Answer) != "" {
			msgs = append(msgs, statex.AssistantMessage(t.Answer))
		}
	}
	return msgs
}

func summarize(older []statex.Message) string {
	if len(older) == 0 {
		return ""
	}
	var lines []string
	pending := ""
	for _, msg := range older {
		switch msg.Role {
		case statex.RoleHuman:
			if pending != "" {
				lines = append(lines, "Earlier: "+pending)
			}
			pending = clip(msg.Content)
		default:
			if pending == "" {
				lines = append(lines, "Earlier: "+clip(msg.Content))
				continue
			}
			lines = append(lines, fmt.Sprintf("Earlier: %s -> %s", pending, clip(msg.Content)))
			pending = ""
		}
	}
	if pending != "" {
		lines = append(lines, "Earlier: "+pending)
	}
	if len(lines) > maxSummaryLines {
		lines = lines[len(lines)-maxSummaryLines:]
	}
	return strings.Join(lines, "\n")
}

func clip(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= digestRunes {
		return s
	}
	return string(r[:digestRunes]) + "..."
}
