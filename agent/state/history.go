package state

import (
	"strings"

	planx "github.com/tanpawarit/Chative-Finance-Assistant/agent/plan"
)

type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
)

// Message is one chronological conversation entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func HumanMessage(content string) Message {
	return Message{Role: RoleHuman, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ParseRole accepts the role spellings used by chat clients.
func ParseRole(raw string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "human", "user":
		return RoleHuman, true
	case "assistant", "ai", "bot", "model":
		return RoleAssistant, true
	default:
		return "", false
	}
}

const DefaultWindowSize = 10

// Window bounds how many trailing messages are handed to any model call.
type Window struct {
	MaxMessages int
}

func (w Window) Size() int {
	if w.MaxMessages <= 0 {
		return DefaultWindowSize
	}
	return w.MaxMessages
}

// Apply returns a copy of the last Size() messages.
func (w Window) Apply(msgs []Message) []Message {
	n := w.Size()
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// Older returns the messages that fall outside the window, oldest first.
func (w Window) Older(msgs []Message) []Message {
	n := w.Size()
	if len(msgs) <= n {
		return nil
	}
	out := make([]Message, len(msgs)-n)
	copy(out, msgs[:len(msgs)-n])
	return out
}

// Transcript renders messages as "Human: ..." / "Assistant: ..." lines.
func Transcript(msgs []Message) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch m.Role {
		case RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			b.WriteString("Human: ")
		}
		b.WriteString(strings.TrimSpace(m.Content))
	}
	return b.String()
}

// Attachments are upload references available to this turn.
// ActiveDocument marks a document indexed by an earlier turn of the same
// conversation that DocumentQA can still search without a new upload.
type Attachments struct {
	Document       string `json:"document,omitempty"`
	Image          string `json:"image,omitempty"`
	ActiveDocument bool   `json:"active_document,omitempty"`
}

func (a Attachments) Has(kind planx.Attachment) bool {
	switch kind {
	case planx.AttachmentNone:
		return true
	case planx.AttachmentDocument:
		return a.ActiveDocument || strings.TrimSpace(a.Document) != ""
	case planx.AttachmentImage:
		return strings.TrimSpace(a.Image) != ""
	default:
		return false
	}
}

const FreshConversation = "This is a fresh conversation"

// ConversationContext is what memory hands to the router for one turn.
type ConversationContext struct {
	Fresh   bool      `json:"fresh"`
	Summary string    `json:"summary,omitempty"`
	History []Message `json:"history,omitempty"`
}

func FreshContext() ConversationContext {
	return ConversationContext{Fresh: true}
}

func (c ConversationContext) Render() string {
	if c.Fresh || (strings.TrimSpace(c.Summary) == "" && len(c.History) == 0) {
		return FreshConversation
	}
	var b strings.Builder
	if s := strings.TrimSpace(c.Summary); s != "" {
		b.WriteString("Summarized memory:\n")
		b.WriteString(s)
	}
	if len(c.History) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Recent conversation:\n")
		b.WriteString(Transcript(c.History))
	}
	return b.String()
}
