package contract

import (
	"fmt"

	planx "github.com/tanpawarit/Chative-Finance-Assistant/agent/plan"
	statex "github.com/tanpawarit/Chative-Finance-Assistant/agent/state"
)

// AgentType names a model role; each role may override model and temperature.
type AgentType string

const (
	AgentTypeRouter     AgentType = "router"
	AgentTypeAggregator AgentType = "aggregator"
	AgentTypeDocument   AgentType = "document"
	AgentTypeNews       AgentType = "news"
	AgentTypeGeneral    AgentType = "general"
	AgentTypeImage      AgentType = "image"
	AgentTypeLaw        AgentType = "law"
)

type RouterRequest struct {
	Query       string                     `json:"query"`
	Context     statex.ConversationContext `json:"context"`
	Attachments statex.Attachments         `json:"attachments"`
}

type AggregateRequest struct {
	Outputs   []statex.TaskResult `json:"outputs"`
	Query     string              `json:"query"`
	Reasoning string              `json:"reasoning"`
	History   []statex.Message    `json:"history,omitempty"`
}

// ToolRequest is what the dispatcher hands to an adapter. Instruction is
// the task instruction with dependency excerpts appended; BaseInstruction
// is the bare task text for adapters that search on it.
type ToolRequest struct {
	TaskName          string             `json:"task_name"`
	Kind              planx.ToolKind     `json:"kind"`
	Instruction       string             `json:"instruction"`
	BaseInstruction   string             `json:"base_instruction"`
	DependencyContext string             `json:"dependency_context,omitempty"`
	Attachments       statex.Attachments `json:"attachments"`
	History           []statex.Message   `json:"history,omitempty"`
	UserID            string             `json:"user_id"`
	SessionID         string             `json:"session_id"`
}

// ToolError is an adapter failure with a message safe to show the user.
type ToolError struct {
	Kind    planx.ToolKind
	Message string
	Err     error
}

func NewToolError(kind planx.ToolKind, message string, err error) *ToolError {
	return &ToolError{Kind: kind, Message: message, Err: err}
}

func (e *ToolError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *ToolError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrToolInvocation}
	}
	return []error{ErrToolInvocation, e.Err}
}
