package llm

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
)

var _ contractx.LLM = (*Completion)(nil)

// Completion is a compiled single-node graph around one chat model.
type Completion struct {
	name   string
	runner compose.Runnable[[]*schema.Message, *schema.Message]
}

func NewCompletion(ctx context.Context, chatModel einomodel.BaseChatModel, name string) (*Completion, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model for %s is nil", contractx.ErrValidation, name)
	}

	graph := compose.NewGraph[[]*schema.Message, *schema.Message]()
	if err := graph.AddChatModelNode("model", chatModel, compose.WithNodeName(name)); err != nil {
		return nil, fmt.Errorf("add %s model node: %w", name, err)
	}
	if err := graph.AddEdge(compose.START, "model"); err != nil {
		return nil, fmt.Errorf("add %s edge start->model: %w", name, err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add %s edge model->end: %w", name, err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("llm."+name))
	if err != nil {
		return nil, fmt.Errorf("%w: compile %s completion graph: %v", contractx.ErrModelInvoke, name, err)
	}
	return &Completion{name: name, runner: runner}, nil
}

func (c *Completion) Name() string {
	return c.name
}

// Complete sends one system and one user message and returns the reply text.
func (c *Completion) Complete(ctx context.Context, system string, user string) (string, error) {
	msgs := make([]*schema.Message, 0, 2)
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, schema.SystemMessage(system))
	}
	msgs = append(msgs, schema.UserMessage(user))
	return c.Chat(ctx, msgs)
}

// Chat runs an arbitrary message list.
func (c *Completion) Chat(ctx context.Context, msgs []*schema.Message) (string, error) {
	if c == nil || c.runner == nil {
		return "", fmt.Errorf("%w: completion is not initialised", contractx.ErrModelInvoke)
	}
	out, err := c.runner.Invoke(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("%w: %s invoke: %v", contractx.ErrModelInvoke, c.name, err)
	}
	if out == nil {
		return "", fmt.Errorf("%w: %s returned no message", contractx.ErrSchemaViolation, c.name)
	}
	content := strings.TrimSpace(out.Content)
	if content == "" {
		return "", fmt.Errorf("%w: %s returned empty content", contractx.ErrSchemaViolation, c.name)
	}
	return content, nil
}
