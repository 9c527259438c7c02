package llm

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
	geminix "github.com/tanpawarit/Chative-Finance-Assistant/pkg/gemini"
	"google.golang.org/genai"
)

// Roles lists every role that gets its own chat model.
var Roles = []contractx.AgentType{
	contractx.AgentTypeRouter,
	contractx.AgentTypeAggregator,
	contractx.AgentTypeDocument,
	contractx.AgentTypeNews,
	contractx.AgentTypeGeneral,
	contractx.AgentTypeImage,
}

// Models holds one completion per role.
type Models struct {
	byRole map[contractx.AgentType]*Completion
}

func (m *Models) For(agentType contractx.AgentType) *Completion {
	if m == nil {
		return nil
	}
	return m.byRole[agentType]
}

func (m *Models) Router() *Completion     { return m.For(contractx.AgentTypeRouter) }
func (m *Models) Aggregator() *Completion { return m.For(contractx.AgentTypeAggregator) }
func (m *Models) Document() *Completion   { return m.For(contractx.AgentTypeDocument) }
func (m *Models) News() *Completion       { return m.For(contractx.AgentTypeNews) }
func (m *Models) General() *Completion    { return m.For(contractx.AgentTypeGeneral) }
func (m *Models) Image() *Completion      { return m.For(contractx.AgentTypeImage) }

// NewModels builds a chat model per role for the configured provider.
// gemClient is required only when the provider is gemini.
func NewModels(ctx context.Context, cfg Config, gemCfg geminix.Config, gemClient *genai.Client) (*Models, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	build := func(role contractx.AgentType) (einomodel.BaseChatModel, error) {
		switch cfg.normalizedProvider() {
		case ProviderGemini:
			if gemClient == nil {
				return nil, fmt.Errorf("%w: gemini client is required", contractx.ErrValidation)
			}
			name, temp := cfg.ModelFor(role)
			return gemCfg.NewChatModel(ctx, gemClient, name, temp)
		default:
			orCfg := cfg.OpenRouterFor(role)
			return orCfg.New(ctx)
		}
	}

	models := &Models{byRole: make(map[contractx.AgentType]*Completion, len(Roles))}
	for _, role := range Roles {
		chatModel, err := build(role)
		if err != nil {
			return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, role, err)
		}
		completion, err := NewCompletion(ctx, chatModel, string(role))
		if err != nil {
			return nil, err
		}
		models.byRole[role] = completion
	}
	return models, nil
}

// NewStaticModels wires the same chat model into every role.
func NewStaticModels(ctx context.Context, chatModel einomodel.BaseChatModel) (*Models, error) {
	models := &Models{byRole: make(map[contractx.AgentType]*Completion, len(Roles))}
	for _, role := range Roles {
		completion, err := NewCompletion(ctx, chatModel, string(role))
		if err != nil {
			return nil, err
		}
		models.byRole[role] = completion
	}
	return models, nil
}
