package tool

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go"

	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
	planx "github.com/tanpawarit/Chative-Finance-Assistant/agent/plan"
	openrouterx "github.com/tanpawarit/Chative-Finance-Assistant/pkg/openrouter"
)

// LawConfig points the legal adapter at any OpenAI-compatible endpoint.
type LawConfig struct {
	BaseURL     string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.groq.com/openai/v1"`
	APIKey      string        `envconfig:"API_KEY" split_words:"true"`
	Model       string        `envconfig:"MODEL" split_words:"true" default:"llama3-70b-8192"`
	Temperature float64       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout     time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`
}

func (c LawConfig) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Law answers legal framework questions with a single chat completion.
type Law struct {
	client      *openai.Client
	model       string
	temperature float64
	prompt      string
}

// NewLaw returns nil when no API key is configured so the catalog reports
// the tool as unavailable.
func NewLaw(cfg LawConfig, prompt string) *Law {
	client := openrouterx.NewClient(openrouterx.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
	})
	if client == nil {
		return nil
	}
	return &Law{client: client, model: cfg.Model, temperature: cfg.Temperature, prompt: prompt}
}

func (l *Law) Invoke(ctx context.Context, req contractx.ToolRequest) (string, error) {
	resp, err := l.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(l.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(l.prompt),
			openai.UserMessage(withHistory(req.Instruction, req.History)),
		},
		Temperature: openai.Float(l.temperature),
	})
	if err != nil {
		return "", contractx.NewToolError(planx.KindLawQA, "could not answer the legal question", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", contractx.NewToolError(planx.KindLawQA, "legal model returned no answer",
			errors.Join(contractx.ErrSchemaViolation, errors.New("empty choices")))
	}
	return resp.Choices[0].Message.Content, nil
}
