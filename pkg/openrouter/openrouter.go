package openrouter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openaimodel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const DefaultBaseURL = "https://openrouter.ai/api/v1"

var (
	ErrMissingAPIKey = errors.New("openrouter: api key is required")
	ErrMissingModel  = errors.New("openrouter: model is required")
)

type LLMBuilder interface {
	New(ctx context.Context) (model.ToolCallingChatModel, error)
}

var _ LLMBuilder = (*Config)(nil)

// Reasoning traces are switched off for these model families so the
// content field carries only the answer.
var reasoningOffPrefixes = []string{
	"x-ai/grok-4",
	"deepseek/deepseek-r1",
}

func excludesReasoning(modelName string) bool {
	for _, p := range reasoningOffPrefixes {
		if strings.HasPrefix(modelName, p) {
			return true
		}
	}
	return false
}

// Config describes one chat model reachable through an OpenAI compatible
// endpoint. OpenRouter is the default; Groq and OpenAI work the same way.
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true"`
	MaxCompletionToken *int          `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	MaxRetries         int           `envconfig:"MAX_RETRIES" split_words:"true" default:"0"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`
}

func (c Config) baseURL() string {
	if u := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/"); u != "" {
		return u
	}
	return DefaultBaseURL
}

// ChatModelConfig maps the endpoint onto the eino OpenAI chat model config.
func (c Config) ChatModelConfig() (*openaimodel.ChatModelConfig, error) {
	apiKey := strings.TrimSpace(c.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	modelName := strings.TrimSpace(c.Model)
	if modelName == "" {
		return nil, ErrMissingModel
	}

	temp := c.Temperature
	conf := &openaimodel.ChatModelConfig{
		BaseURL:     c.baseURL(),
		APIKey:      apiKey,
		Model:       modelName,
		MaxTokens:   c.MaxCompletionToken,
		Temperature: &temp,
		Timeout:     c.Timeout,
	}
	if excludesReasoning(modelName) {
		conf.ExtraFields = map[string]any{
			"reasoning": map[string]any{"exclude": true, "effort": "none"},
		}
	}
	return conf, nil
}

func (c *Config) New(ctx context.Context) (model.ToolCallingChatModel, error) {
	conf, err := c.ChatModelConfig()
	if err != nil {
		return nil, err
	}
	m, err := openaimodel.NewChatModel(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("openrouter: create chat model %s: %w", conf.Model, err)
	}
	return m, nil
}

// NewClient creates an OpenAI SDK client for the endpoint, or nil when no
// API key is configured.
func NewClient(cfg Config) *openaisdk.Client {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(cfg.baseURL()),
		option.WithMaxRetries(max(cfg.MaxRetries, 0)),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	// attribution headers, ignored by non-OpenRouter endpoints
	if u := strings.TrimSpace(cfg.SiteURL); u != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", u))
	}
	if n := strings.TrimSpace(cfg.SiteName); n != "" {
		opts = append(opts, option.WithHeader("X-Title", n))
	}

	client := openaisdk.NewClient(opts...)
	return &client
}
