package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
	openrouterx "github.com/tanpawarit/Chative-Finance-Assistant/pkg/openrouter"
)

type Provider string

const (
	ProviderOpenRouter Provider = "openrouter"
	ProviderGemini     Provider = "gemini"
)

// Config selects the chat provider and the per-role model overrides.
// A negative role temperature inherits Temperature.
type Config struct {
	Provider           Provider      `envconfig:"PROVIDER" split_words:"true" default:"openrouter"`
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	RouterModel           string  `envconfig:"ROUTER_MODEL" split_words:"true"`
	AggregatorModel       string  `envconfig:"AGGREGATOR_MODEL" split_words:"true"`
	DocumentModel         string  `envconfig:"DOCUMENT_MODEL" split_words:"true"`
	NewsModel             string  `envconfig:"NEWS_MODEL" split_words:"true"`
	GeneralModel          string  `envconfig:"GENERAL_MODEL" split_words:"true"`
	ImageModel            string  `envconfig:"IMAGE_MODEL" split_words:"true"`
	RouterTemperature     float32 `envconfig:"ROUTER_TEMPERATURE" split_words:"true" default:"0"`
	AggregatorTemperature float32 `envconfig:"AGGREGATOR_TEMPERATURE" split_words:"true" default:"-1"`
	DocumentTemperature   float32 `envconfig:"DOCUMENT_TEMPERATURE" split_words:"true" default:"-1"`
	NewsTemperature       float32 `envconfig:"NEWS_TEMPERATURE" split_words:"true" default:"0"`
	GeneralTemperature    float32 `envconfig:"GENERAL_TEMPERATURE" split_words:"true" default:"-1"`
	ImageTemperature      float32 `envconfig:"IMAGE_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) normalizedProvider() Provider {
	p := Provider(strings.ToLower(strings.TrimSpace(string(c.Provider))))
	if p == "" {
		return ProviderOpenRouter
	}
	return p
}

func (c Config) Validate() error {
	switch c.normalizedProvider() {
	case ProviderOpenRouter:
		if strings.TrimSpace(c.APIKey) == "" {
			return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
		}
		if strings.TrimSpace(c.Model) == "" {
			return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
		}
	case ProviderGemini:
		// key and default model live in the GEMINI_* group
	default:
		return fmt.Errorf("%w: unsupported llm provider %q", contractx.ErrValidation, c.Provider)
	}
	return nil
}

// ModelFor returns the model name and temperature for a role.
// An empty name means "provider default".
func (c Config) ModelFor(agentType contractx.AgentType) (string, float32) {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	override := func(name string, t float32) {
		if v := strings.TrimSpace(name); v != "" {
			modelName = v
		}
		if t >= 0 {
			temp = t
		}
	}

	switch agentType {
	case contractx.AgentTypeRouter:
		override(c.RouterModel, c.RouterTemperature)
	case contractx.AgentTypeAggregator:
		override(c.AggregatorModel, c.AggregatorTemperature)
	case contractx.AgentTypeDocument:
		override(c.DocumentModel, c.DocumentTemperature)
	case contractx.AgentTypeNews:
		override(c.NewsModel, c.NewsTemperature)
	case contractx.AgentTypeGeneral:
		override(c.GeneralModel, c.GeneralTemperature)
	case contractx.AgentTypeImage:
		override(c.ImageModel, c.ImageTemperature)
	}
	return modelName, temp
}

func (c Config) OpenRouterFor(agentType contractx.AgentType) openrouterx.Config {
	modelName, temp := c.ModelFor(agentType)
	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
