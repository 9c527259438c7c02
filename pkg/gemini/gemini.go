package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	geminimodel "github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

var ErrMissingAPIKey = errors.New("gemini: api key is required")

type Config struct {
	APIKey      string  `envconfig:"API_KEY" split_words:"true"`
	BaseURL     string  `envconfig:"BASE_URL" split_words:"true"`
	Model       string  `envconfig:"MODEL" split_words:"true" default:"gemini-2.0-flash"`
	OCRModel    string  `envconfig:"OCR_MODEL" split_words:"true"`
	MaxTokens   int     `envconfig:"MAX_TOKENS" split_words:"true" default:"2000"`
	Temperature float32 `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// NewClient builds the shared genai client used by chat models and OCR.
func (c Config) NewClient(ctx context.Context) (*genai.Client, error) {
	if !c.Enabled() {
		return nil, ErrMissingAPIKey
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(c.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if c.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = c.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return client, nil
}

// NewChatModel wraps client as an eino chat model. Empty modelName falls back
// to the configured default; a negative temperature keeps the configured one.
func (c Config) NewChatModel(ctx context.Context, client *genai.Client, modelName string, temperature float32) (model.BaseChatModel, error) {
	if client == nil {
		return nil, errors.New("gemini: client is nil")
	}
	name := strings.TrimSpace(modelName)
	if name == "" {
		name = strings.TrimSpace(c.Model)
	}
	temp := c.Temperature
	if temperature >= 0 {
		temp = temperature
	}
	maxTokens := c.MaxTokens

	m, err := geminimodel.NewChatModel(ctx, &geminimodel.Config{
		Client:      client,
		Model:       name,
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create chat model %s: %w", name, err)
	}
	return m, nil
}

const ocrInstruction = "Transcribe every line of text visible in this image in reading order. " +
	"Output one line of text per line, with no commentary, numbering or formatting."

// OCR extracts text lines from images through a multimodal Gemini model.
type OCR struct {
	client *genai.Client
	model  string
}

func NewOCR(client *genai.Client, modelName string) (*OCR, error) {
	if client == nil {
		return nil, errors.New("gemini: client is nil")
	}
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		return nil, errors.New("gemini: ocr model is required")
	}
	return &OCR{client: client, model: modelName}, nil
}

func (o *OCR) ExtractLines(ctx context.Context, data []byte, mimeType string) ([]string, error) {
	if len(data) == 0 {
		return nil, errors.New("gemini: image is empty")
	}
	if strings.TrimSpace(mimeType) == "" {
		mimeType = "image/png"
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, mimeType),
			genai.NewPartFromText(ocrInstruction),
		}, genai.RoleUser),
	}

	resp, err := o.client.Models.GenerateContent(ctx, o.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: ocr request: %w", err)
	}
	return SplitLines(resp.Text()), nil
}

// SplitLines returns the non-blank lines of text in order, trimmed.
func SplitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, ln := range raw {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	return lines
}
