package tool

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
	planx "github.com/tanpawarit/Chative-Finance-Assistant/agent/plan"
)

// LineExtractor turns image bytes into text lines in reading order.
type LineExtractor interface {
	ExtractLines(ctx context.Context, data []byte, mimeType string) ([]string, error)
}

type Image struct {
	ocr    LineExtractor
	llm    contractx.LLM
	prompt string
}

func NewImage(ocr LineExtractor, llm contractx.LLM, prompt string) *Image {
	return &Image{ocr: ocr, llm: llm, prompt: prompt}
}

func (i *Image) Invoke(ctx context.Context, req contractx.ToolRequest) (string, error) {
	path := strings.TrimSpace(req.Attachments.Image)
	if path == "" {
		return "", contractx.NewToolError(planx.KindImageQA, "no image was provided", contractx.ErrMissingAttachment)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", contractx.NewToolError(planx.KindImageQA, "could not read the uploaded image", err)
	}

	lines, err := i.ocr.ExtractLines(ctx, data, mimeOf(path, data))
	if err != nil {
		return "", contractx.NewToolError(planx.KindImageQA, "could not read text from the image", err)
	}

	user := strings.Join(lines, "\n") + "\n\nQuestion: " + strings.TrimSpace(req.Instruction)
	answer, err := i.llm.Complete(ctx, i.prompt, user)
	if err != nil {
		return "", contractx.NewToolError(planx.KindImageQA, "could not answer from the image", err)
	}
	return answer, nil
}

func mimeOf(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	}
	return http.DetectContentType(data)
}
