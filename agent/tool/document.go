package tool

import (
	"context"
	"errors"
	"strings"

	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
	"github.com/tanpawarit/Chative-Finance-Assistant/agent/document"
	planx "github.com/tanpawarit/Chative-Finance-Assistant/agent/plan"
)

const NoDocumentProcessed = "No document has been processed. Please upload and process a document first."

// Retriever is the document index the DocumentQA adapter searches.
type Retriever interface {
	Ensure(ctx context.Context, userID, sessionID, path string) error
	Search(ctx context.Context, userID, sessionID, query string, k int) ([]document.Scored, error)
}

type Document struct {
	retriever Retriever
	llm       contractx.LLM
	prompt    string
}

func NewDocument(retriever Retriever, llm contractx.LLM, prompt string) *Document {
	return &Document{retriever: retriever, llm: llm, prompt: prompt}
}

func (d *Document) Invoke(ctx context.Context, req contractx.ToolRequest) (string, error) {
	if path := strings.TrimSpace(req.Attachments.Document); path != "" {
		if err := d.retriever.Ensure(ctx, req.UserID, req.SessionID, path); err != nil {
			return "", contractx.NewToolError(planx.KindDocumentQA, "could not process the uploaded document", err)
		}
	}

	query := strings.TrimSpace(req.BaseInstruction)
	if query == "" {
		query = req.Instruction
	}
	chunks, err := d.retriever.Search(ctx, req.UserID, req.SessionID, query, 0)
	if errors.Is(err, document.ErrNoDocument) {
		return NoDocumentProcessed, nil
	}
	if err != nil {
		return "", contractx.NewToolError(planx.KindDocumentQA, "could not search the document", err)
	}

	var b strings.Builder
	b.WriteString("Context:\n")
	b.WriteString(document.Context(chunks))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(strings.TrimSpace(req.Instruction))

	answer, err := d.llm.Complete(ctx, d.prompt, b.String())
	if err != nil {
		return "", contractx.NewToolError(planx.KindDocumentQA, "could not answer from the document", err)
	}
	return answer, nil
}
