package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	pdfx "github.com/ledongthuc/pdf"
)

var (
	ErrNoDocument         = errors.New("no document has been processed")
	ErrUnsupportedFormat  = errors.New("unsupported document format")
	ErrEmptyDocument      = errors.New("document has no extractable text")
	errDocumentPathNeeded = errors.New("document path is empty")
)

// Extract returns the plain text of a PDF or text file. PDF pages are
// separated by a blank line.
func Extract(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errDocumentPathNeeded
	}

	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = extractPDF(path)
	case ".txt", ".md", ".csv", ".json":
		var raw []byte
		raw, err = os.ReadFile(path)
		text = string(raw)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}

func extractPDF(path string) (string, error) {
	f, r, err := pdfx.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		txt, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		if t := strings.TrimSpace(txt); t != "" {
			b.WriteString(t)
			b.WriteString("\n\n")
		}
	}
	return b.String(), nil
}
