package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
)

var (
	//go:embed template/router.txt
	routerRaw string

	//go:embed template/aggregator.txt
	aggregatorRaw string

	//go:embed template/document.txt
	documentRaw string

	//go:embed template/news.txt
	newsRaw string

	//go:embed template/general.txt
	generalRaw string

	//go:embed template/image.txt
	imageRaw string

	//go:embed template/law.txt
	lawRaw string
)

// PromptSet holds the system prompt of every role.
type PromptSet struct {
	Router     string
	Aggregator string
	Document   string
	News       string
	General    string
	Image      string
	Law        string
}

// LoadPromptSet returns the embedded prompts, trimmed.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Router:     strings.TrimSpace(routerRaw),
		Aggregator: strings.TrimSpace(aggregatorRaw),
		Document:   strings.TrimSpace(documentRaw),
		News:       strings.TrimSpace(newsRaw),
		General:    strings.TrimSpace(generalRaw),
		Image:      strings.TrimSpace(imageRaw),
		Law:        strings.TrimSpace(lawRaw),
	}
}

// Validate fails when any prompt is empty.
func (p PromptSet) Validate() error {
	fields := map[string]string{
		"router":     p.Router,
		"aggregator": p.Aggregator,
		"document":   p.Document,
		"news":       p.News,
		"general":    p.General,
		"image":      p.Image,
		"law":        p.Law,
	}
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s", contractx.ErrPromptMissing, name)
		}
	}
	return nil
}
