package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
	planx "github.com/tanpawarit/Chative-Finance-Assistant/agent/plan"
	"github.com/tanpawarit/Chative-Finance-Assistant/pkg/tavily"
)

const (
	maxArticleBytes = 2 << 20
	maxArticleRunes = 6000
	snippetRunes    = 300
)

// Searcher is the subset of the Tavily client the news adapter needs.
type Searcher interface {
	DefaultRequest(query string) tavily.SearchRequest
	Search(ctx context.Context, req tavily.SearchRequest) (*tavily.SearchResponse, error)
}

type NewsConfig struct {
	FetchArticles bool          `split_words:"true" default:"true"`
	FetchTimeout  time.Duration `split_words:"true" default:"10s"`
	FetchWorkers  int           `split_words:"true" default:"3"`
}

// News searches recent financial news and summarizes the articles.
type News struct {
	search     Searcher
	llm        contractx.LLM
	prompt     string
	cfg        NewsConfig
	httpClient *http.Client
}

func NewNews(search Searcher, llm contractx.LLM, prompt string, cfg NewsConfig) *News {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.FetchWorkers <= 0 {
		cfg.FetchWorkers = 3
	}
	return &News{
		search:     search,
		llm:        llm,
		prompt:     prompt,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
	}
}

type article struct {
	title   string
	url     string
	snippet string
	body    string
}

func (n *News) Invoke(ctx context.Context, req contractx.ToolRequest) (string, error) {
	query := strings.TrimSpace(req.BaseInstruction)
	if query == "" {
		query = strings.TrimSpace(req.Instruction)
	}

	resp, err := n.search.Search(ctx, n.search.DefaultRequest("latest financial news on "+query))
	if err != nil {
		return "", contractx.NewToolError(planx.KindNews, "could not search financial news", err)
	}
	if resp == nil || len(resp.Results) == 0 {
		return "No recent financial news found for: " + query, nil
	}

	articles := n.fetch(ctx, resp.Results)

	summary, err := n.llm.Complete(ctx, n.prompt, newsUserMessage(req.Instruction, articles))
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("news summary failed, returning listing")
		return listing(query, articles), nil
	}
	return summary + "\n\n" + sources(articles), nil
}

// fetch downloads every result page concurrently. A page that cannot be
// fetched keeps the search snippet as its body.
func (n *News) fetch(ctx context.Context, results []tavily.Result) []article {
	articles := make([]article, len(results))
	for i, r := range results {
		articles[i] = article{
			title:   strings.TrimSpace(r.Title),
			url:     strings.TrimSpace(r.URL),
			snippet: strings.TrimSpace(r.Content),
			body:    strings.TrimSpace(r.Content),
		}
	}
	if !n.cfg.FetchArticles {
		return articles
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.cfg.FetchWorkers)
	for i := range articles {
		if articles[i].url == "" {
			continue
		}
		g.Go(func() error {
			text, err := n.fetchText(gctx, articles[i].url)
			if err != nil {
				log.Debug().Err(err).Str("url", articles[i].url).Msg("article fetch failed")
				return nil
			}
			if text != "" {
				articles[i].body = clip(text, maxArticleRunes)
			}
			return nil
		})
	}
	_ = g.Wait()
	return articles
}

func (n *News) fetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := n.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("http status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxArticleBytes))
	if err != nil {
		return "", err
	}
	return htmlToText(string(raw))
}

func newsUserMessage(request string, articles []article) string {
	var b strings.Builder
	b.WriteString("Request: ")
	b.WriteString(strings.TrimSpace(request))
	b.WriteString("\n\nArticles:")
	for i, a := range articles {
		fmt.Fprintf(&b, "\n\n[%d] %s\nURL: %s\n%s", i+1, a.title, a.url, a.body)
	}
	return b.String()
}

func sources(articles []article) string {
	var b strings.Builder
	b.WriteString("Sources:")
	for _, a := range articles {
		if a.url != "" {
			b.WriteString("\n- ")
			b.WriteString(a.url)
		}
	}
	return b.String()
}

func listing(query string, articles []article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Latest Financial News for '%s'\n", query)
	for i, a := range articles {
		title := a.title
		if title == "" {
			title = "No title"
		}
		fmt.Fprintf(&b, "\n**%d. %s** Summary: %s Source: %s", i+1, title, clip(a.snippet, snippetRunes), a.url)
	}
	return b.String()
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
