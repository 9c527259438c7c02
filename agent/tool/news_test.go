package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/cenkalti/backoff/v4"

	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
	"github.com/tanpawarit/Chative-Finance-Assistant/pkg/tavily"
)

type tavilyFake struct {
	mu      sync.Mutex
	queries []string
	results []tavily.Result
	status  int
}

func (f *tavilyFake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req tavily.SearchRequest
	raw, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(raw, &req)

	f.mu.Lock()
	f.queries = append(f.queries, req.Query)
	status, results := f.status, f.results
	f.mu.Unlock()

	if status != 0 {
		http.Error(w, "bad request", status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tavily.SearchResponse{Query: req.Query, Results: results})
}

func newTavily(t *testing.T, fake *tavilyFake) *tavily.Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := tavily.New(tavily.Config{APIKey: "k", BaseURL: srv.URL, MaxResults: 3},
		tavily.WithBackOff(func() backoff.BackOff { return &backoff.StopBackOff{} }))
	if err != nil {
		t.Fatalf("tavily.New: %v", err)
	}
	return c
}

func TestNewsSummarizesFetchedArticles(t *testing.T) {
	t.Parallel()

	pages := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			fmt.Fprint(w, `<html><head><title>x</title></head><body><script>track()</script>
				<p>Nifty closed 1.2% higher on Friday.</p><p>Banks led gains.</p></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer pages.Close()

	fake := &tavilyFake{results: []tavily.Result{
		{Title: "Markets rally", URL: pages.URL + "/ok", Content: "snippet one"},
		{Title: "Rupee steady", URL: pages.URL + "/gone", Content: "rupee snippet"},
	}}
	llm := &fakeLLM{reply: "Markets rallied."}
	news := NewNews(newTavily(t, fake), llm, "news prompt", NewsConfig{FetchArticles: true})

	out, err := news.Invoke(context.Background(), contractx.ToolRequest{
		Instruction:     "Nifty today\n\nDependency: X output:\nctx",
		BaseInstruction: "Nifty today",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.queries[0] != "latest financial news on Nifty today" {
		t.Fatalf("unexpected search query: %q", fake.queries[0])
	}
	want := "Markets rallied.\n\nSources:\n- " + pages.URL + "/ok\n- " + pages.URL + "/gone"
	if out != want {
		t.Fatalf("unexpected output:\n%s", out)
	}

	user := llm.user[0]
	if !strings.Contains(user, "Nifty closed 1.2% higher on Friday.\nBanks led gains.") {
		t.Fatalf("fetched article body missing: %q", user)
	}
	if strings.Contains(user, "track()") {
		t.Fatal("script content must be stripped")
	}
	if !strings.Contains(user, "rupee snippet") {
		t.Fatal("failed fetch must fall back to the snippet")
	}
}

func TestNewsEmptyResults(t *testing.T) {
	t.Parallel()

	llm := &fakeLLM{}
	news := NewNews(newTavily(t, &tavilyFake{}), llm, "p", NewsConfig{})

	out, err := news.Invoke(context.Background(), contractx.ToolRequest{BaseInstruction: "gold price"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "No recent financial news found for: gold price" {
		t.Fatalf("unexpected output: %q", out)
	}
	if len(llm.user) != 0 {
		t.Fatal("model must not be called without results")
	}
}

func TestNewsSearchFailure(t *testing.T) {
	t.Parallel()

	news := NewNews(newTavily(t, &tavilyFake{status: http.StatusBadRequest}), &fakeLLM{}, "p", NewsConfig{})
	_, err := news.Invoke(context.Background(), contractx.ToolRequest{BaseInstruction: "q"})
	var se *tavily.StatusError
	if !errors.Is(err, contractx.ErrToolInvocation) || !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewsListingWhenSummaryFails(t *testing.T) {
	t.Parallel()

	fake := &tavilyFake{results: []tavily.Result{{Title: "Sensex", URL: "https://example.com/a", Content: "Sensex up"}}}
	news := NewNews(newTavily(t, fake), &fakeLLM{err: contractx.ErrModelInvoke}, "p", NewsConfig{})

	out, err := news.Invoke(context.Background(), contractx.ToolRequest{BaseInstruction: "sensex"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "## Latest Financial News for 'sensex'") || !strings.Contains(out, "https://example.com/a") {
		t.Fatalf("unexpected listing: %q", out)
	}
}

func TestHTMLToText(t *testing.T) {
	t.Parallel()

	got, err := htmlToText(`<div>Hello   <b>world</b></div><style>p{}</style><ul><li>one</li><li> two </li></ul>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hello world\none\ntwo" {
		t.Fatalf("htmlToText() = %q", got)
	}
	if got, _ := htmlToText("  "); got != "" {
		t.Fatalf("blank input = %q", got)
	}
}
