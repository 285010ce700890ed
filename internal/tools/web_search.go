package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hession/taskmate/internal/config"
)

// SearchHit a single web search result
type SearchHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchProvider performs web searches
type SearchProvider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)
}

// NewWebSearchTool returns the web search descriptor backed by provider.
// A nil provider uses the DuckDuckGo instant answer API configured from cfg.
func NewWebSearchTool(provider SearchProvider, cfg *config.Config) Descriptor {
	defaultLimit := 5
	if provider == nil {
		baseURL, userAgent := "", ""
		timeout := 15 * time.Second
		if cfg != nil {
			baseURL = cfg.Tools.SearchBaseURL
			userAgent = cfg.Tools.UserAgent
			if cfg.Tools.FetchTimeoutSeconds > 0 {
				timeout = time.Duration(cfg.Tools.FetchTimeoutSeconds) * time.Second
			}
		}
		provider = NewDuckDuckGo(baseURL, userAgent, timeout)
	}
	if cfg != nil && cfg.Tools.SearchLimit > 0 {
		defaultLimit = cfg.Tools.SearchLimit
	}

	return Descriptor{
		Name:           "web_search",
		Category:       CategoryWeb,
		Description:    "Search the web and return a list of sources",
		Keywords:       []string{"search the web", "look up", "search online"},
		RequiredParams: []string{"query"},
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			query, err := stringParam(params, "query")
			if err != nil {
				return nil, err
			}
			limit := defaultLimit
			if val, ok := toFloat(params["limit"]); ok && val > 0 {
				limit = int(val)
			}

			hits, err := provider.Search(ctx, query, limit)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"query":    query,
				"provider": provider.Name(),
				"results":  hits,
			}, nil
		},
	}
}

// DuckDuckGo searches via the DuckDuckGo instant answer API
type DuckDuckGo struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewDuckDuckGo creates a DuckDuckGo provider
func NewDuckDuckGo(baseURL, userAgent string, timeout time.Duration) *DuckDuckGo {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://api.duckduckgo.com"
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = "TaskMate/0.1"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &DuckDuckGo{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

func (p *DuckDuckGo) Name() string {
	return "duckduckgo"
}

type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Topics   []ddgTopic `json:"Topics"`
}

type ddgResponse struct {
	Heading       string     `json:"Heading"`
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	Results       []ddgTopic `json:"Results"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

// hitCollector dedupes hits by URL up to a limit
type hitCollector struct {
	limit int
	seen  map[string]bool
	hits  []SearchHit
}

func (c *hitCollector) full() bool {
	return len(c.hits) >= c.limit
}

func (c *hitCollector) add(title, link, snippet string) {
	link = strings.TrimSpace(link)
	if c.full() || link == "" || c.seen[link] {
		return
	}
	c.seen[link] = true
	c.hits = append(c.hits, SearchHit{
		Title:   strings.TrimSpace(title),
		URL:     link,
		Snippet: strings.TrimSpace(snippet),
	})
}

func (c *hitCollector) addTopics(topics []ddgTopic) {
	for _, topic := range topics {
		if c.full() {
			return
		}
		if len(topic.Topics) > 0 {
			c.addTopics(topic.Topics)
			continue
		}
		c.add(topic.Text, topic.FirstURL, topic.Text)
	}
}

func (p *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if limit <= 0 {
		limit = 5
	}

	endpoint, err := url.Parse(p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("skip_disambig", "1")
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search request failed with status %d", resp.StatusCode)
	}

	var payload ddgResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c := &hitCollector{limit: limit, seen: make(map[string]bool)}
	if payload.AbstractText != "" {
		title := payload.Heading
		if title == "" {
			title = payload.AbstractText
		}
		c.add(title, payload.AbstractURL, payload.AbstractText)
	}
	c.addTopics(payload.Results)
	c.addTopics(payload.RelatedTopics)

	return c.hits, nil
}
