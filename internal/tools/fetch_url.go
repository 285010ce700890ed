package tools

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/hession/taskmate/internal/config"
)

const defaultFetchMaxBytes = int64(200000)

type webFetcher struct {
	userAgent string
	timeout   time.Duration
	maxBytes  int64
	client    *http.Client
}

// NewWebFetchTool returns the web fetch descriptor configured from cfg
func NewWebFetchTool(cfg *config.Config) Descriptor {
	f := &webFetcher{
		userAgent: "TaskMate/0.1",
		timeout:   15 * time.Second,
		maxBytes:  defaultFetchMaxBytes,
	}
	if cfg != nil {
		if strings.TrimSpace(cfg.Tools.UserAgent) != "" {
			f.userAgent = cfg.Tools.UserAgent
		}
		if cfg.Tools.FetchTimeoutSeconds > 0 {
			f.timeout = time.Duration(cfg.Tools.FetchTimeoutSeconds) * time.Second
		}
		if cfg.Tools.FetchMaxBytes > 0 {
			f.maxBytes = cfg.Tools.FetchMaxBytes
		}
	}
	f.client = &http.Client{Timeout: f.timeout}

	return Descriptor{
		Name:           "web_fetch",
		Category:       CategoryWeb,
		Description:    "Fetch content from a URL",
		Keywords:       []string{"fetch", "download", "url", "http", "api"},
		RequiredParams: []string{"url"},
		Handler:        f.fetch,
	}
}

func (f *webFetcher) fetch(ctx context.Context, params map[string]any) (any, error) {
	rawURL, err := stringParam(params, "url")
	if err != nil {
		return nil, err
	}

	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Scheme == "" {
		return nil, fmt.Errorf("invalid url: %s", rawURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme: %s", parsed.Scheme)
	}

	maxBytes := f.maxBytes
	if val, ok := toFloat(params["max_bytes"]); ok && val > 0 {
		maxBytes = int64(val)
	}

	stripHTML := true
	if val, ok := params["strip_html"].(bool); ok {
		stripHTML = val
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	content := string(body)
	if stripHTML && strings.Contains(strings.ToLower(contentType), "text/html") {
		content = stripHTMLTags(content)
	}

	return map[string]any{
		"url":          parsed.String(),
		"status":       resp.StatusCode,
		"content_type": contentType,
		"content":      content,
		"size":         len(body),
	}, nil
}

var (
	scriptTag = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	allTags   = regexp.MustCompile(`(?s)<[^>]+>`)
)

func stripHTMLTags(input string) string {
	trimmed := scriptTag.ReplaceAllString(input, " ")
	trimmed = styleTag.ReplaceAllString(trimmed, " ")
	trimmed = allTags.ReplaceAllString(trimmed, " ")
	trimmed = html.UnescapeString(trimmed)
	return strings.Join(strings.Fields(trimmed), " ")
}
