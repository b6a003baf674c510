// Package extract turns web search results into plain-text context for the
// answer generator. Extraction is best-effort: every failure degrades to the
// search snippet rather than an error.
package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/mathagent/search"
	"golang.org/x/sync/errgroup"
)

const (
	NoRelevantInformation = "No relevant information found in web search results."
	SearchFailed          = "An error occurred during web search."
	NotConfigured         = "Web search is not configured."
)

// IsNoContent reports whether s is one of the sentinels returned by
// FetchAndExtractAll in place of usable content.
func IsNoContent(s string) bool {
	switch s {
	case NoRelevantInformation, SearchFailed, NotConfigured:
		return true
	}
	return false
}

const (
	DefaultMaxChars    = 1500
	DefaultTimeout     = 5 * time.Second
	DefaultUserAgent   = "Mozilla/5.0"
	DefaultParallelism = 3
	TruncationMarker   = "..."
	SnippetSource      = "Search Result Snippet"
	Separator          = "\n\n---\n\n"
	maxBodyBytes       = 2 << 20
)

type Content struct {
	SourceLabel string
	Text        string
	// Snippet is set when Text is the search snippet rather than the page text.
	Snippet bool
}

func (c Content) String() string {
	if c.Snippet {
		return fmt.Sprintf("Source: %s\nContent Snippet:\n%s", c.SourceLabel, c.Text)
	}
	return fmt.Sprintf("Source: %s\nContent:\n%s", c.SourceLabel, c.Text)
}

type Option func(*Extractor)

func WithHTTPClient(c *http.Client) Option {
	return func(e *Extractor) {
		e.client = c
	}
}

func WithTextExtractor(te TextExtractor) Option {
	return func(e *Extractor) {
		e.text = te
	}
}

func WithUserAgent(ua string) Option {
	return func(e *Extractor) {
		e.userAgent = ua
	}
}

func WithMaxChars(n int) Option {
	return func(e *Extractor) {
		e.maxChars = n
	}
}

func WithParallelism(n int) Option {
	return func(e *Extractor) {
		e.parallelism = n
	}
}

// New creates an Extractor. A nil provider disables web search.
func New(log *slog.Logger, provider search.Provider, opts ...Option) *Extractor {
	e := &Extractor{
		log:         log,
		provider:    provider,
		client:      &http.Client{Timeout: DefaultTimeout},
		text:        HTMLText{},
		userAgent:   DefaultUserAgent,
		maxChars:    DefaultMaxChars,
		parallelism: DefaultParallelism,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type Extractor struct {
	log         *slog.Logger
	provider    search.Provider
	client      *http.Client
	text        TextExtractor
	userAgent   string
	maxChars    int
	parallelism int
}

// Extract never fails: when the page can't be fetched or parsed, the snippet
// is returned instead.
func (e *Extractor) Extract(ctx context.Context, url, snippet string) Content {
	text, err := e.fetchText(ctx, url)
	if err != nil {
		e.log.Warn("failed to extract page text, using snippet", slog.String("url", url), slog.Any("error", err))
		return Content{SourceLabel: url, Text: snippet, Snippet: true}
	}
	e.log.Debug("extracted page text", slog.String("url", url), slog.Int("chars", len(text)))
	return Content{SourceLabel: url, Text: truncate(text, e.maxChars) + TruncationMarker}
}

func (e *Extractor) fetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return "", fmt.Errorf("invalid content type %q: %w", ct, err)
		}
		if !strings.HasPrefix(mediaType, "text/") && mediaType != "application/xhtml+xml" {
			return "", fmt.Errorf("unsupported content type %q", mediaType)
		}
	}
	text, err := e.text.ExtractText(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}
	return text, nil
}

// FetchAndExtractAll searches the web for the query and returns the extracted
// content of every result, in search order, joined by Separator. When there is
// nothing usable, one of the sentinels checked by IsNoContent is returned.
func (e *Extractor) FetchAndExtractAll(ctx context.Context, query string) string {
	if e.provider == nil {
		e.log.Warn("web search is not configured")
		return NotConfigured
	}
	results, err := e.provider.Search(ctx, query)
	if err != nil {
		e.log.Error("web search failed", slog.String("query", query), slog.Any("error", err))
		return SearchFailed
	}
	e.log.Info("web search complete", slog.String("query", query), slog.Int("results", len(results)))

	blocks := make([]string, len(results))
	var g errgroup.Group
	if e.parallelism > 0 {
		g.SetLimit(e.parallelism)
	}
	for i, r := range results {
		if r.URL == "" {
			if strings.TrimSpace(r.Snippet) != "" {
				blocks[i] = Content{SourceLabel: SnippetSource, Text: r.Snippet}.String()
			}
			continue
		}
		g.Go(func() error {
			blocks[i] = e.Extract(ctx, r.URL, r.Snippet).String()
			return nil
		})
	}
	_ = g.Wait()

	var nonEmpty []string
	for _, b := range blocks {
		if b != "" {
			nonEmpty = append(nonEmpty, b)
		}
	}
	if len(nonEmpty) == 0 {
		e.log.Info("no content extracted from web search results", slog.String("query", query))
		return NoRelevantInformation
	}
	return strings.Join(nonEmpty, Separator)
}

func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
