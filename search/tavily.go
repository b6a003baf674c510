package search

import (
	"context"
	"time"

	"github.com/a-h/jsonapi"
)

const DefaultTavilyURL = "https://api.tavily.com"

func NewTavily(baseURL, apiKey string, maxResults int, timeout time.Duration) *Tavily {
	if baseURL == "" {
		baseURL = DefaultTavilyURL
	}
	if maxResults <= 0 {
		maxResults = 3
	}
	return &Tavily{
		baseURL:    baseURL,
		apiKey:     apiKey,
		maxResults: maxResults,
		timeout:    timeout,
	}
}

type Tavily struct {
	baseURL    string
	apiKey     string
	maxResults int
	timeout    time.Duration
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

type tavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

func (t *Tavily) Search(ctx context.Context, query string) (results []Result, err error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	url, err := jsonapi.URL(t.baseURL).Path("search").String()
	if err != nil {
		return nil, &Error{Query: query, Err: err}
	}
	resp, err := jsonapi.Post[tavilyRequest, tavilyResponse](ctx, url, tavilyRequest{
		APIKey:      t.apiKey,
		Query:       query,
		SearchDepth: "basic",
		MaxResults:  t.maxResults,
	}, jsonapi.WithRequestHeader("Authorization", "Bearer "+t.apiKey))
	if err != nil {
		return nil, &Error{Query: query, Err: err}
	}
	for _, r := range resp.Results {
		if len(results) == t.maxResults {
			break
		}
		results = append(results, Result{
			URL:     r.URL,
			Title:   r.Title,
			Snippet: r.Content,
		})
	}
	return results, nil
}
