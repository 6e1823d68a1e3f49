package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/rickchristie/reactlm"
)

// BraveSearchEndpoint is the Brave web search API.
const BraveSearchEndpoint = "https://api.search.brave.com/res/v1/web/search"

// BraveSearch is a web search tool backed by the Brave Search API.
//
//	search := tools.NewBraveSearch(os.Getenv("BRAVE_API_KEY")).WithRateLimit(1, 1)
//	agent.WithTools(search)
type BraveSearch struct {
	*reactlm.ToolFunc

	apiKey   string
	endpoint string
	count    int
	lang     string
	client   *http.Client
	limiter  *rate.Limiter
	clock    reactlm.TimeProvider
}

// NewBraveSearch creates the "search" tool. Requests are unthrottled until
// WithRateLimit is called.
func NewBraveSearch(apiKey string) *BraveSearch {
	b := &BraveSearch{
		apiKey:   apiKey,
		endpoint: BraveSearchEndpoint,
		count:    5,
		lang:     "en",
		client:   defaultHTTPClient(),
		limiter:  rate.NewLimiter(rate.Inf, 1),
		clock:    reactlm.NewDefaultTimeProvider(),
	}
	b.ToolFunc = reactlm.NewToolFunc(
		"search",
		"Search the web for current information about a topic using Brave Search",
		b.search,
	).WithSchema(querySchema)
	return b
}

// WithEndpoint overrides the API endpoint.
func (b *BraveSearch) WithEndpoint(endpoint string) *BraveSearch {
	b.endpoint = endpoint
	return b
}

// WithHTTPClient sets the HTTP client.
func (b *BraveSearch) WithHTTPClient(c *http.Client) *BraveSearch {
	b.client = c
	return b
}

// WithCount sets the number of results requested.
func (b *BraveSearch) WithCount(n int) *BraveSearch {
	b.count = n
	return b
}

// WithLanguage sets the search_lang parameter.
func (b *BraveSearch) WithLanguage(lang string) *BraveSearch {
	b.lang = lang
	return b
}

// WithRateLimit allows perSecond requests with the given burst. Calls wait for a token
// and fail when the context ends first.
func (b *BraveSearch) WithRateLimit(perSecond float64, burst int) *BraveSearch {
	if burst <= 0 {
		burst = 1
	}
	b.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return b
}

// WithTimeProvider sets the clock used for result timestamps.
func (b *BraveSearch) WithTimeProvider(tp reactlm.TimeProvider) *BraveSearch {
	if tp != nil {
		b.clock = tp
	}
	return b
}

type braveResponse struct {
	Query struct {
		Language string `json:"language"`
	} `json:"query"`
	Web struct {
		Total   int `json:"total"`
		Results []struct {
			Title         string  `json:"title"`
			URL           string  `json:"url"`
			Description   string  `json:"description"`
			PublishedDate string  `json:"published_date"`
			SourceName    string  `json:"source_name"`
			Score         float64 `json:"score"`
		} `json:"results"`
	} `json:"web"`
}

func (b *BraveSearch) search(ctx context.Context, input reactlm.Envelope) (reactlm.Envelope, error) {
	query, err := queryOf(input)
	if err != nil {
		return reactlm.Envelope{}, err
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return reactlm.Envelope{}, fmt.Errorf("brave search: %w", err)
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("count", strconv.Itoa(b.count))
	q.Set("search_lang", b.lang)
	q.Set("safesearch", "moderate")
	q.Set("text_format", "plain")

	body, err := getJSON(ctx, b.client, b.endpoint+"?"+q.Encode(), http.Header{
		"X-Subscription-Token": []string{b.apiKey},
	})
	if err != nil {
		return reactlm.Envelope{}, fmt.Errorf("brave search: %w", err)
	}

	var resp braveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return reactlm.Envelope{}, fmt.Errorf("brave search: parse response: %w", err)
	}

	results := make([]map[string]any, 0, len(resp.Web.Results))
	for _, r := range resp.Web.Results {
		results = append(results, map[string]any{
			"title":     r.Title,
			"snippet":   r.Description,
			"url":       r.URL,
			"published": r.PublishedDate,
			"source":    r.SourceName,
			"score":     r.Score,
		})
	}
	return searchOutput(query, results, "brave_search", b.clock.Now(), map[string]any{
		"query_info": map[string]any{
			"language":      resp.Query.Language,
			"total_matches": resp.Web.Total,
		},
	}), nil
}
