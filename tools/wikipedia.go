package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rickchristie/reactlm"
)

// WikipediaEndpoint is the English Wikipedia action API.
const WikipediaEndpoint = "https://en.wikipedia.org/w/api.php"

const (
	wikipediaSearchLimit = 3
	wikipediaExtractLen  = 500
)

// Wikipedia searches Wikipedia and returns the intro extract of the top articles.
type Wikipedia struct {
	*reactlm.ToolFunc

	endpoint string
	client   *http.Client
	clock    reactlm.TimeProvider
}

// NewWikipedia creates the "wikipedia" tool.
func NewWikipedia() *Wikipedia {
	w := &Wikipedia{
		endpoint: WikipediaEndpoint,
		client:   defaultHTTPClient(),
		clock:    reactlm.NewDefaultTimeProvider(),
	}
	w.ToolFunc = reactlm.NewToolFunc(
		"wikipedia",
		"Search Wikipedia articles for detailed information about a topic",
		w.lookup,
	).WithSchema(querySchema)
	return w
}

// WithEndpoint overrides the API endpoint.
func (w *Wikipedia) WithEndpoint(endpoint string) *Wikipedia {
	w.endpoint = endpoint
	return w
}

// WithHTTPClient sets the HTTP client.
func (w *Wikipedia) WithHTTPClient(c *http.Client) *Wikipedia {
	w.client = c
	return w
}

// WithTimeProvider sets the clock used for result timestamps.
func (w *Wikipedia) WithTimeProvider(tp reactlm.TimeProvider) *Wikipedia {
	if tp != nil {
		w.clock = tp
	}
	return w
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			PageID int `json:"pageid"`
		} `json:"search"`
	} `json:"query"`
}

type wikiPagesResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
			FullURL string `json:"fullurl"`
			Touched string `json:"touched"`
		} `json:"pages"`
	} `json:"query"`
}

func (w *Wikipedia) lookup(ctx context.Context, input reactlm.Envelope) (reactlm.Envelope, error) {
	query, err := queryOf(input)
	if err != nil {
		return reactlm.Envelope{}, err
	}

	q := url.Values{}
	q.Set("action", "query")
	q.Set("format", "json")
	q.Set("list", "search")
	q.Set("srsearch", query)
	q.Set("srlimit", strconv.Itoa(wikipediaSearchLimit))

	body, err := getJSON(ctx, w.client, w.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return reactlm.Envelope{}, fmt.Errorf("wikipedia search: %w", err)
	}
	var found wikiSearchResponse
	if err := json.Unmarshal(body, &found); err != nil {
		return reactlm.Envelope{}, fmt.Errorf("wikipedia search: parse response: %w", err)
	}

	results := make([]map[string]any, 0, len(found.Query.Search))
	for _, article := range found.Query.Search {
		page, ok, err := w.extract(ctx, article.PageID)
		if err != nil {
			return reactlm.Envelope{}, err
		}
		if ok {
			results = append(results, page)
		}
	}
	return searchOutput(query, results, "wikipedia", w.clock.Now(), nil), nil
}

// extract fetches one page. A non-200 response skips the page rather than failing.
func (w *Wikipedia) extract(ctx context.Context, pageID int) (map[string]any, bool, error) {
	q := url.Values{}
	q.Set("action", "query")
	q.Set("format", "json")
	q.Set("pageids", strconv.Itoa(pageID))
	q.Set("prop", "extracts|info")
	q.Set("exintro", "1")
	q.Set("explaintext", "1")
	q.Set("inprop", "url")

	body, err := getJSON(ctx, w.client, w.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("wikipedia extract %d: %w", pageID, err)
	}

	var pages wikiPagesResponse
	if err := json.Unmarshal(body, &pages); err != nil {
		return nil, false, fmt.Errorf("wikipedia extract %d: parse response: %w", pageID, err)
	}
	for _, p := range pages.Query.Pages {
		return map[string]any{
			"title":         p.Title,
			"extract":       cut(p.Extract, wikipediaExtractLen) + "...",
			"url":           p.FullURL,
			"last_modified": p.Touched,
		}, true, nil
	}
	return nil, false, nil
}
