// Package tools provides ready-made reactlm tools.
//
// Search-style tools accept a non-blank text query, or a JSON object with a non-empty
// "query" string, and return a JSON envelope shaped as
//
//	{
//	  "query": "...",
//	  "results": [ ... ],
//	  "metadata": {"total_results": N, "timestamp": "...", "source": "..."}
//	}
package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rickchristie/reactlm"
	"github.com/rickchristie/reactlm/schema"
)

const (
	defaultHTTPTimeout = 15 * time.Second
	errorBodyLimit     = 200
)

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// searchOutput builds the envelope returned by search tools.
func searchOutput(
	query string,
	results []map[string]any,
	source string,
	now time.Time,
	extra map[string]any,
) reactlm.Envelope {
	if results == nil {
		results = []map[string]any{}
	}
	meta := map[string]any{
		"total_results": len(results),
		"timestamp":     now.UTC().Format(time.RFC3339),
		"source":        source,
	}
	for k, v := range extra {
		meta[k] = v
	}
	return reactlm.JSON(map[string]any{
		"query":    query,
		"results":  results,
		"metadata": meta,
	})
}

// getJSON issues a GET request and returns the body of a 200 response.
func getJSON(ctx context.Context, client *http.Client, rawURL string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(body), errorBodyLimit)}
	}
	return body, nil
}

// HTTPError reports a non-200 response from a tool backend.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// querySchema is the JSON input shape shared by the search tools.
var querySchema = schema.MustCompile(schema.Object(map[string]*schema.Property{
	"query": schema.String("search terms").MinLength(1),
}, "query"))

// queryOf extracts the search terms from a text or JSON input.
func queryOf(input reactlm.Envelope) (string, error) {
	var s string
	if text, ok := input.Text(); ok {
		s = text
	} else if m, err := input.AsMap(); err == nil {
		s, _ = m["query"].(string)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: query must not be blank", reactlm.ErrInvalidToolInput)
	}
	return s, nil
}

func truncate(s string, n int) string {
	if c := cut(s, n); c != s {
		return c + "..."
	}
	return s
}

// cut returns at most the first n runes of s.
func cut(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
