package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const wikipediaEndpoint = "https://en.wikipedia.org/w/api.php"

// WikipediaTool fetches article extracts from the Wikipedia API.
//
// Input parameters:
//   - query: article title or search phrase (required, string)
//
// The output is the intro extract of the best-matching article.
type WikipediaTool struct {
	client   *http.Client
	endpoint string
}

// NewWikipediaTool creates a Wikipedia tool with a default 15 second
// HTTP timeout.
func NewWikipediaTool() *WikipediaTool {
	return &WikipediaTool{
		client:   &http.Client{Timeout: 15 * time.Second},
		endpoint: wikipediaEndpoint,
	}
}

// Name implements Tool.
func (w *WikipediaTool) Name() string {
	return "wikipedia"
}

type wikipediaResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

// Call implements Tool.
func (w *WikipediaTool) Call(ctx context.Context, input map[string]interface{}) (string, error) {
	query, ok := input["query"].(string)
	if !ok || query == "" {
		return "", fmt.Errorf("query parameter required (string)")
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("prop", "extracts")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("redirects", "1")
	params.Set("titles", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build wikipedia request: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("wikipedia request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wikipedia returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read wikipedia response: %w", err)
	}

	var wiki wikipediaResponse
	if err := json.Unmarshal(body, &wiki); err != nil {
		return "", fmt.Errorf("failed to decode wikipedia response: %w", err)
	}

	var parts []string
	for _, page := range wiki.Query.Pages {
		if page.Extract != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", page.Title, page.Extract))
		}
	}

	if len(parts) == 0 {
		return fmt.Sprintf("No Wikipedia article found for %q.", query), nil
	}
	return strings.Join(parts, "\n"), nil
}
