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

const duckDuckGoEndpoint = "https://api.duckduckgo.com/"

// SearchTool answers search queries through the DuckDuckGo instant answer
// API. It is the tool the research workflow invokes by the name "search".
//
// Input parameters:
//   - query: search query (required, string)
//
// The output is a plain-text summary assembled from the abstract, answer,
// and related topics in the API response, suitable for feeding back into a
// reflection prompt.
type SearchTool struct {
	client   *http.Client
	endpoint string
}

// NewSearchTool creates a search tool with a default 15 second HTTP timeout.
func NewSearchTool() *SearchTool {
	return &SearchTool{
		client:   &http.Client{Timeout: 15 * time.Second},
		endpoint: duckDuckGoEndpoint,
	}
}

// Name implements Tool.
func (s *SearchTool) Name() string {
	return "search"
}

// duckDuckGoResponse is the subset of the instant answer payload we use.
type duckDuckGoResponse struct {
	Abstract      string `json:"Abstract"`
	AbstractText  string `json:"AbstractText"`
	Answer        string `json:"Answer"`
	Definition    string `json:"Definition"`
	RelatedTopics []struct {
		Text string `json:"Text"`
	} `json:"RelatedTopics"`
}

// Call implements Tool.
func (s *SearchTool) Call(ctx context.Context, input map[string]interface{}) (string, error) {
	query, ok := input["query"].(string)
	if !ok || query == "" {
		return "", fmt.Errorf("query parameter required (string)")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build search request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read search response: %w", err)
	}

	var ddg duckDuckGoResponse
	if err := json.Unmarshal(body, &ddg); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}

	return formatSearchResult(query, ddg), nil
}

// formatSearchResult flattens the instant answer payload into prompt text.
// Related topics are capped to keep prompts bounded.
func formatSearchResult(query string, ddg duckDuckGoResponse) string {
	var parts []string

	if ddg.Answer != "" {
		parts = append(parts, ddg.Answer)
	}
	if ddg.AbstractText != "" {
		parts = append(parts, ddg.AbstractText)
	} else if ddg.Abstract != "" {
		parts = append(parts, ddg.Abstract)
	}
	if ddg.Definition != "" {
		parts = append(parts, ddg.Definition)
	}

	const maxTopics = 5
	for i, topic := range ddg.RelatedTopics {
		if i >= maxTopics {
			break
		}
		if topic.Text != "" {
			parts = append(parts, topic.Text)
		}
	}

	if len(parts) == 0 {
		return fmt.Sprintf("No instant answer found for %q.", query)
	}
	return strings.Join(parts, "\n")
}
