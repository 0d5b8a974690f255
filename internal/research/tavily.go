package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// tavilyMaxResults bounds the deep-search contribution.
const tavilyMaxResults = 2

// TavilyClient queries the Tavily search API. The key travels in the body,
// not a header, the way that API wants it.
type TavilyClient struct {
	baseURL string
	client  *http.Client
}

// NewTavilyClient creates a Tavily client. baseURL may be empty to use the
// public endpoint.
func NewTavilyClient(baseURL string) *TavilyClient {
	if baseURL == "" {
		baseURL = "https://api.tavily.com/search"
	}
	return &TavilyClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
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
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Search returns a labeled context block built from the deep-search results,
// or an empty string when there are none.
func (c *TavilyClient) Search(ctx context.Context, apiKey, query string) (string, error) {
	body, err := json.Marshal(tavilyRequest{
		APIKey:      apiKey,
		Query:       query,
		SearchDepth: "advanced",
		MaxResults:  tavilyMaxResults,
	})
	if err != nil {
		return "", fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tavily API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return "", nil
	}

	lines := make([]string, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		lines = append(lines, fmt.Sprintf("Synthesis Node (%s): %s", r.Title, r.Content))
	}
	return "\nDEEP CONTEXT:\n" + strings.Join(lines, "\n") + "\n", nil
}
