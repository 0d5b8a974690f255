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

// serperResultCount is how many organic results contribute to the context block.
const serperResultCount = 4

// SerperClient queries the Serper web-search API.
type SerperClient struct {
	baseURL string
	client  *http.Client
}

// NewSerperClient creates a Serper client. baseURL may be empty to use the
// public endpoint.
func NewSerperClient(baseURL string) *SerperClient {
	if baseURL == "" {
		baseURL = "https://google.serper.dev/search"
	}
	return &SerperClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type serperRequest struct {
	Q string `json:"q"`
}

type serperResponse struct {
	Organic []serperResult `json:"organic"`
}

type serperResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Search returns a labeled context block built from the top organic results,
// or an empty string when there are none.
func (c *SerperClient) Search(ctx context.Context, apiKey, query string) (string, error) {
	body, err := json.Marshal(serperRequest{Q: query})
	if err != nil {
		return "", fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-KEY", apiKey)
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
		return "", fmt.Errorf("serper API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed serperResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	results := parsed.Organic
	if len(results) > serperResultCount {
		results = results[:serperResultCount]
	}
	if len(results) == 0 {
		return "", nil
	}

	lines := make([]string, 0, len(results))
	for i, r := range results {
		lines = append(lines, fmt.Sprintf("Source %d: %s - %s", i+1, r.Title, r.Snippet))
	}
	return "\nWEB CONTEXT:\n" + strings.Join(lines, "\n") + "\n", nil
}
