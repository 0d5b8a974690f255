package research

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// maxPageChars caps how much of a fetched page lands in the context block.
const maxPageChars = 2000

// PageFetcher pulls a page the user linked in their query and converts it to
// markdown so the model sees readable text instead of HTML.
type PageFetcher struct {
	client *http.Client
}

// NewPageFetcher creates a PageFetcher.
func NewPageFetcher() *PageFetcher {
	return &PageFetcher{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// firstURL returns the first http(s) URL found in the text, or "".
func firstURL(text string) string {
	for _, field := range strings.Fields(text) {
		if strings.HasPrefix(field, "http://") || strings.HasPrefix(field, "https://") {
			return strings.TrimRight(field, ".,;:!?)")
		}
	}
	return ""
}

// Fetch returns a labeled context block with the page content as markdown,
// or an empty string when the query contains no URL.
func (p *PageFetcher) Fetch(ctx context.Context, query string) (string, error) {
	url := firstURL(query)
	if url == "" {
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Nexuschat/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	md, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}

	md = strings.TrimSpace(md)
	if md == "" {
		return "", nil
	}
	if len(md) > maxPageChars {
		md = md[:maxPageChars] + "\n[truncated]"
	}
	return "\nPAGE CONTEXT (" + url + "):\n" + md + "\n", nil
}
