package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/user/nexuschat/pkg/llm"
)

// maxCatalogPage bounds how many catalog entries a single listing returns.
const maxCatalogPage = 80

// Model is one entry of the gateway's model catalog.
type Model struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Pricing       Pricing `json:"pricing"`
	ContextLength int     `json:"context_length"`
}

// Pricing carries per-token prices as decimal strings, the way the catalog
// endpoint reports them.
type Pricing struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

// Free reports whether the model's prompt price parses to zero.
func (m Model) Free() bool {
	p, err := strconv.ParseFloat(m.Pricing.Prompt, 64)
	return err == nil && p == 0
}

type modelsResponse struct {
	Data []Model `json:"data"`
}

// ListModels fetches the full model catalog. The endpoint is unauthenticated.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching models: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &llm.ProviderError{Provider: "gateway", StatusCode: resp.StatusCode, Message: string(body)}
	}

	var parsed modelsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing models: %w", err)
	}
	return parsed.Data, nil
}

// FilterModels narrows the catalog by a case-insensitive substring match on
// name or id, orders free-tier models first, and caps the result to one
// display page.
func FilterModels(models []Model, query string) []Model {
	query = strings.ToLower(query)

	filtered := make([]Model, 0, len(models))
	for _, m := range models {
		if query == "" ||
			strings.Contains(strings.ToLower(m.Name), query) ||
			strings.Contains(strings.ToLower(m.ID), query) {
			filtered = append(filtered, m)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Free() && !filtered[j].Free()
	})

	if len(filtered) > maxCatalogPage {
		filtered = filtered[:maxCatalogPage]
	}
	return filtered
}
