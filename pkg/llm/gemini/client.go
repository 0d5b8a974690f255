package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/user/nexuschat/pkg/llm"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-3-pro-preview"

	// defaultThinkingBudget bounds the model's internal reasoning tokens.
	defaultThinkingBudget = 4000
)

// Client talks to the generative-language API directly. It is the fallback
// backend used when no gateway credential is configured.
type Client struct {
	baseURL        string
	model          string
	thinkingBudget int
	httpClient     *http.Client
}

// New creates a direct generative-language client. Empty baseURL or model
// select the defaults; thinkingBudget <= 0 selects the default budget.
func New(baseURL, model string, thinkingBudget int) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	if thinkingBudget <= 0 {
		thinkingBudget = defaultThinkingBudget
	}
	return &Client{
		baseURL:        baseURL,
		model:          model,
		thinkingBudget: thinkingBudget,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ThinkingConfig *thinkingConfig `json:"thinkingConfig,omitempty"`
}

type thinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
	Error      *apiError   `json:"error"`
}

type candidate struct {
	Content content `json:"content"`
}

type apiError struct {
	Message string `json:"message"`
}

// Generate submits the prompt as the sole content and returns the response
// text (all candidate parts joined). An empty return with a nil error means
// the model produced no text.
func (c *Client) Generate(ctx context.Context, apiKey, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ThinkingConfig: &thinkingConfig{ThinkingBudget: c.thinkingBudget},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &llm.ProviderError{Provider: "generative", StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", &llm.ProviderError{Provider: "generative", StatusCode: resp.StatusCode, Message: parsed.Error.Message}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &llm.ProviderError{Provider: "generative", StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var sb strings.Builder
	for _, cand := range parsed.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	return sb.String(), nil
}
