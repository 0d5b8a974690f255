package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/user/nexuschat/pkg/llm"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// Client talks to an OpenRouter-compatible gateway: chat completions plus
// the public model catalog.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a gateway client. baseURL may be empty to use the public
// OpenRouter endpoint.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// chatRequest is the gateway chat completions request body.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
}

// chatResponse is the gateway chat completions response body. A gateway may
// return an error object in the body even with a 200 status, so both shapes
// are decoded together.
type chatResponse struct {
	Choices []choice  `json:"choices"`
	Error   *apiError `json:"error"`
}

type choice struct {
	Message responseMessage `json:"message"`
}

type responseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiError struct {
	Message string `json:"message"`
}

// Complete sends a chat completion request and returns the first choice's
// message content. An error object in the response body takes precedence
// over any content. An empty string return with a nil error means the
// gateway answered without usable content.
func (c *Client) Complete(ctx context.Context, apiKey, model string, messages []llm.Message) (string, error) {
	body, err := json.Marshal(chatRequest{Model: model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", &llm.ProviderError{Provider: "gateway", StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if chatResp.Error != nil && chatResp.Error.Message != "" {
		return "", &llm.ProviderError{Provider: "gateway", StatusCode: resp.StatusCode, Message: chatResp.Error.Message}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &llm.ProviderError{Provider: "gateway", StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if len(chatResp.Choices) == 0 {
		return "", nil
	}
	return chatResp.Choices[0].Message.Content, nil
}
