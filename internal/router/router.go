// Package router selects the completion backend for each turn: the gateway
// when a gateway credential is configured, the direct generative provider
// otherwise. Exactly one backend is tried per call; there is no cascading
// fallback from a gateway failure to the direct provider.
package router

import (
	"context"
	"log/slog"
	"sync"

	"github.com/user/nexuschat/pkg/llm"
	"github.com/user/nexuschat/pkg/llm/openrouter"
)

// systemPrompt is the fixed instruction sent on the gateway path.
const systemPrompt = "You are an elite level neural assistant."

// Placeholder texts substituted when a backend answers without content.
const (
	gatewayFallbackText = "No Synthesis Output."
	directFallbackText  = "Output failed."
)

// CredentialSource supplies the effective gateway credential and model id at
// call time.
type CredentialSource interface {
	GatewayKey() string
	SelectedModel() string
}

// Router routes one prompt (plus optional research context) to a backend.
type Router struct {
	creds     CredentialSource
	gateway   llm.Completer
	direct    llm.Generator
	directKey string
	estimator *Estimator

	mu      sync.RWMutex
	catalog map[string]int // model id -> context length
}

// New creates a Router. directKey is the direct generative provider's
// credential; empty disables the direct path. The token estimator is
// best-effort: if the tokenizer cannot be built, budget warnings are
// silently skipped.
func New(creds CredentialSource, gateway llm.Completer, direct llm.Generator, directKey string) *Router {
	est, err := NewEstimator()
	if err != nil {
		slog.Debug("token estimator unavailable", "error", err)
		est = nil
	}
	return &Router{
		creds:     creds,
		gateway:   gateway,
		direct:    direct,
		directKey: directKey,
		estimator: est,
	}
}

// SetCatalog records model context lengths for budget warnings.
func (r *Router) SetCatalog(models []openrouter.Model) {
	lengths := make(map[string]int, len(models))
	for _, m := range models {
		lengths[m.ID] = m.ContextLength
	}
	r.mu.Lock()
	r.catalog = lengths
	r.mu.Unlock()
}

// Complete routes the prompt and returns the assistant text. Context, when
// non-empty, is prefixed to the prompt in the backend's expected shape.
// With neither backend configured it fails with ConfigurationError before
// any network call.
func (r *Router) Complete(ctx context.Context, prompt, contextText string) (string, error) {
	if key := r.creds.GatewayKey(); key != "" {
		return r.completeGateway(ctx, key, prompt, contextText)
	}
	if r.directKey != "" {
		return r.completeDirect(ctx, prompt, contextText)
	}
	return "", &llm.ConfigurationError{Missing: "gateway or generative provider api key"}
}

func (r *Router) completeGateway(ctx context.Context, apiKey, prompt, contextText string) (string, error) {
	user := prompt
	if contextText != "" {
		user = "CONTEXT:\n" + contextText + "\n\nUSER:" + prompt
	}

	model := r.creds.SelectedModel()
	r.warnIfOverBudget(model, systemPrompt+user)

	content, err := r.gateway.Complete(ctx, apiKey, model, []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: user},
	})
	if err != nil {
		return "", err
	}
	if content == "" {
		return gatewayFallbackText, nil
	}
	return content, nil
}

func (r *Router) completeDirect(ctx context.Context, prompt, contextText string) (string, error) {
	p := prompt
	if contextText != "" {
		p = "CONTEXT:\n" + contextText + "\n\nUSER COMMAND: " + prompt
	}

	text, err := r.direct.Generate(ctx, r.directKey, p)
	if err != nil {
		return "", err
	}
	if text == "" {
		return directFallbackText, nil
	}
	return text, nil
}

// warnIfOverBudget logs when the assembled prompt likely exceeds the
// selected model's context window. It never blocks the request.
func (r *Router) warnIfOverBudget(model, text string) {
	if r.estimator == nil {
		return
	}
	r.mu.RLock()
	limit := r.catalog[model]
	r.mu.RUnlock()
	if limit <= 0 {
		return
	}
	if tokens := r.estimator.Count(text); tokens > limit {
		slog.Warn("prompt may exceed model context window",
			"model", model,
			"estimated_tokens", tokens,
			"context_length", limit,
		)
	}
}
