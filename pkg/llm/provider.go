package llm

import "context"

// Completer sends one chat-completion request to a multi-model backend.
// The API key and model id are supplied per call because both can change at
// runtime through the credential vault.
type Completer interface {
	// Complete returns the assistant text of the first choice. The returned
	// string may be empty when the backend answered with an empty message;
	// callers decide how to render that.
	Complete(ctx context.Context, apiKey, model string, messages []Message) (string, error)
}

// Generator produces text from a single prompt, in the style of
// generative-language backends that take raw contents rather than a
// role-tagged message list.
type Generator interface {
	Generate(ctx context.Context, apiKey, prompt string) (string, error)
}
