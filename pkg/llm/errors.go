package llm

import "fmt"

// ConfigurationError reports a missing credential. It is returned before any
// network call is made; the operation is aborted and never retried.
type ConfigurationError struct {
	Missing string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing credential: %s", e.Missing)
}

// ProviderError reports a non-success or malformed response from a backend.
// Message carries the upstream error text so it can be shown to the user.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
}
