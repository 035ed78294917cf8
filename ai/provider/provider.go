// Package provider defines the model invocation contract shared by all
// generative-model backends.
package provider

import (
	"context"
	"fmt"
)

// GenConfig carries optional per-call generation parameters.
type GenConfig struct {
	MaxTokens   int
	Temperature float64
	// ExtendedThinking enables the extended reasoning budget on models that
	// support it. Used by reasoning mode.
	ExtendedThinking bool
	// ThinkingBudgetTokens bounds the reasoning budget when
	// ExtendedThinking is set. Zero means the backend default.
	ThinkingBudgetTokens int
}

// Response is the result of a single model invocation.
type Response struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Invoker is implemented by all generative-model backends.
type Invoker interface {
	// Invoke sends one prompt to the named model and returns its text
	// response. Errors from the upstream API are returned as *APIError with
	// status and message preserved verbatim.
	Invoke(ctx context.Context, model, prompt string, cfg *GenConfig) (*Response, error)
}

// APIError is an upstream API failure with its HTTP status preserved.
// Status 0 means the request never produced an HTTP response (network
// failure, marshalling error).
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("API request failed with status %d: %s", e.Status, e.Message)
}
