// Package model defines the provider-neutral interface for text generation
// backends. Concrete adapters live in the subpackages model/openai and
// model/anthropic; agents depend only on the Model interface.
package model

import "context"

// Request is a normalized, provider-neutral generation request.
type Request struct {
	// Instructions is the system prompt steering the model.
	Instructions string
	// Input is the user-facing content to respond to.
	Input string
}

// TokenUsage reports token consumption for one generation.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Response is the normalized result of one generation.
type Response struct {
	// Text is the model's reply.
	Text string
	// FinishReason describes why generation stopped, in the provider's
	// vocabulary ("stop", "max_tokens", ...).
	FinishReason string
	// Usage reports token consumption when the provider supplies it.
	Usage TokenUsage
}

// Model is a text generation backend.
type Model interface {
	// Name returns the configured model identifier.
	Name() string

	// Generate produces a single completion for the request.
	Generate(ctx context.Context, req Request) (*Response, error)
}
