package service

import (
	"context"
)

// PreferenceExtractor turns a chat message into a raw JSON object of
// shopping preferences. The output is untrusted and parsed by the normalizer.
type PreferenceExtractor interface {
	Extract(ctx context.Context, message string) (string, error)
}

// ResponseGenerator writes the natural-language reply for a numbered product list
type ResponseGenerator interface {
	Generate(ctx context.Context, message, productList string) (string, error)
}

// StreamingGenerator is a ResponseGenerator that can emit the reply in chunks.
// The full reply is returned once the stream ends.
type StreamingGenerator interface {
	ResponseGenerator
	GenerateStream(ctx context.Context, message, productList string, callback StreamCallback) (string, error)
}

// StreamChunk represents a generic streaming response chunk
type StreamChunk struct {
	// Regular content (always present in streaming)
	Content string

	// Thinking/reasoning content (provider-specific, e.g., DeepSeek)
	ThinkingContent string

	Role string

	// Whether this is the final chunk
	Done bool
}

// StreamCallback is called for each chunk in streaming mode
type StreamCallback func(chunk *StreamChunk) error

// Ensure providers implement the pipeline interfaces
var (
	_ PreferenceExtractor = (*OpenAIClient)(nil)
	_ StreamingGenerator  = (*OpenAIClient)(nil)
	_ PreferenceExtractor = (*GeminiClient)(nil)
	_ StreamingGenerator  = (*GeminiClient)(nil)
	_ PreferenceExtractor = NoExtractor{}
	_ ResponseGenerator   = ListGenerator{}
)

// NoExtractor is used when no model is configured. It returns no preferences,
// so only the deterministic rescan applies.
type NoExtractor struct{}

// Extract returns an empty object
func (NoExtractor) Extract(ctx context.Context, message string) (string, error) {
	return "{}", nil
}

// ListGenerator replies with the product list itself
type ListGenerator struct{}

// Generate returns the list with a short preface
func (ListGenerator) Generate(ctx context.Context, message, productList string) (string, error) {
	return fallbackReply(productList), nil
}
