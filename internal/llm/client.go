// Package llm provides clients for hosted LLM chat completion APIs.
package llm

import (
	"context"

	"github.com/papaaya/ai-navigator/internal/domain"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat message. ImageURLs optionally attaches
// images for multimodal models; providers that do not support images
// ignore them.
type Message struct {
	Role      string
	Content   string
	ImageURLs []string
}

// Request is a chat completion request.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
	// Model overrides the client's configured model when non-empty.
	Model string
	// ForceJSON asks the provider for a JSON-only response. How this is
	// achieved is provider specific: OpenAI sets response_format, Llama
	// folds the instruction into the prompt.
	ForceJSON bool
}

// Client is a chat completion client. Implementations perform exactly
// one API call per Complete invocation; callers decide whether a
// failure is fatal or degradable.
type Client interface {
	// Complete sends the request and returns the completion text with
	// token usage. Errors are *APIError for provider API failures.
	Complete(ctx context.Context, req Request) (*domain.Completion, error)
	// Provider returns the name of the LLM provider.
	Provider() string
	// Model returns the model identifier being used.
	Model() string
}
