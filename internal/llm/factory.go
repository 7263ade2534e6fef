package llm

import (
	"fmt"
	"time"
)

// FactoryConfig holds the parameters needed to create a Client. This is
// defined in the llm package to avoid importing the config package,
// keeping the llm package free of infrastructure dependencies.
type FactoryConfig struct {
	// Provider is the LLM provider name ("llama" or "openai").
	Provider string
	// Timeout is the timeout for LLM API calls.
	Timeout time.Duration
	// Llama contains Llama-specific settings.
	Llama LlamaConfig
	// OpenAI contains OpenAI-specific settings.
	OpenAI OpenAIConfig
}

// NewClient creates a Client based on the configuration. Supports
// "llama" and "openai" providers. Returns an error for unsupported or
// empty provider values.
func NewClient(cfg FactoryConfig) (Client, error) {
	switch cfg.Provider {
	case "llama":
		return NewLlamaClient(cfg.Llama, cfg.Timeout), nil
	case "openai":
		return NewOpenAIClient(cfg.OpenAI, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
}
