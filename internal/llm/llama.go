package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papaaya/ai-navigator/internal/domain"
)

// Default values for the Llama provider.
const (
	defaultLlamaBaseURL = "https://api.llama.com/v1"
	defaultLlamaModel   = "Llama-4-Maverick-17B-128E-Instruct-FP8"
)

// Usage metric names reported by the Llama API.
const (
	metricTotalTokens      = "num_total_tokens"
	metricCompletionTokens = "num_completion_tokens"
)

// llamaRequest represents the Llama API chat completion request body.
type llamaRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_completion_tokens,omitempty"`
}

// llamaResponse represents the Llama API chat completion response body.
// Token usage arrives as a list of named metrics rather than a usage
// object.
type llamaResponse struct {
	CompletionMessage struct {
		Role       string       `json:"role"`
		StopReason string       `json:"stop_reason"`
		Content    llamaContent `json:"content"`
	} `json:"completion_message"`
	Metrics []llamaMetric `json:"metrics"`
}

type llamaMetric struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
}

// llamaContent decodes a completion message content that may be either
// a bare string or a typed text object.
type llamaContent struct {
	Text string
}

func (c *llamaContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		return nil
	}
	var obj struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("content is neither string nor text object: %w", err)
	}
	c.Text = obj.Text
	return nil
}

// llamaErrorResponse represents an error response from the Llama API.
type llamaErrorResponse struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
}

// LlamaClient implements Client using the hosted Llama API.
type LlamaClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

// LlamaConfig holds the parameters needed to create a Llama client.
type LlamaConfig struct {
	// APIKey is the Llama API key.
	APIKey string
	// Model is the model identifier.
	Model string
	// BaseURL is the API base URL (empty means default).
	BaseURL string
}

// NewLlamaClient creates a new Llama chat completion client.
func NewLlamaClient(cfg LlamaConfig, timeout time.Duration) *LlamaClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultLlamaBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultLlamaModel
	}

	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &LlamaClient{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: baseURL,
	}
}

// Provider returns the name of the LLM provider.
func (c *LlamaClient) Provider() string {
	return "llama"
}

// Model returns the model identifier being used.
func (c *LlamaClient) Model() string {
	return c.model
}

// Complete sends a single chat completion request. The Llama API has
// no response_format parameter, so ForceJSON is honored by folding the
// system prompt and a JSON-only instruction into the user message.
// Failed requests are not retried.
func (c *LlamaClient) Complete(ctx context.Context, req Request) (*domain.Completion, error) {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	msgs := req.Messages
	if req.ForceJSON {
		msgs = foldForJSON(msgs)
	}

	llamaReq := llamaRequest{
		Model:       model,
		Messages:    toChatMessages(msgs),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	body, err := json.Marshal(llamaReq)
	if err != nil {
		return nil, fmt.Errorf("llama: failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llama: failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &APIError{Provider: "llama", StatusCode: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("llama: failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseLlamaAPIError(resp.StatusCode, respBody)
	}

	var llamaResp llamaResponse
	if err := json.Unmarshal(respBody, &llamaResp); err != nil {
		return nil, fmt.Errorf("llama: failed to unmarshal response: %w", err)
	}

	completion := &domain.Completion{
		Text:  llamaResp.CompletionMessage.Content.Text,
		Model: model,
	}
	for _, m := range llamaResp.Metrics {
		switch m.Metric {
		case metricTotalTokens:
			completion.TotalTokens = int(m.Value)
		case metricCompletionTokens:
			completion.TokensUsed = int(m.Value)
		}
	}
	return completion, nil
}

// foldForJSON merges system messages into the first user message and
// appends a JSON-only instruction.
func foldForJSON(msgs []Message) []Message {
	var system []string
	var rest []Message
	for _, m := range msgs {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}

	for i, m := range rest {
		if m.Role != RoleUser {
			continue
		}
		var b strings.Builder
		for _, s := range system {
			b.WriteString(s)
			b.WriteString("\n\n")
		}
		b.WriteString(m.Content)
		b.WriteString("\n\nRespond with valid JSON only, no prose and no markdown fences.")
		rest[i].Content = b.String()
		break
	}
	return rest
}

// parseLlamaAPIError parses a Llama API error from the response status code and body.
func parseLlamaAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Provider:   "llama",
		StatusCode: statusCode,
		Message:    string(body),
	}

	var errResp llamaErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Detail != "" {
		apiErr.Message = errResp.Detail
		apiErr.Type = errResp.Title
	}

	return apiErr
}
