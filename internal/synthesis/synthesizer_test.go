package synthesis

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papaaya/ai-navigator/internal/domain"
	"github.com/papaaya/ai-navigator/internal/llm"
	"github.com/papaaya/ai-navigator/internal/observability"
)

// fakeClient replays scripted completions in order.
type fakeClient struct {
	provider  string
	responses []string
	errs      []error
	requests  []llm.Request
}

func (f *fakeClient) Complete(_ context.Context, req llm.Request) (*domain.Completion, error) {
	i := len(f.requests)
	f.requests = append(f.requests, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return &domain.Completion{Text: f.responses[i], Model: f.Model(), TokensUsed: 10, TotalTokens: 100}, nil
}

func (f *fakeClient) Provider() string {
	if f.provider != "" {
		return f.provider
	}
	return "fake"
}

func (f *fakeClient) Model() string { return "fake-model" }

func newTestSynthesizer(fake *fakeClient) *Synthesizer {
	metrics := observability.NewMetricsWith("test", prometheus.NewRegistry())
	return New(fake, zerolog.Nop(), metrics)
}

func TestAnalyze(t *testing.T) {
	fake := &fakeClient{responses: []string{
		`{"summary": "a summary", "sections": {"abstract": "abs", "methodology": "m", "results": "r"}, "generatedCode": "print(1)", "tablesAnalysis": "one table"}`,
	}}

	s := newTestSynthesizer(fake)
	got, err := s.Analyze(context.Background(), "paper text", "| a | b |")
	require.NoError(t, err)

	assert.Equal(t, "a summary", got.Summary)
	assert.Equal(t, "abs", got.Sections.Abstract)
	assert.Equal(t, "print(1)", got.GeneratedCode)
	assert.Equal(t, "one table", got.TablesAnalysis)
	assert.Empty(t, got.RawText)
	assert.Empty(t, got.Warnings)

	require.Len(t, fake.requests, 1)
	prompt := fake.requests[0].Messages[0].Content
	assert.Contains(t, prompt, "paper text")
	assert.Contains(t, prompt, "| a | b |")
	assert.True(t, fake.requests[0].ForceJSON)
}

func TestAnalyzeCorrectiveRetry(t *testing.T) {
	fake := &fakeClient{responses: []string{
		"Certainly, I'd be happy to help but here is prose instead of an object",
		`{"summary": "recovered"}`,
	}}

	s := newTestSynthesizer(fake)
	got, err := s.Analyze(context.Background(), "text", "")
	require.NoError(t, err)
	assert.Equal(t, "recovered", got.Summary)

	require.Len(t, fake.requests, 2)
	assert.InDelta(t, correctiveTemperature, fake.requests[1].Temperature, 1e-9)
	assert.Contains(t, fake.requests[1].Messages[0].Content, "not valid JSON")
}

func TestAnalyzeDegradesToRawText(t *testing.T) {
	fake := &fakeClient{responses: []string{
		"still not json",
		"second reply, also not json",
	}}

	s := newTestSynthesizer(fake)
	got, err := s.Analyze(context.Background(), "text", "")
	require.NoError(t, err, "unparseable analysis degrades, never fails")
	assert.Equal(t, "second reply, also not json", got.RawText)
	assert.Empty(t, got.Summary)
	assert.NotEmpty(t, got.Warnings)
}

func TestAnalyzeProviderError(t *testing.T) {
	fake := &fakeClient{
		responses: []string{""},
		errs:      []error{&llm.APIError{Provider: "fake", StatusCode: 503, Message: "down"}},
	}

	var buf bytes.Buffer
	metrics := observability.NewMetricsWith("test", prometheus.NewRegistry())
	s := New(fake, zerolog.New(&buf), metrics)

	_, err := s.Analyze(context.Background(), "text", "")
	require.Error(t, err)
	apiErr, ok := llm.AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsTransient())

	// The failure log classifies the provider error.
	assert.Contains(t, buf.String(), `"transient":true`)
	assert.Contains(t, buf.String(), `"status":503`)
}

func TestGenerateCode(t *testing.T) {
	fake := &fakeClient{responses: []string{
		`{"file_name": "lora.py", "python_code": "import torch", "requirements_txt": "torch", "tests_code": "def test_x(): pass"}`,
	}}

	s := newTestSynthesizer(fake)
	got, err := s.GenerateCode(context.Background(), "corpus")
	require.NoError(t, err)

	assert.Equal(t, "lora.py", got.FileName)
	assert.Equal(t, "import torch", got.PythonCode)
	assert.Equal(t, "torch", got.RequirementsTxt)
	assert.Equal(t, "def test_x(): pass", got.TestsCode)
	assert.Empty(t, got.Warnings)

	// Codegen carries a system message with the schema.
	require.Len(t, fake.requests, 1)
	assert.Equal(t, llm.RoleSystem, fake.requests[0].Messages[0].Role)
}

func TestGenerateCodeMissingField(t *testing.T) {
	fake := &fakeClient{responses: []string{
		`{"python_code": "x = 1", "requirements_txt": "numpy"}`,
	}}

	s := newTestSynthesizer(fake)
	_, err := s.GenerateCode(context.Background(), "corpus")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingField))

	var mfe *domain.MissingFieldError
	require.True(t, errors.As(err, &mfe))
	assert.Equal(t, "tests_code", mfe.Field)
}

func TestGenerateCodeEmptyFieldWarns(t *testing.T) {
	fake := &fakeClient{responses: []string{
		`{"python_code": "x = 1", "requirements_txt": "numpy", "tests_code": ""}`,
	}}

	s := newTestSynthesizer(fake)
	got, err := s.GenerateCode(context.Background(), "corpus")
	require.NoError(t, err, "empty-but-present fields succeed with a warning")

	require.Len(t, got.Warnings, 1)
	assert.Contains(t, got.Warnings[0], "tests_code")
	assert.True(t, strings.HasPrefix(got.PythonCode, "# WARNING:"))
	assert.Contains(t, got.PythonCode, "x = 1")
	assert.Equal(t, "implementation.py", got.FileName, "missing file_name falls back to a default")
}

func TestGenerateCodeUnparseableIsTerminal(t *testing.T) {
	fake := &fakeClient{responses: []string{"prose", "more prose"}}

	s := newTestSynthesizer(fake)
	_, err := s.GenerateCode(context.Background(), "corpus")
	require.Error(t, err, "codegen schema is mandatory")
	assert.True(t, errors.Is(err, domain.ErrMissingField))
}

func TestAnswer(t *testing.T) {
	fake := &fakeClient{responses: []string{
		`{"paper_title": "LoRA", "answers": ["first", "second"]}`,
	}}

	s := newTestSynthesizer(fake)
	got, err := s.Answer(context.Background(), "corpus", []string{"q1?", "q2?"})
	require.NoError(t, err)
	assert.Equal(t, "LoRA", got.PaperTitle)
	assert.Equal(t, []string{"first", "second"}, got.Answers)
	assert.Empty(t, got.Warnings)

	prompt := fake.requests[0].Messages[0].Content
	assert.Contains(t, prompt, "1. q1?")
	assert.Contains(t, prompt, "2. q2?")
}

func TestAnswerCountMismatchWarns(t *testing.T) {
	fake := &fakeClient{responses: []string{
		`{"paper_title": "LoRA", "answers": ["only one"]}`,
	}}

	s := newTestSynthesizer(fake)
	got, err := s.Answer(context.Background(), "corpus", []string{"q1?", "q2?"})
	require.NoError(t, err)
	require.Len(t, got.Warnings, 1)
	assert.Contains(t, got.Warnings[0], "1 answers for 2 questions")
}

func TestAnswerNoQuestions(t *testing.T) {
	s := newTestSynthesizer(&fakeClient{})
	_, err := s.Answer(context.Background(), "corpus", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestChatGrounded(t *testing.T) {
	fake := &fakeClient{responses: []string{"an answer"}}

	s := newTestSynthesizer(fake)
	got, err := s.Chat(context.Background(), "what is this paper about?", "the corpus text", ChatOptions{Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, "an answer", got.Text)

	prompt := fake.requests[0].Messages[0].Content
	assert.Contains(t, prompt, "the corpus text")
	assert.Contains(t, prompt, "what is this paper about?")
	assert.False(t, fake.requests[0].ForceJSON)
	assert.Equal(t, 1024, fake.requests[0].MaxTokens)
}

func TestChatUngrounded(t *testing.T) {
	fake := &fakeClient{responses: []string{"hi"}}

	s := newTestSynthesizer(fake)
	_, err := s.Chat(context.Background(), "hello", "", ChatOptions{MaxTokens: 64, Model: "other-model"})
	require.NoError(t, err)

	assert.Equal(t, "hello", fake.requests[0].Messages[0].Content)
	assert.Equal(t, 64, fake.requests[0].MaxTokens)
	assert.Equal(t, "other-model", fake.requests[0].Model)
}

func TestChatDefaults(t *testing.T) {
	fake := &fakeClient{responses: []string{"hi", "hi"}}

	s := newTestSynthesizer(fake)
	_, err := s.Chat(context.Background(), "hello", "", ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1024, fake.requests[0].MaxTokens)
	assert.InDelta(t, 0.7, fake.requests[0].Temperature, 1e-9)

	// Explicit options pass through untouched.
	_, err = s.Chat(context.Background(), "hello", "", ChatOptions{MaxTokens: 64, Temperature: 0.2})
	require.NoError(t, err)
	assert.Equal(t, 64, fake.requests[1].MaxTokens)
	assert.InDelta(t, 0.2, fake.requests[1].Temperature, 1e-9)
}

func TestAnalyzeTruncatesDocument(t *testing.T) {
	fake := &fakeClient{responses: []string{`{"summary": "ok"}`}}

	s := newTestSynthesizer(fake)
	_, err := s.Analyze(context.Background(), strings.Repeat("x", analysisBudget+1000), "")
	require.NoError(t, err)

	prompt := fake.requests[0].Messages[0].Content
	assert.Contains(t, prompt, "x...")
	assert.NotContains(t, prompt, strings.Repeat("x", analysisBudget+1))
}
