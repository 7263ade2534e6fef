package synthesis

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/papaaya/ai-navigator/internal/domain"
	"github.com/papaaya/ai-navigator/internal/llm"
	"github.com/papaaya/ai-navigator/internal/observability"
)

// Sections are the paper sections extracted during analysis.
type Sections struct {
	Abstract    string `json:"abstract"`
	Methodology string `json:"methodology"`
	Results     string `json:"results"`
}

// Analysis is the structured result of a paper analysis. When the model
// output could not be parsed even after the corrective retry, RawText
// carries the unparsed reply and the structured fields are empty.
type Analysis struct {
	Summary        string   `json:"summary"`
	Sections       Sections `json:"sections"`
	GeneratedCode  string   `json:"generatedCode"`
	TablesAnalysis string   `json:"tablesAnalysis"`
	RawText        string   `json:"raw_text,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

// CodeBundle is the result of code generation.
type CodeBundle struct {
	FileName        string   `json:"file_name"`
	PythonCode      string   `json:"python_code"`
	RequirementsTxt string   `json:"requirements_txt"`
	TestsCode       string   `json:"tests_code"`
	Warnings        []string `json:"warnings,omitempty"`
}

// QAResult is the result of multi-question answering. RawText carries
// the unparsed reply when parsing degraded.
type QAResult struct {
	PaperTitle string   `json:"paper_title"`
	Answers    []string `json:"answers"`
	RawText    string   `json:"raw_text,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// codeBundleWire distinguishes absent fields from empty ones.
type codeBundleWire struct {
	FileName        *string `json:"file_name"`
	PythonCode      *string `json:"python_code"`
	RequirementsTxt *string `json:"requirements_txt"`
	TestsCode       *string `json:"tests_code"`
}

// Synthesizer drives structured LLM tasks over a corpus.
type Synthesizer struct {
	client     llm.Client
	normalizer Normalizer
	log        zerolog.Logger
	metrics    *observability.Metrics
}

// New creates a Synthesizer. The normalizer is chosen from the
// client's provider identity.
func New(client llm.Client, log zerolog.Logger, metrics *observability.Metrics) *Synthesizer {
	return &Synthesizer{
		client:     client,
		normalizer: NormalizerFor(client.Provider()),
		log:        observability.WithLLMContext(log, client.Provider(), client.Model()),
		metrics:    metrics,
	}
}

// Analyze produces a structured analysis of a single document. A reply
// that stays unparseable after the corrective retry degrades to a
// result carrying the raw text.
func (s *Synthesizer) Analyze(ctx context.Context, docText, tablesMarkdown string) (*Analysis, error) {
	prompt := buildAnalysisPrompt(docText, tablesMarkdown)

	var analysis Analysis
	raw, parsed, err := s.completeStructured(ctx, "analysis", nil, prompt, &analysis)
	if err != nil {
		return nil, err
	}
	if !parsed {
		return &Analysis{
			RawText:  raw,
			Warnings: []string{"model reply was not valid JSON; returning raw text"},
		}, nil
	}
	return &analysis, nil
}

// GenerateCode produces a Python implementation with tests and a
// requirements manifest from the corpus. Unlike analysis, the JSON
// schema is mandatory here: an unparseable reply or a missing required
// field is a terminal error.
func (s *Synthesizer) GenerateCode(ctx context.Context, corpusText string) (*CodeBundle, error) {
	system := codegenSystemPrompt
	prompt := buildCodegenPrompt(corpusText)

	var wire codeBundleWire
	raw, parsed, err := s.completeStructured(ctx, "codegen", &system, prompt, &wire)
	if err != nil {
		return nil, err
	}
	if !parsed {
		s.log.Warn().Str("raw_prefix", truncate(raw, 200)).Msg("code generation reply unparseable")
		return nil, &domain.MissingFieldError{Field: "python_code"}
	}
	return validateCodeBundle(wire)
}

// validateCodeBundle enforces the required-field contract: missing
// fields are terminal, empty-but-present fields succeed with a warning
// comment prepended to the code.
func validateCodeBundle(wire codeBundleWire) (*CodeBundle, error) {
	required := []struct {
		name  string
		value *string
	}{
		{"python_code", wire.PythonCode},
		{"requirements_txt", wire.RequirementsTxt},
		{"tests_code", wire.TestsCode},
	}
	for _, f := range required {
		if f.value == nil {
			return nil, &domain.MissingFieldError{Field: f.name}
		}
	}

	bundle := &CodeBundle{
		PythonCode:      *wire.PythonCode,
		RequirementsTxt: *wire.RequirementsTxt,
		TestsCode:       *wire.TestsCode,
	}
	if wire.FileName != nil && *wire.FileName != "" {
		bundle.FileName = *wire.FileName
	} else {
		bundle.FileName = "implementation.py"
	}

	for _, f := range required {
		if *f.value == "" {
			warning := fmt.Sprintf("model returned an empty %s", f.name)
			bundle.Warnings = append(bundle.Warnings, warning)
			bundle.PythonCode = fmt.Sprintf("# WARNING: %s\n", warning) + bundle.PythonCode
		}
	}
	return bundle, nil
}

// Answer answers a list of questions about the corpus. Degrades to the
// raw reply on parse failure.
func (s *Synthesizer) Answer(ctx context.Context, corpusText string, questions []string) (*QAResult, error) {
	if len(questions) == 0 {
		return nil, domain.NewValidationError("questions", "at least one question is required")
	}
	prompt := buildQAPrompt(corpusText, questions)

	var result QAResult
	raw, parsed, err := s.completeStructured(ctx, "qa", nil, prompt, &result)
	if err != nil {
		return nil, err
	}
	if !parsed {
		return &QAResult{
			RawText:  raw,
			Warnings: []string{"model reply was not valid JSON; returning raw text"},
		}, nil
	}
	if len(result.Answers) != len(questions) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("model returned %d answers for %d questions", len(result.Answers), len(questions)))
	}
	return &result, nil
}

// ChatOptions tune a free-form chat completion.
type ChatOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Chat runs a free-form completion, optionally grounded in corpus
// text. No JSON repair applies; the reply is surfaced verbatim.
func (s *Synthesizer) Chat(ctx context.Context, message, corpusText string, opts ChatOptions) (*domain.Completion, error) {
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 1024
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}

	content := message
	if corpusText != "" {
		content = fmt.Sprintf("Use the following paper content to answer.\n\nPaper Content:\n%s\n\nQuestion: %s",
			truncate(corpusText, qaBudget), message)
	}

	return s.complete(ctx, "chat", llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: content}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Model:       opts.Model,
	})
}

// completeStructured performs the call-parse-repair cycle: one task
// call, textual repair, then at most one corrective call at low
// temperature. It returns the last raw reply and whether v was filled.
func (s *Synthesizer) completeStructured(ctx context.Context, operation string, system *string, prompt string, v any) (string, bool, error) {
	msgs := []llm.Message{}
	if system != nil {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: *system})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: prompt})

	completion, err := s.complete(ctx, operation, llm.Request{
		Messages:    msgs,
		Temperature: synthesisTemperature,
		MaxTokens:   synthesisMaxTokens,
		ForceJSON:   true,
	})
	if err != nil {
		return "", false, err
	}

	if parseJSON(completion.Text, s.normalizer, v) {
		s.metrics.JSONRepairsTotal.WithLabelValues("clean").Inc()
		return completion.Text, true, nil
	}

	s.log.Debug().Str("operation", operation).Msg("structured reply unparseable, issuing corrective call")
	corrected, err := s.complete(ctx, operation, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: fmt.Sprintf(correctivePrompt, completion.Text)},
		},
		Temperature: correctiveTemperature,
		MaxTokens:   synthesisMaxTokens,
		ForceJSON:   true,
	})
	if err != nil {
		return "", false, err
	}

	if parseJSON(corrected.Text, s.normalizer, v) {
		s.metrics.JSONRepairsTotal.WithLabelValues("retried").Inc()
		return corrected.Text, true, nil
	}

	s.metrics.JSONRepairsTotal.WithLabelValues("degraded").Inc()
	return corrected.Text, false, nil
}

// complete wraps the LLM client with metrics and logging.
func (s *Synthesizer) complete(ctx context.Context, operation string, req llm.Request) (*domain.Completion, error) {
	model := s.client.Model()
	if req.Model != "" {
		model = req.Model
	}

	start := time.Now()
	s.metrics.LLMRequestsTotal.WithLabelValues(operation, model).Inc()

	completion, err := s.client.Complete(ctx, req)
	s.metrics.LLMRequestDuration.WithLabelValues(operation, model).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.LLMRequestsFailed.WithLabelValues(operation, model).Inc()
		evt := s.log.Error().Err(err).Str("operation", operation).Str("model", model)
		if apiErr, ok := llm.AsAPIError(err); ok {
			evt = evt.Bool("transient", apiErr.IsTransient()).Int("status", apiErr.StatusCode)
		}
		evt.Msg("llm completion failed")
		return nil, err
	}

	s.metrics.LLMTokensUsed.WithLabelValues(operation, model, "completion").Add(float64(completion.TokensUsed))
	s.metrics.LLMTokensUsed.WithLabelValues(operation, model, "total").Add(float64(completion.TotalTokens))
	return completion, nil
}
