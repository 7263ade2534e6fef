package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/papaaya/ai-navigator/internal/domain"
	"github.com/papaaya/ai-navigator/internal/llm"
)

// Response types for JSON serialization.

type ingestResponse struct {
	IngestID             string              `json:"ingest_id"`
	ArxivID              string              `json:"arxiv_id,omitempty"`
	SourceURL            string              `json:"source_url,omitempty"`
	Title                string              `json:"title,omitempty"`
	Abstract             string              `json:"abstract,omitempty"`
	Authors              []string            `json:"authors,omitempty"`
	Status               string              `json:"status"`
	TotalWordCount       int                 `json:"total_word_count"`
	NumReferences        int                 `json:"num_references"`
	DownloadedReferences []string            `json:"downloaded_references"`
	References           []referenceResponse `json:"references,omitempty"`
	Warnings             []string            `json:"warnings,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
}

type referenceResponse struct {
	Title      string `json:"title"`
	ArxivID    string `json:"arxiv_id"`
	Downloaded bool   `json:"downloaded"`
}

type analysisResponse struct {
	Summary        string           `json:"summary"`
	Sections       sectionsResponse `json:"sections"`
	GeneratedCode  string           `json:"generatedCode,omitempty"`
	TablesAnalysis string           `json:"tablesAnalysis,omitempty"`
	RawText        string           `json:"raw_text,omitempty"`
	Warnings       []string         `json:"warnings,omitempty"`
}

type sectionsResponse struct {
	Abstract    string `json:"abstract"`
	Methodology string `json:"methodology"`
	Results     string `json:"results"`
}

type codeGenResponse struct {
	FileName        string   `json:"file_name"`
	PythonCode      string   `json:"python_code"`
	RequirementsTxt string   `json:"requirements_txt"`
	TestsCode       string   `json:"tests_code"`
	Warnings        []string `json:"warnings,omitempty"`
}

type qaResponse struct {
	PaperTitle string   `json:"paper_title"`
	Answers    []string `json:"answers"`
	RawText    string   `json:"raw_text,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

type chatResponse struct {
	Response    string `json:"response"`
	Model       string `json:"model"`
	TokensUsed  int    `json:"tokens_used"`
	TotalTokens int    `json:"total_tokens"`
}

func domainIngestToResponse(ing *domain.Ingest) ingestResponse {
	refs := make([]referenceResponse, len(ing.References))
	for i, ref := range ing.References {
		refs[i] = referenceResponse{
			Title:      ref.Title,
			ArxivID:    ref.ArxivID,
			Downloaded: ref.Downloaded,
		}
	}
	return ingestResponse{
		IngestID:             ing.ID,
		ArxivID:              ing.ArxivID,
		SourceURL:            ing.SourceURL,
		Title:                ing.Title,
		Abstract:             ing.Abstract,
		Authors:              ing.Authors,
		Status:               string(ing.Status),
		TotalWordCount:       ing.Corpus.TotalWordCount,
		NumReferences:        ing.Corpus.NumReferences,
		DownloadedReferences: ing.Corpus.DownloadedReferences,
		References:           refs,
		Warnings:             ing.Warnings,
		CreatedAt:            ing.CreatedAt,
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// writeDomainError maps domain and provider errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	if _, ok := llm.AsAPIError(err); ok {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrMissingField):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, domain.ErrInternalError):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeValidationError renders go-playground/validator failures as a 400
// naming the offending fields.
func writeValidationError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fields := make([]string, len(verrs))
	for i, fe := range verrs {
		fields[i] = fe.Field()
	}
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error":  "request validation failed",
		"fields": fields,
	})
}
