package httpserver

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/papaaya/ai-navigator/internal/domain"
	"github.com/papaaya/ai-navigator/internal/synthesis"
)

// maxJSONBodySize bounds plain JSON request bodies. Uploaded documents
// go through s.maxUploadBytes instead.
const maxJSONBodySize = 1 << 20

// processPDFRequest is the JSON request body for ingesting an arXiv paper.
type processPDFRequest struct {
	ArxivURL string `json:"arxiv_url" validate:"required,url"`
}

// processDocumentRequest is the JSON request body for analyzing an
// uploaded PDF. Content is the base64-encoded document.
type processDocumentRequest struct {
	Filename string `json:"filename" validate:"required"`
	Content  string `json:"content" validate:"required,base64"`
}

// codeGenRequest selects a corpus either by ingest ID or by inline text.
type codeGenRequest struct {
	IngestID     string `json:"ingest_id,omitempty"`
	PaperContent string `json:"paper_content,omitempty"`
}

// qaRequest carries the questions to answer over a corpus.
type qaRequest struct {
	IngestID     string   `json:"ingest_id,omitempty"`
	PaperContent string   `json:"paper_content,omitempty"`
	Questions    []string `json:"questions" validate:"required,min=1,dive,required"`
}

// chatRequest is the JSON request body for a free-form chat turn.
type chatRequest struct {
	Message     string   `json:"message" validate:"required"`
	Model       string   `json:"model,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty" validate:"omitempty,gt=0"`
	Temperature *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	IngestID    string   `json:"ingest_id,omitempty"`
}

// decodeRequest reads a bounded JSON body into v and validates it.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, limit))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}

// processPDF handles POST /pdf/process.
// It runs the full ingestion pipeline for an arXiv URL and caches the
// resulting corpus in memory for follow-up synthesis calls.
func (s *Server) processPDF(w http.ResponseWriter, r *http.Request) {
	var req processPDFRequest
	if !s.decodeRequest(w, r, maxJSONBodySize, &req) {
		return
	}

	ing, err := s.pipeline.ProcessURL(r.Context(), req.ArxivURL)
	if err != nil {
		s.requestLogger(r).Error().Err(err).Str("arxiv_url", req.ArxivURL).Msg("ingestion failed")
		writeDomainError(w, err)
		return
	}

	s.store.Put(ing)
	// Partial success is still success: warnings ride along with a 200.
	writeJSON(w, http.StatusOK, domainIngestToResponse(ing))
}

// uploadPDF handles POST /pdf/upload.
// It runs the full ingestion pipeline over an uploaded PDF, so the
// resulting corpus can feed /code_gen, /qa, and /chat by ingest ID.
func (s *Server) uploadPDF(w http.ResponseWriter, r *http.Request) {
	var req processDocumentRequest
	if !s.decodeRequest(w, r, s.maxUploadBytes, &req) {
		return
	}

	content, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		writeError(w, http.StatusBadRequest, "content is not valid base64")
		return
	}

	ing, err := s.pipeline.ProcessUpload(r.Context(), content)
	if err != nil {
		s.requestLogger(r).Error().Err(err).Str("filename", req.Filename).Msg("upload ingestion failed")
		writeDomainError(w, err)
		return
	}

	s.store.Put(ing)
	writeJSON(w, http.StatusOK, domainIngestToResponse(ing))
}

// processDocument handles POST /process-document.
// It decodes an uploaded PDF, extracts its text and tables, and runs the
// analysis synthesis over the single document. No reference resolution.
func (s *Server) processDocument(w http.ResponseWriter, r *http.Request) {
	var req processDocumentRequest
	if !s.decodeRequest(w, r, s.maxUploadBytes, &req) {
		return
	}

	content, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		writeError(w, http.StatusBadRequest, "content is not valid base64")
		return
	}
	if len(content) == 0 {
		writeError(w, http.StatusBadRequest, "content is empty")
		return
	}

	text, err := s.extractText(content)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to extract text from document")
		return
	}
	tables := s.extractTables(content)

	analysis, err := s.synth.Analyze(r.Context(), text, tables)
	if err != nil {
		s.requestLogger(r).Error().Err(err).Str("filename", req.Filename).Msg("analysis failed")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, analysisResponse{
		Summary: analysis.Summary,
		Sections: sectionsResponse{
			Abstract:    analysis.Sections.Abstract,
			Methodology: analysis.Sections.Methodology,
			Results:     analysis.Sections.Results,
		},
		GeneratedCode:  analysis.GeneratedCode,
		TablesAnalysis: analysis.TablesAnalysis,
		RawText:        analysis.RawText,
		Warnings:       analysis.Warnings,
	})
}

// generateCode handles POST /code_gen.
func (s *Server) generateCode(w http.ResponseWriter, r *http.Request) {
	var req codeGenRequest
	if !s.decodeRequest(w, r, s.maxUploadBytes, &req) {
		return
	}

	corpus, ok := s.corpusFor(w, req.IngestID, req.PaperContent)
	if !ok {
		return
	}

	bundle, err := s.synth.GenerateCode(r.Context(), corpus)
	if err != nil {
		s.requestLogger(r).Error().Err(err).Msg("code generation failed")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, codeGenResponse{
		FileName:        bundle.FileName,
		PythonCode:      bundle.PythonCode,
		RequirementsTxt: bundle.RequirementsTxt,
		TestsCode:       bundle.TestsCode,
		Warnings:        bundle.Warnings,
	})
}

// answerQuestions handles POST /qa.
func (s *Server) answerQuestions(w http.ResponseWriter, r *http.Request) {
	var req qaRequest
	if !s.decodeRequest(w, r, s.maxUploadBytes, &req) {
		return
	}

	corpus, ok := s.corpusFor(w, req.IngestID, req.PaperContent)
	if !ok {
		return
	}

	result, err := s.synth.Answer(r.Context(), corpus, req.Questions)
	if err != nil {
		s.requestLogger(r).Error().Err(err).Msg("question answering failed")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, qaResponse{
		PaperTitle: result.PaperTitle,
		Answers:    result.Answers,
		RawText:    result.RawText,
		Warnings:   result.Warnings,
	})
}

// chat handles POST /chat.
// When an ingest_id is given the chat is grounded in that corpus. Without
// one, the most recently ingested corpus is used if any exists; otherwise
// the model answers ungrounded.
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !s.decodeRequest(w, r, maxJSONBodySize, &req) {
		return
	}

	var corpus string
	if req.IngestID != "" {
		ing, err := s.store.Get(req.IngestID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		corpus = ing.Corpus.Text
	} else if ing, err := s.store.Latest(); err == nil {
		corpus = ing.Corpus.Text
	}

	opts := synthesis.ChatOptions{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != nil {
		opts.Temperature = *req.Temperature
	}

	completion, err := s.synth.Chat(r.Context(), req.Message, corpus, opts)
	if err != nil {
		s.requestLogger(r).Error().Err(err).Msg("chat completion failed")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:    completion.Text,
		Model:       completion.Model,
		TokensUsed:  completion.TokensUsed,
		TotalTokens: completion.TotalTokens,
	})
}

// corpusFor resolves the corpus text for a synthesis request that accepts
// either an ingest_id or inline paper_content. Writes the error response
// itself and reports false when neither resolves.
func (s *Server) corpusFor(w http.ResponseWriter, ingestID, paperContent string) (string, bool) {
	switch {
	case ingestID != "":
		ing, err := s.store.Get(ingestID)
		if err != nil {
			writeDomainError(w, err)
			return "", false
		}
		if ing.Corpus.Text == "" {
			writeDomainError(w, domain.NewValidationError("ingest_id", "ingest has no corpus text"))
			return "", false
		}
		return ing.Corpus.Text, true
	case strings.TrimSpace(paperContent) != "":
		return paperContent, true
	default:
		writeDomainError(w, domain.NewValidationError("ingest_id", "either ingest_id or paper_content is required"))
		return "", false
	}
}
