// Package resolver finds the arXiv identifiers of a paper's references
// using a two-pass LLM extraction over the paper text.
package resolver

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/papaaya/ai-navigator/internal/arxiv"
	"github.com/papaaya/ai-navigator/internal/domain"
	"github.com/papaaya/ai-navigator/internal/llm"
)

// maxPaperChars bounds how much paper text is sent to the citation
// extraction pass. Longer papers are cut with an ellipsis; the
// bibliography of most papers fits well within this window.
const maxPaperChars = 50000

// Extraction parameters shared by both passes.
const (
	extractionTemperature = 0.3
	extractionMaxTokens   = 2048
)

const citationsPromptTemplate = "Extract all the arXiv citations from the Reference section of the paper, including their title, authors and origins. Paper: %s"

const idExtractionPromptTemplate = `Extract the arXiv ID from the list of citations provided, including preprint arXiv IDs. If a citation carries no arXiv ID, skip it.

Here are some examples of the arXiv ID format:
1. arXiv preprint arXiv:1607.06450, where 1607.06450 is the arXiv ID.
2. CoRR, abs/1409.0473, where 1409.0473 is the arXiv ID.

Then, return a JSON array of objects with 'title' and 'ID' fields strictly in the following format, only returning a paper title when its arXiv ID was extracted:

Output format: [{"title": "Paper Title", "ID": "arXiv ID"}]

DO NOT return any other text.

List of citations:
%s`

// Result carries the resolved references plus warnings for anything
// that degraded along the way. A failed resolution never fails the
// caller; it yields an empty reference list and a warning instead.
type Result struct {
	References []domain.Reference
	Warnings   []string
}

// Resolver extracts cited arXiv papers from a paper's text.
type Resolver struct {
	client llm.Client
	log    zerolog.Logger
}

// New creates a Resolver backed by the given LLM client.
func New(client llm.Client, log zerolog.Logger) *Resolver {
	return &Resolver{client: client, log: log}
}

// Resolve runs the two extraction passes over paperText. The first
// pass pulls the citations out of the reference section as free text;
// the second turns that text into title/ID pairs. References whose ID
// does not parse as an arXiv identifier are kept for display with an
// empty ID, so they count toward the total but are never dereferenced.
func (r *Resolver) Resolve(ctx context.Context, paperText string) Result {
	var res Result

	citations, err := r.extractCitations(ctx, paperText)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("citation extraction failed: %v", err))
		return res
	}
	if strings.TrimSpace(citations) == "" {
		res.Warnings = append(res.Warnings, "citation extraction returned no text")
		return res
	}

	refs, warn, err := r.extractIDs(ctx, citations)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("arXiv ID extraction failed: %v", err))
		return res
	}
	if warn != "" {
		res.Warnings = append(res.Warnings, warn)
	}

	for _, ref := range refs {
		id := ref.ID
		if !arxiv.ValidID(id) {
			r.log.Debug().Str("title", ref.Title).Str("id", id).Msg("reference has malformed arXiv ID")
			res.Warnings = append(res.Warnings, fmt.Sprintf("reference %q: malformed arXiv ID %q, will not download", ref.Title, id))
			id = ""
		}
		res.References = append(res.References, domain.Reference{Title: ref.Title, ArxivID: id})
	}

	r.log.Info().
		Int("resolved", len(res.References)).
		Int("warnings", len(res.Warnings)).
		Msg("reference resolution complete")
	return res
}

// extractCitations is the first pass: free-text citation listing.
func (r *Resolver) extractCitations(ctx context.Context, paperText string) (string, error) {
	if len(paperText) > maxPaperChars {
		cut := maxPaperChars
		for cut > 0 && !utf8.RuneStart(paperText[cut]) {
			cut--
		}
		paperText = paperText[:cut] + "..."
	}

	completion, err := r.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: fmt.Sprintf(citationsPromptTemplate, paperText)},
		},
		Temperature: extractionTemperature,
		MaxTokens:   extractionMaxTokens,
	})
	if err != nil {
		return "", err
	}
	return completion.Text, nil
}

// extractIDs is the second pass: title/ID pairs as a JSON array.
func (r *Resolver) extractIDs(ctx context.Context, citations string) ([]rawReference, string, error) {
	completion, err := r.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: fmt.Sprintf(idExtractionPromptTemplate, citations)},
		},
		Temperature: extractionTemperature,
		MaxTokens:   extractionMaxTokens,
	})
	if err != nil {
		return nil, "", err
	}

	refs, warn := parseReferenceArray(completion.Text)
	return refs, warn, nil
}
