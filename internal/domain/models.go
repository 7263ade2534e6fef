package domain

import "time"

// Reference is a cited work extracted from a paper's bibliography,
// paired with the arXiv identifier the resolver assigned to it.
// ArxivID is empty when the resolver could not find a match.
type Reference struct {
	Title      string `json:"title"`
	ArxivID    string `json:"arxiv_id,omitempty"`
	Downloaded bool   `json:"downloaded"`
}

// Corpus is the combined text of a primary paper and its downloaded
// references, assembled in manifest order. DownloadedReferences lists
// the titles of the references that were actually fetched, in resolver
// order; its length never exceeds NumReferences.
type Corpus struct {
	Text                 string   `json:"-"`
	TotalWordCount       int      `json:"total_word_count"`
	NumReferences        int      `json:"num_references"`
	DownloadedReferences []string `json:"downloaded_references"`
}

// Completion is a single LLM completion with its token accounting.
// TokensUsed counts completion tokens only; TotalTokens includes the
// prompt. Either may be zero when the provider omits usage data.
type Completion struct {
	Text        string `json:"text"`
	Model       string `json:"model"`
	TokensUsed  int    `json:"tokens_used"`
	TotalTokens int    `json:"total_tokens"`
}

// IngestStatus tracks how far an ingest run progressed.
type IngestStatus string

// Ingest run states. Failed is only reachable before the primary PDF
// lands on disk; everything after that degrades to warnings instead.
const (
	IngestPending           IngestStatus = "pending"
	IngestPrimaryDownloaded IngestStatus = "primary_downloaded"
	IngestCompleted         IngestStatus = "completed"
	IngestFailed            IngestStatus = "failed"
)

// Ingest is the stored result of one paper ingestion run. Warnings
// carry non-fatal degradations (references that failed to download,
// resolver fallbacks) that the caller should surface but not fail on.
type Ingest struct {
	ID         string       `json:"id"`
	SourceURL  string       `json:"source_url,omitempty"`
	ArxivID    string       `json:"arxiv_id,omitempty"`
	Title      string       `json:"title,omitempty"`
	Abstract   string       `json:"abstract,omitempty"`
	Authors    []string     `json:"authors,omitempty"`
	Status     IngestStatus `json:"status"`
	Dir        string       `json:"-"`
	References []Reference  `json:"references"`
	Corpus     Corpus       `json:"corpus"`
	Warnings   []string     `json:"warnings,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}
