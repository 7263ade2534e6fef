package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/papaaya/ai-navigator/internal/domain"
)

const defaultBaseURL = "http://export.arxiv.org/api/query"

// feed is the Atom envelope returned by the arXiv export API.
type feed struct {
	XMLName xml.Name `xml:"feed"`
	Entries []entry  `xml:"entry"`
}

type entry struct {
	ID      string   `xml:"id"`
	Title   string   `xml:"title"`
	Summary string   `xml:"summary"`
	Authors []author `xml:"author"`
}

type author struct {
	Name string `xml:"name"`
}

// PaperMeta is the metadata the export API reports for one paper.
type PaperMeta struct {
	ArxivID  string
	Title    string
	Abstract string
	Authors  []string
}

// Client searches the arXiv export API. It is used to confirm candidate
// identifiers against paper titles and to decorate ingests with paper
// metadata.
type Client struct {
	baseURL string
	http    *HTTPClient
}

// NewClient creates an arXiv API client. A nil limiter disables
// throttling, which is only appropriate in tests.
func NewClient(baseURL string, timeout time.Duration, limiter *RateLimiter) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    NewHTTPClient(timeout, limiter, "ai-navigator/1.0"),
	}
}

// SearchTitle queries the API for papers matching title and returns the
// best match's identifier, or domain.ErrNotFound when nothing matches.
func (c *Client) SearchTitle(ctx context.Context, title string) (string, error) {
	q := url.Values{}
	q.Set("search_query", fmt.Sprintf(`ti:%q`, title))
	q.Set("start", "0")
	q.Set("max_results", "1")

	f, err := c.query(ctx, q)
	if err != nil {
		return "", err
	}
	if len(f.Entries) == 0 || normalizeWhitespace(f.Entries[0].Title) == "" {
		return "", domain.NewNotFoundError("arxiv paper", title)
	}

	id := idFromEntryURL(f.Entries[0].ID)
	if !ValidID(id) {
		return "", domain.NewNotFoundError("arxiv paper", title)
	}
	return id, nil
}

// Lookup fetches the metadata for a known identifier, or
// domain.ErrNotFound when the API has no such paper.
func (c *Client) Lookup(ctx context.Context, id string) (*PaperMeta, error) {
	if !ValidID(id) {
		return nil, domain.NewValidationError("id", fmt.Sprintf("not an arXiv identifier: %q", id))
	}

	q := url.Values{}
	q.Set("id_list", id)
	q.Set("max_results", "1")

	f, err := c.query(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(f.Entries) == 0 {
		return nil, domain.NewNotFoundError("arxiv paper", id)
	}

	e := f.Entries[0]
	title := normalizeWhitespace(e.Title)
	if title == "" {
		return nil, domain.NewNotFoundError("arxiv paper", id)
	}

	authors := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		if name := normalizeWhitespace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	return &PaperMeta{
		ArxivID:  id,
		Title:    title,
		Abstract: normalizeWhitespace(e.Summary),
		Authors:  authors,
	}, nil
}

// query runs one export API request and decodes the Atom feed.
func (c *Client) query(ctx context.Context, q url.Values) (*feed, error) {
	resp, err := c.http.Get(ctx, c.baseURL+"?"+q.Encode())
	if err != nil {
		return nil, domain.NewUpstreamError("arxiv", 0, "query failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, domain.NewUpstreamError("arxiv", resp.StatusCode, "query returned non-OK status", nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, domain.NewUpstreamError("arxiv", 0, "reading response body", err)
	}

	var f feed
	if err := xml.Unmarshal(body, &f); err != nil {
		return nil, domain.NewUpstreamError("arxiv", 0, "decoding Atom feed", err)
	}
	return &f, nil
}

// idFromEntryURL extracts the identifier from an Atom entry ID such as
// http://arxiv.org/abs/2106.09685v1.
func idFromEntryURL(entryID string) string {
	idx := strings.LastIndex(entryID, "/abs/")
	if idx < 0 {
		return ""
	}
	id := entryID[idx+len("/abs/"):]
	// Strip the version suffix so downloads hit the latest revision.
	return versionSuffix.ReplaceAllString(id, "")
}

// normalizeWhitespace collapses runs of whitespace, which the API uses
// liberally inside titles and abstracts.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
