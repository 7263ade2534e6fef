// Package arxiv normalizes arXiv links and identifiers and talks to
// the arXiv export API.
package arxiv

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/papaaya/ai-navigator/internal/domain"
)

// pdfURLTemplate is the canonical download location for an arXiv paper.
const pdfURLTemplate = "https://arxiv.org/pdf/%s.pdf"

var (
	// Modern identifiers: YYMM.NNNN or YYMM.NNNNN.
	modernIDPattern = regexp.MustCompile(`^\d{4}\.\d{4,5}$`)
	// Legacy identifiers: seven digits, e.g. 9901001.
	legacyIDPattern = regexp.MustCompile(`^\d{7}$`)
	// Trailing version suffixes are stripped before validation.
	versionSuffix = regexp.MustCompile(`v\d+$`)
)

// ValidID reports whether s is a well-formed arXiv identifier.
func ValidID(s string) bool {
	return modernIDPattern.MatchString(s) || legacyIDPattern.MatchString(s)
}

// PDFURL returns the canonical PDF download URL for an arXiv identifier.
func PDFURL(id string) string {
	return fmt.Sprintf(pdfURLTemplate, id)
}

// NormalizeURL converts any supported arXiv paper URL into its PDF
// download URL and extracts the paper's identifier. Supported shapes
// are /abs/{id}, /html/{id} and /pdf/{id}; /pdf/ links pass through
// unchanged. Anything else is rejected as invalid input.
func NormalizeURL(rawURL string) (pdfURL, id string, err error) {
	u := strings.TrimSpace(rawURL)

	switch {
	case strings.Contains(u, "/pdf/"):
		id = extractID(u, "/pdf/")
		return u, id, nil
	case strings.Contains(u, "/abs/"):
		id = extractID(u, "/abs/")
	case strings.Contains(u, "/html/"):
		id = extractID(u, "/html/")
	default:
		return "", "", domain.NewValidationError("url", "not a recognized arxiv.org paper URL")
	}

	if !ValidID(id) {
		return "", "", domain.NewValidationError("url", fmt.Sprintf("malformed arXiv identifier %q", id))
	}
	return PDFURL(id), id, nil
}

// extractID pulls the identifier segment that follows marker, trimming
// any trailing path, query string or .pdf suffix.
func extractID(u, marker string) string {
	idx := strings.Index(u, marker)
	id := u[idx+len(marker):]
	if i := strings.IndexAny(id, "?#"); i >= 0 {
		id = id[:i]
	}
	id = strings.TrimSuffix(id, "/")
	id = strings.TrimSuffix(id, ".pdf")
	if i := strings.Index(id, "/"); i >= 0 {
		id = id[:i]
	}
	// Versioned links resolve to the latest revision.
	return versionSuffix.ReplaceAllString(id, "")
}
