package resolver

import (
	"encoding/json"
	"strings"
)

// rawReference mirrors the JSON objects the ID extraction pass is
// instructed to emit.
type rawReference struct {
	Title string `json:"title"`
	ID    string `json:"ID"`
}

// parseReferenceArray parses the second pass's output. Models often
// wrap the array in prose or markdown fences, so parsing degrades in
// stages: direct parse, then the outermost bracketed slice, then an
// empty result with a warning. It never fails.
func parseReferenceArray(text string) (refs []rawReference, warning string) {
	cleaned := strings.TrimSpace(text)
	cleaned = stripFences(cleaned)

	if err := json.Unmarshal([]byte(cleaned), &refs); err == nil {
		return refs, ""
	}

	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &refs); err == nil {
			return refs, ""
		}
	}

	return nil, "could not parse reference list from model output"
}

// stripFences removes a surrounding markdown code fence, with or
// without a language tag.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
