package synthesis

import (
	"encoding/json"
	"strings"
)

// ExtractJSON runs the textual repair pipeline over a raw completion:
// trim, strip markdown fences, undo provider artifacts, then slice to
// the outermost JSON object. The returned string is the best candidate
// for parsing; it is not guaranteed to be valid JSON.
func ExtractJSON(text string, normalizer Normalizer) string {
	s := strings.TrimSpace(text)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	s = normalizer.Normalize(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}

// parseJSON repairs and parses raw completion text into v. It reports
// whether parsing succeeded.
func parseJSON(text string, normalizer Normalizer, v any) bool {
	candidate := ExtractJSON(text, normalizer)
	return json.Unmarshal([]byte(candidate), v) == nil
}
