package synthesis

import "strings"

// Normalizer undoes provider-specific serialization artifacts in raw
// completion text before JSON parsing. Detection by substring matching
// is fragile, so each provider's quirks live behind this interface
// rather than inside the repair pipeline.
type Normalizer interface {
	// Normalize returns the cleaned payload. Text without the
	// provider's artifact passes through unchanged.
	Normalize(text string) string
}

// NormalizerFor returns the Normalizer for a provider identity.
// Unknown providers get a passthrough.
func NormalizerFor(provider string) Normalizer {
	switch provider {
	case "llama":
		return llamaNormalizer{}
	default:
		return passthroughNormalizer{}
	}
}

// passthroughNormalizer returns text unchanged.
type passthroughNormalizer struct{}

func (passthroughNormalizer) Normalize(text string) string { return text }

// Markers of the Llama SDK's stringified content object. Payloads that
// crossed a str() boundary arrive as
// MessageTextContentItem(text='...', type='text').
const (
	llamaWrapperStart = "MessageTextContentItem(text='"
	llamaWrapperEnd   = "', type='text')"
)

// llamaNormalizer unwraps the Llama SDK serialization artifact and
// undoes its quote escaping.
type llamaNormalizer struct{}

func (llamaNormalizer) Normalize(text string) string {
	start := strings.Index(text, llamaWrapperStart)
	if start < 0 {
		return text
	}
	end := strings.LastIndex(text, llamaWrapperEnd)
	if end <= start {
		return text
	}
	payload := text[start+len(llamaWrapperStart) : end]
	return strings.ReplaceAll(payload, `\'`, `'`)
}
