package synthesis

import (
	"encoding/json"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONEquivalence(t *testing.T) {
	// The same payload must parse identically regardless of wrapping.
	payload := `{"summary": "s", "sections": {"abstract": "a"}}`

	inputs := map[string]string{
		"pure JSON":        payload,
		"fenced":           "```json\n" + payload + "\n```",
		"bare fence":       "```\n" + payload + "\n```",
		"surrounding text": "Sure! Here is the JSON you asked for:\n" + payload + "\nLet me know if you need more.",
		"whitespace":       "\n\n  " + payload + "  \n",
	}

	var want map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &want))

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			var got map[string]any
			require.True(t, parseJSON(input, passthroughNormalizer{}, &got))
			assert.Equal(t, want, got)
		})
	}
}

func TestExtractJSONUnparseable(t *testing.T) {
	var got map[string]any
	assert.False(t, parseJSON("no json here at all", passthroughNormalizer{}, &got))
	assert.False(t, parseJSON(`{"broken": `, passthroughNormalizer{}, &got))
}

func TestLlamaNormalizer(t *testing.T) {
	n := NormalizerFor("llama")

	t.Run("unwraps artifact", func(t *testing.T) {
		wrapped := `MessageTextContentItem(text='{"summary": "it\'s fine"}', type='text')`
		assert.Equal(t, `{"summary": "it's fine"}`, n.Normalize(wrapped))
	})

	t.Run("passes clean text through", func(t *testing.T) {
		assert.Equal(t, `{"a": 1}`, n.Normalize(`{"a": 1}`))
	})

	t.Run("end-to-end through repair pipeline", func(t *testing.T) {
		wrapped := `MessageTextContentItem(text='{"paper_title": "LoRA", "answers": ["yes"]}', type='text')`
		var got QAResult
		require.True(t, parseJSON(wrapped, n, &got))
		assert.Equal(t, "LoRA", got.PaperTitle)
		assert.Equal(t, []string{"yes"}, got.Answers)
	})
}

func TestNormalizerForUnknownProvider(t *testing.T) {
	n := NormalizerFor("openai")
	assert.Equal(t, "anything", n.Normalize("anything"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 100))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "abc", truncate("abc", 3))

	// A cut landing inside a multi-byte rune backs up to the rune
	// boundary instead of emitting invalid UTF-8.
	assert.Equal(t, "a...", truncate("aéé", 2))
	assert.Equal(t, "aé...", truncate("aéé", 3))
	assert.True(t, utf8.ValidString(truncate("日本語のテキスト", 5)))
}
