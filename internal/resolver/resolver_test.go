package resolver

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papaaya/ai-navigator/internal/domain"
	"github.com/papaaya/ai-navigator/internal/llm"
)

// fakeClient replays scripted completions in order.
type fakeClient struct {
	responses []string
	errs      []error
	requests  []llm.Request
}

func (f *fakeClient) Complete(_ context.Context, req llm.Request) (*domain.Completion, error) {
	i := len(f.requests)
	f.requests = append(f.requests, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return &domain.Completion{Text: f.responses[i], Model: "fake"}, nil
}

func (f *fakeClient) Provider() string { return "fake" }
func (f *fakeClient) Model() string    { return "fake" }

func TestResolve(t *testing.T) {
	fake := &fakeClient{responses: []string{
		"[1] Vaswani et al. Attention Is All You Need. arXiv:1706.03762\n[2] Hu et al. LoRA. CoRR abs/2106.09685",
		`[{"title": "Attention Is All You Need", "ID": "1706.03762"}, {"title": "LoRA", "ID": "2106.09685"}]`,
	}}

	r := New(fake, zerolog.Nop())
	res := r.Resolve(context.Background(), "paper text with references")

	require.Len(t, res.References, 2)
	assert.Equal(t, domain.Reference{Title: "Attention Is All You Need", ArxivID: "1706.03762"}, res.References[0])
	assert.Equal(t, domain.Reference{Title: "LoRA", ArxivID: "2106.09685"}, res.References[1])
	assert.Empty(t, res.Warnings)

	require.Len(t, fake.requests, 2)
	assert.InDelta(t, 0.3, fake.requests[0].Temperature, 1e-9)
	assert.Equal(t, 2048, fake.requests[0].MaxTokens)
	assert.Contains(t, fake.requests[1].Messages[0].Content, "List of citations:")
}

func TestResolveTruncatesLongPapers(t *testing.T) {
	fake := &fakeClient{responses: []string{"citations", "[]"}}
	r := New(fake, zerolog.Nop())

	long := strings.Repeat("a", maxPaperChars+500)
	r.Resolve(context.Background(), long)

	prompt := fake.requests[0].Messages[0].Content
	assert.True(t, strings.HasSuffix(prompt, "..."))
	assert.Less(t, len(prompt), maxPaperChars+len(citationsPromptTemplate)+10)
}

func TestResolveTruncationKeepsRunesIntact(t *testing.T) {
	fake := &fakeClient{responses: []string{"citations", "[]"}}
	r := New(fake, zerolog.Nop())

	// "é" is two bytes; the leading "a" shifts the rune starts onto odd
	// offsets so the cut lands mid-rune and must back up.
	long := "a" + strings.Repeat("é", maxPaperChars/2+500)
	r.Resolve(context.Background(), long)

	prompt := fake.requests[0].Messages[0].Content
	assert.True(t, strings.HasSuffix(prompt, "..."))
	assert.True(t, utf8.ValidString(prompt))
}

func TestResolveKeepsMalformedIDsForDisplay(t *testing.T) {
	fake := &fakeClient{responses: []string{
		"citations",
		`[{"title": "Good", "ID": "1706.03762"}, {"title": "Bad", "ID": "not-an-id"}, {"title": "Versioned", "ID": "2106.09685v2"}]`,
	}}

	r := New(fake, zerolog.Nop())
	res := r.Resolve(context.Background(), "text")

	// Malformed IDs are blanked but the references stay in the list, so
	// they count toward the total without ever being dereferenced.
	require.Len(t, res.References, 3)
	assert.Equal(t, domain.Reference{Title: "Good", ArxivID: "1706.03762"}, res.References[0])
	assert.Equal(t, domain.Reference{Title: "Bad"}, res.References[1])
	assert.Equal(t, domain.Reference{Title: "Versioned"}, res.References[2])

	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0], "not-an-id")
	assert.Contains(t, res.Warnings[1], "2106.09685v2")
}

func TestResolveMalformedIDStillCounts(t *testing.T) {
	fake := &fakeClient{responses: []string{
		"citations",
		`[{"title": "X", "ID": "12.345"}]`,
	}}

	r := New(fake, zerolog.Nop())
	res := r.Resolve(context.Background(), "text")

	require.Len(t, res.References, 1)
	assert.Equal(t, domain.Reference{Title: "X"}, res.References[0])
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], `malformed arXiv ID "12.345"`)
}

func TestResolveFirstPassError(t *testing.T) {
	fake := &fakeClient{
		responses: []string{""},
		errs:      []error{errors.New("boom")},
	}

	r := New(fake, zerolog.Nop())
	res := r.Resolve(context.Background(), "text")

	assert.Empty(t, res.References)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "citation extraction failed")
}

func TestResolveSecondPassError(t *testing.T) {
	fake := &fakeClient{
		responses: []string{"citations", ""},
		errs:      []error{nil, errors.New("boom")},
	}

	r := New(fake, zerolog.Nop())
	res := r.Resolve(context.Background(), "text")

	assert.Empty(t, res.References)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "arXiv ID extraction failed")
}

func TestResolveEmptyCitations(t *testing.T) {
	fake := &fakeClient{responses: []string{"   \n"}}

	r := New(fake, zerolog.Nop())
	res := r.Resolve(context.Background(), "text")

	assert.Empty(t, res.References)
	require.Len(t, res.Warnings, 1)
}

func TestParseReferenceArray(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     []rawReference
		wantWarn bool
	}{
		{
			name:  "clean JSON array",
			input: `[{"title": "A", "ID": "1706.03762"}]`,
			want:  []rawReference{{Title: "A", ID: "1706.03762"}},
		},
		{
			name:  "fenced JSON array",
			input: "```json\n[{\"title\": \"A\", \"ID\": \"1706.03762\"}]\n```",
			want:  []rawReference{{Title: "A", ID: "1706.03762"}},
		},
		{
			name:  "array embedded in prose",
			input: `Here are the references: [{"title": "A", "ID": "1706.03762"}] Hope this helps!`,
			want:  []rawReference{{Title: "A", ID: "1706.03762"}},
		},
		{
			name:  "empty array",
			input: `[]`,
			want:  []rawReference{},
		},
		{
			name:     "unparseable output",
			input:    "I could not find any references in this paper.",
			wantWarn: true,
		},
		{
			name:     "broken JSON with no recoverable slice",
			input:    `[{"title": "A", "ID": }`,
			wantWarn: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warn := parseReferenceArray(tt.input)
			if tt.wantWarn {
				assert.NotEmpty(t, warn)
				assert.Nil(t, got)
				return
			}
			assert.Empty(t, warn)
			assert.Equal(t, tt.want, got)
		})
	}
}
