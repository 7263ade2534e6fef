package arxiv

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papaaya/ai-navigator/internal/domain"
)

func TestValidID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"modern four digit suffix", "2106.0968", true},
		{"modern five digit suffix", "2106.09685", true},
		{"modern with version", "2106.09685v2", false},
		{"legacy seven digits", "9901001", true},
		{"legacy with version", "9901001v1", false},
		{"too few suffix digits", "2106.968", false},
		{"too many suffix digits", "2106.096850", false},
		{"missing dot", "210609685", false},
		{"empty", "", false},
		{"title text", "Attention Is All You Need", false},
		{"embedded id", "see 2106.09685 here", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidID(tt.id))
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantPDF    string
		wantID     string
		wantErr    bool
	}{
		{
			name:    "abs URL",
			url:     "https://arxiv.org/abs/2106.09685",
			wantPDF: "https://arxiv.org/pdf/2106.09685.pdf",
			wantID:  "2106.09685",
		},
		{
			name:    "html URL",
			url:     "https://arxiv.org/html/2106.09685",
			wantPDF: "https://arxiv.org/pdf/2106.09685.pdf",
			wantID:  "2106.09685",
		},
		{
			name:    "abs URL with version resolves to latest",
			url:     "https://arxiv.org/abs/2106.09685v2",
			wantPDF: "https://arxiv.org/pdf/2106.09685.pdf",
			wantID:  "2106.09685",
		},
		{
			name:    "pdf URL passes through unchanged",
			url:     "https://arxiv.org/pdf/2106.09685.pdf",
			wantPDF: "https://arxiv.org/pdf/2106.09685.pdf",
			wantID:  "2106.09685",
		},
		{
			name:    "abs URL with query string",
			url:     "https://arxiv.org/abs/2106.09685?context=cs.LG",
			wantPDF: "https://arxiv.org/pdf/2106.09685.pdf",
			wantID:  "2106.09685",
		},
		{
			name:    "trailing slash",
			url:     "https://arxiv.org/abs/2106.09685/",
			wantPDF: "https://arxiv.org/pdf/2106.09685.pdf",
			wantID:  "2106.09685",
		},
		{
			name:    "unrecognized shape",
			url:     "https://arxiv.org/list/cs.LG/recent",
			wantErr: true,
		},
		{
			name:    "non-arxiv URL",
			url:     "https://example.com/paper.pdf",
			wantErr: true,
		},
		{
			name:    "malformed id in abs URL",
			url:     "https://arxiv.org/abs/not-an-id",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pdfURL, id, err := NormalizeURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPDF, pdfURL)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestPDFURL(t *testing.T) {
	assert.Equal(t, "https://arxiv.org/pdf/2106.09685.pdf", PDFURL("2106.09685"))
}
