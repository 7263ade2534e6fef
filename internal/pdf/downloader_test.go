package pdf

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pdfHeader is a minimal valid-looking PDF prefix for test responses.
const pdfHeader = "%PDF-1.4 test content"

func newTestDownloader(cfg Config) *Downloader {
	cfg.AllowAnyHost = true
	return NewDownloader(cfg)
}

func TestDownloadSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte(pdfHeader))
	}))
	defer srv.Close()

	d := newTestDownloader(Config{})
	res, err := d.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte(pdfHeader), res.Content)
	assert.Equal(t, int64(len(pdfHeader)), res.SizeBytes)
	assert.Len(t, res.ContentHash, 64)
}

func TestDownloadNotPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>not a pdf</html>"))
	}))
	defer srv.Close()

	d := newTestDownloader(Config{})
	_, err := d.Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotPDF))
}

func TestDownloadTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer srv.Close()

	d := newTestDownloader(Config{MaxSize: 1024})
	_, err := d.Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooLarge))
}

func TestDownloadHTTPError(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"not found", http.StatusNotFound},
		{"server error", http.StatusInternalServerError},
		{"forbidden", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			d := newTestDownloader(Config{})
			_, err := d.Download(context.Background(), srv.URL)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDownloadFailed))
		})
	}
}

func TestDownloadHostNotAllowed(t *testing.T) {
	d := NewDownloader(Config{}) // allow-list enforced

	tests := []struct {
		name string
		url  string
	}{
		{"random host", "https://example.com/paper.pdf"},
		{"file scheme", "file:///etc/passwd"},
		{"localhost", "http://127.0.0.1/paper.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Download(context.Background(), tt.url)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrHostNotAllowed))
		})
	}
}

func TestDownloadToFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte(pdfHeader))
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "main_paper.pdf")

	d := newTestDownloader(Config{})
	res, err := d.DownloadToFile(context.Background(), srv.URL, path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(pdfHeader)), res.SizeBytes)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte(pdfHeader), written)
}

func TestValidateHost(t *testing.T) {
	assert.NoError(t, validateHost("https://arxiv.org/pdf/2106.09685.pdf"))
	assert.NoError(t, validateHost("http://export.arxiv.org/api/query"))
	assert.Error(t, validateHost("https://evil.example.com/x.pdf"))
	assert.Error(t, validateHost("gopher://arxiv.org/x"))
}
