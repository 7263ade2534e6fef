package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Well-known file names inside an ingest directory.
const (
	// ManifestName is the manifest listing every PDF in the ingest,
	// one absolute path per line, primary paper first.
	ManifestName = "pdf_paths.txt"
	// PrimaryName is the primary paper's file name.
	PrimaryName = "main_paper.pdf"
)

// WriteManifest writes the PDF path list to dir, one path per line.
func WriteManifest(dir string, paths []string) (string, error) {
	manifestPath := filepath.Join(dir, ManifestName)
	content := strings.Join(paths, "\n")
	if err := os.WriteFile(manifestPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("ingest: writing manifest: %w", err)
	}
	return manifestPath, nil
}

// ReadManifest reads a manifest back into a path list, skipping blank
// lines.
func ReadManifest(manifestPath string) ([]string, error) {
	content, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("ingest: reading manifest: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}
