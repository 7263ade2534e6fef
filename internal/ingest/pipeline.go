// Package ingest runs the paper ingestion pipeline: download the
// primary paper, resolve and download its references, and assemble the
// combined text corpus.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/papaaya/ai-navigator/internal/arxiv"
	"github.com/papaaya/ai-navigator/internal/domain"
	"github.com/papaaya/ai-navigator/internal/observability"
	"github.com/papaaya/ai-navigator/internal/pdf"
	"github.com/papaaya/ai-navigator/internal/resolver"
)

// Downloader fetches a PDF and writes it to disk.
type Downloader interface {
	DownloadToFile(ctx context.Context, url, path string) (*pdf.DownloadResult, error)
}

// Resolver extracts a paper's cited arXiv references.
type Resolver interface {
	Resolve(ctx context.Context, paperText string) resolver.Result
}

// MetadataClient talks to the arXiv export API: metadata for a known
// identifier, and title search for references that arrive without one.
type MetadataClient interface {
	Lookup(ctx context.Context, id string) (*arxiv.PaperMeta, error)
	SearchTitle(ctx context.Context, title string) (string, error)
}

// Config holds pipeline configuration.
type Config struct {
	// DownloadRoot is the directory under which each ingest gets its
	// own subdirectory.
	DownloadRoot string
	// MaxParallelDownloads bounds concurrent reference downloads.
	// Default: 4.
	MaxParallelDownloads int
}

// Pipeline orchestrates a full paper ingest. Once the primary paper is
// on disk, every later failure becomes a warning on the result rather
// than an error.
type Pipeline struct {
	downloader  Downloader
	resolver    Resolver
	root        string
	maxParallel int
	log         zerolog.Logger
	metrics     *observability.Metrics
	meta        MetadataClient

	// extractText is swappable in tests.
	extractText func([]byte) (string, error)
}

// NewPipeline creates a Pipeline.
func NewPipeline(cfg Config, dl Downloader, res Resolver, log zerolog.Logger, metrics *observability.Metrics) *Pipeline {
	maxParallel := cfg.MaxParallelDownloads
	if maxParallel <= 0 {
		maxParallel = 4
	}
	return &Pipeline{
		downloader:  dl,
		resolver:    res,
		root:        cfg.DownloadRoot,
		maxParallel: maxParallel,
		log:         log,
		metrics:     metrics,
		extractText: pdf.ExtractText,
	}
}

// WithMetadata attaches an arXiv metadata client used to decorate
// ingests with the paper's title, abstract, and authors.
func (p *Pipeline) WithMetadata(m MetadataClient) *Pipeline {
	p.meta = m
	return p
}

// ProcessURL ingests the paper behind an arXiv URL. It fails with
// ErrInvalidInput for unrecognized URLs and ErrUpstreamUnavailable when
// the primary download fails; anything after that only degrades.
func (p *Pipeline) ProcessURL(ctx context.Context, arxivURL string) (*domain.Ingest, error) {
	start := time.Now()
	p.metrics.IngestsStarted.Inc()

	pdfURL, arxivID, err := arxiv.NormalizeURL(arxivURL)
	if err != nil {
		p.metrics.IngestsFailed.Inc()
		return nil, err
	}

	ing := p.newIngest(arxivURL, arxivID)
	log := observability.WithIngestContext(p.log, ing.ID, arxivID)

	primaryPath := filepath.Join(ing.Dir, PrimaryName)
	res, err := p.downloader.DownloadToFile(ctx, pdfURL, primaryPath)
	if err != nil {
		p.metrics.DownloadsFailed.WithLabelValues("primary").Inc()
		p.metrics.IngestsFailed.Inc()
		ing.Status = domain.IngestFailed
		log.Error().Err(err).Str("url", pdfURL).Msg("primary download failed")
		return nil, domain.NewUpstreamError("arxiv", 0, fmt.Sprintf("downloading %s", pdfURL), err)
	}
	p.metrics.DownloadsTotal.WithLabelValues("primary").Inc()
	p.metrics.DownloadBytes.Observe(float64(res.SizeBytes))
	ing.Status = domain.IngestPrimaryDownloaded

	p.decorate(ctx, ing, log)
	p.processPrimary(ctx, ing, res.Content, log)
	p.finish(ing, start, log)
	return ing, nil
}

// decorate fills in the paper's title, abstract, and authors from the
// export API. Lookup failure is a warning, never fatal.
func (p *Pipeline) decorate(ctx context.Context, ing *domain.Ingest, log zerolog.Logger) {
	if p.meta == nil || ing.ArxivID == "" {
		return
	}
	meta, err := p.meta.Lookup(ctx, ing.ArxivID)
	if err != nil {
		ing.Warnings = append(ing.Warnings, fmt.Sprintf("paper metadata lookup failed: %v", err))
		log.Warn().Err(err).Msg("paper metadata lookup failed")
		return
	}
	ing.Title = meta.Title
	ing.Abstract = meta.Abstract
	ing.Authors = meta.Authors
}

// ProcessUpload ingests an uploaded PDF. The upload plays the role of
// a successful primary download, so the same degradation rules apply.
func (p *Pipeline) ProcessUpload(ctx context.Context, content []byte) (*domain.Ingest, error) {
	start := time.Now()
	p.metrics.IngestsStarted.Inc()

	if len(content) == 0 {
		p.metrics.IngestsFailed.Inc()
		return nil, domain.NewValidationError("file", "uploaded PDF is empty")
	}

	ing := p.newIngest("", "")
	log := observability.WithIngestContext(p.log, ing.ID, "")

	primaryPath := filepath.Join(ing.Dir, PrimaryName)
	if err := os.WriteFile(primaryPath, content, 0o644); err != nil {
		p.metrics.IngestsFailed.Inc()
		ing.Status = domain.IngestFailed
		return nil, fmt.Errorf("ingest: writing uploaded PDF: %v: %w", err, domain.ErrInternalError)
	}
	ing.Status = domain.IngestPrimaryDownloaded

	p.processPrimary(ctx, ing, content, log)
	p.finish(ing, start, log)
	return ing, nil
}

// newIngest allocates an ingest with its own subdirectory under the
// download root.
func (p *Pipeline) newIngest(sourceURL, arxivID string) *domain.Ingest {
	id := uuid.NewString()
	dir := filepath.Join(p.root, id)
	// MkdirAll failure surfaces on the first write into the directory.
	_ = os.MkdirAll(dir, 0o755)

	return &domain.Ingest{
		ID:        id,
		SourceURL: sourceURL,
		ArxivID:   arxivID,
		Status:    domain.IngestPending,
		Dir:       dir,
		CreatedAt: time.Now().UTC(),
	}
}

// processPrimary runs every degradable phase: text extraction,
// reference resolution, reference downloads, manifest write, and
// corpus assembly.
func (p *Pipeline) processPrimary(ctx context.Context, ing *domain.Ingest, primary []byte, log zerolog.Logger) {
	text, err := p.extractText(primary)
	if err != nil {
		ing.Warnings = append(ing.Warnings, fmt.Sprintf("primary text extraction failed: %v", err))
		log.Warn().Err(err).Msg("primary text extraction failed")
	}

	if text != "" {
		res := p.resolver.Resolve(ctx, text)
		ing.References = res.References
		ing.Warnings = append(ing.Warnings, res.Warnings...)
		p.metrics.ReferencesResolved.Add(float64(len(res.References)))
		p.metrics.ReferencesPerPaper.Observe(float64(len(res.References)))
	}

	p.downloadReferences(ctx, ing, log)

	paths := []string{filepath.Join(ing.Dir, PrimaryName)}
	for _, ref := range ing.References {
		if ref.Downloaded {
			paths = append(paths, filepath.Join(ing.Dir, ref.ArxivID+".pdf"))
		}
	}
	manifestPath, err := WriteManifest(ing.Dir, paths)
	if err != nil {
		ing.Warnings = append(ing.Warnings, fmt.Sprintf("manifest write failed: %v", err))
		log.Warn().Err(err).Msg("manifest write failed")
		// Fall back to assembling from the primary alone.
		ing.Corpus = p.assembleCorpus(paths[:1], ing)
		return
	}

	ing.Corpus = p.assembleFromManifest(manifestPath, ing)
}

// downloadReferences fetches resolved references concurrently. Files
// are named by arXiv ID. IDs are re-validated here regardless of what
// the resolver claims; references without a usable ID get one title
// search before being skipped. Failures mark the reference as not
// downloaded and add a warning; they never abort the group.
func (p *Pipeline) downloadReferences(ctx context.Context, ing *domain.Ingest, log zerolog.Logger) {
	if len(ing.References) == 0 {
		return
	}

	warns := make([]string, len(ing.References))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxParallel)
	for i := range ing.References {
		g.Go(func() error {
			ref := &ing.References[i]
			if !arxiv.ValidID(ref.ArxivID) {
				id, ok := p.searchReferenceID(gctx, ref.Title)
				if !ok {
					return nil
				}
				ref.ArxivID = id
			}
			url := arxiv.PDFURL(ref.ArxivID)
			path := filepath.Join(ing.Dir, ref.ArxivID+".pdf")

			res, err := p.downloader.DownloadToFile(gctx, url, path)
			if err != nil {
				p.metrics.DownloadsFailed.WithLabelValues("reference").Inc()
				warns[i] = fmt.Sprintf("reference %q (%s) download failed: %v", ref.Title, ref.ArxivID, err)
				return nil
			}
			p.metrics.DownloadsTotal.WithLabelValues("reference").Inc()
			p.metrics.DownloadBytes.Observe(float64(res.SizeBytes))
			ref.Downloaded = true
			return nil
		})
	}
	_ = g.Wait()

	// Warnings are appended in resolver order, not completion order.
	for _, w := range warns {
		if w != "" {
			ing.Warnings = append(ing.Warnings, w)
			log.Warn().Msg(w)
		}
	}
}

// searchReferenceID tries to recover an identifier for a reference the
// resolver could only name by title.
func (p *Pipeline) searchReferenceID(ctx context.Context, title string) (string, bool) {
	if p.meta == nil || title == "" {
		return "", false
	}
	id, err := p.meta.SearchTitle(ctx, title)
	if err != nil || !arxiv.ValidID(id) {
		return "", false
	}
	return id, true
}

// assembleFromManifest re-reads the manifest from disk and extracts
// every listed PDF into one corpus. Re-reading keeps the manifest the
// single source of truth for what the corpus contains.
func (p *Pipeline) assembleFromManifest(manifestPath string, ing *domain.Ingest) domain.Corpus {
	paths, err := ReadManifest(manifestPath)
	if err != nil {
		ing.Warnings = append(ing.Warnings, fmt.Sprintf("manifest read failed: %v", err))
		return domain.Corpus{NumReferences: len(ing.References)}
	}
	return p.assembleCorpus(paths, ing)
}

// assembleCorpus extracts text from each PDF in order, joining with
// blank lines. Unreadable files degrade to warnings.
func (p *Pipeline) assembleCorpus(paths []string, ing *domain.Ingest) domain.Corpus {
	var b strings.Builder
	totalWords := 0

	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			ing.Warnings = append(ing.Warnings, fmt.Sprintf("reading %s failed: %v", filepath.Base(path), err))
			continue
		}
		text, err := p.extractText(content)
		if err != nil {
			ing.Warnings = append(ing.Warnings, fmt.Sprintf("extracting %s failed: %v", filepath.Base(path), err))
			continue
		}
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
		totalWords += len(strings.Fields(text))
	}

	var downloaded []string
	for _, ref := range ing.References {
		if ref.Downloaded {
			downloaded = append(downloaded, ref.Title)
		}
	}

	p.metrics.CorpusWords.Observe(float64(totalWords))
	return domain.Corpus{
		Text:                 b.String(),
		TotalWordCount:       totalWords,
		NumReferences:        len(ing.References),
		DownloadedReferences: downloaded,
	}
}

// finish records completion metrics and state.
func (p *Pipeline) finish(ing *domain.Ingest, start time.Time, log zerolog.Logger) {
	ing.Status = domain.IngestCompleted
	p.metrics.IngestsCompleted.Inc()
	p.metrics.IngestDuration.Observe(time.Since(start).Seconds())
	p.metrics.IngestWarnings.Add(float64(len(ing.Warnings)))

	log.Info().
		Int("references", len(ing.References)).
		Int("downloaded", len(ing.Corpus.DownloadedReferences)).
		Int("words", ing.Corpus.TotalWordCount).
		Int("warnings", len(ing.Warnings)).
		Dur("duration", time.Since(start)).
		Msg("ingest complete")
}
