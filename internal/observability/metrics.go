package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the paper analysis
// service. Metrics are organized by subsystem: ingests, downloads,
// resolution, synthesis, and LLM operations.
type Metrics struct {
	// IngestsStarted counts the total number of paper ingests initiated.
	IngestsStarted prometheus.Counter

	// IngestsCompleted counts the total number of ingests that finished successfully.
	IngestsCompleted prometheus.Counter

	// IngestsFailed counts the total number of ingests that ended in failure.
	IngestsFailed prometheus.Counter

	// IngestDuration observes the end-to-end duration of ingests in seconds.
	IngestDuration prometheus.Histogram

	// IngestWarnings counts non-fatal degradations recorded during ingests.
	IngestWarnings prometheus.Counter

	// DownloadsTotal counts PDF downloads, labeled by kind ("primary", "reference").
	DownloadsTotal *prometheus.CounterVec

	// DownloadsFailed counts failed PDF downloads, labeled by kind.
	DownloadsFailed *prometheus.CounterVec

	// DownloadBytes observes downloaded PDF sizes in bytes.
	DownloadBytes prometheus.Histogram

	// ReferencesResolved counts references the resolver matched to arXiv IDs.
	ReferencesResolved prometheus.Counter

	// ReferencesPerPaper observes the distribution of resolved references per paper.
	ReferencesPerPaper prometheus.Histogram

	// CorpusWords observes assembled corpus sizes in words.
	CorpusWords prometheus.Histogram

	// LLMRequestsTotal counts LLM API requests, labeled by operation and model.
	LLMRequestsTotal *prometheus.CounterVec

	// LLMRequestsFailed counts failed LLM API requests, labeled by operation and model.
	LLMRequestsFailed *prometheus.CounterVec

	// LLMRequestDuration observes LLM API request duration in seconds, labeled by operation and model.
	LLMRequestDuration *prometheus.HistogramVec

	// LLMTokensUsed counts tokens consumed by LLM operations, labeled by operation, model, and token type.
	LLMTokensUsed *prometheus.CounterVec

	// JSONRepairsTotal counts structured-response repair attempts, labeled by outcome
	// ("clean", "sliced", "retried", "degraded").
	JSONRepairsTotal *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered with the default
// Prometheus registry. The namespace is used as a prefix for all
// metric names.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWith creates a Metrics instance registered with reg. Tests
// pass a fresh registry to avoid duplicate registration panics.
func NewMetricsWith(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Ingests
		IngestsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingests_started_total",
			Help:      "Total number of paper ingests started",
		}),
		IngestsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingests_completed_total",
			Help:      "Total number of paper ingests completed successfully",
		}),
		IngestsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingests_failed_total",
			Help:      "Total number of paper ingests that failed",
		}),
		IngestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Duration of paper ingests in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
		}),
		IngestWarnings: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_warnings_total",
			Help:      "Total number of non-fatal degradations during ingests",
		}),

		// Downloads
		DownloadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Total number of PDF downloads by kind",
		}, []string{"kind"}),
		DownloadsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_failed_total",
			Help:      "Total number of failed PDF downloads by kind",
		}, []string{"kind"}),
		DownloadBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "download_bytes",
			Help:      "Downloaded PDF sizes in bytes",
			Buckets:   prometheus.ExponentialBuckets(64*1024, 4, 8),
		}),

		// Resolution
		ReferencesResolved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "references_resolved_total",
			Help:      "Total number of references resolved to arXiv IDs",
		}),
		ReferencesPerPaper: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "references_per_paper",
			Help:      "Number of resolved references per paper",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}),
		CorpusWords: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "corpus_words",
			Help:      "Assembled corpus sizes in words",
			Buckets:   prometheus.ExponentialBuckets(1000, 4, 8),
		}),

		// LLM
		LLMRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM API requests by operation and model",
		}, []string{"operation", "model"}),
		LLMRequestsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_failed_total",
			Help:      "Total number of failed LLM API requests by operation and model",
		}, []string{"operation", "model"}),
		LLMRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Duration of LLM API requests in seconds by operation and model",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"operation", "model"}),
		LLMTokensUsed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens consumed by operation, model, and token type",
		}, []string{"operation", "model", "type"}),

		// Structured responses
		JSONRepairsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "json_repairs_total",
			Help:      "Structured response repair attempts by outcome",
		}, []string{"outcome"}),
	}
}
