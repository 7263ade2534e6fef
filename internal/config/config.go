// Package config provides configuration management for the paper
// analysis service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the paper analysis service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// LLM contains LLM client settings.
	LLM LLMConfig `mapstructure:"llm"`
	// Ingest contains ingestion pipeline settings.
	Ingest IngestConfig `mapstructure:"ingest"`
	// Arxiv contains arXiv API client settings.
	Arxiv ArxivConfig `mapstructure:"arxiv"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	// Ingest and synthesis requests do several LLM round trips, so this
	// is much longer than a typical API timeout.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxUploadBytes bounds uploaded PDF request bodies.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for the metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace is the metric name prefix.
	Namespace string `mapstructure:"namespace"`
}

// LLMConfig holds LLM client configuration.
type LLMConfig struct {
	// Provider selects the LLM provider ("llama" or "openai").
	Provider string `mapstructure:"provider"`
	// Timeout is the timeout for a single LLM API call.
	Timeout time.Duration `mapstructure:"timeout"`
	// Llama contains Llama API settings.
	Llama LlamaConfig `mapstructure:"llama"`
	// OpenAI contains OpenAI API settings.
	OpenAI OpenAIConfig `mapstructure:"openai"`
}

// LlamaConfig holds Llama API settings.
type LlamaConfig struct {
	// APIKey is loaded exclusively from the environment.
	APIKey string `mapstructure:"-"`
	// Model is the model identifier.
	Model string `mapstructure:"model"`
	// BaseURL overrides the API base URL (empty means default).
	BaseURL string `mapstructure:"base_url"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	// APIKey is loaded exclusively from the environment.
	APIKey string `mapstructure:"-"`
	// Model is the model identifier.
	Model string `mapstructure:"model"`
	// BaseURL overrides the API base URL (empty means default).
	BaseURL string `mapstructure:"base_url"`
}

// IngestConfig holds ingestion pipeline configuration.
type IngestConfig struct {
	// DownloadRoot is the directory under which each ingest gets its
	// own subdirectory.
	DownloadRoot string `mapstructure:"download_root"`
	// MaxParallelDownloads bounds concurrent reference downloads.
	MaxParallelDownloads int `mapstructure:"max_parallel_downloads"`
	// DownloadTimeout is the per-PDF download timeout.
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	// MaxPDFBytes bounds a single downloaded PDF.
	MaxPDFBytes int64 `mapstructure:"max_pdf_bytes"`
}

// ArxivConfig holds arXiv API client configuration.
type ArxivConfig struct {
	// BaseURL is the export API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the per-request timeout.
	Timeout time.Duration `mapstructure:"timeout"`
	// RequestsPerSecond throttles outbound arXiv traffic.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	// Burst is the limiter burst size.
	Burst int `mapstructure:"burst"`
}

// Load reads configuration from defaults, an optional config file, and
// NAVIGATOR_-prefixed environment variables, in increasing precedence.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("NAVIGATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/ai-navigator")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets reads API keys from the environment.
func loadSecrets(cfg *Config) {
	cfg.LLM.Llama.APIKey = os.Getenv("NAVIGATOR_LLM_LLAMA_API_KEY")
	cfg.LLM.OpenAI.APIKey = os.Getenv("NAVIGATOR_LLM_OPENAI_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "60s")
	v.SetDefault("server.write_timeout", "10m")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_upload_bytes", 100*1024*1024)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "navigator")

	// LLM defaults
	v.SetDefault("llm.provider", "llama")
	v.SetDefault("llm.timeout", "120s")
	v.SetDefault("llm.llama.model", "Llama-4-Maverick-17B-128E-Instruct-FP8")
	v.SetDefault("llm.llama.base_url", "")
	v.SetDefault("llm.openai.model", "gpt-4o")
	v.SetDefault("llm.openai.base_url", "")

	// Ingest defaults
	v.SetDefault("ingest.download_root", "downloaded_papers")
	v.SetDefault("ingest.max_parallel_downloads", 4)
	v.SetDefault("ingest.download_timeout", "60s")
	v.SetDefault("ingest.max_pdf_bytes", 100*1024*1024)

	// Arxiv defaults
	v.SetDefault("arxiv.base_url", "http://export.arxiv.org/api/query")
	v.SetDefault("arxiv.timeout", "30s")
	v.SetDefault("arxiv.requests_per_second", 0.33)
	v.SetDefault("arxiv.burst", 1)
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}
	if c.Server.MetricsPort == c.Server.HTTPPort {
		return fmt.Errorf("metrics port must differ from HTTP port: %d", c.Server.HTTPPort)
	}

	switch c.LLM.Provider {
	case "llama", "openai":
	default:
		return fmt.Errorf("invalid LLM provider: %q", c.LLM.Provider)
	}

	if c.Ingest.DownloadRoot == "" {
		return fmt.Errorf("ingest download_root is required")
	}
	if c.Ingest.MaxParallelDownloads <= 0 {
		return fmt.Errorf("ingest max_parallel_downloads must be positive")
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}
