package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"unknown", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestNewLoggerDefaults(t *testing.T) {
	log := NewLogger(DefaultLoggingConfig())
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}

func TestNewMetricsWith(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWith("navigator", reg)

	require.NotNil(t, m.IngestsStarted)
	m.IngestsStarted.Inc()
	m.DownloadsTotal.WithLabelValues("primary").Inc()
	m.LLMTokensUsed.WithLabelValues("analysis", "test-model", "completion").Add(42)
	m.JSONRepairsTotal.WithLabelValues("clean").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
