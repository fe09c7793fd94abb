package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_FALLBACK_MODEL", "")
	cfg := Load()

	assert.Equal(t, "", cfg.Gemini.FallbackModel, "explicitly empty env wins over default")
	assert.Equal(t, 10*time.Second, cfg.Gemini.DiscoveryTimeout)
	assert.Equal(t, time.Hour, cfg.Athena.ViewTTL)
	assert.False(t, cfg.IsProduction())
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "go duration", value: "45s", want: 45 * time.Second},
		{name: "bare seconds", value: "7", want: 7 * time.Second},
		{name: "garbage", value: "soon", want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ATHENA_TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, getEnvAsDuration("ATHENA_TEST_DURATION", time.Minute))
		})
	}
}

func TestLoadTracing(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	cfg := Load()
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "athena-backend", cfg.Tracing.ServiceName)

	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "jaeger:4318")
	cfg = Load()
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "jaeger:4318", cfg.Tracing.Endpoint)
}
