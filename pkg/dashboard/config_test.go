package dashboard

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewh/spanview/pkg/chart"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spanview.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
backend:
  url: http://search:9200
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":8600", cfg.Listen)
	assert.Equal(t, "http://search:9200", cfg.Backend.URL)
	assert.Equal(t, chart.ModeDataPrepper, cfg.Mode())
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "http/protobuf", cfg.Telemetry.Protocol)
}

func TestLoadConfig_FullFile(t *testing.T) {
	path := writeConfig(t, `
listen: ":9999"
backend:
  url: http://search:9200
  mode: jaeger
  timeout: 3s
telemetry:
  enabled: true
  endpoint: localhost:4317
  protocol: grpc
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Listen)
	assert.Equal(t, chart.ModeJaeger, cfg.Mode())
	assert.Equal(t, 3*time.Second, cfg.Backend.Timeout)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "grpc", cfg.Telemetry.Protocol)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("SPANVIEW_BACKEND_URL", "http://env-search:9200")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "http://env-search:9200", cfg.Backend.URL)
}

func TestLoadConfig_MissingBackendURL(t *testing.T) {
	path := writeConfig(t, `listen: ":8600"`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.url is required")
}

func TestLoadConfig_InvalidMode(t *testing.T) {
	path := writeConfig(t, `
backend:
  url: http://search:9200
  mode: zipkin
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.mode")
}

func TestLoadConfig_InvalidTimeout(t *testing.T) {
	path := writeConfig(t, `
backend:
  url: http://search:9200
  timeout: -1s
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout must be positive")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
