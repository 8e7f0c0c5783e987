// Package dashboard serves trace Gantt chart models over HTTP and
// websocket, fetching raw hits from a search backend and recomputing
// the chart pipeline on every load.
package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/andrewh/spanview/pkg/chart"
	"github.com/spf13/viper"
)

// Config is the dashboard server configuration, loaded from YAML with
// SPANVIEW_-prefixed environment overrides.
type Config struct {
	Listen    string          `mapstructure:"listen"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// BackendConfig points at the search backend serving raw span hits.
type BackendConfig struct {
	URL     string        `mapstructure:"url"`
	Mode    string        `mapstructure:"mode"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TelemetryConfig controls the server's own trace emission.
type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Protocol string `mapstructure:"protocol"`
}

// LoadConfig reads the YAML config at path. An empty path uses
// defaults and environment variables only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("listen", ":8600")
	// Empty default keeps the key visible to Unmarshal so the
	// SPANVIEW_BACKEND_URL override is honored.
	v.SetDefault("backend.url", "")
	v.SetDefault("backend.mode", string(chart.ModeDataPrepper))
	v.SetDefault("backend.timeout", "10s")
	v.SetDefault("telemetry.protocol", "http/protobuf")

	v.SetEnvPrefix("SPANVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Backend.URL == "" {
		return nil, fmt.Errorf("backend.url is required (set it in the config file or SPANVIEW_BACKEND_URL)")
	}
	if _, err := chart.ParseMode(cfg.Backend.Mode); err != nil {
		return nil, fmt.Errorf("backend.mode: %w", err)
	}
	if cfg.Backend.Timeout <= 0 {
		return nil, fmt.Errorf("backend.timeout must be positive, got %s", cfg.Backend.Timeout)
	}

	return &cfg, nil
}

// Mode returns the validated hit schema mode.
func (c *Config) Mode() chart.Mode {
	mode, _ := chart.ParseMode(c.Backend.Mode)
	return mode
}
