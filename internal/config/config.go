package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v8"
	"gopkg.in/yaml.v3"
)

// HostConfig configures the command-line host around the provider.
type HostConfig struct {
	// Observability & Debugging
	EnableJsonLogging bool `env:"ENABLE_JSON_LOGGING" envDefault:"false"` // Log in JSON format
	DebugMode         bool `env:"DEBUG_MODE" envDefault:"false"`          // Also enables trace diagnostics
	EnablePprof       bool `env:"ENABLE_PPROF" envDefault:"false"`
	MetricsPort       int  `env:"METRICS_PORT" envDefault:"9091"` // Port for /metrics, /healthz, /readyz, /debug/pprof

	// Provider
	SettingsFile string        `env:"VAULT_PROVIDER_SETTINGS_FILE"`
	GetTimeout   time.Duration `env:"GET_TIMEOUT" envDefault:"15s"` // Caller-side bound on one get()
}

func Load() (*HostConfig, error) {
	cfg := &HostConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config parsing error: %w", err)
	}

	if err := validateHostConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validateHostConfig(cfg *HostConfig) error {
	if cfg.MetricsPort < 1 || cfg.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.MetricsPort)
	}
	if cfg.GetTimeout <= 0 {
		return fmt.Errorf("get timeout must be positive")
	}
	return nil
}

// LoadSettingsFile reads a flat YAML mapping of provider settings.
// Scalar values of any YAML type are kept in their literal form.
func LoadSettingsFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file '%s': %w", path, err)
	}

	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse settings file '%s': %w", path, err)
	}

	settings := make(map[string]string, len(doc))
	for key, node := range doc {
		if node.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("setting '%s' in '%s' must be a scalar value", key, path)
		}
		settings[key] = node.Value
	}
	return settings, nil
}
