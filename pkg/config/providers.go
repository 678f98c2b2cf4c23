package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v2"
)

const defaultProvidersPath = "./config/providers.yaml"

// ProviderConfig represents the configuration for a single downstream
type ProviderConfig struct {
	BaseURL string `yaml:"base_url"`
}

// ProvidersConfig represents the configuration for all downstreams
type ProvidersConfig struct {
	Providers map[string]ProviderConfig `yaml:"providers"`
}

func providersPath() string {
	if path := os.Getenv("PROVIDERS_PATH"); path != "" {
		return path
	}
	return defaultProvidersPath
}

// LoadProviderConfig loads the provider configuration from the YAML file.
// A missing file yields an empty configuration.
func LoadProviderConfig(path string) (*ProvidersConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ProvidersConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read provider config: %w", err)
	}

	var config ProvidersConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal provider config: %w", err)
	}
	return &config, nil
}

// BaseURL returns the base URL listed for name, if any.
func (p *ProvidersConfig) BaseURL(name string) string {
	if p == nil {
		return ""
	}
	return p.Providers[name].BaseURL
}

// Apply fills base URLs that neither config.yaml nor the environment set.
func (p *ProvidersConfig) Apply(cfg *Config) {
	fill := func(dst *string, name string) {
		if *dst == "" {
			*dst = p.BaseURL(name)
		}
	}
	fill(&cfg.Downstreams.BackendV2, TargetBackendV2)
	fill(&cfg.Maps.BaseURL, "maps")
	fill(&cfg.Weather.BaseURL, "weather")
	fill(&cfg.LLM.BaseURL, "llm")
}
