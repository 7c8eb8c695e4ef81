package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from path (or the default location when empty)
// and then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = getConfigPath()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			// The default config file is optional; an explicit one is not.
			if explicit || !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	loadFromEnv(cfg)

	return cfg, nil
}

// getConfigPath returns the path to the config file.
func getConfigPath() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dsbench", "config.yaml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "dsbench", "config.yaml")
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables.
// Priority for the Gemini key: GEMINI_API_KEY > GOOGLE_API_KEY.
func loadFromEnv(cfg *Config) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.API.GeminiKey = key
	} else if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		cfg.API.GeminiKey = key
	}

	if model := os.Getenv("DSBENCH_MODEL"); model != "" {
		cfg.Model.Name = model
		cfg.Model.FastName = model
	}

	if provider := os.Getenv("DSBENCH_PROVIDER"); provider != "" {
		cfg.Model.Provider = provider
	}

	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		cfg.API.OllamaBaseURL = host
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case ProviderGemini:
		if c.API.GeminiKey == "" {
			return ErrMissingAuth
		}
	case ProviderOllama:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Model.Provider)
	}

	if c.Workspace.Root == "" {
		return ErrMissingWorkspace
	}
	if c.Loop.MaxIterations <= 0 || c.Loop.MaxGenerationAttempts <= 0 {
		return fmt.Errorf("loop bounds must be positive (max_iterations=%d, max_generation_attempts=%d)",
			c.Loop.MaxIterations, c.Loop.MaxGenerationAttempts)
	}
	return nil
}

// ConfigError is a configuration validation error.
type ConfigError string

func (e ConfigError) Error() string {
	return string(e)
}

const (
	ErrMissingAuth      ConfigError = "missing authentication: set GEMINI_API_KEY (or GOOGLE_API_KEY), or use provider ollama"
	ErrUnknownProvider  ConfigError = "unknown model provider"
	ErrMissingWorkspace ConfigError = "workspace.root must be set"
)

// GetConfigPath returns the default config file path.
func GetConfigPath() string {
	return getConfigPath()
}
