package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
	APIKey   string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Model    string `yaml:"model" mapstructure:"model"`
	BaseURL  string `yaml:"base_url,omitempty" mapstructure:"base_url"`

	// Locale is the BCP 47 tag answers are requested in, e.g. "en-GB".
	Locale       string `yaml:"locale" mapstructure:"locale"`
	SystemPrompt bool   `yaml:"system_prompt" mapstructure:"system_prompt"`

	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	HandoffWindow time.Duration `yaml:"handoff_window" mapstructure:"handoff_window"`
	MaxChainDepth int           `yaml:"max_chain_depth" mapstructure:"max_chain_depth"`

	StoragePath string `yaml:"storage_path,omitempty" mapstructure:"storage_path"`
	LogLevel    string `yaml:"log_level" mapstructure:"log_level"`
}

func DefaultConfig() *Config {
	return &Config{
		Provider:      "openai",
		Model:         "gpt-5-mini",
		Locale:        "en-GB",
		SystemPrompt:  true,
		Timeout:       30 * time.Second,
		HandoffWindow: 200 * time.Millisecond,
		MaxChainDepth: 10,
		LogLevel:      "info",
	}
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "promptit"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func Exists() bool {
	path, err := ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Load reads the config file at path (the default location when empty) with
// PROMPTIT_* environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault("provider", defaults.Provider)
	v.SetDefault("api_key", defaults.APIKey)
	v.SetDefault("model", defaults.Model)
	v.SetDefault("base_url", defaults.BaseURL)
	v.SetDefault("locale", defaults.Locale)
	v.SetDefault("system_prompt", defaults.SystemPrompt)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("handoff_window", defaults.HandoffWindow)
	v.SetDefault("max_chain_depth", defaults.MaxChainDepth)
	v.SetDefault("storage_path", defaults.StoragePath)
	v.SetDefault("log_level", defaults.LogLevel)

	v.SetEnvPrefix("PROMPTIT")
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.APIKey = ResolveEnvVars(cfg.APIKey)

	if cfg.StoragePath == "" {
		dir := filepath.Dir(path)
		cfg.StoragePath = filepath.Join(dir, "promptit.db")
	}
	return &cfg, nil
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envRef.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// Save writes the config to path, or to the default location when empty.
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
