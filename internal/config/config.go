package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	DefaultModel   = "gpt-4o"
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultMaxPromptTokens is the prompt size above which a warning is shown.
	DefaultMaxPromptTokens = 100_000
)

var (
	ErrMissingAPIKey = errors.New("no API key configured (set api_key, ASK_API_KEY or OPENAI_API_KEY)")
	ErrInvalid       = errors.New("invalid configuration")
)

// apiKeyEnvVars are consulted in order when no key is configured.
var apiKeyEnvVars = []string{"ASK_API_KEY", "OPENAI_API_KEY"}

// Config holds settings read from a configuration file.
type Config struct {
	Model           string        `yaml:"model" toml:"model"`
	BaseURL         string        `yaml:"base_url" toml:"base_url"`
	APIKey          string        `yaml:"api_key" toml:"api_key"`
	Timeout         time.Duration `yaml:"timeout" toml:"timeout"`
	Temperature     *float64      `yaml:"temperature" toml:"temperature"`
	MaxPromptTokens int           `yaml:"max_prompt_tokens" toml:"max_prompt_tokens"`
	SystemPrompt    string        `yaml:"system_prompt" toml:"system_prompt"`
	NvimAddress     string        `yaml:"nvim_address" toml:"nvim_address"`

	// Path is the file the configuration was read from, if any.
	Path string `yaml:"-" toml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Model:           DefaultModel,
		BaseURL:         DefaultBaseURL,
		MaxPromptTokens: DefaultMaxPromptTokens,
	}
}

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

func expandEnv(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(m)[1])
	})
}

// Load reads the file at path over the defaults. The format is chosen by
// extension: .toml is TOML, anything else is YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
		}
	}
	cfg.Path = path

	cfg.APIKey = expandEnv(cfg.APIKey)
	cfg.BaseURL = expandEnv(cfg.BaseURL)
	cfg.NvimAddress = expandEnv(cfg.NvimAddress)

	logger.Debugf("loaded config from %s", path)
	return cfg, nil
}

// candidates lists the config files searched, in order.
func candidates() []string {
	paths := []string{".ask.yaml", ".ask.yml", ".ask.toml"}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configHome = filepath.Join(home, ".config")
		}
	}
	if configHome != "" {
		for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
			paths = append(paths, filepath.Join(configHome, "ask", name))
		}
	}
	return paths
}

// FindConfigFile returns the first existing file from the standard
// locations, or "" when there is none.
func FindConfigFile() string {
	for _, p := range candidates() {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// Resolve loads path, or the first standard config file when path is empty.
// No file at all yields the defaults.
func Resolve(path string) (*Config, error) {
	if path == "" {
		path = FindConfigFile()
	}
	var cfg *Config
	if path == "" {
		logger.Debug("no config file found, using defaults")
		cfg = Default()
	} else {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	if c.APIKey != "" {
		return
	}
	for _, name := range apiKeyEnvVars {
		if v := os.Getenv(name); v != "" {
			c.APIKey = v
			return
		}
	}
}

// Validate checks the configuration for values no request could succeed with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: model must not be empty", ErrInvalid)
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("%w: base_url must not be empty", ErrInvalid)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalid)
	}
	if c.MaxPromptTokens < 0 {
		return fmt.Errorf("%w: max_prompt_tokens must not be negative", ErrInvalid)
	}
	return nil
}

// RequireAPIKey reports ErrMissingAPIKey when no key is set.
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}
