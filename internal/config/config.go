package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Sources    Sources    `yaml:"sources"`
	Judge      Judge      `yaml:"judge"`
	Scoring    Scoring    `yaml:"scoring"`
	Refinement Refinement `yaml:"refinement"`
	Output     Output     `yaml:"output"`
	Server     Server     `yaml:"server"`
	Logging    Logging    `yaml:"logging"`
}

type Sources struct {
	Feeds []Feed `yaml:"feeds"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

// Judge selects and configures the model that compares articles and
// rewrites the scoring criteria.
type Judge struct {
	Backend            string  `yaml:"backend"`
	OllamaURL          string  `yaml:"ollama_url"`
	OllamaModel        string  `yaml:"ollama_model"`
	AnthropicModel     string  `yaml:"anthropic_model"`
	AnthropicKeyEnv    string  `yaml:"anthropic_api_key_env"`
	OpenAIModel        string  `yaml:"openai_model"`
	OpenAIKeyEnv       string  `yaml:"openai_api_key_env"`
	GeminiModel        string  `yaml:"gemini_model"`
	GeminiKeyEnv       string  `yaml:"gemini_api_key_env"`
	TimeoutSeconds     int     `yaml:"timeout_seconds"`
	MinIntervalSeconds float64 `yaml:"min_interval_seconds"`
}

type Scoring struct {
	KFactor      float64 `yaml:"k_factor"`
	Opponents    int     `yaml:"opponents"`
	PreviewChars int     `yaml:"preview_chars"`
	Workers      int     `yaml:"workers"`
}

type Refinement struct {
	Schedule    string `yaml:"schedule"`
	WindowHours int    `yaml:"window_hours"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Timeout returns the per-call judge timeout.
func (j Judge) Timeout() time.Duration {
	return time.Duration(j.TimeoutSeconds) * time.Second
}

// MinInterval returns the minimum spacing between judge calls.
func (j Judge) MinInterval() time.Duration {
	return time.Duration(j.MinIntervalSeconds * float64(time.Second))
}

// Window returns how far back refinement looks for feedback.
func (r Refinement) Window() time.Duration {
	return time.Duration(r.WindowHours) * time.Hour
}

// ConfigDir returns the XDG config directory for reader.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "reader")
}

// DataDir returns the XDG data directory for reader.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "reader")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/reader/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'reader init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file, then applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Judge: Judge{
			Backend:         "ollama",
			OllamaURL:       "http://localhost:11434",
			OllamaModel:     "llama3.2",
			AnthropicModel:  "claude-sonnet-4-20250514",
			AnthropicKeyEnv: "ANTHROPIC_API_KEY",
			OpenAIModel:     "gpt-4o-mini",
			OpenAIKeyEnv:    "OPENAI_API_KEY",
			GeminiModel:     "gemini-2.5-flash",
			GeminiKeyEnv:    "GEMINI_API_KEY",
			TimeoutSeconds:  120,
		},
		Scoring: Scoring{
			KFactor:      32,
			Opponents:    7,
			PreviewChars: 500,
			Workers:      1,
		},
		Refinement: Refinement{
			Schedule:    "0 0 * * *",
			WindowHours: 24,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "info", Format: "console"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Validate rejects settings the scoring engine cannot run with.
func (c *Config) Validate() error {
	switch c.Judge.Backend {
	case "ollama", "anthropic", "openai", "gemini":
	default:
		return fmt.Errorf("unknown judge backend %q", c.Judge.Backend)
	}
	if c.Scoring.KFactor <= 0 {
		return fmt.Errorf("scoring.k_factor must be positive, got %v", c.Scoring.KFactor)
	}
	if c.Scoring.Opponents < 1 {
		return fmt.Errorf("scoring.opponents must be at least 1, got %d", c.Scoring.Opponents)
	}
	if c.Scoring.Workers < 1 {
		return fmt.Errorf("scoring.workers must be at least 1, got %d", c.Scoring.Workers)
	}
	if c.Judge.TimeoutSeconds <= 0 {
		return fmt.Errorf("judge.timeout_seconds must be positive, got %d", c.Judge.TimeoutSeconds)
	}
	if c.Refinement.WindowHours <= 0 {
		return fmt.Errorf("refinement.window_hours must be positive, got %d", c.Refinement.WindowHours)
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
