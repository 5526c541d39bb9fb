package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "READER_"

// LoadDotEnv loads .env files from the config directory and the working
// directory. Variables already set in the environment are kept.
func LoadDotEnv() error {
	for _, path := range []string{filepath.Join(ConfigDir(), ".env"), ".env"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

// applyEnv overrides config values from READER_* variables.
func (c *Config) applyEnv() error {
	str := map[string]*string{
		"JUDGE_BACKEND":   &c.Judge.Backend,
		"OLLAMA_URL":      &c.Judge.OllamaURL,
		"OLLAMA_MODEL":    &c.Judge.OllamaModel,
		"DATA_DIR":        &c.Output.DataDir,
		"LOG_LEVEL":       &c.Logging.Level,
		"LOG_FORMAT":      &c.Logging.Format,
		"REFINE_SCHEDULE": &c.Refinement.Schedule,
	}
	for key, dest := range str {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dest = v
		}
	}

	ints := map[string]*int{
		"SERVER_PORT":     &c.Server.Port,
		"JUDGE_TIMEOUT":   &c.Judge.TimeoutSeconds,
		"SCORING_WORKERS": &c.Scoring.Workers,
	}
	for key, dest := range ints {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dest = n
	}

	if v, ok := os.LookupEnv(EnvPrefix + "SCORING_DELAY_SECONDS"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sSCORING_DELAY_SECONDS: %w", EnvPrefix, err)
		}
		c.Judge.MinIntervalSeconds = f
	}
	return nil
}
