package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/format"

	"github.com/probekit/probekit/internal/config/schema"
	pkerrors "github.com/probekit/probekit/internal/errors"
)

// Default values. They must agree with the defaults in schema.cue.
const (
	DefaultConfigDir     = "~/.config/probekit"
	DefaultDataDir       = "~/.local/share/probekit"
	DefaultAPIBaseURL    = "https://api.ooni.io"
	DefaultParallelism   = 5
	DefaultCheckInterval = "6h"

	ConfigFileName = "config.cue"
	SchemaFileName = "schema.cue"
)

// Backend selects the descriptor store implementation.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
)

// Config represents probekit configuration.
type Config struct {
	DataDir       string  `json:"dataDir"`
	Backend       Backend `json:"backend"`
	APIBaseURL    string  `json:"apiBaseURL"`
	Parallelism   int     `json:"parallelism"`
	CheckInterval string  `json:"checkInterval"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir:       DefaultDataDir,
		Backend:       BackendFile,
		APIBaseURL:    DefaultAPIBaseURL,
		Parallelism:   DefaultParallelism,
		CheckInterval: DefaultCheckInterval,
	}
}

// Interval returns CheckInterval as a duration.
func (c *Config) Interval() (time.Duration, error) {
	d, err := time.ParseDuration(c.CheckInterval)
	if err != nil {
		return 0, pkerrors.NewValidationError("checkInterval", err.Error()).WithExpected("a duration such as 6h", c.CheckInterval)
	}
	return d, nil
}

// LoadConfig loads configuration from the config directory.
// Returns default config if config.cue doesn't exist or has no config block.
func LoadConfig(configDir string) (*Config, error) {
	dir, err := expandHome(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to expand config directory: %w", err)
	}
	configPath := filepath.Join(dir, ConfigFileName)

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		slog.Debug("no config file, using defaults", "path", configPath)
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, pkerrors.NewConfigError("failed to read config", err).WithFile(configPath)
	}

	cfg, err := NewLoader().Parse(data, configPath)
	if err != nil {
		return nil, err
	}
	return applyEnv(cfg, os.Getenv), nil
}

// ToCue generates CUE content from Config.
func (c *Config) ToCue() ([]byte, error) {
	ctx := cuecontext.New()
	v := ctx.Encode(map[string]any{
		"config": c,
	})
	if v.Err() != nil {
		return nil, fmt.Errorf("failed to encode config: %w", v.Err())
	}

	b, err := format.Node(v.Syntax())
	if err != nil {
		return nil, fmt.Errorf("failed to format config: %w", err)
	}

	return append([]byte("package probekit\n\n"), b...), nil
}

// WriteFiles writes config.cue and schema.cue into configDir. An existing
// config.cue is left alone unless force is set.
func WriteFiles(c *Config, configDir string, force bool) (string, error) {
	dir, err := expandHome(configDir)
	if err != nil {
		return "", fmt.Errorf("failed to expand config directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return "", pkerrors.NewConfigError("config already exists", os.ErrExist).WithFile(configPath)
	}

	content, err := c.ToCue()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", configPath, err)
	}
	if err := os.WriteFile(filepath.Join(dir, SchemaFileName), []byte(schema.SchemaCUE), 0644); err != nil {
		return "", fmt.Errorf("failed to write schema: %w", err)
	}
	return configPath, nil
}

// SyncSchema rewrites schema.cue in configDir when it differs from the
// embedded schema. A missing file is left missing (init places it).
func SyncSchema(configDir string) error {
	dir, err := expandHome(configDir)
	if err != nil {
		return fmt.Errorf("failed to expand config directory: %w", err)
	}

	schemaFile := filepath.Join(dir, SchemaFileName)
	existing, err := os.ReadFile(schemaFile)
	if err != nil {
		return nil
	}
	if string(existing) == schema.SchemaCUE {
		return nil
	}

	if err := os.WriteFile(schemaFile, []byte(schema.SchemaCUE), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", schemaFile, err)
	}
	slog.Info("schema.cue updated", "path", schemaFile)
	return nil
}

// expandHome expands ~ to the user's home directory.
// This is a local copy to avoid circular imports with internal/path.
func expandHome(p string) (string, error) {
	if len(p) >= 2 && p[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, p[2:]), nil
	}
	if p == "~" {
		return os.UserHomeDir()
	}
	return p, nil
}
