package config

import (
	"os"
	"strings"
)

// Environment variables overriding config.cue.
const (
	EnvDataDir    = "PROBEKIT_DATA_DIR"
	EnvBackend    = "PROBEKIT_BACKEND"
	EnvAPIBaseURL = "PROBEKIT_API_BASE_URL"
)

// applyEnv overrides cfg with non-empty environment values.
func applyEnv(cfg *Config, getenv func(string) string) *Config {
	if v := strings.TrimSpace(getenv(EnvDataDir)); v != "" {
		cfg.DataDir = v
	}
	if v := strings.TrimSpace(getenv(EnvBackend)); v != "" {
		cfg.Backend = Backend(v)
	}
	if v := strings.TrimSpace(getenv(EnvAPIBaseURL)); v != "" {
		cfg.APIBaseURL = v
	}
	return cfg
}

// Headless reports whether probekit runs without a person at the terminal:
// in CI, inside a container, or over a non-interactive SSH session. The
// interactive review is refused there.
func Headless() bool {
	return detectHeadless(os.Getenv, fileExists)
}

func detectHeadless(getenv func(string) string, exists func(string) bool) bool {
	if getenv("CI") != "" {
		return true
	}
	if exists("/.dockerenv") || getenv("container") != "" || getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true
	}
	if getenv("SSH_CLIENT") != "" && getenv("SSH_TTY") == "" {
		return true
	}
	return false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
