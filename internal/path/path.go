package path

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/probekit/probekit/internal/config"
)

const defaultUserDataSuffix = ".local/share/probekit"

// Paths holds the on-disk layout under the data directory.
type Paths struct {
	dataDir string
}

// Option is a functional option for configuring Paths.
type Option func(*Paths)

// WithDataDir sets a custom data directory.
func WithDataDir(dir string) Option {
	return func(p *Paths) {
		p.dataDir = dir
	}
}

// New creates a new Paths with optional custom configuration.
func New(opts ...Option) (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	p := &Paths{dataDir: filepath.Join(home, defaultUserDataSuffix)}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// NewFromConfig creates Paths from Config.
func NewFromConfig(cfg *config.Config) (*Paths, error) {
	dataDir, err := Expand(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	if dataDir == "" {
		return New()
	}
	return New(WithDataDir(dataDir))
}

// DataDir returns the data directory.
func (p *Paths) DataDir() string {
	return p.dataDir
}

// StoreDir returns the directory of the file-backed descriptor store.
// Returns <dataDir>/descriptors
func (p *Paths) StoreDir() string {
	return filepath.Join(p.dataDir, "descriptors")
}

// DatabaseFile returns the SQLite database path.
// Returns <dataDir>/probekit.db
func (p *Paths) DatabaseFile() string {
	return filepath.Join(p.dataDir, "probekit.db")
}

// LogsDir returns the directory of fetch failure logs.
// Returns <dataDir>/logs
func (p *Paths) LogsDir() string {
	return filepath.Join(p.dataDir, "logs")
}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// Expand expands ~ to the home directory.
func Expand(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}

	if path == "~" {
		return os.UserHomeDir()
	}

	return path, nil
}
