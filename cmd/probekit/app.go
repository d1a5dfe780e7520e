package main

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/probekit/probekit/internal/config"
	pkerrors "github.com/probekit/probekit/internal/errors"
	"github.com/probekit/probekit/internal/fetcher"
	"github.com/probekit/probekit/internal/httpclient"
	pklog "github.com/probekit/probekit/internal/log"
	"github.com/probekit/probekit/internal/path"
	"github.com/probekit/probekit/internal/sqlstore"
	"github.com/probekit/probekit/internal/state"
	"github.com/probekit/probekit/internal/updates"
)

// app bundles what every store-backed command needs.
type app struct {
	cfg   *config.Config
	paths *path.Paths
	store updates.Store
	close func() error
}

// openApp loads config.cue and opens the configured descriptor store.
func openApp() (*app, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.SyncSchema(configDir); err != nil {
		slog.Warn("failed to update schema.cue", "error", err)
	}

	paths, err := path.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create paths: %w", err)
	}
	if err := path.EnsureDir(paths.DataDir()); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	a := &app{cfg: cfg, paths: paths, close: func() error { return nil }}
	switch cfg.Backend {
	case config.BackendFile, "":
		st, err := state.NewStore(paths.StoreDir())
		if err != nil {
			return nil, fmt.Errorf("failed to create descriptor store: %w", err)
		}
		a.store = st
	case config.BackendSQLite:
		db, err := sqlstore.Open(paths.DatabaseFile())
		if err != nil {
			return nil, fmt.Errorf("failed to open descriptor database: %w", err)
		}
		a.store = db
		a.close = db.Close
	default:
		return nil, pkerrors.NewValidationError("backend", fmt.Sprintf("unknown backend %q", cfg.Backend)).
			WithExpected(string(config.BackendFile)+" or "+string(config.BackendSQLite), string(cfg.Backend))
	}

	slog.Debug("opened descriptor store", "backend", cfg.Backend, "dataDir", paths.DataDir())
	return a, nil
}

// Close releases the store.
func (a *app) Close() error {
	return a.close()
}

// newResolver creates a resolver backed by the descriptor service. Fetch
// failures are written to the log directory.
func (a *app) newResolver() (*updates.Resolver, *pklog.Store, error) {
	userAgent := fmt.Sprintf("probekit/%s (%s/%s)", version, runtime.GOOS, runtime.GOARCH)
	client, err := httpclient.New(a.cfg.APIBaseURL, httpclient.TokenFromEnv(), userAgent)
	if err != nil {
		return nil, nil, err
	}
	f, err := fetcher.New(a.cfg.APIBaseURL, fetcher.WithHTTPClient(client))
	if err != nil {
		return nil, nil, err
	}

	logs := pklog.NewStore(a.paths.LogsDir())
	r := updates.NewResolver(a.store, f, updates.NewState())
	r.SetParallelism(a.cfg.Parallelism)
	r.SetFailureRecorder(logs)
	return r, logs, nil
}
