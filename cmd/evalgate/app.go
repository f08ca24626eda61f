package main

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/spboyer/evalgate/internal/audit"
	"github.com/spboyer/evalgate/internal/auditlog"
	"github.com/spboyer/evalgate/internal/projectconfig"
	"github.com/spboyer/evalgate/internal/promotion"
	"github.com/spboyer/evalgate/internal/registry"
	"github.com/spboyer/evalgate/internal/regression"
	"github.com/spboyer/evalgate/internal/rundetail"
	"github.com/spboyer/evalgate/internal/runstore"
	"github.com/spboyer/evalgate/internal/trends"
	"github.com/spboyer/evalgate/internal/webapi"
)

// registryFileName is the alias file kept next to a snapshot directory.
const registryFileName = "registry.json"

// app is the engine wired for one command invocation.
type app struct {
	cfg      *projectconfig.ProjectConfig
	store    runstore.Client
	registry registry.Registry
	journal  *auditlog.Journal

	agg      *trends.Aggregator
	detector *regression.Detector
	gate     *promotion.Gate
	recon    *rundetail.Reconstructor
}

func (o *rootOptions) newApp() (*app, error) {
	cfg, err := projectconfig.Load(o.configDir)
	if err != nil {
		return nil, err
	}
	if o.trackingURI != "" {
		cfg.Tracking.URI = o.trackingURI
	}

	logger := slog.Default()
	store, reg, err := openBackends(cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, store: store, registry: reg}
	if cfg.Audit.Journal != "" {
		j, err := auditlog.Open(cfg.Audit.Journal)
		if err != nil {
			return nil, err
		}
		a.journal = j
	}

	var sink audit.Sink
	if a.journal != nil {
		sink = a.journal
	}
	a.agg = trends.NewAggregator(store, cfg, logger)
	a.detector = regression.NewDetector(a.agg, logger)
	a.gate = promotion.NewGate(a.agg, reg, audit.NewLogger(store, sink, logger), logger)
	a.recon = rundetail.NewReconstructor(store, cfg, logger)
	return a, nil
}

func (a *app) Close() error {
	if a.journal != nil {
		return a.journal.Close()
	}
	return nil
}

func (a *app) service() *webapi.Service {
	return &webapi.Service{
		Config:        a.cfg,
		Aggregator:    a.agg,
		Detector:      a.detector,
		Gate:          a.gate,
		Reconstructor: a.recon,
		Journal:       a.journal,
	}
}

// openBackends picks the MLflow REST client for http(s) URIs and the snapshot
// file store for file:// URIs and plain paths.
func openBackends(cfg *projectconfig.ProjectConfig, logger *slog.Logger) (runstore.Client, registry.Registry, error) {
	uri := cfg.Tracking.URI
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		client, err := runstore.NewMLflowClient(runstore.MLflowOptions{
			TrackingURI:       uri,
			RequestsPerSecond: cfg.Tracking.RequestsPerSecond,
			Timeout:           time.Duration(cfg.Tracking.TimeoutSeconds) * time.Second,
			Logger:            logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, registry.NewMLflowRegistry(client), nil
	}

	dir := uri
	if strings.HasPrefix(uri, "file://") {
		u, err := url.Parse(uri)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing tracking URI: %w", err)
		}
		dir = u.Path
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening snapshot %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("snapshot %q is not a directory", dir)
	}

	reg, err := registry.OpenFileRegistry(filepath.Join(dir, registryFileName))
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("using snapshot directory", "dir", dir)
	return runstore.NewFileStore(dir), reg, nil
}

// resolveEvalTypes combines --suite and --eval-type. Explicit eval types win.
func resolveEvalTypes(cfg *projectconfig.ProjectConfig, evalTypes []string, suite string) ([]string, error) {
	if len(evalTypes) > 0 {
		return evalTypes, nil
	}
	return cfg.SuiteEvalTypes(suite)
}

// resolveActor returns the flag value, then the configured actor, then the OS user.
func resolveActor(flag string, cfg *projectconfig.ProjectConfig) string {
	if flag != "" {
		return flag
	}
	if cfg.Audit.Actor != "" {
		return cfg.Audit.Actor
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}
