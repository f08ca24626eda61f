// Package projectconfig provides the ProjectConfig struct and loader for
// .evalgate.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the file Load searches for.
const ConfigFileName = ".evalgate.yaml"

// Default values for project configuration. These are the single source of
// truth; New() references them.
const (
	DefaultTrackingURI       = "http://localhost:5000"
	DefaultRequestsPerSecond = 10
	DefaultTimeoutSeconds    = 30

	DefaultExperimentBase = "assistant-evals"
	DefaultBaseEvalType   = "quality"

	DefaultThreshold         = 0.80
	DefaultTrendLimit        = 20
	DefaultRollbackScanLimit = 50

	DefaultServerPort = 3000
)

// TrackingEnvVar overrides Tracking.URI when set.
const TrackingEnvVar = "MLFLOW_TRACKING_URI"

// TrackingConfig holds run-tracking server settings.
type TrackingConfig struct {
	URI               string  `yaml:"uri,omitempty"`
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
	TimeoutSeconds    int     `yaml:"timeout_seconds,omitempty"`
}

// EvalTypeConfig overrides the built-in settings of one eval type. Unset fields
// keep the built-in (or default) value.
type EvalTypeConfig struct {
	Threshold         *float64 `yaml:"threshold,omitempty"`
	PassRateMetric    string   `yaml:"pass_rate_metric,omitempty"`
	ScoreMetric       string   `yaml:"score_metric,omitempty"`
	TotalMetric       string   `yaml:"total_metric,omitempty"`
	ErrorMetric       string   `yaml:"error_metric,omitempty"`
	PrimaryAssessment string   `yaml:"primary_assessment,omitempty"`
	SessionGrouped    *bool    `yaml:"session_grouped,omitempty"`
}

// SuitesConfig lists the eval types in each named suite, in run order.
type SuitesConfig struct {
	Core []string `yaml:"core,omitempty"`
	Full []string `yaml:"full,omitempty"`
}

// AuditConfig holds audit settings.
type AuditConfig struct {
	// Journal is the path of the local SQLite audit journal. Empty disables it.
	Journal string `yaml:"journal,omitempty"`
	// Actor is recorded on audit records when --actor is not given.
	Actor string `yaml:"actor,omitempty"`
}

// ServerConfig holds dashboard API server settings.
type ServerConfig struct {
	Port int `yaml:"port,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .evalgate.yaml.
type ProjectConfig struct {
	Tracking          TrackingConfig            `yaml:"tracking,omitempty"`
	ExperimentBase    string                    `yaml:"experiment_base,omitempty"`
	BaseEvalType      string                    `yaml:"base_eval_type,omitempty"`
	Suffixes          map[string]string         `yaml:"suffixes,omitempty"`
	DefaultThreshold  float64                   `yaml:"default_threshold,omitempty"`
	TrendLimit        int                       `yaml:"trend_limit,omitempty"`
	RollbackScanLimit int                       `yaml:"rollback_scan_limit,omitempty"`
	EvalTypes         map[string]EvalTypeConfig `yaml:"eval_types,omitempty"`
	Suites            SuitesConfig              `yaml:"suites,omitempty"`
	Audit             AuditConfig               `yaml:"audit,omitempty"`
	Server            ServerConfig              `yaml:"server,omitempty"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Tracking: TrackingConfig{
			URI:               DefaultTrackingURI,
			RequestsPerSecond: DefaultRequestsPerSecond,
			TimeoutSeconds:    DefaultTimeoutSeconds,
		},
		ExperimentBase:    DefaultExperimentBase,
		BaseEvalType:      DefaultBaseEvalType,
		Suffixes:          maps.Clone(builtinSuffixes),
		DefaultThreshold:  DefaultThreshold,
		TrendLimit:        DefaultTrendLimit,
		RollbackScanLimit: DefaultRollbackScanLimit,
		EvalTypes:         map[string]EvalTypeConfig{},
		Suites: SuitesConfig{
			Core: slices.Clone(builtinCoreSuite),
			Full: slices.Clone(builtinFullSuite),
		},
		Server: ServerConfig{
			Port: DefaultServerPort,
		},
	}
}

// Load finds .evalgate.yaml by walking up from startDir (max 10 levels),
// validates and unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// The MLFLOW_TRACKING_URI environment variable overrides tracking.uri.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	data, err := findConfigFile(startDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		applyEnv(cfg)
		return cfg, nil
	case err != nil:
		return nil, fmt.Errorf("loading %s: %w", ConfigFileName, err)
	}

	fileCfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	mergeConfig(cfg, fileCfg)
	applyEnv(cfg)
	return cfg, nil
}

// Parse validates raw YAML against the config schema and unmarshals it without
// applying defaults.
func Parse(data []byte) (*ProjectConfig, error) {
	if errs := ValidateBytes(data); len(errs) > 0 {
		return nil, fmt.Errorf("invalid %s: %s", ConfigFileName, strings.Join(errs, "; "))
	}
	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigFileName, err)
	}
	return &fileCfg, nil
}

// findConfigFile walks up from dir looking for .evalgate.yaml (max 10 levels).
// Returns os.ErrNotExist if no config file is found. Propagates real I/O
// errors (e.g. permission denied) instead of silently swallowing them.
func findConfigFile(dir string) ([]byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, ConfigFileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

func applyEnv(cfg *ProjectConfig) {
	if uri := os.Getenv(TrackingEnvVar); uri != "" {
		cfg.Tracking.URI = uri
	}
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	// Tracking
	if src.Tracking.URI != "" {
		dst.Tracking.URI = src.Tracking.URI
	}
	if src.Tracking.RequestsPerSecond != 0 {
		dst.Tracking.RequestsPerSecond = src.Tracking.RequestsPerSecond
	}
	if src.Tracking.TimeoutSeconds != 0 {
		dst.Tracking.TimeoutSeconds = src.Tracking.TimeoutSeconds
	}

	// Discovery
	if src.ExperimentBase != "" {
		dst.ExperimentBase = src.ExperimentBase
	}
	if src.BaseEvalType != "" {
		dst.BaseEvalType = src.BaseEvalType
	}
	for suffix, evalType := range src.Suffixes {
		dst.Suffixes[suffix] = evalType
	}

	// Thresholds and limits
	if src.DefaultThreshold != 0 {
		dst.DefaultThreshold = src.DefaultThreshold
	}
	if src.TrendLimit != 0 {
		dst.TrendLimit = src.TrendLimit
	}
	if src.RollbackScanLimit != 0 {
		dst.RollbackScanLimit = src.RollbackScanLimit
	}
	for name, et := range src.EvalTypes {
		dst.EvalTypes[name] = et
	}

	// Suites
	if len(src.Suites.Core) > 0 {
		dst.Suites.Core = src.Suites.Core
	}
	if len(src.Suites.Full) > 0 {
		dst.Suites.Full = src.Suites.Full
	}

	// Audit
	if src.Audit.Journal != "" {
		dst.Audit.Journal = src.Audit.Journal
	}
	if src.Audit.Actor != "" {
		dst.Audit.Actor = src.Audit.Actor
	}

	// Server
	if src.Server.Port != 0 {
		dst.Server.Port = src.Server.Port
	}
}
