package runstore

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// runFile is the on-disk layout of one run inside a snapshot directory.
type runFile struct {
	Run    Run     `json:"run"`
	Traces []Trace `json:"traces,omitempty"`

	// path is the file the run was loaded from, empty for runs added in memory.
	path string
}

// FileStore serves run data from a snapshot directory exported from the tracking
// service: an experiments.json file plus one <run_id>.json file per run under runs/.
// A FileStore with an empty directory is purely in-memory.
type FileStore struct {
	dir string

	mu          sync.RWMutex
	experiments []Experiment
	runs        map[string]*runFile
	loaded      bool
	loadErr     error
}

// NewFileStore creates a FileStore that reads a snapshot from dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir:  dir,
		runs: make(map[string]*runFile),
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *FileStore {
	fs := NewFileStore("")
	fs.loaded = true
	return fs
}

func (fs *FileStore) load() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.runs = make(map[string]*runFile)
	fs.experiments = nil

	if fs.dir == "" {
		fs.loaded = true
		return nil
	}

	data, err := os.ReadFile(filepath.Join(fs.dir, "experiments.json"))
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &fs.experiments); err != nil {
			fs.loadErr = fmt.Errorf("parsing experiments.json: %w", err)
			return fs.loadErr
		}
	case os.IsNotExist(err):
	default:
		fs.loadErr = err
		return err
	}

	runsDir := filepath.Join(fs.dir, "runs")
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if os.IsNotExist(err) {
			fs.loaded = true
			return nil
		}
		fs.loadErr = err
		return err
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(runsDir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var rf runFile
		if err := json.Unmarshal(data, &rf); err != nil {
			continue
		}
		rf.path = path
		if rf.Run.RunID == "" {
			rf.Run.RunID = strings.TrimSuffix(e.Name(), ".json")
		}
		fs.runs[rf.Run.RunID] = &rf
	}

	fs.loaded = true
	fs.loadErr = nil
	return nil
}

func (fs *FileStore) ensureLoaded() error {
	fs.mu.RLock()
	if fs.loaded {
		fs.mu.RUnlock()
		return nil
	}
	fs.mu.RUnlock()
	return fs.load()
}

// Reload forces a fresh read of the snapshot directory.
func (fs *FileStore) Reload() error {
	return fs.load()
}

// AddExperiment registers an experiment in memory.
func (fs *FileStore) AddExperiment(id, name string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.experiments = append(fs.experiments, Experiment{ID: id, Name: name})
}

// AddRun registers a run, and optionally its traces, in memory.
func (fs *FileStore) AddRun(run Run, traces ...Trace) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if run.Tags == nil {
		run.Tags = map[string]string{}
	}
	fs.runs[run.RunID] = &runFile{Run: run, Traces: traces}
}

// SearchExperiments returns every experiment in the snapshot.
func (fs *FileStore) SearchExperiments(_ context.Context) ([]Experiment, error) {
	if err := fs.ensureLoaded(); err != nil {
		return nil, err
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	out := make([]Experiment, len(fs.experiments))
	copy(out, fs.experiments)
	return out, nil
}

// SearchRuns filters, orders and limits the snapshot's runs.
func (fs *FileStore) SearchRuns(_ context.Context, q RunQuery) ([]Run, error) {
	if err := fs.ensureLoaded(); err != nil {
		return nil, err
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	runs := make([]Run, 0)
	for _, rf := range fs.runs {
		if q.ExperimentID != "" && rf.Run.ExperimentID != q.ExperimentID {
			continue
		}
		if !statusAllowed(rf.Run.Status, q.Statuses) {
			continue
		}
		runs = append(runs, cloneRun(rf.Run))
	}

	sort.Slice(runs, func(i, j int) bool {
		if q.NewestFirst {
			return runs[i].StartTime.After(runs[j].StartTime)
		}
		return runs[i].StartTime.Before(runs[j].StartTime)
	})

	if q.Limit > 0 && len(runs) > q.Limit {
		runs = runs[:q.Limit]
	}
	return runs, nil
}

// GetRun returns a single run.
func (fs *FileStore) GetRun(_ context.Context, runID string) (*Run, error) {
	if err := fs.ensureLoaded(); err != nil {
		return nil, err
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	rf, ok := fs.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	run := cloneRun(rf.Run)
	return &run, nil
}

// SetTag writes a tag onto a run and, for directory-backed stores, persists the run file.
func (fs *FileStore) SetTag(_ context.Context, runID, key, value string) error {
	if err := fs.ensureLoaded(); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	rf, ok := fs.runs[runID]
	if !ok {
		return ErrRunNotFound
	}
	if rf.Run.Tags == nil {
		rf.Run.Tags = map[string]string{}
	}
	rf.Run.Tags[key] = value

	if fs.dir == "" {
		return nil
	}
	path := rf.path
	if path == "" {
		if strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
			return fmt.Errorf("run id %q cannot be used as a file name", runID)
		}
		path = filepath.Join(fs.dir, "runs", runID+".json")
	}
	data, err := json.MarshalIndent(rf, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	rf.path = path
	return nil
}

// FetchTraces returns the traces stored alongside a run.
func (fs *FileStore) FetchTraces(_ context.Context, runID string) ([]Trace, error) {
	if err := fs.ensureLoaded(); err != nil {
		return nil, err
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	rf, ok := fs.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	out := make([]Trace, len(rf.Traces))
	copy(out, rf.Traces)
	return out, nil
}

func cloneRun(r Run) Run {
	r.Metrics = maps.Clone(r.Metrics)
	r.Params = maps.Clone(r.Params)
	r.Tags = maps.Clone(r.Tags)
	return r
}

// Ensure FileStore satisfies Client.
var _ Client = (*FileStore)(nil)
