package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spboyer/evalgate/internal/runstore"
)

var t0 = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

// snapshot is an exported tracking snapshot written to a temp dir.
type snapshot struct {
	dir string
}

func newSnapshot(t *testing.T) *snapshot {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "runs"), 0o755))
	return &snapshot{dir: dir}
}

func (s *snapshot) writeJSON(t *testing.T, rel string, v any) {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.dir, rel), data, 0o644))
}

func (s *snapshot) experiments(t *testing.T, exps ...runstore.Experiment) {
	t.Helper()
	s.writeJSON(t, "experiments.json", exps)
}

func (s *snapshot) run(t *testing.T, run runstore.Run, traces ...runstore.Trace) {
	t.Helper()
	s.writeJSON(t, filepath.Join("runs", run.RunID+".json"), map[string]any{
		"run":    run,
		"traces": traces,
	})
}

func (s *snapshot) aliases(t *testing.T, aliases map[string]map[string]int) {
	t.Helper()
	s.writeJSON(t, registryFileName, map[string]any{"aliases": aliases})
}

func (s *snapshot) readAliases(t *testing.T) map[string]map[string]int {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(s.dir, registryFileName))
	require.NoError(t, err)
	var state struct {
		Aliases map[string]map[string]int `json:"aliases"`
	}
	require.NoError(t, json.Unmarshal(data, &state))
	return state.Aliases
}

func evalRun(id, exp string, hour int, metric string, rate float64, promptVersion string) runstore.Run {
	return runstore.Run{
		RunID:        id,
		ExperimentID: exp,
		StartTime:    t0.Add(time.Duration(hour) * time.Hour),
		Status:       runstore.RunStatusFinished,
		Metrics: map[string]float64{
			metric:          rate,
			"average_score": 4,
			"total_cases":   20,
			"error_cases":   0,
		},
		Params: map[string]string{"prompt.system": promptVersion},
		Tags:   map[string]string{},
	}
}

// seedQualitySecurity writes a quality series that improved and a security
// series whose latest run is at securityRate.
func seedQualitySecurity(t *testing.T, securityRate float64) *snapshot {
	t.Helper()
	s := newSnapshot(t)
	s.experiments(t,
		runstore.Experiment{ID: "1", Name: "assistant-evals"},
		runstore.Experiment{ID: "2", Name: "assistant-evals-jailbreak"},
	)
	s.run(t, evalRun("q1", "1", 1, "pass_rate", 0.85, "1"))
	s.run(t, evalRun("q2", "1", 2, "pass_rate", 0.90, "2"))
	s.run(t, evalRun("s1", "2", 1, "resistance_rate", 0.96, "1"))
	s.run(t, evalRun("s2", "2", 2, "resistance_rate", securityRate, "2"))
	s.aliases(t, map[string]map[string]int{
		"system": {"experiment": 2, "production": 1},
	})
	return s
}

// runCLI executes the root command against the snapshot with no config file.
func runCLI(t *testing.T, s *snapshot, args ...string) (string, error) {
	t.Helper()
	return runCLIWithConfig(t, t.TempDir(), s, args...)
}

func runCLIWithConfig(t *testing.T, configDir string, s *snapshot, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(bytes.NewReader(nil))
	cmd.SetArgs(append([]string{"--config-dir", configDir, "--tracking-uri", s.dir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func stubConfirm(t *testing.T, answer bool) *[]string {
	t.Helper()
	var asked []string
	orig := promptConfirm
	promptConfirm = func(_ io.Reader, _ io.Writer, question string) (bool, error) {
		asked = append(asked, question)
		return answer, nil
	}
	t.Cleanup(func() { promptConfirm = orig })
	return &asked
}
