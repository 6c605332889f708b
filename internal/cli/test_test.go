package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommandRunsScenarios(t *testing.T) {
	out, _, err := execute(t, "test", "testdata/scenarios")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ counter-basic")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommandJSONOutput(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "test", "testdata/scenarios")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Passed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "counter-basic", resp.Data.Scenarios[0].Name)
	assert.True(t, resp.Data.Scenarios[0].Pass)
}

func TestTestCommandNoScenarios(t *testing.T) {
	out, _, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandMissingDirectory(t *testing.T) {
	_, _, err := execute(t, "test", "/no/such/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandFilter(t *testing.T) {
	out, _, err := execute(t, "test", "testdata/scenarios", "--filter", "nomatch-*")
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandUpdateWritesGolden(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"counter.json", "counter.yaml"} {
		data, err := os.ReadFile(filepath.Join("testdata/scenarios", name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}

	out, _, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "golden updated")

	written, err := os.ReadFile(filepath.Join(dir, "golden", "counter.golden"))
	require.NoError(t, err)
	expected, err := os.ReadFile("testdata/scenarios/golden/counter.golden")
	require.NoError(t, err)
	assert.Equal(t, string(expected), string(written))

	// A second run compares against the fresh golden and passes.
	out, _, err = execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed")
}

func TestTestCommandDetectsGoldenDrift(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"counter.json", "counter.yaml"} {
		data, err := os.ReadFile(filepath.Join("testdata/scenarios", name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "counter.golden"),
		[]byte(`{"scenario_name":"counter-basic","trace":[]}`), 0o644))

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "does not match golden file")
}
