package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/almadar-io/orbital/internal/expr"
)

// TraceSnapshot renders a scenario run as canonical JSON for golden
// comparison. The trace carries only logical seq counters, so the same
// scenario always produces byte-identical output.
func TraceSnapshot(scenarioName string, result *Result) ([]byte, error) {
	return expr.MarshalCanonical(expr.Object{
		"scenario_name": expr.String(scenarioName),
		"trace":         result.Trace.Value(),
	})
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, baseDir string) error {
	t.Helper()

	result, err := Run(scenario, baseDir)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already-obtained result's trace against the
// golden file named after the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot, err := TraceSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, snapshot)
	return nil
}
