package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/normativ/internal/model"
)

const goldenDir = "testdata/scenarios/golden"

// toCanonicalMap converts a trace to a map[string]any for canonical JSON
// serialization, which only handles primitives, slices and maps.
func toCanonicalMap(name string, trace []TraceEvent) map[string]any {
	steps := make([]any, len(trace))
	for i, ev := range trace {
		m := map[string]any{
			"step":       ev.Step,
			"op":         ev.Op,
			"request_id": ev.RequestID,
			"result":     ev.Result,
		}
		if ev.Field != "" {
			m["field"] = ev.Field
		}
		if ev.ParameterSet != nil {
			m["parameter_set"] = ev.ParameterSet
		}
		if ev.Outcomes != nil {
			outcomes := make([]any, len(ev.Outcomes))
			for j, o := range ev.Outcomes {
				om := map[string]any{
					"entry": o.Entry,
					"kind":  o.Kind,
				}
				if o.Rank != "" {
					om["rank"] = o.Rank
				}
				if o.RankID != 0 {
					om["rank_id"] = o.RankID
				}
				if o.NormativeID != 0 {
					om["normative_id"] = o.NormativeID
				}
				if o.Value != "" {
					om["value"] = o.Value
				}
				if o.Reason != "" {
					om["reason"] = o.Reason
				}
				outcomes[j] = om
			}
			m["outcomes"] = outcomes
		}
		if ev.Op == "delete" {
			m["normative_id"] = ev.NormativeID
		}
		if ev.Deleted != nil {
			m["deleted"] = map[string]any{
				"additional_requirements": ev.Deleted.AdditionalRequirements,
				"conditions":              ev.Deleted.Conditions,
				"groups":                  ev.Deleted.Groups,
				"normatives":              ev.Deleted.Normatives,
			}
		}
		steps[i] = m
	}
	return map[string]any{
		"scenario": name,
		"steps":    steps,
	}
}

// Snapshot renders a scenario trace as canonical JSON.
func Snapshot(name string, result *Result) ([]byte, error) {
	return model.MarshalCanonical(toCanonicalMap(name, result.Trace))
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/scenarios/golden/{scenario.Name}.golden,
// the same place GoldenPath uses for files under testdata/scenarios.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), scenario)
	if err != nil {
		return nil, err
	}

	data, err := Snapshot(scenario.Name, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(goldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return result, nil
}

// GoldenPath returns the golden file next to a scenario file:
// <dir>/golden/<name>.golden.
func GoldenPath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

// UpdateGolden writes data as the golden file, creating its directory.
func UpdateGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether data matches the golden file. A missing
// golden file reports found=false.
func CompareGolden(path string, data []byte) (match, found bool, err error) {
	golden, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to read golden file: %w", err)
	}
	return bytes.Equal(golden, data), true, nil
}

// RunFile loads and runs one scenario file.
func RunFile(ctx context.Context, path string) (*Scenario, *Result, error) {
	scenario, err := LoadScenario(path)
	if err != nil {
		return nil, nil, err
	}
	result, err := Run(ctx, scenario)
	if err != nil {
		return scenario, nil, err
	}
	return scenario, result, nil
}
