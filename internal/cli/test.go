package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/normativ/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "match", "updated", "created"
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run compose scenarios against fresh in-memory databases",
		Long: `Run scenario files through the engine and compare their traces with
golden files kept in a golden/ directory next to each scenario.

Each scenario seeds its own catalog into a fresh in-memory database, so
scenarios never see each other's rows and the configured database is not
touched.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  normativ test ./scenarios
  normativ test ./scenarios --filter "merge_*"
  normativ test ./scenarios --update
  normativ test ./scenarios --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return f.Fail(ExitCommandError, ErrCodeInput, fmt.Sprintf("scenarios directory not found: %s", dir), nil)
	}

	files, err := harness.FindScenarios(dir, opts.Filter)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInput, err.Error(), nil)
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		sr := runScenario(cmd.Context(), opts, file)
		opts.Logger.Debug("scenario finished", "name", sr.Name, "pass", sr.Pass)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if err := f.Success(result, formatTestResult(result)); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d of %d scenario(s) failed", ErrCodeScenario, result.Failed, result.Total))
	}
	return nil
}

// runScenario executes one scenario file and checks its golden trace.
func runScenario(ctx context.Context, opts *TestOptions, file string) ScenarioResult {
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))

	scenario, result, err := harness.RunFile(ctx, file)
	if scenario != nil {
		name = scenario.Name
	}
	if err != nil {
		return ScenarioResult{Name: name, Errors: []string{err.Error()}}
	}

	sr := ScenarioResult{Name: name, Pass: result.Pass, Errors: result.Errors}

	data, err := harness.Snapshot(scenario.Name, result)
	if err != nil {
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("snapshot: %v", err))
		return sr
	}

	path := harness.GoldenPath(file)
	if opts.Update {
		_, found, _ := harness.CompareGolden(path, data)
		if err := harness.UpdateGolden(path, data); err != nil {
			sr.Pass = false
			sr.Errors = append(sr.Errors, err.Error())
			return sr
		}
		sr.Golden = "updated"
		if !found {
			sr.Golden = "created"
		}
		return sr
	}

	match, found, err := harness.CompareGolden(path, data)
	switch {
	case err != nil:
		sr.Pass = false
		sr.Errors = append(sr.Errors, err.Error())
	case !found:
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("golden file not found: %s (run with --update)", path))
	case !match:
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("trace differs from golden file %s", path))
	default:
		sr.Golden = "match"
	}
	return sr
}

func formatTestResult(r TestResult) string {
	if r.Total == 0 {
		return "No scenarios found.\n"
	}
	var b strings.Builder
	for _, s := range r.Scenarios {
		mark := "✓"
		if !s.Pass {
			mark = "✗"
		}
		fmt.Fprintf(&b, "%s %s", mark, s.Name)
		if s.Golden == "updated" || s.Golden == "created" {
			fmt.Fprintf(&b, " (golden %s)", s.Golden)
		}
		fmt.Fprintln(&b)
		for _, e := range s.Errors {
			fmt.Fprintf(&b, "  %s\n", e)
		}
	}
	fmt.Fprintf(&b, "\n%d passed, %d failed, %d total\n", r.Passed, r.Failed, r.Total)
	return b.String()
}
