package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/normativ/internal/catalog"
)

// ValidationResult holds catalog validation results.
type ValidationResult struct {
	Valid  bool                      `json:"valid"`
	Errors []catalog.ValidationError `json:"errors,omitempty"`
}

// SeedResult reports what a seed resolved.
type SeedResult struct {
	Counts  map[string]int   `json:"counts"`
	Symbols *catalog.Symbols `json:"symbols"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <catalog-dir>",
		Short: "Validate a reference catalog without touching a database",
		Long: `Load the CUE reference catalog in a directory and check it.

Reports CUE load errors with positions, then cross-reference problems:
undeclared parameter types or values, duplicate values, duplicate
discipline codes, and empty names.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	c, err := loadCatalog(f, dir)
	if err != nil {
		return err
	}
	f.VerboseLog("Loaded %d sport(s), %d rank(s) from %s", len(c.Sports), len(c.Ranks), dir)

	if errs := catalog.Validate(c); len(errs) > 0 {
		return outputValidationErrors(f, errs)
	}
	return f.Success(ValidationResult{Valid: true}, "✓ Catalog valid\n")
}

// loadCatalog loads a catalog, reporting load errors as command errors.
func loadCatalog(f *OutputFormatter, dir string) (*catalog.Catalog, error) {
	c, err := catalog.Load(dir)
	if err == nil {
		return c, nil
	}
	var loadErr *catalog.LoadError
	if errors.As(err, &loadErr) {
		var details any
		if loadErr.Pos.IsValid() {
			details = map[string]any{"file": loadErr.Pos.Filename(), "line": loadErr.Pos.Line()}
		}
		return nil, f.Fail(ExitCommandError, loadErr.Code, loadErr.Message, details)
	}
	return nil, f.Fail(ExitCommandError, catalog.ErrCodeLoadFailed, err.Error(), nil)
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(f *OutputFormatter, errs []catalog.ValidationError) error {
	if f.Format == "json" {
		_ = f.Error(errs[0].Code, errs[0].Message, ValidationResult{Valid: false, Errors: errs})
	} else {
		fmt.Fprintln(f.Writer, "✗ Validation failed")
		fmt.Fprintln(f.Writer)
		for _, e := range errs {
			fmt.Fprintf(f.Writer, "  %s: %s: %s\n", e.Code, e.Field, e.Message)
		}
	}
	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <catalog-dir>",
		Short: "Write a reference catalog into the database",
		Long: `Validate the CUE reference catalog in a directory and write its sports,
disciplines, parameters, discipline parameter links, requirements and ranks
into the database in one transaction.

Seeding is idempotent: existing rows are reused and their ids reported.

Example:
  normativ seed --db ./normativ.db ./catalog`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, args[0], cmd)
		},
	}
}

func runSeed(opts *RootOptions, dir string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	c, err := loadCatalog(f, dir)
	if err != nil {
		return err
	}
	if errs := catalog.Validate(c); len(errs) > 0 {
		return outputValidationErrors(f, errs)
	}

	st, err := opts.openStore(cmd, f)
	if err != nil {
		return err
	}
	defer opts.closeStore(st)

	sym, err := catalog.Seed(cmd.Context(), st, c)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}

	counts := sym.Counts()
	opts.Logger.Info("catalog seeded", "dir", dir, "links", counts["links"])

	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	var b strings.Builder
	fmt.Fprintln(&b, "✓ Catalog seeded")
	for _, k := range kinds {
		fmt.Fprintf(&b, "  %-13s %d\n", k, counts[k])
	}
	return f.Success(SeedResult{Counts: counts, Symbols: sym}, b.String())
}
