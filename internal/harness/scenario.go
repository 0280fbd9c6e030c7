package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/normativ/internal/engine"
)

// Scenario defines a conformance test scenario.
// A scenario seeds a reference catalog, runs compose and delete steps
// through the engine, checks each step's expected outcome, and finally
// asserts on the stored state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is the directory holding the CUE reference catalog.
	// Relative paths are resolved against the scenario file's directory.
	Catalog string `yaml:"catalog"`

	// Policy is the engine's default conflict policy. Empty means reject.
	Policy engine.ConflictPolicy `yaml:"policy,omitempty"`

	// Steps run in order against one store.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	// Supported types: row_count, normative
	Assertions []Assertion `yaml:"assertions"`
}

// Step is either a compose or a delete, with an optional expectation.
type Step struct {
	Compose *ComposeStep `yaml:"compose,omitempty"`
	Delete  *DeleteStep  `yaml:"delete,omitempty"`

	// Expect validates the step result. If nil, the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// ComposeStep is a compose request written with catalog references.
type ComposeStep struct {
	// Discipline is a "sport/discipline" reference.
	Discipline string `yaml:"discipline"`

	// Links are "type=value" parameters of the discipline.
	Links []string `yaml:"links"`

	// Requirement is the default "type/value" requirement for all entries.
	Requirement string `yaml:"requirement,omitempty"`

	// Policy overrides the scenario policy for this request.
	Policy engine.ConflictPolicy `yaml:"policy,omitempty"`

	Entries []EntrySpec `yaml:"entries"`
}

// EntrySpec names its rank by short name, or by raw id to exercise
// unknown ranks.
type EntrySpec struct {
	Rank        string           `yaml:"rank,omitempty"`
	RankID      int64            `yaml:"rank_id,omitempty"`
	Requirement string           `yaml:"requirement,omitempty"`
	Value       string           `yaml:"value"`
	Additional  []AdditionalSpec `yaml:"additional,omitempty"`
}

type AdditionalSpec struct {
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
}

// DeleteStep identifies the normative to delete by rank and parameter set,
// or by raw id.
type DeleteStep struct {
	Rank        string   `yaml:"rank,omitempty"`
	Discipline  string   `yaml:"discipline,omitempty"`
	Links       []string `yaml:"links,omitempty"`
	NormativeID int64    `yaml:"normative_id,omitempty"`
}

// Expect specifies the expected step outcome.
type Expect struct {
	// Error is the expected engine error code (VALIDATION, CONFLICT,
	// NOT_FOUND). Empty means the step must succeed.
	Error engine.ErrorCode `yaml:"error,omitempty"`

	// Field is the expected error field, checked only when set.
	Field string `yaml:"field,omitempty"`

	// Outcome counts of a successful compose, checked only when set.
	Created  *int `yaml:"created,omitempty"`
	Merged   *int `yaml:"merged,omitempty"`
	Rejected *int `yaml:"rejected,omitempty"`

	// Deleted condition count of a successful delete, checked only when set.
	Deleted *int64 `yaml:"deleted,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "row_count": Table holds exactly Count rows
	// - "normative": The normative for Rank and Links has exactly Values
	//   as condition values, or does not exist when Absent is set
	Type string `yaml:"type"`

	// Table is the table name (used by row_count).
	Table string `yaml:"table,omitempty"`

	// Count is the expected row count (used by row_count).
	Count int64 `yaml:"count,omitempty"`

	// Rank, Discipline and Links identify a normative (used by normative).
	Rank       string   `yaml:"rank,omitempty"`
	Discipline string   `yaml:"discipline,omitempty"`
	Links      []string `yaml:"links,omitempty"`

	// Values are the expected condition values in any order (used by normative).
	Values []string `yaml:"values,omitempty"`

	// Absent expects no such normative (used by normative).
	Absent bool `yaml:"absent,omitempty"`
}

// Assertion type constants.
const (
	AssertRowCount  = "row_count"
	AssertNormative = "normative"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) {
		scenario.Catalog = filepath.Join(filepath.Dir(path), scenario.Catalog)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// FindScenarios lists the .yaml and .yml files under dir, sorted. filter is
// an optional glob matched against the file name without extension.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	sort.Strings(files)
	return files, err
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Catalog == "" {
		return fmt.Errorf("catalog is required")
	}
	if info, err := os.Stat(s.Catalog); err != nil || !info.IsDir() {
		return fmt.Errorf("catalog directory not found: %s", s.Catalog)
	}

	if _, err := engine.ParseConflictPolicy(string(s.Policy)); err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, step *Step) error {
	switch {
	case step.Compose != nil && step.Delete != nil:
		return fmt.Errorf("steps[%d]: compose and delete are mutually exclusive", index)
	case step.Compose != nil:
		c := step.Compose
		if c.Discipline == "" {
			return fmt.Errorf("steps[%d].compose: discipline is required", index)
		}
		if _, err := engine.ParseConflictPolicy(string(c.Policy)); err != nil {
			return fmt.Errorf("steps[%d].compose.policy: %w", index, err)
		}
		for j, e := range c.Entries {
			if e.Rank == "" && e.RankID == 0 {
				return fmt.Errorf("steps[%d].compose.entries[%d]: rank or rank_id is required", index, j)
			}
		}
	case step.Delete != nil:
		d := step.Delete
		if d.NormativeID == 0 && (d.Rank == "" || d.Discipline == "" || len(d.Links) == 0) {
			return fmt.Errorf("steps[%d].delete: normative_id or rank, discipline and links are required", index)
		}
	default:
		return fmt.Errorf("steps[%d]: compose or delete is required", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRowCount:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for row_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	case AssertNormative:
		if a.Rank == "" || a.Discipline == "" || len(a.Links) == 0 {
			return fmt.Errorf("assertions[%d]: rank, discipline and links are required for normative", index)
		}
		if a.Absent && len(a.Values) > 0 {
			return fmt.Errorf("assertions[%d]: absent and values are mutually exclusive", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
