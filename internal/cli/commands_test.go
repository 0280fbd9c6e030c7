package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/normativ/internal/testutil"
)

// seeded is a database seeded through the CLI.
type seeded struct {
	db      string
	catalog string
	seed    SeedResult
}

func seedDatabase(t *testing.T) *seeded {
	t.Helper()
	dir := t.TempDir()
	catDir := filepath.Join(dir, "catalog")
	require.NoError(t, os.Mkdir(catDir, 0o755))
	testutil.WriteSwimmingCatalog(t, catDir)

	s := &seeded{db: filepath.Join(dir, "normativ.db"), catalog: catDir}
	out, err := execute(t, "--db", s.db, "--format", "json", "seed", catDir)
	require.NoError(t, err, out)

	var resp struct {
		Status string     `json:"status"`
		Data   SeedResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	s.seed = resp.Data
	return s
}

func (s *seeded) link(t *testing.T, ref string) int64 {
	t.Helper()
	id, err := s.seed.Symbols.Link(ref)
	require.NoError(t, err)
	return id
}

// writeRequest writes a KMS/MS compose request for male freestyle 100m.
func (s *seeded) writeRequest(t *testing.T, values ...string) string {
	t.Helper()
	sym := s.seed.Symbols
	disc, err := sym.Discipline("swimming/freestyle_100")
	require.NoError(t, err)
	req, err := sym.Requirement("time/seconds")
	require.NoError(t, err)
	kms, err := sym.Rank("KMS")
	require.NoError(t, err)

	body := fmt.Sprintf("discipline_id: %d\nldp_ids: [%d, %d]\nrequirement_id: %d\nentries:\n",
		disc,
		s.link(t, "swimming/freestyle_100/gender=male"),
		s.link(t, "swimming/freestyle_100/distance=100m"),
		req)
	for _, v := range values {
		body += fmt.Sprintf("  - {rank_id: %d, condition_value: %q}\n", kms, v)
	}
	path := filepath.Join(t.TempDir(), "request.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestSeedCommand(t *testing.T) {
	s := seedDatabase(t)
	assert.Equal(t, map[string]int{
		"sports":       2,
		"disciplines":  3,
		"links":        7,
		"parameters":   4,
		"ranks":        3,
		"requirements": 2,
	}, s.seed.Counts)

	out, err := execute(t, "--db", s.db, "seed", s.catalog)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Catalog seeded")
	assert.Contains(t, out, "links")
}

func TestSeedMissingCatalog(t *testing.T) {
	out, err := execute(t, "--db", filepath.Join(t.TempDir(), "n.db"), "seed", "/nonexistent/catalog")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E301")
}

func TestComposeShowReportDelete(t *testing.T) {
	s := seedDatabase(t)
	req := s.writeRequest(t, "58.5")

	out, err := execute(t, "--db", s.db, "compose", "-f", req)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ Composed: 1 created, 0 merged, 0 rejected")
	assert.Contains(t, out, "request:    req-1")
	assert.Contains(t, out, "entries[0] rank 2: created normative 1")

	// Same condition again under the default reject policy.
	out, err = execute(t, "--db", s.db, "compose", "-f", req)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E211]: CONFLICT")
	assert.Contains(t, out, "request: req-1")

	// The skip policy turns the duplicate into a rejection and merges the rest.
	req2 := s.writeRequest(t, "58.5", "59.0")
	out, err = execute(t, "--db", s.db, "compose", "-f", req2, "--policy", "skip")
	require.NoError(t, err, out)
	assert.Contains(t, out, "0 created, 1 merged, 1 rejected")
	assert.Contains(t, out, "entries[0] rank 2: rejected (duplicate_condition)")
	assert.Contains(t, out, "entries[1] rank 2: merged normative 1")

	out, err = execute(t, "--db", s.db, "show", "1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Normative 1: KMS (Candidate Master of Sport)")
	assert.Contains(t, out, "discipline: Freestyle 100")
	assert.Contains(t, out, "= 58.5")
	assert.Contains(t, out, "= 59.0")

	sport, err := s.seed.Symbols.Sport("swimming")
	require.NoError(t, err)
	out, err = execute(t, "--db", s.db, "report", fmt.Sprint(sport))
	require.NoError(t, err, out)
	assert.Contains(t, out, "DISCIPLINE")
	assert.Contains(t, out, "Freestyle 100")
	assert.Contains(t, out, "58.5")

	out, err = execute(t, "--db", s.db, "--format", "json", "delete", "1")
	require.NoError(t, err, out)
	var resp struct {
		Status string `json:"status"`
		Data   struct {
			RequestID string           `json:"request_id"`
			Deleted   map[string]int64 `json:"deleted"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "req-1", resp.Data.RequestID)
	assert.Equal(t, map[string]int64{
		"additional_requirements": 0,
		"conditions":              2,
		"groups":                  2,
		"normatives":              1,
	}, resp.Data.Deleted)

	out, err = execute(t, "--db", s.db, "show", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E212]: normative 1 not found")

	out, err = execute(t, "--db", s.db, "delete", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E212")

	out, err = execute(t, "--db", s.db, "report", fmt.Sprint(sport))
	require.NoError(t, err)
	assert.Equal(t, "No normatives\n", out)
}

func TestComposeValidationErrorJSON(t *testing.T) {
	s := seedDatabase(t)
	path := filepath.Join(t.TempDir(), "request.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"discipline_id": 99, "ldp_ids": [1], "requirement_id": 1, "entries": []}`), 0o644))

	out, err := execute(t, "--db", s.db, "--format", "json", "compose", "-f", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "req-1", resp.RequestID)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION", details["code"])
	assert.Equal(t, "discipline_id", details["field"])
}

func TestComposeBadInput(t *testing.T) {
	s := seedDatabase(t)
	path := filepath.Join(t.TempDir(), "request.yaml")
	require.NoError(t, os.WriteFile(path, []byte("discipline_id: 1\nunknown_field: true\n"), 0o644))

	out, err := execute(t, "--db", s.db, "compose", "-f", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E203]")
	assert.Contains(t, out, "unknown_field")
}

func TestDeleteInvalidID(t *testing.T) {
	out, err := execute(t, "--db", filepath.Join(t.TempDir(), "n.db"), "delete", "abc")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, `invalid normative id "abc"`)
}

func TestValidateCommand(t *testing.T) {
	dir := testutil.WriteSwimmingCatalog(t, t.TempDir())

	out, err := execute(t, "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Catalog valid")

	out, err = execute(t, "--format", "json", "validate", dir)
	require.NoError(t, err)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestValidateInvalidCatalog(t *testing.T) {
	dir := t.TempDir()
	src := `package catalog

ranks: KMS: {full: "Candidate Master of Sport", prestige: 80}
parameters: gender: ["male"]
requirements: time: seconds: "Time, seconds"
sports: swimming: disciplines: freestyle_100: {
	name: "Freestyle 100"
	parameters: stroke: ["free"]
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.cue"), []byte(src), 0o644))

	out, err := execute(t, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "E310")
}

func TestValidateNonExistentDirectory(t *testing.T) {
	out, err := execute(t, "validate", "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E301")
	assert.Contains(t, out, "not found")
}

func TestTestCommand(t *testing.T) {
	scenarios := filepath.Join("..", "harness", "testdata", "scenarios")

	out, err := execute(t, "--format", "json", "test", scenarios)
	require.NoError(t, err, out)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 4, resp.Data.Total)
	assert.Equal(t, 4, resp.Data.Passed)
	for _, s := range resp.Data.Scenarios {
		assert.Equal(t, "match", s.Golden, s.Name)
	}

	out, err = execute(t, "test", scenarios, "--filter", "merge_*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommandUpdateAndMismatch(t *testing.T) {
	dir := t.TempDir()
	catDir := filepath.Join(dir, "catalogs", "swimming")
	require.NoError(t, os.MkdirAll(catDir, 0o755))
	testutil.WriteSwimmingCatalog(t, catDir)

	scenario := `name: single_compose
description: one create
catalog: catalogs/swimming
steps:
  - compose:
      discipline: swimming/freestyle_100
      links: [gender=male, distance=100m]
      requirement: time/seconds
      entries:
        - {rank: KMS, value: "58.5"}
`
	file := filepath.Join(dir, "single_compose.yaml")
	require.NoError(t, os.WriteFile(file, []byte(scenario), 0o644))

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "golden file not found")

	out, err = execute(t, "test", dir, "--update")
	require.NoError(t, err, out)
	assert.Contains(t, out, "(golden created)")

	out, err = execute(t, "test", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ single_compose")

	golden := filepath.Join(dir, "golden", "single_compose.golden")
	require.NoError(t, os.WriteFile(golden, []byte("{}"), 0o644))
	out, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace differs from golden file")
}

func TestMetricsTextfile(t *testing.T) {
	s := seedDatabase(t)
	req := s.writeRequest(t, "58.5")
	textfile := filepath.Join(t.TempDir(), "normativ.prom")
	t.Setenv("NORMATIV_METRICS_TEXTFILE", textfile)

	_, err := execute(t, "--db", s.db, "compose", "-f", req)
	require.NoError(t, err)

	data, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "normativ_requests_total")
}
