package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/normativ/internal/catalog"
	"github.com/roach88/normativ/internal/store"
)

// SwimmingCatalog is a small catalog used across package tests.
//
// Links per discipline:
//   - swimming/freestyle_100: gender=male, gender=female, distance=100m
//   - swimming/freestyle_50:  gender=male, gender=female, distance=50m
//   - running/sprint_100:     gender=male
const SwimmingCatalog = `package catalog

ranks: {
	MS: {full: "Master of Sport", prestige: 90}
	KMS: {full: "Candidate Master of Sport", prestige: 80}
	I: {full: "First Class", prestige: 70}
}

parameters: {
	gender: ["male", "female"]
	distance: ["50m", "100m"]
}

requirements: {
	time: seconds: "Time, seconds"
	place: final: "Place in the final"
}

sports: {
	swimming: {
		name: "Swimming"
		disciplines: {
			freestyle_100: {
				name: "Freestyle 100"
				parameters: {gender: ["male", "female"], distance: ["100m"]}
			}
			freestyle_50: {
				name: "Freestyle 50"
				parameters: {gender: ["male", "female"], distance: ["50m"]}
			}
		}
	}
	running: {
		name: "Running"
		disciplines: sprint_100: {
			name: "Sprint 100"
			parameters: gender: ["male"]
		}
	}
}
`

// Fixture is a file-backed store seeded with SwimmingCatalog.
type Fixture struct {
	Store   *store.Store
	Path    string
	Symbols *catalog.Symbols
}

// OpenStore opens a fresh file-backed store in a temp dir.
// The store is closed when the test ends.
func OpenStore(t testing.TB) (*store.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "normativ.db")
	st, err := store.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st, path
}

// NewSwimmingFixture opens a store and seeds SwimmingCatalog into it.
func NewSwimmingFixture(t testing.TB) *Fixture {
	t.Helper()
	st, path := OpenStore(t)

	cat, err := catalog.CompileString(SwimmingCatalog)
	if err != nil {
		t.Fatalf("compile catalog: %v", err)
	}
	sym, err := catalog.Seed(context.Background(), st, cat)
	if err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	return &Fixture{Store: st, Path: path, Symbols: sym}
}

// WriteSwimmingCatalog writes SwimmingCatalog into dir and returns dir.
func WriteSwimmingCatalog(t testing.TB, dir string) string {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "catalog.cue"), []byte(SwimmingCatalog), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return dir
}

// Discipline resolves a "sport/discipline" reference or fails the test.
func (f *Fixture) Discipline(t testing.TB, ref string) int64 {
	t.Helper()
	id, err := f.Symbols.Discipline(ref)
	return must(t, id, err)
}

// Rank resolves a rank short name or fails the test.
func (f *Fixture) Rank(t testing.TB, ref string) int64 {
	t.Helper()
	id, err := f.Symbols.Rank(ref)
	return must(t, id, err)
}

// Requirement resolves a "type/value" reference or fails the test.
func (f *Fixture) Requirement(t testing.TB, ref string) int64 {
	t.Helper()
	id, err := f.Symbols.Requirement(ref)
	return must(t, id, err)
}

// Sport resolves a sport key or fails the test.
func (f *Fixture) Sport(t testing.TB, ref string) int64 {
	t.Helper()
	id, err := f.Symbols.Sport(ref)
	return must(t, id, err)
}

// Links resolves link references relative to a discipline, e.g.
// Links(t, "swimming/freestyle_100", "gender=male", "distance=100m").
func (f *Fixture) Links(t testing.TB, discipline string, params ...string) []int64 {
	t.Helper()
	ids := make([]int64, len(params))
	for i, p := range params {
		id, err := f.Symbols.Link(discipline + "/" + p)
		ids[i] = must(t, id, err)
	}
	return ids
}

// Count returns the row count of table or fails the test.
func (f *Fixture) Count(t testing.TB, table string) int64 {
	t.Helper()
	n, err := f.Store.CountRows(context.Background(), table)
	return must(t, n, err)
}

func must(t testing.TB, id int64, err error) int64 {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
	return id
}
