package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testCatalog holds the ids of a small seeded catalog.
type testCatalog struct {
	sport     int64
	freestyle int64
	butterfly int64
	male      int64 // freestyle gender=male
	female    int64 // freestyle gender=female
	dist100   int64 // freestyle distance=100m
	flyMale   int64 // butterfly gender=male
	ms        int64
	kms       int64
	seconds   int64
	place     int64
}

func seedTestCatalog(t *testing.T, s *Store) testCatalog {
	t.Helper()
	ctx := context.Background()
	var c testCatalog

	err := s.WithTx(ctx, TxOptions{}, func(tx *Tx) error {
		var err error
		must := func(id int64, e error) int64 {
			if e != nil && err == nil {
				err = e
			}
			return id
		}

		c.sport = must(tx.EnsureSport(ctx, "Swimming"))
		c.freestyle = must(tx.EnsureDiscipline(ctx, c.sport, "freestyle_100", "Freestyle 100"))
		c.butterfly = must(tx.EnsureDiscipline(ctx, c.sport, "butterfly_100", "Butterfly 100"))

		gender := must(tx.EnsureParameterType(ctx, "gender"))
		distance := must(tx.EnsureParameterType(ctx, "distance"))
		male := must(tx.EnsureParameter(ctx, gender, "male"))
		female := must(tx.EnsureParameter(ctx, gender, "female"))
		d100 := must(tx.EnsureParameter(ctx, distance, "100m"))

		c.male = must(tx.EnsureLink(ctx, c.freestyle, male))
		c.female = must(tx.EnsureLink(ctx, c.freestyle, female))
		c.dist100 = must(tx.EnsureLink(ctx, c.freestyle, d100))
		c.flyMale = must(tx.EnsureLink(ctx, c.butterfly, male))

		c.ms = must(tx.EnsureRank(ctx, "MS", "Master of Sport", 90))
		c.kms = must(tx.EnsureRank(ctx, "KMS", "Candidate Master of Sport", 80))

		timeType := must(tx.EnsureRequirementType(ctx, "time"))
		placeType := must(tx.EnsureRequirementType(ctx, "place"))
		c.seconds = must(tx.EnsureRequirement(ctx, timeType, "seconds", "Time, seconds"))
		c.place = must(tx.EnsureRequirement(ctx, placeType, "place", "Placement"))
		return err
	})
	if err != nil {
		t.Fatalf("seed catalog failed: %v", err)
	}
	return c
}

// withTx runs fn in a transaction and fails the test on error.
func withTx(t *testing.T, s *Store, fn func(ctx context.Context, tx *Tx) error) {
	t.Helper()
	ctx := context.Background()
	if err := s.WithTx(ctx, TxOptions{}, func(tx *Tx) error { return fn(ctx, tx) }); err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
}
