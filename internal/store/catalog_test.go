package store

import (
	"context"
	"testing"
)

func TestEnsure_Idempotent(t *testing.T) {
	s := createTestStore(t)
	first := seedTestCatalog(t, s)
	second := seedTestCatalog(t, s)

	if first != second {
		t.Errorf("reseeding changed ids:\nfirst  %+v\nsecond %+v", first, second)
	}

	for table, want := range map[string]int64{
		"ref_sports":                1,
		"ref_disciplines":           2,
		"ref_parameters":            3,
		"lnk_discipline_parameters": 4,
		"ref_ranks":                 2,
		"ref_requirements":          2,
	} {
		n, err := s.CountRows(context.Background(), table)
		if err != nil {
			t.Fatalf("CountRows(%s) failed: %v", table, err)
		}
		if n != want {
			t.Errorf("%s = %d rows, want %d", table, n, want)
		}
	}
}

func TestEnsureDiscipline_SameCodeOtherSport(t *testing.T) {
	s := createTestStore(t)

	withTx(t, s, func(ctx context.Context, tx *Tx) error {
		swim, err := tx.EnsureSport(ctx, "Swimming")
		if err != nil {
			return err
		}
		run, err := tx.EnsureSport(ctx, "Running")
		if err != nil {
			return err
		}
		a, err := tx.EnsureDiscipline(ctx, swim, "100", "100 m")
		if err != nil {
			return err
		}
		b, err := tx.EnsureDiscipline(ctx, run, "100", "100 m")
		if err != nil {
			return err
		}
		if a == b {
			t.Errorf("disciplines in different sports share id %d", a)
		}
		return nil
	})
}

func TestExistenceChecks(t *testing.T) {
	s := createTestStore(t)
	c := seedTestCatalog(t, s)

	withTx(t, s, func(ctx context.Context, tx *Tx) error {
		checks := []struct {
			name string
			fn   func(context.Context, int64) (bool, error)
			id   int64
			want bool
		}{
			{"discipline", tx.DisciplineExists, c.freestyle, true},
			{"missing discipline", tx.DisciplineExists, 999, false},
			{"rank", tx.RankExists, c.kms, true},
			{"missing rank", tx.RankExists, 999, false},
			{"requirement", tx.RequirementExists, c.seconds, true},
			{"missing requirement", tx.RequirementExists, 999, false},
		}
		for _, check := range checks {
			got, err := check.fn(ctx, check.id)
			if err != nil {
				return err
			}
			if got != check.want {
				t.Errorf("%s(%d) = %v, want %v", check.name, check.id, got, check.want)
			}
		}

		discipline, found, err := tx.LinkDiscipline(ctx, c.flyMale)
		if err != nil {
			return err
		}
		if !found || discipline != c.butterfly {
			t.Errorf("LinkDiscipline(%d) = %d, %v; want %d, true", c.flyMale, discipline, found, c.butterfly)
		}

		_, found, err = tx.LinkDiscipline(ctx, 999)
		if err != nil {
			return err
		}
		if found {
			t.Error("LinkDiscipline(999) found a link")
		}
		return nil
	})
}
