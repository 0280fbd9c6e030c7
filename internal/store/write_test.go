package store

import (
	"context"
	"errors"
	"testing"

	"github.com/roach88/normativ/internal/model"
)

func TestClaimNormative_InsertThenExisting(t *testing.T) {
	s := createTestStore(t)
	c := seedTestCatalog(t, s)
	ps := model.NewParameterSet([]int64{c.male, c.dist100})
	key := model.MustParameterKey(ps)

	var firstID int64
	withTx(t, s, func(ctx context.Context, tx *Tx) error {
		_, found, err := tx.FindNormative(ctx, c.kms, key)
		if err != nil {
			return err
		}
		if found {
			t.Fatal("FindNormative() found a normative in an empty store")
		}

		id, inserted, err := tx.ClaimNormative(ctx, c.kms, key)
		if err != nil {
			return err
		}
		if !inserted {
			t.Error("first ClaimNormative() did not insert")
		}
		firstID = id
		return tx.InsertGroups(ctx, id, ps)
	})

	withTx(t, s, func(ctx context.Context, tx *Tx) error {
		id, inserted, err := tx.ClaimNormative(ctx, c.kms, key)
		if err != nil {
			return err
		}
		if inserted {
			t.Error("second ClaimNormative() inserted a duplicate")
		}
		if id != firstID {
			t.Errorf("second ClaimNormative() = %d, want %d", id, firstID)
		}

		got, err := tx.GroupSet(ctx, id)
		if err != nil {
			return err
		}
		if !got.Equal(ps) {
			t.Errorf("GroupSet() = %v, want %v", got, ps)
		}
		return nil
	})
}

func TestClaimNormative_DistinctPerRank(t *testing.T) {
	s := createTestStore(t)
	c := seedTestCatalog(t, s)
	key := model.MustParameterKey(model.ParameterSet{c.male})

	withTx(t, s, func(ctx context.Context, tx *Tx) error {
		a, _, err := tx.ClaimNormative(ctx, c.kms, key)
		if err != nil {
			return err
		}
		b, _, err := tx.ClaimNormative(ctx, c.ms, key)
		if err != nil {
			return err
		}
		if a == b {
			t.Errorf("ranks share normative %d", a)
		}
		return nil
	})
}

func TestInsertCondition_Duplicate(t *testing.T) {
	s := createTestStore(t)
	c := seedTestCatalog(t, s)

	withTx(t, s, func(ctx context.Context, tx *Tx) error {
		norm, _, err := tx.ClaimNormative(ctx, c.kms, model.MustParameterKey(model.ParameterSet{c.male}))
		if err != nil {
			return err
		}

		first, inserted, err := tx.InsertCondition(ctx, norm, c.seconds, "58.5")
		if err != nil {
			return err
		}
		if !inserted {
			t.Error("first InsertCondition() did not insert")
		}

		again, inserted, err := tx.InsertCondition(ctx, norm, c.seconds, "58.5")
		if err != nil {
			return err
		}
		if inserted || again != first {
			t.Errorf("duplicate InsertCondition() = %d, %v; want %d, false", again, inserted, first)
		}

		// the transaction is still usable after a suppressed conflict
		_, inserted, err = tx.InsertCondition(ctx, norm, c.seconds, "59.0")
		if err != nil {
			return err
		}
		if !inserted {
			t.Error("InsertCondition(59.0) did not insert")
		}
		return nil
	})
}

func TestDeleteNormative_Counts(t *testing.T) {
	s := createTestStore(t)
	c := seedTestCatalog(t, s)
	ctx := context.Background()

	var norm int64
	withTx(t, s, func(ctx context.Context, tx *Tx) error {
		poolType, err := tx.EnsureParameterType(ctx, "pool")
		if err != nil {
			return err
		}
		pool50, err := tx.EnsureParameter(ctx, poolType, "50m")
		if err != nil {
			return err
		}
		pool, err := tx.EnsureLink(ctx, c.freestyle, pool50)
		if err != nil {
			return err
		}
		ps := model.NewParameterSet([]int64{c.male, c.dist100, pool})

		norm, _, err = tx.ClaimNormative(ctx, c.kms, model.MustParameterKey(ps))
		if err != nil {
			return err
		}
		if err := tx.InsertGroups(ctx, norm, ps); err != nil {
			return err
		}
		cond, _, err := tx.InsertCondition(ctx, norm, c.seconds, "58.5")
		if err != nil {
			return err
		}
		if _, err := tx.InsertAdditionalRequirement(ctx, cond, "wind", "2.0"); err != nil {
			return err
		}
		_, _, err = tx.InsertCondition(ctx, norm, c.place, "3")
		return err
	})

	referenceTables := []string{
		"ref_sports", "ref_disciplines", "ref_parameters_types", "ref_parameters",
		"lnk_discipline_parameters", "ref_ranks", "ref_requirements",
	}
	before := map[string]int64{}
	for _, table := range referenceTables {
		n, err := s.CountRows(ctx, table)
		if err != nil {
			t.Fatalf("CountRows(%s) failed: %v", table, err)
		}
		before[table] = n
	}

	withTx(t, s, func(ctx context.Context, tx *Tx) error {
		counts, err := tx.DeleteNormative(ctx, norm)
		if err != nil {
			return err
		}
		want := DeleteCounts{AdditionalRequirements: 1, Conditions: 2, Groups: 3, Normatives: 1}
		if counts != want {
			t.Errorf("DeleteNormative() = %+v, want %+v", counts, want)
		}
		return nil
	})

	for _, table := range []string{"normatives", "groups", "conditions", "additional_requirements"} {
		n, err := s.CountRows(ctx, table)
		if err != nil {
			t.Fatalf("CountRows(%s) failed: %v", table, err)
		}
		if n != 0 {
			t.Errorf("%s = %d rows after delete, want 0", table, n)
		}
	}
	for _, table := range referenceTables {
		n, err := s.CountRows(ctx, table)
		if err != nil {
			t.Fatalf("CountRows(%s) failed: %v", table, err)
		}
		if n != before[table] {
			t.Errorf("%s = %d rows after delete, want %d", table, n, before[table])
		}
	}
	if before["lnk_discipline_parameters"] != 5 || before["ref_parameters"] != 4 {
		t.Errorf("reference rows before delete = %v, want 5 links and 4 parameters", before)
	}
}

func TestDeleteNormative_NotFound(t *testing.T) {
	s := createTestStore(t)

	err := s.WithTx(context.Background(), TxOptions{}, func(tx *Tx) error {
		_, err := tx.DeleteNormative(context.Background(), 42)
		return err
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteNormative(42) error = %v, want ErrNotFound", err)
	}
}

func TestDeleteNormative_ReferencedElsewhere(t *testing.T) {
	s := createTestStore(t)
	c := seedTestCatalog(t, s)
	ctx := context.Background()

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE certificates (
			id INTEGER PRIMARY KEY,
			normative_id INTEGER NOT NULL REFERENCES normatives(id)
		)
	`); err != nil {
		t.Fatalf("create certificates failed: %v", err)
	}

	var norm int64
	withTx(t, s, func(ctx context.Context, tx *Tx) error {
		var err error
		norm, _, err = tx.ClaimNormative(ctx, c.kms, model.MustParameterKey(model.ParameterSet{c.male}))
		if err != nil {
			return err
		}
		if err := tx.InsertGroups(ctx, norm, model.ParameterSet{c.male}); err != nil {
			return err
		}
		_, err = tx.exec(ctx, `INSERT INTO certificates (id, normative_id) VALUES (1, ?)`, norm)
		return err
	})

	err := s.WithTx(ctx, TxOptions{}, func(tx *Tx) error {
		_, err := tx.DeleteNormative(ctx, norm)
		return err
	})
	if !IsForeignKeyViolation(err) {
		t.Fatalf("DeleteNormative() error = %v, want foreign key violation", err)
	}

	// rolled back: groups survive
	if n, _ := s.CountRows(ctx, "groups"); n != 1 {
		t.Errorf("groups = %d rows after failed delete, want 1", n)
	}
}
