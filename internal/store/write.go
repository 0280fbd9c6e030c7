package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/normativ/internal/model"
)

// FindNormative looks up the normative for a rank and parameter key.
func (t *Tx) FindNormative(ctx context.Context, rankID int64, key string) (id int64, found bool, err error) {
	err = t.queryRow(ctx, `
		SELECT id FROM normatives
		WHERE rank_id = ? AND parameter_key = ?
	`, rankID, key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find normative: %w", err)
	}
	return id, true, nil
}

// ClaimNormative creates the normative for (rank, key) or returns the one a
// concurrent transaction committed first. inserted reports which happened.
// Only the inserting caller writes the groups.
func (t *Tx) ClaimNormative(ctx context.Context, rankID int64, key string) (id int64, inserted bool, err error) {
	id, inserted, err = t.insertReturningID(ctx,
		`INSERT INTO normatives (rank_id, parameter_key) VALUES (?, ?)
		 ON CONFLICT (rank_id, parameter_key) DO NOTHING RETURNING id`, []any{rankID, key},
		`SELECT id FROM normatives WHERE rank_id = ? AND parameter_key = ?`, []any{rankID, key})
	if err != nil {
		return 0, false, fmt.Errorf("claim normative: %w", err)
	}
	return id, inserted, nil
}

// InsertGroups binds every link of the set to the normative.
func (t *Tx) InsertGroups(ctx context.Context, normativeID int64, ps model.ParameterSet) error {
	for _, linkID := range ps {
		if _, err := t.exec(ctx, `
			INSERT INTO "groups" (normative_id, discipline_parameter_id) VALUES (?, ?)
		`, normativeID, linkID); err != nil {
			return fmt.Errorf("insert group %d/%d: %w", normativeID, linkID, err)
		}
	}
	return nil
}

// GroupSet returns the parameter set bound to a normative.
func (t *Tx) GroupSet(ctx context.Context, normativeID int64) (model.ParameterSet, error) {
	rows, err := t.query(ctx, `
		SELECT discipline_parameter_id FROM "groups"
		WHERE normative_id = ?
		ORDER BY discipline_parameter_id
	`, normativeID)
	if err != nil {
		return nil, fmt.Errorf("read groups: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read groups: %w", err)
	}
	return model.NewParameterSet(ids), nil
}

// InsertCondition attaches a condition to a normative.
// inserted is false when an identical condition already exists, in which
// case id is the existing condition. The transaction stays usable either way.
func (t *Tx) InsertCondition(ctx context.Context, normativeID, requirementID int64, value string) (id int64, inserted bool, err error) {
	id, inserted, err = t.insertReturningID(ctx,
		`INSERT INTO conditions (normative_id, requirement_id, condition_value) VALUES (?, ?, ?)
		 ON CONFLICT (normative_id, requirement_id, condition_value) DO NOTHING RETURNING id`,
		[]any{normativeID, requirementID, value},
		`SELECT id FROM conditions WHERE normative_id = ? AND requirement_id = ? AND condition_value = ?`,
		[]any{normativeID, requirementID, value})
	if err != nil {
		return 0, false, fmt.Errorf("insert condition: %w", err)
	}
	return id, inserted, nil
}

// InsertAdditionalRequirement qualifies a condition.
func (t *Tx) InsertAdditionalRequirement(ctx context.Context, conditionID int64, addType, value string) (int64, error) {
	var id int64
	err := t.queryRow(ctx, `
		INSERT INTO additional_requirements (condition_id, addition_type, addition_value)
		VALUES (?, ?, ?) RETURNING id
	`, conditionID, addType, value).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert additional requirement: %w", err)
	}
	return id, nil
}

// DeleteCounts reports how many rows a normative delete removed per table.
type DeleteCounts struct {
	AdditionalRequirements int64 `json:"additional_requirements"`
	Conditions             int64 `json:"conditions"`
	Groups                 int64 `json:"groups"`
	Normatives             int64 `json:"normatives"`
}

// DeleteNormative removes a normative with its groups, conditions, and their
// additional requirements. Returns ErrNotFound when the id does not exist.
// A row outside this set that still references the normative makes the
// final delete fail with a foreign key violation.
func (t *Tx) DeleteNormative(ctx context.Context, id int64) (DeleteCounts, error) {
	var counts DeleteCounts

	var one int
	err := t.queryRow(ctx, `SELECT 1 FROM normatives WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return counts, ErrNotFound
	}
	if err != nil {
		return counts, fmt.Errorf("delete normative: %w", err)
	}

	steps := []struct {
		query string
		count *int64
	}{
		{`DELETE FROM additional_requirements
		  WHERE condition_id IN (SELECT id FROM conditions WHERE normative_id = ?)`, &counts.AdditionalRequirements},
		{`DELETE FROM conditions WHERE normative_id = ?`, &counts.Conditions},
		{`DELETE FROM "groups" WHERE normative_id = ?`, &counts.Groups},
		{`DELETE FROM normatives WHERE id = ?`, &counts.Normatives},
	}
	for _, step := range steps {
		res, err := t.exec(ctx, step.query, id)
		if err != nil {
			return counts, fmt.Errorf("delete normative %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return counts, fmt.Errorf("delete normative %d: %w", id, err)
		}
		*step.count = n
	}
	return counts, nil
}
