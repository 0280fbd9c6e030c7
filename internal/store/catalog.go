package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Reference catalog access. Reads answer the composer's existence checks;
// Ensure* writes are used by seeding and are idempotent: an existing row
// is returned instead of a duplicate being created.

// DisciplineExists reports whether the discipline id is in the catalog.
func (t *Tx) DisciplineExists(ctx context.Context, id int64) (bool, error) {
	return t.exists(ctx, `SELECT 1 FROM ref_disciplines WHERE id = ?`, id)
}

// RankExists reports whether the rank id is in the catalog.
func (t *Tx) RankExists(ctx context.Context, id int64) (bool, error) {
	return t.exists(ctx, `SELECT 1 FROM ref_ranks WHERE id = ?`, id)
}

// RequirementExists reports whether the requirement id is in the catalog.
func (t *Tx) RequirementExists(ctx context.Context, id int64) (bool, error) {
	return t.exists(ctx, `SELECT 1 FROM ref_requirements WHERE id = ?`, id)
}

// LinkDiscipline returns the discipline a link belongs to.
// found is false when the link does not exist.
func (t *Tx) LinkDiscipline(ctx context.Context, linkID int64) (disciplineID int64, found bool, err error) {
	err = t.queryRow(ctx, `SELECT discipline_id FROM lnk_discipline_parameters WHERE id = ?`, linkID).Scan(&disciplineID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read link %d: %w", linkID, err)
	}
	return disciplineID, true, nil
}

func (t *Tx) exists(ctx context.Context, query string, id int64) (bool, error) {
	var one int
	err := t.queryRow(ctx, query, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists check: %w", err)
	}
	return true, nil
}

// EnsureSport returns the id of the named sport, creating it if needed.
func (t *Tx) EnsureSport(ctx context.Context, name string) (int64, error) {
	id, _, err := t.insertReturningID(ctx,
		`INSERT INTO ref_sports (sport_name) VALUES (?)
		 ON CONFLICT (sport_name) DO NOTHING RETURNING id`, []any{name},
		`SELECT id FROM ref_sports WHERE sport_name = ?`, []any{name})
	if err != nil {
		return 0, fmt.Errorf("ensure sport %q: %w", name, err)
	}
	return id, nil
}

// EnsureDiscipline returns the id of the discipline with the given code in
// the sport, creating it if needed. An existing discipline keeps its name.
func (t *Tx) EnsureDiscipline(ctx context.Context, sportID int64, code, name string) (int64, error) {
	id, _, err := t.insertReturningID(ctx,
		`INSERT INTO ref_disciplines (sport_id, discipline_code, discipline_name) VALUES (?, ?, ?)
		 ON CONFLICT (sport_id, discipline_code) DO NOTHING RETURNING id`, []any{sportID, code, name},
		`SELECT id FROM ref_disciplines WHERE sport_id = ? AND discipline_code = ?`, []any{sportID, code})
	if err != nil {
		return 0, fmt.Errorf("ensure discipline %q: %w", code, err)
	}
	return id, nil
}

// EnsureParameterType returns the id of the named parameter type.
func (t *Tx) EnsureParameterType(ctx context.Context, name string) (int64, error) {
	id, _, err := t.insertReturningID(ctx,
		`INSERT INTO ref_parameters_types (type_name) VALUES (?)
		 ON CONFLICT (type_name) DO NOTHING RETURNING id`, []any{name},
		`SELECT id FROM ref_parameters_types WHERE type_name = ?`, []any{name})
	if err != nil {
		return 0, fmt.Errorf("ensure parameter type %q: %w", name, err)
	}
	return id, nil
}

// EnsureParameter returns the id of a parameter value of the given type.
func (t *Tx) EnsureParameter(ctx context.Context, typeID int64, value string) (int64, error) {
	id, _, err := t.insertReturningID(ctx,
		`INSERT INTO ref_parameters (parameter_type_id, parameter_value) VALUES (?, ?)
		 ON CONFLICT (parameter_type_id, parameter_value) DO NOTHING RETURNING id`, []any{typeID, value},
		`SELECT id FROM ref_parameters WHERE parameter_type_id = ? AND parameter_value = ?`, []any{typeID, value})
	if err != nil {
		return 0, fmt.Errorf("ensure parameter %q: %w", value, err)
	}
	return id, nil
}

// EnsureRequirementType returns the id of the named requirement type.
func (t *Tx) EnsureRequirementType(ctx context.Context, name string) (int64, error) {
	id, _, err := t.insertReturningID(ctx,
		`INSERT INTO ref_requirements_types (type_name) VALUES (?)
		 ON CONFLICT (type_name) DO NOTHING RETURNING id`, []any{name},
		`SELECT id FROM ref_requirements_types WHERE type_name = ?`, []any{name})
	if err != nil {
		return 0, fmt.Errorf("ensure requirement type %q: %w", name, err)
	}
	return id, nil
}

// EnsureRequirement returns the id of a requirement of the given type.
func (t *Tx) EnsureRequirement(ctx context.Context, typeID int64, value, description string) (int64, error) {
	id, _, err := t.insertReturningID(ctx,
		`INSERT INTO ref_requirements (requirement_type_id, requirement_value, description) VALUES (?, ?, ?)
		 ON CONFLICT (requirement_type_id, requirement_value) DO NOTHING RETURNING id`, []any{typeID, value, description},
		`SELECT id FROM ref_requirements WHERE requirement_type_id = ? AND requirement_value = ?`, []any{typeID, value})
	if err != nil {
		return 0, fmt.Errorf("ensure requirement %q: %w", value, err)
	}
	return id, nil
}

// EnsureRank returns the id of the rank with the given short name.
func (t *Tx) EnsureRank(ctx context.Context, shortName, fullName string, prestige int64) (int64, error) {
	id, _, err := t.insertReturningID(ctx,
		`INSERT INTO ref_ranks (short_name, full_name, prestige) VALUES (?, ?, ?)
		 ON CONFLICT (short_name) DO NOTHING RETURNING id`, []any{shortName, fullName, prestige},
		`SELECT id FROM ref_ranks WHERE short_name = ?`, []any{shortName})
	if err != nil {
		return 0, fmt.Errorf("ensure rank %q: %w", shortName, err)
	}
	return id, nil
}

// EnsureLink returns the id of the link between a discipline and a parameter.
func (t *Tx) EnsureLink(ctx context.Context, disciplineID, parameterID int64) (int64, error) {
	id, _, err := t.insertReturningID(ctx,
		`INSERT INTO lnk_discipline_parameters (discipline_id, parameter_id) VALUES (?, ?)
		 ON CONFLICT (discipline_id, parameter_id) DO NOTHING RETURNING id`, []any{disciplineID, parameterID},
		`SELECT id FROM lnk_discipline_parameters WHERE discipline_id = ? AND parameter_id = ?`, []any{disciplineID, parameterID})
	if err != nil {
		return 0, fmt.Errorf("ensure link %d/%d: %w", disciplineID, parameterID, err)
	}
	return id, nil
}
