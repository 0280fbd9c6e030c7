package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/normativ/internal/model"
)

// Reads outside a transaction. Results are ordered deterministically so
// that reports and golden traces are stable across runs.

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.Rebind(query), args...)
}

// LookupNormative returns the id of the normative for a rank and parameter set.
// Returns ErrNotFound when no such normative exists.
func (s *Store) LookupNormative(ctx context.Context, rankID int64, ps model.ParameterSet) (int64, error) {
	key, err := model.ParameterKey(ps)
	if err != nil {
		return 0, fmt.Errorf("lookup normative: %w", err)
	}

	var id int64
	err = s.queryRow(ctx, `
		SELECT id FROM normatives WHERE rank_id = ? AND parameter_key = ?
	`, rankID, key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup normative: %w", err)
	}
	return id, nil
}

// ReadNormative returns a normative with its rank, parameters, conditions,
// and additional requirements. Returns ErrNotFound when the id does not exist.
func (s *Store) ReadNormative(ctx context.Context, id int64) (model.NormativeDetail, error) {
	var d model.NormativeDetail
	var key sql.NullString
	err := s.queryRow(ctx, `
		SELECT n.id, n.parameter_key, r.id, r.short_name, r.full_name, r.prestige
		FROM normatives n
		JOIN ref_ranks r ON r.id = n.rank_id
		WHERE n.id = ?
	`, id).Scan(&d.ID, &key, &d.Rank.ID, &d.Rank.ShortName, &d.Rank.FullName, &d.Rank.Prestige)
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrNotFound
	}
	if err != nil {
		return d, fmt.Errorf("read normative: %w", err)
	}
	d.ParameterKey = key.String

	if err := s.readNormativeParameters(ctx, &d); err != nil {
		return d, err
	}
	if err := s.readNormativeConditions(ctx, &d); err != nil {
		return d, err
	}
	return d, nil
}

func (s *Store) readNormativeParameters(ctx context.Context, d *model.NormativeDetail) error {
	rows, err := s.query(ctx, `
		SELECT l.id, l.discipline_id, rd.discipline_name, p.id, pt.type_name, p.parameter_value
		FROM "groups" g
		JOIN lnk_discipline_parameters l ON l.id = g.discipline_parameter_id
		JOIN ref_disciplines rd ON rd.id = l.discipline_id
		JOIN ref_parameters p ON p.id = l.parameter_id
		JOIN ref_parameters_types pt ON pt.id = p.parameter_type_id
		WHERE g.normative_id = ?
		ORDER BY l.id
	`, d.ID)
	if err != nil {
		return fmt.Errorf("query parameters: %w", err)
	}
	defer rows.Close()

	d.Parameters = []model.LinkedParameter{}
	for rows.Next() {
		var p model.LinkedParameter
		if err := rows.Scan(&p.LinkID, &d.DisciplineID, &d.DisciplineName, &p.ParameterID, &p.Type, &p.Value); err != nil {
			return fmt.Errorf("scan parameter: %w", err)
		}
		d.Parameters = append(d.Parameters, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate parameters: %w", err)
	}
	return nil
}

func (s *Store) readNormativeConditions(ctx context.Context, d *model.NormativeDetail) error {
	rows, err := s.query(ctx, `
		SELECT c.id, c.requirement_id, rq.requirement_value, rq.description, c.condition_value
		FROM conditions c
		JOIN ref_requirements rq ON rq.id = c.requirement_id
		WHERE c.normative_id = ?
		ORDER BY c.id
	`, d.ID)
	if err != nil {
		return fmt.Errorf("query conditions: %w", err)
	}
	d.Conditions = []model.ConditionDetail{}
	index := map[int64]int{}
	for rows.Next() {
		var c model.ConditionDetail
		if err := rows.Scan(&c.ID, &c.RequirementID, &c.Requirement, &c.RequirementDescription, &c.Value); err != nil {
			rows.Close()
			return fmt.Errorf("scan condition: %w", err)
		}
		index[c.ID] = len(d.Conditions)
		d.Conditions = append(d.Conditions, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate conditions: %w", err)
	}
	rows.Close()

	rows, err = s.query(ctx, `
		SELECT a.id, a.condition_id, a.addition_type, a.addition_value
		FROM additional_requirements a
		JOIN conditions c ON c.id = a.condition_id
		WHERE c.normative_id = ?
		ORDER BY a.id
	`, d.ID)
	if err != nil {
		return fmt.Errorf("query additional requirements: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a model.AdditionalRequirement
		if err := rows.Scan(&a.ID, &a.ConditionID, &a.Type, &a.Value); err != nil {
			return fmt.Errorf("scan additional requirement: %w", err)
		}
		c := &d.Conditions[index[a.ConditionID]]
		c.Additional = append(c.Additional, a)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate additional requirements: %w", err)
	}
	return nil
}

// ListSportNormatives returns one row per condition of every normative in
// the sport, ordered by discipline name, rank prestige (highest first),
// rank id, and condition id.
func (s *Store) ListSportNormatives(ctx context.Context, sportID int64) ([]model.SportNormativeRow, error) {
	rows, err := s.query(ctx, `
		SELECT rs.sport_name, rd.id, rd.discipline_name, rd.discipline_code,
		       n.id, rr.short_name, rr.full_name, rr.prestige,
		       rq.requirement_value, rq.description, c.condition_value
		FROM conditions c
		JOIN normatives n ON n.id = c.normative_id
		JOIN ref_ranks rr ON rr.id = n.rank_id
		JOIN ref_requirements rq ON rq.id = c.requirement_id
		JOIN ref_disciplines rd ON rd.id = (
			SELECT l.discipline_id
			FROM "groups" g
			JOIN lnk_discipline_parameters l ON l.id = g.discipline_parameter_id
			WHERE g.normative_id = n.id
			ORDER BY l.id
			LIMIT 1
		)
		JOIN ref_sports rs ON rs.id = rd.sport_id
		WHERE rs.id = ?
		ORDER BY rd.discipline_name, rr.prestige DESC, rr.id, c.id
	`, sportID)
	if err != nil {
		return nil, fmt.Errorf("query sport normatives: %w", err)
	}

	result := []model.SportNormativeRow{}
	for rows.Next() {
		var r model.SportNormativeRow
		if err := rows.Scan(&r.SportName, &r.DisciplineID, &r.DisciplineName, &r.DisciplineCode,
			&r.NormativeID, &r.RankShortName, &r.RankFullName, &r.Prestige,
			&r.Requirement, &r.Description, &r.ConditionValue); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan sport normative: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate sport normatives: %w", err)
	}
	rows.Close()

	labels := map[int64]string{}
	for i := range result {
		id := result[i].NormativeID
		label, ok := labels[id]
		if !ok {
			label, err = s.parameterLabel(ctx, id)
			if err != nil {
				return nil, err
			}
			labels[id] = label
		}
		result[i].Parameters = label
	}
	return result, nil
}

// parameterLabel renders a normative's parameters as "type: value, ...".
func (s *Store) parameterLabel(ctx context.Context, normativeID int64) (string, error) {
	rows, err := s.query(ctx, `
		SELECT pt.type_name, p.parameter_value
		FROM "groups" g
		JOIN lnk_discipline_parameters l ON l.id = g.discipline_parameter_id
		JOIN ref_parameters p ON p.id = l.parameter_id
		JOIN ref_parameters_types pt ON pt.id = p.parameter_type_id
		WHERE g.normative_id = ?
		ORDER BY l.id
	`, normativeID)
	if err != nil {
		return "", fmt.Errorf("query parameter label: %w", err)
	}
	defer rows.Close()

	var parts []string
	for rows.Next() {
		var p model.LinkedParameter
		if err := rows.Scan(&p.Type, &p.Value); err != nil {
			return "", fmt.Errorf("scan parameter label: %w", err)
		}
		parts = append(parts, p.Label())
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate parameter label: %w", err)
	}
	return strings.Join(parts, ", "), nil
}

var validIdentifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// CountRows returns the number of rows in a table.
// The table name is validated because it cannot be passed as a parameter.
func (s *Store) CountRows(ctx context.Context, table string) (int64, error) {
	if !validIdentifier.MatchString(table) {
		return 0, fmt.Errorf("invalid table name %q", table)
	}
	var n int64
	if err := s.queryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %q`, table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
