package catalog

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSrc string

// DecodeError represents a catalog error with source position.
type DecodeError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *DecodeError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Decode checks v against the #Catalog schema and converts it.
//
// Example:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`ranks: KMS: {full: "Candidate Master", prestige: 80}`)
//	cat, err := Decode(v)
func Decode(v cue.Value) (*Catalog, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema := v.Context().CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}
	v = schema.LookupPath(cue.ParsePath("#Catalog")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	cat := &Catalog{}
	var err error
	if cat.Ranks, err = decodeRanks(v.LookupPath(cue.ParsePath("ranks"))); err != nil {
		return nil, err
	}
	if cat.ParameterTypes, err = decodeParameterTypes(v.LookupPath(cue.ParsePath("parameters"))); err != nil {
		return nil, err
	}
	if cat.RequirementTypes, err = decodeRequirementTypes(v.LookupPath(cue.ParsePath("requirements"))); err != nil {
		return nil, err
	}
	if cat.Sports, err = decodeSports(v.LookupPath(cue.ParsePath("sports"))); err != nil {
		return nil, err
	}
	return cat, nil
}

// eachField calls fn for every regular field of v in declaration order.
// A missing v has no fields.
func eachField(v cue.Value, fn func(label string, fv cue.Value) error) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(iter.Selector().Unquoted(), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func decodeString(v cue.Value, path string) (string, error) {
	field := v.LookupPath(cue.ParsePath(path))
	if !field.Exists() {
		return "", nil
	}
	s, err := field.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func decodeStrings(v cue.Value) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeRanks(v cue.Value) ([]Rank, error) {
	var ranks []Rank
	err := eachField(v, func(label string, fv cue.Value) error {
		full, err := decodeString(fv, "full")
		if err != nil {
			return err
		}
		prestige, err := fv.LookupPath(cue.ParsePath("prestige")).Int64()
		if err != nil {
			return formatCUEError(err)
		}
		ranks = append(ranks, Rank{ShortName: label, FullName: full, Prestige: prestige})
		return nil
	})
	return ranks, err
}

func decodeParameterTypes(v cue.Value) ([]ParameterType, error) {
	var types []ParameterType
	err := eachField(v, func(label string, fv cue.Value) error {
		values, err := decodeStrings(fv)
		if err != nil {
			return err
		}
		types = append(types, ParameterType{Name: label, Values: values})
		return nil
	})
	return types, err
}

func decodeRequirementTypes(v cue.Value) ([]RequirementType, error) {
	var types []RequirementType
	err := eachField(v, func(label string, fv cue.Value) error {
		rt := RequirementType{Name: label}
		err := eachField(fv, func(value string, dv cue.Value) error {
			desc, err := dv.String()
			if err != nil {
				return formatCUEError(err)
			}
			rt.Requirements = append(rt.Requirements, Requirement{Value: value, Description: desc})
			return nil
		})
		if err != nil {
			return err
		}
		types = append(types, rt)
		return nil
	})
	return types, err
}

func decodeSports(v cue.Value) ([]Sport, error) {
	var sports []Sport
	err := eachField(v, func(key string, sv cue.Value) error {
		name, err := decodeString(sv, "name")
		if err != nil {
			return err
		}
		if name == "" {
			name = key
		}
		sport := Sport{Key: key, Name: name}

		err = eachField(sv.LookupPath(cue.ParsePath("disciplines")), func(dkey string, dv cue.Value) error {
			d, err := decodeDiscipline(dkey, dv)
			if err != nil {
				return err
			}
			sport.Disciplines = append(sport.Disciplines, d)
			return nil
		})
		if err != nil {
			return err
		}
		sports = append(sports, sport)
		return nil
	})
	return sports, err
}

func decodeDiscipline(key string, v cue.Value) (Discipline, error) {
	d := Discipline{Key: key}
	var err error
	if d.Name, err = decodeString(v, "name"); err != nil {
		return d, err
	}
	if d.Code, err = decodeString(v, "code"); err != nil {
		return d, err
	}
	if d.Code == "" {
		d.Code = key
	}

	err = eachField(v.LookupPath(cue.ParsePath("parameters")), func(typeName string, pv cue.Value) error {
		values, err := decodeStrings(pv)
		if err != nil {
			return err
		}
		if len(values) == 0 {
			return &DecodeError{
				Field:   fmt.Sprintf("disciplines.%s.parameters.%s", key, typeName),
				Message: "at least one value is required",
				Pos:     pv.Pos(),
			}
		}
		for _, value := range values {
			d.Parameters = append(d.Parameters, ParameterRef{Type: typeName, Value: value})
		}
		return nil
	})
	return d, err
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &DecodeError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
