package catalog

import (
	"fmt"
)

// Validation error codes (E310-E319)
const (
	ErrUnknownParameterType = "E310" // discipline uses an undeclared parameter type
	ErrUnknownParameter     = "E311" // discipline uses an undeclared parameter value
	ErrDuplicateValue       = "E312" // value listed twice
	ErrDuplicateCode        = "E313" // two disciplines of a sport share a code
	ErrEmptyName            = "E314" // name or value is empty
)

// ValidationError represents a catalog consistency error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks cross references inside the catalog.
// Returns all errors found (does not fail-fast).
func Validate(c *Catalog) []ValidationError {
	var errs []ValidationError

	declared := map[string]map[string]bool{}
	for _, pt := range c.ParameterTypes {
		field := "parameters." + pt.Name
		values := map[string]bool{}
		for _, v := range pt.Values {
			if v == "" {
				errs = append(errs, ValidationError{Field: field, Message: "parameter value is empty", Code: ErrEmptyName})
			}
			if values[v] {
				errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("value %q listed twice", v), Code: ErrDuplicateValue})
			}
			values[v] = true
		}
		declared[pt.Name] = values
	}

	for _, r := range c.Ranks {
		if r.FullName == "" {
			errs = append(errs, ValidationError{Field: "ranks." + r.ShortName + ".full", Message: "full name is empty", Code: ErrEmptyName})
		}
	}

	for _, sport := range c.Sports {
		codes := map[string]string{}
		for _, d := range sport.Disciplines {
			field := fmt.Sprintf("sports.%s.disciplines.%s", sport.Key, d.Key)
			if d.Name == "" {
				errs = append(errs, ValidationError{Field: field + ".name", Message: "discipline name is empty", Code: ErrEmptyName})
			}
			if other, ok := codes[d.Code]; ok {
				errs = append(errs, ValidationError{
					Field:   field + ".code",
					Message: fmt.Sprintf("code %q already used by %s", d.Code, other),
					Code:    ErrDuplicateCode,
				})
			}
			codes[d.Code] = d.Key

			seen := map[ParameterRef]bool{}
			for _, p := range d.Parameters {
				pfield := field + ".parameters." + p.Type
				values, ok := declared[p.Type]
				switch {
				case !ok:
					errs = append(errs, ValidationError{Field: pfield, Message: fmt.Sprintf("parameter type %q is not declared", p.Type), Code: ErrUnknownParameterType})
				case !values[p.Value]:
					errs = append(errs, ValidationError{Field: pfield, Message: fmt.Sprintf("value %q is not declared for %s", p.Value, p.Type), Code: ErrUnknownParameter})
				case seen[p]:
					errs = append(errs, ValidationError{Field: pfield, Message: fmt.Sprintf("value %q listed twice", p.Value), Code: ErrDuplicateValue})
				}
				seen[p] = true
			}
		}
	}

	return errs
}
