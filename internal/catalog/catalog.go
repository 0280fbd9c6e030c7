package catalog

// Catalog is the decoded reference catalog. Slices keep CUE declaration
// order so that seeding assigns ids deterministically.
type Catalog struct {
	Ranks            []Rank
	ParameterTypes   []ParameterType
	RequirementTypes []RequirementType
	Sports           []Sport
}

// Rank is a sporting rank keyed by its short name.
type Rank struct {
	ShortName string
	FullName  string
	Prestige  int64
}

// ParameterType lists the allowed values of one parameter dimension.
type ParameterType struct {
	Name   string
	Values []string
}

// RequirementType groups requirements, e.g. "time" with "seconds".
type RequirementType struct {
	Name         string
	Requirements []Requirement
}

// Requirement is one measurable requirement.
type Requirement struct {
	Value       string
	Description string
}

// Sport is a sport and its disciplines.
type Sport struct {
	Key         string
	Name        string
	Disciplines []Discipline
}

// Discipline is an event within a sport and the parameter values it
// can be combined with.
type Discipline struct {
	Key        string
	Code       string
	Name       string
	Parameters []ParameterRef
}

// ParameterRef names one parameter value.
type ParameterRef struct {
	Type  string
	Value string
}

func (p ParameterRef) String() string {
	return p.Type + "=" + p.Value
}
