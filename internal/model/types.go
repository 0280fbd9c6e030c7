package model

// Rank is a sporting rank such as "KMS" or "MS".
// Higher Prestige means a more senior rank.
type Rank struct {
	ID        int64  `json:"id"`
	ShortName string `json:"short_name"`
	FullName  string `json:"full_name"`
	Prestige  int64  `json:"prestige"`
}

// Link associates one parameter value with one discipline.
type Link struct {
	ID           int64 `json:"id"`
	DisciplineID int64 `json:"discipline_id"`
	ParameterID  int64 `json:"parameter_id"`
}

// LinkedParameter is a Link resolved to its parameter type and value.
type LinkedParameter struct {
	LinkID      int64  `json:"link_id"`
	ParameterID int64  `json:"parameter_id"`
	Type        string `json:"type"`
	Value       string `json:"value"`
}

// Label renders the parameter as "type: value".
func (p LinkedParameter) Label() string {
	return p.Type + ": " + p.Value
}

// Normative is a rank bound to an exact parameter set.
type Normative struct {
	ID           int64        `json:"id"`
	RankID       int64        `json:"rank_id"`
	ParameterKey string       `json:"parameter_key"`
	ParameterSet ParameterSet `json:"parameter_set"`
}

// Condition is one achievement threshold attached to a normative.
type Condition struct {
	ID            int64  `json:"id"`
	NormativeID   int64  `json:"normative_id"`
	RequirementID int64  `json:"requirement_id"`
	Value         string `json:"condition_value"`
}

// AdditionalRequirement qualifies a condition, e.g. wind speed or pool length.
type AdditionalRequirement struct {
	ID          int64  `json:"id"`
	ConditionID int64  `json:"condition_id"`
	Type        string `json:"type"`
	Value       string `json:"value"`
}

// NormativeDetail is a normative with everything reachable from it.
type NormativeDetail struct {
	ID             int64             `json:"id"`
	ParameterKey   string            `json:"parameter_key,omitempty"`
	Rank           Rank              `json:"rank"`
	DisciplineID   int64             `json:"discipline_id"`
	DisciplineName string            `json:"discipline_name"`
	Parameters     []LinkedParameter `json:"parameters"`
	Conditions     []ConditionDetail `json:"conditions"`
}

// ParameterSet returns the link ids of the normative's groups.
func (d NormativeDetail) ParameterSet() ParameterSet {
	ids := make([]int64, len(d.Parameters))
	for i, p := range d.Parameters {
		ids[i] = p.LinkID
	}
	return NewParameterSet(ids)
}

// ConditionDetail is a condition resolved to its requirement.
type ConditionDetail struct {
	ID                     int64                   `json:"id"`
	RequirementID          int64                   `json:"requirement_id"`
	Requirement            string                  `json:"requirement"`
	RequirementDescription string                  `json:"requirement_description"`
	Value                  string                  `json:"condition_value"`
	Additional             []AdditionalRequirement `json:"additional_requirements,omitempty"`
}

// SportNormativeRow is one line of the per-sport normative report.
type SportNormativeRow struct {
	SportName      string `json:"sport_name"`
	DisciplineID   int64  `json:"discipline_id"`
	DisciplineName string `json:"discipline_name"`
	DisciplineCode string `json:"discipline_code"`
	Parameters     string `json:"parameters"`
	NormativeID    int64  `json:"normative_id"`
	RankShortName  string `json:"rank_short_name"`
	RankFullName   string `json:"rank_full_name"`
	Prestige       int64  `json:"prestige"`
	Requirement    string `json:"requirement"`
	Description    string `json:"requirement_description"`
	ConditionValue string `json:"condition_value"`
}
