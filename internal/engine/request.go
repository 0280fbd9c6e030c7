package engine

import (
	"fmt"
)

// ConflictPolicy decides what happens when an entry's condition already
// exists on the target normative.
type ConflictPolicy string

const (
	// PolicyReject aborts the whole request with a CONFLICT error.
	PolicyReject ConflictPolicy = "reject"

	// PolicySkip records the entry as rejected and continues.
	PolicySkip ConflictPolicy = "skip"
)

// ParseConflictPolicy validates a policy name. Empty means PolicyReject.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch ConflictPolicy(s) {
	case "", PolicyReject:
		return PolicyReject, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("unknown conflict policy %q (want reject or skip)", s)
	}
}

// ComposeRequest asks the engine to attach entries to the normatives of one
// discipline's parameter combination.
type ComposeRequest struct {
	// DisciplineID is the discipline every link must belong to.
	DisciplineID int64 `json:"discipline_id" yaml:"discipline_id"`

	// LinkIDs is the parameter combination. Order and duplicates don't matter.
	LinkIDs []int64 `json:"ldp_ids" yaml:"ldp_ids"`

	// RequirementID applies to entries that don't carry their own.
	RequirementID int64 `json:"requirement_id,omitempty" yaml:"requirement_id,omitempty"`

	// Entries are processed in order.
	Entries []Entry `json:"entries" yaml:"entries"`

	// Policy overrides the engine's default conflict policy.
	Policy ConflictPolicy `json:"conflict_policy,omitempty" yaml:"conflict_policy,omitempty"`
}

// Entry is one (rank, condition) pair.
type Entry struct {
	RankID                 int64                   `json:"rank_id" yaml:"rank_id"`
	RequirementID          int64                   `json:"requirement_id,omitempty" yaml:"requirement_id,omitempty"`
	ConditionValue         string                  `json:"condition_value" yaml:"condition_value"`
	AdditionalRequirements []AdditionalRequirement `json:"additional_requirements,omitempty" yaml:"additional_requirements,omitempty"`
}

// AdditionalRequirement qualifies the entry's condition.
type AdditionalRequirement struct {
	Type  string `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
}

// requirementFor resolves the entry's requirement against the request default.
func (e Entry) requirementFor(req ComposeRequest) int64 {
	if e.RequirementID != 0 {
		return e.RequirementID
	}
	return req.RequirementID
}
