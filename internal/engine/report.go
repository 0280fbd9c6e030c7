package engine

import (
	"github.com/roach88/normativ/internal/model"
	"github.com/roach88/normativ/internal/store"
)

// OutcomeKind classifies what happened to one entry.
type OutcomeKind string

const (
	OutcomeCreated  OutcomeKind = "created"
	OutcomeMerged   OutcomeKind = "merged"
	OutcomeRejected OutcomeKind = "rejected"
)

// RejectReason explains a rejected entry.
type RejectReason string

const (
	ReasonRankNotFound       RejectReason = "rank_not_found"
	ReasonDuplicateCondition RejectReason = "duplicate_condition"
)

// NormativeRef describes an entry that was written: either to a freshly
// created normative or merged into an existing one.
type NormativeRef struct {
	Entry          int     `json:"entry"`
	NormativeID    int64   `json:"normative_id"`
	RankID         int64   `json:"rank_id"`
	ConditionID    int64   `json:"condition_id"`
	RequirementID  int64   `json:"requirement_id"`
	ConditionValue string  `json:"condition_value"`
	AdditionalIDs  []int64 `json:"additional_requirement_ids,omitempty"`
}

// Rejection describes an entry that was not written.
type Rejection struct {
	Entry       int          `json:"entry"`
	RankID      int64        `json:"rank_id"`
	Reason      RejectReason `json:"reason"`
	NormativeID int64        `json:"normative_id,omitempty"`
}

// Outcome is the result for one entry, in input order.
// Entries with an empty condition value have no outcome.
type Outcome struct {
	Entry       int          `json:"entry"`
	Kind        OutcomeKind  `json:"kind"`
	RankID      int64        `json:"rank_id"`
	NormativeID int64        `json:"normative_id,omitempty"`
	Reason      RejectReason `json:"reason,omitempty"`
}

// ComposeReport is the result of a successful Compose.
// Created, Merged, and Rejected partition the non-empty entries.
type ComposeReport struct {
	RequestID    string             `json:"request_id"`
	DisciplineID int64              `json:"discipline_id"`
	ParameterSet model.ParameterSet `json:"parameter_set"`
	ParameterKey string             `json:"parameter_key"`
	Created      []NormativeRef     `json:"created"`
	Merged       []NormativeRef     `json:"merged"`
	Rejected     []Rejection        `json:"rejected"`
	Outcomes     []Outcome          `json:"outcomes"`
}

func newComposeReport(requestID string, disciplineID int64, ps model.ParameterSet, key string) *ComposeReport {
	return &ComposeReport{
		RequestID:    requestID,
		DisciplineID: disciplineID,
		ParameterSet: ps,
		ParameterKey: key,
		Created:      []NormativeRef{},
		Merged:       []NormativeRef{},
		Rejected:     []Rejection{},
		Outcomes:     []Outcome{},
	}
}

func (r *ComposeReport) created(ref NormativeRef) {
	r.Created = append(r.Created, ref)
	r.Outcomes = append(r.Outcomes, Outcome{Entry: ref.Entry, Kind: OutcomeCreated, RankID: ref.RankID, NormativeID: ref.NormativeID})
}

func (r *ComposeReport) merged(ref NormativeRef) {
	r.Merged = append(r.Merged, ref)
	r.Outcomes = append(r.Outcomes, Outcome{Entry: ref.Entry, Kind: OutcomeMerged, RankID: ref.RankID, NormativeID: ref.NormativeID})
}

func (r *ComposeReport) rejected(rej Rejection) {
	r.Rejected = append(r.Rejected, rej)
	r.Outcomes = append(r.Outcomes, Outcome{Entry: rej.Entry, Kind: OutcomeRejected, RankID: rej.RankID, NormativeID: rej.NormativeID, Reason: rej.Reason})
}

// NormativeIDs returns the distinct normatives written, in first-seen order.
func (r *ComposeReport) NormativeIDs() []int64 {
	seen := map[int64]bool{}
	ids := []int64{}
	for _, o := range r.Outcomes {
		if o.Kind == OutcomeRejected || seen[o.NormativeID] {
			continue
		}
		seen[o.NormativeID] = true
		ids = append(ids, o.NormativeID)
	}
	return ids
}

// DeleteReport is the result of a successful DeleteNormative.
type DeleteReport struct {
	RequestID   string             `json:"request_id"`
	NormativeID int64              `json:"normative_id"`
	Deleted     store.DeleteCounts `json:"deleted"`
}
