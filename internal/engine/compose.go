package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/normativ/internal/model"
	"github.com/roach88/normativ/internal/store"
)

// beforeClaim runs between the failed normative lookup and the claim.
// Tests use it to commit a competing normative in that window.
var beforeClaim func(ctx context.Context, rankID int64, key string)

// Compose attaches the request's entries to normatives of the request's
// parameter combination.
//
// For each entry with a non-empty condition value:
//   - an unknown rank rejects that entry only
//   - a normative with exactly the same parameter set receives the
//     condition (merged); otherwise a new normative is created
//   - an identical existing condition is a CONFLICT under PolicyReject
//     and a rejected entry under PolicySkip
//
// Validation failures, conflicts under PolicyReject, and storage failures
// return an *Error and persist nothing.
func (e *Engine) Compose(ctx context.Context, req ComposeRequest) (*ComposeReport, error) {
	requestID := e.ids.Generate()
	start := time.Now()

	report, err := e.compose(ctx, requestID, req)
	if err != nil {
		ee := classify("compose", requestID, err)
		e.metrics.observeRequest("compose", ee, time.Since(start))
		e.logger.Error("compose failed",
			"request_id", requestID,
			"code", ee.Code,
			"error", ee,
		)
		return nil, ee
	}

	e.metrics.observeRequest("compose", nil, time.Since(start))
	e.metrics.observeReport(report)
	e.logger.Info("compose committed",
		"request_id", requestID,
		"discipline_id", req.DisciplineID,
		"parameter_set", report.ParameterSet.String(),
		"created", len(report.Created),
		"merged", len(report.Merged),
		"rejected", len(report.Rejected),
	)
	return report, nil
}

func (e *Engine) compose(ctx context.Context, requestID string, req ComposeRequest) (*ComposeReport, error) {
	policy := req.Policy
	if policy == "" {
		policy = e.policy
	}
	if _, err := ParseConflictPolicy(string(policy)); err != nil {
		return nil, newValidationError("conflict_policy", "%v", err)
	}
	if err := e.checkShape(req); err != nil {
		return nil, err
	}

	ps := model.NewParameterSet(req.LinkIDs)
	key, err := model.ParameterKey(ps)
	if err != nil {
		return nil, newValidationError("ldp_ids", "%v", err)
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	var report *ComposeReport
	err = e.inTx(ctx, "compose", requestID, func(tx *store.Tx) error {
		report = newComposeReport(requestID, req.DisciplineID, ps, key)
		if err := checkReferences(ctx, tx, req, ps); err != nil {
			return err
		}
		for i, entry := range req.Entries {
			if err := e.composeEntry(ctx, tx, policy, req, i, entry, report); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// checkShape validates what can be checked without the store.
func (e *Engine) checkShape(req ComposeRequest) error {
	if req.DisciplineID <= 0 {
		return newValidationError("discipline_id", "discipline id must be positive, got %d", req.DisciplineID)
	}
	if len(req.LinkIDs) == 0 {
		return newValidationError("ldp_ids", "at least one discipline parameter is required")
	}
	if e.maxEntries > 0 && len(req.LinkIDs) > e.maxEntries {
		return newValidationError("ldp_ids", "%d discipline parameters exceed the limit of %d", len(req.LinkIDs), e.maxEntries)
	}
	if e.maxEntries > 0 && len(req.Entries) > e.maxEntries {
		return newValidationError("entries", "%d entries exceed the limit of %d", len(req.Entries), e.maxEntries)
	}
	for i, id := range req.LinkIDs {
		if id <= 0 {
			return newValidationError(fmt.Sprintf("ldp_ids[%d]", i), "discipline parameter id must be positive, got %d", id)
		}
	}
	for i, entry := range req.Entries {
		if model.NormalizeConditionValue(entry.ConditionValue) == "" {
			continue
		}
		if entry.requirementFor(req) <= 0 {
			return newValidationError(fmt.Sprintf("entries[%d].requirement_id", i), "requirement id is required")
		}
		for j, add := range entry.AdditionalRequirements {
			if add.Type == "" {
				return newValidationError(fmt.Sprintf("entries[%d].additional_requirements[%d].type", i, j), "additional requirement type is required")
			}
		}
	}
	return nil
}

// checkReferences validates catalog references before anything is written.
func checkReferences(ctx context.Context, tx *store.Tx, req ComposeRequest, ps model.ParameterSet) error {
	ok, err := tx.DisciplineExists(ctx, req.DisciplineID)
	if err != nil {
		return err
	}
	if !ok {
		return newValidationError("discipline_id", "discipline %d does not exist", req.DisciplineID)
	}

	for _, linkID := range ps {
		disciplineID, found, err := tx.LinkDiscipline(ctx, linkID)
		if err != nil {
			return err
		}
		if !found {
			return newValidationError(fmt.Sprintf("ldp_ids[%d]", indexOf(req.LinkIDs, linkID)), "discipline parameter %d does not exist", linkID)
		}
		if disciplineID != req.DisciplineID {
			return newValidationError(fmt.Sprintf("ldp_ids[%d]", indexOf(req.LinkIDs, linkID)),
				"discipline parameter %d belongs to discipline %d, not %d", linkID, disciplineID, req.DisciplineID)
		}
	}

	checked := map[int64]bool{}
	for i, entry := range req.Entries {
		if model.NormalizeConditionValue(entry.ConditionValue) == "" {
			continue
		}
		reqID := entry.requirementFor(req)
		if checked[reqID] {
			continue
		}
		ok, err := tx.RequirementExists(ctx, reqID)
		if err != nil {
			return err
		}
		if !ok {
			return newValidationError(fmt.Sprintf("entries[%d].requirement_id", i), "requirement %d does not exist", reqID)
		}
		checked[reqID] = true
	}
	return nil
}

func indexOf(ids []int64, id int64) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func (e *Engine) composeEntry(ctx context.Context, tx *store.Tx, policy ConflictPolicy, req ComposeRequest, idx int, entry Entry, report *ComposeReport) error {
	value := model.NormalizeConditionValue(entry.ConditionValue)
	if value == "" {
		return nil
	}

	ok, err := tx.RankExists(ctx, entry.RankID)
	if err != nil {
		return err
	}
	if !ok {
		report.rejected(Rejection{Entry: idx, RankID: entry.RankID, Reason: ReasonRankNotFound})
		return nil
	}

	normativeID, created, err := e.resolveNormative(ctx, tx, entry.RankID, report.ParameterSet, report.ParameterKey)
	if err != nil {
		return err
	}

	requirementID := entry.requirementFor(req)
	conditionID, inserted, err := tx.InsertCondition(ctx, normativeID, requirementID, value)
	if err != nil {
		return err
	}
	if !inserted {
		if policy == PolicySkip {
			report.rejected(Rejection{Entry: idx, RankID: entry.RankID, Reason: ReasonDuplicateCondition, NormativeID: normativeID})
			return nil
		}
		return newDuplicateConditionError(entry.RankID, normativeID, requirementID, value, report.ParameterSet)
	}

	ref := NormativeRef{
		Entry:          idx,
		NormativeID:    normativeID,
		RankID:         entry.RankID,
		ConditionID:    conditionID,
		RequirementID:  requirementID,
		ConditionValue: value,
	}
	for _, add := range entry.AdditionalRequirements {
		id, err := tx.InsertAdditionalRequirement(ctx, conditionID, add.Type, add.Value)
		if err != nil {
			return err
		}
		ref.AdditionalIDs = append(ref.AdditionalIDs, id)
	}

	if created {
		report.created(ref)
	} else {
		report.merged(ref)
	}
	return nil
}

// resolveNormative finds the rank's normative for the exact parameter set,
// creating it when none exists. created is true only for the transaction
// that inserted it.
func (e *Engine) resolveNormative(ctx context.Context, tx *store.Tx, rankID int64, ps model.ParameterSet, key string) (id int64, created bool, err error) {
	id, found, err := tx.FindNormative(ctx, rankID, key)
	if err != nil {
		return 0, false, err
	}
	if !found {
		if beforeClaim != nil {
			beforeClaim(ctx, rankID, key)
		}
		id, created, err = tx.ClaimNormative(ctx, rankID, key)
		if err != nil {
			return 0, false, err
		}
		if created {
			return id, true, tx.InsertGroups(ctx, id, ps)
		}
	}

	groups, err := tx.GroupSet(ctx, id)
	if err != nil {
		return 0, false, err
	}
	if !groups.Equal(ps) {
		return 0, false, fmt.Errorf("normative %d: groups %v do not match parameter key for %v", id, groups, ps)
	}
	return id, false, nil
}
