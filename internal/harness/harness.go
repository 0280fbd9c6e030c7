package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/roach88/normativ/internal/catalog"
	"github.com/roach88/normativ/internal/engine"
	"github.com/roach88/normativ/internal/model"
	"github.com/roach88/normativ/internal/store"
	"github.com/roach88/normativ/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios against a real engine with sequential request ids.
type Harness struct {
	store     *store.Store
	engine    *engine.Engine
	symbols   *catalog.Symbols
	rankNames map[int64]string
	logger    *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, so
// database ids and request ids ("req-1", "req-2", ...) are reproducible.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load, validate and seed the scenario's catalog
// 3. Execute steps, checking each expect clause
// 4. Evaluate assertions against the final state
//
// A returned error means the scenario itself is broken (unreadable catalog,
// unknown references); expectation failures are reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	cat, err := catalog.Load(scenario.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	sym, err := catalog.Seed(ctx, st, cat)
	if err != nil {
		return nil, fmt.Errorf("failed to seed catalog: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	h := &Harness{
		store: st,
		engine: engine.New(st,
			engine.WithConflictPolicy(policyOrDefault(scenario.Policy)),
			engine.WithLogger(logger),
			engine.WithRequestIDGenerator(testutil.NewSequenceGenerator("req")),
		),
		symbols:   sym,
		rankNames: make(map[int64]string, len(sym.Ranks)),
		logger:    logger,
	}
	for name, id := range sym.Ranks {
		h.rankNames[id] = name
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute step %d: %w", i, err)
		}
	}

	for _, msg := range EvaluateAssertions(ctx, st, sym, result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

func policyOrDefault(p engine.ConflictPolicy) engine.ConflictPolicy {
	if p == "" {
		return engine.PolicyReject
	}
	return p
}

func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	var ev TraceEvent
	var err error
	if step.Compose != nil {
		ev, err = h.executeCompose(ctx, i, step.Compose)
	} else {
		ev, err = h.executeDelete(ctx, i, step.Delete)
	}
	if err != nil {
		return err
	}
	result.AddTrace(ev)

	for _, msg := range checkExpect(i, step.Expect, ev) {
		result.AddError(msg)
	}

	h.logger.Info("step completed",
		"step", i,
		"op", ev.Op,
		"request_id", ev.RequestID,
		"result", ev.Result,
	)
	return nil
}

func (h *Harness) executeCompose(ctx context.Context, i int, c *ComposeStep) (TraceEvent, error) {
	req, err := h.composeRequest(c)
	if err != nil {
		return TraceEvent{}, err
	}

	report, err := h.engine.Compose(ctx, req)
	ev := TraceEvent{Step: i, Op: "compose", ParameterSet: parameterLabels(c.Links)}
	if err != nil {
		return errorEvent(ev, err)
	}

	ev.RequestID = report.RequestID
	ev.Result = "ok"

	refs := map[int]engine.NormativeRef{}
	for _, ref := range report.Created {
		refs[ref.Entry] = ref
	}
	for _, ref := range report.Merged {
		refs[ref.Entry] = ref
	}
	ev.Outcomes = make([]OutcomeEvent, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		oe := OutcomeEvent{
			Entry:       o.Entry,
			Kind:        string(o.Kind),
			NormativeID: o.NormativeID,
			Reason:      string(o.Reason),
			Value:       refs[o.Entry].ConditionValue,
		}
		if name, ok := h.rankNames[o.RankID]; ok {
			oe.Rank = name
		} else {
			oe.RankID = o.RankID
		}
		ev.Outcomes = append(ev.Outcomes, oe)
	}
	return ev, nil
}

func (h *Harness) composeRequest(c *ComposeStep) (engine.ComposeRequest, error) {
	disciplineID, err := h.symbols.Discipline(c.Discipline)
	if err != nil {
		return engine.ComposeRequest{}, err
	}
	linkIDs, err := h.symbols.LinkIDs(linkRefs(c.Discipline, c.Links))
	if err != nil {
		return engine.ComposeRequest{}, err
	}
	req := engine.ComposeRequest{
		DisciplineID: disciplineID,
		LinkIDs:      linkIDs,
		Policy:       c.Policy,
	}
	if c.Requirement != "" {
		if req.RequirementID, err = h.symbols.Requirement(c.Requirement); err != nil {
			return engine.ComposeRequest{}, err
		}
	}

	for _, spec := range c.Entries {
		entry := engine.Entry{RankID: spec.RankID, ConditionValue: spec.Value}
		if spec.Rank != "" {
			if entry.RankID, err = h.symbols.Rank(spec.Rank); err != nil {
				return engine.ComposeRequest{}, err
			}
		}
		if spec.Requirement != "" {
			if entry.RequirementID, err = h.symbols.Requirement(spec.Requirement); err != nil {
				return engine.ComposeRequest{}, err
			}
		}
		for _, add := range spec.Additional {
			entry.AdditionalRequirements = append(entry.AdditionalRequirements, engine.AdditionalRequirement{Type: add.Type, Value: add.Value})
		}
		req.Entries = append(req.Entries, entry)
	}
	return req, nil
}

func (h *Harness) executeDelete(ctx context.Context, i int, d *DeleteStep) (TraceEvent, error) {
	id := d.NormativeID
	if id == 0 {
		var err error
		if id, err = h.resolveNormative(ctx, d.Rank, d.Discipline, d.Links); err != nil {
			return TraceEvent{}, err
		}
	}

	ev := TraceEvent{Step: i, Op: "delete", NormativeID: id}
	report, err := h.engine.DeleteNormative(ctx, id)
	if err != nil {
		return errorEvent(ev, err)
	}
	ev.RequestID = report.RequestID
	ev.Result = "ok"
	ev.Deleted = &report.Deleted
	return ev, nil
}

// resolveNormative returns the id of the rank's normative for the links,
// or 0 when there is none.
func (h *Harness) resolveNormative(ctx context.Context, rank, discipline string, links []string) (int64, error) {
	rankID, err := h.symbols.Rank(rank)
	if err != nil {
		return 0, err
	}
	linkIDs, err := h.symbols.LinkIDs(linkRefs(discipline, links))
	if err != nil {
		return 0, err
	}
	id, err := h.store.LookupNormative(ctx, rankID, model.NewParameterSet(linkIDs))
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	return id, err
}

// errorEvent records an engine failure. Anything but an engine error aborts
// the scenario.
func errorEvent(ev TraceEvent, err error) (TraceEvent, error) {
	var ee *engine.Error
	if !errors.As(err, &ee) {
		return TraceEvent{}, err
	}
	ev.RequestID = ee.RequestID
	ev.Result = string(ee.Code)
	ev.Field = ee.Field
	ev.ParameterSet = nil
	return ev, nil
}

func linkRefs(discipline string, links []string) []string {
	refs := make([]string, len(links))
	for i, l := range links {
		refs[i] = discipline + "/" + l
	}
	return refs
}

func parameterLabels(links []string) []string {
	seen := map[string]bool{}
	labels := make([]string, 0, len(links))
	for _, l := range links {
		if !seen[l] {
			seen[l] = true
			labels = append(labels, l)
		}
	}
	sort.Strings(labels)
	return labels
}

// checkExpect compares a step event with its expect clause.
func checkExpect(i int, exp *Expect, ev TraceEvent) []string {
	var errs []string
	wantResult := "ok"
	if exp != nil && exp.Error != "" {
		wantResult = string(exp.Error)
	}
	if ev.Result != wantResult {
		errs = append(errs, fmt.Sprintf("steps[%d]: expected %s, got %s", i, wantResult, ev.Result))
		return errs
	}
	if exp == nil {
		return nil
	}

	if exp.Field != "" && exp.Field != ev.Field {
		errs = append(errs, fmt.Sprintf("steps[%d]: expected error field %q, got %q", i, exp.Field, ev.Field))
	}

	counts := map[string]int{}
	for _, o := range ev.Outcomes {
		counts[o.Kind]++
	}
	for kind, want := range map[string]*int{
		string(engine.OutcomeCreated):  exp.Created,
		string(engine.OutcomeMerged):   exp.Merged,
		string(engine.OutcomeRejected): exp.Rejected,
	} {
		if want != nil && counts[kind] != *want {
			errs = append(errs, fmt.Sprintf("steps[%d]: expected %d %s, got %d", i, *want, kind, counts[kind]))
		}
	}

	if exp.Deleted != nil {
		var got int64
		if ev.Deleted != nil {
			got = ev.Deleted.Conditions
		}
		if got != *exp.Deleted {
			errs = append(errs, fmt.Sprintf("steps[%d]: expected %d deleted conditions, got %d", i, *exp.Deleted, got))
		}
	}
	sort.Strings(errs)
	return errs
}
