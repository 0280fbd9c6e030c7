package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/normativ/internal/catalog"
	"github.com/roach88/normativ/internal/model"
	"github.com/roach88/normativ/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s %s\n", event.Step, event.Op, event.RequestID, event.Result)
	}

	return buf.String()
}

// AssertionContext provides what assertions need to inspect final state.
type AssertionContext struct {
	Ctx     context.Context
	Store   *store.Store
	Symbols *catalog.Symbols
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(ctx context.Context, st *store.Store, sym *catalog.Symbols, result *Result, assertions []Assertion) []string {
	actx := &AssertionContext{Ctx: ctx, Store: st, Symbols: sym}

	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertRowCount:
			err = assertRowCount(actx, result.Trace, a)
		case AssertNormative:
			err = assertNormative(actx, result.Trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// assertRowCount checks the number of rows in a table.
func assertRowCount(actx *AssertionContext, trace []TraceEvent, a Assertion) error {
	n, err := actx.Store.CountRows(actx.Ctx, a.Table)
	if err != nil {
		return err
	}
	if n != a.Count {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("%d rows in %s", a.Count, a.Table),
			Actual:   fmt.Sprintf("%d rows", n),
			Trace:    trace,
		}
	}
	return nil
}

// assertNormative checks the condition values of the normative identified by
// rank and exact parameter set, or its absence.
func assertNormative(actx *AssertionContext, trace []TraceEvent, a Assertion) error {
	rankID, err := actx.Symbols.Rank(a.Rank)
	if err != nil {
		return err
	}
	linkIDs, err := actx.Symbols.LinkIDs(linkRefs(a.Discipline, a.Links))
	if err != nil {
		return err
	}
	desc := fmt.Sprintf("%s normative for %s %v", a.Rank, a.Discipline, parameterLabels(a.Links))

	id, err := actx.Store.LookupNormative(actx.Ctx, rankID, model.NewParameterSet(linkIDs))
	switch {
	case errors.Is(err, store.ErrNotFound):
		if a.Absent {
			return nil
		}
		return &AssertionError{
			Type:     AssertNormative,
			Expected: desc,
			Actual:   "no such normative",
			Trace:    trace,
		}
	case err != nil:
		return err
	case a.Absent:
		return &AssertionError{
			Type:     AssertNormative,
			Expected: "no " + desc,
			Actual:   fmt.Sprintf("normative %d exists", id),
			Trace:    trace,
		}
	}

	detail, err := actx.Store.ReadNormative(actx.Ctx, id)
	if err != nil {
		return err
	}
	got := make([]string, 0, len(detail.Conditions))
	for _, c := range detail.Conditions {
		got = append(got, c.Value)
	}
	want := slices.Clone(a.Values)
	sort.Strings(got)
	sort.Strings(want)
	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     AssertNormative,
			Expected: fmt.Sprintf("%s with conditions %v", desc, want),
			Actual:   fmt.Sprintf("conditions %v", got),
			Trace:    trace,
		}
	}
	return nil
}
