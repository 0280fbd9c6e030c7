package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/roach88/normativ/internal/testutil"
)

// newTestEngine builds an engine with silent logging and sequential request ids.
func newTestEngine(f *testutil.Fixture, opts ...Option) *Engine {
	base := []Option{
		WithLogger(quietLogger()),
		WithRequestIDGenerator(testutil.NewSequenceGenerator("req")),
	}
	return New(f.Store, append(base, opts...)...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// freestyleRequest targets swimming/freestyle_100 with gender=male, distance=100m
// and the time/seconds requirement.
func freestyleRequest(t *testing.T, f *testutil.Fixture, entries ...Entry) ComposeRequest {
	t.Helper()
	return ComposeRequest{
		DisciplineID:  f.Discipline(t, "swimming/freestyle_100"),
		LinkIDs:       f.Links(t, "swimming/freestyle_100", "gender=male", "distance=100m"),
		RequirementID: f.Requirement(t, "time/seconds"),
		Entries:       entries,
	}
}

func entry(rankID int64, value string) Entry {
	return Entry{RankID: rankID, ConditionValue: value}
}
