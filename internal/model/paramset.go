package model

import (
	"slices"
	"strconv"
	"strings"
)

// ParameterSet is a sorted, duplicate-free set of link ids.
// It is the identity of a normative's parameter combination.
type ParameterSet []int64

// NewParameterSet builds a ParameterSet from ids in any order.
// Duplicates are collapsed. The input slice is not modified.
func NewParameterSet(ids []int64) ParameterSet {
	ps := make(ParameterSet, len(ids))
	copy(ps, ids)
	slices.Sort(ps)
	return slices.Compact(ps)
}

// Equal reports whether both sets contain exactly the same ids.
func (ps ParameterSet) Equal(other ParameterSet) bool {
	return slices.Equal(ps, other)
}

func (ps ParameterSet) String() string {
	parts := make([]string, len(ps))
	for i, id := range ps {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
