package catalog

import (
	"fmt"
	"sort"
)

// Symbols maps readable catalog references to database ids.
//
// Reference forms:
//   - Sports:       "swimming"
//   - Disciplines:  "swimming/freestyle_100"
//   - Links:        "swimming/freestyle_100/gender=male"
//   - Parameters:   "gender=male"
//   - Ranks:        "KMS"
//   - Requirements: "time/seconds"
type Symbols struct {
	Sports       map[string]int64 `json:"sports"`
	Disciplines  map[string]int64 `json:"disciplines"`
	Links        map[string]int64 `json:"links"`
	Parameters   map[string]int64 `json:"parameters"`
	Ranks        map[string]int64 `json:"ranks"`
	Requirements map[string]int64 `json:"requirements"`
}

func newSymbols() *Symbols {
	return &Symbols{
		Sports:       map[string]int64{},
		Disciplines:  map[string]int64{},
		Links:        map[string]int64{},
		Parameters:   map[string]int64{},
		Ranks:        map[string]int64{},
		Requirements: map[string]int64{},
	}
}

func lookup(kind string, m map[string]int64, ref string) (int64, error) {
	id, ok := m[ref]
	if !ok {
		return 0, fmt.Errorf("unknown %s %q", kind, ref)
	}
	return id, nil
}

// Sport resolves a sport reference.
func (s *Symbols) Sport(ref string) (int64, error) { return lookup("sport", s.Sports, ref) }

// Discipline resolves a "sport/discipline" reference.
func (s *Symbols) Discipline(ref string) (int64, error) {
	return lookup("discipline", s.Disciplines, ref)
}

// Link resolves a "sport/discipline/type=value" reference.
func (s *Symbols) Link(ref string) (int64, error) { return lookup("link", s.Links, ref) }

// Rank resolves a rank short name.
func (s *Symbols) Rank(ref string) (int64, error) { return lookup("rank", s.Ranks, ref) }

// Requirement resolves a "type/value" reference.
func (s *Symbols) Requirement(ref string) (int64, error) {
	return lookup("requirement", s.Requirements, ref)
}

// LinkIDs resolves several link references, stopping at the first unknown one.
func (s *Symbols) LinkIDs(refs []string) ([]int64, error) {
	ids := make([]int64, 0, len(refs))
	for _, ref := range refs {
		id, err := s.Link(ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Counts reports how many symbols of each kind are known, keyed by kind.
func (s *Symbols) Counts() map[string]int {
	return map[string]int{
		"sports":       len(s.Sports),
		"disciplines":  len(s.Disciplines),
		"links":        len(s.Links),
		"parameters":   len(s.Parameters),
		"ranks":        len(s.Ranks),
		"requirements": len(s.Requirements),
	}
}

// SortedLinks returns the link references in lexical order.
func (s *Symbols) SortedLinks() []string {
	refs := make([]string, 0, len(s.Links))
	for ref := range s.Links {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}
