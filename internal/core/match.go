package core

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// FindMatch resolves a category label against the snapshot.
//
// Rules are tried in order and the first rule with any hit wins:
//  1. exact name
//  2. case-insensitive name
//  3. case-insensitive display name
//  4. case-insensitive substring in either direction on name or display name
//
// Rule 4 skips empty names and display names. A literal "either contains the
// other" test would accept them, since every string contains "", and the
// first entry lacking a display name would match any label.
//
// Within a rule the earliest entry in snapshot order is returned. The second
// return value is false when nothing matched; that is a normal outcome, not
// an error.
func FindMatch(label string, snap Snapshot) (CategorySummary, bool) {
	if label == "" || len(snap) == 0 {
		return CategorySummary{}, false
	}

	for _, c := range snap {
		if c.Name == label {
			return c, true
		}
	}

	lower := strings.ToLower(label)
	for _, c := range snap {
		if c.Name != "" && strings.ToLower(c.Name) == lower {
			return c, true
		}
	}
	for _, c := range snap {
		if c.DisplayName != "" && strings.ToLower(c.DisplayName) == lower {
			return c, true
		}
	}
	for _, c := range snap {
		if containsEither(strings.ToLower(c.Name), lower) ||
			containsEither(strings.ToLower(c.DisplayName), lower) {
			return c, true
		}
	}
	return CategorySummary{}, false
}

// containsEither reports whether candidate contains label or label contains
// candidate. An empty candidate never matches.
func containsEither(candidate, label string) bool {
	if candidate == "" {
		return false
	}
	return strings.Contains(candidate, label) || strings.Contains(label, candidate)
}

// Suggest returns the snapshot name closest to label by edit distance, for
// "did you mean" hints when FindMatch finds nothing. Names further than
// maxDistance edits away are ignored; ok is false if none qualify.
func Suggest(label string, snap Snapshot, maxDistance int) (name string, ok bool) {
	lower := strings.ToLower(strings.TrimSpace(label))
	if lower == "" {
		return "", false
	}

	type scored struct {
		name string
		dist int
	}
	var candidates []scored
	for _, c := range snap {
		if c.Name == "" {
			continue
		}
		d := levenshtein.ComputeDistance(lower, strings.ToLower(c.Name))
		if d <= maxDistance {
			candidates = append(candidates, scored{name: c.Name, dist: d})
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })
	return candidates[0].name, true
}
