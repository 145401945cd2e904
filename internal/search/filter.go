// Package search filters and ranks suggestions against the text typed into
// the palette. Exact and prefix matches beat substring matches, which beat
// close edit-distance matches; within one tier the incoming (already
// ranked) order is preserved.
package search

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/oakwood-commons/cmdk/pkg/command"
)

// match tiers, lower is better.
const (
	tierExact = iota
	tierPrefix
	tierWordPrefix
	tierSubstring
	tierFuzzy
	tierMiss
)

// fuzzyThreshold is the maximum normalized edit distance (distance divided
// by the longer length) still considered a match.
const fuzzyThreshold = 0.4

// Filter returns the suggestions matching query, best tier first; a
// suggestion matches on its display name, breadcrumb, or any keyword. An
// empty query returns the input unchanged.
func Filter(suggestions []command.Suggestion, query string) []command.Suggestion {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return suggestions
	}

	buckets := make([][]command.Suggestion, tierMiss)
	for _, s := range suggestions {
		t := suggestionTier(s, query)
		if t == tierMiss {
			continue
		}
		buckets[t] = append(buckets[t], s)
	}

	var out []command.Suggestion
	for _, b := range buckets {
		out = append(out, b...)
	}
	return out
}

func suggestionTier(s command.Suggestion, query string) int {
	best := tierMiss
	candidates := make([]string, 0, len(s.Keywords)+2)
	candidates = append(candidates, s.Name)
	if s.ParentName != "" {
		candidates = append(candidates, s.DisplayName())
	}
	candidates = append(candidates, s.Keywords...)

	for _, c := range candidates {
		if t := tier(strings.ToLower(c), query); t < best {
			best = t
		}
	}
	return best
}

func tier(text, query string) int {
	switch {
	case text == query:
		return tierExact
	case strings.HasPrefix(text, query):
		return tierPrefix
	}
	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, query) {
			return tierWordPrefix
		}
	}
	if strings.Contains(text, query) {
		return tierSubstring
	}
	if fuzzyMatch(text, query) {
		return tierFuzzy
	}
	return tierMiss
}

// fuzzyMatch accepts text when the query is within fuzzyThreshold of the
// text (or of any of its words).
func fuzzyMatch(text, query string) bool {
	if withinDistance(text, query) {
		return true
	}
	for _, word := range strings.Fields(text) {
		if withinDistance(word, query) {
			return true
		}
	}
	return false
}

func withinDistance(a, b string) bool {
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	if longer == 0 {
		return false
	}
	dist := levenshtein.ComputeDistance(a, b)
	return float64(dist)/float64(longer) < fuzzyThreshold
}
