package reconcile

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

type candidate struct {
	ID   string
	Name string
}

type matchKind string

const (
	matchExact     matchKind = "exact"
	matchSubstring matchKind = "substring"
	matchSynonym   matchKind = "synonym"
	matchFuzzy     matchKind = "fuzzy"
)

// bestMatch resolves value against candidates, trying exact name equality,
// substring containment in either direction, synonyms, then edit distance.
// A fuzzy hit must be within threshold times the longer string's length.
func bestMatch(value string, candidates []candidate, synonyms map[string][]string, threshold float64) (candidate, matchKind, bool) {
	needle := fold(value)
	if needle == "" || len(candidates) == 0 {
		return candidate{}, "", false
	}

	for _, c := range candidates {
		if fold(c.Name) == needle {
			return c, matchExact, true
		}
	}

	var (
		best     candidate
		bestDiff = -1
	)
	for _, c := range candidates {
		name := fold(c.Name)
		if name == "" || !(strings.Contains(name, needle) || strings.Contains(needle, name)) {
			continue
		}
		diff := abs(len(name) - len(needle))
		if bestDiff < 0 || diff < bestDiff {
			best, bestDiff = c, diff
		}
	}
	if bestDiff >= 0 {
		return best, matchSubstring, true
	}

	names := make([]string, 0, len(synonyms))
	for canonical := range synonyms {
		names = append(names, canonical)
	}
	sort.Strings(names)
	for _, canonical := range names {
		for _, alias := range synonyms[canonical] {
			if fold(alias) != needle {
				continue
			}
			for _, c := range candidates {
				if fold(c.Name) == fold(canonical) {
					return c, matchSynonym, true
				}
			}
		}
	}

	bestDist := -1
	for _, c := range candidates {
		name := fold(c.Name)
		dist := fuzzy.LevenshteinDistance(needle, name)
		longer := len([]rune(name))
		if n := len([]rune(needle)); n > longer {
			longer = n
		}
		if float64(dist) > threshold*float64(longer) {
			continue
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = c, dist
		}
	}
	if bestDist >= 0 {
		return best, matchFuzzy, true
	}
	return candidate{}, "", false
}

func fold(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
