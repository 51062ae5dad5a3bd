// Package textsim provides token-sort and token-set similarity ratios on top
// of github.com/hbollon/go-edlib's string-distance algorithms, used anywhere
// the matching cascade needs a reordering-tolerant name comparison.
package textsim

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

// TokenSortRatio sorts the whitespace-split tokens of both strings before
// comparing, so word reordering ("Davis Atletico" vs "Atletico Davis") does
// not depress the score.
func TokenSortRatio(a, b string) float64 {
	return jaroWinkler(sortedJoin(a), sortedJoin(b))
}

// TokenSetRatio compares the intersection of tokens against each side's full
// token set, so a strict subset of words (extra qualifiers on one side)
// still scores near 1.0 — the standard fuzzywuzzy-style token-set ratio.
func TokenSetRatio(a, b string) float64 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)

	intersection := intersect(tokensA, tokensB)
	diffA := difference(tokensA, intersection)
	diffB := difference(tokensB, intersection)

	sort.Strings(intersection)
	sort.Strings(diffA)
	sort.Strings(diffB)

	base := strings.Join(intersection, " ")
	combinedA := strings.TrimSpace(base + " " + strings.Join(diffA, " "))
	combinedB := strings.TrimSpace(base + " " + strings.Join(diffB, " "))

	scores := []float64{
		jaroWinkler(base, combinedA),
		jaroWinkler(base, combinedB),
		jaroWinkler(combinedA, combinedB),
	}

	best := scores[0]
	for _, s := range scores[1:] {
		if s > best {
			best = s
		}
	}
	return best
}

func jaroWinkler(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	score, err := edlib.StringsSimilarity(a, b, edlib.JaroWinkler)
	if err != nil {
		return 0
	}
	return float64(score)
}

func sortedJoin(s string) string {
	words := strings.Fields(strings.ToLower(s))
	sort.Strings(words)
	return strings.Join(words, " ")
}

func tokenSet(s string) []string {
	words := strings.Fields(strings.ToLower(s))
	seen := make(map[string]bool, len(words))
	var out []string
	for _, w := range words {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

func intersect(a, b []string) []string {
	setB := make(map[string]bool, len(b))
	for _, w := range b {
		setB[w] = true
	}
	var out []string
	for _, w := range a {
		if setB[w] {
			out = append(out, w)
		}
	}
	return out
}

func difference(a, remove []string) []string {
	setR := make(map[string]bool, len(remove))
	for _, w := range remove {
		setR[w] = true
	}
	var out []string
	for _, w := range a {
		if !setR[w] {
			out = append(out, w)
		}
	}
	return out
}
