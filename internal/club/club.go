// Package club canonicalizes raw club-name strings against a registry of
// known clubs and their variant surface forms.
package club

import (
	"regexp"
	"strings"
	"sync"

	"stormlightlabs.org/rankcore/internal/textsim"
)

// Result is the outcome of canonicalizing a raw club-name string.
type Result struct {
	CanonicalID string // "" if unresolved
	Display     string
	Confidence  float64
}

// Registry holds canonical club ids mapped to their known variant surface
// forms, loaded at startup from the repository (same preload shape as the
// alias cache in C4).
type Registry struct {
	mu       sync.RWMutex
	variants map[string]string   // normalized variant -> canonical id
	display  map[string]string   // canonical id -> display name
	byID     map[string][]string // canonical id -> all known variants (for similarity scan)
}

// NewRegistry creates an empty club registry.
func NewRegistry() *Registry {
	return &Registry{
		variants: make(map[string]string),
		display:  make(map[string]string),
		byID:     make(map[string][]string),
	}
}

// Load adds the display name and variants for canonicalID, appending to any
// variants already loaded for it; entries for other ids are kept.
func (r *Registry) Load(canonicalID, displayName string, variants []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.display[canonicalID] = displayName
	r.byID[canonicalID] = append(r.byID[canonicalID], variants...)
	for _, v := range variants {
		r.variants[normalizeClubString(v)] = canonicalID
	}
	r.variants[normalizeClubString(displayName)] = canonicalID
}

var (
	cityAbbrevs = map[string]string{
		"ft": "fort",
		"st": "saint",
		"mt": "mount",
	}
	clubPunctuation = regexp.MustCompile(`[^a-z0-9\s]+`)
	whitespaceRe    = regexp.MustCompile(`\s+`)

	// clubAgeYearRe strips age/year tokens (U14, 2014, 14B, B14, 2014B, B2014)
	// that ride along on a club name so "FC Dallas 2014" and "FC Dallas" share
	// one canonical form.
	clubAgeYearRe = regexp.MustCompile(`\b(?:u-?\d{2}|\d{4}[bgmf]?|[bgmf]\d{4}|\d{2}[bgmf]|[bgmf]\d{2})\b`)
)

// suffixMap implements non-stripping suffix canonicalization: the suffix is
// rewritten to its canonical abbreviation, never removed, so "FC Arkansas"
// (prefix) and "Arkansas SC" (suffix) never collapse into each other.
var suffixMap = []struct {
	from string
	to   string
}{
	{"soccer club", "sc"},
	{"football club", "fc"},
	{"f.c.", "fc"},
	{"s.c.", "sc"},
}

// normalizeClubString lowercases, strips age/year tokens and punctuation,
// expands city abbreviations, and applies non-stripping suffix
// canonicalization. It also deduplicates repeated whole-word occurrences
// (catches doubled names from source data, e.g. "Dallas Dallas SC").
func normalizeClubString(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = clubAgeYearRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	for _, suf := range suffixMap {
		if strings.HasSuffix(s, suf.from) {
			s = strings.TrimSuffix(s, suf.from) + suf.to
		}
	}
	s = clubPunctuation.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	words := strings.Fields(s)
	out := make([]string, 0, len(words))
	seen := map[int]bool{}
	for i, w := range words {
		if expanded, ok := cityAbbrevs[w]; ok {
			w = expanded
		}
		if i > 0 && words[i-1] == words[i] {
			seen[i] = true
		}
	}
	for i, w := range words {
		if seen[i] {
			continue
		}
		if expanded, ok := cityAbbrevs[w]; ok {
			w = expanded
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

// minClubLength guards against near-empty club name fragments.
const minClubLength = 3

// similarityAcceptThreshold is the token-set similarity gate for a fuzzy match.
const similarityAcceptThreshold = 0.85

// Canonicalize resolves a raw club-name string to a canonical id: exact
// lookup, then token-set similarity against each canonical's variants
// (accept at >= 0.85), then a normalized-form fallback with confidence 0.8.
func (r *Registry) Canonicalize(input string) Result {
	normalized := normalizeClubString(input)
	if len(normalized) < minClubLength {
		return Result{Display: normalized, Confidence: 0}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if id, ok := r.variants[normalized]; ok {
		return Result{CanonicalID: id, Display: r.display[id], Confidence: 1.0}
	}

	bestID := ""
	bestScore := 0.0
	for id, variants := range r.byID {
		for _, v := range variants {
			score := textsim.TokenSetRatio(normalized, normalizeClubString(v))
			if score > bestScore {
				bestScore = score
				bestID = id
			}
		}
	}

	if bestScore >= similarityAcceptThreshold {
		return Result{CanonicalID: bestID, Display: r.display[bestID], Confidence: bestScore}
	}

	return Result{Display: normalized, Confidence: 0.8}
}

// Similarity scores two already-normalized club strings using a token-set
// ratio, per §4.3 ("not a longest-common-subsequence ratio").
func Similarity(a, b string) float64 {
	return textsim.TokenSetRatio(normalizeClubString(a), normalizeClubString(b))
}
