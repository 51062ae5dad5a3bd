// Package normalize implements the pure tokenization and age/gender parsing
// shared by every later stage of team-identity resolution.
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"stormlightlabs.org/rankcore/internal/core"
)

// Tokens is the normalized, whitespace-split token sequence of a team or club
// name after league/tier stripping, hyphen replacement, and punctuation removal.
type Tokens struct {
	Raw    string
	Words  []string
	Age    string // "u10".."u18", or "" if not found
	Gender core.Gender
}

// leagueMarkers is stripped before any splitting. Longer markers are matched
// first so "PRE-ECNL" never falls through to a lone "ECNL" match.
var leagueMarkers = []string{
	"pre_ecnl", "ecnl_rl", "mls_next",
	"pre-ecnl", "ecnl-rl", "mls next", "mls-next",
	"ecnl", "ecrl", "npl", "dplo", "dpl", "comp",
	"academy", "select", "premier", "elite", "ga",
}

// compoundBigrams are joined with an underscore before tokenization so later
// stages treat them as one token rather than losing the pairing on split.
var compoundBigrams = [][2]string{
	{"ecnl", "rl"},
	{"mls", "next"},
	{"pre", "ecnl"},
}

var (
	punctuationRe = regexp.MustCompile(`[^a-z0-9'\s_]+`)
	whitespaceRe  = regexp.MustCompile(`\s+`)

	// uHyphenAgeRe closes up "u-14"/"u-14b" before hyphens become spaces.
	uHyphenAgeRe = regexp.MustCompile(`\bu-(\d{2}[bgmf]?)\b`)

	// Age/gender surface forms, longest/most-specific first.
	// Examples covered: 14B, B14, 2014B, B2014, U14B, BU14, U-14, U14, 14,
	// 15M, 2014 Boys, G2016, 2016G.
	ageGenderPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^u-?(\d{2})([bgmf])$`),  // U14B, U-14B
		regexp.MustCompile(`^([bgmf])u(\d{2})$`),    // BU14
		regexp.MustCompile(`^u-?(\d{2})$`),          // U14, U-14
		regexp.MustCompile(`^(\d{4})([bgmf])$`),     // 2014B
		regexp.MustCompile(`^([bgmf])(\d{4})$`),     // B2014
		regexp.MustCompile(`^(\d{2})([bgmf])$`),     // 14B
		regexp.MustCompile(`^([bgmf])(\d{2})$`),     // B14
		regexp.MustCompile(`^(\d{4})$`),             // 2014 (paired with standalone gender word)
		regexp.MustCompile(`^(\d{2})$`),             // 14
	}

	// ageGenderPatternIsULiteral is index-aligned with ageGenderPatterns: true
	// for the surface forms that actually spell out a "u", the only forms the
	// spec treats as a direct U-age rather than a birth year.
	ageGenderPatternIsULiteral = []bool{true, true, true, false, false, false, false, false, false}

	standaloneGender = map[string]core.Gender{
		"boys": core.GenderMale, "boy": core.GenderMale, "b": core.GenderMale, "m": core.GenderMale, "male": core.GenderMale,
		"girls": core.GenderFemale, "girl": core.GenderFemale, "g": core.GenderFemale, "f": core.GenderFemale, "female": core.GenderFemale,
	}
)

// Normalize applies the §4.1 pipeline: lowercase/strip, compound-bigram
// joining, league-marker stripping (joined bigrams included), hyphen
// replacement (a "U-14" age is closed up to "u14" first), punctuation
// removal, and age/gender extraction. Fails only on a null/empty input.
func Normalize(raw string) (Tokens, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Tokens{}, &core.NormalizationError{Reason: "empty team name"}
	}

	s := strings.ToLower(trimmed)
	s = joinCompoundBigrams(s)
	s = stripLeagueMarkers(s)
	s = uHyphenAgeRe.ReplaceAllString(s, "u$1")
	s = strings.ReplaceAll(s, "-", " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = punctuationRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	words := strings.Fields(s)

	age, gender, kept := extractAgeGender(words)

	return Tokens{Raw: trimmed, Words: kept, Age: age, Gender: gender}, nil
}

func joinCompoundBigrams(s string) string {
	for _, pair := range compoundBigrams {
		a, b := pair[0], pair[1]
		s = regexp.MustCompile(`\b`+a+`[\s-]+`+b+`\b`).ReplaceAllString(s, a+"_"+b)
	}
	return s
}

func stripLeagueMarkers(s string) string {
	for _, m := range leagueMarkers {
		pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(m) + `\b`)
		s = pattern.ReplaceAllString(s, " ")
	}
	return s
}

// extractAgeGender scans tokens for a recognized age/gender surface form,
// removing it (and any standalone gender word) from the kept word stream.
func extractAgeGender(words []string) (age string, gender core.Gender, kept []string) {
	kept = make([]string, 0, len(words))

	for i, w := range words {
		if g, ok := standaloneGender[w]; ok && age != "" {
			gender = g
			continue
		}

		if a, g, matched := matchAgeGenderToken(w); matched {
			age = a
			if g != "" {
				gender = g
			}
			continue
		}

		if g, ok := standaloneGender[w]; ok {
			// Peek: only consume as gender if a year/age token is adjacent,
			// otherwise it is a generic "boys club" style word and kept.
			if i+1 < len(words) {
				if _, _, next := matchAgeGenderToken(words[i+1]); next {
					gender = g
					continue
				}
			}
		}

		kept = append(kept, w)
	}

	return age, gender, kept
}

func matchAgeGenderToken(w string) (age string, gender core.Gender, ok bool) {
	for i, re := range ageGenderPatterns {
		m := re.FindStringSubmatch(w)
		if m == nil {
			continue
		}
		return decodeAgeGenderMatch(m, ageGenderPatternIsULiteral[i])
	}
	return "", "", false
}

func decodeAgeGenderMatch(m []string, isULiteral bool) (string, core.Gender, bool) {
	var numPart, genderPart string
	for _, part := range m[1:] {
		if part == "" {
			continue
		}
		if _, err := strconv.Atoi(part); err == nil {
			numPart = part
		} else {
			genderPart = part
		}
	}
	if numPart == "" {
		return "", "", false
	}

	gender := core.Gender("")
	if genderPart != "" {
		if g, ok := standaloneGender[genderPart]; ok {
			gender = g
		}
	}

	age := ageFromNumeric(numPart, isULiteral)
	if age == "" {
		return "", "", false
	}
	return age, gender, true
}

// ageFromNumeric converts a matched number into a U-age. A literal "u"
// prefix in the surface form (isULiteral) classifies the number directly as
// a U-age; every other numeric form is a birth year (2-digit years expand
// via the sliding window, 4-digit years convert directly) per §4.1.
func ageFromNumeric(numStr string, isULiteral bool) string {
	n, err := strconv.Atoi(numStr)
	if err != nil {
		return ""
	}

	if isULiteral {
		if n >= 8 && n <= 19 {
			return "u" + numStr
		}
		return ""
	}

	switch len(numStr) {
	case 2:
		return yearToUAge(expandTwoDigitYear(n))
	case 4:
		return yearToUAge(n)
	}
	return ""
}

// expandTwoDigitYear expands a 2-digit birth year into a full year, assuming
// the cohort is always from the most recent ~19 birth years.
func expandTwoDigitYear(n int) int {
	if n <= 18 {
		return 2000 + n
	}
	return 1900 + n
}

// CurrentSeasonYear anchors birth-year -> U-age conversion. Exported so
// callers (and tests) can pin the season without depending on wall-clock time.
var CurrentSeasonYear = 2025

func yearToUAge(birthYear int) string {
	age := CurrentSeasonYear - birthYear
	if age < 8 || age > 19 {
		return ""
	}
	return "u" + strconv.Itoa(age)
}
