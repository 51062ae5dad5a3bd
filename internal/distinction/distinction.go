// Package distinction decomposes a normalized team name into the ten
// structural feature sets used for hard-rejection in the matching cascade.
// Distinctions are never used to add positive score, only to veto a
// candidate pair outright.
package distinction

import (
	"regexp"
	"strconv"
	"strings"

	"stormlightlabs.org/rankcore/internal/normalize"
)

// Distinctions is the result of the four-pass classification over a token
// stream. Every field is a set (order-independent for comparison purposes).
type Distinctions struct {
	Colors         []string
	Directions     []string
	Programs       []string
	TeamNumber     string // roman numeral or trailing arabic digit, "" if none
	LocationCodes  []string
	StateCodes     []string
	SquadWords     []string
	AgeTokens      []string
	SecondaryNums  []string
	CoachName      string
}

var colorVocab = map[string]bool{
	"red": true, "blue": true, "black": true, "white": true, "green": true,
	"gold": true, "orange": true, "purple": true, "maroon": true, "navy": true,
	"silver": true, "gray": true, "grey": true, "yellow": true, "teal": true,
	"crimson": true, "scarlet": true, "royal": true, "burgundy": true,
}

var directionVocab = map[string]bool{
	"north": true, "south": true, "east": true, "west": true,
	"nw": true, "ne": true, "sw": true, "se": true,
}

var romanNumerals = map[string]bool{
	"i": true, "ii": true, "iii": true, "iv": true, "v": true,
	"vi": true, "vii": true, "viii": true,
}

var stateCodes = map[string]bool{
	"al": true, "ak": true, "az": true, "ar": true, "ca": true, "co": true,
	"ct": true, "de": true, "fl": true, "ga": true, "hi": true, "id": true,
	"il": true, "in": true, "ia": true, "ks": true, "ky": true, "la": true,
	"me": true, "md": true, "ma": true, "mi": true, "mn": true, "ms": true,
	"mo": true, "mt": true, "ne": true, "nv": true, "nh": true, "nj": true,
	"nm": true, "ny": true, "nc": true, "nd": true, "oh": true, "ok": true,
	"or": true, "pa": true, "ri": true, "sc": true, "sd": true, "tn": true,
	"tx": true, "ut": true, "vt": true, "va": true, "wa": true, "wv": true,
	"wi": true, "wy": true,
}

// commonWords, regionNames, and programNames are the three exclusion sets
// filtering coach-name candidates (§9 design note: coach-name detection is
// the residue after these sets are applied, not a separate classifier).
var commonWords = map[string]bool{
	"united": true, "city": true, "soccer": true, "club": true, "fc": true,
	"sc": true, "academy": true, "select": true, "premier": true, "elite": true,
	"futbol": true, "football": true, "athletic": true, "rangers": true,
	"rovers": true, "dynamo": true, "galaxy": true, "fire": true, "revolution": true,
	"wave": true, "surf": true, "rush": true, "storm": true, "force": true,
	"thunder": true, "alliance": true, "classics": true, "strikers": true,
	"legacy": true, "heat": true, "crew": true, "blast": true, "rapids": true,
}

var regionNames = map[string]bool{
	"dallas": true, "houston": true, "austin": true, "atlanta": true,
	"chicago": true, "denver": true, "phoenix": true, "seattle": true,
	"portland": true, "boston": true, "orlando": true, "miami": true,
	"northeast": true, "southeast": true, "midwest": true, "northwest": true,
	"southwest": true, "valley": true, "metro": true, "coastal": true,
}

var programNames = map[string]bool{
	"ecnl_rl": true, "mls_next": true, "pre_ecnl": true, "ecnl": true,
	"ecrl": true, "npl": true, "dpl": true, "dplo": true,
}

var trailingArabicNumber = regexp.MustCompile(`^\d{1,2}$`)

// Extract decomposes normalized tokens into the ten structural feature sets.
func Extract(tokens normalize.Tokens) Distinctions {
	d := Distinctions{}

	if tokens.Age != "" {
		d.AgeTokens = append(d.AgeTokens, tokens.Age)
	}

	agePos := -1 // age was already stripped from Words by C1; track via marker words below
	for i, w := range tokens.Words {
		classified := false

		if strings.Contains(w, "_") || programNames[w] {
			d.Programs = append(d.Programs, w)
			classified = true
		}
		if colorVocab[w] {
			d.Colors = append(d.Colors, w)
			classified = true
		}
		if directionVocab[w] {
			d.Directions = append(d.Directions, w)
			classified = true
		}
		if romanNumerals[w] {
			if d.TeamNumber == "" {
				d.TeamNumber = w
			}
			classified = true
		}
		if trailingArabicNumber.MatchString(w) {
			if d.TeamNumber == "" && i == len(tokens.Words)-1 {
				d.TeamNumber = w
			} else {
				d.SecondaryNums = append(d.SecondaryNums, w)
			}
			classified = true
		}
		if stateCodes[w] {
			d.StateCodes = append(d.StateCodes, w)
			classified = true
		} else if len(w) >= 2 && len(w) <= 3 && !classified {
			d.LocationCodes = append(d.LocationCodes, w)
			classified = true
		}
		if !classified && len(w) >= 4 {
			d.SquadWords = append(d.SquadWords, w)
		}
	}

	d.CoachName = extractCoachName(tokens.Words, agePos)

	return d
}

// extractCoachName applies the three exclusion sets in order; the fallback
// order (parenthesized non-region token, ALL-CAPS tail token, trailing
// capitalized non-known token) collapses here to: the last squad word not in
// any exclusion set, preferring the final token of the name.
func extractCoachName(words []string, agePos int) string {
	for i := len(words) - 1; i >= 0; i-- {
		w := words[i]
		if len(w) < 3 {
			continue
		}
		if commonWords[w] || regionNames[w] || programNames[w] {
			continue
		}
		if colorVocab[w] || directionVocab[w] || romanNumerals[w] || stateCodes[w] {
			continue
		}
		if _, err := strconv.Atoi(w); err == nil {
			continue
		}
		return w
	}
	return ""
}

// Incompatible reports whether two distinction sets are pair-incompatible:
// an absolute reject signal that scoring may never override.
func Incompatible(a, b Distinctions) bool {
	return setsDiffer(a.Colors, b.Colors) ||
		setsDiffer(a.Directions, b.Directions) ||
		setsDiffer(a.Programs, b.Programs) ||
		a.TeamNumber != b.TeamNumber && a.TeamNumber != "" && b.TeamNumber != "" ||
		setsDiffer(a.LocationCodes, b.LocationCodes) ||
		setsDiffer(a.SquadWords, b.SquadWords) ||
		coachNamesDiffer(a.CoachName, b.CoachName)
}

func coachNamesDiffer(a, b string) bool {
	return a != "" && b != "" && a != b
}

// setsDiffer treats two string slices as sets; they "differ" only when both
// are non-empty and not identical as sets (an absent feature in one side is
// not a conflict, matching the spec's hard-rejection semantics).
func setsDiffer(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	if len(a) != len(b) {
		return true
	}
	setA := toSet(a)
	for _, w := range b {
		if !setA[w] {
			return true
		}
	}
	return false
}

func toSet(s []string) map[string]bool {
	m := make(map[string]bool, len(s))
	for _, w := range s {
		m[w] = true
	}
	return m
}
