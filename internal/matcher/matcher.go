// Package matcher implements the three-tier team-matching cascade (C5):
// direct-id lookup, alias-by-name lookup, and a fuzzy three-gate funnel with
// provider-policy-driven scoring.
package matcher

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"stormlightlabs.org/rankcore/internal/alias"
	"stormlightlabs.org/rankcore/internal/club"
	"stormlightlabs.org/rankcore/internal/core"
	"stormlightlabs.org/rankcore/internal/distinction"
	"stormlightlabs.org/rankcore/internal/normalize"
	"stormlightlabs.org/rankcore/internal/textsim"
)

// Request is one incoming provider team record to resolve to a master id.
type Request struct {
	ProviderID     core.ProviderID
	ProviderTeamID string // "" if unknown
	TeamName       string
	AgeGroup       core.AgeGroup
	Gender         core.Gender
	ClubName       string // "" if absent
	StateCode      string // "" if absent
}

// Candidate is a MasterTeam under consideration during Tier 3.
type Candidate struct {
	Team        core.MasterTeam
	ClubResult  club.Result
	Distinction distinction.Distinctions
	Score       float64
}

// Result is the outcome of a Match call.
type Result struct {
	Matched     bool
	MasterID    core.MasterID
	Method      core.MatchMethod
	Confidence  float64
	Created     bool
	ReviewEntry *core.ReviewEntry
}

// Matcher wires C1-C4 together with a provider Policy to run the cascade.
type Matcher struct {
	Aliases  *alias.Cache
	Clubs    *club.Registry
	Masters  core.MasterTeamRepository
	Reviews  core.ReviewRepository
	AliasRepo core.AliasRepository
	Policy   Policy
}

// New creates a Matcher for a single provider policy.
func New(aliases *alias.Cache, clubs *club.Registry, masters core.MasterTeamRepository, reviews core.ReviewRepository, aliasRepo core.AliasRepository, policy Policy) *Matcher {
	return &Matcher{Aliases: aliases, Clubs: clubs, Masters: masters, Reviews: reviews, AliasRepo: aliasRepo, Policy: policy}
}

// Match runs the three-tier cascade for a single request.
func (m *Matcher) Match(ctx context.Context, req Request) (Result, error) {
	if m.Policy.PreNormalizeHook != nil {
		req.TeamName = m.Policy.PreNormalizeHook(req.TeamName)
	}

	if req.ProviderTeamID != "" {
		if res, ok, err := m.tierDirectID(ctx, req); err != nil {
			return Result{}, err
		} else if ok {
			return res, nil
		}
	}

	if res, ok, err := m.tierAliasByName(ctx, req); err != nil {
		return Result{}, err
	} else if ok {
		return res, nil
	}

	return m.tierFuzzy(ctx, req)
}

// tierDirectID consults the alias cache; on hit it validates gender and
// (if strict_age_on_id) the parsed age from the name.
func (m *Matcher) tierDirectID(ctx context.Context, req Request) (Result, bool, error) {
	masterID, ok := m.Aliases.Lookup(req.ProviderID, req.ProviderTeamID)
	if !ok {
		return Result{}, false, nil
	}

	team, err := m.Masters.Get(ctx, masterID)
	if err != nil {
		return Result{}, false, fmt.Errorf("tier1 lookup master: %w", err)
	}
	if team == nil || team.Gender != req.Gender {
		return Result{}, false, nil
	}

	if m.Policy.StrictAgeOnID {
		tokens, err := normalize.Normalize(req.TeamName)
		if err == nil && tokens.Age != "" && core.AgeGroup(tokens.Age) != req.AgeGroup {
			return Result{}, false, nil
		}
	}

	return Result{Matched: true, MasterID: masterID, Method: core.MatchMethodDirectID, Confidence: 1.0}, true, nil
}

// tierAliasByName does a case-insensitive lookup on the raw name within the
// alias table, filtered by provider/gender/age. Accepts only at confidence >= 0.90.
func (m *Matcher) tierAliasByName(ctx context.Context, req Request) (Result, bool, error) {
	age := req.AgeGroup
	candidates, err := m.AliasRepo.FindByName(ctx, req.ProviderID, req.TeamName, req.Gender, &age)
	if err != nil {
		return Result{}, false, fmt.Errorf("tier2 alias by name: %w", err)
	}

	for _, c := range candidates {
		if c.Confidence >= 0.90 {
			return Result{Matched: true, MasterID: c.MasterID, Method: core.MatchMethodAliasName, Confidence: c.Confidence}, true, nil
		}
	}
	return Result{}, false, nil
}

// tierFuzzy applies the three-gate funnel then scores survivors.
func (m *Matcher) tierFuzzy(ctx context.Context, req Request) (Result, error) {
	cohort := core.Cohort{AgeGroup: req.AgeGroup, Gender: req.Gender}

	var statePtr *string
	if m.Policy.PreFilterState && req.StateCode != "" {
		s := req.StateCode
		statePtr = &s
	}

	pool, err := m.Masters.CandidatesInCohort(ctx, cohort, statePtr)
	if err != nil {
		return Result{}, fmt.Errorf("tier3 candidate pool: %w", err)
	}

	reqTokens, err := normalize.Normalize(req.TeamName)
	if err != nil {
		return Result{}, &core.NormalizationError{Reason: err.Error()}
	}
	reqDist := distinction.Extract(reqTokens)
	reqClub := club.Result{}
	if req.ClubName != "" {
		reqClub = m.Clubs.Canonicalize(req.ClubName)
	}

	candidates := m.gate(pool, reqClub, reqDist)

	scored := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		c.Score = m.score(req, reqTokens, reqClub, reqDist, c)
		scored = append(scored, c)
	}

	best, ok := pickBest(scored, reqTokens, reqClub, reqDist)
	if !ok {
		return m.outcomeNoCandidate(ctx, req)
	}

	if m.Policy.PostMatchGate != nil {
		if err := m.Policy.PostMatchGate(req, best); err != nil {
			return m.outcomeNoCandidate(ctx, req)
		}
	}

	return m.outcome(ctx, req, best)
}

// gate applies Gate 1 (club filter), Gate 2 (variant gate), Gate 3
// (distinction incompatibility) in order.
func (m *Matcher) gate(pool []core.MasterTeam, reqClub club.Result, reqDist distinction.Distinctions) []Candidate {
	var out []Candidate

	clubFiltered := pool
	if reqClub.CanonicalID != "" {
		var filtered []core.MasterTeam
		for _, t := range pool {
			tc := m.Clubs.Canonicalize(t.ClubName)
			if tc.CanonicalID == reqClub.CanonicalID {
				filtered = append(filtered, t)
			}
		}
		// Only narrow when club extraction succeeded and the filtered set is
		// meaningfully resolved; never fall back to broader scan once the
		// club is known (per §4.5 Gate 1).
		clubFiltered = filtered
	}

	for _, t := range clubFiltered {
		tTokens, err := normalize.Normalize(t.TeamName)
		if err != nil {
			continue
		}
		tDist := distinction.Extract(tTokens)

		if hasVariant(reqDist) && variantDiffers(reqDist, tDist) {
			continue
		}
		if distinction.Incompatible(reqDist, tDist) {
			continue
		}

		tClub := m.Clubs.Canonicalize(t.ClubName)
		out = append(out, Candidate{Team: t, ClubResult: tClub, Distinction: tDist})
	}

	return out
}

func hasVariant(d distinction.Distinctions) bool {
	return d.CoachName != "" || len(d.Colors) > 0 || len(d.Directions) > 0 || d.TeamNumber != ""
}

func variantDiffers(a, b distinction.Distinctions) bool {
	if a.CoachName != "" && b.CoachName != "" && a.CoachName != b.CoachName {
		return true
	}
	if len(a.Colors) > 0 && len(b.Colors) > 0 && !sameSet(a.Colors, b.Colors) {
		return true
	}
	if len(a.Directions) > 0 && len(b.Directions) > 0 && !sameSet(a.Directions, b.Directions) {
		return true
	}
	if a.TeamNumber != "" && b.TeamNumber != "" && a.TeamNumber != b.TeamNumber {
		return true
	}
	return false
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, w := range a {
		set[w] = true
	}
	for _, w := range b {
		if !set[w] {
			return false
		}
	}
	return true
}

// score implements the §4.5 scoring formula on a gated survivor.
func (m *Matcher) score(req Request, reqTokens normalize.Tokens, reqClub club.Result, reqDist distinction.Distinctions, c Candidate) float64 {
	nameSim := textsim.TokenSortRatio(req.TeamName, c.Team.TeamName)

	clubSim := 0.0
	if reqClub.CanonicalID != "" || reqClub.Display != "" {
		clubSim = club.Similarity(req.ClubName, c.Team.ClubName)
	}

	ageMatch := 0.0
	if reqTokens.Age != "" && core.AgeGroup(reqTokens.Age) == c.Team.AgeGroup {
		ageMatch = 1.0
	} else if req.AgeGroup == c.Team.AgeGroup {
		ageMatch = 1.0
	}

	stateMatch := 0.0
	if req.StateCode != "" && c.Team.StateCode != nil && req.StateCode == *c.Team.StateCode {
		stateMatch = 1.0
	}

	score := 0.35*nameSim + 0.35*clubSim + 0.10*ageMatch + 0.10*stateMatch

	if clubSim >= 0.80 {
		score += m.Policy.ClubBoost
	}
	if clubSim >= 0.80 && !variantDiffers(reqDist, c.Distinction) && hasVariant(reqDist) {
		score += m.Policy.ClubVariantBoost
	}

	reqLeague := leagueProgram(reqDist)
	candLeague := leagueProgram(c.Distinction)
	switch {
	case reqLeague != "" && candLeague != "" && reqLeague == candLeague:
		score += m.Policy.LeagueMatchBonus
	case reqLeague != "" && candLeague != "" && reqLeague != candLeague:
		score += m.Policy.LeagueMismatchPenalty
	}

	return score
}

func leagueProgram(d distinction.Distinctions) string {
	if len(d.Programs) == 0 {
		return ""
	}
	return d.Programs[0]
}

const tieEpsilon = 1e-3

// pickBest selects the top-scoring candidate, breaking ties per §4.5: exact
// variant match, then exact age-token match, then club similarity >= 0.95,
// then a stable deterministic ordering by master id.
func pickBest(candidates []Candidate, reqTokens normalize.Tokens, reqClub club.Result, reqDist distinction.Distinctions) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Team.MasterID < candidates[j].Team.MasterID
	})

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > best.Score+tieEpsilon {
			best = c
			continue
		}
		if math.Abs(c.Score-best.Score) <= tieEpsilon {
			if tieBreakPrefers(c, best, reqTokens, reqDist) {
				best = c
			}
		}
	}
	return best, true
}

func tieBreakPrefers(candidate, incumbent Candidate, reqTokens normalize.Tokens, reqDist distinction.Distinctions) bool {
	candVariant := hasVariant(reqDist) && !variantDiffers(reqDist, candidate.Distinction)
	incVariant := hasVariant(reqDist) && !variantDiffers(reqDist, incumbent.Distinction)
	if candVariant != incVariant {
		return candVariant
	}

	candAge := core.AgeGroup(reqTokens.Age) == candidate.Team.AgeGroup
	incAge := core.AgeGroup(reqTokens.Age) == incumbent.Team.AgeGroup
	if candAge != incAge {
		return candAge
	}

	candClub95 := candidate.ClubResult.Confidence >= 0.95
	incClub95 := incumbent.ClubResult.Confidence >= 0.95
	if candClub95 != incClub95 {
		return candClub95
	}

	return false
}

// outcome applies the §4.5 outcome thresholds for a selected fuzzy candidate.
func (m *Matcher) outcome(ctx context.Context, req Request, best Candidate) (Result, error) {
	switch {
	case best.Score >= m.Policy.ThresholdAutoApprove:
		conf := math.Min(m.Policy.FuzzyConfidenceCeiling, best.Score)
		a := core.Alias{
			ProviderID: req.ProviderID, ProviderTeamID: req.ProviderTeamID,
			MasterID: best.Team.MasterID, MatchMethod: core.MatchMethodFuzzy,
			Confidence: conf, ReviewStatus: core.ReviewStatusApproved,
		}
		if err := m.Aliases.Upsert(ctx, a); err != nil {
			return Result{}, fmt.Errorf("auto-approve upsert: %w", err)
		}
		return Result{Matched: true, MasterID: best.Team.MasterID, Method: core.MatchMethodFuzzy, Confidence: conf}, nil

	case best.Score >= m.Policy.ThresholdReview:
		entry := core.ReviewEntry{
			ProviderID: req.ProviderID, ProviderTeamID: req.ProviderTeamID,
			RawName: req.TeamName, SuggestedMasterID: &best.Team.MasterID,
			Confidence: best.Score, Status: core.ReviewStatusPending, CreatedAt: time.Now(),
		}
		id, err := m.Reviews.Create(ctx, entry)
		if err != nil {
			return Result{}, fmt.Errorf("create review entry: %w", err)
		}
		entry.ID = id
		return Result{Matched: false, Method: core.MatchMethodReview, ReviewEntry: &entry}, nil

	default:
		return m.outcomeNoCandidate(ctx, req)
	}
}

// outcomeNoCandidate handles the below-review-threshold / empty-pool case:
// create a new master if policy permits, otherwise a ReviewEntry with no suggestion.
func (m *Matcher) outcomeNoCandidate(ctx context.Context, req Request) (Result, error) {
	if m.Policy.MayCreateTeam {
		var statePtr *string
		if req.StateCode != "" {
			s := req.StateCode
			statePtr = &s
		}
		team := core.MasterTeam{
			TeamName: req.TeamName, ClubName: req.ClubName,
			AgeGroup: req.AgeGroup, Gender: req.Gender, StateCode: statePtr,
			CreatedAt: time.Now(), LastScrapedAt: time.Now(),
		}
		masterID, err := m.Masters.Create(ctx, team)
		if err != nil {
			return Result{}, fmt.Errorf("create master: %w", err)
		}

		a := core.Alias{
			ProviderID: req.ProviderID, ProviderTeamID: req.ProviderTeamID,
			MasterID: masterID, MatchMethod: core.MatchMethodCreated,
			Confidence: 1.0, ReviewStatus: core.ReviewStatusApproved,
		}
		if err := m.Aliases.Upsert(ctx, a); err != nil {
			return Result{}, fmt.Errorf("upsert alias for created master: %w", err)
		}

		return Result{Matched: true, MasterID: masterID, Method: core.MatchMethodCreated, Confidence: 1.0, Created: true}, nil
	}

	entry := core.ReviewEntry{
		ProviderID: req.ProviderID, ProviderTeamID: req.ProviderTeamID,
		RawName: req.TeamName, Status: core.ReviewStatusPending, CreatedAt: time.Now(),
	}
	id, err := m.Reviews.Create(ctx, entry)
	if err != nil {
		return Result{}, fmt.Errorf("create review entry: %w", err)
	}
	entry.ID = id
	return Result{Matched: false, Method: core.MatchMethodReview, ReviewEntry: &entry}, nil
}
