package ranking

import (
	"math"
	"sort"
	"strings"
	"time"

	"stormlightlabs.org/rankcore/internal/core"
)

// perspective is one team's side of a single game: goals for/against from
// that team's point of view, plus the recency/context/adaptive-K weights
// derived from it across L3, L5, L7, L8.
type perspective struct {
	masterID    core.MasterID
	oppID       core.MasterID
	goalsFor    int
	goalsAgainst int
	gameDate    time.Time
	competition *string

	margin float64 // L2: goal differential, clipped to ±GoalDiffCap

	daysAgo float64
	weight  float64 // L3: recency * context

	adaptiveK      float64 // L5
	expectedMargin float64 // L6
	perfRaw        float64 // L6
}

// teamState is the per-team working vector carried through the iterative
// pipeline; strength is the feedback value used by L5-L8 of the NEXT
// iteration (the fixed-point resolution for the SOS/powerscore cycle, per
// the cyclic-reference design note).
type teamState struct {
	master core.MasterTeam
	games  int

	strength float64

	offRaw, defRaw   float64
	offNorm, defNorm float64
	sosRaw, sosNorm  float64

	perfCentered float64

	anchor          float64
	provisionalMult float64

	powerscoreCore float64
	powerscoreAdj  float64
	powerscoreML   *float64
}

func (t *teamState) toRankedTeam(rank int, asOf time.Time) core.RankedTeam {
	return core.RankedTeam{
		MasterID:       t.master.MasterID,
		Cohort:         t.master.Cohort(),
		Games:          t.games,
		OffenseRaw:     t.offRaw,
		OffenseNorm:    t.offNorm,
		DefenseRaw:     t.defRaw,
		DefenseNorm:    t.defNorm,
		SOSRaw:         t.sosRaw,
		SOSNorm:        t.sosNorm,
		PerfCentered:   t.perfCentered,
		ProvisionalMul: t.provisionalMult,
		Anchor:         t.anchor,
		PowerscoreCore: t.powerscoreCore,
		PowerscoreAdj:  t.powerscoreAdj,
		PowerscoreML:   t.powerscoreML,
		RankInCohort:   rank,
		AsOf:           asOf,
	}
}

// clip bounds v to [lo, hi].
func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// buildPerspectives expands each Game into its home and away perspectives,
// dropping games without a recorded score (L1 window filter is assumed
// applied by the repository query) and games outside [*, asOf].
func buildPerspectives(games []core.Game, asOf time.Time) []*perspective {
	out := make([]*perspective, 0, len(games)*2)
	for _, g := range games {
		if g.GameDate.After(asOf) {
			continue
		}
		if g.HomeScore == nil || g.AwayScore == nil {
			continue
		}
		if g.HomeMasterID == g.AwayMasterID {
			continue
		}
		out = append(out,
			&perspective{masterID: g.HomeMasterID, oppID: g.AwayMasterID, goalsFor: *g.HomeScore, goalsAgainst: *g.AwayScore, gameDate: g.GameDate, competition: g.Competition},
			&perspective{masterID: g.AwayMasterID, oppID: g.HomeMasterID, goalsFor: *g.AwayScore, goalsAgainst: *g.HomeScore, gameDate: g.GameDate, competition: g.Competition},
		)
	}
	return out
}

// clipOutliers applies L2: caps the per-game goal differential at
// ±GoalDiffCap and drops perspectives whose goals-for lies beyond
// OutlierSigma standard deviations of the cohort's per-game offense.
func clipOutliers(views []*perspective, cfg Config) []*perspective {
	if len(views) == 0 {
		return views
	}
	mean, std := goalsForMeanStd(views)

	kept := views[:0]
	for _, v := range views {
		diff := float64(v.goalsFor - v.goalsAgainst)
		v.margin = clip(diff, -cfg.GoalDiffCap, cfg.GoalDiffCap)

		if std > 0 && math.Abs(float64(v.goalsFor)-mean) > cfg.OutlierSigma*std {
			continue
		}
		kept = append(kept, v)
	}
	return kept
}

func goalsForMeanStd(views []*perspective) (float64, float64) {
	n := float64(len(views))
	var sum float64
	for _, v := range views {
		sum += float64(v.goalsFor)
	}
	mean := sum / n

	var sq float64
	for _, v := range views {
		d := float64(v.goalsFor) - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / n)
}

func initTeams(byID map[core.MasterID]core.MasterTeam) map[core.MasterID]*teamState {
	teams := make(map[core.MasterID]*teamState, len(byID))
	for id, m := range byID {
		teams[id] = &teamState{master: m, strength: 0.5}
	}
	return teams
}

func attachPerspectives(teams map[core.MasterID]*teamState, views []*perspective) {
	for _, v := range views {
		t, ok := teams[v.masterID]
		if !ok {
			continue
		}
		t.games++
	}
}

// contextWeights is the closed category table multiplying recency weight by
// event importance (L3).
var contextWeights = map[string]float64{
	"showcase":   1.15,
	"tournament": 1.10,
	"league":     1.00,
	"friendly":   0.70,
	"scrimmage":  0.60,
}

func contextWeight(competition *string) float64 {
	if competition == nil {
		return 1.0
	}
	if w, ok := contextWeights[strings.ToLower(strings.TrimSpace(*competition))]; ok {
		return w
	}
	return 1.0
}

// applyRecencyWeights computes L3's per-game weight; this is static across
// the whole run and does not depend on the iterative strength estimates.
func applyRecencyWeights(views []*perspective, cfg Config, asOf time.Time) {
	for _, v := range views {
		days := asOf.Sub(v.gameDate).Hours() / 24
		if days < 0 {
			days = 0
		}
		v.daysAgo = days
		v.weight = math.Exp(-cfg.RecencyDecay*days) * contextWeight(v.competition)
	}
}

func strengthOf(teams map[core.MasterID]*teamState, id core.MasterID, base float64) float64 {
	if t, ok := teams[id]; ok {
		return t.strength
	}
	return base
}

// assignAdaptiveK applies L5 using each team's current strength estimate.
func assignAdaptiveK(teams map[core.MasterID]*teamState, views []*perspective, cfg Config) {
	for _, v := range views {
		self := strengthOf(teams, v.masterID, cfg.UnrankedSOSBase)
		opp := strengthOf(teams, v.oppID, cfg.UnrankedSOSBase)
		gap := opp - self
		v.adaptiveK = cfg.AdaptiveKBase * (1 + cfg.AdaptiveKGap*gap)
	}
}

// expectedMarginScale maps a [-1,1] strength gap to an expected goal margin;
// the spec names the relationship ("linear in gap") but not the scale
// factor, so this value is an engineering assumption (see DESIGN.md).
const expectedMarginScale = 10.0

// applyPerformanceLayer applies L6: expected margin from current strengths,
// residual captured and centered within the cohort to [-0.5, +0.5].
func applyPerformanceLayer(teams map[core.MasterID]*teamState, views []*perspective) {
	for _, v := range views {
		self, ok := teams[v.masterID]
		if !ok {
			continue
		}
		opp := strengthOf(teams, v.oppID, 0.5)
		v.expectedMargin = (self.strength - opp) * expectedMarginScale
		v.perfRaw = v.margin - v.expectedMargin
	}
	centerPerfWithinCohort(teams, views)
}

func centerPerfWithinCohort(teams map[core.MasterID]*teamState, views []*perspective) {
	weightedSum := map[core.MasterID]float64{}
	weightTotal := map[core.MasterID]float64{}
	for _, v := range views {
		if _, ok := teams[v.masterID]; !ok {
			continue
		}
		weightedSum[v.masterID] += v.perfRaw * v.weight
		weightTotal[v.masterID] += v.weight
	}

	raw := make(map[core.MasterID]float64, len(teams))
	for id := range teams {
		if w := weightTotal[id]; w > 0 {
			raw[id] = weightedSum[id] / w
		}
	}
	if len(raw) == 0 {
		return
	}

	var mean float64
	for _, r := range raw {
		mean += r
	}
	mean /= float64(len(raw))

	maxAbs := 1e-9
	for _, r := range raw {
		if d := math.Abs(r - mean); d > maxAbs {
			maxAbs = d
		}
	}

	for id, r := range raw {
		teams[id].perfCentered = clip((r-mean)/maxAbs*0.5, -0.5, 0.5)
	}
}

// defenseRidge is L4's ridge regularization formula, applied in L7 to each
// perspective's opponent-adjusted goals-against.
func defenseRidge(goalsAgainst float64, cfg Config) float64 {
	v := 1 / (goalsAgainst + cfg.DefenseRidge)
	if v > cfg.DefenseCap {
		v = cfg.DefenseCap
	}
	return v
}

// applyOpponentAdjustedOffenseDefense applies L7: opponent-strength scaling
// of goals-for/against, weighted aggregation, and Bayesian shrinkage toward
// the cohort mean.
func applyOpponentAdjustedOffenseDefense(teams map[core.MasterID]*teamState, views []*perspective, cfg Config) {
	offSum := map[core.MasterID]float64{}
	defSum := map[core.MasterID]float64{}
	wsum := map[core.MasterID]float64{}

	for _, v := range views {
		if _, ok := teams[v.masterID]; !ok {
			continue
		}
		oppStrength := strengthOf(teams, v.oppID, cfg.UnrankedSOSBase)
		if oppStrength <= 0 {
			oppStrength = 0.01
		}

		gfFactor, gaFactor := 1.0, 1.0
		if cfg.OpponentAdjustEnabled {
			gfFactor = clip(oppStrength/0.5, cfg.OpponentAdjustClipMin, cfg.OpponentAdjustClipMax)
			gaFactor = clip(0.5/oppStrength, cfg.OpponentAdjustClipMin, cfg.OpponentAdjustClipMax)
		}

		adjGF := float64(v.goalsFor) * gfFactor
		adjGA := float64(v.goalsAgainst) * gaFactor

		w := v.weight * v.adaptiveK
		offSum[v.masterID] += adjGF * w
		defSum[v.masterID] += defenseRidge(adjGA, cfg) * w
		wsum[v.masterID] += w
	}

	cohortOffMean, cohortDefMean := weightedCohortMeans(teams, offSum, defSum, wsum)

	for id, t := range teams {
		w := wsum[id]
		var offRaw, defRaw float64
		if w > 0 {
			offRaw = offSum[id] / w
			defRaw = defSum[id] / w
		}
		games := float64(t.games)
		t.offRaw = bayesShrink(offRaw, games, cohortOffMean, cfg.ShrinkageGames)
		t.defRaw = bayesShrink(defRaw, games, cohortDefMean, cfg.ShrinkageGames)
	}
}

func weightedCohortMeans(teams map[core.MasterID]*teamState, offSum, defSum, wsum map[core.MasterID]float64) (float64, float64) {
	var offTotal, defTotal, n float64
	for id := range teams {
		w := wsum[id]
		if w <= 0 {
			continue
		}
		offTotal += offSum[id] / w
		defTotal += defSum[id] / w
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return offTotal / n, defTotal / n
}

func bayesShrink(raw, games, cohortMean, priorGames float64) float64 {
	return (raw*games + cohortMean*priorGames) / (games + priorGames)
}

// connectivityFactor computes L8b's SCF from the unique states among a
// team's opponents. region_bonus is a coarse proxy (0.1 once a team has
// crossed into a second state) since the spec does not define "region" more
// precisely than the boundary behavior it tests against.
func connectivityFactor(opponents map[core.MasterID][]float64, byID map[core.MasterID]core.MasterTeam) float64 {
	states := map[string]bool{}
	for oppID := range opponents {
		if m, ok := byID[oppID]; ok && m.StateCode != nil {
			states[*m.StateCode] = true
		}
	}
	uniqueStates := float64(len(states))
	regionBonus := 0.0
	if uniqueStates >= 2 {
		regionBonus = 0.1
	}
	return clip(uniqueStates/3+regionBonus, 0.4, 1.0)
}

// computeSOS applies L8/L8b/L8c/L8d: direct SOS with a repeat-cap over
// best-two-by-weight per opponent, the transitivity-damped inner iteration,
// SCF dampening, PageRank-style anchoring, and sample-size shrinkage.
// Returns the max absolute change in sosRaw across teams, for the outer
// convergence check.
func computeSOS(teams map[core.MasterID]*teamState, views []*perspective, byID map[core.MasterID]core.MasterTeam, cfg Config) float64 {
	perOpp := make(map[core.MasterID]map[core.MasterID][]float64, len(teams))
	for _, v := range views {
		if _, ok := teams[v.masterID]; !ok {
			continue
		}
		if perOpp[v.masterID] == nil {
			perOpp[v.masterID] = map[core.MasterID][]float64{}
		}
		perOpp[v.masterID][v.oppID] = append(perOpp[v.masterID][v.oppID], v.weight*v.adaptiveK)
	}

	direct := make(map[core.MasterID]float64, len(teams))
	for id := range teams {
		var wsum, strSum float64
		for oppID, weights := range perOpp[id] {
			sort.Sort(sort.Reverse(sort.Float64Slice(weights)))
			repeatCap := cfg.SOSRepeatCap
			if repeatCap > len(weights) {
				repeatCap = len(weights)
			}
			oppStrength := strengthOf(teams, oppID, cfg.UnrankedSOSBase)
			for i := 0; i < repeatCap; i++ {
				strSum += oppStrength * weights[i]
				wsum += weights[i]
			}
		}
		if wsum > 0 {
			direct[id] = strSum / wsum
		} else {
			direct[id] = cfg.UnrankedSOSBase
		}
	}

	sos := make(map[core.MasterID]float64, len(teams))
	for id, d := range direct {
		sos[id] = d
	}

	for iter := 0; iter < cfg.SOSIterations; iter++ {
		next := make(map[core.MasterID]float64, len(teams))
		maxDelta := 0.0
		for id := range teams {
			var wsum, strSum float64
			for oppID, weights := range perOpp[id] {
				s := cfg.UnrankedSOSBase
				if _, ok := teams[oppID]; ok {
					s = sos[oppID]
				}
				for _, w := range weights {
					strSum += s * w
					wsum += w
				}
			}
			transitive := cfg.UnrankedSOSBase
			if wsum > 0 {
				transitive = strSum / wsum
			}
			val := (1-cfg.SOSTransitivityLambda)*direct[id] + cfg.SOSTransitivityLambda*transitive
			if d := math.Abs(val - sos[id]); d > maxDelta {
				maxDelta = d
			}
			next[id] = val
		}
		sos = next
		if maxDelta < cfg.SOSConvergenceTol {
			break
		}
	}

	maxTotalDelta := 0.0
	for id, t := range teams {
		scf := connectivityFactor(perOpp[id], byID)
		val := 0.5 + scf*(sos[id]-0.5)
		val = (1-cfg.PageRankDamping)*cfg.PageRankAnchor + cfg.PageRankDamping*val

		games := float64(t.games)
		val = 0.5 + math.Min(1, math.Pow(games/10, 2))*(val-0.5)
		val = clip(val, 0, 1)

		if d := math.Abs(val - t.sosRaw); d > maxTotalDelta {
			maxTotalDelta = d
		}
		t.sosRaw = val
	}
	return maxTotalDelta
}

// computeCorePowerscoreDraft produces a cheap min-max-normalized proxy
// powerscore used purely to feed back into the next outer iteration's
// strength estimate (L5/L7/L8 all consume team.strength); the real,
// cohort-normalized L9/L10 values are computed once after convergence.
func computeCorePowerscoreDraft(teams map[core.MasterID]*teamState, cfg Config) float64 {
	offN := minMaxNormalize(teams, func(t *teamState) float64 { return t.offRaw })
	defN := minMaxNormalize(teams, func(t *teamState) float64 { return t.defRaw })
	sosN := minMaxNormalize(teams, func(t *teamState) float64 { return t.sosRaw })

	maxDelta := 0.0
	for id, t := range teams {
		draft := clip((0.25*offN[id]+0.25*defN[id]+0.50*sosN[id]+0.15*t.perfCentered)/1.075, 0, 1)
		damped := cfg.ConvergenceDamping*t.strength + (1-cfg.ConvergenceDamping)*draft
		if d := math.Abs(damped - t.strength); d > maxDelta {
			maxDelta = d
		}
		t.strength = damped
	}
	return maxDelta
}

func minMaxNormalize(teams map[core.MasterID]*teamState, f func(*teamState) float64) map[core.MasterID]float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, t := range teams {
		v := f(t)
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	out := make(map[core.MasterID]float64, len(teams))
	span := hi - lo
	for id, t := range teams {
		if span <= 1e-9 {
			out[id] = 0.5
			continue
		}
		out[id] = (f(t) - lo) / span
	}
	return out
}

// normalizeCohort applies L9 in the configured mode (percentile by default).
func normalizeCohort(teams map[core.MasterID]*teamState, cfg Config) {
	setOff := func(t *teamState, v float64) { t.offNorm = v }
	setDef := func(t *teamState, v float64) { t.defNorm = v }
	setSOS := func(t *teamState, v float64) { t.sosNorm = v }
	getOff := func(t *teamState) float64 { return t.offRaw }
	getDef := func(t *teamState) float64 { return t.defRaw }
	getSOS := func(t *teamState) float64 { return t.sosRaw }

	switch cfg.NormalizationMode {
	case "zsigmoid":
		normalizeZSigmoid(teams, getOff, setOff)
		normalizeZSigmoid(teams, getDef, setDef)
		normalizeZSigmoid(teams, getSOS, setSOS)
	default:
		normalizePercentile(teams, getOff, setOff)
		normalizePercentile(teams, getDef, setDef)
		normalizePercentile(teams, getSOS, setSOS)
	}
}

func normalizePercentile(teams map[core.MasterID]*teamState, get func(*teamState) float64, set func(*teamState, float64)) {
	type kv struct {
		id core.MasterID
		v  float64
	}
	vals := make([]kv, 0, len(teams))
	for id, t := range teams {
		vals = append(vals, kv{id, get(t)})
	}
	sort.Slice(vals, func(i, j int) bool { return vals[i].v < vals[j].v })

	n := float64(len(vals))
	for i, kvp := range vals {
		pct := 0.5
		if n > 1 {
			pct = float64(i) / (n - 1)
		}
		set(teams[kvp.id], pct)
	}
}

func normalizeZSigmoid(teams map[core.MasterID]*teamState, get func(*teamState) float64, set func(*teamState, float64)) {
	n := float64(len(teams))
	if n == 0 {
		return
	}
	var mean float64
	for _, t := range teams {
		mean += get(t)
	}
	mean /= n

	var sq float64
	for _, t := range teams {
		d := get(t) - mean
		sq += d * d
	}
	std := math.Sqrt(sq / n)

	for _, t := range teams {
		z := 0.0
		if std > 1e-9 {
			z = (get(t) - mean) / std
		}
		set(t, 1/(1+math.Exp(-z)))
	}
}

// computeCorePowerscore applies L10 using the final cohort-normalized values.
func computeCorePowerscore(teams map[core.MasterID]*teamState, cfg Config) {
	for _, t := range teams {
		t.powerscoreCore = clip((0.25*t.offNorm+0.25*t.defNorm+0.50*t.sosNorm+0.15*t.perfCentered)/1.075, 0, 1)
	}
}

// applyCrossAgeAnchor applies L11's closed age→scale mapping and the
// provisional-games multiplier.
func applyCrossAgeAnchor(teams map[core.MasterID]*teamState, byID map[core.MasterID]core.MasterTeam, cfg Config) {
	for id, t := range teams {
		anchor, ok := cfg.CrossAgeAnchors[byID[id].AgeGroup]
		if !ok {
			anchor = 1.0
		}
		t.anchor = anchor

		mult := 1.0
		switch {
		case t.games < 5:
			mult = 0.85
		case t.games < 15:
			mult = 0.95
		}
		t.provisionalMult = mult

		t.powerscoreAdj = clip(t.powerscoreCore*anchor*mult, 0, 1)
	}
}
