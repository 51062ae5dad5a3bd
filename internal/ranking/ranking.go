// Package ranking implements the layered ranking engine (C8): a fixed-point
// iteration over offense, defense, and strength-of-schedule estimates that
// resolves into a per-cohort powerscore and rank.
package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"stormlightlabs.org/rankcore/internal/core"
)

// Config holds every tunable constant named in the layer formulas, all
// overridable via the enumerated RANKING_*/OPPONENT_ADJUST_*/SOS_*/ML_*
// environment keys.
type Config struct {
	WindowDays int // L1, default 365

	GoalDiffCap      float64 // L2, default 6
	OutlierSigma     float64 // L2, default 2.5

	RecencyDecay float64 // L3, default 0.05

	DefenseRidge float64 // L4, default 0.25
	DefenseCap   float64 // L4, default 4.0

	AdaptiveKBase float64 // L5, default 0.5
	AdaptiveKGap  float64 // L5, default 0.6

	OpponentAdjustEnabled bool    // L7
	OpponentAdjustClipMin float64 // L7, default 0.4
	OpponentAdjustClipMax float64 // L7, default 1.6
	ShrinkageGames        float64 // L7, default 8

	SOSIterations          int     // L8, default 3
	SOSTransitivityLambda  float64 // L8, default 0.20
	SOSConvergenceTol      float64 // L8, default 1e-4
	SOSRepeatCap           int     // L8, default 2
	UnrankedSOSBase        float64 // L8, default 0.35

	PageRankDamping float64 // L8c, default 0.85
	PageRankAnchor  float64 // L8c, default 0.5

	NormalizationMode string // L9: "percentile" | "zsigmoid"

	CrossAgeAnchors map[core.AgeGroup]float64 // L11

	ConvergenceDamping float64 // L5-L10 overall, default 0.7/0.3
	MaxConvergenceIter int     // default 3

	ML MLConfig
}

// MLConfig holds the optional L13 residual-layer knobs.
type MLConfig struct {
	Enabled       bool
	Alpha         float64 // weight of ml_norm in the final blend, default 0.15
	ResidualClip  float64 // clip on raw goal residual before fitting, default 6
	TrainMinRows  int     // default 30
	Rounds        int     // boosting rounds, default 40
	LearningRate  float64 // shrinkage per round, default 0.1
}

// DefaultConfig returns the spec's default constants.
func DefaultConfig() Config {
	return Config{
		WindowDays: 365,

		GoalDiffCap:  6,
		OutlierSigma: 2.5,

		RecencyDecay: 0.05,

		DefenseRidge: 0.25,
		DefenseCap:   4.0,

		AdaptiveKBase: 0.5,
		AdaptiveKGap:  0.6,

		OpponentAdjustEnabled: true,
		OpponentAdjustClipMin: 0.4,
		OpponentAdjustClipMax: 1.6,
		ShrinkageGames:        8,

		SOSIterations:         3,
		SOSTransitivityLambda: 0.20,
		SOSConvergenceTol:     1e-4,
		SOSRepeatCap:          2,
		UnrankedSOSBase:       0.35,

		PageRankDamping: 0.85,
		PageRankAnchor:  0.5,

		NormalizationMode: "percentile",

		CrossAgeAnchors: map[core.AgeGroup]float64{
			"u10": 0.40, "u11": 0.475, "u12": 0.55, "u13": 0.625, "u14": 0.70,
			"u15": 0.775, "u16": 0.85, "u17": 0.925, "u18": 1.00,
		},

		ConvergenceDamping: 0.7,
		MaxConvergenceIter: 3,

		ML: MLConfig{
			Enabled:      false,
			Alpha:        0.15,
			ResidualClip: 6,
			TrainMinRows: 30,
			Rounds:       40,
			LearningRate: 0.1,
		},
	}
}

// Engine runs the ranking pipeline for a cohort at a time.
type Engine struct {
	Games   core.GameRepository
	Masters core.MasterTeamRepository
	Ranked  core.RankedTeamRepository
	Config  Config
	Logger  *log.Logger
}

// New creates an Engine with the given config (use DefaultConfig() for spec defaults).
func New(games core.GameRepository, masters core.MasterTeamRepository, ranked core.RankedTeamRepository, cfg Config, logger *log.Logger) *Engine {
	return &Engine{Games: games, Masters: masters, Ranked: ranked, Config: cfg, Logger: logger}
}

// Rank computes RankedTeam rows for every active master in cohort, as of asOf.
// A non-convergent run still returns its last-iteration values; the caller
// may inspect the returned RankingConvergenceWarning via errors.As.
func (e *Engine) Rank(ctx context.Context, cohort core.Cohort, asOf time.Time) ([]core.RankedTeam, error) {
	since := asOf.AddDate(0, 0, -e.Config.WindowDays)

	masters, err := e.Masters.ListCohort(ctx, cohort)
	if err != nil {
		return nil, fmt.Errorf("list cohort masters: %w", err)
	}
	if len(masters) == 0 {
		return nil, nil
	}

	games, err := e.Games.WindowForCohort(ctx, cohort, since)
	if err != nil {
		return nil, fmt.Errorf("load cohort games: %w", err)
	}

	byID := make(map[core.MasterID]core.MasterTeam, len(masters))
	for _, m := range masters {
		if m.IsDeprecated {
			continue
		}
		byID[m.MasterID] = m
	}

	views := buildPerspectives(games, asOf)
	views = clipOutliers(views, e.Config)

	teams := initTeams(byID)
	attachPerspectives(teams, views)
	applyRecencyWeights(views, e.Config, asOf)

	var convErr error
	for iter := 0; iter < e.Config.MaxConvergenceIter; iter++ {
		assignAdaptiveK(teams, views, e.Config)
		applyPerformanceLayer(teams, views)
		applyOpponentAdjustedOffenseDefense(teams, views, e.Config)
		sosDelta := computeSOS(teams, views, byID, e.Config)
		coreDelta := computeCorePowerscoreDraft(teams, e.Config)

		if sosDelta < e.Config.SOSConvergenceTol && coreDelta < e.Config.SOSConvergenceTol {
			break
		}
		if iter == e.Config.MaxConvergenceIter-1 {
			convErr = &core.RankingConvergenceWarning{Iterations: iter + 1, MaxDelta: math.Max(sosDelta, coreDelta)}
		}
	}

	normalizeCohort(teams, e.Config)
	computeCorePowerscore(teams, e.Config)
	applyCrossAgeAnchor(teams, byID, e.Config)

	if e.Config.ML.Enabled {
		applyMLResidualLayer(teams, views, e.Config)
	}

	rows := assignRanks(teams, asOf)

	if convErr != nil && e.Logger != nil {
		e.Logger.Warn("ranking did not fully converge", "cohort", cohort, "err", convErr)
	}

	if e.Ranked != nil {
		if err := e.Ranked.ReplaceCohort(ctx, cohort, rows); err != nil {
			return rows, fmt.Errorf("replace cohort snapshot: %w", err)
		}
	}

	return rows, convErr
}

// assignRanks sorts descending by powerscore (ML if present, else adjusted)
// and assigns standard competition ranks: ties share the lowest rank in the
// tie group and the next rank skips by the tie count (1, 1, 3).
func assignRanks(teams map[core.MasterID]*teamState, asOf time.Time) []core.RankedTeam {
	ordered := make([]*teamState, 0, len(teams))
	for _, t := range teams {
		ordered = append(ordered, t)
	}

	score := func(t *teamState) float64 {
		if t.powerscoreML != nil {
			return *t.powerscoreML
		}
		return t.powerscoreAdj
	}

	sort.Slice(ordered, func(i, j int) bool {
		si, sj := score(ordered[i]), score(ordered[j])
		if si != sj {
			return si > sj
		}
		return ordered[i].master.MasterID < ordered[j].master.MasterID
	})

	rows := make([]core.RankedTeam, len(ordered))
	rank := 1
	for i, t := range ordered {
		if i > 0 && score(ordered[i-1]) != score(t) {
			rank = i + 1
		}
		rows[i] = t.toRankedTeam(rank, asOf)
	}
	return rows
}
