package ranking

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"stormlightlabs.org/rankcore/internal/core"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestClipOutliersCapsGoalDifferential(t *testing.T) {
	views := []*perspective{
		{masterID: "A", oppID: "B", goalsFor: 10, goalsAgainst: 0, gameDate: time.Now()},
	}
	cfg := DefaultConfig()
	kept := clipOutliers(views, cfg)
	if len(kept) != 1 {
		t.Fatalf("expected 1 view kept, got %d", len(kept))
	}
	if kept[0].margin != cfg.GoalDiffCap {
		t.Errorf("margin = %v, want capped at %v", kept[0].margin, cfg.GoalDiffCap)
	}
}

func TestClipOutliersDropsStatisticalOutliers(t *testing.T) {
	var views []*perspective
	for i := 0; i < 20; i++ {
		views = append(views, &perspective{masterID: core.MasterID("T"), oppID: "X", goalsFor: 2, goalsAgainst: 1, gameDate: time.Now()})
	}
	views = append(views, &perspective{masterID: "T", oppID: "X", goalsFor: 50, goalsAgainst: 1, gameDate: time.Now()})

	cfg := DefaultConfig()
	kept := clipOutliers(views, cfg)
	if len(kept) != 20 {
		t.Errorf("expected the 50-goal outlier dropped, got %d views kept", len(kept))
	}
}

func TestAssignRanksTiesShareLowestRankAndSkip(t *testing.T) {
	teams := map[core.MasterID]*teamState{
		"A": {master: core.MasterTeam{MasterID: "A"}, powerscoreAdj: 0.9},
		"B": {master: core.MasterTeam{MasterID: "B"}, powerscoreAdj: 0.9},
		"C": {master: core.MasterTeam{MasterID: "C"}, powerscoreAdj: 0.5},
	}
	rows := assignRanks(teams, time.Now())

	byID := make(map[core.MasterID]core.RankedTeam, len(rows))
	for _, r := range rows {
		byID[r.MasterID] = r
	}

	if byID["A"].RankInCohort != 1 || byID["B"].RankInCohort != 1 {
		t.Errorf("tied top teams should both rank 1, got A=%d B=%d", byID["A"].RankInCohort, byID["B"].RankInCohort)
	}
	if byID["C"].RankInCohort != 3 {
		t.Errorf("third team should skip to rank 3 after a 2-way tie, got %d", byID["C"].RankInCohort)
	}

	seen := map[int]bool{}
	for _, r := range rows {
		seen[r.RankInCohort] = true
	}
	if len(seen) != 2 {
		t.Errorf("expected 2 distinct ranks (1 and 3), got %v", seen)
	}
}

func TestConnectivityFactorCollapsesRegionalBubble(t *testing.T) {
	byID := map[core.MasterID]core.MasterTeam{
		"B": {MasterID: "B", StateCode: strPtr("TX")},
		"C": {MasterID: "C", StateCode: strPtr("TX")},
	}
	opponents := map[core.MasterID][]float64{"B": {1.0}, "C": {1.0}}

	scf := connectivityFactor(opponents, byID)
	if scf != 0.4 {
		t.Errorf("single-state bubble should clamp SCF to floor 0.4, got %v", scf)
	}

	sosAfterDamping := 0.5 + scf*(0.68-0.5)
	if sosAfterDamping > 0.57+0.02 {
		t.Errorf("raw SOS 0.68 should dampen to <= 0.57 within tolerance, got %v", sosAfterDamping)
	}
}

func TestMLScaleZeroLeavesPowerscoreUnchanged(t *testing.T) {
	teams := map[core.MasterID]*teamState{
		"A": {master: core.MasterTeam{MasterID: "A"}, sosNorm: 0.30, powerscoreAdj: 0.6, strength: 0.6},
		"B": {master: core.MasterTeam{MasterID: "B"}, sosNorm: 0.30, powerscoreAdj: 0.4, strength: 0.4},
	}

	var views []*perspective
	base := time.Now().AddDate(0, 0, -60)
	for i := 0; i < 40; i++ {
		views = append(views, &perspective{
			masterID: "A", oppID: "B", margin: 2, expectedMargin: 0,
			daysAgo: 45, weight: 1, gameDate: base,
		})
	}

	cfg := DefaultConfig()
	cfg.ML.Enabled = true
	applyMLResidualLayer(teams, views, cfg)

	if teams["A"].powerscoreML == nil {
		t.Fatal("expected powerscoreML to be set")
	}
	if diff := math.Abs(*teams["A"].powerscoreML - teams["A"].powerscoreAdj); diff > 1e-9 {
		t.Errorf("ml_scale=0 at sos_norm=0.30 should leave powerscore unchanged, diff=%v", diff)
	}
}

func TestBayesShrinkPullsTowardCohortMeanWithFewGames(t *testing.T) {
	shrunkFewGames := bayesShrink(1.0, 1, 0.5, 8)
	shrunkManyGames := bayesShrink(1.0, 100, 0.5, 8)

	if shrunkFewGames >= shrunkManyGames {
		t.Errorf("fewer games should shrink harder toward cohort mean: few=%v many=%v", shrunkFewGames, shrunkManyGames)
	}
	if shrunkManyGames < 0.9 {
		t.Errorf("with 100 games the raw value should dominate the prior, got %v", shrunkManyGames)
	}
}

type fakeRankMasterRepo struct {
	teams []core.MasterTeam
}

func (f *fakeRankMasterRepo) Get(ctx context.Context, id core.MasterID) (*core.MasterTeam, error) {
	for _, t := range f.teams {
		if t.MasterID == id {
			return &t, nil
		}
	}
	return nil, nil
}
func (f *fakeRankMasterRepo) Create(ctx context.Context, team core.MasterTeam) (core.MasterID, error) {
	return "", nil
}
func (f *fakeRankMasterRepo) CandidatesInCohort(ctx context.Context, cohort core.Cohort, stateCode *string) ([]core.MasterTeam, error) {
	return f.ListCohort(ctx, cohort)
}
func (f *fakeRankMasterRepo) Deprecate(ctx context.Context, id, survivingID core.MasterID) error { return nil }
func (f *fakeRankMasterRepo) TouchLastScraped(ctx context.Context, id core.MasterID, at time.Time) error {
	return nil
}
func (f *fakeRankMasterRepo) ListCohort(ctx context.Context, cohort core.Cohort) ([]core.MasterTeam, error) {
	var out []core.MasterTeam
	for _, t := range f.teams {
		if t.Cohort() == cohort {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeRankGameRepo struct {
	games []core.Game
}

func (f *fakeRankGameRepo) ExistingUIDs(ctx context.Context, uids []string) (map[string]bool, error) {
	return nil, nil
}
func (f *fakeRankGameRepo) BulkInsert(ctx context.Context, games []core.Game) (int, error) { return 0, nil }
func (f *fakeRankGameRepo) InsertOne(ctx context.Context, game core.Game) error             { return nil }
func (f *fakeRankGameRepo) CompositeKeyExists(ctx context.Context, game core.Game) (bool, error) {
	return false, nil
}
func (f *fakeRankGameRepo) WindowForCohort(ctx context.Context, cohort core.Cohort, since time.Time) ([]core.Game, error) {
	return f.games, nil
}

type fakeRankedRepo struct {
	replaced []core.RankedTeam
}

func (f *fakeRankedRepo) ReplaceCohort(ctx context.Context, cohort core.Cohort, rows []core.RankedTeam) error {
	f.replaced = rows
	return nil
}
func (f *fakeRankedRepo) ListCohort(ctx context.Context, cohort core.Cohort) ([]core.RankedTeam, error) {
	return f.replaced, nil
}
func (f *fakeRankedRepo) Get(ctx context.Context, cohort core.Cohort, master core.MasterID) (*core.RankedTeam, error) {
	return nil, nil
}

func TestRankProducesPermutationOfRanksWithinBounds(t *testing.T) {
	cohort := core.Cohort{AgeGroup: "u12", Gender: core.GenderMale}
	now := time.Now()

	masters := &fakeRankMasterRepo{teams: []core.MasterTeam{
		{MasterID: "A", AgeGroup: "u12", Gender: core.GenderMale, StateCode: strPtr("TX")},
		{MasterID: "B", AgeGroup: "u12", Gender: core.GenderMale, StateCode: strPtr("TX")},
		{MasterID: "C", AgeGroup: "u12", Gender: core.GenderMale, StateCode: strPtr("OK")},
	}}

	games := &fakeRankGameRepo{games: []core.Game{
		{GameUID: "g1", HomeMasterID: "A", AwayMasterID: "B", HomeScore: intPtr(3), AwayScore: intPtr(1), GameDate: now.AddDate(0, 0, -10)},
		{GameUID: "g2", HomeMasterID: "B", AwayMasterID: "C", HomeScore: intPtr(2), AwayScore: intPtr(2), GameDate: now.AddDate(0, 0, -20)},
		{GameUID: "g3", HomeMasterID: "C", AwayMasterID: "A", HomeScore: intPtr(0), AwayScore: intPtr(1), GameDate: now.AddDate(0, 0, -5)},
	}}

	ranked := &fakeRankedRepo{}
	engine := New(games, masters, ranked, DefaultConfig(), nil)

	rows, err := engine.Rank(context.Background(), cohort, now)
	var convWarning *core.RankingConvergenceWarning
	if err != nil && !errors.As(err, &convWarning) {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 ranked teams, got %d", len(rows))
	}

	ranks := map[int]bool{}
	for _, r := range rows {
		if r.SOSRaw < 0 || r.SOSRaw > 1 {
			t.Errorf("SOSRaw out of [0,1]: %v", r.SOSRaw)
		}
		if r.PowerscoreAdj < 0 || r.PowerscoreAdj > 1 {
			t.Errorf("PowerscoreAdj out of [0,1]: %v", r.PowerscoreAdj)
		}
		if r.RankInCohort < 1 || r.RankInCohort > 3 {
			t.Errorf("rank out of bounds: %d", r.RankInCohort)
		}
		ranks[r.RankInCohort] = true
	}
	if len(ranked.replaced) != 3 {
		t.Errorf("expected ReplaceCohort to receive 3 rows, got %d", len(ranked.replaced))
	}
}
