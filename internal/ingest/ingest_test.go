package ingest

import (
	"context"
	"testing"
	"time"

	"stormlightlabs.org/rankcore/internal/alias"
	"stormlightlabs.org/rankcore/internal/club"
	"stormlightlabs.org/rankcore/internal/core"
	"stormlightlabs.org/rankcore/internal/matcher"
	"stormlightlabs.org/rankcore/internal/scraper"
)

type fakeAliasRepo struct{ aliases map[string]core.Alias }

func newFakeAliasRepo() *fakeAliasRepo { return &fakeAliasRepo{aliases: map[string]core.Alias{}} }
func (f *fakeAliasRepo) key(p core.ProviderID, id string) string { return string(p) + "|" + id }
func (f *fakeAliasRepo) Lookup(ctx context.Context, provider core.ProviderID, providerTeamID string) (*core.Alias, error) {
	a, ok := f.aliases[f.key(provider, providerTeamID)]
	if !ok {
		return nil, nil
	}
	return &a, nil
}
func (f *fakeAliasRepo) Upsert(ctx context.Context, a core.Alias) error {
	f.aliases[f.key(a.ProviderID, a.ProviderTeamID)] = a
	return nil
}
func (f *fakeAliasRepo) PageApproved(ctx context.Context, page core.Page) ([]core.Alias, error) {
	return nil, nil
}
func (f *fakeAliasRepo) FindByName(ctx context.Context, provider core.ProviderID, rawName string, gender core.Gender, age *core.AgeGroup) ([]core.Alias, error) {
	return nil, nil
}
func (f *fakeAliasRepo) Invalidate(ctx context.Context, master core.MasterID) error { return nil }

type fakeMasterRepo struct {
	teams map[core.MasterID]core.MasterTeam
	n     int
}

func newFakeMasterRepo() *fakeMasterRepo { return &fakeMasterRepo{teams: map[core.MasterID]core.MasterTeam{}} }
func (f *fakeMasterRepo) Get(ctx context.Context, id core.MasterID) (*core.MasterTeam, error) {
	t, ok := f.teams[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}
func (f *fakeMasterRepo) Create(ctx context.Context, team core.MasterTeam) (core.MasterID, error) {
	f.n++
	id := core.MasterID("created-" + string(rune('0'+f.n)))
	team.MasterID = id
	f.teams[id] = team
	return id, nil
}
func (f *fakeMasterRepo) CandidatesInCohort(ctx context.Context, cohort core.Cohort, stateCode *string) ([]core.MasterTeam, error) {
	var out []core.MasterTeam
	for _, t := range f.teams {
		if t.Cohort() == cohort {
			out = append(out, t)
		}
	}
	return out, nil
}
func (f *fakeMasterRepo) Deprecate(ctx context.Context, id, survivingID core.MasterID) error { return nil }
func (f *fakeMasterRepo) TouchLastScraped(ctx context.Context, id core.MasterID, at time.Time) error {
	return nil
}
func (f *fakeMasterRepo) ListCohort(ctx context.Context, cohort core.Cohort) ([]core.MasterTeam, error) {
	return f.CandidatesInCohort(ctx, cohort, nil)
}

type fakeReviewRepo struct{ entries []core.ReviewEntry }

func (f *fakeReviewRepo) Create(ctx context.Context, entry core.ReviewEntry) (int64, error) {
	entry.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, entry)
	return entry.ID, nil
}
func (f *fakeReviewRepo) Get(ctx context.Context, id int64) (*core.ReviewEntry, error) { return nil, nil }
func (f *fakeReviewRepo) ListPending(ctx context.Context, page core.Page) ([]core.ReviewEntry, error) {
	return f.entries, nil
}
func (f *fakeReviewRepo) SetStatus(ctx context.Context, id int64, status core.ReviewStatus, resolvedAt time.Time) error {
	return nil
}

type fakeGameRepo struct {
	inserted []core.Game
}

func (f *fakeGameRepo) ExistingUIDs(ctx context.Context, uids []string) (map[string]bool, error) {
	return map[string]bool{}, nil
}
func (f *fakeGameRepo) BulkInsert(ctx context.Context, games []core.Game) (int, error) {
	f.inserted = append(f.inserted, games...)
	return len(games), nil
}
func (f *fakeGameRepo) InsertOne(ctx context.Context, game core.Game) error {
	f.inserted = append(f.inserted, game)
	return nil
}
func (f *fakeGameRepo) CompositeKeyExists(ctx context.Context, game core.Game) (bool, error) {
	return false, nil
}
func (f *fakeGameRepo) WindowForCohort(ctx context.Context, cohort core.Cohort, since time.Time) ([]core.Game, error) {
	return f.inserted, nil
}

type fakeImportRuns struct{ recorded []core.ImportMetrics }

func (f *fakeImportRuns) Record(ctx context.Context, m core.ImportMetrics) error {
	f.recorded = append(f.recorded, m)
	return nil
}
func (f *fakeImportRuns) List(ctx context.Context) ([]core.ImportMetrics, error) { return f.recorded, nil }

type fixedSource struct{ records []scraper.Record }

func (s fixedSource) Pull(ctx context.Context) (<-chan scraper.Record, <-chan error) {
	out := make(chan scraper.Record, len(s.records))
	errs := make(chan error)
	for _, r := range s.records {
		out <- r
	}
	close(out)
	close(errs)
	return out, errs
}

func goals(n int) *int { return &n }

func TestRunIngestsAndDedupesPerspectives(t *testing.T) {
	aliasRepo := newFakeAliasRepo()
	masters := newFakeMasterRepo()
	reviews := &fakeReviewRepo{}
	games := &fakeGameRepo{}
	runs := &fakeImportRuns{}

	cache := alias.New(aliasRepo, 0, nil)
	policy := matcher.DefaultPolicy("gotsport")
	policy.MayCreateTeam = true
	m := matcher.New(cache, club.NewRegistry(), masters, reviews, aliasRepo, policy)

	orch := New(m, games, masters, runs, nil, nil)
	orch.BatchSize = 10

	src := fixedSource{records: []scraper.Record{
		{
			Provider: "gotsport", TeamID: "126693", TeamName: "FC Dallas 2014 Blue",
			OpponentID: "128456", OpponentName: "Solar SC 2014 Red",
			GoalsFor: goals(3), GoalsAgainst: goals(1), HomeAway: "H",
			GameDate: "2025-03-15", AgeGroup: "u12", Gender: "Male",
		},
		{
			Provider: "gotsport", TeamID: "128456", TeamName: "Solar SC 2014 Red",
			OpponentID: "126693", OpponentName: "FC Dallas 2014 Blue",
			GoalsFor: goals(1), GoalsAgainst: goals(3), HomeAway: "A",
			GameDate: "2025-03-15", AgeGroup: "u12", Gender: "Male",
		},
	}}

	metrics, err := orch.Run(context.Background(), "gotsport", src)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if metrics.Processed != 2 {
		t.Errorf("Processed = %d, want 2", metrics.Processed)
	}
	if len(games.inserted) != 1 {
		t.Fatalf("inserted %d games, want 1 (perspective collapse)", len(games.inserted))
	}
	if len(runs.recorded) != 1 {
		t.Errorf("expected one import run recorded, got %d", len(runs.recorded))
	}
}

func TestRunQuarantinesInvalidRecords(t *testing.T) {
	aliasRepo := newFakeAliasRepo()
	masters := newFakeMasterRepo()
	reviews := &fakeReviewRepo{}
	games := &fakeGameRepo{}
	runs := &fakeImportRuns{}

	cache := alias.New(aliasRepo, 0, nil)
	m := matcher.New(cache, club.NewRegistry(), masters, reviews, aliasRepo, matcher.DefaultPolicy("gotsport"))
	orch := New(m, games, masters, runs, nil, nil)

	src := fixedSource{records: []scraper.Record{
		{Provider: "gotsport", TeamID: "", OpponentID: "2", GameDate: "2025-03-15", HomeAway: "H"},
		{Provider: "gotsport", TeamID: "1", OpponentID: "2", GameDate: "not-a-date", HomeAway: "H"},
	}}

	metrics, err := orch.Run(context.Background(), "gotsport", src)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if metrics.Quarantined != 2 {
		t.Errorf("Quarantined = %d, want 2", metrics.Quarantined)
	}
}
