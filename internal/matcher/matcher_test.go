package matcher

import (
	"context"
	"testing"
	"time"

	"stormlightlabs.org/rankcore/internal/alias"
	"stormlightlabs.org/rankcore/internal/club"
	"stormlightlabs.org/rankcore/internal/core"
)

type fakeAliasRepo struct {
	aliases map[string]core.Alias
}

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
	if page.Offset > 0 {
		return nil, nil
	}
	var out []core.Alias
	for _, a := range f.aliases {
		if a.ReviewStatus == core.ReviewStatusApproved {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAliasRepo) FindByName(ctx context.Context, provider core.ProviderID, rawName string, gender core.Gender, age *core.AgeGroup) ([]core.Alias, error) {
	return nil, nil
}

func (f *fakeAliasRepo) Invalidate(ctx context.Context, master core.MasterID) error { return nil }

type fakeMasterRepo struct {
	teams map[core.MasterID]core.MasterTeam
	next  int
}

func newFakeMasterRepo(teams ...core.MasterTeam) *fakeMasterRepo {
	m := &fakeMasterRepo{teams: map[core.MasterID]core.MasterTeam{}}
	for _, t := range teams {
		m.teams[t.MasterID] = t
	}
	return m
}

func (f *fakeMasterRepo) Get(ctx context.Context, id core.MasterID) (*core.MasterTeam, error) {
	t, ok := f.teams[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (f *fakeMasterRepo) Create(ctx context.Context, team core.MasterTeam) (core.MasterID, error) {
	f.next++
	id := core.MasterID("m_new_" + string(rune('0'+f.next)))
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

func (f *fakeMasterRepo) Deprecate(ctx context.Context, id core.MasterID, survivingID core.MasterID) error {
	return nil
}
func (f *fakeMasterRepo) TouchLastScraped(ctx context.Context, id core.MasterID, at time.Time) error {
	return nil
}
func (f *fakeMasterRepo) ListCohort(ctx context.Context, cohort core.Cohort) ([]core.MasterTeam, error) {
	return f.CandidatesInCohort(ctx, cohort, nil)
}

type fakeReviewRepo struct {
	entries []core.ReviewEntry
}

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

func TestMatchDirectID(t *testing.T) {
	masters := newFakeMasterRepo(core.MasterTeam{
		MasterID: "M1", TeamName: "FC Dallas 2014 Blue", AgeGroup: "u12", Gender: core.GenderMale,
	})
	aliasRepo := newFakeAliasRepo()
	aliasRepo.aliases[aliasRepo.key("gotsport", "126693")] = core.Alias{
		ProviderID: "gotsport", ProviderTeamID: "126693", MasterID: "M1",
		MatchMethod: core.MatchMethodDirectID, Confidence: 1.0, ReviewStatus: core.ReviewStatusApproved,
	}

	cache := alias.New(aliasRepo, 0, nil)
	if err := cache.Preload(context.Background()); err != nil {
		t.Fatalf("preload: %v", err)
	}

	m := New(cache, club.NewRegistry(), masters, &fakeReviewRepo{}, aliasRepo, DefaultPolicy("gotsport"))

	res, err := m.Match(context.Background(), Request{
		ProviderID: "gotsport", ProviderTeamID: "126693", TeamName: "FC Dallas 2014 Blue",
		AgeGroup: "u12", Gender: core.GenderMale,
	})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if !res.Matched || res.MasterID != "M1" || res.Method != core.MatchMethodDirectID || res.Confidence != 1.0 {
		t.Errorf("got %+v, want direct-id match on M1 with confidence 1.0", res)
	}
}

func TestMatchFuzzyAutoApprove(t *testing.T) {
	masters := newFakeMasterRepo(core.MasterTeam{
		MasterID: "M1", TeamName: "FC Dallas 2014 Blue", ClubName: "FC Dallas",
		AgeGroup: "u12", Gender: core.GenderMale,
	})
	aliasRepo := newFakeAliasRepo()
	cache := alias.New(aliasRepo, 0, nil)

	registry := club.NewRegistry()
	registry.Load("fc_dallas", "FC Dallas", []string{"FC Dallas"})

	m := New(cache, registry, masters, &fakeReviewRepo{}, aliasRepo, DefaultPolicy("tgs"))

	res, err := m.Match(context.Background(), Request{
		ProviderID: "tgs", ProviderTeamID: "9001", TeamName: "FC Dallas Blue 2014 Boys",
		ClubName: "FC Dallas", AgeGroup: "u12", Gender: core.GenderMale,
	})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if !res.Matched || res.MasterID != "M1" || res.Confidence > 0.99 {
		t.Errorf("got %+v, want auto-approved fuzzy match on M1 with confidence <= 0.99", res)
	}
}

func TestMatchVariantMismatchRejectsWrongCoach(t *testing.T) {
	masters := newFakeMasterRepo(
		core.MasterTeam{MasterID: "M1", TeamName: "Atletico Dallas 15G Riedell", ClubName: "Atletico Dallas", AgeGroup: "u15", Gender: core.GenderFemale},
		core.MasterTeam{MasterID: "M2", TeamName: "Atletico Dallas 15G Davis", ClubName: "Atletico Dallas", AgeGroup: "u15", Gender: core.GenderFemale},
	)
	aliasRepo := newFakeAliasRepo()
	cache := alias.New(aliasRepo, 0, nil)
	registry := club.NewRegistry()
	registry.Load("atletico_dallas", "Atletico Dallas", []string{"Atletico Dallas"})

	m := New(cache, registry, masters, &fakeReviewRepo{}, aliasRepo, DefaultPolicy("tgs"))

	res, err := m.Match(context.Background(), Request{
		ProviderID: "tgs", ProviderTeamID: "9002", TeamName: "Atletico Dallas G15 Davis",
		ClubName: "Atletico Dallas", AgeGroup: "u15", Gender: core.GenderFemale,
	})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if !res.Matched || res.MasterID != "M2" {
		t.Errorf("got %+v, want match on M2 (Davis), never M1 (Riedell)", res)
	}
}
