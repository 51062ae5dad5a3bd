package repository

import (
	"context"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"stormlightlabs.org/rankcore/internal/core"
	"stormlightlabs.org/rankcore/internal/db"
	"stormlightlabs.org/rankcore/internal/testutils"
)

func setupTestDB(t *testing.T) (*db.DB, func()) {
	t.Helper()

	ctx := context.Background()
	projectRoot, err := testutils.GetProjectRoot()
	if err != nil {
		t.Fatalf("failed to get project root: %v", err)
	}

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get current directory: %v", err)
	}
	if err := os.Chdir(projectRoot); err != nil {
		t.Fatalf("failed to change to project root: %v", err)
	}

	container, err := testutils.NewPostgresContainer(ctx)
	if err != nil {
		t.Fatalf("failed to create postgres container: %v", err)
	}

	cleanup := func() {
		os.Chdir(originalDir)
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	}

	database, err := db.Connect(container.ConnStr)
	if err != nil {
		cleanup()
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(ctx); err != nil {
		cleanup()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return database, cleanup
}

func TestMasterTeamRepositoryCreateGetAndCohortListing(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	repo := NewMasterTeamRepository(database.DB)
	state := "TX"

	id, err := repo.Create(ctx, core.MasterTeam{
		TeamName: "Dallas Texans 12B", ClubName: "Dallas Texans",
		AgeGroup: "u12", Gender: core.GenderMale, StateCode: &state,
	})
	if err != nil {
		t.Fatalf("create master team: %v", err)
	}

	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("get master team: %v", err)
	}
	if got == nil || got.TeamName != "Dallas Texans 12B" {
		t.Fatalf("unexpected master team: %+v", got)
	}
	if got.StateCode == nil || *got.StateCode != "TX" {
		t.Errorf("expected state_code TX, got %+v", got.StateCode)
	}

	cohort := core.Cohort{AgeGroup: "u12", Gender: core.GenderMale}
	listed, err := repo.ListCohort(ctx, cohort)
	if err != nil {
		t.Fatalf("list cohort: %v", err)
	}
	if len(listed) != 1 || listed[0].MasterID != id {
		t.Errorf("expected 1 listed team matching created id, got %+v", listed)
	}
}

func TestMasterTeamRepositoryDeprecateExcludesFromCohort(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	repo := NewMasterTeamRepository(database.DB)
	cohort := core.Cohort{AgeGroup: "u13", Gender: core.GenderFemale}

	loser, err := repo.Create(ctx, core.MasterTeam{TeamName: "A", ClubName: "A FC", AgeGroup: "u13", Gender: core.GenderFemale})
	if err != nil {
		t.Fatalf("create loser: %v", err)
	}
	survivor, err := repo.Create(ctx, core.MasterTeam{TeamName: "B", ClubName: "B FC", AgeGroup: "u13", Gender: core.GenderFemale})
	if err != nil {
		t.Fatalf("create survivor: %v", err)
	}

	if err := repo.Deprecate(ctx, loser, survivor); err != nil {
		t.Fatalf("deprecate: %v", err)
	}

	listed, err := repo.ListCohort(ctx, cohort)
	if err != nil {
		t.Fatalf("list cohort: %v", err)
	}
	if len(listed) != 1 || listed[0].MasterID != survivor {
		t.Errorf("expected only the survivor listed, got %+v", listed)
	}
}

func TestAliasRepositoryUpsertAndLookup(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	masters := NewMasterTeamRepository(database.DB)
	aliases := NewAliasRepository(database.DB)

	masterID, err := masters.Create(ctx, core.MasterTeam{TeamName: "Rush U14", ClubName: "Rush", AgeGroup: "u14", Gender: core.GenderMale})
	if err != nil {
		t.Fatalf("create master: %v", err)
	}

	alias := core.Alias{
		ProviderID: "gotsport", ProviderTeamID: "gs-123", MasterID: masterID,
		MatchMethod: core.MatchMethodCreated, Confidence: 1.0, ReviewStatus: core.ReviewStatusApproved,
	}
	if err := aliases.Upsert(ctx, alias); err != nil {
		t.Fatalf("upsert alias: %v", err)
	}

	got, err := aliases.Lookup(ctx, "gotsport", "gs-123")
	if err != nil {
		t.Fatalf("lookup alias: %v", err)
	}
	if got == nil || got.MasterID != masterID {
		t.Fatalf("unexpected alias lookup result: %+v", got)
	}

	alias.Confidence = 0.92
	alias.ReviewStatus = core.ReviewStatusPending
	if err := aliases.Upsert(ctx, alias); err != nil {
		t.Fatalf("re-upsert alias: %v", err)
	}

	got, err = aliases.Lookup(ctx, "gotsport", "gs-123")
	if err != nil {
		t.Fatalf("lookup alias after update: %v", err)
	}
	if got.ReviewStatus != core.ReviewStatusPending {
		t.Errorf("expected review_status pending after re-upsert, got %s", got.ReviewStatus)
	}
}

func TestGameRepositoryBulkInsertIsIdempotent(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	masters := NewMasterTeamRepository(database.DB)
	games := NewGameRepository(database.DB)

	home, err := masters.Create(ctx, core.MasterTeam{TeamName: "Home FC", ClubName: "Home FC", AgeGroup: "u15", Gender: core.GenderMale})
	if err != nil {
		t.Fatalf("create home team: %v", err)
	}
	away, err := masters.Create(ctx, core.MasterTeam{TeamName: "Away FC", ClubName: "Away FC", AgeGroup: "u15", Gender: core.GenderMale})
	if err != nil {
		t.Fatalf("create away team: %v", err)
	}

	homeScore, awayScore := 2, 1
	game := core.Game{
		GameUID: "g-1", ProviderID: "gotsport",
		HomeMasterID: home, AwayMasterID: away,
		HomeProviderID: "h1", AwayProviderID: "a1",
		HomeScore: &homeScore, AwayScore: &awayScore,
		GameDate: time.Now().AddDate(0, 0, -3),
	}

	inserted, err := games.BulkInsert(ctx, []core.Game{game})
	if err != nil {
		t.Fatalf("bulk insert: %v", err)
	}
	if inserted != 1 {
		t.Errorf("expected 1 row inserted, got %d", inserted)
	}

	inserted, err = games.BulkInsert(ctx, []core.Game{game})
	if err != nil {
		t.Fatalf("bulk insert retry: %v", err)
	}
	if inserted != 0 {
		t.Errorf("expected 0 rows inserted on retry, got %d", inserted)
	}

	cohort := core.Cohort{AgeGroup: "u15", Gender: core.GenderMale}
	window, err := games.WindowForCohort(ctx, cohort, time.Now().AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("window for cohort: %v", err)
	}
	if len(window) != 1 {
		t.Fatalf("expected 1 game in window, got %d", len(window))
	}
}

func TestReviewRepositoryCreateAndSetStatus(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	reviews := NewReviewRepository(database.DB)

	id, err := reviews.Create(ctx, core.ReviewEntry{
		ProviderID: "tgs", ProviderTeamID: "tgs-55", RawName: "Unknown FC 09B",
		Confidence: 0.61, Status: core.ReviewStatusPending,
	})
	if err != nil {
		t.Fatalf("create review entry: %v", err)
	}

	pending, err := reviews.ListPending(ctx, core.Page{Limit: 10})
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending entry, got %d", len(pending))
	}

	if err := reviews.SetStatus(ctx, id, core.ReviewStatusApproved, time.Now()); err != nil {
		t.Fatalf("set status: %v", err)
	}

	pending, err = reviews.ListPending(ctx, core.Page{Limit: 10})
	if err != nil {
		t.Fatalf("list pending after approval: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected 0 pending entries after approval, got %d", len(pending))
	}
}

func TestRankedTeamRepositoryReplaceCohortOverwritesPriorSnapshot(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	masters := NewMasterTeamRepository(database.DB)
	ranked := NewRankedTeamRepository(database.DB)
	cohort := core.Cohort{AgeGroup: "u16", Gender: core.GenderFemale}

	teamA, err := masters.Create(ctx, core.MasterTeam{TeamName: "A", ClubName: "A FC", AgeGroup: "u16", Gender: core.GenderFemale})
	if err != nil {
		t.Fatalf("create team A: %v", err)
	}
	teamB, err := masters.Create(ctx, core.MasterTeam{TeamName: "B", ClubName: "B FC", AgeGroup: "u16", Gender: core.GenderFemale})
	if err != nil {
		t.Fatalf("create team B: %v", err)
	}

	now := time.Now()
	first := []core.RankedTeam{
		{MasterID: teamA, Cohort: cohort, Games: 10, PowerscoreAdj: 0.8, RankInCohort: 1, AsOf: now},
		{MasterID: teamB, Cohort: cohort, Games: 8, PowerscoreAdj: 0.6, RankInCohort: 2, AsOf: now},
	}
	if err := ranked.ReplaceCohort(ctx, cohort, first); err != nil {
		t.Fatalf("replace cohort (first): %v", err)
	}

	second := []core.RankedTeam{
		{MasterID: teamA, Cohort: cohort, Games: 11, PowerscoreAdj: 0.55, RankInCohort: 2, AsOf: now},
		{MasterID: teamB, Cohort: cohort, Games: 9, PowerscoreAdj: 0.9, RankInCohort: 1, AsOf: now},
	}
	if err := ranked.ReplaceCohort(ctx, cohort, second); err != nil {
		t.Fatalf("replace cohort (second): %v", err)
	}

	listed, err := ranked.ListCohort(ctx, cohort)
	if err != nil {
		t.Fatalf("list cohort: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected exactly 2 rows after replace, got %d", len(listed))
	}
	if listed[0].MasterID != teamB || listed[0].RankInCohort != 1 {
		t.Errorf("expected team B ranked 1st after the second snapshot, got %+v", listed[0])
	}
}
