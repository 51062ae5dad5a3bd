package dedupe

import (
	"context"
	"testing"
	"time"

	"stormlightlabs.org/rankcore/internal/core"
)

type fakeGameRepo struct {
	composite map[string]bool
}

func (f *fakeGameRepo) ExistingUIDs(ctx context.Context, uids []string) (map[string]bool, error) {
	return nil, nil
}
func (f *fakeGameRepo) BulkInsert(ctx context.Context, games []core.Game) (int, error) { return len(games), nil }
func (f *fakeGameRepo) InsertOne(ctx context.Context, game core.Game) error            { return nil }
func (f *fakeGameRepo) CompositeKeyExists(ctx context.Context, game core.Game) (bool, error) {
	return f.composite[compositeKey(Neutral{
		ProviderID: game.ProviderID, HomeProviderID: game.HomeProviderID,
		AwayProviderID: game.AwayProviderID, HomeScore: game.HomeScore, AwayScore: game.AwayScore,
		GameDate: game.GameDate,
	})], nil
}
func (f *fakeGameRepo) WindowForCohort(ctx context.Context, cohort core.Cohort, since time.Time) ([]core.Game, error) {
	return nil, nil
}

func score(n int) *int { return &n }

func TestGameUIDInvariantUnderPerspectiveSwap(t *testing.T) {
	date := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	home := PerspectiveRecord{
		ProviderID: "gotsport", TeamID: "126693", OpponentID: "128456",
		HomeAway: "H", GoalsFor: score(3), GoalsAgainst: score(1), GameDate: date,
	}
	away := PerspectiveRecord{
		ProviderID: "gotsport", TeamID: "128456", OpponentID: "126693",
		HomeAway: "A", GoalsFor: score(1), GoalsAgainst: score(3), GameDate: date,
	}

	uidHome := GameUID(ToNeutral(home))
	uidAway := GameUID(ToNeutral(away))

	if uidHome != uidAway {
		t.Errorf("game_uid not invariant under perspective swap: %q vs %q", uidHome, uidAway)
	}
}

func TestDedupeCollapsesBothPerspectivesToOneGame(t *testing.T) {
	date := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	home := ToNeutral(PerspectiveRecord{
		ProviderID: "gotsport", TeamID: "126693", OpponentID: "128456",
		HomeAway: "H", GoalsFor: score(3), GoalsAgainst: score(1), GameDate: date,
	})
	away := ToNeutral(PerspectiveRecord{
		ProviderID: "gotsport", TeamID: "128456", OpponentID: "126693",
		HomeAway: "A", GoalsFor: score(1), GoalsAgainst: score(3), GameDate: date,
	})

	games, err := Dedupe(context.Background(), []Neutral{home, away}, map[string]bool{}, &fakeGameRepo{composite: map[string]bool{}})
	if err != nil {
		t.Fatalf("Dedupe failed: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("got %d games, want exactly 1 (perspective collapse)", len(games))
	}
}

func TestDedupeSkipsExistingUID(t *testing.T) {
	date := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	n := ToNeutral(PerspectiveRecord{
		ProviderID: "gotsport", TeamID: "1", OpponentID: "2",
		HomeAway: "H", GoalsFor: score(2), GoalsAgainst: score(0), GameDate: date,
	})
	existing := map[string]bool{GameUID(n): true}

	games, err := Dedupe(context.Background(), []Neutral{n}, existing, &fakeGameRepo{composite: map[string]bool{}})
	if err != nil {
		t.Fatalf("Dedupe failed: %v", err)
	}
	if len(games) != 0 {
		t.Fatalf("got %d games, want 0 (uid already exists)", len(games))
	}
}
