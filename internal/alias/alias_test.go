package alias

import (
	"context"
	"sync"
	"testing"

	"stormlightlabs.org/rankcore/internal/core"
)

type fakeStore struct {
	mu      sync.Mutex
	aliases map[string]core.Alias
	pages   [][]core.Alias
}

func newFakeStore(pages ...[]core.Alias) *fakeStore {
	return &fakeStore{aliases: make(map[string]core.Alias), pages: pages}
}

func (f *fakeStore) storeKey(p core.ProviderID, id string) string { return string(p) + "|" + id }

func (f *fakeStore) Lookup(ctx context.Context, provider core.ProviderID, providerTeamID string) (*core.Alias, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.aliases[f.storeKey(provider, providerTeamID)]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (f *fakeStore) Upsert(ctx context.Context, a core.Alias) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aliases[f.storeKey(a.ProviderID, a.ProviderTeamID)] = a
	return nil
}

func (f *fakeStore) PageApproved(ctx context.Context, page core.Page) ([]core.Alias, error) {
	idx := page.Offset / max(page.Limit, 1)
	if idx >= len(f.pages) {
		return nil, nil
	}
	return f.pages[idx], nil
}

func (f *fakeStore) FindByName(ctx context.Context, provider core.ProviderID, rawName string, gender core.Gender, age *core.AgeGroup) ([]core.Alias, error) {
	return nil, nil
}

func (f *fakeStore) Invalidate(ctx context.Context, master core.MasterID) error { return nil }

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func TestPreloadExpandsSubIDs(t *testing.T) {
	store := newFakeStore([]core.Alias{
		{ProviderID: "gotsport", ProviderTeamID: "100;101;102", MasterID: "M1", ReviewStatus: core.ReviewStatusApproved},
	})
	c := New(store, 0, nil)
	if err := c.Preload(context.Background()); err != nil {
		t.Fatalf("Preload failed: %v", err)
	}

	for _, sub := range []string{"100", "101", "102"} {
		id, ok := c.Lookup("gotsport", sub)
		if !ok || id != "M1" {
			t.Errorf("Lookup(%q) = (%q, %v), want (M1, true)", sub, id, ok)
		}
	}
}

func TestUpsertCapsFuzzyConfidence(t *testing.T) {
	store := newFakeStore()
	c := New(store, 0, nil)

	err := c.Upsert(context.Background(), core.Alias{
		ProviderID: "tgs", ProviderTeamID: "9001", MasterID: "M2",
		MatchMethod: core.MatchMethodFuzzy, Confidence: 1.0,
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	stored := store.aliases[store.storeKey("tgs", "9001")]
	if stored.Confidence != 0.99 {
		t.Errorf("Confidence = %v, want 0.99 (fuzzy matches must never reach 1.0)", stored.Confidence)
	}
}

func TestUpsertConcurrentSameMasterSerializes(t *testing.T) {
	store := newFakeStore()
	c := New(store, 0, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = c.Upsert(context.Background(), core.Alias{
				ProviderID: "gotsport", ProviderTeamID: "same-team", MasterID: "M3",
				MatchMethod: core.MatchMethodDirectID, Confidence: 1.0,
			})
		}(i)
	}
	wg.Wait()

	id, ok := c.Lookup("gotsport", "same-team")
	if !ok || id != "M3" {
		t.Errorf("Lookup after concurrent upserts = (%q, %v), want (M3, true)", id, ok)
	}
}
