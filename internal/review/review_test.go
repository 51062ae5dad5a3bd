package review

import (
	"context"
	"testing"
	"time"

	"stormlightlabs.org/rankcore/internal/core"
)

type fakeReviewRepo struct {
	entries map[int64]core.ReviewEntry
}

func (f *fakeReviewRepo) Create(ctx context.Context, entry core.ReviewEntry) (int64, error) {
	id := int64(len(f.entries) + 1)
	entry.ID = id
	f.entries[id] = entry
	return id, nil
}
func (f *fakeReviewRepo) Get(ctx context.Context, id int64) (*core.ReviewEntry, error) {
	e, ok := f.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}
func (f *fakeReviewRepo) ListPending(ctx context.Context, page core.Page) ([]core.ReviewEntry, error) {
	var out []core.ReviewEntry
	for _, e := range f.entries {
		if e.Status == core.ReviewStatusPending {
			out = append(out, e)
		}
	}
	return out, nil
}
func (f *fakeReviewRepo) SetStatus(ctx context.Context, id int64, status core.ReviewStatus, resolvedAt time.Time) error {
	e := f.entries[id]
	e.Status = status
	f.entries[id] = e
	return nil
}

type fakeAliasRepo struct {
	last core.Alias
}

func (f *fakeAliasRepo) Lookup(ctx context.Context, provider core.ProviderID, providerTeamID string) (*core.Alias, error) {
	return nil, nil
}
func (f *fakeAliasRepo) Upsert(ctx context.Context, a core.Alias) error { f.last = a; return nil }
func (f *fakeAliasRepo) PageApproved(ctx context.Context, page core.Page) ([]core.Alias, error) {
	return nil, nil
}
func (f *fakeAliasRepo) FindByName(ctx context.Context, provider core.ProviderID, rawName string, gender core.Gender, age *core.AgeGroup) ([]core.Alias, error) {
	return nil, nil
}
func (f *fakeAliasRepo) Invalidate(ctx context.Context, master core.MasterID) error { return nil }

func TestApproveCreatesAliasAndMarksApproved(t *testing.T) {
	reviews := &fakeReviewRepo{entries: map[int64]core.ReviewEntry{
		1: {ID: 1, ProviderID: "tgs", ProviderTeamID: "9001", RawName: "FC Dallas", Confidence: 0.82, Status: core.ReviewStatusPending},
	}}
	aliases := &fakeAliasRepo{}

	triggered := false
	q := New(reviews, aliases, func(ctx context.Context, masterID core.MasterID) error {
		triggered = true
		return nil
	})

	if err := q.Approve(context.Background(), 1, "M1"); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	if aliases.last.MasterID != "M1" || aliases.last.ReviewStatus != core.ReviewStatusApproved {
		t.Errorf("got alias %+v, want approved alias pointing at M1", aliases.last)
	}
	if reviews.entries[1].Status != core.ReviewStatusApproved {
		t.Errorf("review entry status = %v, want approved", reviews.entries[1].Status)
	}
	if !triggered {
		t.Error("expected rematch trigger to fire on approve")
	}
}

func TestRejectLeavesNoAlias(t *testing.T) {
	reviews := &fakeReviewRepo{entries: map[int64]core.ReviewEntry{
		1: {ID: 1, Status: core.ReviewStatusPending},
	}}
	aliases := &fakeAliasRepo{}
	q := New(reviews, aliases, nil)

	if err := q.Reject(context.Background(), 1); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if reviews.entries[1].Status != core.ReviewStatusRejected {
		t.Errorf("status = %v, want rejected", reviews.entries[1].Status)
	}
	if aliases.last != (core.Alias{}) {
		t.Error("expected no alias created on reject")
	}
}
