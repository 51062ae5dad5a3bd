// Package review implements the pending-match review queue (C9): an
// append-only log per (provider_id, provider_team_id) with last-write-wins
// status, and the approve/reject/requeue operations that mutate it.
package review

import (
	"context"
	"fmt"
	"time"

	"stormlightlabs.org/rankcore/internal/core"
)

// RematchTrigger is invoked after an approval creates or merges a master,
// giving the matcher a hook to re-run queued candidates against the updated
// alias cache.
type RematchTrigger func(ctx context.Context, masterID core.MasterID) error

// Queue wraps the review repository with the operations described in §4.9.
type Queue struct {
	Reviews core.ReviewRepository
	Aliases core.AliasRepository
	OnApprove RematchTrigger
}

// New creates a review Queue.
func New(reviews core.ReviewRepository, aliases core.AliasRepository, onApprove RematchTrigger) *Queue {
	return &Queue{Reviews: reviews, Aliases: aliases, OnApprove: onApprove}
}

// Approve resolves a pending entry onto a master team, creating the
// corresponding alias with review_status=approved.
func (q *Queue) Approve(ctx context.Context, entryID int64, masterID core.MasterID) error {
	entry, err := q.Reviews.Get(ctx, entryID)
	if err != nil {
		return fmt.Errorf("get review entry: %w", err)
	}
	if entry == nil {
		return core.NewNotFoundError("review entry", fmt.Sprint(entryID))
	}

	a := core.Alias{
		ProviderID: entry.ProviderID, ProviderTeamID: entry.ProviderTeamID,
		MasterID: masterID, MatchMethod: core.MatchMethodReview,
		Confidence: entry.Confidence, ReviewStatus: core.ReviewStatusApproved,
		UpdatedAt: time.Now(),
	}
	if a.Confidence >= 1.0 {
		a.Confidence = 0.99
	}
	if err := q.Aliases.Upsert(ctx, a); err != nil {
		return fmt.Errorf("upsert alias on approve: %w", err)
	}

	if err := q.Reviews.SetStatus(ctx, entryID, core.ReviewStatusApproved, time.Now()); err != nil {
		return fmt.Errorf("set review status: %w", err)
	}

	if q.OnApprove != nil {
		if err := q.OnApprove(ctx, masterID); err != nil {
			return fmt.Errorf("rematch trigger: %w", err)
		}
	}
	return nil
}

// Reject marks an entry rejected; no alias is created.
func (q *Queue) Reject(ctx context.Context, entryID int64) error {
	return q.Reviews.SetStatus(ctx, entryID, core.ReviewStatusRejected, time.Now())
}

// Requeue resets a previously resolved entry back to pending.
func (q *Queue) Requeue(ctx context.Context, entryID int64) error {
	return q.Reviews.SetStatus(ctx, entryID, core.ReviewStatusPending, time.Time{})
}

// ListPending returns the pending review entries, paginated.
func (q *Queue) ListPending(ctx context.Context, page core.Page) ([]core.ReviewEntry, error) {
	return q.Reviews.ListPending(ctx, page)
}
