package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stormlightlabs.org/rankcore/internal/core"
)

// ReviewRepository is the Postgres-backed core.ReviewRepository.
type ReviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Create(ctx context.Context, entry core.ReviewEntry) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO review_entries (provider_id, provider_team_id, raw_name, suggested_master_id, confidence, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id
	`, string(entry.ProviderID), entry.ProviderTeamID, entry.RawName, entry.SuggestedMasterID, entry.Confidence, string(entry.Status)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create review entry: %w", err)
	}
	return id, nil
}

func (r *ReviewRepository) Get(ctx context.Context, id int64) (*core.ReviewEntry, error) {
	query := `
		SELECT id, provider_id, provider_team_id, raw_name, suggested_master_id, confidence, status, created_at, resolved_at
		FROM review_entries WHERE id = $1
	`
	e, err := scanReviewEntry(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get review entry %d: %w", id, err)
	}
	return e, nil
}

func (r *ReviewRepository) ListPending(ctx context.Context, page core.Page) ([]core.ReviewEntry, error) {
	query := `
		SELECT id, provider_id, provider_team_id, raw_name, suggested_master_id, confidence, status, created_at, resolved_at
		FROM review_entries
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list pending review entries: %w", err)
	}
	defer rows.Close()

	var out []core.ReviewEntry
	for rows.Next() {
		e, err := scanReviewEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review entry: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *ReviewRepository) SetStatus(ctx context.Context, id int64, status core.ReviewStatus, resolvedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE review_entries SET status = $2, resolved_at = $3 WHERE id = $1
	`, id, string(status), resolvedAt)
	if err != nil {
		return fmt.Errorf("set review entry %d status: %w", id, err)
	}
	return nil
}

func scanReviewEntry(row interface{ Scan(...any) error }) (*core.ReviewEntry, error) {
	var e core.ReviewEntry
	var suggested sql.NullString
	var resolvedAt sql.NullTime

	if err := row.Scan(&e.ID, &e.ProviderID, &e.ProviderTeamID, &e.RawName, &suggested, &e.Confidence, &e.Status, &e.CreatedAt, &resolvedAt); err != nil {
		return nil, err
	}
	if suggested.Valid {
		id := core.MasterID(suggested.String)
		e.SuggestedMasterID = &id
	}
	if resolvedAt.Valid {
		e.ResolvedAt = &resolvedAt.Time
	}
	return &e, nil
}
