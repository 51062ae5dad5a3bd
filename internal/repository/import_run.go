package repository

import (
	"context"
	"database/sql"
	"fmt"

	"stormlightlabs.org/rankcore/internal/core"
)

// ImportRunRepository is the Postgres-backed core.ImportRunRepository.
type ImportRunRepository struct {
	db *sql.DB
}

func NewImportRunRepository(db *sql.DB) *ImportRunRepository {
	return &ImportRunRepository{db: db}
}

func (r *ImportRunRepository) Record(ctx context.Context, metrics core.ImportMetrics) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO import_runs (
			run_id, provider_id, started_at, finished_at, processed, accepted, quarantined,
			duplicates, matched, partial, failed, teams_created, fuzzy_auto, fuzzy_review, errors
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		metrics.RunID, string(metrics.ProviderID), metrics.StartedAt, metrics.FinishedAt,
		metrics.Processed, metrics.Accepted, metrics.Quarantined, metrics.Duplicates, metrics.Matched,
		metrics.Partial, metrics.Failed, metrics.TeamsCreated, metrics.FuzzyAuto, metrics.FuzzyReview, metrics.Errors,
	)
	if err != nil {
		return fmt.Errorf("record import run: %w", err)
	}
	return nil
}

// List returns the most recent import run per provider, surfaced through
// GET /v1/meta/import-runs.
func (r *ImportRunRepository) List(ctx context.Context) ([]core.ImportMetrics, error) {
	query := `
		SELECT DISTINCT ON (provider_id)
			run_id, provider_id, started_at, finished_at, processed, accepted, quarantined,
			duplicates, matched, partial, failed, teams_created, fuzzy_auto, fuzzy_review, errors
		FROM import_runs
		ORDER BY provider_id, finished_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	defer rows.Close()

	var out []core.ImportMetrics
	for rows.Next() {
		var m core.ImportMetrics
		if err := rows.Scan(
			&m.RunID, &m.ProviderID, &m.StartedAt, &m.FinishedAt, &m.Processed, &m.Accepted, &m.Quarantined,
			&m.Duplicates, &m.Matched, &m.Partial, &m.Failed, &m.TeamsCreated, &m.FuzzyAuto, &m.FuzzyReview, &m.Errors,
		); err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
