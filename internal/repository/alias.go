package repository

import (
	"context"
	"database/sql"
	"fmt"

	"stormlightlabs.org/rankcore/internal/core"
)

// AliasRepository is the Postgres-backed core.AliasRepository.
type AliasRepository struct {
	db *sql.DB
}

func NewAliasRepository(db *sql.DB) *AliasRepository {
	return &AliasRepository{db: db}
}

func (r *AliasRepository) Lookup(ctx context.Context, provider core.ProviderID, providerTeamID string) (*core.Alias, error) {
	query := `
		SELECT provider_id, provider_team_id, master_id, match_method, confidence, review_status, created_at, updated_at
		FROM aliases
		WHERE provider_id = $1 AND provider_team_id = $2
	`

	var a core.Alias
	err := r.db.QueryRowContext(ctx, query, string(provider), providerTeamID).Scan(
		&a.ProviderID, &a.ProviderTeamID, &a.MasterID, &a.MatchMethod, &a.Confidence, &a.ReviewStatus, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup alias: %w", err)
	}
	return &a, nil
}

func (r *AliasRepository) Upsert(ctx context.Context, alias core.Alias) error {
	query := `
		INSERT INTO aliases (provider_id, provider_team_id, master_id, match_method, confidence, review_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (provider_id, provider_team_id) DO UPDATE
		SET master_id = EXCLUDED.master_id,
		    match_method = EXCLUDED.match_method,
		    confidence = EXCLUDED.confidence,
		    review_status = EXCLUDED.review_status,
		    updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query,
		string(alias.ProviderID), alias.ProviderTeamID, string(alias.MasterID),
		string(alias.MatchMethod), alias.Confidence, string(alias.ReviewStatus),
	)
	if err != nil {
		return fmt.Errorf("upsert alias: %w", err)
	}
	return nil
}

func (r *AliasRepository) PageApproved(ctx context.Context, page core.Page) ([]core.Alias, error) {
	query := `
		SELECT provider_id, provider_team_id, master_id, match_method, confidence, review_status, created_at, updated_at
		FROM aliases
		WHERE review_status = 'approved'
		ORDER BY provider_id, provider_team_id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("page approved aliases: %w", err)
	}
	defer rows.Close()

	var out []core.Alias
	for rows.Next() {
		var a core.Alias
		if err := rows.Scan(&a.ProviderID, &a.ProviderTeamID, &a.MasterID, &a.MatchMethod, &a.Confidence, &a.ReviewStatus, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// FindByName backs Tier 2 alias-by-name matching: every approved alias for the
// provider whose master team falls in the given cohort and whose master team
// name equals rawName, compared case-insensitively.
func (r *AliasRepository) FindByName(ctx context.Context, provider core.ProviderID, rawName string, gender core.Gender, age *core.AgeGroup) ([]core.Alias, error) {
	query := `
		SELECT a.provider_id, a.provider_team_id, a.master_id, a.match_method, a.confidence, a.review_status, a.created_at, a.updated_at
		FROM aliases a
		JOIN master_teams m ON m.master_id = a.master_id
		WHERE a.provider_id = $1 AND a.review_status = 'approved' AND m.gender = $2 AND NOT m.is_deprecated
	`
	args := []any{string(provider), string(gender)}

	query += fmt.Sprintf(" AND LOWER(m.team_name) = LOWER($%d)", len(args)+1)
	args = append(args, rawName)

	if age != nil {
		query += fmt.Sprintf(" AND m.age_group = $%d", len(args)+1)
		args = append(args, string(*age))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find aliases by name: %w", err)
	}
	defer rows.Close()

	var out []core.Alias
	for rows.Next() {
		var a core.Alias
		if err := rows.Scan(&a.ProviderID, &a.ProviderTeamID, &a.MasterID, &a.MatchMethod, &a.Confidence, &a.ReviewStatus, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AliasRepository) Invalidate(ctx context.Context, master core.MasterID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM aliases WHERE master_id = $1`, string(master))
	if err != nil {
		return fmt.Errorf("invalidate aliases for %s: %w", master, err)
	}
	return nil
}
