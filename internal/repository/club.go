package repository

import (
	"context"
	"database/sql"
	"fmt"

	"stormlightlabs.org/rankcore/internal/core"
)

// ClubRepository is the Postgres-backed core.ClubRepository.
type ClubRepository struct {
	db *sql.DB
}

func NewClubRepository(db *sql.DB) *ClubRepository {
	return &ClubRepository{db: db}
}

func (r *ClubRepository) ListAll(ctx context.Context) ([]core.ClubVariant, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT canonical_id, display, variant FROM club_variants ORDER BY canonical_id`)
	if err != nil {
		return nil, fmt.Errorf("list club variants: %w", err)
	}
	defer rows.Close()

	var out []core.ClubVariant
	for rows.Next() {
		var v core.ClubVariant
		if err := rows.Scan(&v.CanonicalID, &v.Display, &v.Variant); err != nil {
			return nil, fmt.Errorf("scan club variant: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *ClubRepository) Upsert(ctx context.Context, v core.ClubVariant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO club_variants (canonical_id, display, variant)
		VALUES ($1, $2, $3)
		ON CONFLICT (canonical_id, variant) DO UPDATE SET display = EXCLUDED.display
	`, v.CanonicalID, v.Display, v.Variant)
	if err != nil {
		return fmt.Errorf("upsert club variant: %w", err)
	}
	return nil
}
