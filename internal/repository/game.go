package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"stormlightlabs.org/rankcore/internal/core"
)

// GameRepository is the Postgres-backed core.GameRepository.
type GameRepository struct {
	db *sql.DB
}

func NewGameRepository(db *sql.DB) *GameRepository {
	return &GameRepository{db: db}
}

func (r *GameRepository) ExistingUIDs(ctx context.Context, uids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(uids))
	if len(uids) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(uids))
	args := make([]any, len(uids))
	for i, uid := range uids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = uid
	}

	query := fmt.Sprintf(`SELECT game_uid FROM games WHERE game_uid IN (%s)`, strings.Join(placeholders, ", "))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("existing uids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scan existing uid: %w", err)
		}
		out[uid] = true
	}
	return out, rows.Err()
}

// BulkInsert inserts as many rows as possible in one statement, skipping rows
// whose (provider_id, home_provider_id, away_provider_id, game_date) tuple
// already exists so the ingestion orchestrator's bulk path is idempotent under
// retries.
func (r *GameRepository) BulkInsert(ctx context.Context, games []core.Game) (int, error) {
	if len(games) == 0 {
		return 0, nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO games (game_uid, provider_id, home_master_id, away_master_id, home_provider_id, away_provider_id, home_score, away_score, game_date, competition, venue) VALUES `)

	args := make([]any, 0, len(games)*11)
	for i, g := range games {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := len(args)
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10, base+11)
		args = append(args,
			g.GameUID, string(g.ProviderID), string(g.HomeMasterID), string(g.AwayMasterID),
			g.HomeProviderID, g.AwayProviderID, g.HomeScore, g.AwayScore, g.GameDate, g.Competition, g.Venue,
		)
	}
	sb.WriteString(` ON CONFLICT (provider_id, home_provider_id, away_provider_id, game_date) DO NOTHING`)

	res, err := r.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("bulk insert games: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bulk insert rows affected: %w", err)
	}
	return int(affected), nil
}

func (r *GameRepository) InsertOne(ctx context.Context, game core.Game) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO games (game_uid, provider_id, home_master_id, away_master_id, home_provider_id, away_provider_id, home_score, away_score, game_date, competition, venue)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (provider_id, home_provider_id, away_provider_id, game_date) DO NOTHING
	`,
		game.GameUID, string(game.ProviderID), string(game.HomeMasterID), string(game.AwayMasterID),
		game.HomeProviderID, game.AwayProviderID, game.HomeScore, game.AwayScore, game.GameDate, game.Competition, game.Venue,
	)
	if err != nil {
		return fmt.Errorf("insert game %s: %w", game.GameUID, err)
	}
	return nil
}

func (r *GameRepository) CompositeKeyExists(ctx context.Context, game core.Game) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM games
			WHERE provider_id = $1 AND home_provider_id = $2 AND away_provider_id = $3 AND game_date = $4
		)
	`, string(game.ProviderID), game.HomeProviderID, game.AwayProviderID, game.GameDate).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("composite key exists: %w", err)
	}
	return exists, nil
}

// WindowForCohort backs the ranking engine's L1 window filter: every game
// within the trailing window whose home or away master team sits in cohort.
func (r *GameRepository) WindowForCohort(ctx context.Context, cohort core.Cohort, since time.Time) ([]core.Game, error) {
	query := `
		SELECT g.game_uid, g.provider_id, g.home_master_id, g.away_master_id, g.home_provider_id, g.away_provider_id,
		       g.home_score, g.away_score, g.game_date, g.competition, g.venue
		FROM games g
		JOIN master_teams home ON home.master_id = g.home_master_id
		JOIN master_teams away ON away.master_id = g.away_master_id
		WHERE g.game_date >= $1
		  AND ((home.age_group = $2 AND home.gender = $3) OR (away.age_group = $2 AND away.gender = $3))
		ORDER BY g.game_date
	`

	rows, err := r.db.QueryContext(ctx, query, since, string(cohort.AgeGroup), string(cohort.Gender))
	if err != nil {
		return nil, fmt.Errorf("window for cohort: %w", err)
	}
	defer rows.Close()

	var out []core.Game
	for rows.Next() {
		var g core.Game
		var competition, venue sql.NullString
		if err := rows.Scan(
			&g.GameUID, &g.ProviderID, &g.HomeMasterID, &g.AwayMasterID, &g.HomeProviderID, &g.AwayProviderID,
			&g.HomeScore, &g.AwayScore, &g.GameDate, &competition, &venue,
		); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		if competition.Valid {
			g.Competition = &competition.String
		}
		if venue.Valid {
			g.Venue = &venue.String
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
