package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stormlightlabs.org/rankcore/internal/core"
)

// MasterTeamRepository is the Postgres-backed core.MasterTeamRepository.
type MasterTeamRepository struct {
	db *sql.DB
}

func NewMasterTeamRepository(db *sql.DB) *MasterTeamRepository {
	return &MasterTeamRepository{db: db}
}

func scanMasterTeam(row interface{ Scan(...any) error }) (*core.MasterTeam, error) {
	var m core.MasterTeam
	var stateCode sql.NullString
	var deprecatedTo sql.NullString

	if err := row.Scan(
		&m.MasterID, &m.TeamName, &m.ClubName, &m.AgeGroup, &m.Gender,
		&stateCode, &m.IsDeprecated, &deprecatedTo, &m.CreatedAt, &m.LastScrapedAt,
	); err != nil {
		return nil, err
	}

	if stateCode.Valid {
		m.StateCode = &stateCode.String
	}
	if deprecatedTo.Valid {
		id := core.MasterID(deprecatedTo.String)
		m.DeprecatedTo = &id
	}
	return &m, nil
}

const masterTeamColumns = `
	master_id, team_name, club_name, age_group, gender,
	state_code, is_deprecated, deprecated_to, created_at, last_scraped_at
`

func (r *MasterTeamRepository) Get(ctx context.Context, id core.MasterID) (*core.MasterTeam, error) {
	query := `SELECT ` + masterTeamColumns + ` FROM master_teams WHERE master_id = $1`
	m, err := scanMasterTeam(r.db.QueryRowContext(ctx, query, string(id)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get master team: %w", err)
	}
	return m, nil
}

func (r *MasterTeamRepository) Create(ctx context.Context, team core.MasterTeam) (core.MasterID, error) {
	id := core.MasterID(uuid.NewString())

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO master_teams (master_id, team_name, club_name, age_group, gender, state_code, is_deprecated, created_at, last_scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, NOW(), NOW())
	`, string(id), team.TeamName, team.ClubName, string(team.AgeGroup), string(team.Gender), team.StateCode)
	if err != nil {
		return "", fmt.Errorf("create master team: %w", err)
	}
	return id, nil
}

// CandidatesInCohort backs Tier 3 fuzzy matching's candidate pool: every
// non-deprecated master in the cohort, optionally narrowed by state to keep
// the funnel cheap before the textsim gates run in-process.
func (r *MasterTeamRepository) CandidatesInCohort(ctx context.Context, cohort core.Cohort, stateCode *string) ([]core.MasterTeam, error) {
	query := `SELECT ` + masterTeamColumns + ` FROM master_teams WHERE age_group = $1 AND gender = $2 AND NOT is_deprecated`
	args := []any{string(cohort.AgeGroup), string(cohort.Gender)}

	if stateCode != nil {
		query += fmt.Sprintf(" AND state_code = $%d", len(args)+1)
		args = append(args, *stateCode)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("candidates in cohort: %w", err)
	}
	defer rows.Close()

	var out []core.MasterTeam
	for rows.Next() {
		m, err := scanMasterTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan master team: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *MasterTeamRepository) Deprecate(ctx context.Context, id, survivingID core.MasterID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE master_teams SET is_deprecated = TRUE, deprecated_to = $2 WHERE master_id = $1
	`, string(id), string(survivingID))
	if err != nil {
		return fmt.Errorf("deprecate master team %s: %w", id, err)
	}
	return nil
}

func (r *MasterTeamRepository) TouchLastScraped(ctx context.Context, id core.MasterID, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE master_teams SET last_scraped_at = $2 WHERE master_id = $1`, string(id), at)
	if err != nil {
		return fmt.Errorf("touch last scraped for %s: %w", id, err)
	}
	return nil
}

func (r *MasterTeamRepository) ListCohort(ctx context.Context, cohort core.Cohort) ([]core.MasterTeam, error) {
	query := `SELECT ` + masterTeamColumns + ` FROM master_teams WHERE age_group = $1 AND gender = $2 AND NOT is_deprecated ORDER BY team_name`
	rows, err := r.db.QueryContext(ctx, query, string(cohort.AgeGroup), string(cohort.Gender))
	if err != nil {
		return nil, fmt.Errorf("list cohort: %w", err)
	}
	defer rows.Close()

	var out []core.MasterTeam
	for rows.Next() {
		m, err := scanMasterTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan master team: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
