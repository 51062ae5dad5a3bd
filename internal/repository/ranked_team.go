package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"stormlightlabs.org/rankcore/internal/core"
)

// RankedTeamRepository is the Postgres-backed core.RankedTeamRepository.
// Ranking snapshots are replaced wholesale per cohort per run rather than
// diffed row by row, matching the engine's all-at-once recompute.
type RankedTeamRepository struct {
	db *sql.DB
}

func NewRankedTeamRepository(db *sql.DB) *RankedTeamRepository {
	return &RankedTeamRepository{db: db}
}

const rankedTeamColumns = `
	master_id, age_group, gender, games, offense_raw, offense_norm, defense_raw, defense_norm,
	sos_raw, sos_norm, perf_centered, provisional_mult, anchor, powerscore_core, powerscore_adj,
	powerscore_ml, rank_in_cohort, as_of
`

func (r *RankedTeamRepository) ReplaceCohort(ctx context.Context, cohort core.Cohort, rows []core.RankedTeam) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace cohort tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ranked_teams WHERE age_group = $1 AND gender = $2`,
		string(cohort.AgeGroup), string(cohort.Gender)); err != nil {
		return fmt.Errorf("clear cohort snapshot: %w", err)
	}

	if len(rows) > 0 {
		var sb strings.Builder
		sb.WriteString(`INSERT INTO ranked_teams (` + rankedTeamColumns + `) VALUES `)

		args := make([]any, 0, len(rows)*18)
		for i, row := range rows {
			if i > 0 {
				sb.WriteString(", ")
			}
			base := len(args)
			placeholders := make([]string, 18)
			for j := range placeholders {
				placeholders[j] = fmt.Sprintf("$%d", base+j+1)
			}
			sb.WriteString("(" + strings.Join(placeholders, ",") + ")")

			args = append(args,
				string(row.MasterID), string(row.Cohort.AgeGroup), string(row.Cohort.Gender), row.Games,
				row.OffenseRaw, row.OffenseNorm, row.DefenseRaw, row.DefenseNorm,
				row.SOSRaw, row.SOSNorm, row.PerfCentered, row.ProvisionalMul, row.Anchor,
				row.PowerscoreCore, row.PowerscoreAdj, row.PowerscoreML, row.RankInCohort, row.AsOf,
			)
		}

		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("insert cohort snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace cohort tx: %w", err)
	}
	return nil
}

func (r *RankedTeamRepository) ListCohort(ctx context.Context, cohort core.Cohort) ([]core.RankedTeam, error) {
	query := `SELECT ` + rankedTeamColumns + ` FROM ranked_teams WHERE age_group = $1 AND gender = $2 ORDER BY rank_in_cohort`
	rows, err := r.db.QueryContext(ctx, query, string(cohort.AgeGroup), string(cohort.Gender))
	if err != nil {
		return nil, fmt.Errorf("list ranked cohort: %w", err)
	}
	defer rows.Close()

	var out []core.RankedTeam
	for rows.Next() {
		row, err := scanRankedTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ranked team: %w", err)
		}
		out = append(out, *row)
	}
	return out, rows.Err()
}

func (r *RankedTeamRepository) Get(ctx context.Context, cohort core.Cohort, master core.MasterID) (*core.RankedTeam, error) {
	query := `SELECT ` + rankedTeamColumns + ` FROM ranked_teams WHERE age_group = $1 AND gender = $2 AND master_id = $3`
	row, err := scanRankedTeam(r.db.QueryRowContext(ctx, query, string(cohort.AgeGroup), string(cohort.Gender), string(master)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ranked team: %w", err)
	}
	return row, nil
}

func scanRankedTeam(row interface{ Scan(...any) error }) (*core.RankedTeam, error) {
	var rt core.RankedTeam
	var powerscoreML sql.NullFloat64

	if err := row.Scan(
		&rt.MasterID, &rt.Cohort.AgeGroup, &rt.Cohort.Gender, &rt.Games, &rt.OffenseRaw, &rt.OffenseNorm,
		&rt.DefenseRaw, &rt.DefenseNorm, &rt.SOSRaw, &rt.SOSNorm, &rt.PerfCentered, &rt.ProvisionalMul,
		&rt.Anchor, &rt.PowerscoreCore, &rt.PowerscoreAdj, &powerscoreML, &rt.RankInCohort, &rt.AsOf,
	); err != nil {
		return nil, err
	}
	if powerscoreML.Valid {
		rt.PowerscoreML = &powerscoreML.Float64
	}
	return &rt, nil
}
