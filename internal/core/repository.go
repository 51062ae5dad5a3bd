package core

import (
	"context"
	"time"
)

// Page bounds a paginated scan.
type Page struct {
	Limit  int
	Offset int
}

// AliasRepository persists the Alias table. C4 preloads it at startup via
// PageApproved and writes through Upsert under per-master serialization.
type AliasRepository interface {
	Lookup(ctx context.Context, provider ProviderID, providerTeamID string) (*Alias, error)
	Upsert(ctx context.Context, alias Alias) error
	PageApproved(ctx context.Context, page Page) ([]Alias, error)
	FindByName(ctx context.Context, provider ProviderID, rawName string, gender Gender, age *AgeGroup) ([]Alias, error)
	Invalidate(ctx context.Context, master MasterID) error
}

// MasterTeamRepository persists the MasterTeam table.
type MasterTeamRepository interface {
	Get(ctx context.Context, id MasterID) (*MasterTeam, error)
	Create(ctx context.Context, team MasterTeam) (MasterID, error)
	CandidatesInCohort(ctx context.Context, cohort Cohort, stateCode *string) ([]MasterTeam, error)
	Deprecate(ctx context.Context, id MasterID, survivingID MasterID) error
	TouchLastScraped(ctx context.Context, id MasterID, at time.Time) error
	ListCohort(ctx context.Context, cohort Cohort) ([]MasterTeam, error)
}

// GameRepository persists the Game table.
type GameRepository interface {
	ExistingUIDs(ctx context.Context, uids []string) (map[string]bool, error)
	BulkInsert(ctx context.Context, games []Game) (inserted int, err error)
	InsertOne(ctx context.Context, game Game) error
	CompositeKeyExists(ctx context.Context, game Game) (bool, error)
	WindowForCohort(ctx context.Context, cohort Cohort, since time.Time) ([]Game, error)
}

// ReviewRepository persists the ReviewEntry append-only log.
type ReviewRepository interface {
	Create(ctx context.Context, entry ReviewEntry) (int64, error)
	Get(ctx context.Context, id int64) (*ReviewEntry, error)
	ListPending(ctx context.Context, page Page) ([]ReviewEntry, error)
	SetStatus(ctx context.Context, id int64, status ReviewStatus, resolvedAt time.Time) error
}

// RankedTeamRepository persists ranking snapshots, replaced wholesale per cohort per run.
type RankedTeamRepository interface {
	ReplaceCohort(ctx context.Context, cohort Cohort, rows []RankedTeam) error
	ListCohort(ctx context.Context, cohort Cohort) ([]RankedTeam, error)
	Get(ctx context.Context, cohort Cohort, master MasterID) (*RankedTeam, error)
}

// ImportRunRepository records per-provider ingestion run metadata.
type ImportRunRepository interface {
	Record(ctx context.Context, metrics ImportMetrics) error
	List(ctx context.Context) ([]ImportMetrics, error)
}

// ClubRepository persists the known club-name variant table that seeds
// club.Registry at startup (C3).
type ClubRepository interface {
	ListAll(ctx context.Context) ([]ClubVariant, error)
	Upsert(ctx context.Context, v ClubVariant) error
}
