package core

import (
	"time"

	"github.com/google/uuid"
)

// ProviderID identifies a data source, e.g. "gotsport", "tgs".
type ProviderID string

// MasterID is the opaque stable token for a canonical team identity.
type MasterID string

// Gender is the normalized cohort gender.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// AgeGroup is a normalized U-age cohort label, e.g. "u12".
type AgeGroup string

// MatchMethod records which tier of the matching cascade produced an alias.
type MatchMethod string

const (
	MatchMethodDirectID  MatchMethod = "direct_id"
	MatchMethodAliasName MatchMethod = "alias_name"
	MatchMethodFuzzy     MatchMethod = "fuzzy"
	MatchMethodReview    MatchMethod = "review_approved"
	MatchMethodCreated   MatchMethod = "created"
)

// ReviewStatus is the lifecycle state of an Alias or ReviewEntry.
type ReviewStatus string

const (
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusRejected ReviewStatus = "rejected"
)

// Provider identifies a data source whose team ids and game feeds are ingested.
type Provider struct {
	ProviderCode ProviderID `json:"provider_code" swaggertype:"string"`
	ProviderID   string     `json:"provider_id"`
}

// MasterTeam is the stable canonical team identity all provider aliases resolve to.
type MasterTeam struct {
	MasterID      MasterID  `json:"master_id" swaggertype:"string"`
	TeamName      string    `json:"team_name"`
	ClubName      string    `json:"club_name"`
	AgeGroup      AgeGroup  `json:"age_group" swaggertype:"string"`
	Gender        Gender    `json:"gender" swaggertype:"string"`
	StateCode     *string   `json:"state_code,omitempty"`
	IsDeprecated  bool      `json:"is_deprecated"`
	DeprecatedTo  *MasterID `json:"deprecated_to,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastScrapedAt time.Time `json:"last_scraped_at"`
}

// Cohort returns the (age_group, gender) pair used for normalization and ranking.
func (m MasterTeam) Cohort() Cohort {
	return Cohort{AgeGroup: m.AgeGroup, Gender: m.Gender}
}

// Cohort is the (age_group, gender) pairing used to group teams for ranking.
type Cohort struct {
	AgeGroup AgeGroup `json:"age_group"`
	Gender   Gender   `json:"gender"`
}

// Alias maps a single provider's team id to a MasterTeam. Unique by
// (provider_id, provider_team_id). ProviderTeamID may carry semicolon-joined
// sub-ids representing teams folded into this one by a prior merge.
type Alias struct {
	ProviderID     ProviderID   `json:"provider_id" swaggertype:"string"`
	ProviderTeamID string       `json:"provider_team_id"`
	MasterID       MasterID     `json:"master_id" swaggertype:"string"`
	MatchMethod    MatchMethod  `json:"match_method" swaggertype:"string"`
	Confidence     float64      `json:"confidence"`
	ReviewStatus   ReviewStatus `json:"review_status" swaggertype:"string"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// SubIDs splits a semicolon-joined ProviderTeamID into its constituent ids.
func (a Alias) SubIDs() []string {
	return splitSemicolon(a.ProviderTeamID)
}

func splitSemicolon(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ';' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

// Game is an immutable, deduplicated match result between two master teams.
type Game struct {
	GameUID        string     `json:"game_uid"`
	ProviderID     ProviderID `json:"provider_id" swaggertype:"string"`
	HomeMasterID   MasterID   `json:"home_master_id" swaggertype:"string"`
	AwayMasterID   MasterID   `json:"away_master_id" swaggertype:"string"`
	HomeProviderID string     `json:"home_provider_id"`
	AwayProviderID string     `json:"away_provider_id"`
	HomeScore      *int       `json:"home_score,omitempty"`
	AwayScore      *int       `json:"away_score,omitempty"`
	GameDate       time.Time  `json:"game_date"`
	Competition    *string    `json:"competition,omitempty"`
	Venue          *string    `json:"venue,omitempty"`
}

// ReviewEntry is an append-only record of an uncertain or unmatched team that
// needs operator adjudication.
type ReviewEntry struct {
	ID                int64      `json:"id"`
	ProviderID        ProviderID `json:"provider_id" swaggertype:"string"`
	ProviderTeamID    string     `json:"provider_team_id"`
	RawName           string     `json:"raw_name"`
	SuggestedMasterID *MasterID  `json:"suggested_master_id,omitempty"`
	Confidence        float64    `json:"confidence"`
	Status            ReviewStatus `json:"status" swaggertype:"string"`
	CreatedAt         time.Time  `json:"created_at"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
}

// RankedTeam is one row of a ranking snapshot for a single master team within
// its cohort.
type RankedTeam struct {
	MasterID       MasterID `json:"master_id" swaggertype:"string"`
	Cohort         Cohort   `json:"cohort"`
	Games          int      `json:"games"`
	OffenseRaw     float64  `json:"offense_raw"`
	OffenseNorm    float64  `json:"offense_norm"`
	DefenseRaw     float64  `json:"defense_raw"`
	DefenseNorm    float64  `json:"defense_norm"`
	SOSRaw         float64  `json:"sos_raw"`
	SOSNorm        float64  `json:"sos_norm"`
	PerfCentered   float64  `json:"perf_centered"`
	ProvisionalMul float64  `json:"provisional_mult"`
	Anchor         float64  `json:"anchor"`
	PowerscoreCore float64  `json:"powerscore_core"`
	PowerscoreAdj  float64  `json:"powerscore_adj"`
	PowerscoreML   *float64 `json:"powerscore_ml,omitempty"`
	RankInCohort   int      `json:"rank_in_cohort"`
	AsOf           time.Time `json:"as_of"`
}

// ImportMetrics summarizes the outcome of one ingestion run, surfaced through
// GET /v1/meta/import-runs.
type ImportMetrics struct {
	RunID       uuid.UUID  `json:"run_id"`
	ProviderID  ProviderID `json:"provider_id" swaggertype:"string"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  time.Time  `json:"finished_at"`
	Processed   int        `json:"processed"`
	Accepted    int        `json:"accepted"`
	Quarantined int        `json:"quarantined"`
	Duplicates  int        `json:"duplicates"`
	Matched     int        `json:"matched"`
	Partial     int        `json:"partial"`
	Failed      int        `json:"failed"`
	TeamsCreated int       `json:"teams_created"`
	FuzzyAuto   int        `json:"fuzzy_auto"`
	FuzzyReview int        `json:"fuzzy_review"`
	Errors      int        `json:"errors"`
}

// ClubVariant maps one known surface-form spelling of a club's name to its
// canonical club id, seeding the in-memory club.Registry at startup.
type ClubVariant struct {
	CanonicalID string `json:"canonical_id"`
	Display     string `json:"display"`
	Variant     string `json:"variant"`
}
