// Package scraper defines the uniform interface the ingestion orchestrator
// consumes. Production HTTP scrapers are genuinely out of scope; only the
// record shape and a local NDJSON-backed Source live here.
package scraper

import (
	"context"
	"time"
)

// Record is the normalized shape every scraper yields (§6 scraper contract).
type Record struct {
	Provider     string
	TeamID       string `json:"team_id"` // may be semicolon-joined
	TeamName     string `json:"team_name"`
	ClubName     string `json:"club_name"`
	OpponentID   string `json:"opponent_id"`
	OpponentName string `json:"opponent_name"`
	GoalsFor     *int   `json:"goals_for"`
	GoalsAgainst *int   `json:"goals_against"`
	HomeAway     string `json:"home_away"` // "H" or "A"
	GameDate     string `json:"game_date"` // YYYY-MM-DD
	AgeGroup     string `json:"age_group"` // "u10".."u18" or a birth year
	Gender       string // "Male" | "Female" | "Boys" | "Girls"
	Competition  string
	EventName    string `json:"event_name"`
	Venue        string
	StateCode    string `json:"state_code"`
}

// Source streams records lazily rather than materializing a whole file, per
// the §9 design note on generators: production feeds may be tens of MB.
type Source interface {
	Pull(ctx context.Context) (<-chan Record, <-chan error)
}

// Checkpoint marks a restartable position within a Source's stream.
type Checkpoint struct {
	Index     int
	UpdatedAt time.Time
}
