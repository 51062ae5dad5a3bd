// Package dedupe normalizes incoming game records to neutral form, computes
// the perspective-invariant game_uid, and implements the two-level dedup
// described in §4.6.
package dedupe

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stormlightlabs.org/rankcore/internal/core"
)

// PerspectiveRecord is the scraper-native per-team view of a single match.
type PerspectiveRecord struct {
	ProviderID   core.ProviderID
	TeamID       string
	OpponentID   string
	HomeAway     string // "H" or "A"
	GoalsFor     *int
	GoalsAgainst *int
	GameDate     time.Time
}

// Neutral is the home/away-normalized view of a match, independent of which
// side reported it.
type Neutral struct {
	ProviderID     core.ProviderID
	HomeProviderID string
	AwayProviderID string
	HomeScore      *int
	AwayScore      *int
	GameDate       time.Time
}

// ToNeutral swaps per home_away so both reporting perspectives of the same
// match converge to the same shape.
func ToNeutral(r PerspectiveRecord) Neutral {
	if r.HomeAway == "A" {
		return Neutral{
			ProviderID: r.ProviderID, HomeProviderID: r.OpponentID, AwayProviderID: r.TeamID,
			HomeScore: r.GoalsAgainst, AwayScore: r.GoalsFor, GameDate: r.GameDate,
		}
	}
	return Neutral{
		ProviderID: r.ProviderID, HomeProviderID: r.TeamID, AwayProviderID: r.OpponentID,
		HomeScore: r.GoalsFor, AwayScore: r.GoalsAgainst, GameDate: r.GameDate,
	}
}

// GameUID computes `provider_code:date:min(t1,t2):max(t1,t2)`, excluding
// scores so both reporting perspectives of the same match collapse to one uid.
func GameUID(n Neutral) string {
	a, b := n.HomeProviderID, n.AwayProviderID
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%s:%s:%s:%s", n.ProviderID, n.GameDate.Format("2006-01-02"), a, b)
}

const scoreSentinel = -1

// compositeKey mirrors the Game table's uniqueness tuple, substituting a
// sentinel for null scores.
func compositeKey(n Neutral) string {
	home := scoreSentinel
	if n.HomeScore != nil {
		home = *n.HomeScore
	}
	away := scoreSentinel
	if n.AwayScore != nil {
		away = *n.AwayScore
	}
	return strings.Join([]string{
		string(n.ProviderID), n.HomeProviderID, n.AwayProviderID,
		n.GameDate.Format("2006-01-02"), strconv.Itoa(home), strconv.Itoa(away),
	}, "|")
}

// Dedupe runs the two-level dedup over a batch of neutral-form records
// against already-ingested uids (pre-match) and the repository's composite
// key (post-match), returning only the records that should be inserted.
func Dedupe(ctx context.Context, records []Neutral, existingUIDs map[string]bool, games core.GameRepository) ([]core.Game, error) {
	seenInBatch := make(map[string]bool)
	var out []core.Game

	for _, n := range records {
		uid := GameUID(n)
		if existingUIDs[uid] || seenInBatch[uid] {
			continue
		}
		seenInBatch[uid] = true

		g := core.Game{
			GameUID: uid, ProviderID: n.ProviderID,
			HomeProviderID: n.HomeProviderID, AwayProviderID: n.AwayProviderID,
			HomeScore: n.HomeScore, AwayScore: n.AwayScore, GameDate: n.GameDate,
		}

		exists, err := games.CompositeKeyExists(ctx, g)
		if err != nil {
			return nil, fmt.Errorf("composite key check: %w", err)
		}
		if exists {
			continue
		}

		out = append(out, g)
	}

	return out, nil
}
