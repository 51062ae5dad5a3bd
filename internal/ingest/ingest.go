// Package ingest implements the batch ingestion orchestrator (C7): it
// validates incoming scraper records, matches both sides of each game via
// C5, dedupes via C6, bulk-inserts with graceful degradation, and emits
// per-run ImportMetrics.
package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"stormlightlabs.org/rankcore/internal/core"
	"stormlightlabs.org/rankcore/internal/dedupe"
	"stormlightlabs.org/rankcore/internal/matcher"
	"stormlightlabs.org/rankcore/internal/scraper"
)

// Handle is the subset of the storage connection the orchestrator refreshes
// periodically to avoid long-lived connection decay (§4.7).
type Handle interface {
	Refresh(ctx context.Context) error
}

// Orchestrator wires the matcher, deduper, and repositories together to run
// ingestion batches.
type Orchestrator struct {
	Matcher     *matcher.Matcher
	Games       core.GameRepository
	Masters     core.MasterTeamRepository
	ImportRuns  core.ImportRunRepository
	Handle      Handle
	Logger      *log.Logger

	BatchSize          int // default ~2000 records per batch
	Parallelism        int // default 4 bounded-parallel batches
	RefreshEveryRows   int // default 1000
	MaxRetries         int
}

// New creates an Orchestrator with the §5 defaults (batch size 2000,
// parallelism 4, handle refresh every 1000 rows).
func New(m *matcher.Matcher, games core.GameRepository, masters core.MasterTeamRepository, runs core.ImportRunRepository, handle Handle, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		Matcher: m, Games: games, Masters: masters, ImportRuns: runs, Handle: handle, Logger: logger,
		BatchSize: 2000, Parallelism: 4, RefreshEveryRows: 1000, MaxRetries: 3,
	}
}

// Run streams records from src, splits them into bounded batches processed
// by a fixed-size worker pool, and returns the aggregate ImportMetrics.
func (o *Orchestrator) Run(ctx context.Context, provider core.ProviderID, src scraper.Source) (core.ImportMetrics, error) {
	metrics := core.ImportMetrics{RunID: uuid.New(), ProviderID: provider, StartedAt: time.Now()}

	records, errs := src.Pull(ctx)

	batches := make(chan []scraper.Record)
	var wg sync.WaitGroup
	var mu sync.Mutex

	sem := make(chan struct{}, o.Parallelism)
	rowsProcessed := 0

	go func() {
		defer close(batches)
		buf := make([]scraper.Record, 0, o.BatchSize)
		for r := range records {
			buf = append(buf, r)
			if len(buf) >= o.BatchSize {
				batches <- buf
				buf = make([]scraper.Record, 0, o.BatchSize)
			}
		}
		if len(buf) > 0 {
			batches <- buf
		}
	}()

	batchIndex := 0
	for batch := range batches {
		batchIndex++
		idx := batchIndex
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, batch []scraper.Record) {
			defer wg.Done()
			defer func() { <-sem }()

			result := o.runBatch(ctx, idx, provider, batch)

			mu.Lock()
			mergeMetrics(&metrics, result)
			rowsProcessed += len(batch)
			if o.RefreshEveryRows > 0 && rowsProcessed/o.RefreshEveryRows > 0 && rowsProcessed%o.RefreshEveryRows < len(batch) {
				if o.Handle != nil {
					if err := o.Handle.Refresh(ctx); err != nil && o.Logger != nil {
						o.Logger.Warn("storage handle refresh failed", "err", err)
					}
				}
			}
			mu.Unlock()
		}(idx, batch)
	}

	wg.Wait()

	for err := range errs {
		if o.Logger != nil {
			o.Logger.Warn("scraper error", "err", err)
		}
		metrics.Errors++
	}

	metrics.FinishedAt = time.Now()

	if o.ImportRuns != nil {
		if err := o.ImportRuns.Record(ctx, metrics); err != nil {
			return metrics, fmt.Errorf("record import run: %w", err)
		}
	}

	return metrics, nil
}

func mergeMetrics(total *core.ImportMetrics, batch core.ImportMetrics) {
	total.Processed += batch.Processed
	total.Accepted += batch.Accepted
	total.Quarantined += batch.Quarantined
	total.Duplicates += batch.Duplicates
	total.Matched += batch.Matched
	total.Partial += batch.Partial
	total.Failed += batch.Failed
	total.TeamsCreated += batch.TeamsCreated
	total.FuzzyAuto += batch.FuzzyAuto
	total.FuzzyReview += batch.FuzzyReview
	total.Errors += batch.Errors
}

// runBatch validates, matches, dedupes, and inserts a single batch,
// returning per-batch metrics. Rows whose insert retries are exhausted are
// dropped and Accepted counts only the rows that landed; no BatchFailure is
// produced and the run continues.
func (o *Orchestrator) runBatch(ctx context.Context, idx int, provider core.ProviderID, batch []scraper.Record) core.ImportMetrics {
	m := core.ImportMetrics{Processed: len(batch)}

	neutrals := make([]dedupe.Neutral, 0, len(batch))
	resolved := make([]resolvedGame, 0, len(batch))

	for _, rec := range batch {
		n, valid := validate(rec)
		if !valid {
			m.Quarantined++
			continue
		}

		homeRes, awayRes, err := o.matchBothSides(ctx, provider, rec)
		if err != nil {
			m.Failed++
			m.Errors++
			continue
		}

		classifyOutcome(&m, homeRes, awayRes)

		neutrals = append(neutrals, n)
		resolved = append(resolved, resolvedGame{neutral: n, home: homeRes, away: awayRes})
	}

	existingUIDs := o.bulkCheckUIDs(ctx, neutrals)

	var toInsert []core.Game
	seen := make(map[string]bool)
	for _, rg := range resolved {
		uid := dedupe.GameUID(rg.neutral)
		if existingUIDs[uid] || seen[uid] {
			m.Duplicates++
			continue
		}
		seen[uid] = true

		if !rg.home.Matched && !rg.away.Matched {
			continue
		}

		g := core.Game{
			GameUID: uid, ProviderID: rg.neutral.ProviderID,
			HomeMasterID: rg.home.MasterID, AwayMasterID: rg.away.MasterID,
			HomeProviderID: rg.neutral.HomeProviderID, AwayProviderID: rg.neutral.AwayProviderID,
			HomeScore: rg.neutral.HomeScore, AwayScore: rg.neutral.AwayScore, GameDate: rg.neutral.GameDate,
		}

		exists, err := o.Games.CompositeKeyExists(ctx, g)
		if err != nil || exists {
			m.Duplicates++
			continue
		}

		toInsert = append(toInsert, g)
	}

	inserted, err := o.insertWithFallback(ctx, toInsert)
	m.Accepted += inserted
	if err != nil {
		m.Errors++
		if o.Logger != nil {
			o.Logger.Warn("batch insert degraded", "batch", idx, "err", err)
		}
	}

	now := time.Now()
	for _, rg := range resolved {
		if rg.home.Matched {
			_ = o.Masters.TouchLastScraped(ctx, rg.home.MasterID, now)
		}
		if rg.away.Matched {
			_ = o.Masters.TouchLastScraped(ctx, rg.away.MasterID, now)
		}
	}

	return m
}

type resolvedGame struct {
	neutral dedupe.Neutral
	home    matcher.Result
	away    matcher.Result
}

func classifyOutcome(m *core.ImportMetrics, home, away matcher.Result) {
	switch {
	case home.Matched && away.Matched:
		m.Matched++
	case home.Matched || away.Matched:
		m.Partial++
	default:
		m.Failed++
	}
	for _, r := range []matcher.Result{home, away} {
		if r.Created {
			m.TeamsCreated++
		}
		if r.Matched && r.Method == core.MatchMethodFuzzy {
			m.FuzzyAuto++
		}
		if r.ReviewEntry != nil {
			m.FuzzyReview++
		}
	}
}

func (o *Orchestrator) matchBothSides(ctx context.Context, provider core.ProviderID, rec scraper.Record) (home matcher.Result, away matcher.Result, err error) {
	age, gender := normalizeAgeGender(rec.AgeGroup, rec.Gender)

	teamReq := matcher.Request{
		ProviderID: provider, ProviderTeamID: rec.TeamID, TeamName: rec.TeamName,
		ClubName: rec.ClubName, AgeGroup: age, Gender: gender, StateCode: rec.StateCode,
	}
	oppReq := matcher.Request{
		ProviderID: provider, ProviderTeamID: rec.OpponentID, TeamName: rec.OpponentName,
		AgeGroup: age, Gender: gender,
	}

	teamRes, errT := o.Matcher.Match(ctx, teamReq)
	oppRes, errO := o.Matcher.Match(ctx, oppReq)

	if rec.HomeAway == "A" {
		teamRes, oppRes = oppRes, teamRes
	}

	if errT != nil || errO != nil {
		return matcher.Result{}, matcher.Result{}, fmt.Errorf("match team/opponent: team=%v opp=%v", errT, errO)
	}
	return teamRes, oppRes, nil
}

func normalizeAgeGender(rawAge, rawGender string) (core.AgeGroup, core.Gender) {
	gender := core.Gender(rawGender)
	switch strings.ToLower(rawGender) {
	case "boys":
		gender = core.GenderMale
	case "girls":
		gender = core.GenderFemale
	}

	age := rawAge
	if n, err := strconv.Atoi(rawAge); err == nil && n > 1900 {
		computed := currentSeasonYear() - n
		if computed >= 8 && computed <= 19 {
			age = "u" + strconv.Itoa(computed)
		}
	}
	return core.AgeGroup(strings.ToLower(age)), gender
}

func currentSeasonYear() int { return 2025 }

// validate applies §4.7 step 1: dates well-formed, scores numeric or absent,
// provider-team-ids non-empty.
func validate(rec scraper.Record) (dedupe.Neutral, bool) {
	if strings.TrimSpace(rec.TeamID) == "" || strings.TrimSpace(rec.OpponentID) == "" {
		return dedupe.Neutral{}, false
	}

	date, err := time.Parse("2006-01-02", rec.GameDate)
	if err != nil {
		return dedupe.Neutral{}, false
	}

	p := dedupe.PerspectiveRecord{
		ProviderID: core.ProviderID(rec.Provider), TeamID: rec.TeamID, OpponentID: rec.OpponentID,
		HomeAway: rec.HomeAway, GoalsFor: rec.GoalsFor, GoalsAgainst: rec.GoalsAgainst, GameDate: date,
	}
	return dedupe.ToNeutral(p), true
}

// bulkCheckUIDs pre-checks a batch's uids against storage in one call.
func (o *Orchestrator) bulkCheckUIDs(ctx context.Context, neutrals []dedupe.Neutral) map[string]bool {
	uids := make([]string, 0, len(neutrals))
	for _, n := range neutrals {
		uids = append(uids, dedupe.GameUID(n))
	}
	existing, err := o.Games.ExistingUIDs(ctx, uids)
	if err != nil || existing == nil {
		return map[string]bool{}
	}
	return existing
}

// insertWithFallback bulk-inserts; on any bulk-insert error it falls back
// to per-row inserts so the rest of the batch still lands.
func (o *Orchestrator) insertWithFallback(ctx context.Context, games []core.Game) (int, error) {
	if len(games) == 0 {
		return 0, nil
	}

	inserted, err := o.Games.BulkInsert(ctx, games)
	if err == nil {
		return inserted, nil
	}

	succeeded := 0
	for _, g := range games {
		if err := o.retryInsertOne(ctx, g); err == nil {
			succeeded++
		}
	}
	return succeeded, nil
}

// retryInsertOne retries a single-row insert with jittered exponential
// backoff, refreshing the storage handle between attempts, per §4.5/§4.7
// transient-failure handling.
func (o *Orchestrator) retryInsertOne(ctx context.Context, g core.Game) error {
	var lastErr error
	for attempt := 1; attempt <= maxInt(o.MaxRetries, 1); attempt++ {
		if err := o.Games.InsertOne(ctx, g); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if o.Handle != nil {
			_ = o.Handle.Refresh(ctx)
		}
		backoff := time.Duration(attempt*attempt) * 50 * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return &core.TransientStorageError{Attempt: o.MaxRetries, Err: lastErr}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
