package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"stormlightlabs.org/rankcore/internal/alias"
	"stormlightlabs.org/rankcore/internal/club"
	"stormlightlabs.org/rankcore/internal/core"
	"stormlightlabs.org/rankcore/internal/echo"
	"stormlightlabs.org/rankcore/internal/ingest"
	"stormlightlabs.org/rankcore/internal/matcher"
	"stormlightlabs.org/rankcore/internal/repository"
	"stormlightlabs.org/rankcore/internal/scraper/fixture"
)

// IngestCmd creates the ingest command group.
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest provider game records",
		Long:  "Run the team-identity matching and ingestion pipeline over a provider's scraped records.",
	}
	cmd.AddCommand(IngestRunCmd())
	return cmd
}

// IngestRunCmd creates the run command under ingest.
func IngestRunCmd() *cobra.Command {
	var provider string
	var source string
	var resumeFrom int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest a batch of scraped records",
		Long:  "Streams records from an NDJSON source file through the three-tier matcher and into the games table.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, provider, source, resumeFrom)
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Provider code, e.g. gotsport, tgs (required)")
	cmd.Flags().StringVar(&source, "source", "", "Path to an NDJSON fixture file of scraped records (required)")
	cmd.Flags().IntVar(&resumeFrom, "resume-from", 0, "Line offset to resume a previously interrupted run from")
	cmd.MarkFlagRequired("provider")
	cmd.MarkFlagRequired("source")
	return cmd
}

func runIngest(cmd *cobra.Command, provider, source string, resumeFrom int) error {
	echo.Header("Ingesting Records")

	cfg, err := loadConfigForCmd(cmd)
	if err != nil {
		return fmt.Errorf("error: failed to load config: %w", err)
	}

	echo.Info("Connecting to database...")
	database, err := connectToDB(cmd)
	if err != nil {
		return fmt.Errorf("error: %w", err)
	}
	defer database.Close()
	echo.Success("✓ Connected to database")

	masters := repository.NewMasterTeamRepository(database.DB)
	games := repository.NewGameRepository(database.DB)
	reviews := repository.NewReviewRepository(database.DB)
	aliasRepo := repository.NewAliasRepository(database.DB)
	runs := repository.NewImportRunRepository(database.DB)
	clubs := repository.NewClubRepository(database.DB)

	echo.Info("Loading club registry...")
	registry, err := loadClubRegistry(cmd.Context(), clubs)
	if err != nil {
		return fmt.Errorf("error: failed to load club registry: %w", err)
	}
	echo.Success("✓ Club registry loaded")

	refreshEvery := cfg.Matching.ConnectionRefreshInterval
	if refreshEvery <= 0 {
		refreshEvery = 1000
	}
	aliasCache := alias.New(aliasRepo, refreshEvery, database.Refresh)
	aliasCache.SetConfidenceCeiling(cfg.Matching.FuzzyConfidenceCeiling)

	policy := matcher.DefaultPolicy(provider)
	policy.ClubVariantBoost = cfg.Matching.ClubVariantBoost
	policy.FuzzyConfidenceCeiling = cfg.Matching.FuzzyConfidenceCeiling

	m := matcher.New(aliasCache, registry, masters, reviews, aliasRepo, policy)

	logger := log.NewWithOptions(cmd.OutOrStdout(), log.Options{Prefix: "ingest"})
	orchestrator := ingest.New(m, games, masters, runs, database, logger)

	src := fixture.New(source, resumeFrom)

	echo.Infof("Ingesting provider=%s source=%s", provider, source)
	metrics, err := orchestrator.Run(cmd.Context(), core.ProviderID(provider), src)
	if err != nil {
		return fmt.Errorf("error: %w", err)
	}

	echo.Success("✓ Ingestion complete")
	echo.Infof("  Processed:   %d", metrics.Processed)
	echo.Infof("  Accepted:    %d", metrics.Accepted)
	echo.Infof("  Matched:     %d", metrics.Matched)
	echo.Infof("  Teams created: %d", metrics.TeamsCreated)
	echo.Infof("  Fuzzy auto:  %d", metrics.FuzzyAuto)
	echo.Infof("  Fuzzy review: %d", metrics.FuzzyReview)
	echo.Infof("  Quarantined: %d", metrics.Quarantined)
	echo.Infof("  Duplicates:  %d", metrics.Duplicates)
	echo.Infof("  Errors:      %d", metrics.Errors)
	return nil
}

// loadClubRegistry groups the flat club_variants table by canonical id and
// seeds an in-memory club.Registry, mirroring the alias cache's own
// preload-at-startup shape (C3/C4 share the pattern).
func loadClubRegistry(ctx context.Context, clubs core.ClubRepository) (*club.Registry, error) {
	rows, err := clubs.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	type group struct {
		display  string
		variants []string
	}
	grouped := make(map[string]*group)
	var order []string
	for _, v := range rows {
		g, ok := grouped[v.CanonicalID]
		if !ok {
			g = &group{display: v.Display}
			grouped[v.CanonicalID] = g
			order = append(order, v.CanonicalID)
		}
		g.variants = append(g.variants, v.Variant)
	}

	registry := club.NewRegistry()
	for _, id := range order {
		g := grouped[id]
		registry.Load(id, g.display, g.variants)
	}
	return registry, nil
}
