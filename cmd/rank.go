package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"stormlightlabs.org/rankcore/internal/core"
	"stormlightlabs.org/rankcore/internal/echo"
	"stormlightlabs.org/rankcore/internal/ranking"
	"stormlightlabs.org/rankcore/internal/repository"
)

// RankCmd creates the rank command group.
func RankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Compute and persist a cohort ranking snapshot",
		Long:  "Runs the 13-layer ranking engine for one age/gender cohort and replaces its persisted snapshot.",
	}
	cmd.AddCommand(RankRunCmd())
	return cmd
}

// RankRunCmd creates the run command under rank.
func RankRunCmd() *cobra.Command {
	var age string
	var gender string
	var mlEnabled bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a ranking pass for one cohort",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRanking(cmd, age, gender, mlEnabled)
		},
	}
	cmd.Flags().StringVar(&age, "age", "", "Age group, e.g. u14 (required)")
	cmd.Flags().StringVar(&gender, "gender", "", "Gender, Male or Female (required)")
	cmd.Flags().BoolVar(&mlEnabled, "ml", false, "Enable the optional L13 residual ML layer")
	cmd.MarkFlagRequired("age")
	cmd.MarkFlagRequired("gender")
	return cmd
}

func runRanking(cmd *cobra.Command, age, gender string, mlEnabled bool) error {
	echo.Header("Ranking Cohort")

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

	games := repository.NewGameRepository(database.DB)
	masters := repository.NewMasterTeamRepository(database.DB)
	ranked := repository.NewRankedTeamRepository(database.DB)

	rankCfg := ranking.DefaultConfig()
	if cfg.Ranking.WindowDays > 0 {
		rankCfg.WindowDays = cfg.Ranking.WindowDays
	}
	rankCfg.OpponentAdjustEnabled = cfg.Ranking.OpponentAdjustEnabled
	if cfg.Ranking.OpponentAdjustClipMin > 0 {
		rankCfg.OpponentAdjustClipMin = cfg.Ranking.OpponentAdjustClipMin
	}
	if cfg.Ranking.OpponentAdjustClipMax > 0 {
		rankCfg.OpponentAdjustClipMax = cfg.Ranking.OpponentAdjustClipMax
	}
	if cfg.Ranking.SOSIterations > 0 {
		rankCfg.SOSIterations = cfg.Ranking.SOSIterations
	}
	if cfg.Ranking.SOSTransitivityLambda > 0 {
		rankCfg.SOSTransitivityLambda = cfg.Ranking.SOSTransitivityLambda
	}
	if cfg.Ranking.SOSRepeatCap > 0 {
		rankCfg.SOSRepeatCap = cfg.Ranking.SOSRepeatCap
	}
	if cfg.Ranking.UnrankedSOSBase > 0 {
		rankCfg.UnrankedSOSBase = cfg.Ranking.UnrankedSOSBase
	}
	rankCfg.ML.Enabled = mlEnabled
	if cfg.ML.Alpha > 0 {
		rankCfg.ML.Alpha = cfg.ML.Alpha
	}
	if cfg.ML.ResidualClipGoals > 0 {
		rankCfg.ML.ResidualClip = cfg.ML.ResidualClipGoals
	}
	if cfg.ML.TrainMinRows > 0 {
		rankCfg.ML.TrainMinRows = cfg.ML.TrainMinRows
	}

	logger := log.NewWithOptions(cmd.OutOrStdout(), log.Options{Prefix: "rank"})
	engine := ranking.New(games, masters, ranked, rankCfg, logger)

	cohort := core.Cohort{AgeGroup: core.AgeGroup(age), Gender: core.Gender(gender)}

	echo.Infof("Ranking cohort age=%s gender=%s", age, gender)
	rows, err := engine.Rank(cmd.Context(), cohort, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("error: %w", err)
	}

	echo.Successf("✓ Ranked %d teams", len(rows))
	return nil
}
