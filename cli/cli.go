// TODO: refactor [RootCmd] to be a func
package main

import (
	"github.com/spf13/cobra"
	"stormlightlabs.org/rankcore/cmd"
	"stormlightlabs.org/rankcore/internal/echo"
)

// RootCmd is the root command for the rankcore CLI
var RootCmd = &cobra.Command{
	Use:   "rankcore",
	Short: "Youth soccer team-identity and ranking toolkit",
	Long: echo.HeaderStyle().Render("rankcore") + "\n\n" +
		"Resolves provider team records to stable identities and computes\n" +
		"cohort rankings from the matched game history.",
}

func init() {
	RootCmd.PersistentFlags().String("config", "", "Path to a config file (default: searches conf.toml in ., $HOME/.rankcore, /etc/rankcore)")
	RootCmd.AddCommand(cmd.DbCmd())
	RootCmd.AddCommand(cmd.IngestCmd())
	RootCmd.AddCommand(cmd.RankCmd())
	RootCmd.AddCommand(cmd.ReviewCmd())
	RootCmd.AddCommand(cmd.ServerCmd())
	RootCmd.AddCommand(cmd.CacheCmd())
}
