package cmd

import (
	"github.com/abhisek/stepwise/internal/persist"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stepwise",
	Short: "Step-by-step AI tutoring in the terminal",
	Long:  "Stepwise — a terminal tutor that breaks a problem into steps and coaches you through them one at a time.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().String("db", "", "Path to SQLite database file (overrides STEPWISE_DB env var)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)
}

// resolveDBPath returns the database path using the --db flag (highest
// priority), then STEPWISE_DB, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, nil
	}
	return persist.DefaultDBPath()
}
