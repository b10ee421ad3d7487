package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	storePath  string
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "guildforge",
		Short: "GuildForge - Guild Overhaul Orchestration Engine",
		Long: `GuildForge turns a declarative guild configuration into an ordered,
resumable sequence of platform mutations.

Features:
  - Validated YAML configuration with feature flags
  - Fixed-precedence planning (settings, roles, hierarchy, structure, modules)
  - Sequential execution with retry, progress reporting, and repair
  - Leveling engine with tier reward reconciliation
  - Self-service reaction role panels`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.PersistentFlags().StringVar(&storePath, "store", "guildforge.db", "SQLite store path")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newApplyCommand())
	rootCmd.AddCommand(newRepairCommand())
	rootCmd.AddCommand(newLevelsCommand())
	rootCmd.AddCommand(newPanelCommand())

	return rootCmd
}
