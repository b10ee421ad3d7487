package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/guildforge/guildforge/pkg/overhaul"
)

func newRepairCommand() *cobra.Command {
	var guildID string

	cmd := &cobra.Command{
		Use:   "repair <config.yaml>",
		Short: "Re-run a plan against a partially-applied guild",
		Long: `Repair an interrupted or partially-applied overhaul.

The planned sequence is re-run with the guild's current remote state
listed fresh and merged with the identifiers recorded by earlier runs.
Creation steps treat an existing resource with a matching name as success
without mutation, so repair is idempotent.`,
		Example: `  guildforge repair --guild g1 ./guild.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := overhaul.LoadConfiguration(args[0])
			if err != nil {
				return err
			}
			steps, err := overhaul.Plan(cfg)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			a.prepareGuild(guildID)

			reporter := overhaul.NewReporter(consoleSink{}, a.log)
			result, err := a.executor.Repair(cmd.Context(), guildID, steps, reporter)
			if err != nil {
				if result != nil {
					fmt.Print(result.Summary())
				}
				return err
			}

			log.Info().
				Str("run_id", result.RunID).
				Int("skipped_existing", result.Stats.SkippedExisting).
				Msg("Repair finished")
			fmt.Print(result.Summary())
			return nil
		},
	}

	cmd.Flags().StringVar(&guildID, "guild", "guild-local", "target guild identifier")

	return cmd
}
