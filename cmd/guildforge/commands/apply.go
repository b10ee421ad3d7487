package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/guildforge/guildforge/pkg/overhaul"
)

func newApplyCommand() *cobra.Command {
	var (
		guildID string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "apply <config.yaml>",
		Short: "Run an overhaul against the in-process simulator",
		Long: `Plan and execute an overhaul.

The CLI executes against an in-process simulated guild, which rehearses
the full sequence: step ordering, retry handling, progress reporting, and
identifier recording in the store. A hosting process drives the same
engine against the real platform.`,
		Example: `  # Rehearse an overhaul
  guildforge apply --guild g1 ./guild.yaml

  # Plan only, no execution
  guildforge apply --dry-run ./guild.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := overhaul.LoadConfiguration(args[0])
			if err != nil {
				return err
			}
			steps, err := overhaul.Plan(cfg)
			if err != nil {
				return err
			}

			if dryRun {
				fmt.Printf("Plan for %q: %d steps (dry run, nothing executed)\n",
					cfg.Identity.Name, len(steps))
				for i, s := range steps {
					fmt.Printf("  %2d. [%s] %s\n", i+1, s.Kind, s.Label)
				}
				return nil
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			a.prepareGuild(guildID)

			reporter := overhaul.NewReporter(consoleSink{}, a.log)
			result, err := a.executor.Execute(cmd.Context(), guildID, steps, reporter)
			if err != nil {
				if result != nil {
					fmt.Print(result.Summary())
				}
				return err
			}

			log.Info().
				Str("run_id", result.RunID).
				Int("completed", result.CompletedSteps).
				Msg("Overhaul finished")
			fmt.Print(result.Summary())
			return nil
		},
	}

	cmd.Flags().StringVar(&guildID, "guild", "guild-local", "target guild identifier")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan only, execute nothing")

	return cmd
}

// consoleSink renders the evolving progress artifact to stderr, one block
// per transition.
type consoleSink struct{}

func (consoleSink) Publish(_ context.Context, content string) error {
	fmt.Fprintln(os.Stderr, strings.TrimRight(content, "\n"))
	return nil
}
