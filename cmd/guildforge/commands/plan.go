package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/guildforge/guildforge/pkg/overhaul"
)

func newPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <config.yaml>",
		Short: "Show the ordered step sequence for a configuration",
		Long: `Plan an overhaul without executing it.

Prints the ordered step sequence the executor would run: settings, role
creation, hierarchy, structure, then one step per enabled feature, then
finalize. Disabled features are omitted entirely.`,
		Example: `  # Show the plan
  guildforge plan ./guild.yaml

  # Machine-readable output
  guildforge plan --json ./guild.yaml`,
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

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(steps)
			}

			fmt.Printf("Plan for %q: %d steps\n", cfg.Identity.Name, len(steps))
			for i, s := range steps {
				fmt.Printf("  %2d. [%s] %s\n", i+1, s.Kind, s.Label)
			}
			return nil
		},
	}
	return cmd
}
