package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/guildforge/guildforge/pkg/overhaul"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Validate a guild configuration file",
		Long: `Validate a guild configuration file.

This command checks:
  - YAML syntax and unknown fields
  - Field constraints (name lengths, color ranges, channel kinds)
  - Cross-field invariants (unique names, strictly increasing tier
    thresholds, platform role limits, feature flag consistency)`,
		Example: `  # Validate a configuration
  guildforge validate ./guild.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := overhaul.LoadConfiguration(args[0])
			if err != nil {
				if verr, ok := overhaul.AsValidation(err); ok {
					for _, p := range verr.Problems {
						fmt.Printf("  - %s\n", p)
					}
					return fmt.Errorf("%d validation problems", len(verr.Problems))
				}
				return err
			}

			log.Info().
				Str("guild", cfg.Identity.Name).
				Int("roles", len(cfg.RoleTemplates)).
				Int("categories", len(cfg.CategoryTemplates)).
				Int("features", len(cfg.EnabledFeatures())).
				Msg("Configuration is valid")
			return nil
		},
	}
	return cmd
}
