package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func newLevelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "levels",
		Short: "Inspect and adjust the leveling engine",
	}

	cmd.AddCommand(newLevelsTopCommand())
	cmd.AddCommand(newLevelsShowCommand())
	cmd.AddCommand(newLevelsGrantCommand())
	cmd.AddCommand(newLevelsRewardCommand())
	cmd.AddCommand(newLevelsResyncCommand())

	return cmd
}

func newLevelsTopCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "top <guild-id>",
		Short:   "Show a guild's XP leaderboard",
		Example: `  guildforge levels top g1 --limit 20`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			profiles, err := a.levels.Leaderboard(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(profiles)
			}
			for i, p := range profiles {
				fmt.Printf("%3d. %-24s xp=%-8d tier=%d\n", i+1, p.UserID, p.XP, p.CurrentTier)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of profiles to show")
	return cmd
}

func newLevelsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <guild-id> <user-id>",
		Short: "Show one member's level profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			profile, toNext, err := a.levels.Profile(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("user=%s xp=%d tier=%d", profile.UserID, profile.XP, profile.CurrentTier)
			if toNext > 0 {
				fmt.Printf(" next_tier_in=%d", toNext)
			}
			fmt.Println()
			return nil
		},
	}
}

func newLevelsGrantCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "grant <guild-id> <user-id> <amount>",
		Short: "Grant XP to a member",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[2], err)
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.levels.GrantXP(cmd.Context(), args[0], args[1], amount)
			if err != nil {
				return err
			}
			fmt.Printf("user=%s xp=%d tier=%d", result.Profile.UserID, result.Profile.XP, result.NewTier)
			if result.TierChanged {
				fmt.Printf(" (crossed from tier %d)", result.PreviousTier)
			}
			fmt.Println()
			if result.ReconcileErr != nil {
				fmt.Printf("warning: role reconciliation failed: %v\n", result.ReconcileErr)
			}
			return nil
		},
	}
}

func newLevelsRewardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reward <guild-id> <tier> <role-id>",
		Short: "Remap a tier's reward role (affects future crossings only)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid tier %q: %w", args[1], err)
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			return a.levels.SetRoleReward(cmd.Context(), args[0], tier, args[2])
		},
	}
}

func newLevelsResyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resync <guild-id> <user-id>",
		Short: "Recompute a member's tier and fix their reward roles",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			return a.levels.Resync(cmd.Context(), args[0], args[1])
		},
	}
}
