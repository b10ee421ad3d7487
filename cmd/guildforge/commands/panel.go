package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newPanelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "panel",
		Short: "Manage a guild's self-service role panel",
	}

	cmd.AddCommand(newPanelListCommand())
	cmd.AddCommand(newPanelAddCommand())
	cmd.AddCommand(newPanelRemoveCommand())
	cmd.AddCommand(newPanelEnableCommand())
	cmd.AddCommand(newPanelReorderCommand())
	cmd.AddCommand(newPanelPublishCommand())
	cmd.AddCommand(newPanelRepairCommand())

	return cmd
}

func newPanelListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <guild-id>",
		Short: "List configured panel roles in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.panels.Entries(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, e := range entries {
				state := "enabled"
				if !e.Enabled {
					state = "disabled"
				}
				fmt.Printf("%3d. role=%s group=%s label=%q %s\n",
					e.OrderIndex, e.RoleID, e.GroupKey, e.Label, state)
			}
			return nil
		},
	}
}

func newPanelAddCommand() *cobra.Command {
	var (
		group string
		label string
		emoji string
	)

	cmd := &cobra.Command{
		Use:     "add <guild-id> <role-id>",
		Short:   "Add a selectable role to the panel",
		Example: `  guildforge panel add g1 role123 --group games --label "Chess" --emoji "♟️"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			return a.panels.AddRole(cmd.Context(), args[0], args[1], group, label, emoji)
		},
	}
	cmd.Flags().StringVar(&group, "group", "general", "panel group key")
	cmd.Flags().StringVar(&label, "label", "", "display label")
	cmd.Flags().StringVar(&emoji, "emoji", "", "display emoji")
	return cmd
}

func newPanelRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <guild-id> <role-id>",
		Short: "Remove a role from the panel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			return a.panels.RemoveRole(cmd.Context(), args[0], args[1])
		},
	}
}

func newPanelEnableCommand() *cobra.Command {
	var disable bool

	cmd := &cobra.Command{
		Use:   "enable <guild-id> <role-id>",
		Short: "Enable or disable a configured panel role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			return a.panels.SetEnabled(cmd.Context(), args[0], args[1], !disable)
		},
	}
	cmd.Flags().BoolVar(&disable, "off", false, "disable instead of enable")
	return cmd
}

func newPanelReorderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <guild-id> <role-id> <index>",
		Short: "Move a configured role to a new position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[2], err)
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			return a.panels.Reorder(cmd.Context(), args[0], args[1], idx)
		},
	}
}

func newPanelPublishCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "publish <guild-id>",
		Short: "Render and deliver the panel message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			return a.panels.Publish(cmd.Context(), args[0])
		},
	}
}

func newPanelRepairCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "repair [guild-id]",
		Short: "Force-republish a panel after its message went missing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if all {
				return a.panels.RepairAll(cmd.Context())
			}
			if len(args) != 1 {
				return fmt.Errorf("guild-id is required unless --all is set")
			}
			return a.panels.Repair(cmd.Context(), args[0])
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "repair every known panel")
	return cmd
}
