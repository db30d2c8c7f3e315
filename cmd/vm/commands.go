package vm

import "github.com/spf13/cobra"

// Actions defines instance lifecycle operations.
type Actions interface {
	Create(cmd *cobra.Command, args []string) error
	List(cmd *cobra.Command, args []string) error
	Report(cmd *cobra.Command, args []string) error
	RM(cmd *cobra.Command, args []string) error
	Recover(cmd *cobra.Command, args []string) error
	Purge(cmd *cobra.Command, args []string) error
}

// Command builds the "vm" parent command with all subcommands.
func Command(h Actions) *cobra.Command {
	vmCmd := &cobra.Command{
		Use:   "vm",
		Short: "Manage instances",
	}

	createCmd := &cobra.Command{
		Use:   "create [flags] NAME",
		Short: "Create an instance",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Create,
	}
	createCmd.Flags().Int("cpus", 1, "number of cores")
	createCmd.Flags().String("memory", "1G", "memory size")
	createCmd.Flags().String("disk", "5G", "disk size")

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List instances with status",
		RunE:    h.List,
	}

	reportCmd := &cobra.Command{
		Use:   "report [flags] NAME STATE",
		Short: "Record a state transition reported by the VMM supervisor",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE:  h.Report,
	}
	reportCmd.Flags().Int("pid", 0, "VMM process ID (running only)")

	rmCmd := &cobra.Command{
		Use:   "rm NAME [NAME...]",
		Short: "Delete instance(s); they stay recoverable until purged",
		Args:  cobra.MinimumNArgs(1),
		RunE:  h.RM,
	}

	recoverCmd := &cobra.Command{
		Use:   "recover NAME [NAME...]",
		Short: "Recover deleted instance(s)",
		Args:  cobra.MinimumNArgs(1),
		RunE:  h.Recover,
	}

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Permanently remove all deleted instances",
		Args:  cobra.NoArgs,
		RunE:  h.Purge,
	}

	vmCmd.AddCommand(
		createCmd,
		listCmd,
		reportCmd,
		rmCmd,
		recoverCmd,
		purgeCmd,
	)
	return vmCmd
}
