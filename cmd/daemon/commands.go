package daemon

import "github.com/spf13/cobra"

// Actions defines daemon operations.
type Actions interface {
	Run(cmd *cobra.Command, args []string) error
}

// Command builds the "run" command.
func Command(h Actions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the daemon until interrupted or the settings file changes",
		Args:  cobra.NoArgs,
		RunE:  h.Run,
	}
}
