package settings

import "github.com/spf13/cobra"

// Actions defines settings operations.
type Actions interface {
	Get(cmd *cobra.Command, args []string) error
	Set(cmd *cobra.Command, args []string) error
	Keys(cmd *cobra.Command, args []string) error
}

// Commands builds the settings command set (get, set, keys).
func Commands(h Actions) []*cobra.Command {
	return []*cobra.Command{
		{
			Use:   "get KEY",
			Short: "Print the value of a setting",
			Args:  cobra.ExactArgs(1),
			RunE:  h.Get,
		},
		{
			Use:   "set KEY=VALUE",
			Short: "Change a setting",
			Args:  cobra.ExactArgs(1),
			RunE:  h.Set,
		},
		{
			Use:   "keys",
			Short: "List recognised setting keys",
			Args:  cobra.NoArgs,
			RunE:  h.Keys,
		},
	}
}
