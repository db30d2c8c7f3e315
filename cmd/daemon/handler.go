package daemon

import (
	"github.com/spf13/cobra"

	cmdcore "github.com/projecteru2/cocoond/cmd/core"
)

type Handler struct {
	cmdcore.BaseHandler
}

// Run serves until the context is cancelled. A settings change surfaces as
// *daemon.ExitError so the process exits with the restart code.
func (h Handler) Run(cmd *cobra.Command, _ []string) error {
	ctx, d, _, err := h.InitDaemon(cmd)
	if err != nil {
		return err
	}
	return d.Run(ctx)
}
