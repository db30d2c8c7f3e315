package settings

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	cmdcore "github.com/projecteru2/cocoond/cmd/core"
)

type Handler struct {
	cmdcore.BaseHandler
}

func (h Handler) Get(cmd *cobra.Command, args []string) error {
	ctx, d, _, err := h.InitDaemon(cmd)
	if err != nil {
		return err
	}
	val, err := d.GetSetting(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Println(val)
	return nil
}

func (h Handler) Set(cmd *cobra.Command, args []string) error {
	key, val, ok := strings.Cut(args[0], "=")
	if !ok || key == "" {
		return fmt.Errorf("expected KEY=VALUE, got %q", args[0])
	}
	ctx, d, _, err := h.InitDaemon(cmd)
	if err != nil {
		return err
	}
	return d.SetSetting(ctx, key, val)
}

func (h Handler) Keys(cmd *cobra.Command, _ []string) error {
	_, d, _, err := h.InitDaemon(cmd)
	if err != nil {
		return err
	}
	for _, key := range d.SettingKeys() {
		fmt.Println(key)
	}
	return nil
}
