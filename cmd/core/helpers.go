package core

import (
	"context"
	"fmt"

	units "github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/projecteru2/cocoond/config"
	"github.com/projecteru2/cocoond/daemon"
	"github.com/projecteru2/cocoond/hypervisor/local"
	"github.com/projecteru2/cocoond/platform"
	"github.com/projecteru2/cocoond/types"
)

// BaseHandler provides shared config access for all command handlers.
type BaseHandler struct {
	ConfProvider func() *config.Config
}

// Init returns the command context and validated config in one call.
func (h BaseHandler) Init(cmd *cobra.Command) (context.Context, *config.Config, error) {
	conf, err := h.Conf()
	if err != nil {
		return nil, nil, err
	}
	return CommandContext(cmd), conf, nil
}

// Conf validates and returns the config. All handlers call this first.
func (h BaseHandler) Conf() (*config.Config, error) {
	if h.ConfProvider == nil {
		return nil, fmt.Errorf("config provider is nil")
	}
	conf := h.ConfProvider()
	if conf == nil {
		return nil, fmt.Errorf("config not initialized")
	}
	return conf, nil
}

// InitDaemon builds the daemon over the local backend.
func (h BaseHandler) InitDaemon(cmd *cobra.Command) (context.Context, *daemon.Daemon, *local.Local, error) {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	backend, err := local.New(conf)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init backend: %w", err)
	}
	d, err := daemon.New(ctx, conf, platform.New(), backend)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init daemon: %w", err)
	}
	return ctx, d, backend, nil
}

// CommandContext returns command context, falling back to Background.
func CommandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

// SpecsFromFlags builds the declared specs for create.
func SpecsFromFlags(cmd *cobra.Command) (types.VMSpecs, error) {
	cpu, _ := cmd.Flags().GetInt("cpus")
	memStr, _ := cmd.Flags().GetString("memory")
	diskStr, _ := cmd.Flags().GetString("disk")

	if cpu <= 0 {
		return types.VMSpecs{}, fmt.Errorf("invalid --cpus %d", cpu)
	}
	memBytes, err := units.RAMInBytes(memStr)
	if err != nil || memBytes <= 0 {
		return types.VMSpecs{}, fmt.Errorf("invalid --memory %q", memStr)
	}
	diskBytes, err := units.RAMInBytes(diskStr)
	if err != nil || diskBytes <= 0 {
		return types.VMSpecs{}, fmt.Errorf("invalid --disk %q", diskStr)
	}
	return types.VMSpecs{NumCores: cpu, MemSize: memBytes, DiskSpace: diskBytes}, nil
}

func FormatSize(bytes int64) string {
	return units.BytesSize(float64(bytes))
}
