package vm

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"

	cmdcore "github.com/projecteru2/cocoond/cmd/core"
	"github.com/projecteru2/cocoond/instances"
	"github.com/projecteru2/cocoond/types"
)

type Handler struct {
	cmdcore.BaseHandler
}

func (h Handler) Create(cmd *cobra.Command, args []string) error {
	specs, err := cmdcore.SpecsFromFlags(cmd)
	if err != nil {
		return err
	}
	ctx, d, backend, err := h.InitDaemon(cmd)
	if err != nil {
		return err
	}
	name := args[0]
	logger := log.WithFunc("cmd.create")

	if err := d.WithInstances(ctx, func(s *instances.Store) error { return s.Prepare(ctx, name) }); err != nil {
		return err
	}
	// Registration runs outside the daemon lock; meanwhile other commands see
	// the name as being prepared.
	defer func() {
		cleanup := context.WithoutCancel(ctx)
		if err := d.WithInstances(cleanup, func(s *instances.Store) error { return s.FinishPreparing(cleanup, name) }); err != nil {
			logger.Warnf(ctx, "clear preparing mark of %s: %v", name, err)
		}
	}()

	info, err := backend.Register(ctx, types.VMConfig{
		Name:    name,
		CPU:     specs.NumCores,
		Memory:  specs.MemSize,
		Storage: specs.DiskSpace,
	})
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	err = d.WithInstances(ctx, func(s *instances.Store) error {
		vm, err := backend.Machine(ctx, name)
		if err != nil {
			return err
		}
		return s.Add(ctx, name, specs, vm)
	})
	if err != nil {
		if uerr := backend.Unregister(context.WithoutCancel(ctx), name); uerr != nil {
			logger.Warnf(ctx, "roll back %s: %v", name, uerr)
		}
		return fmt.Errorf("create %s: %w", name, err)
	}
	logger.Infof(ctx, "instance created: %s (%s)", name, info.ID)
	return nil
}

func (h Handler) List(cmd *cobra.Command, _ []string) error {
	ctx, d, backend, err := h.InitDaemon(cmd)
	if err != nil {
		return err
	}
	vms, err := backend.List(ctx)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	if len(vms) == 0 {
		fmt.Println("No instances found.")
		return nil
	}

	sort.Slice(vms, func(i, j int) bool { return vms[i].CreatedAt.Before(vms[j].CreatedAt) })

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tSTATE\tCPUS\tMEMORY\tDISK\tCREATED")
	err = d.WithInstances(ctx, func(s *instances.Store) error {
		for _, vm := range vms {
			state := string(vm.State)
			if s.IsDeleted(vm.Config.Name) {
				state = "deleted"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
				vm.Config.Name,
				state,
				vm.Config.CPU,
				cmdcore.FormatSize(vm.Config.Memory),
				cmdcore.FormatSize(vm.Config.Storage),
				vm.CreatedAt.Local().Format(time.DateTime),
			)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	return w.Flush()
}

func (h Handler) Report(cmd *cobra.Command, args []string) error {
	state, err := types.ParseVMState(args[1])
	if err != nil {
		return err
	}
	pid, _ := cmd.Flags().GetInt("pid")
	ctx, d, backend, err := h.InitDaemon(cmd)
	if err != nil {
		return err
	}
	name := args[0]
	return d.WithInstances(ctx, func(s *instances.Store) error {
		if _, _, ok := s.Lookup(name); !ok {
			return fmt.Errorf("report %s: %w", name, instances.ErrNotFound)
		}
		if err := backend.SetState(ctx, name, state, pid); err != nil {
			return fmt.Errorf("report %s: %w", name, err)
		}
		log.WithFunc("cmd.report").Infof(ctx, "%s is %s", name, state)
		return nil
	})
}

func (h Handler) RM(cmd *cobra.Command, args []string) error {
	ctx, d, _, err := h.InitDaemon(cmd)
	if err != nil {
		return err
	}
	return d.WithInstances(ctx, func(s *instances.Store) error {
		return batch(ctx, "rm", "deleted", args, func(name string) error {
			return s.Delete(ctx, name)
		})
	})
}

func (h Handler) Recover(cmd *cobra.Command, args []string) error {
	ctx, d, backend, err := h.InitDaemon(cmd)
	if err != nil {
		return err
	}
	return d.WithInstances(ctx, func(s *instances.Store) error {
		return batch(ctx, "recover", "recovered", args, func(name string) error {
			vm, err := backend.Machine(ctx, name)
			if err != nil {
				return err
			}
			return s.Recover(ctx, name, vm)
		})
	})
}

func (h Handler) Purge(cmd *cobra.Command, _ []string) error {
	ctx, d, backend, err := h.InitDaemon(cmd)
	if err != nil {
		return err
	}
	logger := log.WithFunc("cmd.purge")
	return d.WithInstances(ctx, func(s *instances.Store) error {
		purged, err := s.Purge(ctx)
		if err != nil {
			return err
		}
		for _, name := range purged {
			if err := backend.Unregister(ctx, name); err != nil {
				logger.Warnf(ctx, "unregister %s: %v", name, err)
				continue
			}
			logger.Infof(ctx, "purged: %s", name)
		}
		if len(purged) == 0 {
			logger.Info(ctx, "no instances purged")
		}
		return nil
	})
}

// batch applies fn to every name, stopping at the first failure.
func batch(ctx context.Context, name, pastTense string, refs []string, fn func(string) error) error {
	logger := log.WithFunc("cmd." + name)
	for _, ref := range refs {
		if err := fn(ref); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		logger.Infof(ctx, "%s: %s", pastTense, ref)
	}
	return nil
}
