package settings

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	units "github.com/docker/go-units"
	"github.com/projecteru2/core/log"

	"github.com/projecteru2/cocoond/hypervisor"
	"github.com/projecteru2/cocoond/types"
)

// DaemonSettingsRoot prefixes every per-instance key.
const DaemonSettingsRoot = "daemon"

// Per-instance properties.
const (
	PropertyCPUs   = "cpus"
	PropertyMemory = "memory"
	PropertyDisk   = "disk"
)

// InstancePlaceholder stands in for real instance names in Keys.
const InstancePlaceholder = "<instance-name>"

// The instance segment is unconstrained (dots included); the anchored
// property suffix decides where it ends.
var instanceKeyRegex = regexp.MustCompile(
	`^` + regexp.QuoteMeta(DaemonSettingsRoot) + `\.(?P<instance>.+)\.(?P<property>` +
		PropertyCPUs + `|` + PropertyMemory + `|` + PropertyDisk + `)$`)

// ParseInstanceKey splits a key of the form daemon.<instance>.<property>.
func ParseInstanceKey(key string) (instance, property string, ok bool) {
	m := instanceKeyRegex.FindStringSubmatch(key)
	if m == nil {
		return "", "", false
	}
	return m[instanceKeyRegex.SubexpIndex("instance")], m[instanceKeyRegex.SubexpIndex("property")], true
}

// InstanceIndex is the daemon-owned view of instances the handler works on.
// Callers serialise instance lifecycle changes against settings operations.
type InstanceIndex interface {
	IsPreparing(name string) bool
	IsDeleted(name string) bool
	// Lookup returns a copy of the declared specs and the live handle.
	Lookup(name string) (types.VMSpecs, hypervisor.VirtualMachine, bool)
	// CommitSpecs replaces and persists the declared specs of name.
	CommitSpecs(ctx context.Context, name string, specs types.VMSpecs) error
}

// InstanceHandler serves daemon.<instance>.{cpus,memory,disk}.
type InstanceHandler struct {
	index InstanceIndex
}

// NewInstanceHandler creates a handler over index. It keeps a reference,
// never a copy.
func NewInstanceHandler(index InstanceIndex) *InstanceHandler {
	return &InstanceHandler{index: index}
}

// Keys reports the property patterns under a placeholder instance name;
// instance existence is checked when a key is used.
func (h *InstanceHandler) Keys() []string {
	keys := make([]string, 0, len(instanceProperties))
	for _, p := range []string{PropertyCPUs, PropertyDisk, PropertyMemory} {
		keys = append(keys, fmt.Sprintf("%s.%s.%s", DaemonSettingsRoot, InstancePlaceholder, p))
	}
	return keys
}

// Get returns the declared value of the property, in a form Set accepts.
func (h *InstanceHandler) Get(_ context.Context, key string) (string, error) {
	name, prop, ok := ParseInstanceKey(key)
	if !ok {
		return "", &UnrecognizedError{Key: key}
	}
	specs, _, err := h.find(name, Obtain)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(instanceProperties[prop].current(specs), 10), nil
}

// Set changes a resource property of a stopped instance. Values may only
// grow; an equal value is a no-op.
func (h *InstanceHandler) Set(ctx context.Context, key, val string) error {
	name, prop, ok := ParseInstanceKey(key)
	if !ok {
		return &UnrecognizedError{Key: key}
	}
	specs, vm, err := h.find(name, Update)
	if err != nil {
		return err
	}
	state, err := vm.CurrentState(ctx)
	if err != nil {
		return &InstanceError{Op: Update, Instance: name, Reason: ReasonNoState, Err: err}
	}
	if !state.Modifiable() {
		return &InstanceError{Op: Update, Instance: name, Reason: ReasonNotStopped}
	}

	p := instanceProperties[prop]
	want, err := p.parse(val)
	if err != nil || want <= 0 {
		return &InvalidError{Key: key, Value: val, Reason: p.invalid}
	}
	have := p.current(specs)
	switch {
	case want < have:
		return &InvalidError{Key: key, Value: val, Reason: p.shrink}
	case want == have:
		return nil
	}
	return h.commit(ctx, name, vm, p, specs, want)
}

// commit mutates the live handle first, then the declared specs. If the
// specs cannot be persisted the handle is put back to its previous value.
func (h *InstanceHandler) commit(ctx context.Context, name string, vm hypervisor.VirtualMachine, p property, specs types.VMSpecs, want int64) error {
	logger := log.WithFunc("settings.InstanceHandler.commit")
	have := p.current(specs)
	if err := p.apply(ctx, vm, want); err != nil {
		return fmt.Errorf("update %s of %s: %w", p.name, name, err)
	}
	if err := h.index.CommitSpecs(ctx, name, p.with(specs, want)); err != nil {
		if rbErr := p.apply(ctx, vm, have); rbErr != nil {
			logger.Warnf(ctx, "roll back %s of %s to %d: %v", p.name, name, have, rbErr)
		}
		return fmt.Errorf("save specs of %s: %w", name, err)
	}
	logger.Infof(ctx, "instance %s: %s %d -> %d", name, p.name, have, want)
	return nil
}

func (h *InstanceHandler) find(name string, op Operation) (types.VMSpecs, hypervisor.VirtualMachine, error) {
	if h.index.IsPreparing(name) {
		return types.VMSpecs{}, nil, &InstanceError{Op: op, Instance: name, Reason: ReasonPreparing}
	}
	specs, vm, ok := h.index.Lookup(name)
	if !ok {
		reason := ReasonNotFound
		if h.index.IsDeleted(name) {
			reason = ReasonDeleted
		}
		return types.VMSpecs{}, nil, &InstanceError{Op: op, Instance: name, Reason: reason}
	}
	return specs, vm, nil
}

type property struct {
	name    string
	invalid string
	shrink  string
	parse   func(string) (int64, error)
	current func(types.VMSpecs) int64
	with    func(types.VMSpecs, int64) types.VMSpecs
	apply   func(context.Context, hypervisor.VirtualMachine, int64) error
}

const invalidSize = "need a positive size, e.g. 512M or 2G"

var instanceProperties = map[string]property{
	PropertyCPUs: {
		name:    "cores",
		invalid: "need a positive decimal integer",
		shrink:  "the number of cores can only be increased",
		parse: func(val string) (int64, error) {
			n, err := strconv.Atoi(val)
			return int64(n), err
		},
		current: func(s types.VMSpecs) int64 { return int64(s.NumCores) },
		with: func(s types.VMSpecs, v int64) types.VMSpecs {
			s.NumCores = int(v)
			return s
		},
		apply: func(ctx context.Context, vm hypervisor.VirtualMachine, v int64) error {
			return vm.UpdateNumCores(ctx, int(v))
		},
	},
	PropertyMemory: {
		name:    "memory",
		invalid: invalidSize,
		shrink:  "the memory size can only be increased",
		parse:   units.RAMInBytes,
		current: func(s types.VMSpecs) int64 { return s.MemSize },
		with: func(s types.VMSpecs, v int64) types.VMSpecs {
			s.MemSize = v
			return s
		},
		apply: func(ctx context.Context, vm hypervisor.VirtualMachine, v int64) error {
			return vm.ResizeMemory(ctx, v)
		},
	},
	PropertyDisk: {
		name:    "disk",
		invalid: invalidSize,
		shrink:  "the disk size can only be increased",
		parse:   units.RAMInBytes,
		current: func(s types.VMSpecs) int64 { return s.DiskSpace },
		with: func(s types.VMSpecs, v int64) types.VMSpecs {
			s.DiskSpace = v
			return s
		},
		apply: func(ctx context.Context, vm hypervisor.VirtualMachine, v int64) error {
			return vm.ResizeDisk(ctx, v)
		},
	},
}
