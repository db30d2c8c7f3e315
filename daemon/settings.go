package daemon

import (
	"path/filepath"

	"github.com/projecteru2/cocoond/platform"
	"github.com/projecteru2/cocoond/settings"
)

const (
	// Name is the daemon name; it also names the settings file.
	Name = "cocoond"
	// SettingsExtension is the settings file extension.
	SettingsExtension = ".conf"
)

// Global setting keys.
const (
	BridgedInterfaceKey = "bridged-interface"
	MountsKey           = "mounts"
	DriverKey           = "driver"
)

// SettingsFile is the fixed path of the global settings file,
// e.g. /etc/cocoond/cocoond.conf.
func SettingsFile(plat platform.Platform) string {
	return filepath.Join(plat.DaemonConfigHome(), Name+SettingsExtension)
}

// GlobalSettingSpecs returns the platform extras overlaid by the built-in
// specs.
func GlobalSettingSpecs(plat platform.Platform) settings.SpecSet {
	specs := settings.NewSpecSet(plat.ExtraDaemonSettings()...)
	specs.Insert(
		settings.NewBasicSpec(BridgedInterfaceKey, ""),
		settings.NewBoolSpec(MountsKey, plat.DefaultPrivilegedMounts()),
		settings.NewDynamicSpec(DriverKey, plat.DefaultDriver(), driverInterpreter(plat)),
	)
	return specs
}

// RegisterGlobalSettingsHandlers registers the persistent handler of the
// global settings with reg and returns it.
func RegisterGlobalSettingsHandlers(reg *settings.Registry, plat platform.Platform, hardener settings.Hardener) *settings.PersistentHandler {
	h := settings.NewPersistentHandler(SettingsFile(plat), GlobalSettingSpecs(plat), hardener)
	reg.RegisterHandler(h)
	return h
}

func driverInterpreter(plat platform.Platform) settings.Interpreter {
	return func(val string) (string, error) {
		if !plat.IsBackendSupported(val) {
			return "", &settings.InvalidError{Key: DriverKey, Value: val, Reason: "invalid driver"}
		}
		return val, nil
	}
}
