package platform

const daemonConfigHome = "/etc/cocoond"

// The first entry is the default driver.
var supportedDrivers = []string{"cloud-hypervisor", "qemu"}
