package platform

const daemonConfigHome = "/Library/Application Support/cocoond"

// The first entry is the default driver.
var supportedDrivers = []string{"qemu"}
