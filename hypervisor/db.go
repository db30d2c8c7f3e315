package hypervisor

import (
	"github.com/projecteru2/cocoond/types"
)

// VMRecord is the persisted runtime record for a single VM.
type VMRecord struct {
	types.VMInfo
}

// VMIndex is the top-level DB structure of a backend's runtime index
// (e.g. {RootDir}/local/db/vms.json).
type VMIndex struct {
	VMs   map[string]*VMRecord `json:"vms"`
	Names map[string]string    `json:"names"` // name → VM ID
}

// Init implements storage.Initer.
func (idx *VMIndex) Init() {
	if idx.VMs == nil {
		idx.VMs = make(map[string]*VMRecord)
	}
	if idx.Names == nil {
		idx.Names = make(map[string]string)
	}
}

// ByName returns the record registered under name.
func (idx *VMIndex) ByName(name string) (*VMRecord, error) {
	id, ok := idx.Names[name]
	if !ok || idx.VMs[id] == nil {
		return nil, ErrNotFound
	}
	return idx.VMs[id], nil
}
