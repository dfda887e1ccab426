package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Mostafa-Hesham1/VirtCloud/types"
)

// ErrProcessGone is returned by ProcessHost.Signal when the target process
// no longer exists. Callers map it to an already-stopped observation rather
// than a failure: an idempotent stop must succeed on a vanished process.
var ErrProcessGone = errors.New("process gone")

// VMIndex is the top-level document of the VM store. All records for all
// owners live in one index; owner scoping happens at lookup time.
type VMIndex struct {
	VMs map[string]*types.VirtualMachine `json:"vms"`
}

// Init implements storage.Initer — initialises nil maps after deserialization.
func (idx *VMIndex) Init() {
	if idx.VMs == nil {
		idx.VMs = make(map[string]*types.VirtualMachine)
	}
}

// LookupOwned returns the record for id iff it exists and belongs to owner.
// A missing record and an owner mismatch are deliberately the same error so
// the API never reveals whether someone else's VM ID exists.
func (idx *VMIndex) LookupOwned(id, ownerID string) (*types.VirtualMachine, error) {
	vm := idx.VMs[id]
	if vm == nil || vm.OwnerID != ownerID {
		return nil, fmt.Errorf("VM %s: %w", id, types.ErrNotFound)
	}
	return vm, nil
}

// CountDiskRefs counts the owner's VMs referencing a disk.
func (idx *VMIndex) CountDiskRefs(ownerID, diskRef string) int {
	n := 0
	for _, vm := range idx.VMs {
		if vm.OwnerID == ownerID && vm.Spec.DiskRef == diskRef {
			n++
		}
	}
	return n
}

// NewID returns a fresh VM identifier.
func NewID() string { return uuid.NewString() }
