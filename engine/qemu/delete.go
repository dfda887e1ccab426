package qemu

import (
	"context"
	"fmt"

	"github.com/projecteru2/core/log"

	"github.com/Mostafa-Hesham1/VirtCloud/engine"
	"github.com/Mostafa-Hesham1/VirtCloud/types"
)

// Delete removes a VM record. A live process is terminated best-effort
// first — termination failures are logged, never fatal, because deletion
// must not be blocked by a process that already vanished or refuses the
// signal. When deleteDisk is set the disk file is removed only if no other
// VM of the same owner still references it.
func (e *Engine) Delete(ctx context.Context, auth types.AuthContext, vmID string, deleteDisk bool) (*engine.DeleteResult, error) {
	logger := log.WithFunc("qemu.Delete")

	vm, err := e.loadOwned(ctx, auth, vmID)
	if err != nil {
		return nil, err
	}

	if vm.Running() {
		if err := e.terminate(ctx, vm.PID); err != nil {
			logger.Warnf(ctx, "terminate VM %s (PID %d) before delete: %v", vmID, vm.PID, err)
		}
	}

	result := &engine.DeleteResult{DiskRef: vm.Spec.DiskRef}
	var remainingRefs int
	if err := e.store.Update(ctx, func(idx *engine.VMIndex) error {
		if _, err := idx.LookupOwned(vmID, auth.OwnerID); err != nil {
			return nil // already gone — converge to no-op
		}
		delete(idx.VMs, vmID)
		result.VMDeleted = true
		remainingRefs = idx.CountDiskRefs(auth.OwnerID, vm.Spec.DiskRef)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("delete VM record: %w", err)
	}

	if result.VMDeleted && deleteDisk && vm.Spec.DiskRef != "" && remainingRefs == 0 {
		if err := e.disks.Delete(vm.Spec.DiskRef); err != nil {
			// Best-effort, like process termination: the record removal stands.
			logger.Warnf(ctx, "delete disk %s: %v", vm.Spec.DiskRef, err)
		} else {
			result.DiskDeleted = true
		}
	}

	logger.Infof(ctx, "VM %s deleted (disk deleted: %v)", vmID, result.DiskDeleted)
	return result, nil
}
