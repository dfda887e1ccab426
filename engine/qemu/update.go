package qemu

import (
	"context"
	"fmt"
	"time"

	"github.com/Mostafa-Hesham1/VirtCloud/engine"
	"github.com/Mostafa-Hesham1/VirtCloud/plans"
	"github.com/Mostafa-Hesham1/VirtCloud/types"
)

// UpdateResources changes a VM's CPU and memory allocation. The VM must be
// stopped: resources of a live process cannot be changed, and the state
// precondition is re-checked inside the store update so a concurrent start
// cannot slip a resize under a running VM.
func (e *Engine) UpdateResources(ctx context.Context, auth types.AuthContext, vmID string, cpuCount, memoryMB int) (*types.VirtualMachine, error) {
	if cpuCount <= 0 {
		return nil, fmt.Errorf("cpu_count must be positive, got %d: %w", cpuCount, types.ErrInvalidArgument)
	}
	if memoryMB <= 0 {
		return nil, fmt.Errorf("memory_mb must be positive, got %d: %w", memoryMB, types.ErrInvalidArgument)
	}
	if err := plans.CheckVMLimits(auth.Plan, cpuCount, memoryMB); err != nil {
		return nil, err
	}

	now := time.Now()
	var updated types.VirtualMachine
	if err := e.store.Update(ctx, func(idx *engine.VMIndex) error {
		rec, err := idx.LookupOwned(vmID, auth.OwnerID)
		if err != nil {
			return err
		}
		if rec.State != types.VMStateStopped {
			return fmt.Errorf("VM %s must be stopped to update resources (state: %s): %w",
				vmID, rec.State, types.ErrInvalidState)
		}
		rec.Spec.CPUCount = cpuCount
		rec.Spec.MemoryMB = memoryMB
		rec.UpdatedAt = now
		updated = *rec
		return nil
	}); err != nil {
		return nil, err
	}
	return &updated, nil
}
