package qemu

import (
	"context"
	"fmt"
	"time"

	"github.com/projecteru2/core/log"

	"github.com/Mostafa-Hesham1/VirtCloud/engine"
	"github.com/Mostafa-Hesham1/VirtCloud/plans"
	"github.com/Mostafa-Hesham1/VirtCloud/types"
)

// Create validates the spec, launches the VM process, and persists the
// record in Running state. Launch comes first: if the process fails to
// start nothing is persisted, so there is never a half-created record
// pointing at a process that does not exist.
func (e *Engine) Create(ctx context.Context, auth types.AuthContext, spec engine.CreateSpec) (*types.VirtualMachine, error) {
	if spec.CPUCount <= 0 {
		return nil, fmt.Errorf("cpu_count must be positive, got %d: %w", spec.CPUCount, types.ErrInvalidArgument)
	}
	if spec.MemoryMB <= 0 {
		return nil, fmt.Errorf("memory_mb must be positive, got %d: %w", spec.MemoryMB, types.ErrInvalidArgument)
	}
	if err := plans.CheckVMLimits(auth.Plan, spec.CPUCount, spec.MemoryMB); err != nil {
		return nil, err
	}
	if !e.disks.Exists(spec.DiskRef) {
		return nil, fmt.Errorf("disk %q not found in store: %w", spec.DiskRef, types.ErrNotFound)
	}

	now := time.Now()
	vm := types.VirtualMachine{
		ID:      engine.NewID(),
		OwnerID: auth.OwnerID,
		Spec: types.VMSpec{
			DiskRef:  spec.DiskRef,
			ISORef:   spec.ISORef,
			MemoryMB: spec.MemoryMB,
			CPUCount: spec.CPUCount,
			Display:  spec.Display,
		},
		State:     types.VMStateCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}

	includeISO := spec.ISORef != ""
	pid, err := e.launch(ctx, &vm, includeISO)
	if err != nil {
		return nil, fmt.Errorf("launch VM: %w", err)
	}

	vm.State = types.VMStateRunning
	vm.PID = pid
	vm.ISOIncluded = includeISO
	vm.StartedAt = &now

	if err := e.store.Update(ctx, func(idx *engine.VMIndex) error {
		if idx.VMs[vm.ID] != nil {
			return fmt.Errorf("ID collision %q (retry)", vm.ID)
		}
		copied := vm
		idx.VMs[vm.ID] = &copied
		return nil
	}); err != nil {
		// Record write failed after launch — reap the orphan process.
		if terr := e.terminate(ctx, pid); terr != nil {
			log.WithFunc("qemu.Create").Warnf(ctx, "reap orphan PID %d: %v", pid, terr)
		}
		return nil, fmt.Errorf("persist VM record: %w", err)
	}

	log.WithFunc("qemu.Create").Infof(ctx, "VM %s launched for %s (PID %d)", vm.ID, auth.OwnerID, pid)
	return &vm, nil
}
