package qemu

import (
	"context"
	"fmt"
	"time"

	"github.com/projecteru2/core/log"

	"github.com/Mostafa-Hesham1/VirtCloud/engine"
	"github.com/Mostafa-Hesham1/VirtCloud/types"
)

// Start launches a stopped VM again, opening a new session. Starting a VM
// that is already running returns the current record alongside
// types.ErrConflict so the caller can report it without side effects.
func (e *Engine) Start(ctx context.Context, auth types.AuthContext, vmID string, includeISO bool) (*types.VirtualMachine, error) {
	vm, err := e.loadOwned(ctx, auth, vmID)
	if err != nil {
		return nil, err
	}

	if vm.Running() {
		// Already-running is only a real conflict while the process lives;
		// a stale record (process died underneath) is relaunchable.
		if e.host.Alive(vm.PID) {
			return &vm, fmt.Errorf("VM %s is already running: %w", vmID, types.ErrConflict)
		}
		log.WithFunc("qemu.Start").Warnf(ctx, "VM %s recorded running but PID %d is gone, relaunching", vmID, vm.PID)
	}

	if !e.disks.Exists(vm.Spec.DiskRef) {
		return nil, fmt.Errorf("disk %q not found in store: %w", vm.Spec.DiskRef, types.ErrNotFound)
	}

	pid, err := e.launch(ctx, &vm, includeISO)
	if err != nil {
		return nil, fmt.Errorf("launch VM: %w", err)
	}

	now := time.Now()
	var updated types.VirtualMachine
	if err := e.store.Update(ctx, func(idx *engine.VMIndex) error {
		rec, err := idx.LookupOwned(vmID, auth.OwnerID)
		if err != nil {
			return err // deleted while we were launching
		}
		rec.State = types.VMStateRunning
		rec.PID = pid
		rec.ISOIncluded = includeISO
		rec.StartedAt = &now
		rec.StoppedAt = nil
		rec.UpdatedAt = now
		updated = *rec
		return nil
	}); err != nil {
		if terr := e.terminate(ctx, pid); terr != nil {
			log.WithFunc("qemu.Start").Warnf(ctx, "reap orphan PID %d: %v", pid, terr)
		}
		return nil, err
	}

	log.WithFunc("qemu.Start").Infof(ctx, "VM %s started (PID %d, ISO included: %v)", vmID, pid, includeISO)
	return &updated, nil
}
