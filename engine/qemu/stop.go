package qemu

import (
	"context"
	"fmt"
	"time"

	"github.com/projecteru2/core/log"

	"github.com/Mostafa-Hesham1/VirtCloud/engine"
	"github.com/Mostafa-Hesham1/VirtCloud/types"
)

// Stop terminates a running VM's process, closes its billing session, and
// marks the record stopped.
//
// The flow is: signal the process (outside any lock), then claim the
// running→stopped transition with a conditional store update, then bill.
// Claiming first makes the operation idempotent under races — of two
// concurrent stops (or a stop racing a delete) only one observes the record
// still running, so only one closes the session and appends a ledger entry;
// the other converges to a no-op.
//
// A process that is already gone, and a termination that times out, are
// both logged and do not block the transition: a VM's logical state must
// not stay Running forever just because the OS process misbehaved.
func (e *Engine) Stop(ctx context.Context, auth types.AuthContext, vmID string) (*engine.StopResult, error) {
	logger := log.WithFunc("qemu.Stop")

	vm, err := e.loadOwned(ctx, auth, vmID)
	if err != nil {
		return nil, err
	}
	if !vm.Running() {
		// Idempotent no-op: already stopped, no charge, no ledger entry.
		return &engine.StopResult{VM: &vm}, nil
	}

	if err := e.terminate(ctx, vm.PID); err != nil {
		logger.Warnf(ctx, "terminate VM %s (PID %d): %v — proceeding with stop", vmID, vm.PID, err)
	}

	now := time.Now()
	var (
		claimed bool
		elapsed float64
		stopped types.VirtualMachine
	)
	if err := e.store.Update(ctx, func(idx *engine.VMIndex) error {
		rec, err := idx.LookupOwned(vmID, auth.OwnerID)
		if err != nil {
			return nil // deleted concurrently — converge to no-op
		}
		if !rec.Running() {
			return nil // another stop won the race
		}
		// One elapsed value feeds both the accumulator and the charge.
		elapsed = elapsedMinutes(rec, now)
		rec.State = types.VMStateStopped
		rec.PID = 0
		rec.StoppedAt = &now
		rec.UpdatedAt = now
		rec.TotalRuntimeMinutes += elapsed
		stopped = *rec
		claimed = true
		return nil
	}); err != nil {
		return nil, fmt.Errorf("mark VM stopped: %w", err)
	}

	if !claimed {
		vm, err := e.loadOwned(ctx, auth, vmID)
		if err != nil {
			// Record vanished under a concurrent delete; report terminal.
			return &engine.StopResult{}, nil
		}
		return &engine.StopResult{VM: &vm}, nil
	}

	session, err := e.ledger.CloseSession(ctx, auth, &stopped, elapsed)
	if err != nil {
		// State is already consistent (stopped, runtime recorded); only the
		// charge is missing. Surface the failure — billing is never retried.
		return nil, fmt.Errorf("close billing session for VM %s: %w", vmID, err)
	}

	logger.Infof(ctx, "VM %s stopped after %.2f min, charged %.2f credits", vmID, elapsed, session.Cost)
	return &engine.StopResult{VM: &stopped, Session: session}, nil
}
