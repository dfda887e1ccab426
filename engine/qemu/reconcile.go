package qemu

import (
	"context"
	"fmt"
	"time"

	"github.com/projecteru2/core/log"

	"github.com/Mostafa-Hesham1/VirtCloud/engine"
	"github.com/Mostafa-Hesham1/VirtCloud/types"
)

// Reconcile rewrites the disk reference on every VM of the owner that still
// points at oldRef. The disk backend calls this after the physical rename
// or convert has succeeded, so a failure here leaves the image intact under
// its new name and re-running Reconcile alone repairs the records. Zero
// matching VMs is a valid outcome, not an error.
func (e *Engine) Reconcile(ctx context.Context, auth types.AuthContext, oldRef, newRef string) (int, error) {
	if oldRef == "" || newRef == "" {
		return 0, fmt.Errorf("disk references must be non-empty: %w", types.ErrInvalidArgument)
	}
	if oldRef == newRef {
		return 0, fmt.Errorf("old and new disk references are identical: %w", types.ErrInvalidArgument)
	}

	now := time.Now()
	count := 0
	if err := e.store.Update(ctx, func(idx *engine.VMIndex) error {
		count = 0
		for _, vm := range idx.VMs {
			if vm.OwnerID == auth.OwnerID && vm.Spec.DiskRef == oldRef {
				vm.Spec.DiskRef = newRef
				vm.UpdatedAt = now
				count++
			}
		}
		return nil
	}); err != nil {
		return 0, fmt.Errorf("reconcile disk refs %s -> %s: %w", oldRef, newRef, err)
	}

	if count > 0 {
		log.WithFunc("qemu.Reconcile").Infof(ctx, "rewrote %d VM record(s) from disk %s to %s", count, oldRef, newRef)
	}
	return count, nil
}
