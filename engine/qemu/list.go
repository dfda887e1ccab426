package qemu

import (
	"context"
	"sort"

	"github.com/Mostafa-Hesham1/VirtCloud/engine"
	"github.com/Mostafa-Hesham1/VirtCloud/types"
)

// Inspect returns one owned VM record.
func (e *Engine) Inspect(ctx context.Context, auth types.AuthContext, vmID string) (*types.VirtualMachine, error) {
	vm, err := e.loadOwned(ctx, auth, vmID)
	if err != nil {
		return nil, err
	}
	return &vm, nil
}

// List returns all of the owner's VMs, oldest first.
func (e *Engine) List(ctx context.Context, auth types.AuthContext) ([]*types.VirtualMachine, error) {
	var out []*types.VirtualMachine
	if err := e.store.With(ctx, func(idx *engine.VMIndex) error {
		for _, vm := range idx.VMs {
			if vm.OwnerID != auth.OwnerID {
				continue
			}
			copied := *vm
			out = append(out, &copied)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Running returns running VMs across all owners. Used by the metering
// sweep, which charges every open session regardless of owner.
func (e *Engine) Running(ctx context.Context) ([]*types.VirtualMachine, error) {
	var out []*types.VirtualMachine
	if err := e.store.With(ctx, func(idx *engine.VMIndex) error {
		for _, vm := range idx.VMs {
			if !vm.Running() {
				continue
			}
			copied := *vm
			out = append(out, &copied)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
