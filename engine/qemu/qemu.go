// Package qemu implements the VM lifecycle engine on top of the QEMU
// system emulator: it supervises qemu-system processes, keeps the
// authoritative VM records in a locked document store, and closes billing
// sessions on stop.
package qemu

import (
	"context"
	"fmt"
	"time"

	"github.com/Mostafa-Hesham1/VirtCloud/billing"
	"github.com/Mostafa-Hesham1/VirtCloud/config"
	"github.com/Mostafa-Hesham1/VirtCloud/engine"
	"github.com/Mostafa-Hesham1/VirtCloud/storage"
	storejson "github.com/Mostafa-Hesham1/VirtCloud/storage/json"
	"github.com/Mostafa-Hesham1/VirtCloud/types"
	"github.com/Mostafa-Hesham1/VirtCloud/utils"
)

var _ engine.Engine = (*Engine)(nil)

// Engine is the QEMU-backed engine.Engine implementation. All collaborators
// are injected at construction; it holds no global state.
type Engine struct {
	conf   *config.Config
	store  storage.Store[engine.VMIndex]
	host   engine.ProcessHost
	disks  engine.DiskBackend
	ledger *billing.Ledger
}

// New creates the engine over the configured VM store.
func New(conf *config.Config, host engine.ProcessHost, disks engine.DiskBackend, ledger *billing.Ledger) (*Engine, error) {
	if err := conf.EnsureEngineDirs(); err != nil {
		return nil, fmt.Errorf("ensure engine dirs: %w", err)
	}
	return &Engine{
		conf:   conf,
		store:  storejson.New[engine.VMIndex](conf.VMIndexFile(), conf.VMIndexLock()),
		host:   host,
		disks:  disks,
		ledger: ledger,
	}, nil
}

// loadOwned reads a copy of an owner's VM record from the index under lock.
// The returned record is detached and safe to use after the lock is released.
func (e *Engine) loadOwned(ctx context.Context, auth types.AuthContext, id string) (types.VirtualMachine, error) {
	var vm types.VirtualMachine
	return vm, e.store.With(ctx, func(idx *engine.VMIndex) error {
		rec, err := idx.LookupOwned(id, auth.OwnerID)
		if err != nil {
			return err
		}
		vm = *rec
		return nil
	})
}

// gracePeriod is the configured window for voluntary process exit.
func (e *Engine) gracePeriod() time.Duration {
	return time.Duration(e.conf.StopTimeoutSeconds) * time.Second
}

// elapsedMinutes computes the open session length with second precision.
// The single returned value feeds both the billing charge and the runtime
// accumulator so the two can never drift.
func elapsedMinutes(vm *types.VirtualMachine, now time.Time) float64 {
	if vm.StartedAt == nil {
		return 0
	}
	return now.Sub(*vm.StartedAt).Seconds() / 60
}

// recordPID persists the PID file for a launched VM.
func (e *Engine) recordPID(vmID string, pid int) error {
	return utils.WritePIDFile(e.conf.VMPIDFile(vmID), pid)
}
