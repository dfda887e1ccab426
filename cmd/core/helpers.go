package core

import (
	"context"
	"fmt"

	units "github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/Mostafa-Hesham1/VirtCloud/billing"
	"github.com/Mostafa-Hesham1/VirtCloud/config"
	"github.com/Mostafa-Hesham1/VirtCloud/disks"
	"github.com/Mostafa-Hesham1/VirtCloud/engine"
	"github.com/Mostafa-Hesham1/VirtCloud/engine/qemu"
	"github.com/Mostafa-Hesham1/VirtCloud/plans"
	"github.com/Mostafa-Hesham1/VirtCloud/types"
	"github.com/Mostafa-Hesham1/VirtCloud/utils"
)

// BaseHandler provides shared config access for all command handlers.
type BaseHandler struct {
	ConfProvider func() *config.Config
}

// Init returns the command context and validated config in one call.
func (h BaseHandler) Init(cmd *cobra.Command) (context.Context, *config.Config, error) {
	conf, err := h.Conf()
	if err != nil {
		return nil, nil, err
	}
	return CommandContext(cmd), conf, nil
}

// Conf validates and returns the config. All handlers call this first.
func (h BaseHandler) Conf() (*config.Config, error) {
	if h.ConfProvider == nil {
		return nil, fmt.Errorf("config provider is nil")
	}
	conf := h.ConfProvider()
	if conf == nil {
		return nil, fmt.Errorf("config not initialized")
	}
	return conf, nil
}

// CommandContext returns command context, falling back to Background.
func CommandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

// AuthFromFlags builds the caller identity from the root --owner/--plan
// flags. Owner is mandatory: every store record is scoped to it.
func AuthFromFlags(cmd *cobra.Command) (types.AuthContext, error) {
	owner, _ := cmd.Root().PersistentFlags().GetString("owner")
	plan, _ := cmd.Root().PersistentFlags().GetString("plan")

	if owner == "" {
		return types.AuthContext{}, fmt.Errorf("--owner is required: %w", types.ErrInvalidArgument)
	}
	if plan == "" {
		plan = "free"
	}
	if !plans.Known(plan) {
		return types.AuthContext{}, fmt.Errorf("unknown plan %q: %w", plan, types.ErrInvalidArgument)
	}
	return types.AuthContext{OwnerID: owner, Plan: plan}, nil
}

// InitLedger initializes only the billing ledger.
func InitLedger(conf *config.Config) (*billing.Ledger, error) {
	ledger, err := billing.NewLedger(conf)
	if err != nil {
		return nil, fmt.Errorf("init ledger: %w", err)
	}
	return ledger, nil
}

// InitDisks initializes only the disk backend. The reconciler stays
// unbound; VM reference rewrites need InitEngine.
func InitDisks(conf *config.Config) *disks.Backend {
	return disks.New(conf)
}

// InitEngine wires the full stack: process host, disk backend, ledger,
// engine, and binds the engine back into the backend as its reconciler.
func InitEngine(conf *config.Config) (engine.Engine, *disks.Backend, *billing.Ledger, error) {
	ledger, err := InitLedger(conf)
	if err != nil {
		return nil, nil, nil, err
	}
	backend := disks.New(conf)
	eng, err := qemu.New(conf, qemu.NewExecHost(), backend, ledger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init engine: %w", err)
	}
	backend.Bind(eng)
	return eng, backend, ledger, nil
}

// FormatMemory renders a MB count the way list output wants it.
func FormatMemory(memoryMB int) string {
	return units.BytesSize(float64(memoryMB << 20)) //nolint:mnd
}

// ReconcileState checks actual process liveness to detect stale "running"
// records in display output. The authoritative record is untouched; a start
// on a stale VM relaunches it.
func ReconcileState(vm *types.VirtualMachine) string {
	if vm.Running() && !utils.IsProcessAlive(vm.PID) {
		return "stopped (stale)"
	}
	return string(vm.State)
}
