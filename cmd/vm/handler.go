package vm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	cmdcore "github.com/Mostafa-Hesham1/VirtCloud/cmd/core"
	"github.com/Mostafa-Hesham1/VirtCloud/engine"
	"github.com/Mostafa-Hesham1/VirtCloud/types"
)

type Handler struct {
	cmdcore.BaseHandler
}

// initEngine is the shared init for every VM subcommand: config, caller
// identity, and the fully wired engine.
func (h Handler) initEngine(cmd *cobra.Command) (context.Context, types.AuthContext, engine.Engine, error) {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return nil, types.AuthContext{}, nil, err
	}
	auth, err := cmdcore.AuthFromFlags(cmd)
	if err != nil {
		return nil, types.AuthContext{}, nil, err
	}
	eng, _, _, err := cmdcore.InitEngine(conf)
	if err != nil {
		return nil, types.AuthContext{}, nil, err
	}
	return ctx, auth, eng, nil
}

func (h Handler) Create(cmd *cobra.Command, args []string) error {
	ctx, auth, eng, err := h.initEngine(cmd)
	if err != nil {
		return err
	}

	cpu, _ := cmd.Flags().GetInt("cpu")
	memMB, _ := cmd.Flags().GetInt("memory")
	iso, _ := cmd.Flags().GetString("iso")
	display, _ := cmd.Flags().GetString("display")

	vm, err := eng.Create(ctx, auth, engine.CreateSpec{
		DiskRef:  args[0],
		ISORef:   iso,
		MemoryMB: memMB,
		CPUCount: cpu,
		Display:  types.DisplayMode(display),
	})
	if err != nil {
		return fmt.Errorf("create VM: %w", err)
	}

	logger := log.WithFunc("cmd.vm.create")
	logger.Infof(ctx, "VM created and running: %s (pid: %d, disk: %s)", vm.ID, vm.PID, vm.Spec.DiskRef)
	logger.Infof(ctx, "stop with: virtcloud vm stop %s", vm.ID)
	return nil
}

func (h Handler) Start(cmd *cobra.Command, args []string) error {
	ctx, auth, eng, err := h.initEngine(cmd)
	if err != nil {
		return err
	}
	includeISO, _ := cmd.Flags().GetBool("iso")

	logger := log.WithFunc("cmd.vm.start")
	for _, id := range args {
		vm, err := eng.Start(ctx, auth, id, includeISO)
		if errors.Is(err, types.ErrConflict) {
			logger.Warnf(ctx, "already running: %s (pid: %d)", id, vm.PID)
			continue
		}
		if err != nil {
			return fmt.Errorf("start VM %s: %w", id, err)
		}
		logger.Infof(ctx, "started: %s (pid: %d)", vm.ID, vm.PID)
	}
	return nil
}

func (h Handler) Stop(cmd *cobra.Command, args []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	auth, err := cmdcore.AuthFromFlags(cmd)
	if err != nil {
		return err
	}
	eng, _, _, err := cmdcore.InitEngine(conf)
	if err != nil {
		return err
	}

	// Stops run concurrently: each one may wait out a full termination
	// grace period, and the store lock already orders the state changes.
	results := make([]*engine.StopResult, len(args))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(conf.PoolSize)
	for i, id := range args {
		g.Go(func() error {
			res, err := eng.Stop(gctx, auth, id)
			if err != nil {
				return fmt.Errorf("stop VM %s: %w", id, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger := log.WithFunc("cmd.vm.stop")
	for i, res := range results {
		if res.Session == nil {
			logger.Infof(ctx, "already stopped: %s", args[i])
			continue
		}
		s := res.Session
		logger.Infof(ctx, "stopped: %s (%.1f min, %.2f credits, balance: %.2f)",
			args[i], s.RuntimeMinutes, s.Cost, s.NewBalance)
		if s.Undercharged {
			logger.Warnf(ctx, "session undercharged by %.2f credits, recharge to keep using VMs", s.Shortfall)
		}
	}
	return nil
}

func (h Handler) Resize(cmd *cobra.Command, args []string) error {
	ctx, auth, eng, err := h.initEngine(cmd)
	if err != nil {
		return err
	}
	cpu, _ := cmd.Flags().GetInt("cpu")
	memMB, _ := cmd.Flags().GetInt("memory")

	vm, err := eng.UpdateResources(ctx, auth, args[0], cpu, memMB)
	if err != nil {
		return fmt.Errorf("resize VM %s: %w", args[0], err)
	}
	log.WithFunc("cmd.vm.resize").Infof(ctx, "resized: %s (cpu: %d, memory: %dMB)",
		vm.ID, vm.Spec.CPUCount, vm.Spec.MemoryMB)
	return nil
}

func (h Handler) List(cmd *cobra.Command, _ []string) error {
	ctx, auth, eng, err := h.initEngine(cmd)
	if err != nil {
		return err
	}

	vms, err := eng.List(ctx, auth)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	if len(vms) == 0 {
		fmt.Println("No VMs found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATE\tCPU\tMEMORY\tDISK\tRUNTIME\tCREATED")
	for _, vm := range vms {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%.1f min\t%s\n",
			vm.ID,
			cmdcore.ReconcileState(vm),
			vm.Spec.CPUCount,
			cmdcore.FormatMemory(vm.Spec.MemoryMB),
			vm.Spec.DiskRef,
			vm.TotalRuntimeMinutes,
			vm.CreatedAt.Local().Format(time.DateTime),
		)
	}
	return w.Flush()
}

func (h Handler) Inspect(cmd *cobra.Command, args []string) error {
	ctx, auth, eng, err := h.initEngine(cmd)
	if err != nil {
		return err
	}

	vm, err := eng.Inspect(ctx, auth, args[0])
	if err != nil {
		return fmt.Errorf("inspect VM %s: %w", args[0], err)
	}
	out, err := json.MarshalIndent(vm, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func (h Handler) Stats(cmd *cobra.Command, _ []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	auth, err := cmdcore.AuthFromFlags(cmd)
	if err != nil {
		return err
	}
	eng, _, ledger, err := cmdcore.InitEngine(conf)
	if err != nil {
		return err
	}

	stats, err := ledger.Stats(ctx, auth, eng)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATE\tCPU\tRAM\tTOTAL RUNTIME\tSESSION\tSESSION COST\tRATE/H")
	for _, s := range stats.VMs {
		session, cost, rate := "-", "-", "-"
		if s.CurrentSessionMinutes > 0 || s.State == string(types.VMStateRunning) {
			session = fmt.Sprintf("%.1f min", s.CurrentSessionMinutes)
			cost = fmt.Sprintf("%.2f", s.CurrentSessionCost)
			rate = fmt.Sprintf("%.2f", s.HourlyRate)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%.1fG\t%.1f min\t%s\t%s\t%s\n",
			s.ID, s.State, s.CPUCount, s.RAMGB, s.TotalRuntimeMinutes, session, cost, rate)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nRunning sessions total: %.2f credits\n", stats.CurrentTotalCost)
	return nil
}

func (h Handler) RM(cmd *cobra.Command, args []string) error {
	ctx, auth, eng, err := h.initEngine(cmd)
	if err != nil {
		return err
	}
	deleteDisk, _ := cmd.Flags().GetBool("disk")

	logger := log.WithFunc("cmd.vm.rm")
	for _, id := range args {
		res, err := eng.Delete(ctx, auth, id, deleteDisk)
		if err != nil {
			return fmt.Errorf("delete VM %s: %w", id, err)
		}
		if res.DiskDeleted {
			logger.Infof(ctx, "deleted: %s (disk %s removed)", id, res.DiskRef)
		} else {
			logger.Infof(ctx, "deleted: %s", id)
		}
	}
	return nil
}
