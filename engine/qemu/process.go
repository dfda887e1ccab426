package qemu

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/projecteru2/core/log"

	"github.com/Mostafa-Hesham1/VirtCloud/engine"
	"github.com/Mostafa-Hesham1/VirtCloud/types"
	"github.com/Mostafa-Hesham1/VirtCloud/utils"
)

const terminatePollInterval = 200 * time.Millisecond

// ExecHost is the real engine.ProcessHost, backed by os/exec and signals.
type ExecHost struct{}

var _ engine.ProcessHost = ExecHost{}

// NewExecHost returns the exec-backed process host.
func NewExecHost() ExecHost { return ExecHost{} }

// Spawn launches argv as a detached long-running process. The engine never
// waits on the child: it lives in its own process group and survives engine
// restarts, like any other service process on the host.
func (ExecHost) Spawn(_ context.Context, argv []string, logPath string) (int, error) {
	if len(argv) == 0 {
		return 0, fmt.Errorf("empty argv: %w", types.ErrInvalidArgument)
	}

	logFile, _ := os.Create(logPath) //nolint:gosec // engine-managed log path

	cmd := exec.Command(argv[0], argv[1:]...) //nolint:gosec
	// Detach from the parent process group so the VM survives engine exit.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if logFile != nil {
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	}

	if err := cmd.Start(); err != nil {
		if logFile != nil {
			_ = logFile.Close()
		}
		if errors.Is(err, exec.ErrNotFound) {
			return 0, fmt.Errorf("executable %s: %w", argv[0], types.ErrUnavailable)
		}
		return 0, fmt.Errorf("exec %s: %w", argv[0], err)
	}
	pid := cmd.Process.Pid

	// Release the handle: the VM is fully detached from the Go runtime.
	_ = cmd.Process.Release()
	if logFile != nil {
		_ = logFile.Close()
	}
	return pid, nil
}

// Signal sends sig to pid, mapping a vanished process to ErrProcessGone.
func (ExecHost) Signal(pid int, sig syscall.Signal) error {
	if pid <= 0 {
		return engine.ErrProcessGone
	}
	if err := syscall.Kill(pid, sig); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return engine.ErrProcessGone
		}
		return fmt.Errorf("signal %d to PID %d: %w", sig, pid, err)
	}
	return nil
}

// Alive reports whether pid currently exists.
func (ExecHost) Alive(pid int) bool { return utils.IsProcessAlive(pid) }

// buildArgs translates a VM spec into the qemu-system invocation.
// ISO boot is appended only when the caller asked for it and the file is
// actually present; a missing ISO is logged and skipped, not fatal.
func (e *Engine) buildArgs(ctx context.Context, vm *types.VirtualMachine, includeISO bool) ([]string, error) {
	diskPath, err := e.disks.Path(vm.Spec.DiskRef)
	if err != nil {
		return nil, err
	}

	display := vm.Spec.Display
	if display == "" {
		display = types.DisplayNone
	}

	argv := []string{
		e.conf.QemuBinary,
		"-drive", fmt.Sprintf("file=%s,format=%s", diskPath, e.disks.FormatFor(vm.Spec.DiskRef)),
		"-m", strconv.Itoa(vm.Spec.MemoryMB),
		"-smp", strconv.Itoa(vm.Spec.CPUCount),
		"-display", string(display),
	}

	if includeISO && vm.Spec.ISORef != "" {
		if utils.ValidFile(vm.Spec.ISORef) {
			argv = append(argv, "-cdrom", vm.Spec.ISORef, "-boot", "d")
		} else {
			log.WithFunc("qemu.buildArgs").Warnf(ctx, "ISO %s not found, booting VM %s without it", vm.Spec.ISORef, vm.ID)
		}
	}
	return argv, nil
}

// launch spawns the VM process and records its PID file.
func (e *Engine) launch(ctx context.Context, vm *types.VirtualMachine, includeISO bool) (int, error) {
	if err := e.conf.EnsureVMDirs(vm.ID); err != nil {
		return 0, fmt.Errorf("ensure VM dirs: %w", err)
	}
	argv, err := e.buildArgs(ctx, vm, includeISO)
	if err != nil {
		return 0, err
	}
	pid, err := e.host.Spawn(ctx, argv, e.conf.VMProcessLog(vm.ID))
	if err != nil {
		return 0, err
	}
	if err := e.recordPID(vm.ID, pid); err != nil {
		// PID file is advisory; the record keeps the authoritative PID.
		log.WithFunc("qemu.launch").Warnf(ctx, "write PID file for VM %s: %v", vm.ID, err)
	}
	return pid, nil
}

// terminate sends SIGTERM and waits up to the grace period for voluntary
// exit. A process that is already gone counts as success — an idempotent
// stop must not fail on a vanished process. There is no SIGKILL escalation
// here: that policy belongs to the caller.
func (e *Engine) terminate(ctx context.Context, pid int) error {
	if err := e.host.Signal(pid, syscall.SIGTERM); err != nil {
		if errors.Is(err, engine.ErrProcessGone) {
			return nil
		}
		return err
	}
	return utils.WaitFor(ctx, e.gracePeriod(), terminatePollInterval, func() (bool, error) {
		return !e.host.Alive(pid), nil
	})
}
