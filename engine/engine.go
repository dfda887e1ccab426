package engine

import (
	"context"
	"syscall"

	"github.com/Mostafa-Hesham1/VirtCloud/types"
)

// CreateSpec is the input for Engine.Create.
type CreateSpec struct {
	DiskRef  string
	ISORef   string
	MemoryMB int
	CPUCount int
	Display  types.DisplayMode
}

// StopResult reports the outcome of a stop. Session is nil when the stop was
// an idempotent no-op (VM already stopped) and no charge was made.
type StopResult struct {
	VM      *types.VirtualMachine `json:"vm"`
	Session *types.SessionResult  `json:"session,omitempty"`
}

// DeleteResult reports what a delete actually removed.
type DeleteResult struct {
	VMDeleted   bool   `json:"vm_deleted"`
	DiskDeleted bool   `json:"disk_deleted"`
	DiskRef     string `json:"disk_ref,omitempty"`
}

// Engine manages VM lifecycle, process supervision, and session billing.
// Every operation is scoped to the caller's owner ID: a VM owned by someone
// else is indistinguishable from a missing one (types.ErrNotFound).
type Engine interface {
	// Create validates the spec, launches the VM process, and persists a
	// running record. On launch failure nothing is persisted.
	Create(ctx context.Context, auth types.AuthContext, spec CreateSpec) (*types.VirtualMachine, error)
	// Start launches a stopped VM. An already-running VM returns the
	// current record together with types.ErrConflict.
	Start(ctx context.Context, auth types.AuthContext, vmID string, includeISO bool) (*types.VirtualMachine, error)
	// Stop terminates the process, closes the billing session, and marks
	// the VM stopped. Stopping a stopped VM is an idempotent no-op.
	Stop(ctx context.Context, auth types.AuthContext, vmID string) (*StopResult, error)
	// UpdateResources changes CPU/memory; the VM must be stopped.
	UpdateResources(ctx context.Context, auth types.AuthContext, vmID string, cpuCount, memoryMB int) (*types.VirtualMachine, error)
	// Delete removes the record, best-effort terminating a live process
	// first. When deleteDisk is set and no other VM of the owner still
	// references the disk, the disk file is removed too.
	Delete(ctx context.Context, auth types.AuthContext, vmID string, deleteDisk bool) (*DeleteResult, error)

	Inspect(ctx context.Context, auth types.AuthContext, vmID string) (*types.VirtualMachine, error)
	List(ctx context.Context, auth types.AuthContext) ([]*types.VirtualMachine, error)
	// Running lists running VMs across all owners, for the metering sweep.
	Running(ctx context.Context) ([]*types.VirtualMachine, error)

	// Reconcile rewrites DiskRef on every VM of the owner matching oldRef,
	// returning the count updated. Zero matches is not an error, and the
	// operation is idempotent so it can be re-run alone to repair a failed
	// rename reconciliation.
	Reconcile(ctx context.Context, auth types.AuthContext, oldRef, newRef string) (int, error)
}

// ProcessHost abstracts the OS-level process operations the engine needs.
// It is constructed once and injected, never a package-level singleton, so
// tests substitute a fake and the exec implementation owns no global state.
type ProcessHost interface {
	// Spawn starts argv detached from the engine process, with stdout and
	// stderr redirected to logPath. Returns the PID.
	Spawn(ctx context.Context, argv []string, logPath string) (int, error)
	// Signal sends sig to pid. A missing process is reported via
	// ErrProcessGone, which callers treat as an already-stopped observation.
	Signal(pid int, sig syscall.Signal) error
	// Alive reports whether pid currently exists.
	Alive(pid int) bool
}

// DiskBackend is the slice of the external disk-image backend the engine
// needs: reference resolution and deletion for the delete flow.
type DiskBackend interface {
	// Exists reports whether ref names a disk image in the store.
	Exists(ref string) bool
	// Path resolves ref to an absolute image path.
	Path(ref string) (string, error)
	// FormatFor derives the -drive format tag for ref.
	FormatFor(ref string) string
	// Delete removes the image file for ref.
	Delete(ref string) error
}
