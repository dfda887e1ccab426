package types

import "time"

// VMState represents the lifecycle state of a VM as recorded by the engine.
type VMState string

const (
	VMStateCreated VMState = "created" // record persisted, process not yet launched
	VMStateRunning VMState = "running" // QEMU process alive, session open
	VMStateStopped VMState = "stopped" // process exited, session closed and billed
)

// DisplayMode selects the QEMU display backend for a VM.
type DisplayMode string

const (
	DisplayNone DisplayMode = "none" // headless
	DisplaySDL  DisplayMode = "sdl"
	DisplayGTK  DisplayMode = "gtk"
)

// VMSpec describes the resources requested for a VM.
type VMSpec struct {
	DiskRef  string      `json:"disk_ref"`          // disk image filename in the store
	ISORef   string      `json:"iso_ref,omitempty"` // optional ISO path for installer boot
	MemoryMB int         `json:"memory_mb"`
	CPUCount int         `json:"cpu_count"`
	Display  DisplayMode `json:"display"`
}

// VirtualMachine is the persisted record for one VM instance.
//
// PID is populated only while State == VMStateRunning; a stop or delete
// always zeroes it in the same store update that changes State, so the
// two fields can never disagree in a persisted record.
type VirtualMachine struct {
	ID      string  `json:"id"`
	OwnerID string  `json:"owner_id"`
	Spec    VMSpec  `json:"spec"`
	State   VMState `json:"state"`

	PID         int  `json:"pid,omitempty"`
	ISOIncluded bool `json:"iso_included,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`

	// TotalRuntimeMinutes accumulates session runtime on every
	// running→stopped transition. It never decreases.
	TotalRuntimeMinutes float64 `json:"total_runtime_minutes"`
}

// Running reports whether the record says the VM is running.
func (vm *VirtualMachine) Running() bool { return vm.State == VMStateRunning }
