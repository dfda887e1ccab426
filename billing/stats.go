package billing

import (
	"context"
	"time"

	"github.com/Mostafa-Hesham1/VirtCloud/types"
)

// VMStat summarizes one VM's accumulated and in-flight usage.
type VMStat struct {
	ID                  string  `json:"id"`
	State               string  `json:"state"`
	CPUCount            int     `json:"cpu_count"`
	RAMGB               float64 `json:"ram_gb"`
	TotalRuntimeMinutes float64 `json:"total_runtime_minutes"`

	// Current-session fields, present only while the VM is running.
	CurrentSessionMinutes float64 `json:"current_session_minutes,omitempty"`
	CurrentSessionCost    float64 `json:"current_session_cost,omitempty"`
	HourlyRate            float64 `json:"hourly_rate,omitempty"`
}

// RuntimeStats is the owner's usage report: per-VM stats, the projected
// cost of all open sessions, and recent ledger history.
type RuntimeStats struct {
	VMs              []VMStat              `json:"vms"`
	CurrentTotalCost float64               `json:"current_total_cost"`
	History          []*types.BillingEntry `json:"history"`
}

// Lister is the slice of the engine stats need.
type Lister interface {
	List(ctx context.Context, auth types.AuthContext) ([]*types.VirtualMachine, error)
}

// Stats builds the owner's runtime report. Costs are rounded at this edge
// only; the underlying accumulation stays unrounded.
func (l *Ledger) Stats(ctx context.Context, auth types.AuthContext, eng Lister) (*RuntimeStats, error) {
	vms, err := eng.List(ctx, auth)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	out := &RuntimeStats{}
	for _, vm := range vms {
		memGB := float64(vm.Spec.MemoryMB) / 1024
		stat := VMStat{
			ID:                  vm.ID,
			State:               string(vm.State),
			CPUCount:            vm.Spec.CPUCount,
			RAMGB:               memGB,
			TotalRuntimeMinutes: vm.TotalRuntimeMinutes,
		}
		if vm.Running() && vm.StartedAt != nil {
			minutes := now.Sub(*vm.StartedAt).Seconds() / 60
			cost := l.rates.SessionCost(vm.Spec.CPUCount, memGB, minutes)
			stat.CurrentSessionMinutes = minutes
			stat.CurrentSessionCost = RoundCredits(cost)
			stat.HourlyRate = RoundCredits(l.rates.Hourly(vm.Spec.CPUCount, memGB))
			out.CurrentTotalCost += cost
		}
		out.VMs = append(out.VMs, stat)
	}
	out.CurrentTotalCost = RoundCredits(out.CurrentTotalCost)

	history, err := l.History(ctx, auth, defaultHistoryLimit)
	if err != nil {
		return nil, err
	}
	out.History = history
	return out, nil
}
