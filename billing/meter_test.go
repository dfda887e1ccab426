package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/Mostafa-Hesham1/VirtCloud/types"
)

type staticLister struct {
	vms []*types.VirtualMachine
}

func (s staticLister) Running(context.Context) ([]*types.VirtualMachine, error) {
	return s.vms, nil
}

func runningVM(id, owner string, cpu, memMB int) *types.VirtualMachine {
	return &types.VirtualMachine{
		ID:      id,
		OwnerID: owner,
		State:   types.VMStateRunning,
		Spec:    types.VMSpec{DiskRef: "disk.qcow2", CPUCount: cpu, MemoryMB: memMB},
	}
}

func TestSweepChargesRunningVMs(t *testing.T) {
	conf := testConf(t)
	conf.MeterIntervalSeconds = 60
	l, err := NewLedger(conf)
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	ctx := context.Background()

	// Seed the account so the sweep has a balance to draw on.
	if _, err := l.Balance(ctx, types.AuthContext{OwnerID: "alice", Plan: "free"}); err != nil {
		t.Fatalf("Balance: %v", err)
	}

	eng := staticLister{vms: []*types.VirtualMachine{
		runningVM("vm-1", "alice", 2, 2048),
		runningVM("vm-2", "alice", 1, 1024),
	}}
	m, err := NewMeter(conf, eng, l)
	if err != nil {
		t.Fatalf("NewMeter: %v", err)
	}
	defer m.Release()

	results, err := m.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("tick %s failed: %v", r.VMID, r.Err)
		}
		if r.Amount <= 0 {
			t.Fatalf("tick %s amount = %v, want > 0", r.VMID, r.Amount)
		}
	}

	// Two runtime_charge entries, nothing more.
	entries, err := l.History(ctx, types.AuthContext{OwnerID: "alice"}, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	for _, e := range entries {
		if e.Action != types.ActionRuntimeCharge {
			t.Fatalf("entry action = %s, want %s", e.Action, types.ActionRuntimeCharge)
		}
	}
}

func TestSweepReportsInsufficientBalance(t *testing.T) {
	conf := testConf(t)
	conf.MeterIntervalSeconds = 60
	l, err := NewLedger(conf)
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	ctx := context.Background()

	// payg starts at zero credits; drain is impossible, the tick must fail.
	if _, err := l.Balance(ctx, types.AuthContext{OwnerID: "broke", Plan: "payg"}); err != nil {
		t.Fatalf("Balance: %v", err)
	}

	eng := staticLister{vms: []*types.VirtualMachine{runningVM("vm-1", "broke", 2, 2048)}}
	m, err := NewMeter(conf, eng, l)
	if err != nil {
		t.Fatalf("NewMeter: %v", err)
	}
	defer m.Release()

	results, err := m.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if !errors.Is(results[0].Err, types.ErrConflict) {
		t.Fatalf("tick err = %v, want ErrConflict", results[0].Err)
	}

	// Failed ticks never write ledger entries.
	entries, err := l.History(ctx, types.AuthContext{OwnerID: "broke"}, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("got %d entries, want 0", len(entries))
	}
}

func TestSweepNoRunningVMs(t *testing.T) {
	conf := testConf(t)
	l, err := NewLedger(conf)
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	m, err := NewMeter(conf, staticLister{}, l)
	if err != nil {
		t.Fatalf("NewMeter: %v", err)
	}
	defer m.Release()

	results, err := m.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("got %d results, want 0", len(results))
	}
}
