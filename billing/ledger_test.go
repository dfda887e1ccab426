package billing

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Mostafa-Hesham1/VirtCloud/config"
	"github.com/Mostafa-Hesham1/VirtCloud/types"
)

func testConf(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	conf := config.DefaultConfig()
	conf.RootDir = filepath.Join(base, "data")
	conf.RunDir = filepath.Join(base, "run")
	conf.LogDir = filepath.Join(base, "log")
	return conf
}

func testLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := NewLedger(testConf(t))
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	return l
}

func testVM(cpu, memMB int) *types.VirtualMachine {
	return &types.VirtualMachine{
		ID: "vm-test",
		Spec: types.VMSpec{
			DiskRef:  "disk.qcow2",
			CPUCount: cpu,
			MemoryMB: memMB,
		},
	}
}

func TestAccountCreatedWithPlanGrant(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()

	balance, err := l.Balance(ctx, types.AuthContext{OwnerID: "alice", Plan: "free"})
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 15 {
		t.Fatalf("free plan first touch balance = %v, want 15", balance)
	}

	balance, err = l.Balance(ctx, types.AuthContext{OwnerID: "bob", Plan: "payg"})
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("payg first touch balance = %v, want 0", balance)
	}
}

func TestCloseSessionCharges(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()
	auth := types.AuthContext{OwnerID: "alice", Plan: "free"}

	// 2 CPU + 2 GB = 1.1 credits/hour; 30 minutes costs 0.55.
	res, err := l.CloseSession(ctx, auth, testVM(2, 2048), 30)
	if err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if res.Cost != 0.55 {
		t.Fatalf("Cost = %v, want 0.55", res.Cost)
	}
	if res.Undercharged {
		t.Fatal("unexpected undercharge")
	}
	if res.NewBalance != 14.45 {
		t.Fatalf("NewBalance = %v, want 14.45", res.NewBalance)
	}

	entries, err := l.History(ctx, auth, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Action != types.ActionVMUsage || e.Cost != 0.55 || e.VMID != "vm-test" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.Rate == nil || e.Rate.HourlyRate != 1.1 || e.Rate.CPU != 2 {
		t.Fatalf("unexpected rate detail: %+v", e.Rate)
	}
}

func TestCloseSessionClampsUndercharge(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()
	auth := types.AuthContext{OwnerID: "alice", Plan: "free"}

	// Shave the balance down to 0.30.
	if _, err := l.Deduct(ctx, auth, "vm-test", 14.70, "manual"); err != nil {
		t.Fatalf("Deduct: %v", err)
	}

	res, err := l.CloseSession(ctx, auth, testVM(2, 2048), 30)
	if err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if !res.Undercharged {
		t.Fatal("expected undercharge")
	}
	if res.Cost != 0.30 {
		t.Fatalf("clamped Cost = %v, want 0.30", res.Cost)
	}
	if res.Shortfall != 0.25 {
		t.Fatalf("Shortfall = %v, want 0.25", res.Shortfall)
	}
	if res.NewBalance != 0 {
		t.Fatalf("NewBalance = %v, want 0", res.NewBalance)
	}

	// The ledger records what was actually deducted, not what was owed.
	entries, err := l.History(ctx, auth, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if entries[0].Cost != 0.30 {
		t.Fatalf("entry Cost = %v, want 0.30", entries[0].Cost)
	}
}

func TestDeductInsufficientFails(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()
	auth := types.AuthContext{OwnerID: "bob", Plan: "payg"}

	_, err := l.Deduct(ctx, auth, "vm-test", 1.00, "minute")
	if !errors.Is(err, types.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	// No balance change, no ledger entry.
	balance, err := l.Balance(ctx, auth)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("balance = %v, want 0", balance)
	}
	entries, err := l.History(ctx, auth, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("got %d entries, want 0", len(entries))
	}
}

func TestDeductMinimumFloor(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()
	auth := types.AuthContext{OwnerID: "alice", Plan: "free"}

	res, err := l.Deduct(ctx, auth, "vm-test", 0.001, "second")
	if err != nil {
		t.Fatalf("Deduct: %v", err)
	}
	if res.Deducted != 0.01 {
		t.Fatalf("Deducted = %v, want 0.01 floor", res.Deducted)
	}
}

func TestConcurrentDeductExactlyOnce(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()
	auth := types.AuthContext{OwnerID: "alice", Plan: "free"}

	// Two racing deductions of the full balance: exactly one may win.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = l.Deduct(ctx, auth, "vm-test", 15, "manual")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else if !errors.Is(err, types.ErrConflict) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("got %d winning deductions, want exactly 1", wins)
	}

	balance, err := l.Balance(ctx, auth)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("balance = %v, want 0", balance)
	}
}

func TestRecharge(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()
	auth := types.AuthContext{OwnerID: "bob", Plan: "payg"}

	if _, err := l.Recharge(ctx, auth, 4.99); !errors.Is(err, types.ErrInvalidArgument) {
		t.Fatalf("recharge below minimum: err = %v, want ErrInvalidArgument", err)
	}

	res, err := l.Recharge(ctx, auth, 5)
	if err != nil {
		t.Fatalf("Recharge: %v", err)
	}
	if res.Deducted != 10 {
		t.Fatalf("credits = %v, want 10 ($1 = 2 credits)", res.Deducted)
	}
	if res.NewBalance != 10 {
		t.Fatalf("NewBalance = %v, want 10", res.NewBalance)
	}
}

func TestHistoryNewestFirstAndScoped(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()
	alice := types.AuthContext{OwnerID: "alice", Plan: "free"}
	bob := types.AuthContext{OwnerID: "bob", Plan: "free"}

	if _, err := l.Deduct(ctx, alice, "vm-1", 1, "manual"); err != nil {
		t.Fatalf("Deduct: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := l.Deduct(ctx, alice, "vm-2", 2, "manual"); err != nil {
		t.Fatalf("Deduct: %v", err)
	}
	if _, err := l.Deduct(ctx, bob, "vm-3", 3, "manual"); err != nil {
		t.Fatalf("Deduct: %v", err)
	}

	entries, err := l.History(ctx, alice, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries for alice, want 2", len(entries))
	}
	if entries[0].VMID != "vm-2" || entries[1].VMID != "vm-1" {
		t.Fatalf("history not newest first: %s, %s", entries[0].VMID, entries[1].VMID)
	}

	limited, err := l.History(ctx, alice, 1)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(limited) != 1 || limited[0].VMID != "vm-2" {
		t.Fatalf("limit 1: got %d entries", len(limited))
	}
}

func TestSetPlan(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()
	auth := types.AuthContext{OwnerID: "alice", Plan: "free"}

	if err := l.SetPlan(ctx, auth, "nope"); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("unknown plan: err = %v, want ErrNotFound", err)
	}
	if err := l.SetPlan(ctx, auth, "pro"); err != nil {
		t.Fatalf("SetPlan: %v", err)
	}

	// Switching plans never touches the balance.
	balance, err := l.Balance(ctx, auth)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if math.Abs(balance-15) > 1e-9 {
		t.Fatalf("balance after plan switch = %v, want 15", balance)
	}
}
