package billing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/projecteru2/core/log"

	"github.com/Mostafa-Hesham1/VirtCloud/config"
	"github.com/Mostafa-Hesham1/VirtCloud/types"
)

// RunningLister is the slice of the engine the metering sweep needs.
type RunningLister interface {
	Running(ctx context.Context) ([]*types.VirtualMachine, error)
}

// TickResult is the outcome of one per-VM metering tick.
type TickResult struct {
	VMID    string  `json:"vm_id"`
	OwnerID string  `json:"owner_id"`
	Amount  float64 `json:"amount"`
	// Err is non-nil when the deduction failed, typically on insufficient
	// balance. Failed ticks are reported, never retried.
	Err error `json:"-"`
}

// Meter charges running VMs incrementally so a long session does not wait
// for stop time to be billed. Each sweep prices one interval of runtime per
// running VM and deducts it through the ledger's conditional primitive.
type Meter struct {
	conf     *config.Config
	eng      RunningLister
	ledger   *Ledger
	interval time.Duration
	pool     *ants.Pool
}

// NewMeter creates a Meter with its own goroutine pool.
func NewMeter(conf *config.Config, eng RunningLister, ledger *Ledger) (*Meter, error) {
	pool, err := ants.NewPool(conf.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("create metering pool: %w", err)
	}
	return &Meter{
		conf:     conf,
		eng:      eng,
		ledger:   ledger,
		interval: time.Duration(conf.MeterIntervalSeconds) * time.Second,
		pool:     pool,
	}, nil
}

// Interval returns the sweep period.
func (m *Meter) Interval() time.Duration { return m.interval }

// Release returns the pool's goroutines.
func (m *Meter) Release() { m.pool.Release() }

// Sweep runs one metering pass: every running VM is charged for one
// interval of runtime, fanned out on the pool. Per-VM failures do not stop
// the sweep; they come back flagged in the results.
func (m *Meter) Sweep(ctx context.Context) ([]TickResult, error) {
	logger := log.WithFunc("billing.Sweep")

	vms, err := m.eng.Running(ctx)
	if err != nil {
		return nil, fmt.Errorf("list running VMs: %w", err)
	}
	if len(vms) == 0 {
		return nil, nil
	}

	results := make([]TickResult, len(vms))
	var wg sync.WaitGroup
	for i, vm := range vms {
		wg.Add(1)
		if err := m.pool.Submit(func() {
			defer wg.Done()
			results[i] = m.tick(ctx, vm)
		}); err != nil {
			// Pool refused the task (released or overloaded); run inline.
			results[i] = m.tick(ctx, vm)
			wg.Done()
		}
	}
	wg.Wait()

	for _, r := range results {
		if r.Err != nil {
			logger.Warnf(ctx, "metering tick VM %s (owner %s): %v", r.VMID, r.OwnerID, r.Err)
		}
	}
	return results, nil
}

// Loop runs sweeps at the configured interval until ctx is done.
func (m *Meter) Loop(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil {
				log.WithFunc("billing.Loop").Warnf(ctx, "metering sweep failed: %v", err)
			}
		}
	}
}

func (m *Meter) tick(ctx context.Context, vm *types.VirtualMachine) TickResult {
	memGB := float64(vm.Spec.MemoryMB) / 1024
	amount := m.ledger.Rates().SessionCost(vm.Spec.CPUCount, memGB, m.interval.Minutes())
	res := TickResult{VMID: vm.ID, OwnerID: vm.OwnerID, Amount: RoundCredits(amount)}

	auth := types.AuthContext{OwnerID: vm.OwnerID}
	if _, err := m.ledger.Deduct(ctx, auth, vm.ID, amount, periodName(m.interval)); err != nil {
		res.Err = err
	}
	return res
}

func periodName(interval time.Duration) string {
	switch {
	case interval < time.Minute:
		return "second"
	case interval < time.Hour:
		return "minute"
	default:
		return "hour"
	}
}
