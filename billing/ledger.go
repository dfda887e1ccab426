package billing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/projecteru2/core/log"

	"github.com/Mostafa-Hesham1/VirtCloud/config"
	"github.com/Mostafa-Hesham1/VirtCloud/plans"
	"github.com/Mostafa-Hesham1/VirtCloud/storage"
	storejson "github.com/Mostafa-Hesham1/VirtCloud/storage/json"
	"github.com/Mostafa-Hesham1/VirtCloud/types"
)

const defaultHistoryLimit = 100

// Ledger owns all credit balance mutation. Everything else reads balances;
// only Ledger methods write them, always through the accounts store's
// locked read-modify-write so a check-then-act race cannot overdraw.
type Ledger struct {
	conf     *config.Config
	rates    Rates
	accounts storage.Store[AccountIndex]
	entries  storage.Store[LedgerIndex]
}

// NewLedger creates a Ledger over the configured stores.
func NewLedger(conf *config.Config) (*Ledger, error) {
	if err := conf.EnsureBillingDirs(); err != nil {
		return nil, fmt.Errorf("ensure billing dirs: %w", err)
	}
	return &Ledger{
		conf:     conf,
		rates:    RatesFromConfig(conf.Billing),
		accounts: storejson.New[AccountIndex](conf.AccountsFile(), conf.AccountsLock()),
		entries:  storejson.New[LedgerIndex](conf.LedgerFile(), conf.LedgerLock()),
	}, nil
}

// Rates returns the ledger's pricing policy.
func (l *Ledger) Rates() Rates { return l.rates }

// CloseSession charges the owner for one finished VM session.
//
// The deduction is conditional on sufficient balance at the moment of the
// update; when the balance falls short the charge is clamped to whatever is
// available (the runtime already happened and cannot be reversed) and the
// result is flagged Undercharged with the shortfall. Either way exactly one
// ledger entry is appended, recording the amount actually deducted.
func (l *Ledger) CloseSession(ctx context.Context, auth types.AuthContext, vm *types.VirtualMachine, elapsedMinutes float64) (*types.SessionResult, error) {
	logger := log.WithFunc("billing.CloseSession")

	memGB := float64(vm.Spec.MemoryMB) / 1024
	rate := l.rates.Hourly(vm.Spec.CPUCount, memGB)
	cost := RoundCredits(l.rates.SessionCost(vm.Spec.CPUCount, memGB, elapsedMinutes))

	now := time.Now()
	result := &types.SessionResult{
		VMID:           vm.ID,
		RuntimeMinutes: elapsedMinutes,
		HourlyRate:     rate,
	}

	if err := l.accounts.Update(ctx, func(idx *AccountIndex) error {
		acct := idx.ensure(auth, now)
		charged := cost
		if acct.Balance < cost {
			charged = RoundCredits(acct.Balance)
			result.Undercharged = true
			result.Shortfall = RoundCredits(cost - charged)
		}
		acct.Balance = RoundCredits(acct.Balance - charged)
		acct.UpdatedAt = now
		result.Cost = charged
		result.NewBalance = acct.Balance
		return nil
	}); err != nil {
		return nil, fmt.Errorf("deduct session cost: %w", err)
	}

	if result.Undercharged {
		logger.Warnf(ctx, "owner %s undercharged for VM %s: wanted %.2f, got %.2f (short %.2f)",
			auth.OwnerID, vm.ID, cost, result.Cost, result.Shortfall)
	}

	entry := &types.BillingEntry{
		ID:             uuid.NewString(),
		OwnerID:        auth.OwnerID,
		VMID:           vm.ID,
		DiskRef:        vm.Spec.DiskRef,
		Action:         types.ActionVMUsage,
		Cost:           result.Cost,
		RuntimeMinutes: elapsedMinutes,
		Rate: &types.RateDetail{
			CPU:        vm.Spec.CPUCount,
			RAMGB:      memGB,
			HourlyRate: rate,
		},
		Timestamp: now,
	}
	if err := l.append(ctx, entry); err != nil {
		return nil, err
	}
	return result, nil
}

// Deduct is the periodic metering entry point, used while a VM is still
// running. Unlike CloseSession it is strictly conditional: an insufficient
// balance fails the deduction (wrapped types.ErrConflict) instead of
// clamping, because the tick can simply be surfaced and acted on while the
// VM keeps its state.
func (l *Ledger) Deduct(ctx context.Context, auth types.AuthContext, vmID string, amount float64, period string) (*types.DeductResult, error) {
	if amount < l.conf.Billing.MinimumDeduction {
		amount = l.conf.Billing.MinimumDeduction
	}
	amount = RoundCredits(amount)

	now := time.Now()
	result := &types.DeductResult{}
	if err := l.accounts.Update(ctx, func(idx *AccountIndex) error {
		acct := idx.ensure(auth, now)
		if acct.Balance < amount {
			return fmt.Errorf("insufficient credits: balance %.2f, required %.2f: %w",
				acct.Balance, amount, types.ErrConflict)
		}
		result.PreviousBalance = acct.Balance
		acct.Balance = RoundCredits(acct.Balance - amount)
		acct.UpdatedAt = now
		result.Deducted = amount
		result.NewBalance = acct.Balance
		return nil
	}); err != nil {
		return nil, err
	}

	entry := &types.BillingEntry{
		ID:              uuid.NewString(),
		OwnerID:         auth.OwnerID,
		VMID:            vmID,
		Action:          types.ActionRuntimeCharge,
		Cost:            amount,
		DeductionPeriod: period,
		PreviousBalance: result.PreviousBalance,
		NewBalance:      result.NewBalance,
		Timestamp:       now,
	}
	if err := l.append(ctx, entry); err != nil {
		return nil, err
	}
	return result, nil
}

// Recharge converts a dollar payment into credits.
func (l *Ledger) Recharge(ctx context.Context, auth types.AuthContext, dollars float64) (*types.DeductResult, error) {
	if dollars < l.conf.Billing.MinimumRecharge {
		return nil, fmt.Errorf("minimum recharge amount is $%.0f: %w",
			l.conf.Billing.MinimumRecharge, types.ErrInvalidArgument)
	}
	credits := float64(int(dollars * l.conf.Billing.CreditsPerDollar))

	now := time.Now()
	result := &types.DeductResult{}
	if err := l.accounts.Update(ctx, func(idx *AccountIndex) error {
		acct := idx.ensure(auth, now)
		result.PreviousBalance = acct.Balance
		acct.Balance = RoundCredits(acct.Balance + credits)
		acct.UpdatedAt = now
		result.Deducted = credits
		result.NewBalance = acct.Balance
		return nil
	}); err != nil {
		return nil, fmt.Errorf("add credits: %w", err)
	}

	entry := &types.BillingEntry{
		ID:              uuid.NewString(),
		OwnerID:         auth.OwnerID,
		Action:          types.ActionRecharge,
		Cost:            credits,
		PreviousBalance: result.PreviousBalance,
		NewBalance:      result.NewBalance,
		Timestamp:       now,
	}
	if err := l.append(ctx, entry); err != nil {
		return nil, err
	}
	return result, nil
}

// Balance returns the owner's current balance, creating the account with
// its plan grant if this is the first touch.
func (l *Ledger) Balance(ctx context.Context, auth types.AuthContext) (float64, error) {
	var balance float64
	err := l.accounts.Update(ctx, func(idx *AccountIndex) error {
		balance = idx.ensure(auth, time.Now()).Balance
		return nil
	})
	return balance, err
}

// SetPlan changes the owner's plan. The plan ID must exist in the catalog.
func (l *Ledger) SetPlan(ctx context.Context, auth types.AuthContext, planID string) error {
	if !plans.Known(planID) {
		return fmt.Errorf("plan %q: %w", planID, types.ErrNotFound)
	}
	now := time.Now()
	return l.accounts.Update(ctx, func(idx *AccountIndex) error {
		acct := idx.ensure(auth, now)
		acct.Plan = planID
		acct.UpdatedAt = now
		return nil
	})
}

// History returns the owner's ledger entries, newest first.
func (l *Ledger) History(ctx context.Context, auth types.AuthContext, limit int) ([]*types.BillingEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	var out []*types.BillingEntry
	if err := l.entries.With(ctx, func(idx *LedgerIndex) error {
		for _, e := range idx.Entries {
			if e.OwnerID == auth.OwnerID {
				copied := *e
				out = append(out, &copied)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *Ledger) append(ctx context.Context, entry *types.BillingEntry) error {
	if err := l.entries.Update(ctx, func(idx *LedgerIndex) error {
		idx.Entries = append(idx.Entries, entry)
		return nil
	}); err != nil {
		return fmt.Errorf("append billing entry: %w", err)
	}
	return nil
}
