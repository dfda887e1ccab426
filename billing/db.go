package billing

import (
	"time"

	"github.com/Mostafa-Hesham1/VirtCloud/plans"
	"github.com/Mostafa-Hesham1/VirtCloud/types"
)

// AccountIndex is the top-level document of the credit account store.
// Its store lock is the sole place concurrent deductions against one
// balance are ordered.
type AccountIndex struct {
	Accounts map[string]*types.CreditAccount `json:"accounts"`
}

// Init implements storage.Initer.
func (idx *AccountIndex) Init() {
	if idx.Accounts == nil {
		idx.Accounts = make(map[string]*types.CreditAccount)
	}
}

// ensure returns the account for the owner, creating it with the plan's
// monthly credit grant on first touch.
func (idx *AccountIndex) ensure(auth types.AuthContext, now time.Time) *types.CreditAccount {
	if acct := idx.Accounts[auth.OwnerID]; acct != nil {
		return acct
	}
	acct := &types.CreditAccount{
		OwnerID:   auth.OwnerID,
		Plan:      plans.Get(auth.Plan).ID,
		Balance:   float64(plans.Get(auth.Plan).CreditsMonthly),
		CreatedAt: now,
		UpdatedAt: now,
	}
	idx.Accounts[auth.OwnerID] = acct
	return acct
}

// LedgerIndex is the top-level document of the billing ledger store.
// Entries are append-only: nothing in the engine mutates or deletes them.
type LedgerIndex struct {
	Entries []*types.BillingEntry `json:"entries"`
}

// Init implements storage.Initer.
func (idx *LedgerIndex) Init() {
	if idx.Entries == nil {
		idx.Entries = []*types.BillingEntry{}
	}
}
