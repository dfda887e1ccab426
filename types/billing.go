package types

import "time"

// CreditAccount is the single balance record for one owner.
// Balance is mutated only by the billing ledger, and never goes negative.
type CreditAccount struct {
	OwnerID string  `json:"owner_id"`
	Plan    string  `json:"plan"`
	Balance float64 `json:"balance"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Billing entry actions.
const (
	ActionVMUsage       = "vm_usage"       // session close at VM stop
	ActionRuntimeCharge = "runtime_charge" // periodic metering tick
	ActionRecharge      = "recharge"       // credit purchase
)

// RateDetail captures the rate breakdown behind a charge, so billing
// audits can reproduce the cost from the recorded inputs.
type RateDetail struct {
	CPU        int     `json:"cpu"`
	RAMGB      float64 `json:"ram_gb"`
	HourlyRate float64 `json:"hourly_rate"`
}

// BillingEntry is one immutable, append-only charge record.
type BillingEntry struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	VMID    string `json:"vm_id,omitempty"`
	DiskRef string `json:"disk_ref,omitempty"`
	Action  string `json:"action"`

	Cost           float64     `json:"cost"`
	RuntimeMinutes float64     `json:"runtime_minutes,omitempty"`
	Rate           *RateDetail `json:"rate,omitempty"`

	// Deduction metadata, recorded for runtime_charge entries.
	DeductionPeriod string  `json:"deduction_period,omitempty"`
	PreviousBalance float64 `json:"previous_balance,omitempty"`
	NewBalance      float64 `json:"new_balance,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// SessionResult reports the outcome of closing one VM session.
// When the owner's balance could not cover the full cost, Cost holds the
// clamped amount actually deducted, Undercharged is set, and Shortfall is
// the part that went unbilled. An undercharge is a flagged result, not an
// error: the runtime was already consumed.
type SessionResult struct {
	VMID           string  `json:"vm_id"`
	Cost           float64 `json:"cost"`
	RuntimeMinutes float64 `json:"runtime_minutes"`
	HourlyRate     float64 `json:"hourly_rate"`
	Undercharged   bool    `json:"undercharged"`
	Shortfall      float64 `json:"shortfall,omitempty"`
	NewBalance     float64 `json:"new_balance"`
}

// DeductResult reports a successful periodic metering deduction.
type DeductResult struct {
	Deducted        float64 `json:"deducted"`
	PreviousBalance float64 `json:"previous_balance"`
	NewBalance      float64 `json:"new_balance"`
}
