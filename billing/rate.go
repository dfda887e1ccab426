// Package billing converts VM runtime into credit charges: a pure rate
// model, an append-only ledger, atomic conditional balance deductions, and
// the periodic metering sweep.
package billing

import (
	"math"

	"github.com/Mostafa-Hesham1/VirtCloud/config"
)

// Rates holds the hourly rate components. A Rates value is immutable after
// construction so identical inputs always price identically, which billing
// audits rely on.
type Rates struct {
	Base float64 // credits/hour, flat
	CPU  float64 // credits/hour per vCPU
	RAM  float64 // credits/hour per GB
}

// RatesFromConfig builds Rates from the configured policy.
func RatesFromConfig(bc config.BillingConfig) Rates {
	return Rates{Base: bc.BaseRate, CPU: bc.CPURate, RAM: bc.RAMRate}
}

// Hourly returns the credit rate for a VM shape.
func (r Rates) Hourly(cpuCount int, memGB float64) float64 {
	return r.Base + float64(cpuCount)*r.CPU + memGB*r.RAM
}

// SessionCost prices elapsed runtime at the hourly rate for the shape,
// unrounded. Rounding happens only at the persistence edge (RoundCredits)
// so repeated partial charges don't compound rounding error.
func (r Rates) SessionCost(cpuCount int, memGB, elapsedMinutes float64) float64 {
	return r.Hourly(cpuCount, memGB) * (elapsedMinutes / 60)
}

// RoundCredits rounds to the ledger's minimum currency unit (0.01 credits).
func RoundCredits(v float64) float64 {
	return math.Round(v*100) / 100 //nolint:mnd
}
