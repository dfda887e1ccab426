// Package plans holds the static subscription plan catalog and the resource
// ceilings it imposes on VM creation. The catalog is policy data, not
// mechanism: unknown plan IDs degrade to the free plan.
package plans

import (
	"fmt"

	"github.com/Mostafa-Hesham1/VirtCloud/types"
)

// Plan describes one subscription tier.
type Plan struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	PriceMonthly   float64  `json:"price_monthly"`
	CreditsMonthly int      `json:"credits_monthly"`
	MaxVMRuntime   int      `json:"max_vm_runtime,omitempty"` // hours per session, 0 = unlimited
	MaxCPU         int      `json:"max_cpu"`
	MaxRAMGB       int      `json:"max_ram_gb"`
	MaxDiskGB      int      `json:"max_disk_gb"`
	Features       []string `json:"features"`
}

var catalog = []Plan{
	{
		ID: "free", Name: "Free Plan",
		PriceMonthly: 0, CreditsMonthly: 15,
		MaxVMRuntime: 4, MaxCPU: 2, MaxRAMGB: 2, MaxDiskGB: 20,
		Features: []string{
			"Max runtime per VM: 4 hours",
			"Up to 2 CPUs",
			"Up to 2GB RAM",
			"Up to 20GB Disk",
			"Community support",
		},
	},
	{
		ID: "pro", Name: "Pro Plan",
		PriceMonthly: 9, CreditsMonthly: 150,
		MaxCPU: 4, MaxRAMGB: 8, MaxDiskGB: 50,
		Features: []string{
			"Unlimited VM session length",
			"Up to 4 CPUs",
			"Up to 8GB RAM",
			"Up to 50GB Disk",
			"Email support",
		},
	},
	{
		ID: "unlimited", Name: "Unlimited Plan",
		PriceMonthly: 29, CreditsMonthly: 600,
		MaxCPU: 8, MaxRAMGB: 16, MaxDiskGB: 200,
		Features: []string{
			"All Pro features",
			"Up to 8 CPUs",
			"Up to 16GB RAM",
			"Up to 200GB Disk",
			"Persistent VMs",
			"Priority support",
		},
	},
	{
		ID: "payg", Name: "Pay-as-you-Go",
		PriceMonthly: 0, CreditsMonthly: 0,
		MaxCPU: 8, MaxRAMGB: 16, MaxDiskGB: 200,
		Features: []string{
			"No monthly credits",
			"Pay only for what you use",
			"Recharge anytime",
			"All resource limits same as Unlimited plan",
		},
	},
}

// Catalog returns all available plans.
func Catalog() []Plan { return catalog }

// Get returns the plan with the given ID, falling back to the free plan for
// unknown IDs so a stale or missing plan never blocks an operation.
func Get(id string) Plan {
	for _, p := range catalog {
		if p.ID == id {
			return p
		}
	}
	return catalog[0]
}

// Known reports whether id names a plan in the catalog.
func Known(id string) bool {
	for _, p := range catalog {
		if p.ID == id {
			return true
		}
	}
	return false
}

// CheckVMLimits validates a VM resource request against the plan's ceilings.
func CheckVMLimits(planID string, cpuCount, memoryMB int) error {
	p := Get(planID)
	if cpuCount > p.MaxCPU {
		return fmt.Errorf("plan %s allows at most %d CPUs, requested %d: %w",
			p.ID, p.MaxCPU, cpuCount, types.ErrInvalidArgument)
	}
	if memoryMB > p.MaxRAMGB*1024 {
		return fmt.Errorf("plan %s allows at most %dGB RAM, requested %dMB: %w",
			p.ID, p.MaxRAMGB, memoryMB, types.ErrInvalidArgument)
	}
	return nil
}
