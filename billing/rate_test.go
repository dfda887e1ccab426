package billing

import (
	"math"
	"testing"

	"github.com/Mostafa-Hesham1/VirtCloud/config"
)

func defaultRates() Rates {
	return RatesFromConfig(config.DefaultConfig().Billing)
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestHourlyRate(t *testing.T) {
	r := defaultRates()

	// base 0.5 + 2 CPUs * 0.2 + 2 GB * 0.1
	if got := r.Hourly(2, 2); !almostEqual(got, 1.1) {
		t.Fatalf("Hourly(2, 2) = %v, want 1.1", got)
	}
	if got := r.Hourly(1, 0.5); !almostEqual(got, 0.75) {
		t.Fatalf("Hourly(1, 0.5) = %v, want 0.75", got)
	}
}

func TestSessionCost(t *testing.T) {
	r := defaultRates()

	// 1.1 credits/hour for 30 minutes.
	if got := r.SessionCost(2, 2, 30); !almostEqual(got, 0.55) {
		t.Fatalf("SessionCost(2, 2, 30) = %v, want 0.55", got)
	}
	if got := r.SessionCost(2, 2, 0); !almostEqual(got, 0) {
		t.Fatalf("SessionCost(2, 2, 0) = %v, want 0", got)
	}
	// A full hour prices exactly at the hourly rate.
	if got := r.SessionCost(4, 8, 60); !almostEqual(got, r.Hourly(4, 8)) {
		t.Fatalf("SessionCost(4, 8, 60) = %v, want %v", got, r.Hourly(4, 8))
	}
}

func TestRoundCredits(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0.549999, 0.55},
		{0.554, 0.55},
		{0.555, 0.56},
		{0, 0},
		{1.1/60*10 + 1e-12, 0.18},
	}
	for _, c := range cases {
		if got := RoundCredits(c.in); !almostEqual(got, c.want) {
			t.Errorf("RoundCredits(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
