package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultRates(t *testing.T) {
	conf := DefaultConfig()
	b := conf.Billing
	if b.BaseRate != 0.5 || b.CPURate != 0.2 || b.RAMRate != 0.1 {
		t.Fatalf("default rates = %+v", b)
	}
	if b.CreditsPerDollar != 2 || b.MinimumRecharge != 5 {
		t.Fatalf("default recharge policy = %+v", b)
	}
}

func TestLoadConfigMissingFileFallsBack(t *testing.T) {
	conf, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if conf.RootDir != DefaultConfig().RootDir {
		t.Fatalf("RootDir = %s", conf.RootDir)
	}
}

func TestLoadConfigOverridesAndNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.json")
	raw := `{"root_dir":"/tmp/vc","billing":{"base_rate":1.0},"stop_timeout_seconds":0}`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	conf, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if conf.RootDir != "/tmp/vc" {
		t.Fatalf("RootDir = %s", conf.RootDir)
	}
	if conf.Billing.BaseRate != 1.0 {
		t.Fatalf("BaseRate = %v", conf.Billing.BaseRate)
	}
	// Zero knobs snap back to defaults.
	if conf.StopTimeoutSeconds != 30 {
		t.Fatalf("StopTimeoutSeconds = %d, want 30", conf.StopTimeoutSeconds)
	}
	if conf.Billing.MinimumDeduction != 0.01 {
		t.Fatalf("MinimumDeduction = %v", conf.Billing.MinimumDeduction)
	}
}

func TestPathsLayout(t *testing.T) {
	conf := DefaultConfig()
	conf.RootDir = "/data"
	conf.RunDir = "/run/vc"
	conf.LogDir = "/log/vc"

	if got := conf.VMIndexFile(); got != "/data/engine/db/vms.json" {
		t.Fatalf("VMIndexFile = %s", got)
	}
	if got := conf.AccountsFile(); got != "/data/billing/db/accounts.json" {
		t.Fatalf("AccountsFile = %s", got)
	}
	if got := conf.DiskStoreDir(); got != "/data/store" {
		t.Fatalf("DiskStoreDir = %s", got)
	}
	if got := conf.VMPIDFile("abc"); got != "/run/vc/vm/abc/qemu.pid" {
		t.Fatalf("VMPIDFile = %s", got)
	}
	if got := conf.VMProcessLog("abc"); got != "/log/vc/vm/abc/qemu.log" {
		t.Fatalf("VMProcessLog = %s", got)
	}
}
