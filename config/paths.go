package config

import (
	"path/filepath"

	"github.com/Mostafa-Hesham1/VirtCloud/utils"
)

// EnsureEngineDirs creates the static directories used by the VM engine.
// Per-VM runtime and log directories are created on demand via EnsureVMDirs.
func (c *Config) EnsureEngineDirs() error {
	return utils.EnsureDirs(
		c.engineDBDir(),
		c.vmRunDir(),
		c.vmLogDir(),
		c.DiskStoreDir(),
	)
}

// EnsureBillingDirs creates the billing store directory.
func (c *Config) EnsureBillingDirs() error {
	return utils.EnsureDirs(c.billingDBDir())
}

// EnsureVMDirs creates per-VM runtime and log directories.
// Called when a VM is created or started.
func (c *Config) EnsureVMDirs(vmID string) error {
	return utils.EnsureDirs(
		c.VMRunDir(vmID),
		c.VMLogDir(vmID),
	)
}

func (c *Config) engineDBDir() string  { return filepath.Join(c.RootDir, "engine", "db") }
func (c *Config) billingDBDir() string { return filepath.Join(c.RootDir, "billing", "db") }
func (c *Config) vmRunDir() string     { return filepath.Join(c.RunDir, "vm") }
func (c *Config) vmLogDir() string     { return filepath.Join(c.LogDir, "vm") }

// VMIndexFile and VMIndexLock are the VM index store paths.
func (c *Config) VMIndexFile() string { return filepath.Join(c.engineDBDir(), "vms.json") }
func (c *Config) VMIndexLock() string { return filepath.Join(c.engineDBDir(), "vms.lock") }

// AccountsFile and AccountsLock are the credit account store paths.
// The accounts lock is the linearization point for balance deductions.
func (c *Config) AccountsFile() string { return filepath.Join(c.billingDBDir(), "accounts.json") }
func (c *Config) AccountsLock() string { return filepath.Join(c.billingDBDir(), "accounts.lock") }

// LedgerFile and LedgerLock are the append-only billing ledger store paths.
func (c *Config) LedgerFile() string { return filepath.Join(c.billingDBDir(), "ledger.json") }
func (c *Config) LedgerLock() string { return filepath.Join(c.billingDBDir(), "ledger.lock") }

// DiskStoreDir is where user disk images live, one flat directory as the
// disk backend expects.
func (c *Config) DiskStoreDir() string { return filepath.Join(c.RootDir, "store") }

// VMRunDir holds runtime files for one VM.
func (c *Config) VMRunDir(vmID string) string { return filepath.Join(c.vmRunDir(), vmID) }

// VMPIDFile is where the launched QEMU PID is recorded.
func (c *Config) VMPIDFile(vmID string) string {
	return filepath.Join(c.VMRunDir(vmID), "qemu.pid")
}

// VMLogDir holds log files for one VM.
func (c *Config) VMLogDir(vmID string) string { return filepath.Join(c.vmLogDir(), vmID) }

// VMProcessLog captures the QEMU process stdout/stderr.
func (c *Config) VMProcessLog(vmID string) string {
	return filepath.Join(c.VMLogDir(vmID), "qemu.log")
}
