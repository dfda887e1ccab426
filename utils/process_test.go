package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPIDFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qemu.pid")
	if err := WritePIDFile(path, 4242); err != nil {
		t.Fatalf("WritePIDFile: %v", err)
	}
	pid, err := ReadPIDFile(path)
	if err != nil {
		t.Fatalf("ReadPIDFile: %v", err)
	}
	if pid != 4242 {
		t.Fatalf("pid = %d, want 4242", pid)
	}

	if _, err := ReadPIDFile(filepath.Join(t.TempDir(), "missing.pid")); err == nil {
		t.Fatal("expected error for missing PID file")
	}
}

func TestReadPIDFileGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pid")
	if err := os.WriteFile(path, []byte("not-a-pid\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadPIDFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestIsProcessAlive(t *testing.T) {
	if !IsProcessAlive(os.Getpid()) {
		t.Fatal("own process reported dead")
	}
	if IsProcessAlive(0) || IsProcessAlive(-1) {
		t.Fatal("non-positive PID reported alive")
	}
}
