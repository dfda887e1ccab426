package disks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Mostafa-Hesham1/VirtCloud/config"
	"github.com/Mostafa-Hesham1/VirtCloud/types"
)

func testBackend(t *testing.T) (*Backend, *config.Config) {
	t.Helper()
	conf := config.DefaultConfig()
	conf.RootDir = t.TempDir()
	return New(conf), conf
}

func seedDisk(t *testing.T, conf *config.Config, ref string) {
	t.Helper()
	if err := os.MkdirAll(conf.DiskStoreDir(), 0o750); err != nil {
		t.Fatalf("mkdir store: %v", err)
	}
	if err := os.WriteFile(filepath.Join(conf.DiskStoreDir(), ref), []byte("img"), 0o600); err != nil {
		t.Fatalf("seed disk: %v", err)
	}
}

func TestValidateRef(t *testing.T) {
	valid := []string{"disk.qcow2", "my-disk_1.raw", "plain"}
	for _, name := range valid {
		if err := ValidateRef(name); err != nil {
			t.Errorf("ValidateRef(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", "a/b.qcow2", `a\b.qcow2`, "../escape.qcow2", ".hidden"}
	for _, name := range invalid {
		if err := ValidateRef(name); !errors.Is(err, types.ErrInvalidArgument) {
			t.Errorf("ValidateRef(%q) = %v, want ErrInvalidArgument", name, err)
		}
	}
}

func TestValidateFormat(t *testing.T) {
	for _, f := range []string{"qcow2", "raw", "vmdk", "vhdx", "vdi"} {
		if err := ValidateFormat(f); err != nil {
			t.Errorf("ValidateFormat(%q) = %v", f, err)
		}
	}
	if err := ValidateFormat("iso"); !errors.Is(err, types.ErrInvalidArgument) {
		t.Errorf("ValidateFormat(iso) = %v, want ErrInvalidArgument", err)
	}
}

func TestFormatFor(t *testing.T) {
	b, _ := testBackend(t)
	if got := b.FormatFor("disk.qcow2"); got != "qcow2" {
		t.Fatalf("FormatFor(disk.qcow2) = %s", got)
	}
	for _, ref := range []string{"disk.raw", "disk.vmdk", "plain"} {
		if got := b.FormatFor(ref); got != "raw" {
			t.Fatalf("FormatFor(%s) = %s, want raw", ref, got)
		}
	}
}

func TestExistsAndDelete(t *testing.T) {
	b, conf := testBackend(t)
	seedDisk(t, conf, "disk.qcow2")

	if !b.Exists("disk.qcow2") {
		t.Fatal("seeded disk not found")
	}
	if b.Exists("other.qcow2") {
		t.Fatal("phantom disk")
	}
	if b.Exists("../disk.qcow2") {
		t.Fatal("path-escaping ref must not resolve")
	}

	if err := b.Delete("disk.qcow2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if b.Exists("disk.qcow2") {
		t.Fatal("disk survived delete")
	}
	if err := b.Delete("disk.qcow2"); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("double delete: err = %v, want ErrNotFound", err)
	}
}

type fakeReconciler struct {
	oldRef, newRef string
	count          int
	err            error
}

func (f *fakeReconciler) Reconcile(_ context.Context, _ types.AuthContext, oldRef, newRef string) (int, error) {
	f.oldRef, f.newRef = oldRef, newRef
	return f.count, f.err
}

func TestRename(t *testing.T) {
	b, conf := testBackend(t)
	rec := &fakeReconciler{count: 2}
	b.Bind(rec)
	seedDisk(t, conf, "old.qcow2")
	auth := types.AuthContext{OwnerID: "alice"}
	ctx := context.Background()

	res, err := b.Rename(ctx, auth, "old.qcow2", "new")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if res.NewRef != "new.qcow2" {
		t.Fatalf("NewRef = %s, extension not carried", res.NewRef)
	}
	if res.Updated != 2 || res.ReconcileErr != nil {
		t.Fatalf("result: %+v", res)
	}
	if rec.oldRef != "old.qcow2" || rec.newRef != "new.qcow2" {
		t.Fatalf("reconciler saw %s -> %s", rec.oldRef, rec.newRef)
	}
	if b.Exists("old.qcow2") || !b.Exists("new.qcow2") {
		t.Fatal("physical rename did not happen")
	}
}

func TestRenameValidation(t *testing.T) {
	b, conf := testBackend(t)
	b.Bind(&fakeReconciler{})
	seedDisk(t, conf, "old.qcow2")
	seedDisk(t, conf, "taken.qcow2")
	auth := types.AuthContext{OwnerID: "alice"}
	ctx := context.Background()

	if _, err := b.Rename(ctx, auth, "missing.qcow2", "new"); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("missing source: err = %v, want ErrNotFound", err)
	}
	if _, err := b.Rename(ctx, auth, "old.qcow2", "new.raw"); !errors.Is(err, types.ErrInvalidArgument) {
		t.Fatalf("extension in new name: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := b.Rename(ctx, auth, "old.qcow2", "taken"); !errors.Is(err, types.ErrConflict) {
		t.Fatalf("target exists: err = %v, want ErrConflict", err)
	}
	if _, err := b.Rename(ctx, auth, "old.qcow2", "old"); !errors.Is(err, types.ErrInvalidArgument) {
		t.Fatalf("same name: err = %v, want ErrInvalidArgument", err)
	}

	// Nothing moved on validation failures.
	if !b.Exists("old.qcow2") {
		t.Fatal("source disappeared on failed rename")
	}
}

func TestRenameSurfacesReconcileFailure(t *testing.T) {
	b, conf := testBackend(t)
	rec := &fakeReconciler{err: errors.New("index busy")}
	b.Bind(rec)
	seedDisk(t, conf, "old.qcow2")

	res, err := b.Rename(context.Background(), types.AuthContext{OwnerID: "alice"}, "old.qcow2", "new")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	// The physical rename stands; the failure is reported for repair.
	if res.ReconcileErr == nil {
		t.Fatal("reconcile failure swallowed")
	}
	if !b.Exists("new.qcow2") {
		t.Fatal("physical rename rolled back unexpectedly")
	}
}
