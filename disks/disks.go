// Package disks wraps the qemu-img tool over a flat image store directory:
// create, inspect, convert, resize, rename. Rename and convert change a
// disk's identifier, so both finish by reconciling every VM record that
// referenced the old name — always after the physical operation, so a
// reconciliation failure is repairable by re-running reconcile alone.
package disks

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	units "github.com/docker/go-units"
	"github.com/projecteru2/core/log"

	"github.com/Mostafa-Hesham1/VirtCloud/config"
	"github.com/Mostafa-Hesham1/VirtCloud/engine"
	"github.com/Mostafa-Hesham1/VirtCloud/types"
	"github.com/Mostafa-Hesham1/VirtCloud/utils"
)

// Formats supported by the store.
var validFormats = []string{"qcow2", "raw", "vmdk", "vhdx", "vdi"}

// Reconciler rewrites VM disk references after a rename/convert.
type Reconciler interface {
	Reconcile(ctx context.Context, auth types.AuthContext, oldRef, newRef string) (int, error)
}

var _ engine.DiskBackend = (*Backend)(nil)

// Backend is the qemu-img backed disk store.
type Backend struct {
	conf       *config.Config
	reconciler Reconciler
}

// New creates the disk backend. The reconciler is bound separately
// (see Bind) because the engine and the backend reference each other.
func New(conf *config.Config) *Backend {
	return &Backend{conf: conf}
}

// Bind attaches the reconciler. Must be called before Rename/Convert.
func (b *Backend) Bind(r Reconciler) { b.reconciler = r }

// ValidateRef rejects names that are empty, path-escaping, or hidden.
// Strict validation at the boundary replaces any guessing about what the
// caller meant: a malformed name is an InvalidArgument, never auto-fixed.
func ValidateRef(name string) error {
	if name == "" {
		return fmt.Errorf("disk name is empty: %w", types.ErrInvalidArgument)
	}
	if strings.ContainsAny(name, "/\\") || name != filepath.Base(name) {
		return fmt.Errorf("disk name %q must not contain path separators: %w", name, types.ErrInvalidArgument)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("disk name %q must not start with a dot: %w", name, types.ErrInvalidArgument)
	}
	return nil
}

// ValidateFormat checks fmt against the supported list.
func ValidateFormat(format string) error {
	for _, f := range validFormats {
		if f == format {
			return nil
		}
	}
	return fmt.Errorf("invalid disk format %q, supported: %s: %w",
		format, strings.Join(validFormats, ", "), types.ErrInvalidArgument)
}

// Path resolves a validated ref to its absolute path in the store.
func (b *Backend) Path(ref string) (string, error) {
	if err := ValidateRef(ref); err != nil {
		return "", err
	}
	return filepath.Join(b.conf.DiskStoreDir(), ref), nil
}

// Exists reports whether ref names a disk image in the store.
func (b *Backend) Exists(ref string) bool {
	path, err := b.Path(ref)
	if err != nil {
		return false
	}
	return utils.ValidFile(path)
}

// FormatFor derives the -drive format tag from the file extension, the way
// the VM runtime expects it: qcow2 images declare themselves, everything
// else is treated as raw.
func (b *Backend) FormatFor(ref string) string {
	if strings.HasSuffix(ref, ".qcow2") {
		return "qcow2"
	}
	return "raw"
}

// Delete removes the image file for ref.
func (b *Backend) Delete(ref string) error {
	path, err := b.Path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("disk %q: %w", ref, types.ErrNotFound)
		}
		return fmt.Errorf("remove disk %s: %w", ref, err)
	}
	return nil
}

// qemuImg runs one qemu-img invocation and returns its combined output.
func (b *Backend) qemuImg(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, b.conf.QemuImgBinary, args...).CombinedOutput() //nolint:gosec
	if err != nil {
		if _, lookErr := exec.LookPath(b.conf.QemuImgBinary); lookErr != nil {
			return "", fmt.Errorf("%s not found, install QEMU or adjust PATH: %w",
				b.conf.QemuImgBinary, types.ErrUnavailable)
		}
		return "", fmt.Errorf("qemu-img %s: %s: %w", args[0], strings.TrimSpace(string(out)), err)
	}
	return string(out), nil
}

// Create makes a new disk image named <name>.<format> of the given size
// (e.g. "10G"). Returns the full disk filename.
func (b *Backend) Create(ctx context.Context, name, size, format string) (string, error) {
	if err := ValidateRef(name); err != nil {
		return "", err
	}
	if err := ValidateFormat(format); err != nil {
		return "", err
	}
	if _, err := units.RAMInBytes(size); err != nil {
		return "", fmt.Errorf("invalid disk size %q: %w", size, types.ErrInvalidArgument)
	}
	if err := utils.EnsureDirs(b.conf.DiskStoreDir()); err != nil {
		return "", err
	}

	ref := name + "." + format
	path, err := b.Path(ref)
	if err != nil {
		return "", err
	}
	if utils.ValidFile(path) {
		return "", fmt.Errorf("disk %q already exists: %w", ref, types.ErrConflict)
	}

	if _, err := b.qemuImg(ctx, "create", "-f", format, path, size); err != nil {
		return "", err
	}

	// The image may lag into visibility on some filesystems; wait for it
	// with a bounded retry rather than an unconditional sleep.
	if err := utils.Retry(ctx, utils.DefaultRetry, func() error {
		if !utils.ValidFile(path) {
			return fmt.Errorf("disk %s not visible yet", ref)
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("disk %s created but not visible: %w", ref, err)
	}

	log.WithFunc("disks.Create").Infof(ctx, "created disk %s (%s, %s)", ref, format, size)
	return ref, nil
}

// Info returns the qemu-img info text for a disk.
func (b *Backend) Info(ctx context.Context, ref string) (string, error) {
	path, err := b.Path(ref)
	if err != nil {
		return "", err
	}
	if !utils.ValidFile(path) {
		return "", fmt.Errorf("disk %q not found in store: %w", ref, types.ErrNotFound)
	}
	return b.qemuImg(ctx, "info", path)
}

// Resize grows a disk by a delta such as "+5G".
func (b *Backend) Resize(ctx context.Context, ref, resizeBy string) (string, error) {
	path, err := b.Path(ref)
	if err != nil {
		return "", err
	}
	if !utils.ValidFile(path) {
		return "", fmt.Errorf("disk %q not found in store: %w", ref, types.ErrNotFound)
	}
	return b.qemuImg(ctx, "resize", path, resizeBy)
}
