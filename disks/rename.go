package disks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/projecteru2/core/log"

	"github.com/Mostafa-Hesham1/VirtCloud/types"
)

// RenameResult reports the outcome of a rename or convert, including how
// many VM records now point at the new name. ReconcileErr is non-nil when
// the physical operation succeeded but the reference rewrite did not; the
// caller can re-run Reconcile to repair.
type RenameResult struct {
	OldRef       string
	NewRef       string
	Updated      int
	ReconcileErr error
}

// Rename renames a disk image, keeping its extension, then rewrites the
// disk references of every VM of the owner that used the old name.
func (b *Backend) Rename(ctx context.Context, auth types.AuthContext, ref, newName string) (*RenameResult, error) {
	logger := log.WithFunc("disks.Rename")

	oldPath, err := b.Path(ref)
	if err != nil {
		return nil, err
	}
	if err := ValidateRef(newName); err != nil {
		return nil, err
	}
	if strings.Contains(newName, ".") {
		return nil, fmt.Errorf("new name %q must not carry an extension, it is kept from the old name: %w",
			newName, types.ErrInvalidArgument)
	}
	if !b.Exists(ref) {
		return nil, fmt.Errorf("disk %q not found in store: %w", ref, types.ErrNotFound)
	}

	newRef := newName + filepath.Ext(ref)
	if newRef == ref {
		return nil, fmt.Errorf("new name resolves to the current name %q: %w", ref, types.ErrInvalidArgument)
	}
	newPath, err := b.Path(newRef)
	if err != nil {
		return nil, err
	}
	if b.Exists(newRef) {
		return nil, fmt.Errorf("disk %q already exists: %w", newRef, types.ErrConflict)
	}

	// Physical rename first. If the reference rewrite then fails, the store
	// and the VM index disagree in a direction reconcile alone can repair.
	if err := os.Rename(oldPath, newPath); err != nil {
		return nil, fmt.Errorf("rename disk %s: %w", ref, err)
	}

	res := &RenameResult{OldRef: ref, NewRef: newRef}
	res.Updated, res.ReconcileErr = b.reconciler.Reconcile(ctx, auth, ref, newRef)
	if res.ReconcileErr != nil {
		logger.Warnf(ctx, "disk %s renamed to %s but reference rewrite failed: %v", ref, newRef, res.ReconcileErr)
		return res, nil
	}

	logger.Infof(ctx, "renamed disk %s to %s, %d VM(s) updated", ref, newRef, res.Updated)
	return res, nil
}

// Convert converts a disk image to another format under a new name,
// removes the source image, and rewrites VM references to the new name.
func (b *Backend) Convert(ctx context.Context, auth types.AuthContext, ref, newName, format string) (*RenameResult, error) {
	logger := log.WithFunc("disks.Convert")

	srcPath, err := b.Path(ref)
	if err != nil {
		return nil, err
	}
	if err := ValidateRef(newName); err != nil {
		return nil, err
	}
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}
	if !b.Exists(ref) {
		return nil, fmt.Errorf("disk %q not found in store: %w", ref, types.ErrNotFound)
	}

	newRef := newName + "." + format
	if newRef == ref {
		return nil, fmt.Errorf("conversion target resolves to the source name %q: %w", ref, types.ErrInvalidArgument)
	}
	dstPath, err := b.Path(newRef)
	if err != nil {
		return nil, err
	}
	if b.Exists(newRef) {
		return nil, fmt.Errorf("disk %q already exists: %w", newRef, types.ErrConflict)
	}

	srcFormat := b.FormatFor(ref)
	if _, err := b.qemuImg(ctx, "convert", "-f", srcFormat, "-O", format, srcPath, dstPath); err != nil {
		return nil, err
	}

	if err := os.Remove(srcPath); err != nil {
		logger.Warnf(ctx, "converted disk %s to %s but source removal failed: %v", ref, newRef, err)
	}

	res := &RenameResult{OldRef: ref, NewRef: newRef}
	res.Updated, res.ReconcileErr = b.reconciler.Reconcile(ctx, auth, ref, newRef)
	if res.ReconcileErr != nil {
		logger.Warnf(ctx, "disk %s converted to %s but reference rewrite failed: %v", ref, newRef, res.ReconcileErr)
		return res, nil
	}

	logger.Infof(ctx, "converted disk %s to %s (%s), %d VM(s) updated", ref, newRef, format, res.Updated)
	return res, nil
}
