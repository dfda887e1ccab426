package disk

import (
	"context"
	"fmt"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"

	cmdcore "github.com/Mostafa-Hesham1/VirtCloud/cmd/core"
	"github.com/Mostafa-Hesham1/VirtCloud/disks"
	"github.com/Mostafa-Hesham1/VirtCloud/types"
)

type Handler struct {
	cmdcore.BaseHandler
}

// initBackend wires the backend with the engine bound as reconciler, for
// the subcommands that rewrite VM references.
func (h Handler) initBackend(cmd *cobra.Command) (context.Context, types.AuthContext, *disks.Backend, error) {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return nil, types.AuthContext{}, nil, err
	}
	auth, err := cmdcore.AuthFromFlags(cmd)
	if err != nil {
		return nil, types.AuthContext{}, nil, err
	}
	_, backend, _, err := cmdcore.InitEngine(conf)
	if err != nil {
		return nil, types.AuthContext{}, nil, err
	}
	return ctx, auth, backend, nil
}

func (h Handler) Create(cmd *cobra.Command, args []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	size, _ := cmd.Flags().GetString("size")
	format, _ := cmd.Flags().GetString("format")

	ref, err := cmdcore.InitDisks(conf).Create(ctx, args[0], size, format)
	if err != nil {
		return fmt.Errorf("create disk: %w", err)
	}
	log.WithFunc("cmd.disk.create").Infof(ctx, "disk created: %s", ref)
	return nil
}

func (h Handler) Info(cmd *cobra.Command, args []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	out, err := cmdcore.InitDisks(conf).Info(ctx, args[0])
	if err != nil {
		return fmt.Errorf("disk info: %w", err)
	}
	fmt.Print(out)
	return nil
}

func (h Handler) Resize(cmd *cobra.Command, args []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	if _, err := cmdcore.InitDisks(conf).Resize(ctx, args[0], args[1]); err != nil {
		return fmt.Errorf("resize disk: %w", err)
	}
	log.WithFunc("cmd.disk.resize").Infof(ctx, "disk resized: %s by %s", args[0], args[1])
	return nil
}

func (h Handler) Convert(cmd *cobra.Command, args []string) error {
	ctx, auth, backend, err := h.initBackend(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")

	res, err := backend.Convert(ctx, auth, args[0], args[1], format)
	if err != nil {
		return fmt.Errorf("convert disk: %w", err)
	}
	return reportRename(ctx, "cmd.disk.convert", res)
}

func (h Handler) Rename(cmd *cobra.Command, args []string) error {
	ctx, auth, backend, err := h.initBackend(cmd)
	if err != nil {
		return err
	}
	res, err := backend.Rename(ctx, auth, args[0], args[1])
	if err != nil {
		return fmt.Errorf("rename disk: %w", err)
	}
	return reportRename(ctx, "cmd.disk.rename", res)
}

func (h Handler) Reconcile(cmd *cobra.Command, args []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	auth, err := cmdcore.AuthFromFlags(cmd)
	if err != nil {
		return err
	}
	eng, _, _, err := cmdcore.InitEngine(conf)
	if err != nil {
		return err
	}

	n, err := eng.Reconcile(ctx, auth, args[0], args[1])
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	log.WithFunc("cmd.disk.reconcile").Infof(ctx, "%d VM(s) now reference %s", n, args[1])
	return nil
}

func reportRename(ctx context.Context, fn string, res *disks.RenameResult) error {
	logger := log.WithFunc(fn)
	if res.ReconcileErr != nil {
		logger.Warnf(ctx, "disk is now %s but VM references were not updated: %v", res.NewRef, res.ReconcileErr)
		logger.Warnf(ctx, "repair with: virtcloud disk reconcile %s %s", res.OldRef, res.NewRef)
		return res.ReconcileErr
	}
	logger.Infof(ctx, "%s -> %s, %d VM(s) updated", res.OldRef, res.NewRef, res.Updated)
	return nil
}
