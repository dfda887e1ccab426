package disk

import "github.com/spf13/cobra"

// Actions defines disk store operations.
type Actions interface {
	Create(cmd *cobra.Command, args []string) error
	Info(cmd *cobra.Command, args []string) error
	Resize(cmd *cobra.Command, args []string) error
	Convert(cmd *cobra.Command, args []string) error
	Rename(cmd *cobra.Command, args []string) error
	Reconcile(cmd *cobra.Command, args []string) error
}

// Command builds the "disk" parent command with all subcommands.
func Command(h Actions) *cobra.Command {
	diskCmd := &cobra.Command{
		Use:   "disk",
		Short: "Manage disk images",
	}

	createCmd := &cobra.Command{
		Use:   "create [flags] NAME",
		Short: "Create a new disk image",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Create,
	}
	createCmd.Flags().String("size", "10G", "disk size")
	createCmd.Flags().String("format", "qcow2", "disk format (qcow2|raw|vmdk|vhdx|vdi)")

	infoCmd := &cobra.Command{
		Use:   "info DISK",
		Short: "Show qemu-img info for a disk",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Info,
	}

	resizeCmd := &cobra.Command{
		Use:   "resize DISK DELTA",
		Short: "Grow a disk image (DELTA like +5G)",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE:  h.Resize,
	}

	convertCmd := &cobra.Command{
		Use:   "convert [flags] DISK NEWNAME",
		Short: "Convert a disk to another format and update VM references",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE:  h.Convert,
	}
	convertCmd.Flags().String("format", "qcow2", "target format")

	renameCmd := &cobra.Command{
		Use:   "rename DISK NEWNAME",
		Short: "Rename a disk (extension kept) and update VM references",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE:  h.Rename,
	}

	reconcileCmd := &cobra.Command{
		Use:   "reconcile OLDREF NEWREF",
		Short: "Rewrite VM disk references (repair after a failed rename)",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE:  h.Reconcile,
	}

	diskCmd.AddCommand(
		createCmd,
		infoCmd,
		resizeCmd,
		convertCmd,
		renameCmd,
		reconcileCmd,
	)
	return diskCmd
}
