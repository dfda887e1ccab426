package vm

import "github.com/spf13/cobra"

// Actions defines VM lifecycle operations.
type Actions interface {
	Create(cmd *cobra.Command, args []string) error
	Start(cmd *cobra.Command, args []string) error
	Stop(cmd *cobra.Command, args []string) error
	Resize(cmd *cobra.Command, args []string) error
	List(cmd *cobra.Command, args []string) error
	Inspect(cmd *cobra.Command, args []string) error
	Stats(cmd *cobra.Command, args []string) error
	RM(cmd *cobra.Command, args []string) error
}

// Command builds the "vm" parent command with all subcommands.
func Command(h Actions) *cobra.Command {
	vmCmd := &cobra.Command{
		Use:   "vm",
		Short: "Manage virtual machines",
	}

	createCmd := &cobra.Command{
		Use:   "create [flags] DISK",
		Short: "Launch a new VM from a disk image",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Create,
	}
	createCmd.Flags().Int("cpu", 1, "CPU count")
	createCmd.Flags().Int("memory", 1024, "memory in MB") //nolint:mnd
	createCmd.Flags().String("iso", "", "ISO image to attach and boot from")
	createCmd.Flags().String("display", "none", "display mode (none|sdl|gtk)")

	startCmd := &cobra.Command{
		Use:   "start VM [VM...]",
		Short: "Start stopped VM(s)",
		Args:  cobra.MinimumNArgs(1),
		RunE:  h.Start,
	}
	startCmd.Flags().Bool("iso", false, "re-attach the VM's ISO on boot")

	stopCmd := &cobra.Command{
		Use:   "stop VM [VM...]",
		Short: "Stop running VM(s) and charge the session",
		Args:  cobra.MinimumNArgs(1),
		RunE:  h.Stop,
	}

	resizeCmd := &cobra.Command{
		Use:   "resize [flags] VM",
		Short: "Change CPU/memory of a stopped VM",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Resize,
	}
	resizeCmd.Flags().Int("cpu", 0, "new CPU count")
	resizeCmd.Flags().Int("memory", 0, "new memory in MB")

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List VMs with status",
		RunE:    h.List,
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect VM",
		Short: "Show detailed VM info (JSON)",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Inspect,
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-VM runtime and credit consumption",
		RunE:  h.Stats,
	}

	rmCmd := &cobra.Command{
		Use:   "rm [flags] VM [VM...]",
		Short: "Delete VM(s)",
		Args:  cobra.MinimumNArgs(1),
		RunE:  h.RM,
	}
	rmCmd.Flags().Bool("disk", false, "also delete the backing disk when no other VM references it")

	vmCmd.AddCommand(
		createCmd,
		startCmd,
		stopCmd,
		resizeCmd,
		listCmd,
		inspectCmd,
		statsCmd,
		rmCmd,
	)
	return vmCmd
}
