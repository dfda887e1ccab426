package meter

import "github.com/spf13/cobra"

// Actions defines metering operations.
type Actions interface {
	Run(cmd *cobra.Command, args []string) error
	Sweep(cmd *cobra.Command, args []string) error
}

// Commands builds the metering command set.
func Commands(h Actions) []*cobra.Command {
	runCmd := &cobra.Command{
		Use:   "meter",
		Short: "Run the periodic metering loop until interrupted",
		RunE:  h.Run,
	}
	runCmd.Flags().Int("interval", 0, "override sweep interval in seconds")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one metering sweep over all running VMs",
		RunE:  h.Sweep,
	}

	return []*cobra.Command{runCmd, sweepCmd}
}
