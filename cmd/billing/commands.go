package billing

import "github.com/spf13/cobra"

// Actions defines credit account operations.
type Actions interface {
	Balance(cmd *cobra.Command, args []string) error
	Recharge(cmd *cobra.Command, args []string) error
	Deduct(cmd *cobra.Command, args []string) error
	History(cmd *cobra.Command, args []string) error
	Plans(cmd *cobra.Command, args []string) error
	SetPlan(cmd *cobra.Command, args []string) error
}

// Command builds the "billing" parent command with all subcommands.
func Command(h Actions) *cobra.Command {
	billingCmd := &cobra.Command{
		Use:   "billing",
		Short: "Manage credits and billing history",
	}

	balanceCmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the owner's credit balance",
		RunE:  h.Balance,
	}

	rechargeCmd := &cobra.Command{
		Use:   "recharge DOLLARS",
		Short: "Buy credits (minimum $5, $1 = 2 credits)",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Recharge,
	}

	deductCmd := &cobra.Command{
		Use:   "deduct VM AMOUNT",
		Short: "Deduct a runtime charge for a VM",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE:  h.Deduct,
	}
	deductCmd.Flags().String("period", "manual", "deduction period label")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show billing history, newest first",
		RunE:  h.History,
	}
	historyCmd.Flags().Int("limit", 100, "max entries") //nolint:mnd

	plansCmd := &cobra.Command{
		Use:   "plans",
		Short: "List subscription plans",
		RunE:  h.Plans,
	}

	setPlanCmd := &cobra.Command{
		Use:   "set-plan PLAN",
		Short: "Switch the owner's subscription plan",
		Args:  cobra.ExactArgs(1),
		RunE:  h.SetPlan,
	}

	billingCmd.AddCommand(
		balanceCmd,
		rechargeCmd,
		deductCmd,
		historyCmd,
		plansCmd,
		setPlanCmd,
	)
	return billingCmd
}
