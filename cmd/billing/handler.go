package billing

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"

	"github.com/Mostafa-Hesham1/VirtCloud/billing"
	cmdcore "github.com/Mostafa-Hesham1/VirtCloud/cmd/core"
	"github.com/Mostafa-Hesham1/VirtCloud/plans"
	"github.com/Mostafa-Hesham1/VirtCloud/types"
)

type Handler struct {
	cmdcore.BaseHandler
}

// initLedger is the shared init for billing subcommands.
func (h Handler) initLedger(cmd *cobra.Command) (context.Context, types.AuthContext, *billing.Ledger, error) {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return nil, types.AuthContext{}, nil, err
	}
	auth, err := cmdcore.AuthFromFlags(cmd)
	if err != nil {
		return nil, types.AuthContext{}, nil, err
	}
	ledger, err := cmdcore.InitLedger(conf)
	if err != nil {
		return nil, types.AuthContext{}, nil, err
	}
	return ctx, auth, ledger, nil
}

func (h Handler) Balance(cmd *cobra.Command, _ []string) error {
	ctx, auth, ledger, err := h.initLedger(cmd)
	if err != nil {
		return err
	}
	balance, err := ledger.Balance(ctx, auth)
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}
	fmt.Printf("%.2f credits\n", balance)
	return nil
}

func (h Handler) Recharge(cmd *cobra.Command, args []string) error {
	ctx, auth, ledger, err := h.initLedger(cmd)
	if err != nil {
		return err
	}
	dollars, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[0], types.ErrInvalidArgument)
	}

	res, err := ledger.Recharge(ctx, auth, dollars)
	if err != nil {
		return fmt.Errorf("recharge: %w", err)
	}
	log.WithFunc("cmd.billing.recharge").Infof(ctx, "recharged %.2f credits, balance: %.2f",
		res.Deducted, res.NewBalance)
	return nil
}

func (h Handler) Deduct(cmd *cobra.Command, args []string) error {
	ctx, auth, ledger, err := h.initLedger(cmd)
	if err != nil {
		return err
	}
	amount, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[1], types.ErrInvalidArgument)
	}
	period, _ := cmd.Flags().GetString("period")

	res, err := ledger.Deduct(ctx, auth, args[0], amount, period)
	if err != nil {
		return fmt.Errorf("deduct: %w", err)
	}
	log.WithFunc("cmd.billing.deduct").Infof(ctx, "deducted %.2f credits, balance: %.2f -> %.2f",
		res.Deducted, res.PreviousBalance, res.NewBalance)
	return nil
}

func (h Handler) History(cmd *cobra.Command, _ []string) error {
	ctx, auth, ledger, err := h.initLedger(cmd)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")

	entries, err := ledger.History(ctx, auth, limit)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No billing history.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TIME\tACTION\tVM\tCOST\tRUNTIME\tBALANCE")
	for _, e := range entries {
		runtime := "-"
		if e.RuntimeMinutes > 0 {
			runtime = fmt.Sprintf("%.1f min", e.RuntimeMinutes)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%.2f\n",
			e.Timestamp.Local().Format(time.DateTime),
			e.Action,
			e.VMID,
			e.Cost,
			runtime,
			e.NewBalance,
		)
	}
	return w.Flush()
}

func (h Handler) Plans(cmd *cobra.Command, _ []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tPRICE/MO\tCREDITS/MO\tMAX CPU\tMAX RAM\tMAX DISK")
	for _, p := range plans.Catalog() {
		_, _ = fmt.Fprintf(w, "%s\t%s\t$%.0f\t%d\t%d\t%dG\t%dG\n",
			p.ID, p.Name, p.PriceMonthly, p.CreditsMonthly, p.MaxCPU, p.MaxRAMGB, p.MaxDiskGB)
	}
	return w.Flush()
}

func (h Handler) SetPlan(cmd *cobra.Command, args []string) error {
	ctx, auth, ledger, err := h.initLedger(cmd)
	if err != nil {
		return err
	}
	if err := ledger.SetPlan(ctx, auth, args[0]); err != nil {
		return fmt.Errorf("set plan: %w", err)
	}
	log.WithFunc("cmd.billing.set-plan").Infof(ctx, "plan set to %s for %s", args[0], auth.OwnerID)
	return nil
}
