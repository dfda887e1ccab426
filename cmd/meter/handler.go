package meter

import (
	"context"
	"errors"
	"fmt"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"

	"github.com/Mostafa-Hesham1/VirtCloud/billing"
	cmdcore "github.com/Mostafa-Hesham1/VirtCloud/cmd/core"
)

type Handler struct {
	cmdcore.BaseHandler
}

// initMeter wires the engine and ledger into a Meter. The caller must
// Release it.
func (h Handler) initMeter(cmd *cobra.Command) (context.Context, *billing.Meter, error) {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return nil, nil, err
	}
	if override, _ := cmd.Flags().GetInt("interval"); override > 0 {
		conf.MeterIntervalSeconds = override
	}
	eng, _, ledger, err := cmdcore.InitEngine(conf)
	if err != nil {
		return nil, nil, err
	}
	m, err := billing.NewMeter(conf, eng, ledger)
	if err != nil {
		return nil, nil, err
	}
	return ctx, m, nil
}

func (h Handler) Run(cmd *cobra.Command, _ []string) error {
	ctx, m, err := h.initMeter(cmd)
	if err != nil {
		return err
	}
	defer m.Release()

	log.WithFunc("cmd.meter").Infof(ctx, "metering loop started, interval: %s", m.Interval())
	if err := m.Loop(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.WithFunc("cmd.meter").Infof(ctx, "metering loop stopped")
	return nil
}

func (h Handler) Sweep(cmd *cobra.Command, _ []string) error {
	ctx, m, err := h.initMeter(cmd)
	if err != nil {
		return err
	}
	defer m.Release()

	results, err := m.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	logger := log.WithFunc("cmd.meter.sweep")
	charged := 0
	for _, r := range results {
		if r.Err != nil {
			logger.Warnf(ctx, "VM %s (owner %s): %v", r.VMID, r.OwnerID, r.Err)
			continue
		}
		charged++
	}
	logger.Infof(ctx, "sweep complete: %d VM(s) charged, %d failed", charged, len(results)-charged)
	return nil
}
