package cmd

import (
	"context"
	"fmt"
	"runtime"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdbilling "github.com/Mostafa-Hesham1/VirtCloud/cmd/billing"
	cmdcore "github.com/Mostafa-Hesham1/VirtCloud/cmd/core"
	cmddisk "github.com/Mostafa-Hesham1/VirtCloud/cmd/disk"
	cmdmeter "github.com/Mostafa-Hesham1/VirtCloud/cmd/meter"
	cmdvm "github.com/Mostafa-Hesham1/VirtCloud/cmd/vm"
	"github.com/Mostafa-Hesham1/VirtCloud/config"
)

var (
	cfgFile string
	conf    *config.Config
)

var rootCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "virtcloud",
		Short: "VirtCloud - VM lifecycle and metered billing engine",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(commandContext(cmd))
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.PersistentFlags().String("root-dir", "", "root data directory")
	cmd.PersistentFlags().String("run-dir", "", "runtime directory")
	cmd.PersistentFlags().String("log-dir", "", "log directory")
	cmd.PersistentFlags().String("owner", "", "owner ID all operations are scoped to")
	cmd.PersistentFlags().String("plan", "", "subscription plan of the owner (default: free)")

	_ = viper.BindPFlag("root_dir", cmd.PersistentFlags().Lookup("root-dir"))
	_ = viper.BindPFlag("run_dir", cmd.PersistentFlags().Lookup("run-dir"))
	_ = viper.BindPFlag("log_dir", cmd.PersistentFlags().Lookup("log-dir"))

	viper.SetEnvPrefix("VIRTCLOUD")
	viper.AutomaticEnv()

	base := cmdcore.BaseHandler{ConfProvider: func() *config.Config { return conf }}

	cmd.AddCommand(
		cmdvm.Command(cmdvm.Handler{BaseHandler: base}),
		cmddisk.Command(cmddisk.Handler{BaseHandler: base}),
		cmdbilling.Command(cmdbilling.Handler{BaseHandler: base}),
	)
	for _, c := range cmdmeter.Commands(cmdmeter.Handler{BaseHandler: base}) {
		cmd.AddCommand(c)
	}

	return cmd
}()

func initConfig(ctx context.Context) error {
	conf = config.DefaultConfig()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	_ = viper.ReadInConfig() // optional; missing file is OK

	if err := viper.Unmarshal(conf); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if conf.PoolSize <= 0 {
		conf.PoolSize = runtime.NumCPU()
	}
	conf.Normalize()

	return log.SetupLog(ctx, &conf.Log, "")
}

// Execute is the main entry point called from main.go.
func Execute() error {
	ctx, cancel := newCommandContext()
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}
