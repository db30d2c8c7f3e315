package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdcore "github.com/projecteru2/cocoond/cmd/core"
	cmddaemon "github.com/projecteru2/cocoond/cmd/daemon"
	cmdsettings "github.com/projecteru2/cocoond/cmd/settings"
	cmdvm "github.com/projecteru2/cocoond/cmd/vm"
	"github.com/projecteru2/cocoond/config"
	"github.com/projecteru2/cocoond/daemon"
)

var (
	cfgFile string
	conf    *config.Config
)

var rootCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:           daemon.Name,
		Short:         "cocoond - instance daemon and settings",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmdcore.CommandContext(cmd))
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.PersistentFlags().String("root-dir", "", "root data directory")
	cmd.PersistentFlags().String("run-dir", "", "runtime directory")
	cmd.PersistentFlags().Int("pool-size", 0, "concurrent instance lookups at startup")

	_ = viper.BindPFlag("root_dir", cmd.PersistentFlags().Lookup("root-dir"))
	_ = viper.BindPFlag("run_dir", cmd.PersistentFlags().Lookup("run-dir"))
	_ = viper.BindPFlag("pool_size", cmd.PersistentFlags().Lookup("pool-size"))

	viper.SetEnvPrefix("COCOOND")
	viper.AutomaticEnv()

	base := cmdcore.BaseHandler{ConfProvider: func() *config.Config { return conf }}

	cmd.AddCommand(cmddaemon.Command(cmddaemon.Handler{BaseHandler: base}))
	for _, c := range cmdsettings.Commands(cmdsettings.Handler{BaseHandler: base}) {
		cmd.AddCommand(c)
	}
	cmd.AddCommand(cmdvm.Command(cmdvm.Handler{BaseHandler: base}))

	return cmd
}()

func initConfig(ctx context.Context) error {
	conf = config.DefaultConfig()
	viper.SetDefault("root_dir", conf.RootDir)
	viper.SetDefault("run_dir", conf.RunDir)
	viper.SetDefault("pool_size", conf.PoolSize)

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

	return log.SetupLog(ctx, &conf.Log, "")
}

func newCommandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Execute is the main entry point called from main.go.
func Execute() error {
	ctx, cancel := newCommandContext()
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}
