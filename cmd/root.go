package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cedana/cedana-spot/pkg/flags"
	"github.com/cedana/cedana-spot/utils"
	"github.com/spf13/cobra"
)

var spotConfigFile string

var (
	// Used for flags.
	rootCmd = &cobra.Command{
		Use:   "cedana-spot",
		Short: "Request, track and tear down AWS EC2 spot instances",
		Long: `________  _______   ________  ________  ________   ________
|\   ____\|\  ___ \ |\   ___ \|\   __  \|\   ___  \|\   __  \
\ \  \___|\ \   __/|\ \  \_|\ \ \  \|\  \ \  \\ \  \ \  \|\  \
 \ \  \    \ \  \_|/_\ \  \ \\ \ \   __  \ \  \\ \  \ \   __  \
  \ \  \____\ \  \_|\ \ \  \_\\ \ \  \ \  \ \  \\ \  \ \  \ \  \
   \ \_______\ \_______\ \_______\ \__\ \__\ \__\\ \__\ \__\ \__\
    \|_______|\|_______|\|_______|\|__|\|__|\|__| \|__|\|__|\|__|


                                                                 ` + "\n Spot instance lifecycle tooling." +
			"\n Property of Cedana, Corp.",
		SilenceUsage: true,
	}
)

// Execute runs the root command. SIGINT/SIGTERM cancel the command context,
// which stops any in-flight polling.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVarP(&spotConfigFile, flags.ConfigFlag.Full, flags.ConfigFlag.Short, "", "path to spot config json file, including file name (ex. --config /Users/me/.cedana/spot_config.json)")
}

func initConfig() {
	if spotConfigFile != "" {
		utils.SetConfigFile(spotConfigFile)
	}
}
