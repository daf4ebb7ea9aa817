package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"PriceCast/pkg/config"
	applogger "PriceCast/pkg/logger"
)

const version = "v0.3.0"

type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "pricecast",
		Short:         "Daily stock price forecasting from the command line",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file path (defaults apply when empty)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(newPredictCmd(opts), newHistoryCmd(opts))
	return root
}

// load returns the config and a stderr logger; stdout carries command output only.
func (o *rootOptions) load() (*config.Config, *applogger.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadWithEnv(o.configPath)
	} else {
		cfg, err = config.Default()
	}
	if err != nil {
		return nil, nil, err
	}
	return cfg, applogger.NewWriter(os.Stderr, o.logLevel), nil
}
