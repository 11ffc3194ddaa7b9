package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/neurolytix/go-forecaster/internal/config"
	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string

	cfg *config.Config
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "neurolytix",
		Short:         "Forecast, evaluate and monitor stored time series datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if logLevel != "" {
				loaded.Log.Level = logLevel
				if err := loaded.Validate(); err != nil {
					return err
				}
			}
			cfg = loaded
			slog.SetDefault(config.NewLogger(cfg.Log, os.Stderr))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	rootCmd.AddCommand(forecastCmd())
	rootCmd.AddCommand(compareCmd())
	rootCmd.AddCommand(detectCmd())
	rootCmd.AddCommand(datasetsCmd())
	rootCmd.AddCommand(monitorCmd())
	return rootCmd
}
