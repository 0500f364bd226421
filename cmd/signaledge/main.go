package main

import (
	"fmt"
	"os"

	"github.com/newthinker/signaledge/internal/app"
	"github.com/newthinker/signaledge/internal/config"
	"github.com/newthinker/signaledge/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile  string
	debug    bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "signaledge",
	Short: "signaledge - SMA trend following signals and backtests",
	Long: `signaledge turns a daily closing price series into moving average
buy and sell signals, simulates a long or flat position with idle cash earning
a yield, and compares the result with buying and holding.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// loadConfig reads and validates the config file, or returns defaults
func loadConfig(log *zap.Logger) (*config.Config, error) {
	if cfgFile == "" {
		log.Debug("no config file specified, using defaults")
		return config.Defaults(), nil
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// newApp builds the logger, config and app shared by the commands
func newApp(opts ...app.Option) (*app.App, *zap.Logger, error) {
	log, err := logger.New(logger.Options{Development: debug, Level: logLevel, Name: "signaledge"})
	if err != nil {
		return nil, zap.NewNop(), err
	}

	cfg, err := loadConfig(log)
	if err != nil {
		return nil, log, err
	}

	a, err := app.New(cfg, log, opts...)
	if err != nil {
		return nil, log, fmt.Errorf("initializing: %w", err)
	}
	return a, log, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
