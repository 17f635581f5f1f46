// Package main is the entry point for hostmon, the compute host resource
// monitor. It loads configuration, activates the enabled monitors and either
// polls them once or runs the collection scheduler.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Guliveer/hostmon/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

// Persistent flags.
var (
	configPath string
	logLevel   string
	enabled    []string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "hostmon",
		Short:   "Compute host resource monitor",
		Version: version,
		Long: `hostmon activates at most one monitor per metric category (cpu, mem,
ssd, numa_mem_bw, ...) according to the enabled list, and polls them.

Example:
  hostmon list --enable cpu,ssd
  hostmon poll --enable cpu.virt_driver
  hostmon run --config /etc/hostmon/config.yaml`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: auto-discover)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringSliceVar(&enabled, "enable", nil, "Enabled monitors, <category> or <category>.<variant>")

	root.AddCommand(
		newRunCmd(),
		newPollCmd(),
		newListCmd(),
		newConfigCmd(),
		newServiceCmd(),
	)
	return root
}

// loadConfig applies the full precedence chain and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cli := config.CLIOverrides{LogLevel: logLevel}
	if cmd.Flags().Changed("enable") {
		cli.Enabled = enabled
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadLayered(cli, embeddedConfig, configPath)
	} else {
		cfg, err = config.LoadLayered(cli, embeddedConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// initLogger creates a zap logger based on the configuration.
// It writes human-readable output to stderr, keeping stdout for metric
// output, and optionally a JSON log file.
func initLogger(cfg *config.Config) *zap.Logger {
	var level zapcore.Level
	switch cfg.Logging.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		level,
	)

	cores := []zapcore.Core{consoleCore}

	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err == nil {
			fileCore := zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(file),
				level,
			)
			cores = append(cores, fileCore)
		}
	}

	return zap.New(zapcore.NewTee(cores...))
}
