package main

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"gnssdemux/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:     "gnssdemux",
	Short:   "Demultiplex a mixed GNSS byte stream into per-protocol frames",
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "gnssdemux.yaml", "path to the YAML config file")
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(serialCmd)
}

// Execute runs the root command. It's the only entry point main calls.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads and validates the config file named by --config.
func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}

// newLogger builds the logrus logger cmd/gnssdemux hands to semp's
// ErrorOutput/DebugOutput writer slots, rotating through lumberjack when a
// log file is configured.
func newLogger(cfg config.LogConfig) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	if cfg.Debug {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)

	var out io.Writer = os.Stderr
	if cfg.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
	}
	log.SetOutput(out)
	return log
}
