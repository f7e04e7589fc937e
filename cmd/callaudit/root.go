package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/callaudit/pkg/cli"
	"mercator-hq/callaudit/pkg/config"
)

// defaultConfigFile is read when --config is not given, if it exists.
const defaultConfigFile = "config.yaml"

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "callaudit",
	Short: "Callaudit - call history capture and query service",
	Long: `Callaudit captures a structured audit record for every audited service
call and stores it in a queryable call history.

Each record carries the correlation and trace ids of the request, the
transport context, the sanitized request and response payloads, and the
outcome of the call including error details for failures.

Auditing never changes the result of a call and never slows it down:
records are persisted in the background and dropped rather than blocking
when storage falls behind.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: ./config.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// configPath resolves the configuration file to load. An explicit --config
// must exist; the implicit default is skipped when missing, leaving the
// built-in defaults and CALLAUDIT_* overrides.
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	if _, err := os.Stat(defaultConfigFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return defaultConfigFile, nil
}

// loadConfig initializes the global configuration.
func loadConfig() (*config.Config, string, error) {
	path, err := configPath()
	if err != nil {
		return nil, "", cli.NewConfigError("config", err.Error())
	}
	if err := config.Initialize(path); err != nil {
		return nil, "", cli.NewConfigError("config", fmt.Sprintf("failed to load config: %v", err))
	}
	return config.GetConfig(), path, nil
}
