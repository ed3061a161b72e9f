// Package cmd implements the CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/zorak1103/conman/internal/config"
	"github.com/zorak1103/conman/internal/logging"
	"github.com/zorak1103/conman/internal/version"
)

var (
	cfgFile       string
	verbose       bool
	logLevel      string
	cfg           *config.Config
	errConfigLoad error
	logger        = logging.Discard()
)

var rootCmd = &cobra.Command{
	Use:   "conman",
	Short: "Container lifecycle manager",
	Long: `conman manages named Docker containers declared as templates.

It features:
  - Idempotent start: starting a running container is a no-op
  - Exited containers are reaped automatically so names stay reusable
  - Instance names and host ports derived from a numeric id (port p -> p+id)
  - Exec, inspect, host address and network alias lookups by name
  - Lifecycle notifications via Shoutrrr`,
	Version:       version.Get().String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		skipConfig := cmd.Name() == "init" || cmd.Name() == "help" || cmd.Name() == "version"
		if skipConfig {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			// Commands that need the config report it through requireConfig.
			errConfigLoad = err
		} else {
			errConfigLoad = nil
		}

		level := logLevel
		if level == "" && cfg != nil {
			level = cfg.Log.Level
		}
		if verbose {
			level = "debug"
		}
		logger = logging.New(level, cmd.ErrOrStderr())

		if errConfigLoad != nil && verbose {
			logger.Warn("could not load config", "err", errConfigLoad)
		}
		if verbose && cfg != nil {
			logger.Debug("loaded configuration", "path", cfg.ConfigFilePath)
		}

		return nil
	},
}

// exitCodeError carries the exit status of a command run with exec.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("command exited with status %d", e.code)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	os.Exit(exitCode(rootCmd.ErrOrStderr(), err))
}

// exitCode reports err on w and returns the process exit status. The status
// of a command run with exec is passed through without a message; its output
// already explains the failure.
func exitCode(w io.Writer, err error) int {
	var exitErr *exitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return 1
}

// nolint:gochecknoinits // Standard Cobra pattern for command registration
func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default: log.level from config)")
}

// GetConfig returns the loaded configuration or nil if not loaded.
// Must be called after rootCmd.PersistentPreRunE has executed.
func GetConfig() *config.Config {
	return cfg
}

// GetConfigLoadError returns any error encountered during config loading.
// Returns nil if configuration loaded successfully or was not attempted.
func GetConfigLoadError() error {
	return errConfigLoad
}

// GetLogger returns the logger configured for the current invocation.
func GetLogger() *log.Logger {
	return logger
}

// IsVerbose returns whether verbose mode is enabled via the -v flag.
func IsVerbose() bool {
	return verbose
}
