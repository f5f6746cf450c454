// =============================================================================
// DEX Report Converter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (dexreport)
//   ├── processCmd (dexreport process)
//   ├── validateCmd (dexreport validate)
//   └── versionCmd (dexreport version)
//
// EXIT CODES:
//   0  success
//   1  usage or configuration error
//   2  a source could not be loaded
//   3  the report could not be built or failed validation
//   4  the document could not be written
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/dexreport/internal/config"
	"github.com/ginjaninja78/dexreport/internal/converter"
	"github.com/ginjaninja78/dexreport/internal/exitcode"
	"github.com/ginjaninja78/dexreport/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose enables debug logging.
var verbose bool

// logFormat overrides the configured log format when set.
var logFormat string

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dexreport",
	Short: "DEX Report Converter - Build the DEX upload document from practice exports",
	Long: `DEX Report Converter reconciles the billing ledger, appointment ledger,
service code table and client master exported from the practice-management
system against the organisation registry, and writes the DEXFileUpload XML
document with the Clients, Cases and Sessions of the reporting period.

Example Usage:
  dexreport process                      # Build and write the upload document
  dexreport process --dry-run            # Build and validate, write nothing
  dexreport process --session-seed 1000  # Reproducible session identifiers
  dexreport validate                     # Check the configuration and sources`,

	SilenceUsage:  true,
	SilenceErrors: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI and exits with the code matching the outcome.
// This is called by main.main().
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCodeFor(err))
}

// exitCodeFor maps an error to the process exit code.
func exitCodeFor(err error) int {
	if err == nil {
		return exitcode.Success
	}

	var pe *converter.PipelineError
	if !errors.As(err, &pe) {
		return exitcode.UsageError
	}

	switch pe.Phase {
	case converter.PhaseConfig:
		return exitcode.UsageError
	case converter.PhaseLoad:
		return exitcode.SourceError
	case converter.PhaseWrite:
		return exitcode.WriteError
	default:
		return exitcode.TransformError
	}
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// loadConfig reads the configuration and builds the logger it describes.
// Command-line flags take precedence over the file.
func loadConfig() (*config.MainConfig, zerolog.Logger, error) {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, logging.Setup(logFormatOr("text"), "info"),
			&converter.PipelineError{Phase: converter.PhaseConfig, Err: err}
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	return cfg, logging.Setup(logFormatOr(cfg.LogFormat), level), nil
}

func logFormatOr(fallback string) string {
	if logFormat != "" {
		return logFormat
	}
	return fallback
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)

	rootCmd.PersistentFlags().StringVar(
		&logFormat,
		"log-format",
		"",
		"Log format: text or json (overrides log_format in the config)",
	)
}
