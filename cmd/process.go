// =============================================================================
// DEX Report Converter - Process Command
// =============================================================================
//
// This file defines the 'process' command, which runs the whole pipeline and
// writes the upload document.
//
// COMMAND USAGE:
//   dexreport process [flags]
//
// FLAGS:
//   --dry-run       : Build and validate the report without writing files
//   --session-seed  : First session identifier (default: config, then clock)
//   --output-dir    : Override output_dir from the configuration
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/dexreport/internal/converter"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	dryRun      bool
	sessionSeed int64
	outputDir   string
)

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Build the DEX upload document",
	Long: `The process command loads every source named in the configuration, builds
the Clients, Cases and Sessions of the report, validates them and writes the
DEXFileUpload document to the output directory.

On success:
  - The document is written to the output directory and copied to the archive
  - A processing summary is written next to it

On error:
  - Nothing is written when a source is missing or the report is invalid
  - Validation problems are listed in an error log in the output directory`,

	RunE: func(cmd *cobra.Command, args []string) error {
		if sessionSeed < 0 {
			return fmt.Errorf("--session-seed must not be negative")
		}
		return runProcess(cmd.Context())
	},
}

// =============================================================================
// PROCESSING LOGIC
// =============================================================================

func runProcess(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, log, err := loadConfig()
	if err != nil {
		log.Error().Err(err).Msg("configuration failed")
		return err
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}

	log.Info().Str("config", cfgFile).Bool("dry_run", dryRun).Msg("starting run")

	result, err := converter.New(cfg, log).Run(ctx, converter.Options{
		DryRun:      dryRun,
		SessionSeed: sessionSeed,
	})
	if err != nil {
		if result != nil && result.ErrorLog != "" {
			log.Error().Str("error_log", result.ErrorLog).Msg("validation problems written")
		}
		return err
	}

	printResult(result)
	return nil
}

func printResult(result *converter.Result) {
	s := result.Stats
	fmt.Println()
	fmt.Println("================================================================================")
	fmt.Println("PROCESSING SUMMARY")
	fmt.Println("================================================================================")
	fmt.Printf("Clients:              %d\n", len(result.Report.Clients))
	fmt.Printf("Cases:                %d\n", len(result.Report.Cases))
	fmt.Printf("Sessions:             %d\n", len(result.Report.Sessions))
	fmt.Printf("Billing lines:        %d (%d outside the fee category)\n", s.BillingRows, s.Transform.LinesFiltered)
	fmt.Printf("Session IDs:          %d to %d\n", s.FirstSessionID, s.NextSessionID-1)
	fmt.Printf("Validation warnings:  %d\n", result.Validation.WarningCount)
	fmt.Printf("Processing time:      %s\n", s.ProcessingTime)
	if result.OutputFile != "" {
		fmt.Printf("Output:               %s\n", result.OutputFile)
	} else {
		fmt.Println("Output:               (dry run)")
	}
	if result.ErrorLog != "" {
		fmt.Printf("Error log:            %s\n", result.ErrorLog)
	}
	fmt.Println("================================================================================")
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Build and validate the report without writing files",
	)

	processCmd.Flags().Int64Var(
		&sessionSeed,
		"session-seed",
		0,
		"First session identifier (0 uses reporting.session_id_seed, then the clock)",
	)

	processCmd.Flags().StringVar(
		&outputDir,
		"output-dir",
		"",
		"Override the output directory from the configuration",
	)
}
