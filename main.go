// =============================================================================
// DEX Report Converter - Main Entry Point
// =============================================================================
//
// USAGE:
//   dexreport process       - Build and write the DEX upload document
//   dexreport validate      - Check the configuration and sources
//   dexreport version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Readers, builders, transformer, validation, XML writer
//   - pkg/           : Output file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/dexreport/cmd"
)

func main() {
	cmd.Execute()
}
