// appart runs the document analysis pipeline over local PDF files.
//
// Usage:
//
//	appart run minutes.pdf taxe.pdf charges.pdf
//	appart run --batch-id <uuid> --output yaml --xlsx report.xlsx *.pdf
//
// Run state is checkpointed to a SQLite file; rerunning with the same
// --batch-id resumes an interrupted or failed batch.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
}

var rootCmd = &cobra.Command{
	Use:   "appart",
	Short: "Analyze apartment purchase documents",
	Long: "appart classifies property documents, extracts costs and findings per\n" +
		"document type, and synthesizes a batch summary with a risk level.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.configPath, "config", "", "TOML config file (default: ./config.toml when present)")
	rootCmd.AddCommand(runCmd)
	rootCmd.Version = version
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
