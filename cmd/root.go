package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"rxtract/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "rxtract",
	Short: "Rxtract - structured data extraction from prescription scans",
	Long: `Rxtract turns scanned medical prescriptions into structured records.

A document is OCR'd through Google Cloud Vision or Document AI, then four
independent extractors (pattern rules, named-entity recognition, and two
generative-model strategies) propose field values that are merged by
confidence into a single validated record.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("Rxtract CLI executed")

		fmt.Println("Welcome to Rxtract!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
