package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"rxtract/internal/config"
	"rxtract/internal/extract"
	"rxtract/internal/llm"
	"rxtract/internal/logger"
	"rxtract/internal/pipeline"
	"rxtract/internal/validate"
)

var extractCmd = &cobra.Command{
	Use:   "extract [document]",
	Short: "Extract structured prescription data from a scan",
	Long: `Run the full extraction pipeline on a prescription image or PDF.

The document is OCR'd, then four extractors propose field values in
parallel: regex pattern rules, named-entity recognition, a single
structured model prompt, and a chained multi-step model pipeline. Their
results are merged by confidence into one validated record with per-field
provenance and an overall accuracy score.

Required environment variables:
  OPENAI_API_KEY - OpenAI API key for the model-backed extractors
  GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS - OCR credentials`,
	Example: `  # Extract a prescription to stdout as JSON
  rxtract extract prescription.png

  # Extract from a URL and save the result
  rxtract extract --url https://example.com/scan.jpg -o result.json

  # Fail when no patient name was found
  rxtract extract prescription.pdf --require-name

  # Skip the model-backed extractors (pattern and entity rules only)
  rxtract extract prescription.png --offline`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().String("url", "", "Fetch the document from a URL instead of a local file")
	extractCmd.Flags().String("raw-text", "", "Also save the raw OCR text to this file")
	extractCmd.Flags().Bool("require-name", false, "Fail validation when patient_name is absent")
	extractCmd.Flags().Bool("offline", false, "Skip the model-backed extractors")
	extractCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	outputPath, _ := cmd.Flags().GetString("output")
	url, _ := cmd.Flags().GetString("url")
	rawTextPath, _ := cmd.Flags().GetString("raw-text")
	requireName, _ := cmd.Flags().GetBool("require-name")
	offline, _ := cmd.Flags().GetBool("offline")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	if url == "" && len(args) == 0 {
		return fmt.Errorf("provide a document path or --url")
	}
	if url != "" && len(args) > 0 {
		return fmt.Errorf("provide either a document path or --url, not both")
	}

	cfg, err := loadExtractConfig(offline)
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	ocrService, err := createOCRService(ctx, cfg, log)
	if err != nil {
		return err
	}

	extractors, err := buildExtractors(cfg, offline, log)
	if err != nil {
		return err
	}

	p := pipeline.New(ocrService, extractors, pipeline.Options{
		RequirePatientName: requireName || cfg.RequirePatientName,
		IncludeRawText:     rawTextPath != "",
	})

	var result *pipeline.Result
	if url != "" {
		result, err = p.ProcessURL(ctx, url)
	} else {
		result, err = p.ProcessFile(ctx, args[0])
	}

	var validationErr *validate.ValidationError
	if err != nil && !errors.As(err, &validationErr) {
		return handlePipelineError(err, log)
	}

	if rawTextPath != "" && result != nil {
		if writeErr := os.WriteFile(rawTextPath, []byte(result.RawText), 0644); writeErr != nil {
			log.Warn().Err(writeErr).Str("file", rawTextPath).Msg("Failed to save raw OCR text")
		}
	}

	if outErr := writeExtractionOutput(result, outputPath, log); outErr != nil {
		return outErr
	}

	// Validation failures still produce output; surface them after writing.
	if validationErr != nil {
		return validationErr
	}
	return nil
}

// loadExtractConfig loads configuration; offline runs skip the model key
// requirement.
func loadExtractConfig(offline bool) (*config.Config, error) {
	if offline {
		cfg, err := config.LoadOCR()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// buildExtractors assembles the extractor set. The pattern and entity
// extractors always run; the model-backed pair needs an API key and is
// skipped offline.
func buildExtractors(cfg *config.Config, offline bool, log zerolog.Logger) ([]extract.Extractor, error) {
	extractors := []extract.Extractor{
		extract.NewPatternExtractor(),
		extract.NewEntityExtractor(),
	}

	if offline {
		log.Info().Msg("Offline mode: model-backed extractors disabled")
		return extractors, nil
	}

	completer, err := llm.NewClient(llm.Config{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.OpenAIModel,
		Temperature: cfg.OpenAITemperature,
		MinInterval: cfg.ModelMinInterval,
		Timeout:     cfg.ModelTimeout,
		MaxAttempts: cfg.ModelMaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create completion client: %w", err)
	}

	extractors = append(extractors,
		extract.NewPromptedExtractor(completer),
		extract.NewChainedExtractor(completer),
	)
	return extractors, nil
}

// handlePipelineError translates pipeline failures into user-facing messages.
func handlePipelineError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Extraction failed")

	var inputErr *pipeline.InputError
	if errors.As(err, &inputErr) {
		return fmt.Errorf("could not read document %s: %v", inputErr.Source, inputErr.Err)
	}

	var gatewayErr *pipeline.GatewayError
	if errors.As(err, &gatewayErr) {
		return handleOCRError(gatewayErr.Err, log)
	}

	return err
}

// writeExtractionOutput serializes the result as indented JSON.
func writeExtractionOutput(result *pipeline.Result, outputPath string, log zerolog.Logger) error {
	if result == nil || result.Output == nil {
		return fmt.Errorf("no output produced")
	}

	data, err := json.MarshalIndent(result.Output, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal extraction output")
		return fmt.Errorf("failed to create JSON output: %w", err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			log.Error().
				Err(err).
				Str("output_file", outputPath).
				Msg("Failed to write output file")
			return fmt.Errorf("failed to write output file: %w", err)
		}
		log.Info().
			Str("output_file", outputPath).
			Int("bytes", len(data)).
			Msg("Extraction results written to file")
		return nil
	}

	if _, err := os.Stdout.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Println()
	return nil
}
