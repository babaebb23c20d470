package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"rxtract/internal/config"
	"rxtract/internal/logger"
	"rxtract/internal/ocr"
	"rxtract/internal/pipeline"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [document]",
	Short: "Extract raw text from a prescription scan",
	Long: `Process a prescription image or PDF through the configured OCR backend
and print the recognized text.

Supported input formats: PDF, PNG, JPEG, TIFF. PDFs are limited to 5 pages
and 20MB for synchronous processing.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string

For the Document AI backend (OCR_BACKEND=documentai) additionally:
  GOOGLE_CLOUD_PROJECT, DOCUMENT_AI_PROCESSOR_ID`,
	Example: `  # Extract text from a scanned prescription to stdout
  rxtract ocr prescription.png

  # Save extracted text to file
  rxtract ocr prescription.pdf -o extracted.txt

  # Include metadata and output as JSON
  rxtract ocr prescription.jpg --metadata --json -o result.json`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

// ocrOutput is the JSON output structure when --json is used.
type ocrOutput struct {
	Text               string    `json:"text"`
	PageCount          int       `json:"page_count,omitempty"`
	Confidence         float32   `json:"confidence,omitempty"`
	LanguageCodes      []string  `json:"language_codes,omitempty"`
	ProcessedAt        time.Time `json:"processed_at,omitempty"`
	ProcessingDuration string    `json:"processing_duration,omitempty"`
	FileName           string    `json:"file_name"`
	FileSize           int       `json:"file_size"`
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ocrCmd.Flags().BoolP("metadata", "m", false, "Include metadata in output")
	ocrCmd.Flags().Bool("json", false, "Output as JSON")
	ocrCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

func runOCR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr")

	outputPath, _ := cmd.Flags().GetString("output")
	includeMetadata, _ := cmd.Flags().GetBool("metadata")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	docPath := args[0]

	log.Info().
		Str("file", docPath).
		Str("output", outputPath).
		Bool("json", jsonOutput).
		Int("timeout", timeoutSecs).
		Msg("Starting OCR processing")

	cfg, err := config.LoadOCR()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	data, mimeType, err := pipeline.LoadDocument(docPath)
	if err != nil {
		log.Error().Err(err).Str("file", docPath).Msg("Failed to read document")
		return err
	}

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	ocrService, err := createOCRService(ctx, cfg, log)
	if err != nil {
		return err
	}

	startTime := time.Now()
	result, err := ocrService.ProcessDocumentWithMetadata(ctx, bytes.NewReader(data), mimeType)
	if err != nil {
		return handleOCRError(err, log)
	}

	log.Info().
		Int("page_count", result.PageCount).
		Float32("confidence", result.Confidence).
		Dur("duration", time.Since(startTime)).
		Int("text_length", len(result.Text)).
		Msg("OCR processing completed successfully")

	return writeOCRResults(result, docPath, len(data), outputPath, jsonOutput, includeMetadata, log)
}

// createContextWithTimeout creates a context with timeout and signal handling.
func createContextWithTimeout(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling processing")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// createOCRService builds the configured OCR backend.
func createOCRService(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ocr.Service, error) {
	hasCredentials := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" || os.Getenv("GOOGLE_CREDENTIALS") != ""

	if !hasCredentials {
		log.Error().Msg("Google Cloud credentials not configured")
		return nil, fmt.Errorf("Google Cloud credentials not configured. Please set one of:\n\n" +
			"1. Export GOOGLE_APPLICATION_CREDENTIALS with path to service account JSON:\n" +
			"   export GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n\n" +
			"2. Export GOOGLE_CREDENTIALS with inline JSON:\n" +
			"   export GOOGLE_CREDENTIALS='{\"type\":\"service_account\",...}'\n\n" +
			"3. Use Application Default Credentials (if gcloud is configured):\n" +
			"   gcloud auth application-default login")
	}

	var (
		ocrService ocr.Service
		err        error
	)
	if cfg.OCRBackend == config.OCRBackendDocumentAI {
		ocrService, err = ocr.NewDocumentAIService(ctx, ocr.DocumentAIConfig{
			ProjectID:   cfg.GoogleCloudProject,
			Location:    cfg.GoogleCloudLocation,
			ProcessorID: cfg.DocumentAIProcessorID,
		})
	} else {
		ocrService, err = ocr.NewGoogleVisionService(ctx)
	}

	if err != nil {
		if errors.Is(err, ocr.ErrMissingCredentials) {
			log.Error().Err(err).Msg("Google Cloud credentials validation failed")
			return nil, fmt.Errorf("Google Cloud credentials validation failed. Please verify:\n\n"+
				"1. Credentials file exists and is readable\n"+
				"2. JSON format is valid\n"+
				"3. Service account has proper permissions\n\n"+
				"Original error: %w", err)
		}
		log.Error().Err(err).Msg("Failed to create OCR service")
		return nil, fmt.Errorf("failed to create OCR service: %w", err)
	}

	log.Debug().Str("backend", cfg.OCRBackend).Msg("OCR service created successfully")
	return ocrService, nil
}

// handleOCRError provides user-friendly error messages for OCR failures.
func handleOCRError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("OCR processing failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("OCR processing timed out. Try increasing --timeout or processing a smaller file")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("OCR processing was canceled")
	case errors.Is(err, ocr.ErrDocumentTooLarge):
		return fmt.Errorf("document is too large (maximum 20MB). Try compressing or splitting the file")
	case errors.Is(err, ocr.ErrTooManyPages):
		return fmt.Errorf("document has too many pages (maximum 5 pages). Try splitting into smaller files")
	case errors.Is(err, ocr.ErrInvalidDocument):
		return fmt.Errorf("invalid or corrupted document. Please check the file integrity")
	case errors.Is(err, ocr.ErrUnsupportedFormat):
		return fmt.Errorf("unsupported document format. Supported: PDF, PNG, JPEG, TIFF")
	case errors.Is(err, ocr.ErrEmptyDocument):
		return fmt.Errorf("no readable text found in the document. The scan may contain only images or be corrupted")
	case strings.Contains(errStr, "Unauthenticated") ||
		strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "auth:"):
		return fmt.Errorf("Google Cloud authentication failed. Check GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS.\n\nOriginal error: %v", err)
	case strings.Contains(errStr, "PERMISSION_DENIED") ||
		strings.Contains(errStr, "permission") ||
		strings.Contains(errStr, "forbidden"):
		return fmt.Errorf("permission denied. Please ensure your Google Cloud service account has the required API role")
	case strings.Contains(errStr, "QUOTA_EXCEEDED") ||
		strings.Contains(errStr, "quota"):
		return fmt.Errorf("Google Cloud API quota exceeded. Check your project quotas in the Google Cloud Console")
	case errors.Is(err, ocr.ErrOCRFailed):
		return fmt.Errorf("OCR processing failed. This may be due to network issues, API quota limits, or service unavailability: %w", err)
	default:
		return fmt.Errorf("OCR processing failed: %w", err)
	}
}

// writeOCRResults formats and outputs the OCR results.
func writeOCRResults(result *ocr.Result, docPath string, fileSize int, outputPath string, jsonOutput, includeMetadata bool, log zerolog.Logger) error {
	var output strings.Builder
	var outputData []byte
	var err error

	if jsonOutput {
		out := ocrOutput{
			Text:               result.Text,
			FileName:           filepath.Base(docPath),
			FileSize:           fileSize,
			PageCount:          result.PageCount,
			Confidence:         result.Confidence,
			LanguageCodes:      result.LanguageCodes,
			ProcessedAt:        result.ProcessedAt,
			ProcessingDuration: result.ProcessingDuration.String(),
		}

		outputData, err = json.MarshalIndent(out, "", "  ")
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal JSON output")
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
	} else {
		if includeMetadata {
			output.WriteString(fmt.Sprintf("=== OCR Results for %s ===\n", filepath.Base(docPath)))
			output.WriteString(fmt.Sprintf("File size: %d bytes\n", fileSize))
			if result.PageCount > 0 {
				output.WriteString(fmt.Sprintf("Pages processed: %d\n", result.PageCount))
			}
			if result.Confidence > 0 {
				output.WriteString(fmt.Sprintf("Confidence: %.1f%%\n", result.Confidence*100))
			}
			if len(result.LanguageCodes) > 0 {
				output.WriteString(fmt.Sprintf("Languages: %s\n", strings.Join(result.LanguageCodes, ", ")))
			}
			output.WriteString(fmt.Sprintf("Processing time: %v\n", result.ProcessingDuration))
			output.WriteString(fmt.Sprintf("Processed at: %s\n", result.ProcessedAt.Format(time.RFC3339)))
			output.WriteString("\n=== Extracted Text ===\n\n")
		}

		output.WriteString(result.Text)
		outputData = []byte(output.String())
	}

	if outputPath != "" {
		if err = os.WriteFile(outputPath, outputData, 0644); err != nil {
			log.Error().
				Err(err).
				Str("output_file", outputPath).
				Msg("Failed to write output file")
			return fmt.Errorf("failed to write output file: %w", err)
		}

		log.Info().
			Str("output_file", outputPath).
			Int("bytes", len(outputData)).
			Msg("OCR results written to file")
	} else {
		if _, err = os.Stdout.Write(outputData); err != nil {
			log.Error().Err(err).Msg("Failed to write to stdout")
			return fmt.Errorf("failed to write output: %w", err)
		}
		if !jsonOutput {
			fmt.Println()
		}
	}

	return nil
}
