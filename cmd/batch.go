package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	neturl "net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"rxtract/internal/logger"
	"rxtract/internal/pipeline"
	"rxtract/internal/validate"
	"rxtract/pkg/models"
)

var batchCmd = &cobra.Command{
	Use:   "batch [sources...]",
	Short: "Extract structured data from a set of prescription scans",
	Long: `Process documents (PDF, PNG, JPEG, TIFF) through the full extraction
pipeline and write one JSON result file per document. Each source may be a
folder (scanned recursively), a single file, or an http(s) URL.

Documents are distributed over a worker pool; the external model calls are
still spaced by the shared rate limiter, so more workers speed up OCR and
rule-based extraction without violating the provider's quota.

Required environment variables:
  OPENAI_API_KEY - OpenAI API key for the model-backed extractors
  GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS - OCR credentials

Optional environment variables:
  BATCH_WORKERS - Number of parallel workers (default: 4)`,
	Example: `  # Process all scans in a folder, writing results next to the inputs
  rxtract batch ./scans

  # Mix folders, files and URLs; write results into one directory
  rxtract batch ./scans extra.pdf https://example.com/scan.jpg --out-dir ./results

  # Rule-based extraction only, no model calls
  rxtract batch ./scans --offline`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

// batchResult is the outcome of processing one document.
type batchResult struct {
	Filename string
	Output   *models.ExtractionOutput
	Error    error
	Status   string // "success", "warning", "error"
	Index    int
}

// batchJob is one document in the queue.
type batchJob struct {
	FilePath string
	Index    int
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("out-dir", "", "Directory for result JSON files (default: next to inputs)")
	batchCmd.Flags().Bool("require-name", false, "Flag records without a patient name as warnings")
	batchCmd.Flags().Bool("offline", false, "Skip the model-backed extractors")
	batchCmd.Flags().Bool("verbose", false, "Show detailed processing information")
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("batch")

	outDir, _ := cmd.Flags().GetString("out-dir")
	requireName, _ := cmd.Flags().GetBool("require-name")
	offline, _ := cmd.Flags().GetBool("offline")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if outDir != "" {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	cfg, err := loadExtractConfig(offline)
	if err != nil {
		return err
	}

	log.Info().
		Strs("sources", args).
		Str("out_dir", outDir).
		Bool("offline", offline).
		Int("workers", cfg.BatchWorkers).
		Msg("Starting batch extraction")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
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
	})

	docFiles, err := collectBatchSources(args)
	if err != nil {
		return err
	}
	if len(docFiles) == 0 {
		fmt.Println("No supported documents found.")
		return nil
	}

	fmt.Printf("Processing %d documents with %d parallel workers...\n\n", len(docFiles), cfg.BatchWorkers)

	results := processDocumentsInParallel(ctx, docFiles, p, cfg.BatchWorkers, log, verbose)

	fmt.Println()

	successCount := 0
	warningCount := 0
	errorCount := 0
	for _, result := range results {
		switch result.Status {
		case "success":
			successCount++
		case "warning":
			warningCount++
		case "error":
			errorCount++
		}
	}

	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Succeeded: %d\n", successCount)
	if warningCount > 0 {
		fmt.Printf("With warnings: %d\n", warningCount)
	}
	if errorCount > 0 {
		fmt.Printf("Failed: %d\n", errorCount)
	}
	fmt.Println(strings.Repeat("=", 50))

	if err := writeBatchOutputs(results, docFiles, outDir, log); err != nil {
		return err
	}

	log.Info().
		Int("total", len(docFiles)).
		Int("success", successCount).
		Int("warnings", warningCount).
		Int("errors", errorCount).
		Msg("Batch extraction completed")

	return nil
}

// isURLSource reports whether a batch source is an http(s) URL.
func isURLSource(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// collectBatchSources expands the argument list into concrete documents.
// Folders are walked recursively for supported files; single files and URLs
// pass through unchanged.
func collectBatchSources(args []string) ([]string, error) {
	var docFiles []string
	for _, arg := range args {
		if isURLSource(arg) {
			docFiles = append(docFiles, arg)
			continue
		}

		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("source not found: %s", arg)
		}
		if !info.IsDir() {
			docFiles = append(docFiles, arg)
			continue
		}

		found, err := findDocumentFiles(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to scan folder %s: %w", arg, err)
		}
		docFiles = append(docFiles, found...)
	}
	return docFiles, nil
}

// findDocumentFiles collects all supported documents in the folder.
func findDocumentFiles(folderPath string) ([]string, error) {
	supported := map[string]bool{
		".pdf": true, ".png": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true,
	}

	var docFiles []string
	err := filepath.Walk(folderPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && supported[strings.ToLower(filepath.Ext(info.Name()))] {
			docFiles = append(docFiles, path)
		}
		return nil
	})

	return docFiles, err
}

// processSingleDocument runs the pipeline on one source and classifies the
// outcome.
func processSingleDocument(ctx context.Context, docPath string, p *pipeline.Pipeline, log zerolog.Logger, verbose bool) batchResult {
	result := batchResult{Status: "error"}

	var pipelineResult *pipeline.Result
	var err error
	if isURLSource(docPath) {
		pipelineResult, err = p.ProcessURL(ctx, docPath)
	} else {
		pipelineResult, err = p.ProcessFile(ctx, docPath)
	}

	var validationErr *validate.ValidationError
	if err != nil && !errors.As(err, &validationErr) {
		result.Error = err
		return result
	}

	result.Output = pipelineResult.Output
	result.Status = "success"
	if validationErr != nil {
		result.Error = validationErr
		result.Status = "warning"
	}

	if verbose && result.Output != nil {
		log.Info().
			Str("file", filepath.Base(docPath)).
			Float64("accuracy", result.Output.Metadata.Accuracy).
			Int("completed_fields", result.Output.CompletionStatus.CompletedFields).
			Msg("Document processed")
	}

	return result
}

// processDocumentsInParallel distributes documents over a worker pool.
func processDocumentsInParallel(ctx context.Context, docFiles []string, p *pipeline.Pipeline, numWorkers int, log zerolog.Logger, verbose bool) []batchResult {
	jobs := make(chan batchJob, len(docFiles))
	results := make([]batchResult, len(docFiles))

	var processedCount int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for job := range jobs {
				log.Debug().
					Int("worker", workerID).
					Str("file", job.FilePath).
					Int("index", job.Index+1).
					Msg("Worker processing document")

				result := processSingleDocument(ctx, job.FilePath, p, log, verbose)
				result.Index = job.Index
				result.Filename = filepath.Base(job.FilePath)

				results[job.Index] = result

				mu.Lock()
				processedCount++
				currentCount := processedCount
				mu.Unlock()

				status := statusMarker(result.Status)
				mu.Lock()
				fmt.Printf("[%d/%d] %s - %s", currentCount, len(docFiles), filepath.Base(job.FilePath), status)
				if result.Error != nil {
					fmt.Printf(" (%s)", result.Error.Error())
				} else if result.Output != nil {
					fmt.Printf(" (accuracy %.2f)", result.Output.Metadata.Accuracy)
				}
				fmt.Println()
				mu.Unlock()
			}
		}(w)
	}

	for i, docFile := range docFiles {
		jobs <- batchJob{
			FilePath: docFile,
			Index:    i,
		}
	}
	close(jobs)

	wg.Wait()

	return results
}

// writeBatchOutputs saves one JSON file per successfully processed document.
func writeBatchOutputs(results []batchResult, docFiles []string, outDir string, log zerolog.Logger) error {
	written := 0
	for _, result := range results {
		if result.Output == nil {
			continue
		}

		docPath := docFiles[result.Index]
		base := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath))
		dir := filepath.Dir(docPath)
		if isURLSource(docPath) {
			// Fetched documents have no input folder; name the result
			// after the last URL path segment and write it locally.
			dir = "."
			if u, err := neturl.Parse(docPath); err == nil {
				base = strings.TrimSuffix(path.Base(u.Path), path.Ext(u.Path))
			}
			if base == "" || base == "." || base == "/" {
				base = fmt.Sprintf("document-%d", result.Index+1)
			}
		}
		outPath := filepath.Join(dir, base+".json")
		if outDir != "" {
			outPath = filepath.Join(outDir, base+".json")
		}

		data, err := json.MarshalIndent(result.Output, "", "  ")
		if err != nil {
			log.Warn().Err(err).Str("file", result.Filename).Msg("Failed to marshal result")
			continue
		}
		if err := os.WriteFile(outPath, data, 0644); err != nil {
			log.Warn().Err(err).Str("file", outPath).Msg("Failed to write result file")
			continue
		}
		written++
	}

	fmt.Printf("Result files written: %d\n", written)
	return nil
}

// statusMarker returns a marker for the processing status.
func statusMarker(status string) string {
	switch status {
	case "success":
		return "✅"
	case "warning":
		return "⚠️"
	case "error":
		return "❌"
	default:
		return "❓"
	}
}
