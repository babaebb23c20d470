package ocr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"rxtract/internal/logger"
)

// DocumentAIConfig holds configuration for the Document AI OCR backend.
type DocumentAIConfig struct {
	// ProjectID is the Google Cloud project ID where Document AI is enabled.
	ProjectID string

	// Location is the processing location (e.g., "us", "eu"). Should match
	// where the processor was created.
	Location string

	// ProcessorID is the Document AI OCR processor ID.
	ProcessorID string

	// Timeout is the maximum time to wait for processing. Default: 60s.
	Timeout time.Duration
}

// DocumentAIService implements Service using a Google Document AI OCR
// processor. It is an alternative gateway backend to Cloud Vision.
type DocumentAIService struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIService creates the service with credentials from environment.
// Expects: GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS.
func NewDocumentAIService(ctx context.Context, config DocumentAIConfig) (Service, error) {
	const op = "NewDocumentAIService"

	if config.ProjectID == "" || config.ProcessorID == "" {
		return nil, WrapOCRError(op, ErrOCRFailed, "project ID and processor ID are required")
	}
	if config.Location == "" {
		config.Location = "us"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	var clientOptions []option.ClientOption

	// Regional endpoint for non-US locations
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(credFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if len(clientOptions) == 0 {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapOCRError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return &DocumentAIService{
		client: client,
		config: config,
		log:    logger.WithComponent("document-ai"),
	}, nil
}

// NewDocumentAIServiceWithClient creates the service with an explicit client (for testing).
func NewDocumentAIServiceWithClient(config DocumentAIConfig, client *documentai.DocumentProcessorClient) Service {
	return &DocumentAIService{
		client: client,
		config: config,
		log:    logger.WithComponent("document-ai"),
	}
}

// ProcessDocument extracts text from an image or PDF document.
func (s *DocumentAIService) ProcessDocument(ctx context.Context, doc io.Reader, mimeType string) (string, error) {
	result, err := s.ProcessDocumentWithMetadata(ctx, doc, mimeType)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// ProcessDocumentWithMetadata extracts text with confidence metadata.
func (s *DocumentAIService) ProcessDocumentWithMetadata(ctx context.Context, doc io.Reader, mimeType string) (*Result, error) {
	const op = "ProcessDocumentWithMetadata"
	startTime := time.Now()

	if !SupportedMimeType(mimeType) {
		return nil, WrapOCRError(op, ErrUnsupportedFormat, mimeType)
	}

	data, err := io.ReadAll(doc)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to read document data")
	}

	if len(data) > MaxFileSizeBytes {
		return nil, WrapOCRError(op, ErrDocumentTooLarge, fmt.Sprintf("file size: %d bytes", len(data)))
	}

	if mimeType == MimePDF && (len(data) < 4 || string(data[:4]) != "%PDF") {
		return nil, WrapOCRError(op, ErrInvalidDocument, "missing PDF header")
	}

	processCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: s.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: mimeType,
			},
		},
	}

	s.log.Debug().
		Str("processor", s.processorName()).
		Str("mime_type", mimeType).
		Int("size", len(data)).
		Msg("Submitting document to Document AI")

	resp, err := s.client.ProcessDocument(processCtx, req)
	if err != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Document AI call failed: %v", err))
	}

	document := resp.GetDocument()
	if document == nil || strings.TrimSpace(document.GetText()) == "" {
		return nil, ErrEmptyDocument
	}

	pages := document.GetPages()
	var confidenceSum float32
	var confidenceCount int
	languageSet := make(map[string]bool)
	for _, page := range pages {
		if layout := page.GetLayout(); layout != nil && layout.GetConfidence() > 0 {
			confidenceSum += layout.GetConfidence()
			confidenceCount++
		}
		for _, lang := range page.GetDetectedLanguages() {
			if lang.GetLanguageCode() != "" {
				languageSet[lang.GetLanguageCode()] = true
			}
		}
	}

	var avgConfidence float32
	if confidenceCount > 0 {
		avgConfidence = confidenceSum / float32(confidenceCount)
	}

	processedAt := time.Now()
	return &Result{
		Text:               document.GetText(),
		PageCount:          len(pages),
		Confidence:         avgConfidence,
		LanguageCodes:      languageCodes(languageSet),
		ProcessedAt:        processedAt,
		ProcessingDuration: processedAt.Sub(startTime),
	}, nil
}

// processorName builds the fully-qualified Document AI processor resource name.
func (s *DocumentAIService) processorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		s.config.ProjectID, s.config.Location, s.config.ProcessorID)
}

// Close closes the underlying Document AI client.
func (s *DocumentAIService) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
