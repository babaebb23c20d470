package ocr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

const (
	// MaxFileSizeBytes is the maximum file size for synchronous processing (20MB)
	MaxFileSizeBytes = 20 * 1024 * 1024

	// MaxPagesSync is the maximum number of pages for synchronous PDF processing
	MaxPagesSync = 5
)

// GoogleVisionService implements Service using Google Cloud Vision API.
type GoogleVisionService struct {
	client *vision.ImageAnnotatorClient
}

// NewGoogleVisionService creates a new OCR service with credentials from
// environment. It expects either GOOGLE_APPLICATION_CREDENTIALS path or
// GOOGLE_CREDENTIALS JSON in env.
func NewGoogleVisionService(ctx context.Context) (Service, error) {
	const op = "NewGoogleVisionService"

	var client *vision.ImageAnnotatorClient
	var err error

	// Check for inline credentials first
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		// Use credentials file
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		// Try default credentials as fallback
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return &GoogleVisionService{
		client: client,
	}, nil
}

// NewGoogleVisionServiceWithClient creates a new OCR service with an explicit client (for testing).
func NewGoogleVisionServiceWithClient(client *vision.ImageAnnotatorClient) Service {
	return &GoogleVisionService{
		client: client,
	}
}

// ProcessDocument extracts text from an image or PDF document.
func (g *GoogleVisionService) ProcessDocument(ctx context.Context, doc io.Reader, mimeType string) (string, error) {
	result, err := g.ProcessDocumentWithMetadata(ctx, doc, mimeType)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// ProcessDocumentWithMetadata extracts text from an image or PDF document
// with additional metadata.
func (g *GoogleVisionService) ProcessDocumentWithMetadata(ctx context.Context, doc io.Reader, mimeType string) (*Result, error) {
	const op = "ProcessDocumentWithMetadata"
	startTime := time.Now()

	if !SupportedMimeType(mimeType) {
		return nil, WrapOCRError(op, ErrUnsupportedFormat, mimeType)
	}

	data, err := io.ReadAll(doc)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to read document data")
	}

	// Validate file size
	if len(data) > MaxFileSizeBytes {
		return nil, WrapOCRError(op, ErrDocumentTooLarge, fmt.Sprintf("file size: %d bytes", len(data)))
	}

	var result *Result
	switch mimeType {
	case MimePDF, MimeTIFF:
		result, err = g.processFile(ctx, data, mimeType)
	default:
		result, err = g.processImage(ctx, data)
	}
	if err != nil {
		return nil, WrapOCRError(op, err, "")
	}

	result.ProcessedAt = time.Now()
	result.ProcessingDuration = result.ProcessedAt.Sub(startTime)
	return result, nil
}

// processFile runs document text detection over a multi-page file (PDF or
// TIFF) using inline content.
func (g *GoogleVisionService) processFile(ctx context.Context, data []byte, mimeType string) (*Result, error) {
	const op = "processFile"

	if mimeType == MimePDF && (len(data) < 4 || string(data[:4]) != "%PDF") {
		return nil, WrapOCRError(op, ErrInvalidDocument, "missing PDF header")
	}

	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{
					Content:  data,
					MimeType: mimeType,
				},
				Features: []*visionpb.Feature{
					{
						Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION,
					},
				},
				Pages: nil, // Process all pages
			},
		},
	}

	resp, err := g.client.BatchAnnotateFiles(ctx, req)
	if err != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}

	if len(resp.Responses) == 0 {
		return nil, WrapOCRError(op, ErrOCRFailed, "no response from Vision API")
	}

	fileResp := resp.Responses[0]
	if fileResp.Error != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", fileResp.Error.Message))
	}

	return g.processFileResponse(fileResp)
}

// processImage runs document text detection over a single image.
func (g *GoogleVisionService) processImage(ctx context.Context, data []byte) (*Result, error) {
	const op = "processImage"

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: data},
				Features: []*visionpb.Feature{
					{
						Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION,
					},
				},
			},
		},
	}

	resp, err := g.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}

	if len(resp.Responses) == 0 {
		return nil, WrapOCRError(op, ErrOCRFailed, "no response from Vision API")
	}

	imgResp := resp.Responses[0]
	if imgResp.Error != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", imgResp.Error.Message))
	}

	annotation := imgResp.FullTextAnnotation
	if annotation == nil || strings.TrimSpace(annotation.Text) == "" {
		return nil, ErrEmptyDocument
	}

	var confidenceSum float32
	var confidenceCount int
	languageSet := make(map[string]bool)
	for _, page := range annotation.Pages {
		if page.Confidence > 0 {
			confidenceSum += page.Confidence
			confidenceCount++
		}
		if page.Property != nil {
			for _, lang := range page.Property.DetectedLanguages {
				if lang.LanguageCode != "" {
					languageSet[lang.LanguageCode] = true
				}
			}
		}
	}

	var avgConfidence float32
	if confidenceCount > 0 {
		avgConfidence = confidenceSum / float32(confidenceCount)
	}

	return &Result{
		Text:          annotation.Text,
		PageCount:     1,
		Confidence:    avgConfidence,
		LanguageCodes: languageCodes(languageSet),
	}, nil
}

// processFileResponse aggregates per-page responses into a single Result.
func (g *GoogleVisionService) processFileResponse(fileResp *visionpb.AnnotateFileResponse) (*Result, error) {
	if len(fileResp.Responses) == 0 {
		return nil, ErrEmptyDocument
	}

	var allText strings.Builder
	var confidenceSum float32
	var confidenceCount int
	languageSet := make(map[string]bool)
	pageCount := len(fileResp.Responses)

	// Check page limit
	if pageCount > MaxPagesSync {
		return nil, WrapOCRError("processFileResponse", ErrTooManyPages, fmt.Sprintf("document has %d pages", pageCount))
	}

	for pageIdx, page := range fileResp.Responses {
		if page.Error != nil {
			return nil, fmt.Errorf("error processing page %d: %s", pageIdx+1, page.Error.Message)
		}

		if page.FullTextAnnotation == nil {
			continue
		}

		// Add page separator (except for first page)
		if pageIdx > 0 {
			allText.WriteString("\n\n--- Page ")
			allText.WriteString(fmt.Sprintf("%d", pageIdx+1))
			allText.WriteString(" ---\n\n")
		}

		allText.WriteString(page.FullTextAnnotation.Text)

		// Collect confidence scores from text annotations
		for _, textAnnotation := range page.TextAnnotations {
			if textAnnotation.Confidence > 0 {
				confidenceSum += textAnnotation.Confidence
				confidenceCount++
			}
		}

		// Collect language information
		for _, pageInfo := range page.FullTextAnnotation.Pages {
			if pageInfo.Property == nil {
				continue
			}
			for _, lang := range pageInfo.Property.DetectedLanguages {
				if lang.LanguageCode != "" {
					languageSet[lang.LanguageCode] = true
				}
			}
		}
	}

	var avgConfidence float32
	if confidenceCount > 0 {
		avgConfidence = confidenceSum / float32(confidenceCount)
	}

	extractedText := allText.String()
	if strings.TrimSpace(extractedText) == "" {
		return nil, ErrEmptyDocument
	}

	return &Result{
		Text:          extractedText,
		PageCount:     pageCount,
		Confidence:    avgConfidence,
		LanguageCodes: languageCodes(languageSet),
	}, nil
}

func languageCodes(set map[string]bool) []string {
	var languages []string
	for lang := range set {
		languages = append(languages, lang)
	}
	return languages
}

// Close closes the underlying Vision client.
func (g *GoogleVisionService) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
