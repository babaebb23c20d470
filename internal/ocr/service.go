// Package ocr provides OCR (Optical Character Recognition) capabilities for
// prescription images and PDF documents.
//
// Two backends implement the Service interface: Google Cloud Vision
// (default) and a Google Document AI OCR processor. Both accept inline
// document bytes and return the recognized text with confidence metadata.
//
// Required Environment Variables:
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//
// API Limitations:
//   - Maximum file size: 20MB for synchronous processing
//   - Maximum pages: 5 pages for synchronous PDF processing (Vision)
//   - Supported formats: PDF, TIFF, PNG, JPEG
package ocr

import (
	"context"
	"io"
	"time"
)

// Supported document MIME types.
const (
	MimePDF  = "application/pdf"
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
	MimeTIFF = "image/tiff"
)

// Service defines the interface for OCR text extraction services.
type Service interface {
	// ProcessDocument extracts text from an image or PDF document.
	// mimeType must be one of the supported document MIME types.
	ProcessDocument(ctx context.Context, doc io.Reader, mimeType string) (string, error)

	// ProcessDocumentWithMetadata extracts text with additional metadata,
	// including the average recognition confidence.
	ProcessDocumentWithMetadata(ctx context.Context, doc io.Reader, mimeType string) (*Result, error)
}

// Result contains the results of OCR processing with metadata.
type Result struct {
	// Text is the recognized text from all pages, in reading order.
	Text string `json:"text"`

	// PageCount is the number of pages that were processed. Always 1 for
	// single images.
	PageCount int `json:"page_count"`

	// Confidence is the average confidence score across all detected text
	// (0.0 to 1.0).
	Confidence float32 `json:"confidence"`

	// ProcessedAt is the timestamp when the OCR processing completed.
	ProcessedAt time.Time `json:"processed_at"`

	// LanguageCodes contains the detected languages in the document.
	LanguageCodes []string `json:"language_codes,omitempty"`

	// ProcessingDuration is how long the OCR processing took.
	ProcessingDuration time.Duration `json:"processing_duration"`
}

// SupportedMimeType reports whether the gateway accepts the given MIME type.
func SupportedMimeType(mimeType string) bool {
	switch mimeType {
	case MimePDF, MimePNG, MimeJPEG, MimeTIFF:
		return true
	}
	return false
}
