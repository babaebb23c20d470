package ocr_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"rxtract/internal/ocr"
)

// Example demonstrates basic usage of the OCR service.
func Example() {
	// Credentials are read from the environment; load your .env in main()
	// with godotenv before calling this.

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ocrService, err := ocr.NewGoogleVisionService(ctx)
	if err != nil {
		log.Fatalf("Failed to create OCR service: %v", err)
	}

	scanFile, err := os.Open("sample_prescription.png")
	if err != nil {
		log.Fatalf("Failed to open scan: %v", err)
	}
	defer scanFile.Close()

	text, err := ocrService.ProcessDocument(ctx, scanFile, ocr.MimePNG)
	if err != nil {
		log.Fatalf("Failed to process scan: %v", err)
	}

	fmt.Printf("Extracted text (%d characters):\n%s\n", len(text), text)
}

// Example_withMetadata demonstrates OCR processing with detailed metadata.
func Example_withMetadata() {
	ctx := context.Background()

	ocrService, err := ocr.NewGoogleVisionService(ctx)
	if err != nil {
		log.Fatalf("Failed to create OCR service: %v", err)
	}

	scanFile, err := os.Open("sample_prescription.pdf")
	if err != nil {
		log.Fatalf("Failed to open scan: %v", err)
	}
	defer scanFile.Close()

	result, err := ocrService.ProcessDocumentWithMetadata(ctx, scanFile, ocr.MimePDF)
	if err != nil {
		log.Fatalf("Failed to process scan: %v", err)
	}

	fmt.Printf("Pages: %d\n", result.PageCount)
	fmt.Printf("Confidence: %.1f%%\n", result.Confidence*100)
	fmt.Printf("Languages: %v\n", result.LanguageCodes)
	fmt.Printf("Duration: %v\n", result.ProcessingDuration)
	fmt.Printf("Text:\n%s\n", result.Text)
}

// Example_documentAI demonstrates the Document AI backend, selected with
// OCR_BACKEND=documentai.
func Example_documentAI() {
	ctx := context.Background()

	ocrService, err := ocr.NewDocumentAIService(ctx, ocr.DocumentAIConfig{
		ProjectID:   os.Getenv("GOOGLE_CLOUD_PROJECT"),
		Location:    os.Getenv("GOOGLE_CLOUD_LOCATION"),
		ProcessorID: os.Getenv("DOCUMENT_AI_PROCESSOR_ID"),
	})
	if err != nil {
		log.Fatalf("Failed to create OCR service: %v", err)
	}

	scanFile, err := os.Open("sample_prescription.jpg")
	if err != nil {
		log.Fatalf("Failed to open scan: %v", err)
	}
	defer scanFile.Close()

	text, err := ocrService.ProcessDocument(ctx, scanFile, ocr.MimeJPEG)
	if err != nil {
		log.Fatalf("Failed to process scan: %v", err)
	}

	fmt.Println(text)
}
