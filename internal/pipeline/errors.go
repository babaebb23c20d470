package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors for document intake and the OCR gateway.
var (
	ErrFileNotFound    = errors.New("file not found")
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrFetchFailed     = errors.New("failed to fetch document URL")
	ErrEmptyText       = errors.New("OCR produced no text")
)

// InputError means the document could not be read at all. Fatal for the
// document, surfaced to the caller.
type InputError struct {
	Source string
	Err    error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input error [%s]: %v", e.Source, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// GatewayError means the OCR call failed. Fatal for the document; distinct
// from a record that is merely mostly absent.
type GatewayError struct {
	Source string
	Err    error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("OCR gateway error [%s]: %v", e.Source, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
