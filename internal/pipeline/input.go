package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rxtract/internal/ocr"
)

const fetchTimeout = 30 * time.Second

var extensionMimeTypes = map[string]string{
	".pdf":  ocr.MimePDF,
	".png":  ocr.MimePNG,
	".jpg":  ocr.MimeJPEG,
	".jpeg": ocr.MimeJPEG,
	".tif":  ocr.MimeTIFF,
	".tiff": ocr.MimeTIFF,
}

// LoadDocument reads a local file and determines its MIME type from the
// extension.
func LoadDocument(path string) ([]byte, string, error) {
	mimeType, ok := extensionMimeTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, "", &InputError{Source: path, Err: fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(path))}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", &InputError{Source: path, Err: ErrFileNotFound}
		}
		return nil, "", &InputError{Source: path, Err: err}
	}
	return data, mimeType, nil
}

// FetchDocument downloads a document from a URL. The MIME type comes from
// the Content-Type header, falling back to the URL path extension.
func FetchDocument(ctx context.Context, url string) ([]byte, string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", &InputError{Source: url, Err: err}
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", &InputError{Source: url, Err: fmt.Errorf("%w: %v", ErrFetchFailed, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", &InputError{Source: url, Err: fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, ocr.MaxFileSizeBytes+1))
	if err != nil {
		return nil, "", &InputError{Source: url, Err: err}
	}

	mimeType := resp.Header.Get("Content-Type")
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if !ocr.SupportedMimeType(mimeType) {
		if fromExt, ok := extensionMimeTypes[strings.ToLower(filepath.Ext(url))]; ok {
			mimeType = fromExt
		} else {
			return nil, "", &InputError{Source: url, Err: fmt.Errorf("%w: %s", ErrUnsupportedFile, mimeType)}
		}
	}
	return data, mimeType, nil
}
