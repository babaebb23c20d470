// Package extract implements the four field extractors that turn raw OCR
// text into per-field candidates: regex patterns, named-entity recognition,
// a single prompted model call, and a chained two-step model call. Each
// extractor produces a full schema.ExtractionResult; fields it cannot fill
// stay absent.
package extract

import (
	"context"
	"fmt"
	"sync"

	"rxtract/internal/logger"
	"rxtract/internal/schema"
)

// Extractor produces a full extraction result from OCR text. Implementations
// must return a result with every schema field represented, marking the ones
// they could not fill as absent. An error means the extractor could not run
// at all; RunAll converts that into an all-absent result from the same source.
type Extractor interface {
	// Source identifies the extractor in merge provenance.
	Source() string

	// Extract analyzes the text and returns per-field candidates.
	Extract(ctx context.Context, text string) (*schema.ExtractionResult, error)
}

// RunAll runs every extractor concurrently against the same text and returns
// one result per extractor, in the order given. A failing or panicking
// extractor contributes an all-absent result instead of aborting the run;
// failures never propagate past this point.
func RunAll(ctx context.Context, text string, extractors []Extractor) []*schema.ExtractionResult {
	log := logger.WithComponent("extract")

	results := make([]*schema.ExtractionResult, len(extractors))
	var wg sync.WaitGroup

	for i, ex := range extractors {
		wg.Add(1)
		go func(i int, ex Extractor) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Str("source", ex.Source()).
						Str("panic", fmt.Sprint(r)).
						Msg("Extractor panicked, using empty result")
					results[i] = schema.NewResult(ex.Source())
				}
			}()

			result, err := ex.Extract(ctx, text)
			if err != nil {
				log.Warn().
					Str("source", ex.Source()).
					Err(err).
					Msg("Extractor failed, using empty result")
				results[i] = schema.NewResult(ex.Source())
				return
			}
			results[i] = result
		}(i, ex)
	}

	wg.Wait()
	return results
}
