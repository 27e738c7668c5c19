// Package batch drives one uploaded CSV through image processing and answers
// status and export queries afterwards.
package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"imagebatch/internal/logger"
	"imagebatch/internal/models"
)

// ImageUnit turns one source URL into a stored image reference.
type ImageUnit interface {
	Process(ctx context.Context, url string) (string, error)
	Discard(ctx context.Context, ref string) error
}

type resultWriter interface {
	InsertImageResult(ctx context.Context, res models.ImageResult) error
}

// RowProcessor handles one row all-or-nothing: either every URL is stored and
// one ImageResult is written, or nothing of the row remains.
type RowProcessor struct {
	unit    ImageUnit
	results resultWriter
	workers int
}

func NewRowProcessor(unit ImageUnit, results resultWriter, workers int) *RowProcessor {
	if workers < 1 {
		workers = 1
	}
	return &RowProcessor{unit: unit, results: results, workers: workers}
}

// Process attempts every URL in row.URLs. URL failures are reported in the
// outcome; the returned error is set only when the result could not be
// persisted.
func (p *RowProcessor) Process(ctx context.Context, requestID string, row models.Row) (models.RowOutcome, error) {
	const op = "batch.RowProcessor.Process"

	urls := row.URLs
	refs := make([]string, len(urls))
	errs := make([]error, len(urls))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			ref, err := p.unit.Process(ctx, u)
			if err != nil {
				errs[i] = err
				return nil
			}
			refs[i] = ref
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		p.discard(ctx, refs)
		logger.Log.Warn("row failed",
			zap.String("request_id", requestID),
			zap.Int("line", row.Line),
			zap.Error(err),
		)
		return models.RowOutcome{Line: row.Line, Err: err}, nil
	}

	res := models.ImageResult{
		RequestID: requestID,
		InputURL:  row.InputURLs,
		OutputURL: strings.Join(refs, ","),
	}
	if err := p.results.InsertImageResult(ctx, res); err != nil {
		p.discard(ctx, refs)
		return models.RowOutcome{Line: row.Line, Err: err}, fmt.Errorf("%s: %w: %w", op, models.ErrPersistence, err)
	}

	logger.Log.Debug("row processed",
		zap.String("request_id", requestID),
		zap.Int("line", row.Line),
		zap.Int("images", len(refs)),
	)
	return models.RowOutcome{Line: row.Line, OutputURL: res.OutputURL}, nil
}

func (p *RowProcessor) discard(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if err := p.unit.Discard(ctx, ref); err != nil {
			logger.Log.Warn("failed to discard image", zap.String("ref", ref), zap.Error(err))
		}
	}
}
