package batch

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"

	"imagebatch/internal/models"
	"imagebatch/internal/storage"
)

var exportHeader = []string{"request_id", "input_url", "output_url"}

type Reader struct {
	store storage.Store
}

func NewReader(store storage.Store) *Reader {
	return &Reader{store: store}
}

func (r *Reader) GetStatus(ctx context.Context, id string) (models.Request, error) {
	const op = "batch.GetStatus"

	req, err := r.store.GetRequestStatus(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Request{}, fmt.Errorf("%s: %w", op, err)
		}
		return models.Request{}, fmt.Errorf("%s: %w: %w", op, models.ErrPersistence, err)
	}
	return req, nil
}

// Export renders every stored result of id as CSV. An id without results is
// reported as not found whether or not the request exists.
func (r *Reader) Export(ctx context.Context, id string) ([]byte, error) {
	const op = "batch.Export"

	results, err := r.store.GetImageResults(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrPersistence, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, res := range results {
		if err := w.Write([]string{res.RequestID, res.InputURL, res.OutputURL}); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return buf.Bytes(), nil
}
