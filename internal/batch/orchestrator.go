package batch

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"imagebatch/internal/csvrows"
	"imagebatch/internal/logger"
	"imagebatch/internal/models"
	"imagebatch/internal/storage"
)

type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// Publisher hands a job to a background consumer.
type Publisher interface {
	Publish(ctx context.Context, job models.Job) error
}

// Options are optional collaborators. A nil Notifier skips the webhook; a nil
// Queue processes batches inside Submit.
type Options struct {
	Notifier Notifier
	Queue    Publisher
}

type Orchestrator struct {
	store    storage.Store
	rows     *RowProcessor
	notifier Notifier
	queue    Publisher
}

func NewOrchestrator(store storage.Store, rows *RowProcessor, opts Options) *Orchestrator {
	return &Orchestrator{
		store:    store,
		rows:     rows,
		notifier: opts.Notifier,
		queue:    opts.Queue,
	}
}

// Submit validates data, creates the request and either runs the batch to
// completion or enqueues it. Validation errors are returned unwrapped and
// leave no request behind.
func (o *Orchestrator) Submit(ctx context.Context, data []byte) (string, error) {
	const op = "batch.Submit"

	rows, err := csvrows.Extract(data)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	if err := o.store.CreateRequest(ctx, id, models.StatusProcessing); err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, models.ErrPersistence, err)
	}
	logger.Log.Info("request created", zap.String("request_id", id), zap.Int("rows", len(rows)))

	if o.queue != nil {
		if err := o.queue.Publish(ctx, models.Job{RequestID: id, Rows: rows}); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		return id, nil
	}

	if _, err := o.Process(ctx, id, rows); err != nil {
		return "", err
	}
	return id, nil
}

// Process runs rows in order and marks the request Completed regardless of
// how many rows succeeded. A persistence error aborts and leaves the request
// in Processing.
func (o *Orchestrator) Process(ctx context.Context, requestID string, rows []models.Row) (models.Summary, error) {
	const op = "batch.Process"

	sum := models.Summary{RequestID: requestID, Rows: len(rows)}
	for _, row := range rows {
		out, err := o.rows.Process(ctx, requestID, row)
		if err != nil {
			return sum, fmt.Errorf("%s: %w", op, err)
		}
		if out.Succeeded() {
			sum.Succeeded++
		} else {
			sum.Failed++
		}
	}

	if err := o.store.SetRequestStatus(ctx, requestID, models.StatusCompleted); err != nil {
		return sum, fmt.Errorf("%s: %w: %w", op, models.ErrPersistence, err)
	}
	logger.Log.Info("request completed",
		zap.String("request_id", requestID),
		zap.Int("rows", sum.Rows),
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
	)

	o.notify(ctx, requestID)
	return sum, nil
}

// HandleJob adapts Process to the queue consumer.
func (o *Orchestrator) HandleJob(ctx context.Context, job models.Job) error {
	_, err := o.Process(ctx, job.RequestID, job.Rows)
	return err
}

func (o *Orchestrator) notify(ctx context.Context, requestID string) {
	if o.notifier == nil {
		return
	}
	n := models.Notification{RequestID: requestID, Status: models.StatusCompleted}
	if err := o.notifier.Notify(ctx, n); err != nil {
		logger.Log.Error("webhook notification failed", zap.String("request_id", requestID), zap.Error(err))
	}
}
