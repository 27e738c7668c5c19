package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imagebatch/internal/batch"
	"imagebatch/internal/models"
	"imagebatch/internal/storage"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

// fakeReader replays msgs and then blocks until the context is canceled.
type fakeReader struct {
	msgs []kafka.Message
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeReader) Close() error { return nil }

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{w: w}

	job := models.Job{RequestID: "r1", Rows: []models.Row{{Line: 1, InputURLs: "a,b", URLs: []string{"a", "b"}}}}
	require.NoError(t, p.Publish(context.Background(), job))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "r1", string(w.msgs[0].Key))

	var got models.Job
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, job, got)

	w.err = errors.New("broker down")
	assert.Error(t, p.Publish(context.Background(), job))
}

func TestConsumer_Run(t *testing.T) {
	good, err := json.Marshal(models.Job{RequestID: "r1"})
	require.NoError(t, err)
	failing, err := json.Marshal(models.Job{RequestID: "r2"})
	require.NoError(t, err)
	last, err := json.Marshal(models.Job{RequestID: "r3"})
	require.NoError(t, err)

	r := &fakeReader{msgs: []kafka.Message{
		{Value: good},
		{Value: []byte("{not json")},
		{Value: failing},
		{Value: last},
	}}
	c := &Consumer{r: r}

	ctx, cancel := context.WithCancel(context.Background())
	var seen []string
	err = c.Run(ctx, func(_ context.Context, job models.Job) error {
		seen = append(seen, job.RequestID)
		if job.RequestID == "r2" {
			return errors.New("boom")
		}
		if job.RequestID == "r3" {
			cancel()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2", "r3"}, seen)
}

func TestConsumer_Run_JobOutlivesShutdown(t *testing.T) {
	job, err := json.Marshal(models.Job{RequestID: "r1"})
	require.NoError(t, err)
	c := &Consumer{r: &fakeReader{msgs: []kafka.Message{{Value: job}}}}

	ctx, cancel := context.WithCancel(context.Background())
	handled := false
	err = c.Run(ctx, func(jobCtx context.Context, _ models.Job) error {
		cancel()
		assert.NoError(t, jobCtx.Err())
		handled = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, handled)
}

// ctxUnit fails once its context is done, like a real fetch would.
type ctxUnit struct {
	onFirst func()
	calls   int
}

func (u *ctxUnit) Process(ctx context.Context, url string) (string, error) {
	u.calls++
	if u.calls == 1 && u.onFirst != nil {
		u.onFirst()
	}
	if err := ctx.Err(); err != nil {
		return "", &models.ImageError{Kind: models.ErrFetch, URL: url, Err: err}
	}
	return "out/" + url, nil
}

func (u *ctxUnit) Discard(context.Context, string) error { return nil }

func TestConsumer_Run_ShutdownDoesNotDropRows(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := storage.NewMemory()
	require.NoError(t, store.CreateRequest(ctx, "r1", models.StatusProcessing))
	unit := &ctxUnit{onFirst: cancel}
	orch := batch.NewOrchestrator(store, batch.NewRowProcessor(unit, store, 1), batch.Options{})

	job, err := json.Marshal(models.Job{RequestID: "r1", Rows: []models.Row{
		{Line: 1, InputURLs: "a.jpg", URLs: []string{"a.jpg"}},
		{Line: 2, InputURLs: "b.jpg", URLs: []string{"b.jpg"}},
	}})
	require.NoError(t, err)
	c := &Consumer{r: &fakeReader{msgs: []kafka.Message{{Value: job}}}}

	require.NoError(t, c.Run(ctx, orch.HandleJob))

	req, err := store.GetRequestStatus(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, req.Status)

	results, err := store.GetImageResults(context.Background(), "r1")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
