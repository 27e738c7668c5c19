// Package queue carries batch jobs over Kafka when uploads are processed
// asynchronously.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"imagebatch/internal/logger"
	"imagebatch/internal/models"
)

const (
	consumerGroup = "image-batch-group"
	readBackoff   = time.Second
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Producer struct {
	w messageWriter
}

func NewProducer(broker, topic string) *Producer {
	return &Producer{w: kafka.NewWriter(kafka.WriterConfig{
		Brokers: []string{broker},
		Topic:   topic,
	})}
}

// Publish enqueues job keyed by its request id.
func (p *Producer) Publish(ctx context.Context, job models.Job) error {
	const op = "queue.Publish"

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{Key: []byte(job.RequestID), Value: data}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.w.Close()
}

// Handler processes one job. Errors are logged by the consumer.
type Handler func(ctx context.Context, job models.Job) error

type Consumer struct {
	r messageReader
}

func NewConsumer(broker, topic string) *Consumer {
	return &Consumer{r: kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{broker},
		Topic:   topic,
		GroupID: consumerGroup,
	})}
}

// Run handles jobs one at a time until ctx is canceled. A job already
// handed to h runs to completion: h gets a context that is not canceled
// with ctx, since the message offset is already committed.
func (c *Consumer) Run(ctx context.Context, h Handler) error {
	for {
		msg, err := c.r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			logger.Log.Error("error reading message", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(readBackoff):
			}
			continue
		}

		var job models.Job
		if err := json.Unmarshal(msg.Value, &job); err != nil {
			logger.Log.Error("dropping undecodable job", zap.ByteString("key", msg.Key), zap.Error(err))
			continue
		}
		if err := h(context.WithoutCancel(ctx), job); err != nil {
			logger.Log.Error("error processing job", zap.String("request_id", job.RequestID), zap.Error(err))
		}
	}
}

func (c *Consumer) Close() error {
	return c.r.Close()
}
