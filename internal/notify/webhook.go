// Package notify posts the final request outcome to a webhook.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"imagebatch/internal/logger"
	"imagebatch/internal/models"
)

const defaultTimeout = 10 * time.Second

type Webhook struct {
	client *resty.Client
	url    string
}

// NewWebhook returns nil when url is empty so callers can skip notification.
func NewWebhook(url string) *Webhook {
	if url == "" {
		return nil
	}
	client := resty.New().
		SetTimeout(defaultTimeout).
		SetHeader("Content-Type", "application/json").
		SetLogger(logger.Log.Sugar())
	return &Webhook{client: client, url: url}
}

func (w *Webhook) Notify(ctx context.Context, n models.Notification) error {
	const op = "notify.Webhook"

	resp, err := w.client.R().SetContext(ctx).SetBody(n).Post(w.url)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode())
	}
	return nil
}
