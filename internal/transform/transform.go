// Package transform fetches a source image, recompresses it as JPEG and
// hands the result to a blob store.
package transform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-resty/resty/v2"
	_ "golang.org/x/image/webp"

	"imagebatch/internal/logger"
	"imagebatch/internal/models"
)

// Quality is the JPEG quality used for every output image.
const Quality = 50

type Store interface {
	Save(ctx context.Context, data []byte) (string, error)
	Delete(ctx context.Context, ref string) error
}

type Unit struct {
	client *resty.Client
	store  Store
}

// NewUnit builds a Unit whose fetches give up after timeout. A zero timeout
// waits indefinitely.
func NewUnit(store Store, timeout time.Duration) *Unit {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetLogger(logger.Log.Sugar())
	return &Unit{client: client, store: store}
}

// Process runs one fetch, recompress and store attempt for url and returns
// the public reference of the stored image. Errors are *models.ImageError.
func (u *Unit) Process(ctx context.Context, url string) (string, error) {
	data, err := u.fetch(ctx, url)
	if err != nil {
		return "", &models.ImageError{Kind: models.ErrFetch, URL: url, Err: err}
	}

	encoded, err := Recompress(data)
	if err != nil {
		return "", &models.ImageError{Kind: models.ErrDecode, URL: url, Err: err}
	}

	ref, err := u.store.Save(ctx, encoded)
	if err != nil {
		return "", &models.ImageError{Kind: models.ErrStore, URL: url, Err: err}
	}
	return ref, nil
}

// Discard removes an image stored by Process.
func (u *Unit) Discard(ctx context.Context, ref string) error {
	return u.store.Delete(ctx, ref)
}

func (u *Unit) fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, errors.New("empty url")
	}

	resp, err := u.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return nil, fmt.Errorf("unexpected status %d", code)
	}
	return resp.Body(), nil
}

// Recompress decodes any supported image format and re-encodes it as JPEG
// at Quality.
func Recompress(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(Quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
