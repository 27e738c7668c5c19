package transform

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imagebatch/internal/models"
)

type memStore struct {
	saved   [][]byte
	deleted []string
	err     error
}

func (m *memStore) Save(_ context.Context, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.saved = append(m.saved, data)
	return "ref-" + string(rune('0'+len(m.saved))), nil
}

func (m *memStore) Delete(_ context.Context, ref string) error {
	m.deleted = append(m.deleted, ref)
	return nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newImageServer(t *testing.T) *httptest.Server {
	t.Helper()
	body := pngBytes(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/ok.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(body)
	})
	mux.HandleFunc("/text", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("definitely not an image"))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write(body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestUnit_Process(t *testing.T) {
	srv := newImageServer(t)
	store := &memStore{}
	u := NewUnit(store, 5*time.Second)

	ref, err := u.Process(context.Background(), srv.URL+"/ok.png")
	require.NoError(t, err)
	assert.Equal(t, "ref-1", ref)
	require.Len(t, store.saved, 1)

	_, format, err := image.DecodeConfig(bytes.NewReader(store.saved[0]))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	_, err = jpeg.Decode(bytes.NewReader(store.saved[0]))
	assert.NoError(t, err)
}

func TestUnit_Process_Failures(t *testing.T) {
	srv := newImageServer(t)

	tests := []struct {
		name     string
		url      string
		storeErr error
		timeout  time.Duration
		kind     error
	}{
		{name: "http 404", url: srv.URL + "/missing.png", kind: models.ErrFetch},
		{name: "empty url", url: "", kind: models.ErrFetch},
		{name: "unreachable", url: "http://127.0.0.1:1/none.png", kind: models.ErrFetch},
		{name: "timeout", url: srv.URL + "/slow", timeout: 50 * time.Millisecond, kind: models.ErrFetch},
		{name: "not an image", url: srv.URL + "/text", kind: models.ErrDecode},
		{name: "store failure", url: srv.URL + "/ok.png", storeErr: errors.New("disk full"), kind: models.ErrStore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timeout := tt.timeout
			if timeout == 0 {
				timeout = 5 * time.Second
			}
			store := &memStore{err: tt.storeErr}
			u := NewUnit(store, timeout)

			ref, err := u.Process(context.Background(), tt.url)
			require.Error(t, err)
			assert.Empty(t, ref)
			assert.ErrorIs(t, err, tt.kind)

			var ie *models.ImageError
			require.True(t, errors.As(err, &ie))
			assert.Equal(t, tt.url, ie.URL)
			assert.Empty(t, store.saved)
		})
	}
}

func TestUnit_Discard(t *testing.T) {
	store := &memStore{}
	u := NewUnit(store, time.Second)

	require.NoError(t, u.Discard(context.Background(), "ref-1"))
	assert.Equal(t, []string{"ref-1"}, store.deleted)
}

func TestRecompress_RejectsGarbage(t *testing.T) {
	_, err := Recompress([]byte{0x00, 0x01, 0x02})
	assert.Error(t, err)
}
