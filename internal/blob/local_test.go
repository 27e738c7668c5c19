package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_SaveAndDelete(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStore(root, "http://localhost:3000/")
	require.NoError(t, err)

	ref, err := s.Save(context.Background(), []byte("jpeg-bytes"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ref, "http://localhost:3000/files/"), ref)
	require.True(t, strings.HasSuffix(ref, "/output.jpg"), ref)

	rel := strings.TrimPrefix(ref, "http://localhost:3000/files/")
	got, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(got))

	entries, err := os.ReadDir(filepath.Join(root, filepath.Dir(filepath.FromSlash(rel))))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	require.NoError(t, s.Delete(context.Background(), ref))
	_, err = os.Stat(filepath.Join(root, filepath.Dir(filepath.FromSlash(rel))))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStore_Delete_Foreign(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "http://localhost:3000")
	require.NoError(t, err)

	assert.Error(t, s.Delete(context.Background(), "http://elsewhere/files/x/output.jpg"))
	assert.Error(t, s.Delete(context.Background(), "http://localhost:3000/files/../etc/output.jpg"))
}

func TestLocalStore_Save_Canceled(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStore(root, "http://localhost:3000")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Save(ctx, []byte("x"))
	require.Error(t, err)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
