// Package blob stores processed images in a local directory that the HTTP
// server exposes under PublicPath.
package blob

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	PublicPath = "/files"
	outputName = "output.jpg"
)

type LocalStore struct {
	root    string
	baseURL string
}

func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	const op = "blob.NewLocalStore"

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) Root() string {
	return s.root
}

// Save writes data as <uuid>/output.jpg and returns its public URL. The file
// only appears under its final name once fully written.
func (s *LocalStore) Save(ctx context.Context, data []byte) (string, error) {
	const op = "blob.Save"

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	name := uuid.NewString()
	dir := filepath.Join(s.root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	tmp, err := os.CreateTemp(dir, "upload-*.tmp")
	if err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Rename(tmp.Name(), filepath.Join(dir, outputName))
	}
	if werr != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("%s: %w", op, werr)
	}

	return s.baseURL + path.Join(PublicPath, name, outputName), nil
}

// Delete removes the directory behind a reference returned by Save.
func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	const op = "blob.Delete"

	rel, ok := strings.CutPrefix(ref, s.baseURL+PublicPath+"/")
	if !ok {
		return fmt.Errorf("%s: foreign reference %q", op, ref)
	}
	name, _, _ := strings.Cut(rel, "/")
	if _, err := uuid.Parse(name); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := os.RemoveAll(filepath.Join(s.root, name)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
