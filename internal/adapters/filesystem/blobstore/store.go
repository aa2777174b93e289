package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodyforce/admin-api/internal/ports/out/blobstore"
)

// Store keeps objects on local disk under Root/<bucket>/<path>. The content type
// is kept in a sidecar file next to each object.
type Store struct {
	Root string
}

func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("blob root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Store{Root: root}, nil
}

const metaSuffix = ".meta.json"

type meta struct {
	ContentType string `json:"contentType"`
}

// resolve maps bucket/path onto disk, rejecting traversal outside Root.
func (s *Store) resolve(bucket, path string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", fmt.Errorf("invalid bucket %q", bucket)
	}
	clean := filepath.Clean("/" + filepath.FromSlash(path))
	if clean == string(filepath.Separator) || strings.HasSuffix(clean, metaSuffix) {
		return "", fmt.Errorf("invalid object path %q", path)
	}
	return filepath.Join(s.Root, bucket, clean), nil
}

func (s *Store) Put(ctx context.Context, bucket, path, contentType string, r io.Reader) (blobstore.Object, error) {
	_ = ctx
	full, err := s.resolve(bucket, path)
	if err != nil {
		return blobstore.Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return blobstore.Object{}, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return blobstore.Object{}, err
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return blobstore.Object{}, err
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		_ = os.Remove(tmp.Name())
		return blobstore.Object{}, err
	}

	b, _ := json.Marshal(meta{ContentType: contentType})
	if err := os.WriteFile(full+metaSuffix, b, 0o644); err != nil {
		return blobstore.Object{}, err
	}
	return blobstore.Object{Bucket: bucket, Path: path, ContentType: contentType, Size: n}, nil
}

func (s *Store) Open(ctx context.Context, bucket, path string) (io.ReadCloser, blobstore.Object, error) {
	_ = ctx
	full, err := s.resolve(bucket, path)
	if err != nil {
		return nil, blobstore.Object{}, blobstore.ErrNotFound
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, blobstore.Object{}, blobstore.ErrNotFound
		}
		return nil, blobstore.Object{}, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, blobstore.Object{}, err
	}
	obj := blobstore.Object{Bucket: bucket, Path: path, Size: st.Size()}
	if b, err := os.ReadFile(full + metaSuffix); err == nil {
		var m meta
		if json.Unmarshal(b, &m) == nil {
			obj.ContentType = m.ContentType
		}
	}
	return f, obj, nil
}

func (s *Store) Delete(ctx context.Context, bucket, path string) error {
	_ = ctx
	full, err := s.resolve(bucket, path)
	if err != nil {
		return blobstore.ErrNotFound
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return blobstore.ErrNotFound
		}
		return err
	}
	_ = os.Remove(full + metaSuffix)
	return nil
}
