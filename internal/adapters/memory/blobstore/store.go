package blobstore

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/bodyforce/admin-api/internal/ports/out/blobstore"
)

type object struct {
	meta blobstore.Object
	data []byte
}

// Store is an in-memory implementation of blobstore.Store.
// It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	m  map[string]object
}

func NewStore() *Store {
	return &Store{m: make(map[string]object)}
}

func key(bucket, path string) string { return bucket + "\x00" + path }

func (s *Store) Put(ctx context.Context, bucket, path, contentType string, r io.Reader) (blobstore.Object, error) {
	_ = ctx
	data, err := io.ReadAll(r)
	if err != nil {
		return blobstore.Object{}, err
	}
	meta := blobstore.Object{Bucket: bucket, Path: path, ContentType: contentType, Size: int64(len(data))}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key(bucket, path)] = object{meta: meta, data: data}
	return meta, nil
}

func (s *Store) Open(ctx context.Context, bucket, path string) (io.ReadCloser, blobstore.Object, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.m[key(bucket, path)]
	if !ok {
		return nil, blobstore.Object{}, blobstore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(o.data)), o.meta, nil
}

func (s *Store) Delete(ctx context.Context, bucket, path string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(bucket, path)
	if _, ok := s.m[k]; !ok {
		return blobstore.ErrNotFound
	}
	delete(s.m, k)
	return nil
}
